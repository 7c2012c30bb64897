package ai

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/goleak"
)

func TestSequencerDropsStaleResponses(t *testing.T) {
	seq := NewSequencer()
	key := SequenceKey("player", ChannelAdvisor)

	first := seq.Issue(key)
	second := seq.Issue(key)

	var shown []uint64
	assert.True(t, seq.Apply(second, func() { shown = append(shown, second.Seq) }))
	assert.False(t, seq.Apply(first, func() { shown = append(shown, first.Seq) }))
	assert.Equal(t, []uint64{2}, shown)
}

func TestSequencerChannelsAreIndependent(t *testing.T) {
	seq := NewSequencer()

	advisor := seq.Issue(SequenceKey("p", ChannelAdvisor))
	_ = seq.Issue(SequenceKey("p", ChannelOrganizations))
	_ = seq.Issue(SequenceKey("other", ChannelAdvisor))

	assert.True(t, seq.IsLatest(advisor))
}

func TestSequencerConcurrentIssue(t *testing.T) {
	defer goleak.VerifyNone(t)

	seq := NewSequencer()
	key := SequenceKey("p", ChannelMissions)

	var wg sync.WaitGroup
	tickets := make(chan Ticket, 50)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tickets <- seq.Issue(key)
		}()
	}
	wg.Wait()
	close(tickets)

	applied := 0
	seen := make(map[uint64]bool)
	for ticket := range tickets {
		assert.False(t, seen[ticket.Seq], "sequence numbers are unique")
		seen[ticket.Seq] = true
		if seq.Apply(ticket, func() {}) {
			applied++
		}
	}
	assert.Equal(t, 1, applied, "only the latest request is applied")
}
