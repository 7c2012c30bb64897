package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreUpdate(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore[int](0)
	id := store.NewID()

	_, err := store.Update(ctx, id, func(v *int) error { *v++; return nil })
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.Put(ctx, id, 1))
	got, err := store.Update(ctx, id, func(v *int) error { *v += 2; return nil })
	require.NoError(t, err)
	assert.Equal(t, 3, got)

	_, err = store.Update(ctx, id, func(v *int) error { *v = 100; return errors.New("rejected") })
	require.Error(t, err)

	stored, ok, err := store.Get(ctx, id)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 3, stored, "failed update is not saved")
}

func TestMemoryStoreExpiry(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore[string](time.Minute)
	now := time.Date(2024, 4, 22, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	require.NoError(t, store.Put(ctx, "a", "quiz"))
	now = now.Add(2 * time.Minute)

	_, ok, err := store.Get(ctx, "a")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryStoreDelete(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore[string](0)

	require.NoError(t, store.Put(ctx, "a", "x"))
	require.NoError(t, store.Delete(ctx, "a"))

	_, ok, _ := store.Get(ctx, "a")
	assert.False(t, ok)
}

type tally struct {
	Hits  []string
	Score *int
}

func (t tally) Clone() tally {
	t.Hits = append([]string(nil), t.Hits...)
	if t.Score != nil {
		score := *t.Score
		t.Score = &score
	}
	return t
}

func (t *tally) hit(name string) {
	t.Hits = append(t.Hits, name)
	if t.Score == nil {
		t.Score = new(int)
	}
	*t.Score += 10
}

// TestMemoryStoreClonesValues проверяет, что снимки из Get и Update не разделяют память с хранилищем.
func TestMemoryStoreClonesValues(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore[tally](0)

	score := 0
	require.NoError(t, store.Put(ctx, "round", tally{Hits: make([]string, 0, 8), Score: &score}))
	score = 99

	snapshot, ok, err := store.Get(ctx, "round")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 0, *snapshot.Score)

	updated, err := store.Update(ctx, "round", func(v *tally) error { v.hit("good"); return nil })
	require.NoError(t, err)
	assert.Equal(t, 10, *updated.Score)
	assert.Equal(t, 0, *snapshot.Score)
	assert.Empty(t, snapshot.Hits)

	*updated.Score = 500
	_, err = store.Update(ctx, "round", func(v *tally) error { v.hit("bad"); return errors.New("rejected") })
	require.Error(t, err)

	stored, _, err := store.Get(ctx, "round")
	require.NoError(t, err)
	assert.Equal(t, 10, *stored.Score)
	assert.Equal(t, []string{"good"}, stored.Hits)
}

// TestMemoryStoreConcurrentUpdates проверяет конкурентные Update и чтение снимков.
func TestMemoryStoreConcurrentUpdates(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore[tally](0)
	require.NoError(t, store.Put(ctx, "round", tally{}))

	const workers = 8
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _ = store.Update(ctx, "round", func(v *tally) error { v.hit("good"); return nil })
		}()
		go func() {
			defer wg.Done()
			if snapshot, ok, _ := store.Get(ctx, "round"); ok && snapshot.Score != nil {
				_ = *snapshot.Score + len(snapshot.Hits)
			}
		}()
	}
	wg.Wait()

	final, _, err := store.Get(ctx, "round")
	require.NoError(t, err)
	assert.Equal(t, workers*10, *final.Score)
	assert.Len(t, final.Hits, workers)
}
