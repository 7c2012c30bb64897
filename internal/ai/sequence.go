package ai

import (
	"sync"
)

// Каналы, в которых ответы модели применяются к отображаемому состоянию.
const (
	ChannelAdvisor       = "advisor"
	ChannelOrganizations = "organizations"
	ChannelMissions      = "missions"
)

// Ticket — номер запроса в канале.
type Ticket struct {
	Key string
	Seq uint64
}

// Sequencer выдаёт монотонные номера запросов и применяет ответ, только если
// после него в том же канале не было выдано более нового запроса.
type Sequencer struct {
	mu     sync.Mutex
	latest map[string]uint64
}

// NewSequencer создает пустой счётчик запросов.
func NewSequencer() *Sequencer {
	return &Sequencer{latest: make(map[string]uint64)}
}

// SequenceKey строит ключ канала для игрока.
func SequenceKey(owner, channel string) string {
	return owner + ":" + channel
}

// Issue выдаёт следующий номер в канале.
func (s *Sequencer) Issue(key string) Ticket {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.latest[key]++
	return Ticket{Key: key, Seq: s.latest[key]}
}

// IsLatest сообщает, остаётся ли запрос последним в канале.
func (s *Sequencer) IsLatest(ticket Ticket) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latest[ticket.Key] == ticket.Seq
}

// Apply выполняет apply, если запрос всё ещё последний. Проверка и применение атомарны
// относительно Issue, поэтому устаревший ответ не может перезаписать более новый.
func (s *Sequencer) Apply(ticket Ticket, apply func()) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.latest[ticket.Key] != ticket.Seq {
		return false
	}
	apply()
	return true
}
