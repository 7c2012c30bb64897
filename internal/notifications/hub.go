package notifications

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Типы событий потока уведомлений.
const (
	EventConnected          = "connected"
	EventCoinsEarned        = "coins_earned"
	EventLevelUp            = "level_up"
	EventModeChanged        = "mode_changed"
	EventAdviceReady        = "advice_ready"
	EventNewsReady          = "news_ready"
	EventOrganizationsReady = "organizations_ready"
)

const subscriberBuffer = 16

type Event struct {
	Type      string      `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data,omitempty"`
}

type Hub struct {
	mu          sync.RWMutex
	subscribers map[uuid.UUID]map[chan Event]struct{}
}

// NewHub создает хаб для SSE-подписок.
func NewHub() *Hub {
	return &Hub{
		subscribers: make(map[uuid.UUID]map[chan Event]struct{}),
	}
}

// Subscribe подписывает игрока на события и возвращает канал и функцию отписки.
func (h *Hub) Subscribe(playerID uuid.UUID) (<-chan Event, func()) {
	ch := make(chan Event, subscriberBuffer)

	h.mu.Lock()
	defer h.mu.Unlock()

	playerSubs, ok := h.subscribers[playerID]
	if !ok {
		playerSubs = make(map[chan Event]struct{})
		h.subscribers[playerID] = playerSubs
	}
	playerSubs[ch] = struct{}{}

	return ch, func() {
		h.mu.Lock()
		defer h.mu.Unlock()

		if subs, exists := h.subscribers[playerID]; exists {
			delete(subs, ch)
			if len(subs) == 0 {
				delete(h.subscribers, playerID)
			}
		}
		close(ch)
	}
}

// Publish отправляет событие всем подписчикам игрока.
func (h *Hub) Publish(playerID uuid.UUID, event Event) {
	event.Timestamp = time.Now().UTC()

	h.mu.RLock()
	defer h.mu.RUnlock()

	subs, ok := h.subscribers[playerID]
	if !ok {
		return
	}

	// Медленный подписчик теряет событие, а не блокирует издателя.
	for ch := range subs {
		select {
		case ch <- event:
		default:
		}
	}
}

// Subscribers возвращает число активных подписок игрока.
func (h *Hub) Subscribers(playerID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers[playerID])
}
