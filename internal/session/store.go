// Package session хранит короткоживущее состояние активностей: викторины, мини-игры, доски миссий.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("session not found")

// Store хранит значения по идентификатору.
type Store[T any] interface {
	Get(ctx context.Context, id string) (T, bool, error)
	Put(ctx context.Context, id string, v T) error
	Update(ctx context.Context, id string, fn func(*T) error) (T, error)
	Delete(ctx context.Context, id string) error
	NewID() string
}

// Cloner реализуют значения со срезами или указателями. MemoryStore принимает и отдает
// их копии, поэтому снимок, полученный из Get или Update, не меняется последующими Update.
type Cloner[T any] interface {
	Clone() T
}

func clone[T any](v T) T {
	if c, ok := any(v).(Cloner[T]); ok {
		return c.Clone()
	}
	return v
}

type entry[T any] struct {
	value     T
	expiresAt time.Time
}

// MemoryStore хранит значения в памяти; записи старше ttl считаются отсутствующими.
type MemoryStore[T any] struct {
	mu  sync.Mutex
	m   map[string]entry[T]
	ttl time.Duration
	now func() time.Time
}

// NewMemoryStore создает хранилище. Нулевой ttl означает бессрочное хранение.
func NewMemoryStore[T any](ttl time.Duration) *MemoryStore[T] {
	return &MemoryStore[T]{m: map[string]entry[T]{}, ttl: ttl, now: time.Now}
}

func (s *MemoryStore[T]) Get(_ context.Context, id string) (T, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.lookup(id)
	if !ok {
		return v, false, nil
	}
	return clone(v), true, nil
}

func (s *MemoryStore[T]) Put(_ context.Context, id string, v T) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.m[id] = entry[T]{value: clone(v), expiresAt: s.expiry()}
	s.sweep()
	return nil
}

// Update изменяет значение под блокировкой. Если fn вернула ошибку, значение не сохраняется.
func (s *MemoryStore[T]) Update(_ context.Context, id string, fn func(*T) error) (T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.lookup(id)
	if !ok {
		var zero T
		return zero, ErrNotFound
	}
	v := clone(stored)
	if err := fn(&v); err != nil {
		return clone(stored), err
	}
	s.m[id] = entry[T]{value: v, expiresAt: s.expiry()}
	return clone(v), nil
}

func (s *MemoryStore[T]) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, id)
	return nil
}

func (s *MemoryStore[T]) NewID() string {
	return uuid.NewString()
}

func (s *MemoryStore[T]) lookup(id string) (T, bool) {
	e, ok := s.m[id]
	if !ok {
		var zero T
		return zero, false
	}
	if !e.expiresAt.IsZero() && s.now().After(e.expiresAt) {
		delete(s.m, id)
		var zero T
		return zero, false
	}
	return e.value, true
}

func (s *MemoryStore[T]) expiry() time.Time {
	if s.ttl <= 0 {
		return time.Time{}
	}
	return s.now().Add(s.ttl)
}

// sweep удаляет просроченные записи, чтобы брошенные сессии не копились.
func (s *MemoryStore[T]) sweep() {
	if s.ttl <= 0 {
		return
	}
	now := s.now()
	for id, e := range s.m {
		if now.After(e.expiresAt) {
			delete(s.m, id)
		}
	}
}
