package store

import (
	"context"
	"sync"
)

// Memory хранит значения в памяти процесса. Используется в тестах и пробных запусках CLI.
type Memory struct {
	mu   sync.RWMutex
	data map[string]map[string]string
}

// NewMemory создает пустое хранилище в памяти.
func NewMemory() *Memory {
	return &Memory{data: make(map[string]map[string]string)}
}

func (m *Memory) Get(_ context.Context, namespace, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	value, ok := m.data[namespace][key]
	return value, ok, nil
}

func (m *Memory) GetMany(_ context.Context, namespace string, keys []string) (map[string]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	values := make(map[string]string, len(keys))
	bucket := m.data[namespace]
	for _, key := range keys {
		if value, ok := bucket[key]; ok {
			values[key] = value
		}
	}
	return values, nil
}

func (m *Memory) Set(ctx context.Context, namespace, key, value string) error {
	return m.SetMany(ctx, namespace, map[string]string{key: value})
}

func (m *Memory) SetMany(_ context.Context, namespace string, values map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	bucket, ok := m.data[namespace]
	if !ok {
		bucket = make(map[string]string, len(values))
		m.data[namespace] = bucket
	}
	for key, value := range values {
		bucket[key] = value
	}
	return nil
}

func (m *Memory) Reset(_ context.Context, namespace string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.data, namespace)
	return nil
}

func (m *Memory) Close() error {
	return nil
}
