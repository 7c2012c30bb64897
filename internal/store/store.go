// Package store реализует адаптер хранения ключ-значение для состояния игрока.
//
// Каждый игрок владеет собственным пространством ключей (namespace), которое повторяет
// локальное хранилище браузера: ключи прогресса, режима и профиля хранятся строками.
package store

import (
	"context"
	"errors"
	"strings"
)

// ErrInvalidKey возвращается для пустых ключей и пространств имён.
var ErrInvalidKey = errors.New("invalid key")

// KV синхронно читает и пишет строковые значения по ключу.
type KV interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
}

// BatchKV дополнительно читает несколько ключей за один запрос и атомарно пишет несколько ключей.
type BatchKV interface {
	KV
	GetMany(ctx context.Context, keys []string) (map[string]string, error)
	SetMany(ctx context.Context, values map[string]string) error
}

// Backend хранит значения всех игроков, разделённые по namespace.
type Backend interface {
	Get(ctx context.Context, namespace, key string) (string, bool, error)
	GetMany(ctx context.Context, namespace string, keys []string) (map[string]string, error)
	Set(ctx context.Context, namespace, key, value string) error
	SetMany(ctx context.Context, namespace string, values map[string]string) error
	Reset(ctx context.Context, namespace string) error
	Close() error
}

// Scoped привязывает Backend к одному namespace.
type Scoped struct {
	backend   Backend
	namespace string
}

// Scope возвращает представление хранилища для одного игрока.
func Scope(backend Backend, namespace string) *Scoped {
	return &Scoped{backend: backend, namespace: namespace}
}

func (s *Scoped) Get(ctx context.Context, key string) (string, bool, error) {
	if err := validate(s.namespace, key); err != nil {
		return "", false, err
	}
	return s.backend.Get(ctx, s.namespace, key)
}

// GetMany возвращает найденные ключи; отсутствующие в результат не попадают.
func (s *Scoped) GetMany(ctx context.Context, keys []string) (map[string]string, error) {
	for _, key := range keys {
		if err := validate(s.namespace, key); err != nil {
			return nil, err
		}
	}
	if len(keys) == 0 {
		return map[string]string{}, nil
	}
	return s.backend.GetMany(ctx, s.namespace, keys)
}

func (s *Scoped) Set(ctx context.Context, key, value string) error {
	if err := validate(s.namespace, key); err != nil {
		return err
	}
	return s.backend.Set(ctx, s.namespace, key, value)
}

func (s *Scoped) SetMany(ctx context.Context, values map[string]string) error {
	for key := range values {
		if err := validate(s.namespace, key); err != nil {
			return err
		}
	}
	if len(values) == 0 {
		return nil
	}
	return s.backend.SetMany(ctx, s.namespace, values)
}

// Namespace возвращает пространство имён представления.
func (s *Scoped) Namespace() string {
	return s.namespace
}

func validate(namespace, key string) error {
	if strings.TrimSpace(namespace) == "" || strings.TrimSpace(key) == "" {
		return ErrInvalidKey
	}
	return nil
}
