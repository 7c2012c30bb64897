package progression

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"example.com/ecopulse/backend/internal/store"
)

// DefaultIdleTTL — сколько движок игрока живет в кеше без обращений.
const DefaultIdleTTL = 30 * time.Minute

type registryEntry struct {
	engine   *Engine
	lastUsed time.Time
}

// Registry держит по одному движку на игрока и загружает его при первом обращении.
// Загрузка идет вне общей блокировки; одновременные запросы одного игрока ждут одну загрузку.
type Registry struct {
	backend store.Backend
	tables  Tables
	policy  Policy
	logger  *slog.Logger
	idleTTL time.Duration
	now     func() time.Time

	loads singleflight.Group

	mu        sync.Mutex
	engines   map[uuid.UUID]*registryEntry
	lastSweep time.Time
}

// NewRegistry создает реестр движков поверх общего хранилища.
func NewRegistry(backend store.Backend, policy Policy, tables Tables, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		backend: backend,
		tables:  tables,
		policy:  policy,
		logger:  logger,
		idleTTL: DefaultIdleTTL,
		now:     time.Now,
		engines: make(map[uuid.UUID]*registryEntry),
	}
}

// WithIdleTTL задает время жизни неиспользуемого движка. Ноль отключает вытеснение.
func (r *Registry) WithIdleTTL(ttl time.Duration) *Registry {
	r.idleTTL = ttl
	return r
}

// For возвращает движок игрока. Закешированный движок перечитывает хранилище,
// поэтому изменения из ecoctl и сброс пространства видны следующему запросу.
func (r *Registry) For(ctx context.Context, playerID uuid.UUID) (*Engine, error) {
	if engine, ok := r.cached(playerID); ok {
		if err := engine.Sync(ctx); err != nil {
			return nil, err
		}
		return engine, nil
	}

	loaded, err, _ := r.loads.Do(playerID.String(), func() (interface{}, error) {
		if engine, ok := r.cached(playerID); ok {
			return engine, nil
		}

		engine, err := Load(ctx, r.Store(playerID), r.tables, r.policy.StartingBalance,
			r.logger.With(slog.String("player_id", playerID.String())))
		if err != nil {
			return nil, err
		}

		r.mu.Lock()
		r.engines[playerID] = &registryEntry{engine: engine, lastUsed: r.now()}
		r.mu.Unlock()
		return engine, nil
	})
	if err != nil {
		return nil, err
	}
	return loaded.(*Engine), nil
}

func (r *Registry) cached(playerID uuid.UUID) (*Engine, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	r.sweep(now)

	entry, ok := r.engines[playerID]
	if !ok {
		return nil, false
	}
	entry.lastUsed = now
	return entry.engine, true
}

// sweep вытесняет движки, к которым не обращались дольше idleTTL. Вызывается под r.mu.
func (r *Registry) sweep(now time.Time) {
	if r.idleTTL <= 0 {
		return
	}
	if r.lastSweep.IsZero() {
		r.lastSweep = now
		return
	}
	if now.Sub(r.lastSweep) < r.idleTTL/2 {
		return
	}
	r.lastSweep = now
	for id, entry := range r.engines {
		if now.Sub(entry.lastUsed) > r.idleTTL {
			delete(r.engines, id)
		}
	}
}

// Store возвращает пространство ключей игрока.
func (r *Registry) Store(playerID uuid.UUID) *store.Scoped {
	return store.Scope(r.backend, playerID.String())
}

// Forget выгружает движок, чтобы следующее обращение загрузило его заново.
func (r *Registry) Forget(playerID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.engines, playerID)
}

// Policy возвращает политику экономики.
func (r *Registry) Policy() Policy {
	return r.policy
}

// Tables возвращает таблицы уровней.
func (r *Registry) Tables() Tables {
	return r.tables
}
