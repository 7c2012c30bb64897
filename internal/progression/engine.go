package progression

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"sync"

	"example.com/ecopulse/backend/internal/models"
	"example.com/ecopulse/backend/internal/store"
)

// Ключи хранилища совпадают с ключами локального хранилища клиента.
const (
	KeyMode    = "ecopulse_mode"
	KeyProfile = "ecopulse_profile"
)

var (
	ErrNegativeAmount  = errors.New("amount must not be negative")
	ErrUnknownMode     = errors.New("unknown mode")
	ErrBalanceOverflow = errors.New("coin balance overflow")
)

// CoinsKey возвращает ключ баланса режима.
func CoinsKey(mode models.Mode) string {
	return "ecopulse_coins_" + string(mode)
}

// RankKey возвращает ключ ранга режима.
func RankKey(mode models.Mode) string {
	return "ecopulse_rank_" + string(mode)
}

// Engine — единственный владелец изменяемого состояния прогрессии одного игрока в процессе.
// Все операции сериализуются мьютексом и сохраняют изменения до возврата.
// Хранилище остается источником истины: изменения начинаются с перечитывания ключей режима,
// поэтому записи ecoctl и сброс пространства не затираются кешированным состоянием.
type Engine struct {
	mu              sync.Mutex
	kv              store.KV
	tables          Tables
	startingBalance int64
	logger          *slog.Logger

	mode   models.Mode
	states map[models.Mode]models.ProgressState
}

// Load восстанавливает состояние из хранилища. Отсутствующие ключи получают значения по умолчанию.
func Load(ctx context.Context, kv store.KV, tables Tables, startingBalance int64, logger *slog.Logger) (*Engine, error) {
	if logger == nil {
		logger = slog.Default()
	}
	for _, mode := range models.Modes {
		if _, ok := tables[mode]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownMode, mode)
		}
	}

	e := &Engine{
		kv:              kv,
		tables:          tables,
		startingBalance: startingBalance,
		logger:          logger,
		mode:            models.ModePro,
		states:          make(map[models.Mode]models.ProgressState, len(tables)),
	}
	if err := e.reload(ctx); err != nil {
		return nil, err
	}
	return e, nil
}

// Sync перечитывает режим и состояния всех режимов из хранилища.
func (e *Engine) Sync(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.reload(ctx)
}

func (e *Engine) reload(ctx context.Context) error {
	keys := []string{KeyMode}
	for _, mode := range models.Modes {
		keys = append(keys, CoinsKey(mode), RankKey(mode))
	}
	values, err := readKeys(ctx, e.kv, keys)
	if err != nil {
		return fmt.Errorf("load progress: %w", err)
	}

	mode := models.ModePro
	if raw, ok := values[KeyMode]; ok {
		if parsed, parseErr := models.ParseMode(raw); parseErr == nil {
			mode = parsed
		} else {
			e.logger.Warn("ignoring stored mode", slog.String("value", raw))
		}
	}

	states := make(map[models.Mode]models.ProgressState, len(models.Modes))
	for _, m := range models.Modes {
		states[m] = e.decodeState(m, values)
	}

	e.mode = mode
	e.states = states
	return nil
}

// reloadMode перечитывает баланс и ранг одного режима. Вызывается под e.mu.
func (e *Engine) reloadMode(ctx context.Context, mode models.Mode) (models.ProgressState, error) {
	if _, ok := e.tables[mode]; !ok {
		return models.ProgressState{}, fmt.Errorf("%w: %s", ErrUnknownMode, mode)
	}

	values, err := readKeys(ctx, e.kv, []string{CoinsKey(mode), RankKey(mode)})
	if err != nil {
		return models.ProgressState{}, fmt.Errorf("load %s progress: %w", mode, err)
	}
	state := e.decodeState(mode, values)
	e.states[mode] = state
	return state, nil
}

func (e *Engine) decodeState(mode models.Mode, values map[string]string) models.ProgressState {
	balance := e.parseInt(values, CoinsKey(mode), e.startingBalance)
	rank := e.parseInt(values, RankKey(mode), 1)
	if rank < 1 {
		rank = 1
	}
	if maxRank := int64(e.tables[mode].Len()); rank > maxRank {
		e.logger.Warn("clamping stored rank", slog.String("mode", string(mode)), slog.Int64("rank", rank))
		rank = maxRank
	}
	return models.ProgressState{CoinBalance: balance, CurrentRank: int(rank)}
}

func (e *Engine) parseInt(values map[string]string, key string, fallback int64) int64 {
	raw, ok := values[key]
	if !ok {
		return fallback
	}

	value, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || value < 0 {
		e.logger.Warn("ignoring stored value", slog.String("key", key), slog.String("value", raw))
		return fallback
	}
	return value
}

func readKeys(ctx context.Context, kv store.KV, keys []string) (map[string]string, error) {
	if batch, ok := kv.(store.BatchKV); ok {
		return batch.GetMany(ctx, keys)
	}

	values := make(map[string]string, len(keys))
	for _, key := range keys {
		value, ok, err := kv.Get(ctx, key)
		if err != nil {
			return nil, err
		}
		if ok {
			values[key] = value
		}
	}
	return values, nil
}

// Mode возвращает активный режим.
func (e *Engine) Mode() models.Mode {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.mode
}

// Table возвращает таблицу уровней режима.
func (e *Engine) Table(mode models.Mode) (Table, error) {
	table, ok := e.tables[mode]
	if !ok {
		return Table{}, fmt.Errorf("%w: %s", ErrUnknownMode, mode)
	}
	return table, nil
}

// State возвращает баланс и ранг режима без изменений.
func (e *Engine) State(mode models.Mode) (models.ProgressState, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	state, ok := e.states[mode]
	if !ok {
		return models.ProgressState{}, fmt.Errorf("%w: %s", ErrUnknownMode, mode)
	}
	return state, nil
}

// EarnCoins начисляет монеты в указанном режиме. Другой режим не затрагивается.
func (e *Engine) EarnCoins(ctx context.Context, mode models.Mode, amount int64) (models.ProgressState, error) {
	if amount < 0 {
		return models.ProgressState{}, ErrNegativeAmount
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	prev, err := e.reloadMode(ctx, mode)
	if err != nil {
		return models.ProgressState{}, err
	}
	if amount > math.MaxInt64-prev.CoinBalance {
		return prev, ErrBalanceOverflow
	}
	if amount == 0 {
		return prev, nil
	}

	next := prev
	next.CoinBalance += amount
	e.states[mode] = next

	if err := e.kv.Set(ctx, CoinsKey(mode), formatInt(next.CoinBalance)); err != nil {
		e.states[mode] = prev
		return prev, fmt.Errorf("persist coins: %w", err)
	}

	return next, nil
}

// LevelUp покупает следующий ранг. Возвращает false без изменений на последнем ранге
// или при нехватке монет; это ожидаемый исход, а не ошибка.
func (e *Engine) LevelUp(ctx context.Context, mode models.Mode) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	prev, err := e.reloadMode(ctx, mode)
	if err != nil {
		return false, err
	}

	nextLevel, ok := e.tables[mode].Next(prev.CurrentRank)
	if !ok || prev.CoinBalance < nextLevel.Cost {
		return false, nil
	}

	next := models.ProgressState{
		CoinBalance: prev.CoinBalance - nextLevel.Cost,
		CurrentRank: nextLevel.Rank,
	}
	e.states[mode] = next

	if err := e.persistState(ctx, mode, prev, next); err != nil {
		e.states[mode] = prev
		return false, fmt.Errorf("persist level up: %w", err)
	}

	return true, nil
}

// SetMode переключает активный режим. Состояния режимов не меняются.
func (e *Engine) SetMode(ctx context.Context, mode models.Mode) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.states[mode]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownMode, mode)
	}

	if err := e.kv.Set(ctx, KeyMode, string(mode)); err != nil {
		return fmt.Errorf("persist mode: %w", err)
	}
	e.mode = mode
	return nil
}

func (e *Engine) persistState(ctx context.Context, mode models.Mode, prev, next models.ProgressState) error {
	values := map[string]string{
		CoinsKey(mode): formatInt(next.CoinBalance),
		RankKey(mode):  strconv.Itoa(next.CurrentRank),
	}

	if batch, ok := e.kv.(store.BatchKV); ok {
		return batch.SetMany(ctx, values)
	}

	if err := e.kv.Set(ctx, CoinsKey(mode), values[CoinsKey(mode)]); err != nil {
		return err
	}
	if err := e.kv.Set(ctx, RankKey(mode), values[RankKey(mode)]); err != nil {
		if restoreErr := e.kv.Set(ctx, CoinsKey(mode), formatInt(prev.CoinBalance)); restoreErr != nil {
			e.logger.Error("failed to restore coins after partial write",
				slog.String("mode", string(mode)),
				slog.String("error", restoreErr.Error()),
			)
		}
		return err
	}
	return nil
}

func formatInt(value int64) string {
	return strconv.FormatInt(value, 10)
}
