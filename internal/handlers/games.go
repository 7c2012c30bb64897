package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"example.com/ecopulse/backend/internal/games"
	"example.com/ecopulse/backend/internal/models"
	"example.com/ecopulse/backend/internal/notifications"
	"example.com/ecopulse/backend/internal/progression"
	"example.com/ecopulse/backend/internal/session"
)

// GameState — состояние мини-игр игрока в одном режиме.
type GameState struct {
	Sort games.SortState `json:"sort"`
	Grow games.GrowState `json:"grow"`
	Tap  *games.TapState `json:"tap,omitempty"`
}

// Clone копирует раунд, чтобы снимок не менялся вместе с хранилищем.
func (s GameState) Clone() GameState {
	if s.Tap != nil {
		tap := *s.Tap
		s.Tap = &tap
	}
	return s
}

type GameHandler struct {
	Registry *progression.Registry
	States   session.Store[GameState]
	Notifier *notifications.Hub
	Now      func() time.Time
}

// NewGameHandler создает обработчик мини-игр.
func NewGameHandler(registry *progression.Registry, states session.Store[GameState], notifier *notifications.Hub) *GameHandler {
	return &GameHandler{
		Registry: registry,
		States:   states,
		Notifier: notifier,
		Now:      time.Now,
	}
}

type SortRequest struct {
	Bin string `json:"bin" validate:"required,oneof=compost recycle trash"`
}

type WaterRequest struct {
	Replant bool `json:"replant"`
}

type TapHitRequest struct {
	Target string `json:"target" validate:"required,oneof=good bad"`
}

type GameCatalogEntry struct {
	games.Game
	Unlocked bool `json:"unlocked"`
}

type GameCatalogResponse struct {
	Rank    int                `json:"rank"`
	Games   []GameCatalogEntry `json:"games"`
	Current games.SortItem     `json:"sort_item"`
	State   GameState          `json:"state"`
}

type SortResponse struct {
	games.SortOutcome
	Score       int   `json:"score"`
	CoinBalance int64 `json:"coin_balance"`
}

type GrowResponse struct {
	games.GrowState
	Stage       string `json:"stage"`
	Earned      int64  `json:"earned"`
	CoinBalance int64  `json:"coin_balance"`
}

type TapResponse struct {
	games.TapState
	RemainingMs int64 `json:"remaining_ms"`
	Earned      int64 `json:"earned"`
	CoinBalance int64 `json:"coin_balance"`
}

// Catalog возвращает мини-игры с отметкой доступности на текущем ранге.
func (h *GameHandler) Catalog(c echo.Context) error {
	engine, playerID, err := engineFromContext(c, h.Registry)
	if err != nil {
		return err
	}
	mode := engine.Mode()

	state, err := engine.State(mode)
	if err != nil {
		return serverError(c)
	}

	gameState, err := h.state(c.Request().Context(), playerID, mode)
	if err != nil {
		return serverError(c)
	}

	entries := make([]GameCatalogEntry, 0, len(games.Catalog))
	for _, game := range games.Catalog {
		entries = append(entries, GameCatalogEntry{Game: game, Unlocked: state.CurrentRank >= game.UnlockRank})
	}

	return c.JSON(http.StatusOK, GameCatalogResponse{
		Rank:    state.CurrentRank,
		Games:   entries,
		Current: gameState.Sort.Current(),
		State:   gameState,
	})
}

// Sort кладет текущий предмет в корзину.
func (h *GameHandler) Sort(c echo.Context) error {
	var req SortRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return badRequest(c, "validation failed")
	}

	engine, playerID, mode, err := h.unlocked(c, games.GameSort)
	if err != nil {
		return err
	}

	var outcome games.SortOutcome
	state, err := h.update(c.Request().Context(), playerID, mode, func(s *GameState) error {
		var sortErr error
		outcome, sortErr = s.Sort.Sort(req.Bin, h.Registry.Policy().Rewards.SortCorrect)
		return sortErr
	})
	if err != nil {
		return gameError(c, err)
	}

	balance, err := award(c, engine, h.Notifier, playerID, mode, outcome.Earned, games.GameSort)
	if err != nil {
		return serverError(c)
	}

	return c.JSON(http.StatusOK, SortResponse{
		SortOutcome: outcome,
		Score:       state.Sort.Score,
		CoinBalance: balance.CoinBalance,
	})
}

// Water поливает дерево. replant=true сажает новое дерево, если старое выросло.
func (h *GameHandler) Water(c echo.Context) error {
	var req WaterRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid payload")
	}

	engine, playerID, mode, err := h.unlocked(c, games.GameGrow)
	if err != nil {
		return err
	}

	var earned int64
	state, err := h.update(c.Request().Context(), playerID, mode, func(s *GameState) error {
		if req.Replant && s.Grow.FullyGrown() {
			s.Grow.Replant()
		}
		var waterErr error
		earned, waterErr = s.Grow.Water(h.Registry.Policy().Rewards.GrowComplete)
		return waterErr
	})
	if err != nil {
		return gameError(c, err)
	}

	balance, err := award(c, engine, h.Notifier, playerID, mode, earned, games.GameGrow)
	if err != nil {
		return serverError(c)
	}

	return c.JSON(http.StatusOK, GrowResponse{
		GrowState:   state.Grow,
		Stage:       state.Grow.Stage(),
		Earned:      earned,
		CoinBalance: balance.CoinBalance,
	})
}

// TapStart начинает раунд Eco-Tap Blitz.
func (h *GameHandler) TapStart(c echo.Context) error {
	engine, playerID, mode, err := h.unlocked(c, games.GameTap)
	if err != nil {
		return err
	}

	now := h.Now()
	state, err := h.update(c.Request().Context(), playerID, mode, func(s *GameState) error {
		round := games.NewTapRound(now)
		s.Tap = &round
		return nil
	})
	if err != nil {
		return serverError(c)
	}

	balance, err := engine.State(mode)
	if err != nil {
		return serverError(c)
	}
	return c.JSON(http.StatusCreated, tapResponse(*state.Tap, now, 0, balance.CoinBalance))
}

// TapHit засчитывает касание цели.
func (h *GameHandler) TapHit(c echo.Context) error {
	var req TapHitRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return badRequest(c, "validation failed")
	}

	engine, playerID, mode, err := h.unlocked(c, games.GameTap)
	if err != nil {
		return err
	}

	now := h.Now()
	state, err := h.update(c.Request().Context(), playerID, mode, func(s *GameState) error {
		if s.Tap == nil {
			return errNoRound
		}
		return s.Tap.Hit(req.Target, now)
	})
	if err != nil {
		return gameError(c, err)
	}

	balance, err := engine.State(mode)
	if err != nil {
		return serverError(c)
	}
	return c.JSON(http.StatusOK, tapResponse(*state.Tap, now, 0, balance.CoinBalance))
}

// TapFinish завершает раунд и выплачивает score*2 один раз.
func (h *GameHandler) TapFinish(c echo.Context) error {
	engine, playerID, mode, err := h.unlocked(c, games.GameTap)
	if err != nil {
		return err
	}

	var payout int64
	var paid bool
	state, err := h.update(c.Request().Context(), playerID, mode, func(s *GameState) error {
		if s.Tap == nil {
			return errNoRound
		}
		payout, paid = s.Tap.Finish(h.Registry.Policy().Rewards.TapMultiplier)
		return nil
	})
	if err != nil {
		return gameError(c, err)
	}
	if !paid {
		return conflict(c, "round already finished")
	}

	balance, err := award(c, engine, h.Notifier, playerID, mode, payout, games.GameTap)
	if err != nil {
		return serverError(c)
	}
	return c.JSON(http.StatusOK, tapResponse(*state.Tap, h.Now(), payout, balance.CoinBalance))
}

var errNoRound = errors.New("no active round")

// unlocked проверяет, что игра открыта на ранге активного режима.
func (h *GameHandler) unlocked(c echo.Context, gameID string) (*progression.Engine, uuid.UUID, models.Mode, error) {
	engine, playerID, err := engineFromContext(c, h.Registry)
	if err != nil {
		return nil, playerID, "", err
	}
	mode := engine.Mode()

	state, err := engine.State(mode)
	if err != nil {
		return nil, playerID, mode, echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
	}
	if _, err := games.Check(gameID, state.CurrentRank); err != nil {
		if errors.Is(err, games.ErrLocked) {
			return nil, playerID, mode, echo.NewHTTPError(http.StatusForbidden, "game is locked")
		}
		return nil, playerID, mode, echo.NewHTTPError(http.StatusNotFound, "game not found")
	}
	return engine, playerID, mode, nil
}

func (h *GameHandler) state(ctx context.Context, playerID uuid.UUID, mode models.Mode) (GameState, error) {
	key := transcriptKey(playerID, mode)
	state, ok, err := h.States.Get(ctx, key)
	if err != nil || ok {
		return state, err
	}
	return GameState{}, h.States.Put(ctx, key, GameState{})
}

func (h *GameHandler) update(ctx context.Context, playerID uuid.UUID, mode models.Mode, fn func(*GameState) error) (GameState, error) {
	if _, err := h.state(ctx, playerID, mode); err != nil {
		return GameState{}, err
	}
	return h.States.Update(ctx, transcriptKey(playerID, mode), fn)
}

func tapResponse(state games.TapState, now time.Time, earned, balance int64) TapResponse {
	return TapResponse{
		TapState:    state,
		RemainingMs: state.Remaining(now).Milliseconds(),
		Earned:      earned,
		CoinBalance: balance,
	}
}

func gameError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, games.ErrUnknownBin), errors.Is(err, games.ErrUnknownTarget):
		return badRequest(c, err.Error())
	case errors.Is(err, games.ErrFullyGrown), errors.Is(err, games.ErrRoundOver), errors.Is(err, errNoRound):
		return conflict(c, err.Error())
	}
	return serverError(c)
}
