package handlers

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"example.com/ecopulse/backend/internal/auth"
	"example.com/ecopulse/backend/internal/models"
	"example.com/ecopulse/backend/internal/notifications"
	"example.com/ecopulse/backend/internal/progression"
)

type ProgressHandler struct {
	Registry *progression.Registry
	Notifier *notifications.Hub
}

// NewProgressHandler создает обработчик прогресса игрока.
func NewProgressHandler(registry *progression.Registry, notifier *notifications.Hub) *ProgressHandler {
	return &ProgressHandler{Registry: registry, Notifier: notifier}
}

type SetModeRequest struct {
	Mode string `json:"mode" validate:"required,oneof=pro kid"`
}

type ProgressResponse struct {
	ActiveMode models.Mode                          `json:"active_mode"`
	Dashboard  progression.Dashboard                `json:"dashboard"`
	Modes      map[models.Mode]models.ProgressState `json:"modes"`
}

type LevelUpResponse struct {
	LeveledUp bool                  `json:"leveled_up"`
	Dashboard progression.Dashboard `json:"dashboard"`
}

type LevelsResponse struct {
	Mode   models.Mode    `json:"mode"`
	Levels []models.Level `json:"levels"`
}

// Get возвращает панель активного режима и состояние обоих режимов.
func (h *ProgressHandler) Get(c echo.Context) error {
	engine, _, err := engineFromContext(c, h.Registry)
	if err != nil {
		return err
	}

	return h.respond(c, engine, engine.Mode())
}

// GetMode возвращает панель указанного режима.
func (h *ProgressHandler) GetMode(c echo.Context) error {
	mode, err := models.ParseMode(c.Param("mode"))
	if err != nil {
		return badRequest(c, "invalid mode")
	}

	engine, _, err := engineFromContext(c, h.Registry)
	if err != nil {
		return err
	}

	return h.respond(c, engine, mode)
}

// LevelUp покупает следующий ранг. Нехватка монет и максимальный ранг не ошибка: leveled_up=false.
func (h *ProgressHandler) LevelUp(c echo.Context) error {
	mode, err := models.ParseMode(c.Param("mode"))
	if err != nil {
		return badRequest(c, "invalid mode")
	}

	engine, playerID, err := engineFromContext(c, h.Registry)
	if err != nil {
		return err
	}

	leveled, err := engine.LevelUp(c.Request().Context(), mode)
	if err != nil {
		slog.Error("level up failed", slog.String("player_id", playerID.String()), slog.String("error", err.Error()))
		return serverError(c)
	}

	dashboard, err := engine.Snapshot(mode, h.garden(mode))
	if err != nil {
		return serverError(c)
	}

	if leveled {
		publish(h.Notifier, playerID, notifications.EventLevelUp, map[string]interface{}{
			"mode":  mode,
			"rank":  dashboard.Current.Rank,
			"name":  dashboard.Current.Name,
			"icon":  dashboard.Current.Icon,
			"coins": dashboard.CoinBalance,
		})
	}

	return c.JSON(http.StatusOK, LevelUpResponse{LeveledUp: leveled, Dashboard: dashboard})
}

// SetMode переключает активный режим.
func (h *ProgressHandler) SetMode(c echo.Context) error {
	var req SetModeRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return badRequest(c, "validation failed")
	}

	mode, err := models.ParseMode(req.Mode)
	if err != nil {
		return badRequest(c, "invalid mode")
	}

	engine, playerID, err := engineFromContext(c, h.Registry)
	if err != nil {
		return err
	}

	if err := engine.SetMode(c.Request().Context(), mode); err != nil {
		return serverError(c)
	}

	publish(h.Notifier, playerID, notifications.EventModeChanged, map[string]interface{}{"mode": mode})
	return h.respond(c, engine, mode)
}

// Levels возвращает таблицу уровней режима.
func (h *ProgressHandler) Levels(c echo.Context) error {
	mode, err := models.ParseMode(c.Param("mode"))
	if err != nil {
		return badRequest(c, "invalid mode")
	}

	table, ok := h.Registry.Tables()[mode]
	if !ok {
		return notFound(c, "level table not found")
	}

	return c.JSON(http.StatusOK, LevelsResponse{Mode: mode, Levels: table.Levels()})
}

func (h *ProgressHandler) respond(c echo.Context, engine *progression.Engine, mode models.Mode) error {
	dashboard, err := engine.Snapshot(mode, h.garden(mode))
	if err != nil {
		return serverError(c)
	}

	states := make(map[models.Mode]models.ProgressState, len(models.Modes))
	for _, m := range models.Modes {
		state, err := engine.State(m)
		if err != nil {
			return serverError(c)
		}
		states[m] = state
	}

	return c.JSON(http.StatusOK, ProgressResponse{
		ActiveMode: engine.Mode(),
		Dashboard:  dashboard,
		Modes:      states,
	})
}

func (h *ProgressHandler) garden(mode models.Mode) []string {
	return h.Registry.Policy().Themes[mode].Garden
}

// engineFromContext загружает движок текущего игрока.
func engineFromContext(c echo.Context, registry *progression.Registry) (*progression.Engine, uuid.UUID, error) {
	playerID, ok := auth.PlayerIDFromContext(c)
	if !ok {
		return nil, uuid.Nil, echo.NewHTTPError(http.StatusUnauthorized, "invalid credentials")
	}

	engine, err := registry.For(c.Request().Context(), playerID)
	if err != nil {
		slog.Error("load progression failed", slog.String("player_id", playerID.String()), slog.String("error", err.Error()))
		return nil, playerID, echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
	}
	return engine, playerID, nil
}

// award начисляет монеты в режиме и рассылает событие coins_earned.
func award(c echo.Context, engine *progression.Engine, notifier *notifications.Hub, playerID uuid.UUID, mode models.Mode, amount int64, source string) (models.ProgressState, error) {
	if amount == 0 {
		return engine.State(mode)
	}

	state, err := engine.EarnCoins(c.Request().Context(), mode, amount)
	if err != nil {
		slog.Error("earn coins failed",
			slog.String("player_id", playerID.String()),
			slog.String("source", source),
			slog.String("error", err.Error()),
		)
		return state, err
	}

	publish(notifier, playerID, notifications.EventCoinsEarned, map[string]interface{}{
		"mode":         mode,
		"amount":       amount,
		"source":       source,
		"coin_balance": state.CoinBalance,
	})
	return state, nil
}

func publish(hub *notifications.Hub, playerID uuid.UUID, eventType string, data interface{}) {
	if hub == nil {
		return
	}
	hub.Publish(playerID, notifications.Event{Type: eventType, Data: data})
}
