package handlers

import (
	"context"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"example.com/ecopulse/backend/internal/models"
	"example.com/ecopulse/backend/internal/notifications"
)

// TestProgressGetDefaults проверяет панель нового игрока.
func TestProgressGetDefaults(t *testing.T) {
	e := newTestEcho()
	handler := NewProgressHandler(newTestRegistry(t), nil)

	c, rec := newRequest(e, http.MethodGet, "/api/v1/progress", "", uuid.New())
	require.NoError(t, handler.Get(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp ProgressResponse
	decodeBody(t, rec, &resp)
	assert.Equal(t, models.ModePro, resp.ActiveMode)
	assert.Equal(t, 1, resp.Dashboard.Current.Rank)
	assert.Equal(t, int64(0), resp.Dashboard.CoinBalance)
	assert.Len(t, resp.Modes, 2)
}

// TestProgressRequiresPlayer проверяет ответ без идентификатора игрока.
func TestProgressRequiresPlayer(t *testing.T) {
	e := newTestEcho()
	handler := NewProgressHandler(newTestRegistry(t), nil)

	c, _ := newRequest(e, http.MethodGet, "/api/v1/progress", "", uuid.Nil)
	err := handler.Get(c)
	assert.Equal(t, http.StatusUnauthorized, httpStatus(t, err))
}

// TestProgressLevelUp проверяет покупку ранга и событие level_up.
func TestProgressLevelUp(t *testing.T) {
	e := newTestEcho()
	registry := newTestRegistry(t)
	hub := notifications.NewHub()
	handler := NewProgressHandler(registry, hub)
	playerID := uuid.New()

	events, unsubscribe := hub.Subscribe(playerID)
	defer unsubscribe()

	engine, err := registry.For(context.Background(), playerID)
	require.NoError(t, err)
	_, err = engine.EarnCoins(context.Background(), models.ModePro, 1000)
	require.NoError(t, err)

	c, rec := newRequest(e, http.MethodPost, "/api/v1/progress/pro/level-up", "", playerID)
	c.SetParamNames("mode")
	c.SetParamValues("pro")
	require.NoError(t, handler.LevelUp(c))

	var resp LevelUpResponse
	decodeBody(t, rec, &resp)
	assert.True(t, resp.LeveledUp)
	assert.Equal(t, 2, resp.Dashboard.Current.Rank)

	event := <-events
	assert.Equal(t, notifications.EventLevelUp, event.Type)
}

// TestProgressLevelUpInsufficientFunds проверяет, что нехватка монет не ошибка.
func TestProgressLevelUpInsufficientFunds(t *testing.T) {
	e := newTestEcho()
	handler := NewProgressHandler(newTestRegistry(t), nil)

	c, rec := newRequest(e, http.MethodPost, "/api/v1/progress/kid/level-up", "", uuid.New())
	c.SetParamNames("mode")
	c.SetParamValues("kid")
	require.NoError(t, handler.LevelUp(c))

	var resp LevelUpResponse
	decodeBody(t, rec, &resp)
	assert.False(t, resp.LeveledUp)
	assert.Equal(t, 1, resp.Dashboard.Current.Rank)
	assert.Positive(t, resp.Dashboard.Shortfall)
}

// TestProgressSetMode проверяет переключение режима и валидацию.
func TestProgressSetMode(t *testing.T) {
	e := newTestEcho()
	handler := NewProgressHandler(newTestRegistry(t), nil)
	playerID := uuid.New()

	c, rec := newRequest(e, http.MethodPut, "/api/v1/progress/mode", `{"mode":"kid"}`, playerID)
	require.NoError(t, handler.SetMode(c))

	var resp ProgressResponse
	decodeBody(t, rec, &resp)
	assert.Equal(t, models.ModeKid, resp.ActiveMode)
	assert.Equal(t, models.ModeKid, resp.Dashboard.Mode)
	assert.NotEmpty(t, resp.Dashboard.Garden)

	c, rec = newRequest(e, http.MethodPut, "/api/v1/progress/mode", `{"mode":"adult"}`, playerID)
	require.NoError(t, handler.SetMode(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// TestProgressLevels проверяет выдачу таблицы уровней.
func TestProgressLevels(t *testing.T) {
	e := newTestEcho()
	handler := NewProgressHandler(newTestRegistry(t), nil)

	c, rec := newRequest(e, http.MethodGet, "/api/v1/levels/pro", "", uuid.New())
	c.SetParamNames("mode")
	c.SetParamValues("pro")
	require.NoError(t, handler.Levels(c))

	var resp LevelsResponse
	decodeBody(t, rec, &resp)
	assert.Len(t, resp.Levels, 100)
	assert.Equal(t, int64(0), resp.Levels[0].Cost)

	c, rec = newRequest(e, http.MethodGet, "/api/v1/levels/adult", "", uuid.New())
	c.SetParamNames("mode")
	c.SetParamValues("adult")
	require.NoError(t, handler.Levels(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
