package handlers

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"example.com/ecopulse/backend/internal/ai"
	"example.com/ecopulse/backend/internal/notifications"
	"example.com/ecopulse/backend/internal/session"
)

func newDiscoverHandler(t *testing.T, client ai.Client, hub *notifications.Hub) *DiscoverHandler {
	t.Helper()
	return NewDiscoverHandler(
		ai.NewService(client, time.Minute),
		newTestRegistry(t),
		ai.NewSequencer(),
		session.NewMemoryStore[OrganizationResult](time.Hour),
		nil,
		hub,
	)
}

// overtakingClient отвечает по очереди заранее заданными текстами.
// Перед первым ответом вызывает overtake: так второй поиск завершается раньше первого.
type overtakingClient struct {
	replies  []string
	prompts  []string
	overtake func()
}

func (c *overtakingClient) Generate(_ context.Context, req ai.Request) (ai.Response, error) {
	c.prompts = append(c.prompts, req.Prompt)
	text := c.replies[len(c.prompts)-1]
	if overtake := c.overtake; overtake != nil {
		c.overtake = nil
		overtake()
	}
	return ai.Response{Text: text, Raw: []byte(text)}, nil
}

func searchOrganizations(t *testing.T, e *echo.Echo, handler *DiscoverHandler, playerID uuid.UUID, body string) OrganizationSearchResponse {
	t.Helper()
	c, rec := newRequest(e, http.MethodPost, "/api/v1/organizations/search", body, playerID)
	require.NoError(t, handler.SearchOrganizations(c))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp OrganizationSearchResponse
	decodeBody(t, rec, &resp)
	return resp
}

func latestOrganizations(t *testing.T, e *echo.Echo, handler *DiscoverHandler, playerID uuid.UUID) OrganizationResult {
	t.Helper()
	c, rec := newRequest(e, http.MethodGet, "/api/v1/organizations/latest", "", playerID)
	require.NoError(t, handler.LatestOrganizations(c))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var result OrganizationResult
	decodeBody(t, rec, &result)
	return result
}

// TestDiscoverLatestBeforeSearch проверяет 404 до первого поиска.
func TestDiscoverLatestBeforeSearch(t *testing.T) {
	e := newTestEcho()
	handler := newDiscoverHandler(t, &scriptedClient{}, nil)

	c, rec := newRequest(e, http.MethodGet, "/api/v1/organizations/latest", "", uuid.New())
	require.NoError(t, handler.LatestOrganizations(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// TestDiscoverSearchAppliesResult проверяет, что выдача поиска становится последней.
func TestDiscoverSearchAppliesResult(t *testing.T) {
	e := newTestEcho()
	hub := notifications.NewHub()
	handler := newDiscoverHandler(t, &scriptedClient{text: "The Ocean Cleanup removes plastic."}, hub)
	playerID := uuid.New()

	events, unsubscribe := hub.Subscribe(playerID)
	defer unsubscribe()

	resp := searchOrganizations(t, e, handler, playerID, `{"query":" river cleanup "}`)
	assert.Equal(t, "river cleanup", resp.Query)
	assert.Equal(t, uint64(1), resp.Seq)
	assert.False(t, resp.Stale)
	assert.Equal(t, "The Ocean Cleanup removes plastic.", resp.Reply.Text)
	assert.Equal(t, notifications.EventOrganizationsReady, (<-events).Type)

	latest := latestOrganizations(t, e, handler, playerID)
	assert.Equal(t, "river cleanup", latest.Query)
	assert.Equal(t, uint64(1), latest.Seq)
	assert.Equal(t, resp.Reply.Text, latest.Reply.Text)
}

// TestDiscoverStaleSearchIsNotApplied проверяет, что ответ обогнанного поиска помечается устаревшим
// и не заменяет выдачу более нового поиска.
func TestDiscoverStaleSearchIsNotApplied(t *testing.T) {
	e := newTestEcho()
	client := &overtakingClient{replies: []string{"Old forest results.", "Fresh ocean results."}}
	handler := newDiscoverHandler(t, client, nil)
	playerID := uuid.New()

	var newer OrganizationSearchResponse
	client.overtake = func() {
		newer = searchOrganizations(t, e, handler, playerID, `{"category":"ocean"}`)
	}

	older := searchOrganizations(t, e, handler, playerID, `{"category":"forest"}`)

	assert.Equal(t, uint64(2), newer.Seq)
	assert.False(t, newer.Stale)
	assert.Equal(t, "Ocean Health", newer.Query)

	assert.Equal(t, uint64(1), older.Seq)
	assert.True(t, older.Stale)
	assert.Equal(t, "Reforestation", older.Query)
	assert.Equal(t, "Old forest results.", older.Reply.Text)

	latest := latestOrganizations(t, e, handler, playerID)
	assert.Equal(t, "Ocean Health", latest.Query)
	assert.Equal(t, uint64(2), latest.Seq)
	assert.Equal(t, "Fresh ocean results.", latest.Reply.Text)
	require.Len(t, client.prompts, 2)
}

// TestDiscoverSearchValidation проверяет обязательность запроса и список категорий.
func TestDiscoverSearchValidation(t *testing.T) {
	e := newTestEcho()
	client := &scriptedClient{text: "unused"}
	handler := newDiscoverHandler(t, client, nil)

	for _, body := range []string{`{}`, `{"query":"   "}`, `{"category":"desert"}`} {
		c, rec := newRequest(e, http.MethodPost, "/api/v1/organizations/search", body, uuid.New())
		require.NoError(t, handler.SearchOrganizations(c))
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
	}
	assert.Zero(t, client.calls)
}

// TestDiscoverSearchFallback проверяет запасной текст при сбое модели без ошибки клиенту.
func TestDiscoverSearchFallback(t *testing.T) {
	e := newTestEcho()
	handler := newDiscoverHandler(t, &scriptedClient{err: context.DeadlineExceeded}, nil)
	playerID := uuid.New()

	resp := searchOrganizations(t, e, handler, playerID, `{"query":"compost"}`)
	assert.True(t, resp.Reply.Fallback)
	assert.Equal(t, ai.FallbackOrganization, resp.Reply.Text)
	assert.False(t, resp.Stale)
}

// TestDiscoverNews проверяет дайджест новостей и разбор параметра refresh.
func TestDiscoverNews(t *testing.T) {
	e := newTestEcho()
	client := &scriptedClient{text: "Solar capacity doubled this year."}
	handler := newDiscoverHandler(t, client, nil)
	playerID := uuid.New()

	for i := 0; i < 2; i++ {
		c, rec := newRequest(e, http.MethodGet, "/api/v1/news", "", playerID)
		require.NoError(t, handler.News(c))
		var resp NewsResponse
		decodeBody(t, rec, &resp)
		assert.Equal(t, "Solar capacity doubled this year.", resp.Reply.Text)
	}
	assert.Equal(t, 1, client.calls)

	c, rec := newRequest(e, http.MethodGet, "/api/v1/news?refresh=maybe", "", playerID)
	require.NoError(t, handler.News(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
