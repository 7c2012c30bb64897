package handlers

import (
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"example.com/ecopulse/backend/internal/ai"
	"example.com/ecopulse/backend/internal/notifications"
	"example.com/ecopulse/backend/internal/session"
)

func newAdvisorHandler(t *testing.T, client ai.Client, hub *notifications.Hub) *AdvisorHandler {
	t.Helper()
	return NewAdvisorHandler(
		ai.NewService(client, time.Minute),
		newTestRegistry(t),
		ai.NewSequencer(),
		session.NewMemoryStore[Transcript](time.Hour),
		nil,
		hub,
	)
}

// TestAdvisorMessagesGreeting проверяет приветствие новой переписки.
func TestAdvisorMessagesGreeting(t *testing.T) {
	e := newTestEcho()
	handler := newAdvisorHandler(t, &scriptedClient{}, nil)

	c, rec := newRequest(e, http.MethodGet, "/api/v1/advisor/messages", "", uuid.New())
	require.NoError(t, handler.Messages(c))

	var transcript Transcript
	decodeBody(t, rec, &transcript)
	require.Len(t, transcript.Messages, 1)
	assert.Equal(t, roleModel, transcript.Messages[0].Role)
	assert.Contains(t, transcript.Messages[0].Text, "EcoPulse")
}

// TestAdvisorSendAppendsReply проверяет, что вопрос и ответ попадают в переписку.
func TestAdvisorSendAppendsReply(t *testing.T) {
	e := newTestEcho()
	hub := notifications.NewHub()
	handler := newAdvisorHandler(t, &scriptedClient{text: "Rinse it and recycle it."}, hub)
	playerID := uuid.New()

	events, unsubscribe := hub.Subscribe(playerID)
	defer unsubscribe()

	c, rec := newRequest(e, http.MethodPost, "/api/v1/advisor/messages", `{"text":"Is glass recyclable?"}`, playerID)
	require.NoError(t, handler.Send(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp AdviceResponse
	decodeBody(t, rec, &resp)
	assert.Equal(t, "Rinse it and recycle it.", resp.Reply.Text)
	assert.False(t, resp.Stale)
	assert.Equal(t, notifications.EventAdviceReady, (<-events).Type)

	c, rec = newRequest(e, http.MethodGet, "/api/v1/advisor/messages", "", playerID)
	require.NoError(t, handler.Messages(c))
	var transcript Transcript
	decodeBody(t, rec, &transcript)
	require.Len(t, transcript.Messages, 3)
	assert.Equal(t, roleUser, transcript.Messages[1].Role)
	assert.Equal(t, roleModel, transcript.Messages[2].Role)
}

// TestAdvisorSendFallback проверяет извинение при сбое модели.
func TestAdvisorSendFallback(t *testing.T) {
	e := newTestEcho()
	handler := newAdvisorHandler(t, &scriptedClient{err: errors.New("upstream down")}, nil)

	c, rec := newRequest(e, http.MethodPost, "/api/v1/advisor/messages", `{"text":"hello"}`, uuid.New())
	require.NoError(t, handler.Send(c))

	var resp AdviceResponse
	decodeBody(t, rec, &resp)
	assert.True(t, resp.Reply.Fallback)
	assert.Equal(t, ai.FallbackAdvicePro, resp.Reply.Text)
}

// TestAdvisorSendRequiresInput проверяет пустой запрос.
func TestAdvisorSendRequiresInput(t *testing.T) {
	e := newTestEcho()
	client := &scriptedClient{}
	handler := newAdvisorHandler(t, client, nil)

	c, rec := newRequest(e, http.MethodPost, "/api/v1/advisor/messages", `{"text":"   "}`, uuid.New())
	require.NoError(t, handler.Send(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, client.calls)
}

// TestDecodeImage проверяет разбор data URL и голого base64.
func TestDecodeImage(t *testing.T) {
	image, err := decodeImage("data:image/png;base64,aGVsbG8=")
	require.NoError(t, err)
	assert.Equal(t, "image/png", image.MIMEType)
	assert.Equal(t, []byte("hello"), image.Data)

	image, err = decodeImage("aGVsbG8=")
	require.NoError(t, err)
	assert.Equal(t, defaultImageMIMEType, image.MIMEType)

	image, err = decodeImage("")
	require.NoError(t, err)
	assert.Nil(t, image)

	_, err = decodeImage("data:text/plain;base64,aGVsbG8=")
	assert.Error(t, err)

	_, err = decodeImage("data:image/png;base64,@@@")
	assert.Error(t, err)
}
