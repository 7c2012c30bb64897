package handlers

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"example.com/ecopulse/backend/internal/ai"
	"example.com/ecopulse/backend/internal/auth"
	"example.com/ecopulse/backend/internal/progression"
	"example.com/ecopulse/backend/internal/store"
)

type testValidator struct {
	validate *validator.Validate
}

func (v *testValidator) Validate(i interface{}) error {
	return v.validate.Struct(i)
}

func newTestEcho() *echo.Echo {
	e := echo.New()
	e.Validator = &testValidator{validate: validator.New()}
	return e
}

func newTestRegistry(t *testing.T) *progression.Registry {
	t.Helper()

	policy := progression.DefaultPolicy()
	tables, err := progression.GenerateTables(policy)
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return progression.NewRegistry(store.NewMemory(), policy, tables, logger)
}

// newRequest готовит контекст запроса от имени игрока.
func newRequest(e *echo.Echo, method, target, body string, playerID uuid.UUID) (echo.Context, *httptest.ResponseRecorder) {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if playerID != uuid.Nil {
		c.Set(auth.ContextPlayerIDKey, playerID)
	}
	return c, rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func httpStatus(t *testing.T, err error) int {
	t.Helper()
	httpErr, ok := err.(*echo.HTTPError)
	require.True(t, ok, "expected *echo.HTTPError, got %v", err)
	return httpErr.Code
}

// scriptedClient отвечает заранее заданным текстом и запоминает число вызовов.
type scriptedClient struct {
	text  string
	err   error
	calls int
}

func (s *scriptedClient) Generate(_ context.Context, _ ai.Request) (ai.Response, error) {
	s.calls++
	if s.err != nil {
		return ai.Response{}, s.err
	}
	return ai.Response{Text: s.text, Raw: []byte(s.text)}, nil
}
