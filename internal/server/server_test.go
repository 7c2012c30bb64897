package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"example.com/ecopulse/backend/internal/auth"
	"example.com/ecopulse/backend/internal/config"
	"example.com/ecopulse/backend/internal/handlers"
	"example.com/ecopulse/backend/internal/progression"
)

func testConfig() config.Config {
	return config.Config{
		Auth: config.AuthConfig{
			JWTSecret:          "secret",
			JWTIssuer:          "ecopulse",
			AccessTokenTTL:     time.Minute,
			RefreshTokenTTL:    time.Hour,
			RateLimitPerMinute: 600,
			RateLimitBurst:     10,
		},
		AI: config.AIConfig{
			Provider:           "groq",
			APIKey:             "key",
			BaseURL:            "http://127.0.0.1:1",
			Model:              "test",
			Timeout:            time.Second,
			RateLimitPerMinute: 600,
			RateLimitBurst:     10,
			NewsCacheTTL:       time.Minute,
		},
	}
}

func newTestServer(t *testing.T) *echo.Echo {
	t.Helper()

	policy := progression.DefaultPolicy()
	tables, err := progression.GenerateTables(policy)
	if err != nil {
		t.Fatalf("generate tables: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	e, err := New(context.Background(), testConfig(), logger, nil, policy, tables)
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	return e
}

// TestHealthRoutes проверяет health на корне и под /api/v1.
func TestHealthRoutes(t *testing.T) {
	e := newTestServer(t)

	for _, path := range []string{"/health", "/api/v1/health"} {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d", path, rec.Code)
		}
	}
}

// TestUnauthorizedUsesErrorEnvelope проверяет формат ошибки middleware.
func TestUnauthorizedUsesErrorEnvelope(t *testing.T) {
	e := newTestServer(t)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/progress", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}

	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["error"] != "missing authorization header" {
		t.Fatalf("unexpected error body %v", body)
	}
}

// TestLearningWithQueryToken проверяет доступ по токену из query для GET.
func TestLearningWithQueryToken(t *testing.T) {
	e := newTestServer(t)
	cfg := testConfig()
	manager := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer, cfg.Auth.AccessTokenTTL, cfg.Auth.RefreshTokenTTL)
	pair, err := manager.NewTokenPair(uuid.New(), true, uuid.New())
	if err != nil {
		t.Fatalf("token: %v", err)
	}

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/learning?access_token="+pair.AccessToken, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp handlers.LearningResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Topics) != 4 || len(resp.Articles) != 3 {
		t.Fatalf("unexpected catalog sizes: %d topics, %d articles", len(resp.Topics), len(resp.Articles))
	}
}

// TestErrorHandlerHidesInternalErrors проверяет, что обычные ошибки не раскрываются клиенту.
func TestErrorHandlerHidesInternalErrors(t *testing.T) {
	e := echo.New()
	e.HTTPErrorHandler = errorHandler(slog.New(slog.NewTextHandler(io.Discard, nil)))
	e.GET("/boom", func(c echo.Context) error {
		return errors.New("pool exhausted")
	})

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if want := `{"error":"internal server error"}`; rec.Body.String() != want+"\n" {
		t.Fatalf("expected %s, got %s", want, rec.Body.String())
	}
}

// TestNewAIClientRejectsUnknownProvider проверяет выбор провайдера.
func TestNewAIClientRejectsUnknownProvider(t *testing.T) {
	if _, err := NewAIClient(context.Background(), config.AIConfig{Provider: "claude"}); err == nil {
		t.Fatal("expected error for unknown provider")
	}
	if _, err := NewAIClient(context.Background(), config.AIConfig{Provider: "openai"}); err == nil {
		t.Fatal("expected error for missing openai key")
	}
}
