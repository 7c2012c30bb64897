package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	sentryecho "github.com/getsentry/sentry-go/echo"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"

	"example.com/ecopulse/backend/internal/ai"
	"example.com/ecopulse/backend/internal/auth"
	"example.com/ecopulse/backend/internal/config"
	"example.com/ecopulse/backend/internal/handlers"
	"example.com/ecopulse/backend/internal/missions"
	"example.com/ecopulse/backend/internal/notifications"
	"example.com/ecopulse/backend/internal/progression"
	"example.com/ecopulse/backend/internal/quiz"
	"example.com/ecopulse/backend/internal/repository"
	"example.com/ecopulse/backend/internal/session"
	"example.com/ecopulse/backend/internal/store"
)

const (
	transcriptTTL   = 24 * time.Hour
	boardTTL        = 24 * time.Hour
	organizationTTL = 24 * time.Hour
	quizTTL         = 2 * time.Hour
	gameTTL         = 2 * time.Hour
	sentryTimeout   = 2 * time.Second
)

// New собирает HTTP-сервер Echo с роутами и зависимостями.
func New(ctx context.Context, cfg config.Config, logger *slog.Logger, db *pgxpool.Pool, policy progression.Policy, tables progression.Tables) (*echo.Echo, error) {
	if logger == nil {
		logger = slog.Default()
	}

	aiClient, err := NewAIClient(ctx, cfg.AI)
	if err != nil {
		return nil, err
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = NewValidator()
	e.HTTPErrorHandler = errorHandler(logger)

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(sentryecho.New(sentryecho.Options{Repanic: true, Timeout: sentryTimeout}))
	e.Use(requestLogger(logger))

	tokenManager := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer, cfg.Auth.AccessTokenTTL, cfg.Auth.RefreshTokenTTL)
	playerRepo := repository.NewPlayerRepository(db)
	tokenRepo := repository.NewRefreshTokenRepository(db)
	aiRepo := repository.NewAIRepository(db)
	adminRepo := repository.NewAdminRepository(db)
	notificationHub := notifications.NewHub()

	registry := progression.NewRegistry(store.NewPostgres(db), policy, tables, logger)
	aiService := ai.NewService(aiClient, cfg.AI.NewsCacheTTL).WithTimeout(cfg.AI.Timeout)
	sequencer := ai.NewSequencer()
	audit := handlers.NewAIAudit(aiRepo, cfg.AI.Provider, cfg.AI.Model)

	h := routeHandlers{
		auth:          handlers.NewAuthHandler(playerRepo, tokenRepo, tokenManager),
		progress:      handlers.NewProgressHandler(registry, notificationHub),
		profile:       handlers.NewProfileHandler(registry),
		advisor:       handlers.NewAdvisorHandler(aiService, registry, sequencer, session.NewMemoryStore[handlers.Transcript](transcriptTTL), audit, notificationHub),
		discover:      handlers.NewDiscoverHandler(aiService, registry, sequencer, session.NewMemoryStore[handlers.OrganizationResult](organizationTTL), audit, notificationHub),
		missions:      handlers.NewMissionHandler(aiService, registry, sequencer, session.NewMemoryStore[missions.Board](boardTTL), audit, notificationHub),
		quiz:          handlers.NewQuizHandler(aiService, registry, session.NewMemoryStore[quiz.Session](quizTTL), audit, notificationHub),
		games:         handlers.NewGameHandler(registry, session.NewMemoryStore[handlers.GameState](gameTTL), notificationHub),
		exports:       handlers.NewExportHandler(registry),
		notifications: handlers.NewNotificationHandler(notificationHub),
		admin:         handlers.NewAdminHandler(adminRepo),
	}

	registerRoutes(
		e,
		h,
		auth.JWTMiddleware(tokenManager),
		handlers.AdminMiddleware(playerRepo, cfg.Admin.Emails),
		authRateLimiter(cfg.Auth),
		aiRateLimiter(cfg.AI),
	)

	return e, nil
}

// NewAIClient выбирает клиента модели по AI_PROVIDER.
func NewAIClient(ctx context.Context, cfg config.AIConfig) (ai.Client, error) {
	switch strings.ToLower(cfg.Provider) {
	case "gemini":
		client, err := ai.NewGeminiClient(ctx, cfg.APIKey, cfg.Model, cfg.MaxOutputTokens)
		if err != nil {
			return nil, err
		}
		return client, nil
	case "openai":
		client, err := ai.NewOpenAIClient(cfg.APIKey, cfg.BaseURL, cfg.Model, cfg.MaxOutputTokens)
		if err != nil {
			return nil, err
		}
		return client, nil
	case "groq":
		return ai.NewGroqClient(cfg.APIKey, cfg.BaseURL, cfg.Model, cfg.Timeout, cfg.MaxOutputTokens), nil
	default:
		return nil, fmt.Errorf("unsupported ai provider %q", cfg.Provider)
	}
}

// NewHTTPServer создает net/http сервер с заданными таймаутами.
func NewHTTPServer(cfg config.ServerConfig, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      handler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
}

// errorHandler отдает ошибки в том же формате {"error": ...}, что и обработчики.
func errorHandler(logger *slog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status := http.StatusInternalServerError
		message := "internal server error"

		var httpErr *echo.HTTPError
		if errors.As(err, &httpErr) {
			status = httpErr.Code
			if msg, ok := httpErr.Message.(string); ok {
				message = msg
			} else {
				message = http.StatusText(status)
			}
		} else {
			logger.Error("unhandled error", slog.String("uri", c.Request().RequestURI), slog.String("error", err.Error()))
		}

		var writeErr error
		if c.Request().Method == http.MethodHead {
			writeErr = c.NoContent(status)
		} else {
			writeErr = c.JSON(status, map[string]string{"error": message})
		}
		if writeErr != nil {
			logger.Warn("write error response failed", slog.String("error", writeErr.Error()))
		}
	}
}

func requestLogger(logger *slog.Logger) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:       true,
		LogStatus:    true,
		LogMethod:    true,
		LogLatency:   true,
		LogRemoteIP:  true,
		LogRequestID: true,
		LogError:     true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			attrs := []slog.Attr{
				slog.String("method", v.Method),
				slog.String("uri", v.URI),
				slog.Int("status", v.Status),
				slog.String("remote_ip", v.RemoteIP),
				slog.String("request_id", v.RequestID),
				slog.Duration("latency", v.Latency),
			}

			if playerID, ok := auth.PlayerIDFromContext(c); ok {
				attrs = append(attrs, slog.String("player_id", playerID.String()))
			}
			if v.Error != nil {
				attrs = append(attrs, slog.String("error", v.Error.Error()))
			}

			msg := "request completed"
			if v.Status >= http.StatusInternalServerError {
				logger.LogAttrs(c.Request().Context(), slog.LevelError, msg, attrs...)
				return nil
			}

			logger.LogAttrs(c.Request().Context(), slog.LevelInfo, msg, attrs...)
			return nil
		},
	})
}

func authRateLimiter(cfg config.AuthConfig) echo.MiddlewareFunc {
	return rateLimiter(cfg.RateLimitPerMinute, cfg.RateLimitBurst)
}

func aiRateLimiter(cfg config.AIConfig) echo.MiddlewareFunc {
	return rateLimiter(cfg.RateLimitPerMinute, cfg.RateLimitBurst)
}

func rateLimiter(perMinute, burst int) echo.MiddlewareFunc {
	limit := rate.Limit(float64(perMinute) / 60.0)
	store := middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
		Rate:      limit,
		Burst:     burst,
		ExpiresIn: time.Minute,
	})

	return middleware.RateLimiter(store)
}
