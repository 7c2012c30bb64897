package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"

	"example.com/ecopulse/backend/internal/config"
	"example.com/ecopulse/backend/internal/database"
	"example.com/ecopulse/backend/internal/progression"
	"example.com/ecopulse/backend/internal/server"
)

const sentryFlushTimeout = 2 * time.Second

func main() {
	ensureEnvFile()

	if err := run(); err != nil {
		reportStartupFailure(err)
		os.Exit(1)
	}
	sentry.Flush(sentryFlushTimeout)
}

// reportStartupFailure пишет ошибку в лог и Sentry и дожидается отправки до выхода процесса.
func reportStartupFailure(err error) {
	slog.Error("server stopped", slog.String("error", err.Error()))
	sentry.CaptureException(err)
	sentry.Flush(sentryFlushTimeout)
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	if cfg.Sentry.DSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.Sentry.DSN,
			Environment:      cfg.Sentry.Environment,
			EnableTracing:    cfg.Sentry.SampleRate > 0,
			TracesSampleRate: cfg.Sentry.SampleRate,
			BeforeSend:       scrubHeaders,
		}); err != nil {
			logger.Warn("sentry init failed", slog.String("error", err.Error()))
		}
	}

	policy, tables, err := loadEconomy(cfg.Economy)
	if err != nil {
		return fmt.Errorf("load economy policy: %w", err)
	}

	ctx := context.Background()

	db, err := database.Open(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer db.Close()

	if cfg.Database.MigrationsEnabled {
		if err := database.Migrate(ctx, db); err != nil {
			return fmt.Errorf("run migrations: %w", err)
		}
	}

	e, err := server.New(ctx, cfg, logger, db, policy, tables)
	if err != nil {
		return fmt.Errorf("build server: %w", err)
	}
	httpServer := server.NewHTTPServer(cfg.Server, e)

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("http server started", slog.String("addr", httpServer.Addr), slog.String("ai_provider", cfg.AI.Provider))
		if err := e.StartServer(httpServer); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	shutdownSignal := make(chan os.Signal, 1)
	signal.Notify(shutdownSignal, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-shutdownSignal:
	case err := <-serveErr:
		return fmt.Errorf("http server: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", slog.String("error", err.Error()))
	}
	return nil
}

// scrubHeaders убирает учетные данные из запроса перед отправкой события.
func scrubHeaders(event *sentry.Event, _ *sentry.EventHint) *sentry.Event {
	if event.Request != nil {
		delete(event.Request.Headers, "Authorization")
		delete(event.Request.Headers, "Cookie")
	}
	return event
}

// loadEconomy читает политику экономики. Значения из окружения применяются, только если YAML не задан.
func loadEconomy(cfg config.EconomyConfig) (progression.Policy, progression.Tables, error) {
	policy, err := progression.LoadPolicy(cfg.PolicyFile)
	if err != nil {
		return progression.Policy{}, progression.Tables{}, err
	}
	if cfg.PolicyFile == "" {
		policy.StartingBalance = cfg.StartingBalance
		policy.LevelCount = cfg.LevelCount
		if err := policy.Validate(); err != nil {
			return progression.Policy{}, progression.Tables{}, err
		}
	}

	tables, err := progression.GenerateTables(policy)
	if err != nil {
		return progression.Policy{}, progression.Tables{}, err
	}
	return policy, tables, nil
}

func ensureEnvFile() {
	if os.Getenv("ENV_FILE") != "" {
		return
	}

	if _, err := os.Stat(".env"); err == nil {
		_ = os.Setenv("ENV_FILE", ".env")
		return
	}

	if _, err := os.Stat("../.env"); err == nil {
		_ = os.Setenv("ENV_FILE", "../.env")
	}
}
