package handlers

import (
	"context"
	"log/slog"

	"github.com/getsentry/sentry-go"
	sentryecho "github.com/getsentry/sentry-go/echo"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"example.com/ecopulse/backend/internal/repository"
)

const (
	aiRequestAdvice        = "advice"
	aiRequestNews          = "news"
	aiRequestOrganizations = "organizations"
	aiRequestMissions      = "missions"
	aiRequestQuiz          = "quiz"
)

// AIRequestLogger сохраняет журнал обращений к модели.
type AIRequestLogger interface {
	LogRequest(ctx context.Context, log repository.AIRequestLog) error
}

// AIAudit записывает каждое обращение к модели в журнал, а сбои еще и в Sentry.
type AIAudit struct {
	Repo     AIRequestLogger
	Provider string
	Model    string
}

// NewAIAudit создает журнал AI-запросов.
func NewAIAudit(repo AIRequestLogger, provider, model string) *AIAudit {
	return &AIAudit{Repo: repo, Provider: provider, Model: model}
}

// Record сохраняет лог AI-запроса. Сбой записи журнала не влияет на ответ игроку.
func (a *AIAudit) Record(c echo.Context, playerID uuid.UUID, requestType string, prompt string, requestPayload, responsePayload []byte, raw []byte, err error) {
	if a == nil {
		return
	}

	if err != nil {
		slog.Warn("ai fallback used",
			slog.String("request_type", requestType),
			slog.String("player_id", playerID.String()),
			slog.String("error", err.Error()),
		)
		captureAIError(c, playerID, requestType, a.Provider, err)
	}

	if a.Repo == nil {
		return
	}

	log := repository.AIRequestLog{
		PlayerID:        playerID,
		RequestType:     requestType,
		Provider:        a.Provider,
		Model:           a.Model,
		Prompt:          prompt,
		RequestPayload:  requestPayload,
		ResponsePayload: responsePayload,
		RawResponse:     string(raw),
		Success:         err == nil,
	}
	if err != nil {
		errMsg := err.Error()
		log.ErrorMessage = &errMsg
	}

	if logErr := a.Repo.LogRequest(c.Request().Context(), log); logErr != nil {
		slog.Error("ai request log failed", slog.String("error", logErr.Error()))
	}
}

func captureAIError(c echo.Context, playerID uuid.UUID, requestType, provider string, err error) {
	hub := sentryecho.GetHubFromContext(c)
	if hub == nil {
		return
	}

	hub.WithScope(func(scope *sentry.Scope) {
		scope.SetUser(sentry.User{ID: playerID.String()})
		scope.SetTag("ai.request_type", requestType)
		scope.SetTag("ai.provider", provider)
		hub.CaptureException(err)
	})
}
