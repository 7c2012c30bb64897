package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// maxRawResponseBytes ограничивает сырой ответ модели в журнале.
const maxRawResponseBytes = 64 << 10

// AIRepository ведет журнал обращений к модели.
type AIRepository struct {
	db *pgxpool.Pool
}

// AIRequestLog описывает одно обращение к модели: советник, новости, поиск организаций, миссии или викторину.
type AIRequestLog struct {
	PlayerID        uuid.UUID
	RequestType     string
	Provider        string
	Model           string
	Prompt          string
	RequestPayload  []byte
	ResponsePayload []byte
	RawResponse     string
	Success         bool
	ErrorMessage    *string
}

// NewAIRepository создает репозиторий журнала AI-запросов.
func NewAIRepository(db *pgxpool.Pool) *AIRepository {
	return &AIRepository{db: db}
}

// LogRequest сохраняет запись журнала. Запросы без игрока пишутся с пустым player_id.
func (r *AIRepository) LogRequest(ctx context.Context, log AIRequestLog) error {
	var playerID *uuid.UUID
	if log.PlayerID != uuid.Nil {
		playerID = &log.PlayerID
	}

	raw := log.RawResponse
	if len(raw) > maxRawResponseBytes {
		raw = strings.ToValidUTF8(raw[:maxRawResponseBytes], "")
	}

	_, err := r.db.Exec(ctx,
		`INSERT INTO ai_requests
		 (player_id, request_type, provider, model, prompt, request_payload, response_payload, raw_response, success, error_message)
		 VALUES ($1, $2, $3, $4, $5, $6::jsonb, $7::jsonb, $8, $9, $10)`,
		playerID,
		log.RequestType,
		log.Provider,
		log.Model,
		log.Prompt,
		jsonOrNil(log.RequestPayload),
		jsonOrNil(log.ResponsePayload),
		raw,
		log.Success,
		log.ErrorMessage,
	)
	if err != nil {
		return fmt.Errorf("log ai request %s: %w", log.RequestType, err)
	}
	return nil
}

func jsonOrNil(payload []byte) *string {
	if len(payload) == 0 {
		return nil
	}
	value := string(payload)
	return &value
}
