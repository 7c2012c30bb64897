package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type AdminRepository struct {
	db *pgxpool.Pool
}

type AdminPlayer struct {
	ID          uuid.UUID
	Email       *string
	DisplayName *string
	IsGuest     bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// AIRequestFilter сужает журнал AI-запросов: по игроку, по исходу и по экрану-источнику.
type AIRequestFilter struct {
	PlayerID    *uuid.UUID
	Success     *bool
	RequestType *string
}

// AIRequestRecord — строка журнала без payload: для разбора сбоев хватает начала промпта и ошибки.
type AIRequestRecord struct {
	ID            uuid.UUID
	PlayerID      *uuid.UUID
	RequestType   string
	Provider      string
	Model         string
	PromptExcerpt string
	Success       bool
	ErrorMessage  *string
	CreatedAt     time.Time
}

// promptExcerptRunes — длина начала промпта в листинге.
const promptExcerptRunes = 160

type DailyCount struct {
	Day   time.Time
	Count int
}

// TypeCount — число обращений к модели и запасных ответов по одному экрану.
type TypeCount struct {
	RequestType string
	Requests    int
	Fallbacks   int
}

type UsageStats struct {
	Players          int
	Guests           int
	ActivePlayers    int
	AIRequests       int
	AISuccess        int
	AIFail           int
	AIRequestsByDay  []DailyCount
	AIRequestsByType []TypeCount
}

// NewAdminRepository создает репозиторий для админских запросов.
func NewAdminRepository(db *pgxpool.Pool) *AdminRepository {
	return &AdminRepository{db: db}
}

// ListPlayers возвращает список игроков с пагинацией.
func (r *AdminRepository) ListPlayers(ctx context.Context, limit, offset int) ([]AdminPlayer, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, email, display_name, is_guest, created_at, updated_at
		 FROM players
		 ORDER BY created_at DESC
		 LIMIT $1 OFFSET $2`,
		limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	players := make([]AdminPlayer, 0)
	for rows.Next() {
		var player AdminPlayer
		if err := rows.Scan(&player.ID, &player.Email, &player.DisplayName, &player.IsGuest, &player.CreatedAt, &player.UpdatedAt); err != nil {
			return nil, err
		}
		players = append(players, player)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return players, nil
}

// CountPlayers возвращает общее количество игроков.
func (r *AdminRepository) CountPlayers(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM players`).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// ListAIRequests возвращает журнал AI-запросов, новые первыми.
func (r *AdminRepository) ListAIRequests(ctx context.Context, filter AIRequestFilter, limit, offset int) ([]AIRequestRecord, error) {
	where, args := buildAIRequestWhere(filter)

	limitParam := len(args) + 1
	offsetParam := len(args) + 2
	query := fmt.Sprintf(
		`SELECT id, player_id, request_type, provider, model, COALESCE(prompt, ''), success, error_message, created_at
		 FROM ai_requests%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		where, limitParam, offsetParam,
	)
	args = append(args, limit, offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list ai requests: %w", err)
	}
	defer rows.Close()

	requests := make([]AIRequestRecord, 0)
	for rows.Next() {
		var record AIRequestRecord
		var prompt string
		if err := rows.Scan(
			&record.ID,
			&record.PlayerID,
			&record.RequestType,
			&record.Provider,
			&record.Model,
			&prompt,
			&record.Success,
			&record.ErrorMessage,
			&record.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan ai request: %w", err)
		}
		record.PromptExcerpt = excerpt(prompt, promptExcerptRunes)
		requests = append(requests, record)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return requests, nil
}

func excerpt(text string, limit int) string {
	runes := []rune(strings.TrimSpace(text))
	if len(runes) <= limit {
		return string(runes)
	}
	return string(runes[:limit]) + "…"
}

// CountAIRequests возвращает количество AI-запросов по фильтру.
func (r *AdminRepository) CountAIRequests(ctx context.Context, filter AIRequestFilter) (int, error) {
	where, args := buildAIRequestWhere(filter)

	query := fmt.Sprintf("SELECT COUNT(*) FROM ai_requests%s", where)
	var count int
	if err := r.db.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// UsageStats возвращает агрегированную статистику за N дней.
func (r *AdminRepository) UsageStats(ctx context.Context, days int) (UsageStats, error) {
	stats := UsageStats{}
	if days <= 0 {
		return stats, ErrInvalid
	}

	if err := r.db.QueryRow(ctx,
		`SELECT COUNT(*), COUNT(*) FILTER (WHERE is_guest) FROM players`,
	).Scan(&stats.Players, &stats.Guests); err != nil {
		return stats, err
	}

	if err := r.db.QueryRow(ctx,
		`SELECT COUNT(DISTINCT namespace) FROM kv_entries WHERE updated_at >= NOW() - make_interval(days => $1)`,
		days,
	).Scan(&stats.ActivePlayers); err != nil {
		return stats, err
	}

	if err := r.db.QueryRow(ctx,
		`SELECT COUNT(*),
		        COUNT(*) FILTER (WHERE success),
		        COUNT(*) FILTER (WHERE NOT success)
		 FROM ai_requests`,
	).Scan(&stats.AIRequests, &stats.AISuccess, &stats.AIFail); err != nil {
		return stats, err
	}

	start := time.Now().UTC().AddDate(0, 0, -days+1)
	rows, err := r.db.Query(ctx,
		`SELECT date_trunc('day', created_at)::date AS day,
		        COUNT(*)
		 FROM ai_requests
		 WHERE created_at >= $1
		 GROUP BY day
		 ORDER BY day DESC`,
		start,
	)
	if err != nil {
		return stats, err
	}
	defer rows.Close()

	stats.AIRequestsByDay = make([]DailyCount, 0)
	for rows.Next() {
		var row DailyCount
		if err := rows.Scan(&row.Day, &row.Count); err != nil {
			return stats, err
		}
		stats.AIRequestsByDay = append(stats.AIRequestsByDay, row)
	}

	if err := rows.Err(); err != nil {
		return stats, err
	}
	rows.Close()

	byType, err := r.db.Query(ctx,
		`SELECT request_type, COUNT(*), COUNT(*) FILTER (WHERE NOT success)
		 FROM ai_requests
		 WHERE created_at >= $1
		 GROUP BY request_type
		 ORDER BY request_type`,
		start,
	)
	if err != nil {
		return stats, err
	}
	defer byType.Close()

	stats.AIRequestsByType = make([]TypeCount, 0)
	for byType.Next() {
		var row TypeCount
		if err := byType.Scan(&row.RequestType, &row.Requests, &row.Fallbacks); err != nil {
			return stats, err
		}
		stats.AIRequestsByType = append(stats.AIRequestsByType, row)
	}

	if err := byType.Err(); err != nil {
		return stats, err
	}

	return stats, nil
}

func buildAIRequestWhere(filter AIRequestFilter) (string, []interface{}) {
	clauses := make([]string, 0)
	args := make([]interface{}, 0)

	if filter.PlayerID != nil {
		args = append(args, *filter.PlayerID)
		clauses = append(clauses, fmt.Sprintf("player_id = $%d", len(args)))
	}

	if filter.Success != nil {
		args = append(args, *filter.Success)
		clauses = append(clauses, fmt.Sprintf("success = $%d", len(args)))
	}

	if filter.RequestType != nil {
		args = append(args, *filter.RequestType)
		clauses = append(clauses, fmt.Sprintf("request_type = $%d", len(args)))
	}

	if len(clauses) == 0 {
		return "", args
	}

	return " WHERE " + strings.Join(clauses, " AND "), args
}
