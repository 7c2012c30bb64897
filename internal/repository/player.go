package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"example.com/ecopulse/backend/internal/models"
)

const playerColumns = `id, email, password_hash, display_name, is_guest, created_at, updated_at`

type PlayerRepository struct {
	db *pgxpool.Pool
}

// NewPlayerRepository создает репозиторий игроков.
func NewPlayerRepository(db *pgxpool.Pool) *PlayerRepository {
	return &PlayerRepository{db: db}
}

// CreateGuest создает гостевого игрока без учетных данных.
func (r *PlayerRepository) CreateGuest(ctx context.Context) (models.Player, error) {
	return scanPlayer(r.db.QueryRow(ctx,
		`INSERT INTO players (is_guest)
		 VALUES (TRUE)
		 RETURNING `+playerColumns,
	))
}

// Create создает игрока с email и паролем.
func (r *PlayerRepository) Create(ctx context.Context, email, passwordHash string, displayName *string) (models.Player, error) {
	player, err := scanPlayer(r.db.QueryRow(ctx,
		`INSERT INTO players (email, password_hash, display_name, is_guest)
		 VALUES ($1, $2, $3, FALSE)
		 RETURNING `+playerColumns,
		email, passwordHash, displayName,
	))
	return player, mapUniqueViolation(err)
}

// Claim привязывает учетные данные к гостевому игроку, сохраняя его прогресс.
func (r *PlayerRepository) Claim(ctx context.Context, id uuid.UUID, email, passwordHash string, displayName *string) (models.Player, error) {
	player, err := scanPlayer(r.db.QueryRow(ctx,
		`UPDATE players
		 SET email = $2, password_hash = $3, display_name = COALESCE($4, display_name),
		     is_guest = FALSE, updated_at = NOW()
		 WHERE id = $1 AND is_guest
		 RETURNING `+playerColumns,
		id, email, passwordHash, displayName,
	))
	return player, mapUniqueViolation(err)
}

// GetByEmail возвращает игрока по email.
func (r *PlayerRepository) GetByEmail(ctx context.Context, email string) (models.Player, error) {
	return scanPlayer(r.db.QueryRow(ctx,
		`SELECT `+playerColumns+`
		 FROM players
		 WHERE email = $1`,
		email,
	))
}

// GetByID возвращает игрока по идентификатору.
func (r *PlayerRepository) GetByID(ctx context.Context, id uuid.UUID) (models.Player, error) {
	return scanPlayer(r.db.QueryRow(ctx,
		`SELECT `+playerColumns+`
		 FROM players
		 WHERE id = $1`,
		id,
	))
}

func scanPlayer(row pgx.Row) (models.Player, error) {
	var player models.Player
	err := row.Scan(
		&player.ID,
		&player.Email,
		&player.PasswordHash,
		&player.DisplayName,
		&player.IsGuest,
		&player.CreatedAt,
		&player.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return player, ErrNotFound
		}
		return player, err
	}
	return player, nil
}

func mapUniqueViolation(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrConflict
	}
	return err
}
