package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres хранит значения в таблице kv_entries.
type Postgres struct {
	db *pgxpool.Pool
}

// NewPostgres создает хранилище поверх пула pgx. Пул закрывает владелец.
func NewPostgres(db *pgxpool.Pool) *Postgres {
	return &Postgres{db: db}
}

func (p *Postgres) Get(ctx context.Context, namespace, key string) (string, bool, error) {
	var value string
	err := p.db.QueryRow(ctx,
		`SELECT value FROM kv_entries WHERE namespace = $1 AND key = $2`,
		namespace, key,
	).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("get %s/%s: %w", namespace, key, err)
	}
	return value, true, nil
}

func (p *Postgres) GetMany(ctx context.Context, namespace string, keys []string) (map[string]string, error) {
	rows, err := p.db.Query(ctx,
		`SELECT key, value FROM kv_entries WHERE namespace = $1 AND key = ANY($2)`,
		namespace, keys,
	)
	if err != nil {
		return nil, fmt.Errorf("get many %s: %w", namespace, err)
	}
	defer rows.Close()

	values := make(map[string]string, len(keys))
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("scan %s: %w", namespace, err)
		}
		values[key] = value
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("get many %s: %w", namespace, err)
	}
	return values, nil
}

func (p *Postgres) Set(ctx context.Context, namespace, key, value string) error {
	_, err := p.db.Exec(ctx, upsertPostgres, namespace, key, value)
	if err != nil {
		return fmt.Errorf("set %s/%s: %w", namespace, key, err)
	}
	return nil
}

func (p *Postgres) SetMany(ctx context.Context, namespace string, values map[string]string) error {
	tx, err := p.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	batch := &pgx.Batch{}
	for key, value := range values {
		batch.Queue(upsertPostgres, namespace, key, value)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("set batch %s: %w", namespace, err)
	}

	return tx.Commit(ctx)
}

func (p *Postgres) Reset(ctx context.Context, namespace string) error {
	_, err := p.db.Exec(ctx, `DELETE FROM kv_entries WHERE namespace = $1`, namespace)
	return err
}

func (p *Postgres) Close() error {
	return nil
}

const upsertPostgres = `INSERT INTO kv_entries (namespace, key, value, updated_at)
VALUES ($1, $2, $3, NOW())
ON CONFLICT (namespace, key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()`
