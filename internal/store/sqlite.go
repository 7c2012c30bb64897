package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS kv_entries (
	namespace TEXT NOT NULL,
	key TEXT NOT NULL,
	value TEXT NOT NULL,
	updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY (namespace, key)
);`

const upsertSQLite = `INSERT INTO kv_entries (namespace, key, value, updated_at)
VALUES (?, ?, ?, CURRENT_TIMESTAMP)
ON CONFLICT (namespace, key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP`

// SQLite хранит значения в локальном файле. Используется офлайн-режимом ecoctl.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite открывает (или создает) файл базы и применяет схему.
func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// Один писатель: modernc сериализует запись на уровне файла.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, `PRAGMA busy_timeout = 5000`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("configure sqlite: %w", err)
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create sqlite schema: %w", err)
	}

	return &SQLite{db: db}, nil
}

func (s *SQLite) Get(ctx context.Context, namespace, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM kv_entries WHERE namespace = ? AND key = ?`,
		namespace, key,
	).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("get %s/%s: %w", namespace, key, err)
	}
	return value, true, nil
}

// GetMany читает namespace целиком и оставляет запрошенные ключи: у игрока их единицы.
func (s *SQLite) GetMany(ctx context.Context, namespace string, keys []string) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT key, value FROM kv_entries WHERE namespace = ?`,
		namespace,
	)
	if err != nil {
		return nil, fmt.Errorf("get many %s: %w", namespace, err)
	}
	defer rows.Close()

	wanted := make(map[string]struct{}, len(keys))
	for _, key := range keys {
		wanted[key] = struct{}{}
	}

	values := make(map[string]string, len(keys))
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("scan %s: %w", namespace, err)
		}
		if _, ok := wanted[key]; ok {
			values[key] = value
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("get many %s: %w", namespace, err)
	}
	return values, nil
}

func (s *SQLite) Set(ctx context.Context, namespace, key, value string) error {
	if _, err := s.db.ExecContext(ctx, upsertSQLite, namespace, key, value); err != nil {
		return fmt.Errorf("set %s/%s: %w", namespace, key, err)
	}
	return nil
}

func (s *SQLite) SetMany(ctx context.Context, namespace string, values map[string]string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for key, value := range values {
		if _, err := tx.ExecContext(ctx, upsertSQLite, namespace, key, value); err != nil {
			return fmt.Errorf("set %s/%s: %w", namespace, key, err)
		}
	}

	return tx.Commit()
}

func (s *SQLite) Reset(ctx context.Context, namespace string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM kv_entries WHERE namespace = ?`, namespace)
	return err
}

func (s *SQLite) Close() error {
	return s.db.Close()
}
