package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgStore is a PostgreSQL-backed record store.
type PgStore struct {
	pool *pgxpool.Pool
}

func NewPgStore(ctx context.Context, dsn string) (*PgStore, error) {
	if dsn == "" {
		return nil, errors.New("postgres store requires a dsn")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	s := &PgStore{pool: pool}
	if err := s.EnsureTable(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// EnsureTable creates the records table if it doesn't exist.
func (s *PgStore) EnsureTable(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS records (
			collection TEXT NOT NULL,
			key        TEXT NOT NULL,
			data       JSONB NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (collection, key)
		)`)
	return err
}

func (s *PgStore) Write(ctx context.Context, collection, key string, data []byte) error {
	if err := validName(collection); err != nil {
		return err
	}
	if err := validName(key); err != nil {
		return err
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO records (collection, key, data, updated_at) VALUES ($1, $2, $3, NOW())
		ON CONFLICT (collection, key) DO UPDATE SET data = EXCLUDED.data, updated_at = NOW()`,
		collection, key, string(data))
	if err != nil {
		return fmt.Errorf("write %s/%s: %w", collection, key, err)
	}
	return nil
}

func (s *PgStore) Read(ctx context.Context, collection, key string) ([]byte, error) {
	var data string
	err := s.pool.QueryRow(ctx,
		`SELECT data::text FROM records WHERE collection = $1 AND key = $2`, collection, key).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read %s/%s: %w", collection, key, err)
	}
	return []byte(data), nil
}

func (s *PgStore) ListKeys(ctx context.Context, collection, prefix string) ([]string, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT key FROM records
		WHERE collection = $1 AND left(key, length($2::text)) = $2::text
		ORDER BY key`, collection, prefix)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", collection, err)
	}
	keys, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, err
	}
	if keys == nil {
		keys = []string{}
	}
	return keys, nil
}

func (s *PgStore) Close() error {
	s.pool.Close()
	return nil
}
