package progress

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const dbTimeout = 5 * time.Second

// PostgresBackend stores entries in the kv_entries table.
type PostgresBackend struct {
	pool *pgxpool.Pool
}

// NewPostgresBackend creates a backend over a pool whose schema has been
// migrated.
func NewPostgresBackend(pool *pgxpool.Pool) (*PostgresBackend, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is nil")
	}
	return &PostgresBackend{pool: pool}, nil
}

func (b *PostgresBackend) Get(ctx context.Context, namespace, key string) (string, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	var v string
	err := b.pool.QueryRow(ctx,
		`SELECT value FROM kv_entries WHERE namespace = $1 AND key = $2`,
		namespace,
		key,
	).Scan(&v)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("select entry: %w", err)
	}
	return v, true, nil
}

func (b *PostgresBackend) Set(ctx context.Context, namespace, key, value string) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	_, err := b.pool.Exec(ctx,
		`INSERT INTO kv_entries (namespace, key, value, updated_at)
		 VALUES ($1, $2, $3, NOW())
		 ON CONFLICT (namespace, key)
		 DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()`,
		namespace,
		key,
		value,
	)
	if err != nil {
		return fmt.Errorf("upsert entry: %w", err)
	}
	return nil
}

// Incr increments in a single upsert; a non-numeric stored value counts as 0.
func (b *PostgresBackend) Incr(ctx context.Context, namespace, key string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	var v string
	err := b.pool.QueryRow(ctx,
		`INSERT INTO kv_entries (namespace, key, value, updated_at)
		 VALUES ($1, $2, '1', NOW())
		 ON CONFLICT (namespace, key)
		 DO UPDATE SET
		   value = ((CASE WHEN kv_entries.value ~ '^-?[0-9]+$' THEN kv_entries.value::bigint ELSE 0 END) + 1)::text,
		   updated_at = NOW()
		 RETURNING value`,
		namespace,
		key,
	).Scan(&v)
	if err != nil {
		return 0, fmt.Errorf("increment entry: %w", err)
	}
	return strconv.ParseInt(v, 10, 64)
}

func (b *PostgresBackend) Ping(ctx context.Context) error {
	return b.pool.Ping(ctx)
}
