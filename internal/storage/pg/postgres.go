package pg

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pvzzle/seismicbot/internal/storage"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Postgres struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Postgres { return &Postgres{pool: pool} }

func (r *Postgres) EnsureSchema(ctx context.Context) error {
	ddl := `
CREATE TABLE IF NOT EXISTS kv_store (
  key   TEXT PRIMARY KEY,
  value JSONB NOT NULL,

  updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
`
	_, err := r.pool.Exec(ctx, ddl)
	return err
}

func (r *Postgres) Get(ctx context.Context, key string) ([]byte, error) {
	cctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var raw []byte
	err := r.pool.QueryRow(cctx, `SELECT value::text FROM kv_store WHERE key = $1`, key).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return raw, nil
}

func (r *Postgres) Put(ctx context.Context, key string, value []byte) error {
	cctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	q := `
INSERT INTO kv_store(key, value) VALUES ($1, $2::jsonb)
ON CONFLICT(key) DO UPDATE SET
  value      = EXCLUDED.value,
  updated_at = now()
`
	_, err := r.pool.Exec(cctx, q, key, string(value))
	return err
}

func (r *Postgres) String() string { return fmt.Sprintf("pgkv(%p)", r.pool) }
