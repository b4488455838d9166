package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/pvzzle/seismicbot/internal/storage"
	"github.com/pvzzle/seismicbot/internal/storage/pg"
	"github.com/pvzzle/seismicbot/internal/storage/sqlite"

	"github.com/jackc/pgx/v5/pgxpool"
)

// OpenKV opens the configured backend and makes sure its table exists.
// The returned func releases it.
func OpenKV(ctx context.Context, cfg Config) (storage.KV, func(), error) {
	var (
		kv      storage.KV
		release func()
	)

	switch strings.ToLower(strings.TrimSpace(cfg.StorageDriver)) {
	case "postgres", "pg":
		if cfg.PostgresURL == "" {
			return nil, nil, fmt.Errorf("POSTGRES_URL is required for the postgres driver")
		}
		pool, err := pgxpool.New(ctx, cfg.PostgresURL)
		if err != nil {
			return nil, nil, fmt.Errorf("pgxpool new: %w", err)
		}
		kv, release = pg.New(pool), pool.Close

	case "", "sqlite":
		st, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		kv, release = st, func() { _ = st.Close() }

	default:
		return nil, nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
	}

	if err := kv.EnsureSchema(ctx); err != nil {
		release()
		return nil, nil, fmt.Errorf("ensure schema: %w", err)
	}
	return kv, release, nil
}
