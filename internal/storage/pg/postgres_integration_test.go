//go:build integration

package pg_test

import (
	"context"
	"errors"
	"io"
	"os"
	"testing"

	"github.com/pvzzle/seismicbot/internal/storage"
	"github.com/pvzzle/seismicbot/internal/storage/pg"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"
)

func TestKV_PutGetAndAdapter(t *testing.T) {
	dsn := os.Getenv("TEST_PG_DSN")
	if dsn == "" {
		dsn = os.Getenv("PG_DSN")
	}
	if dsn == "" {
		t.Skip("TEST_PG_DSN/PG_DSN is not set")
	}

	ctx := context.Background()

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("pool: %v", err)
	}
	t.Cleanup(pool.Close)

	kv := pg.New(pool)
	if err := kv.EnsureSchema(ctx); err != nil {
		t.Fatalf("EnsureSchema: %v", err)
	}

	_, _ = pool.Exec(ctx, "TRUNCATE kv_store")

	if _, err := kv.Get(ctx, "missing"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got=%v", err)
	}

	log := logrus.New()
	log.SetOutput(io.Discard)
	a := storage.NewAdapter(kv, logrus.NewEntry(log))

	bn := uint64(9)
	in := []storage.TxRecord{{
		Hash:        "0x" + repeat("1", 64),
		To:          "0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb",
		Value:       "0.01",
		Timestamp:   "2026-02-14T10:00:00Z",
		Status:      storage.StatusSuccess,
		Network:     "Seismic",
		Source:      storage.SourceTransactions,
		BlockNumber: &bn,
	}}
	a.Save(ctx, in)

	out := a.Load(ctx)
	if len(out) != 1 || out[0].Hash != in[0].Hash {
		t.Fatalf("unexpected load result: %+v", out)
	}
	if out[0].BlockNumber == nil || *out[0].BlockNumber != 9 {
		t.Fatalf("expected block number 9, got=%v", out[0].BlockNumber)
	}
}

func repeat(s string, n int) string {
	out := ""
	for i := 0; i < n; i++ {
		out += s
	}
	return out
}
