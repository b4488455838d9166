package sqlite

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"testing"

	"github.com/pvzzle/seismicbot/internal/storage"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "wallet.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.EnsureSchema(context.Background()))
	return s
}

func TestStore_GetMissing(t *testing.T) {
	s := openTemp(t)
	_, err := s.Get(context.Background(), "nope")
	require.True(t, errors.Is(err, storage.ErrNotFound))
}

func TestStore_PutOverwrites(t *testing.T) {
	ctx := context.Background()
	s := openTemp(t)

	require.NoError(t, s.Put(ctx, "k", []byte(`[1]`)))
	require.NoError(t, s.Put(ctx, "k", []byte(`[1,2]`)))

	got, err := s.Get(ctx, "k")
	require.NoError(t, err)
	require.Equal(t, `[1,2]`, string(got))
}

func TestStore_AdapterRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := openTemp(t)

	log := logrus.New()
	log.SetOutput(io.Discard)
	a := storage.NewAdapter(s, logrus.NewEntry(log))

	in := []storage.TxRecord{
		{
			Hash:          "0xabc",
			To:            "0x1234567890123456789012345678901234567890",
			Value:         "0.001",
			Timestamp:     "2026-02-14T10:00:00Z",
			Status:        storage.StatusPending,
			Encrypted:     true,
			EncryptedType: "sbool",
			Network:       "Seismic",
			Source:        storage.SourceTransactions,
		},
	}
	a.Save(ctx, in)
	require.Equal(t, in, a.Load(ctx))
}
