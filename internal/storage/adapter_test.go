package storage

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

type memKV struct {
	mu     sync.Mutex
	data   map[string][]byte
	putErr error
	getErr error
}

func newMemKV() *memKV { return &memKV{data: make(map[string][]byte)} }

func (m *memKV) EnsureSchema(ctx context.Context) error { return nil }

func (m *memKV) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	v, ok := m.data[key]
	if !ok {
		return nil, ErrNotFound
	}
	return v, nil
}

func (m *memKV) Put(ctx context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.putErr != nil {
		return m.putErr
	}
	m.data[key] = append([]byte(nil), value...)
	return nil
}

func quietLog() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

func sampleRecords() []TxRecord {
	bn := uint64(77)
	return []TxRecord{
		{
			Hash:           "0x" + repeat("a", 64),
			To:             "0x" + repeat("b", 40),
			Value:          "0.01",
			Timestamp:      Stamp(time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)),
			Status:         StatusSuccess,
			Network:        "Seismic",
			Source:         SourceTransactions,
			BlockNumber:    &bn,
			GasUsed:        "auto",
			DataSize:       "0 bytes",
			EncryptionType: "None",
		},
		{
			Hash:           "0x" + repeat("c", 64),
			To:             "0x" + repeat("d", 40),
			Value:          "0.001",
			Timestamp:      Stamp(time.Date(2026, 1, 2, 3, 5, 0, 0, time.UTC)),
			Status:         StatusPending,
			Encrypted:      true,
			EncryptedType:  MessageType,
			Network:        "Seismic",
			Source:         SourceMessages,
			MessagePreview: "hello",
		},
	}
}

func TestAdapter_RoundTrip(t *testing.T) {
	ctx := context.Background()
	a := NewAdapter(newMemKV(), quietLog())

	in := sampleRecords()
	a.Save(ctx, in)

	out := a.Load(ctx)
	require.Equal(t, in, out)
}

func TestAdapter_SaveOverwrites(t *testing.T) {
	ctx := context.Background()
	a := NewAdapter(newMemKV(), quietLog())

	a.Save(ctx, sampleRecords())
	a.Save(ctx, sampleRecords()[:1])

	require.Len(t, a.Load(ctx), 1)

	a.Save(ctx, nil)
	out := a.Load(ctx)
	require.NotNil(t, out)
	require.Empty(t, out)
}

func TestAdapter_LoadMissingKey(t *testing.T) {
	a := NewAdapter(newMemKV(), quietLog())
	out := a.Load(context.Background())
	require.NotNil(t, out)
	require.Empty(t, out)
}

func TestAdapter_FailuresAreSwallowed(t *testing.T) {
	ctx := context.Background()
	kv := newMemKV()
	a := NewAdapter(kv, quietLog())

	kv.putErr = errors.New("disk full")
	a.Save(ctx, sampleRecords())

	kv.getErr = errors.New("io error")
	require.Empty(t, a.Load(ctx))

	kv.getErr = nil
	kv.data[TransactionsKey] = []byte("{not json")
	require.Empty(t, a.Load(ctx))
}

func TestDecode_BackfillsSource(t *testing.T) {
	raw := []byte(`[
		{"hash":"0x1","to":"0x2","value":"0.001","timestamp":"x","status":"pending","encrypted":true,"encryptedType":"message","network":"Seismic"},
		{"hash":"0x3","to":"0x4","value":"0.001","timestamp":"x","status":"success","encrypted":true,"encryptedType":"suint8","network":"Seismic"},
		{"hash":"0x5","to":"0x6","value":"1","timestamp":"x","status":"failed","encrypted":false,"network":"Seismic","source":"messages"}
	]`)

	out, err := Decode(raw)
	require.NoError(t, err)
	require.Len(t, out, 3)
	require.Equal(t, SourceMessages, out[0].Source)
	require.Equal(t, SourceTransactions, out[1].Source)
	require.Equal(t, SourceMessages, out[2].Source)
}

func TestTxRecord_Time(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	r := TxRecord{Timestamp: Stamp(now)}
	got, ok := r.Time()
	require.True(t, ok)
	require.True(t, got.Equal(now))

	_, ok = TxRecord{Timestamp: "yesterday-ish"}.Time()
	require.False(t, ok)
}

func repeat(s string, n int) string {
	out := ""
	for i := 0; i < n; i++ {
		out += s
	}
	return out
}
