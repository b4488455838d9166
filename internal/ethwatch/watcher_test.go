package ethwatch

import (
	"context"
	"errors"
	"io"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/pvzzle/seismicbot/internal/history"
	"github.com/pvzzle/seismicbot/internal/storage"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/sirupsen/logrus"
)

type mockReader struct {
	mu       sync.Mutex
	receipts map[common.Hash]*types.Receipt
	errs     map[common.Hash]error
	calls    int
}

func newMockReader() *mockReader {
	return &mockReader{
		receipts: make(map[common.Hash]*types.Receipt),
		errs:     make(map[common.Hash]error),
	}
}

func (m *mockReader) TransactionReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if err, ok := m.errs[hash]; ok {
		return nil, err
	}
	if r, ok := m.receipts[hash]; ok {
		return r, nil
	}
	return nil, ethereum.NotFound
}

func (m *mockReader) settle(hash string, status uint64, block int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.receipts[common.HexToHash(hash)] = &types.Receipt{Status: status, BlockNumber: big.NewInt(block)}
}

func quietLog() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

func hashN(n int64) string {
	return common.BigToHash(big.NewInt(n)).Hex()
}

func pendingRecord(hash string, sent time.Time) storage.TxRecord {
	return storage.TxRecord{
		Hash:      hash,
		Status:    storage.StatusPending,
		Timestamp: storage.Stamp(sent),
		Source:    storage.SourceTransactions,
	}
}

func testWatcher(store *history.Store) *Watcher {
	return NewWatcher(store, nil, quietLog(), WatcherConfig{
		Interval:   20 * time.Millisecond,
		StaleAfter: 10 * time.Minute,
		RPS:        1000,
		Workers:    2,
	})
}

func TestCheckPending_SettlesReceipts(t *testing.T) {
	ctx := context.Background()
	store := history.NewStore(nil)
	now := time.Now()

	store.Add(ctx, pendingRecord(hashN(1), now))
	store.Add(ctx, pendingRecord(hashN(2), now))
	store.Add(ctx, pendingRecord(hashN(3), now))

	reader := newMockReader()
	reader.settle(hashN(1), types.ReceiptStatusSuccessful, 100)
	reader.settle(hashN(2), types.ReceiptStatusFailed, 101)

	w := testWatcher(store)
	refreshed := 0
	w.OnSuccess(func(context.Context) { refreshed++ })
	w.SetReader(reader)
	w.CheckPending(ctx)

	r1, _ := store.Get(hashN(1))
	if r1.Status != storage.StatusSuccess || r1.BlockNumber == nil || *r1.BlockNumber != 100 {
		t.Fatalf("expected success at block 100, got %+v", r1)
	}
	r2, _ := store.Get(hashN(2))
	if r2.Status != storage.StatusFailed || *r2.BlockNumber != 101 {
		t.Fatalf("expected failed at block 101, got %+v", r2)
	}
	r3, _ := store.Get(hashN(3))
	if r3.Status != storage.StatusPending {
		t.Fatalf("fresh record without receipt must stay pending, got %s", r3.Status)
	}
	if refreshed != 1 {
		t.Fatalf("expected one balance refresh, got %d", refreshed)
	}
}

func TestCheckPending_StaleBecomesFailed(t *testing.T) {
	ctx := context.Background()
	store := history.NewStore(nil)
	store.Add(ctx, pendingRecord(hashN(1), time.Now().Add(-11*time.Minute)))
	store.Add(ctx, pendingRecord(hashN(2), time.Now().Add(-9*time.Minute)))

	w := testWatcher(store)
	w.SetReader(newMockReader())
	w.CheckPending(ctx)

	if r, _ := store.Get(hashN(1)); r.Status != storage.StatusFailed {
		t.Fatalf("expected stale record to fail, got %s", r.Status)
	}
	if r, _ := store.Get(hashN(2)); r.Status != storage.StatusPending {
		t.Fatalf("expected young record to stay pending, got %s", r.Status)
	}
}

func TestCheckPending_LookupErrorKeepsPending(t *testing.T) {
	ctx := context.Background()
	store := history.NewStore(nil)
	store.Add(ctx, pendingRecord(hashN(1), time.Now().Add(-time.Hour)))

	reader := newMockReader()
	reader.errs[common.HexToHash(hashN(1))] = errors.New("connection reset")

	w := testWatcher(store)
	w.SetReader(reader)
	w.CheckPending(ctx)

	if r, _ := store.Get(hashN(1)); r.Status != storage.StatusPending {
		t.Fatalf("lookup errors must not change status, got %s", r.Status)
	}
}

func TestWatcher_LoopStopsWhenNothingPending(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := history.NewStore(nil)
	store.Add(ctx, pendingRecord(hashN(1), time.Now()))

	reader := newMockReader()
	w := testWatcher(store)
	w.SetReader(reader)
	w.Start(ctx)
	defer w.Stop()

	if !w.Running() {
		t.Fatal("expected loop to run with a pending record")
	}

	reader.settle(hashN(1), types.ReceiptStatusSuccessful, 7)

	deadline := time.Now().Add(time.Second)
	for w.Running() {
		if time.Now().After(deadline) {
			t.Fatal("loop did not stop after the last pending record settled")
		}
		time.Sleep(5 * time.Millisecond)
	}

	if r, _ := store.Get(hashN(1)); r.Status != storage.StatusSuccess {
		t.Fatalf("expected success, got %s", r.Status)
	}

	// new work restarts it
	store.Add(ctx, pendingRecord(hashN(2), time.Now()))
	w.Ensure()
	if !w.Running() {
		t.Fatal("Ensure should restart the loop")
	}
}

func TestWatcher_EnsureNeedsReader(t *testing.T) {
	ctx := context.Background()
	store := history.NewStore(nil)
	store.Add(ctx, pendingRecord(hashN(1), time.Now()))

	w := testWatcher(store)
	w.Start(ctx)
	if w.Running() {
		t.Fatal("loop must not run without a reader")
	}

	w.SetReader(newMockReader())
	if !w.Running() {
		t.Fatal("loop should start once a reader is set")
	}

	w.SetReader(nil)
	if w.Running() {
		t.Fatal("clearing the reader should stop the loop")
	}
}
