package history

import (
	"context"
	"sync"

	"github.com/pvzzle/seismicbot/internal/storage"
)

// Saver persists a full snapshot of the list.
type Saver interface {
	Save(ctx context.Context, records []storage.TxRecord)
}

// Store is the in-memory transaction history, newest first.
// Every mutation is mirrored to the Saver as a full overwrite.
type Store struct {
	mu      sync.RWMutex
	records []storage.TxRecord
	saver   Saver
}

func NewStore(saver Saver) *Store {
	return &Store{saver: saver}
}

// Restore replaces the list without persisting it back.
func (s *Store) Restore(records []storage.TxRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = make([]storage.TxRecord, 0, len(records))
	for _, r := range records {
		s.records = append(s.records, copyRecord(r))
	}
}

func (s *Store) Add(ctx context.Context, rec storage.TxRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := make([]storage.TxRecord, 0, len(s.records)+1)
	next = append(next, copyRecord(rec))
	next = append(next, s.records...)
	s.records = next
	s.persist(ctx)
}

// SetStatus updates status (and block number, when given) of the record with hash.
func (s *Store) SetStatus(ctx context.Context, hash string, status storage.Status, blockNumber *uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	found := false
	for i := range s.records {
		if s.records[i].Hash != hash {
			continue
		}
		s.records[i].Status = status
		if blockNumber != nil {
			bn := *blockNumber
			s.records[i].BlockNumber = &bn
		}
		found = true
	}
	if found {
		s.persist(ctx)
	}
	return found
}

func (s *Store) Get(hash string) (storage.TxRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, r := range s.records {
		if r.Hash == hash {
			return copyRecord(r), true
		}
	}
	return storage.TxRecord{}, false
}

func (s *Store) All() []storage.TxRecord {
	return s.filter(func(storage.TxRecord) bool { return true })
}

func (s *Store) Pending() []storage.TxRecord {
	return s.filter(func(r storage.TxRecord) bool { return r.Status == storage.StatusPending })
}

func (s *Store) HasPending() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, r := range s.records {
		if r.Status == storage.StatusPending {
			return true
		}
	}
	return false
}

// Transactions is the transactions-tab partition.
func (s *Store) Transactions() []storage.TxRecord {
	return s.filter(func(r storage.TxRecord) bool { return r.Source == storage.SourceTransactions })
}

// Messages is the messages-tab partition.
func (s *Store) Messages() []storage.TxRecord {
	return s.filter(func(r storage.TxRecord) bool { return r.IsMessage() })
}

// ClearTransactions drops the transactions partition and returns how many records went away.
func (s *Store) ClearTransactions(ctx context.Context) int {
	return s.remove(ctx, func(r storage.TxRecord) bool { return r.Source == storage.SourceTransactions })
}

func (s *Store) ClearMessages(ctx context.Context) int {
	return s.remove(ctx, func(r storage.TxRecord) bool { return r.IsMessage() })
}

func (s *Store) ClearAll(ctx context.Context) int {
	return s.remove(ctx, func(storage.TxRecord) bool { return true })
}

func (s *Store) filter(keep func(storage.TxRecord) bool) []storage.TxRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]storage.TxRecord, 0, len(s.records))
	for _, r := range s.records {
		if keep(r) {
			out = append(out, copyRecord(r))
		}
	}
	return out
}

func (s *Store) remove(ctx context.Context, drop func(storage.TxRecord) bool) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := make([]storage.TxRecord, 0, len(s.records))
	for _, r := range s.records {
		if !drop(r) {
			next = append(next, r)
		}
	}
	removed := len(s.records) - len(next)
	s.records = next
	s.persist(ctx)
	return removed
}

// persist must be called with mu held so snapshots reach the Saver in mutation order.
func (s *Store) persist(ctx context.Context) {
	if s.saver == nil {
		return
	}
	snapshot := make([]storage.TxRecord, 0, len(s.records))
	for _, r := range s.records {
		snapshot = append(snapshot, copyRecord(r))
	}
	s.saver.Save(ctx, snapshot)
}

func copyRecord(r storage.TxRecord) storage.TxRecord {
	if r.BlockNumber != nil {
		bn := *r.BlockNumber
		r.BlockNumber = &bn
	}
	return r
}
