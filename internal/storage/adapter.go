package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

// TransactionsKey holds the JSON array of every TxRecord.
const TransactionsKey = "seismic_transactions"

const opTimeout = 3 * time.Second

// Adapter mirrors the whole record list into a KV store.
// Storage failures never reach the caller; memory stays authoritative.
type Adapter struct {
	kv  KV
	log *logrus.Entry
}

func NewAdapter(kv KV, log *logrus.Entry) *Adapter {
	return &Adapter{kv: kv, log: log}
}

// Save overwrites the stored list with records.
func (a *Adapter) Save(ctx context.Context, records []TxRecord) {
	if records == nil {
		records = []TxRecord{}
	}
	raw, err := json.Marshal(records)
	if err != nil {
		a.log.WithError(err).Error("encode transactions")
		return
	}

	cctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if err := a.kv.Put(cctx, TransactionsKey, raw); err != nil {
		a.log.WithError(err).Error("save transactions")
	}
}

// Load returns the stored list, or an empty list on any failure.
func (a *Adapter) Load(ctx context.Context) []TxRecord {
	cctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	raw, err := a.kv.Get(cctx, TransactionsKey)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			a.log.WithError(err).Error("load transactions")
		}
		return []TxRecord{}
	}

	records, err := Decode(raw)
	if err != nil {
		a.log.WithError(err).Error("decode transactions")
		return []TxRecord{}
	}
	return records
}

// Decode parses a stored list and backfills Source on legacy records.
func Decode(raw []byte) ([]TxRecord, error) {
	if len(raw) == 0 {
		return []TxRecord{}, nil
	}
	var records []TxRecord
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, fmt.Errorf("unmarshal records: %w", err)
	}
	if records == nil {
		return []TxRecord{}, nil
	}
	for i := range records {
		if records[i].Source != "" {
			continue
		}
		if records[i].EncryptedType == MessageType {
			records[i].Source = SourceMessages
		} else {
			records[i].Source = SourceTransactions
		}
	}
	return records, nil
}
