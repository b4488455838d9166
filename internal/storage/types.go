package storage

import "time"

type Status string

const (
	StatusPending Status = "pending"
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

// Source partitions the history between the transactions and messages views.
type Source string

const (
	SourceTransactions Source = "transactions"
	SourceMessages     Source = "messages"
)

// MessageType is the encryptedType carried by message transactions.
const MessageType = "message"

// TimestampLayout is used for TxRecord.Timestamp.
const TimestampLayout = time.RFC3339

type TxRecord struct {
	Hash           string  `json:"hash"`
	To             string  `json:"to"`
	Value          string  `json:"value"` // decimal SETH, e.g. "0.01"
	Timestamp      string  `json:"timestamp"`
	Status         Status  `json:"status"`
	Encrypted      bool    `json:"encrypted"`
	EncryptionType string  `json:"encryptionType,omitempty"`
	EncryptedType  string  `json:"encryptedType,omitempty"`
	Network        string  `json:"network"`
	Source         Source  `json:"source,omitempty"`
	BlockNumber    *uint64 `json:"blockNumber,omitempty"`
	DataSize       string  `json:"dataSize,omitempty"`
	GasUsed        string  `json:"gasUsed,omitempty"`
	MessagePreview string  `json:"messagePreview,omitempty"`
}

// legacyLayouts covers timestamps written by older clients.
var legacyLayouts = []string{
	time.RFC3339,
	time.RFC3339Nano,
	"1/2/2006, 3:04:05 PM",
	"02.01.2006, 15:04:05",
	"2006-01-02 15:04:05",
}

// Time parses the record timestamp. ok is false when no known layout matches.
func (r TxRecord) Time() (time.Time, bool) {
	for _, layout := range legacyLayouts {
		if t, err := time.ParseInLocation(layout, r.Timestamp, time.Local); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// IsMessage reports whether the record belongs to the message history view.
func (r TxRecord) IsMessage() bool {
	return r.Source == SourceMessages && r.EncryptedType == MessageType
}

func Stamp(t time.Time) string {
	return t.Format(TimestampLayout)
}
