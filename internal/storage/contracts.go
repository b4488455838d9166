package storage

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("key not found")

// KV is the persistent key-value boundary. Get returns ErrNotFound for a missing key.
type KV interface {
	EnsureSchema(ctx context.Context) error

	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
}
