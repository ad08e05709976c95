// Package storage provides the durable object stores that receive evicted
// individuals, keyed exactly by their storage path
// (prefix + "/" + fingerprint) so any persistence layer resolves the same
// key an in-memory run computed.
package storage

import (
	"context"
)

// Store is the write-behind capability the population hands evicted
// individuals to. Implementations must treat Put of an existing key as a
// replace, keeping the operation idempotent for identical payloads.
type Store interface {
	Put(ctx context.Context, key string, value []byte) error
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Count(ctx context.Context) (int64, error)
	Close() error
}
