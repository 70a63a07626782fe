// Package persistence stores the per key-group nonce cache used by the
// offchain and evm signing strategies. Backends may be shared by several
// client processes (redis) or survive restarts (badger).
package persistence

import (
	"context"
	"errors"
)

// ErrClosed is returned by every operation after Close.
var ErrClosed = errors.New("persistence layer is closed")

// ErrNonceNotFound is returned by IncrementNonce when no nonce is cached.
var ErrNonceNotFound = errors.New("nonce not found")

// INoncePersistence caches account nonces by key group (a DID or did:pkh
// identifier). All implementations are safe for concurrent use.
type INoncePersistence interface {
	// GetNonce returns the cached nonce. found is false when nothing is cached;
	// zero is a valid cached nonce.
	GetNonce(ctx context.Context, keyGroup string) (nonce uint64, found bool, err error)

	// SetNonce overwrites the cached nonce.
	SetNonce(ctx context.Context, keyGroup string, nonce uint64) error

	// IncrementNonce adds one to the cached nonce and returns the new value.
	// Returns ErrNonceNotFound if nothing is cached.
	IncrementNonce(ctx context.Context, keyGroup string) (uint64, error)

	// DeleteNonce drops the cached nonce. Idempotent.
	DeleteNonce(ctx context.Context, keyGroup string) error

	HealthCheck(ctx context.Context) error

	// Close releases the backend. Idempotent.
	Close() error
}
