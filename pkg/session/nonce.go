package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/vsc-eco/vsc-client-go/pkg/persistence"
)

// NonceFetcher asks the network for the current nonce of a key group.
type NonceFetcher func(ctx context.Context, keyGroup string) (uint64, error)

// NonceTracker caches the next nonce of one key group.
type NonceTracker struct {
	store    persistence.INoncePersistence
	keyGroup string
}

func NewNonceTracker(store persistence.INoncePersistence, keyGroup string) *NonceTracker {
	return &NonceTracker{store: store, keyGroup: keyGroup}
}

func (n *NonceTracker) KeyGroup() string {
	return n.keyGroup
}

// Current returns the cached nonce, calling fetch and caching its result when
// nothing is cached.
func (n *NonceTracker) Current(ctx context.Context, fetch NonceFetcher) (nonce uint64, fetched bool, err error) {
	nonce, found, err := n.store.GetNonce(ctx, n.keyGroup)
	if err != nil {
		return 0, false, fmt.Errorf("failed to read cached nonce: %w", err)
	}
	if found {
		return nonce, false, nil
	}

	nonce, err = fetch(ctx, n.keyGroup)
	if err != nil {
		return 0, false, err
	}
	if err := n.store.SetNonce(ctx, n.keyGroup, nonce); err != nil {
		return 0, false, fmt.Errorf("failed to cache nonce: %w", err)
	}
	return nonce, true, nil
}

// Increment advances the cached nonce after a transaction was signed with it.
func (n *NonceTracker) Increment(ctx context.Context, used uint64) (uint64, error) {
	next, err := n.store.IncrementNonce(ctx, n.keyGroup)
	if errors.Is(err, persistence.ErrNonceNotFound) {
		// Cleared between read and increment; remember what follows the nonce we used.
		next = used + 1
		err = n.store.SetNonce(ctx, n.keyGroup, next)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to increment nonce: %w", err)
	}
	return next, nil
}

// Clear drops the cached nonce so the next broadcast refetches it.
func (n *NonceTracker) Clear(ctx context.Context) error {
	return n.store.DeleteNonce(ctx, n.keyGroup)
}

// Peek returns the cached nonce without fetching.
func (n *NonceTracker) Peek(ctx context.Context) (uint64, bool, error) {
	return n.store.GetNonce(ctx, n.keyGroup)
}
