package client

import (
	"context"
	"sync"

	"github.com/vsc-eco/vsc-client-go/pkg/types"
)

// Transaction holds an intent until it is broadcast.
type Transaction struct {
	mu     sync.RWMutex
	intent *types.TransactionIntent
}

func NewTransaction() *Transaction {
	return &Transaction{}
}

// SetIntent stores a copy of intent, replacing any earlier one.
func (t *Transaction) SetIntent(intent *types.TransactionIntent) *Transaction {
	t.mu.Lock()
	defer t.mu.Unlock()
	if intent == nil {
		t.intent = nil
		return t
	}
	cp := *intent
	t.intent = &cp
	return t
}

func (t *Transaction) Intent() *types.TransactionIntent {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.intent
}

// Broadcast submits the intent through c.
func (t *Transaction) Broadcast(ctx context.Context, c *Client) (*BroadcastResult, error) {
	return c.Broadcast(ctx, t.Intent())
}
