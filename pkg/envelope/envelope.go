// Package envelope wraps transaction intents into versioned containers.
package envelope

import (
	"fmt"

	"github.com/vsc-eco/vsc-client-go/pkg/types"
)

// HeaderShape is the per-mode header data a signing strategy contributes.
type HeaderShape struct {
	RequiredAuth string
	Nonce        *uint64
}

// Build wraps intent in a vsc-tx container.
func Build(intent *types.TransactionIntent, shape HeaderShape) (*types.Envelope, error) {
	if intent == nil {
		return nil, types.ErrNoIntentSet
	}
	var nonce *uint64
	if shape.Nonce != nil {
		n := *shape.Nonce
		if n > types.MaxNonce {
			return nil, fmt.Errorf("%w: %d", types.ErrNonceOutOfRange, n)
		}
		nonce = &n
	}
	return &types.Envelope{
		Version: types.EnvelopeVersion,
		Kind:    types.EnvelopeKind,
		Headers: types.Headers{
			Type:          types.HeaderTypeInput,
			Nonce:         nonce,
			RequiredAuths: []string{shape.RequiredAuth},
		},
		Tx: *intent,
	}, nil
}

// WithNonce returns a shape carrying a copy of nonce.
func WithNonce(requiredAuth string, nonce uint64) HeaderShape {
	return HeaderShape{RequiredAuth: requiredAuth, Nonce: &nonce}
}
