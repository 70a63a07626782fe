// Package transactionSigner turns a transaction intent into a signed,
// submittable transaction for the active login mode.
package transactionSigner

import (
	"context"
	"fmt"

	"github.com/vsc-eco/vsc-client-go/pkg/codec"
	"github.com/vsc-eco/vsc-client-go/pkg/session"
	"github.com/vsc-eco/vsc-client-go/pkg/types"
	"go.uber.org/zap"
)

// ITransactionSigner signs intents for one session.
type ITransactionSigner interface {
	SignTransaction(ctx context.Context, intent *types.TransactionIntent) (*SignedTransaction, error)
}

// SignedTransaction is the outcome of signing. Delegated signers submit on
// their own; then Submitted is set and SubmittedID holds the network id.
// Otherwise Tx and Sig are the base64url forms to submit.
type SignedTransaction struct {
	Envelope *types.Envelope

	Tx  string
	Sig string

	Submitted   bool
	SubmittedID string
}

type SignerConfig struct {
	// FetchNonce is consulted when a session has no cached nonce.
	FetchNonce session.NonceFetcher
	Logger     *zap.Logger
}

// NewTransactionSigner returns the strategy matching the session's mode.
func NewTransactionSigner(s session.Session, cfg *SignerConfig) (ITransactionSigner, error) {
	if cfg == nil {
		cfg = &SignerConfig{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	switch sess := s.(type) {
	case *session.HiveSession:
		return &HiveSigner{session: sess, logger: logger}, nil
	case *session.OffchainSession:
		if cfg.FetchNonce == nil {
			return nil, fmt.Errorf("nonce fetcher is required")
		}
		return &OffchainSigner{session: sess, fetchNonce: cfg.FetchNonce, logger: logger}, nil
	case *session.EvmSession:
		if cfg.FetchNonce == nil {
			return nil, fmt.Errorf("nonce fetcher is required")
		}
		return &EvmSigner{session: sess, fetchNonce: cfg.FetchNonce, logger: logger}, nil
	default:
		return nil, types.ErrSessionNotInitialized
	}
}

// reserveNonce returns the nonce the next transaction must carry.
func reserveNonce(ctx context.Context, tracker *session.NonceTracker, fetch session.NonceFetcher, logger *zap.Logger) (uint64, error) {
	nonce, fetched, err := tracker.Current(ctx, fetch)
	if err != nil {
		return 0, err
	}
	logger.Sugar().Debugw("Resolved nonce",
		"keyGroup", tracker.KeyGroup(),
		"nonce", nonce,
		"fetched", fetched,
	)
	return nonce, nil
}

// encodeBundle renders signature records as base64url DAG-CBOR.
func encodeBundle(records []types.SignatureRecord) (string, error) {
	bundle := &types.SignatureBundle{Sigs: records}
	block, err := codec.Encode(bundle.ToValue())
	if err != nil {
		return "", fmt.Errorf("failed to encode signature bundle: %w", err)
	}
	return codec.BytesToText(block), nil
}
