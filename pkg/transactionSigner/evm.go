package transactionSigner

import (
	"context"
	"errors"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/vsc-eco/vsc-client-go/pkg/codec"
	"github.com/vsc-eco/vsc-client-go/pkg/eip712"
	"github.com/vsc-eco/vsc-client-go/pkg/envelope"
	"github.com/vsc-eco/vsc-client-go/pkg/session"
	"github.com/vsc-eco/vsc-client-go/pkg/types"
	"go.uber.org/zap"
)

// EvmSigner signs the EIP-712 digest of the envelope as an EIP-191 personal
// message.
type EvmSigner struct {
	session    *session.EvmSession
	fetchNonce session.NonceFetcher
	logger     *zap.Logger
}

func (e *EvmSigner) SignTransaction(ctx context.Context, intent *types.TransactionIntent) (*SignedTransaction, error) {
	if e.session.Account == nil || e.session.Nonce == nil {
		return nil, types.ErrSessionNotInitialized
	}
	if intent == nil {
		return nil, types.ErrNoIntentSet
	}

	nonce, err := reserveNonce(ctx, e.session.Nonce, e.fetchNonce, e.logger)
	if err != nil {
		return nil, err
	}
	env, err := envelope.Build(intent, envelope.WithNonce(e.session.RequiredAuth(), nonce))
	if err != nil {
		return nil, err
	}

	block, err := codec.Encode(env.ToValue())
	if err != nil {
		return nil, err
	}
	// Hash what the node will decode, not the in-memory form.
	normalized, err := codec.Decode(block)
	if err != nil {
		return nil, err
	}
	typed, err := eip712.Derive(normalized, eip712.DefaultPrimaryType)
	if err != nil {
		return nil, err
	}
	digest, err := typed.Hash()
	if err != nil {
		return nil, err
	}

	signature, err := e.session.Account.SignMessage(ctx, digest)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, &types.SigningFailedError{Reason: err.Error()}
	}
	if _, err := e.session.Nonce.Increment(ctx, nonce); err != nil {
		return nil, err
	}

	sig, err := encodeBundle([]types.SignatureRecord{
		types.EIP191Signature{S: hexutil.Encode(signature)},
	})
	if err != nil {
		return nil, err
	}

	e.logger.Sugar().Debugw("Signed evm transaction",
		"address", e.session.Account.Address().Hex(),
		"nonce", nonce,
		"digest", hexutil.Encode(digest),
	)
	return &SignedTransaction{
		Envelope: env,
		Tx:       codec.BytesToText(block),
		Sig:      sig,
	}, nil
}
