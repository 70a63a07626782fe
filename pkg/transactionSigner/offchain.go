package transactionSigner

import (
	"context"
	"errors"

	"github.com/vsc-eco/vsc-client-go/pkg/codec"
	"github.com/vsc-eco/vsc-client-go/pkg/did"
	"github.com/vsc-eco/vsc-client-go/pkg/envelope"
	"github.com/vsc-eco/vsc-client-go/pkg/session"
	"github.com/vsc-eco/vsc-client-go/pkg/types"
	"go.uber.org/zap"
)

// OffchainSigner signs the envelope's CID with the session DID as a DAG-JWS.
type OffchainSigner struct {
	session    *session.OffchainSession
	fetchNonce session.NonceFetcher
	logger     *zap.Logger
}

func (o *OffchainSigner) SignTransaction(ctx context.Context, intent *types.TransactionIntent) (*SignedTransaction, error) {
	if o.session.DID == nil || o.session.Nonce == nil || !o.session.DID.Authenticated() {
		return nil, types.ErrSessionNotInitialized
	}
	if intent == nil {
		return nil, types.ErrNoIntentSet
	}

	nonce, err := reserveNonce(ctx, o.session.Nonce, o.fetchNonce, o.logger)
	if err != nil {
		return nil, err
	}
	env, err := envelope.Build(intent, envelope.WithNonce(o.session.DID.ID(), nonce))
	if err != nil {
		return nil, err
	}

	dagJWS, err := o.session.DID.CreateDagJWS(ctx, env.ToValue())
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, &types.SigningFailedError{Reason: err.Error()}
	}
	if _, err := o.session.Nonce.Increment(ctx, nonce); err != nil {
		return nil, err
	}

	records, err := did.SignatureRecords(dagJWS)
	if err != nil {
		return nil, err
	}
	sig, err := encodeBundle(records)
	if err != nil {
		return nil, err
	}

	o.logger.Sugar().Debugw("Signed offchain transaction",
		"did", o.session.DID.ID(),
		"nonce", nonce,
		"cid", dagJWS.JWS.Link.String(),
	)
	return &SignedTransaction{
		Envelope: env,
		Tx:       codec.BytesToText(dagJWS.LinkedBlock),
		Sig:      sig,
	}, nil
}
