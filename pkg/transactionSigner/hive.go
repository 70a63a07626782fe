package transactionSigner

import (
	"context"

	"github.com/vsc-eco/vsc-client-go/pkg/envelope"
	"github.com/vsc-eco/vsc-client-go/pkg/hive"
	"github.com/vsc-eco/vsc-client-go/pkg/session"
	"github.com/vsc-eco/vsc-client-go/pkg/types"
	"go.uber.org/zap"
)

// HiveSigner hands the envelope to the delegated signer, which signs it as a
// custom_json operation and submits it to Hive itself.
type HiveSigner struct {
	session *session.HiveSession
	logger  *zap.Logger
}

func (h *HiveSigner) SignTransaction(ctx context.Context, intent *types.TransactionIntent) (*SignedTransaction, error) {
	if h.session.Signer == nil {
		return nil, types.ErrSessionNotInitialized
	}
	env, err := envelope.Build(intent, envelope.HeaderShape{RequiredAuth: h.session.Username})
	if err != nil {
		return nil, err
	}

	result := h.session.Signer.SignAndSubmitJSON(ctx, hive.KeyTypePosting, hive.ActionID, env)
	if !result.Success {
		reason := result.Error
		if reason == "" {
			reason = "delegated signer declined"
		}
		return nil, &types.SigningFailedError{Reason: reason}
	}
	h.logger.Sugar().Infow("Delegated signer submitted transaction",
		"username", h.session.Username,
		"id", result.Result,
	)
	return &SignedTransaction{
		Envelope:    env,
		Submitted:   true,
		SubmittedID: result.Result,
	}, nil
}
