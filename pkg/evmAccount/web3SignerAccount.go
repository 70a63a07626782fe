package evmAccount

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"
	"github.com/vsc-eco/vsc-client-go/pkg/clients/web3signer"
	"go.uber.org/zap"
)

// Web3SignerAccount signs through a remote Web3Signer using eth_sign.
type Web3SignerAccount struct {
	logger  *zap.Logger
	client  web3signer.IWeb3Signer
	address common.Address
}

// NewWeb3SignerAccount confirms that the signer holds a key for address.
func NewWeb3SignerAccount(ctx context.Context, client web3signer.IWeb3Signer, address common.Address, logger *zap.Logger) (*Web3SignerAccount, error) {
	if client == nil {
		return nil, fmt.Errorf("web3signer client is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	ok, err := client.HasAccount(ctx, address.Hex())
	if err != nil {
		return nil, errors.Wrap(err, "failed to list web3signer accounts")
	}
	if !ok {
		return nil, fmt.Errorf("web3signer has no key for %s", address.Hex())
	}
	logger.Sugar().Infow("Using web3signer account", "address", address.Hex())
	return &Web3SignerAccount{
		logger:  logger,
		client:  client,
		address: address,
	}, nil
}

func (w *Web3SignerAccount) Address() common.Address {
	return w.address
}

func (w *Web3SignerAccount) SignMessage(ctx context.Context, data []byte) ([]byte, error) {
	sigHex, err := w.client.EthSign(ctx, w.address.Hex(), hexutil.Encode(data))
	if err != nil {
		return nil, errors.Wrap(err, "web3signer eth_sign failed")
	}
	sig, err := hexutil.Decode(sigHex)
	if err != nil {
		return nil, errors.Wrap(err, "web3signer returned a malformed signature")
	}
	if len(sig) != crypto.SignatureLength {
		return nil, fmt.Errorf("web3signer signature must be %d bytes, got %d", crypto.SignatureLength, len(sig))
	}
	if sig[64] < 27 {
		sig[64] += 27
	}

	signer, err := RecoverMessageSigner(data, sig)
	if err != nil {
		return nil, err
	}
	if signer != w.address {
		return nil, fmt.Errorf("web3signer signed with %s, expected %s", signer.Hex(), w.address.Hex())
	}
	return sig, nil
}
