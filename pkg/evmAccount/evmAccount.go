// Package evmAccount provides the Ethereum accounts used by the evm login mode.
package evmAccount

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// IEvmAccount is an Ethereum account able to produce personal-message signatures.
type IEvmAccount interface {
	Address() common.Address
	// SignMessage signs data as an EIP-191 personal message
	// ("\x19Ethereum Signed Message:\n" + len(data) + data) and returns
	// r || s || v with v in {27, 28}.
	SignMessage(ctx context.Context, data []byte) ([]byte, error)
}

// RecoverMessageSigner returns the address that produced an EIP-191 signature over data.
func RecoverMessageSigner(data []byte, signature []byte) (common.Address, error) {
	if len(signature) != crypto.SignatureLength {
		return common.Address{}, fmt.Errorf("signature must be %d bytes, got %d", crypto.SignatureLength, len(signature))
	}
	sig := make([]byte, len(signature))
	copy(sig, signature)
	if sig[64] >= 27 {
		sig[64] -= 27
	}
	pub, err := crypto.SigToPub(accounts.TextHash(data), sig)
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to recover signer: %w", err)
	}
	return crypto.PubkeyToAddress(*pub), nil
}

// PrivateKeyAccount signs with an in-memory private key.
type PrivateKeyAccount struct {
	key     *ecdsa.PrivateKey
	address common.Address
}

// NewPrivateKeyAccount parses a hex secret, with or without 0x prefix.
func NewPrivateKeyAccount(secretHex string) (*PrivateKeyAccount, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(secretHex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}
	return NewPrivateKeyAccountFromKey(key), nil
}

func NewPrivateKeyAccountFromKey(key *ecdsa.PrivateKey) *PrivateKeyAccount {
	return &PrivateKeyAccount{
		key:     key,
		address: crypto.PubkeyToAddress(key.PublicKey),
	}
}

func (p *PrivateKeyAccount) Address() common.Address {
	return p.address
}

func (p *PrivateKeyAccount) SignMessage(ctx context.Context, data []byte) ([]byte, error) {
	return p.SignHash(ctx, accounts.TextHash(data))
}

// SignHash signs a 32 byte digest without any prefix.
func (p *PrivateKeyAccount) SignHash(_ context.Context, hash []byte) ([]byte, error) {
	if len(hash) != common.HashLength {
		return nil, fmt.Errorf("hash must be exactly %d bytes, got %d", common.HashLength, len(hash))
	}
	sig, err := crypto.Sign(hash, p.key)
	if err != nil {
		return nil, fmt.Errorf("failed to sign hash: %w", err)
	}
	sig[64] += 27
	return sig, nil
}
