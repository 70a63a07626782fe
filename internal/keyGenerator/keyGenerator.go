// Package keyGenerator provisions the keys the client signs with: did:key
// seeds and secp256k1 accounts, held locally or in AWS KMS.
package keyGenerator

import (
	"context"
	"errors"

	"github.com/ethereum/go-ethereum/common"
	"github.com/vsc-eco/vsc-client-go/pkg/did"
)

type GeneratedKey struct {
	KeyId string
	// Secret is the hex private key or seed. Empty when the key never leaves
	// its custodian.
	Secret string
	// Address is zero for did:key identities.
	Address common.Address
	// DID is the identifier the key signs VSC transactions as.
	DID string
}

// IsEvm reports whether the key is a secp256k1 account.
func (g *GeneratedKey) IsEvm() bool {
	return g.Address != (common.Address{})
}

// NewEvmKey describes a secp256k1 key and its did:pkh identity.
func NewEvmKey(keyId, secret string, address common.Address) *GeneratedKey {
	return &GeneratedKey{
		KeyId:   keyId,
		Secret:  secret,
		Address: address,
		DID:     did.PkhDID(did.EvmChainId, address),
	}
}

type IKeyGenerator interface {
	GenerateEvmKey(ctx context.Context, keyName string, aliasName string) (*GeneratedKey, error)
	GetEvmKeyById(ctx context.Context, keyId string) (*GeneratedKey, error)
}

// ErrKeyNotFound is returned for key ids the generator does not hold.
var ErrKeyNotFound = errors.New("key not found")
