// Package did provides the decentralized identity handles used by the
// offchain login mode and the helpers that unpack their detached signatures.
package did

import (
	"context"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ipfs/go-cid"
	"github.com/vsc-eco/vsc-client-go/pkg/value"
)

// EvmChainId is the eip155 chain used for did:pkh identities.
const EvmChainId = 1

// IDID is an authenticated decentralized identity able to sign DAG payloads.
type IDID interface {
	// ID is the DID string without a key fragment.
	ID() string
	Authenticated() bool
	// CreateDagJWS encodes payload as DAG-CBOR and signs its CID.
	CreateDagJWS(ctx context.Context, payload value.Value) (*DagJWS, error)
}

// JWSSignature is one signature of a general JWS.
type JWSSignature struct {
	Protected string `json:"protected"`
	Signature string `json:"signature"`
}

// GeneralJWS is the general JSON serialization of a JWS whose payload is a CID.
type GeneralJWS struct {
	Payload    string         `json:"payload"`
	Signatures []JWSSignature `json:"signatures"`
	Link       cid.Cid        `json:"-"`
}

// DagJWS pairs a JWS with the encoded block its payload links to.
type DagJWS struct {
	JWS         GeneralJWS
	LinkedBlock []byte
}

// Compact returns signature i in compact serialization.
func (d *DagJWS) Compact(i int) (string, error) {
	if i < 0 || i >= len(d.JWS.Signatures) {
		return "", fmt.Errorf("signature index %d out of range", i)
	}
	sig := d.JWS.Signatures[i]
	return strings.Join([]string{sig.Protected, d.JWS.Payload, sig.Signature}, "."), nil
}

// PkhDID returns the did:pkh identifier of an EVM address on chainId.
func PkhDID(chainId int, address common.Address) string {
	return fmt.Sprintf("did:pkh:eip155:%d:%s", chainId, address.Hex())
}

// CanonicalSignerID strips the key fragment from a kid.
func CanonicalSignerID(kid string) string {
	id, _, _ := strings.Cut(kid, "#")
	return id
}

// KeyID returns the kid a did:key signs with: the DID followed by its own
// method-specific identifier as fragment.
func KeyID(id string) string {
	parts := strings.Split(id, ":")
	if len(parts) < 3 {
		return id
	}
	return id + "#" + parts[2]
}
