package did

import (
	"context"
	"crypto/ed25519"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/lestrrat-go/jwx/v3/jwa"
	"github.com/lestrrat-go/jwx/v3/jws"
	"github.com/multiformats/go-multibase"
	"github.com/multiformats/go-multicodec"
	"github.com/multiformats/go-varint"
	"github.com/vsc-eco/vsc-client-go/pkg/codec"
	"github.com/vsc-eco/vsc-client-go/pkg/value"
)

const keyDIDPrefix = "did:key:"

// KeyDID is an Ed25519 did:key identity.
type KeyDID struct {
	id         string
	privateKey ed25519.PrivateKey
}

// NewKeyDIDFromSeed derives a did:key from a 32 byte Ed25519 seed.
func NewKeyDIDFromSeed(seed []byte) (*KeyDID, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("seed must be %d bytes, got %d", ed25519.SeedSize, len(seed))
	}
	priv := ed25519.NewKeyFromSeed(seed)
	id, err := encodeKeyDID(priv.Public().(ed25519.PublicKey))
	if err != nil {
		return nil, err
	}
	return &KeyDID{id: id, privateKey: priv}, nil
}

// NewKeyDIDFromHex derives a did:key from a hex encoded seed.
func NewKeyDIDFromHex(seedHex string) (*KeyDID, error) {
	seed, err := hex.DecodeString(strings.TrimPrefix(seedHex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid seed hex: %w", err)
	}
	return NewKeyDIDFromSeed(seed)
}

func (k *KeyDID) ID() string {
	return k.id
}

func (k *KeyDID) Authenticated() bool {
	return k.privateKey != nil
}

func (k *KeyDID) PublicKey() ed25519.PublicKey {
	return k.privateKey.Public().(ed25519.PublicKey)
}

// CreateDagJWS signs the CID of the DAG-CBOR encoding of payload.
func (k *KeyDID) CreateDagJWS(ctx context.Context, payload value.Value) (*DagJWS, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	block, err := codec.Encode(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode payload: %w", err)
	}
	link, err := codec.ContentIDFromBytes(block)
	if err != nil {
		return nil, err
	}

	kid := KeyID(k.id)
	headers := jws.NewHeaders()
	if err := headers.Set(jws.KeyIDKey, kid); err != nil {
		return nil, fmt.Errorf("failed to set kid header: %w", err)
	}
	signed, err := jws.Sign(link.Bytes(), jws.WithKey(jwa.EdDSA(), k.privateKey, jws.WithProtectedHeaders(headers)))
	if err != nil {
		return nil, fmt.Errorf("failed to sign payload: %w", err)
	}

	parts := strings.Split(string(signed), ".")
	if len(parts) != 3 {
		return nil, fmt.Errorf("unexpected compact JWS with %d segments", len(parts))
	}
	expected, err := EncodeProtectedHeader(ProtectedHeader{Alg: jwa.EdDSA().String(), Kid: kid})
	if err != nil {
		return nil, err
	}
	if parts[0] != expected {
		return nil, fmt.Errorf("protected header %q does not match canonical form", parts[0])
	}

	return &DagJWS{
		JWS: GeneralJWS{
			Payload:    parts[1],
			Signatures: []JWSSignature{{Protected: parts[0], Signature: parts[2]}},
			Link:       link,
		},
		LinkedBlock: block,
	}, nil
}

func encodeKeyDID(pub ed25519.PublicKey) (string, error) {
	data := append(varint.ToUvarint(uint64(multicodec.Ed25519Pub)), pub...)
	encoded, err := multibase.Encode(multibase.Base58BTC, data)
	if err != nil {
		return "", fmt.Errorf("failed to encode did:key: %w", err)
	}
	return keyDIDPrefix + encoded, nil
}

// PublicKeyFromKeyDID extracts the Ed25519 public key of a did:key, with or
// without a key fragment.
func PublicKeyFromKeyDID(id string) (ed25519.PublicKey, error) {
	id = CanonicalSignerID(id)
	if !strings.HasPrefix(id, keyDIDPrefix) {
		return nil, fmt.Errorf("%q is not a did:key", id)
	}
	_, data, err := multibase.Decode(strings.TrimPrefix(id, keyDIDPrefix))
	if err != nil {
		return nil, fmt.Errorf("invalid did:key encoding: %w", err)
	}
	code, n, err := varint.FromUvarint(data)
	if err != nil {
		return nil, fmt.Errorf("invalid did:key multicodec prefix: %w", err)
	}
	if multicodec.Code(code) != multicodec.Ed25519Pub {
		return nil, fmt.Errorf("unsupported did:key key type %s", multicodec.Code(code))
	}
	pub := data[n:]
	if len(pub) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("did:key public key must be %d bytes, got %d", ed25519.PublicKeySize, len(pub))
	}
	return ed25519.PublicKey(pub), nil
}
