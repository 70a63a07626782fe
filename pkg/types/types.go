// Package types holds the wire-level data model shared by the signing
// strategies, the submission client and the public client API.
package types

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/vsc-eco/vsc-client-go/pkg/value"
)

const (
	EnvelopeVersion = "0.2"
	EnvelopeKind    = "vsc-tx"
	SignatureKind   = "vsc-sig"

	OpCallContract = "call_contract"

	// EIP191SignatureType tags an EVM signature record.
	EIP191SignatureType = "eip191"
)

// MaxNonce is the largest nonce a header can carry; headers encode it as a
// signed 64-bit integer.
const MaxNonce uint64 = math.MaxInt64

// LoginMode identifies the authentication substrate of a session.
type LoginMode string

const (
	LoginModeUnset    LoginMode = "unset"
	LoginModeHive     LoginMode = "hive"
	LoginModeOffchain LoginMode = "offchain"
	LoginModeEvm      LoginMode = "evm"
)

func (m LoginMode) String() string {
	return string(m)
}

// RequiresNonce reports whether envelopes built in this mode carry a nonce.
func (m LoginMode) RequiresNonce() bool {
	return m == LoginModeOffchain || m == LoginModeEvm
}

// HeaderType is the network's transaction type enum. Only input transactions
// are produced by this client.
type HeaderType int64

const (
	HeaderTypeNull  HeaderType = 0
	HeaderTypeInput HeaderType = 1
)

func (t HeaderType) String() string {
	switch t {
	case HeaderTypeNull:
		return "null"
	case HeaderTypeInput:
		return "input"
	default:
		return fmt.Sprintf("HeaderType(%d)", int64(t))
	}
}

// TransactionIntent is the chain-agnostic operation a caller wants executed.
type TransactionIntent struct {
	Op         string
	Action     string
	ContractID string
	Payload    value.Value
}

// NewCallContractIntent builds a call_contract intent.
func NewCallContractIntent(contractID, action string, payload value.Value) *TransactionIntent {
	return &TransactionIntent{
		Op:         OpCallContract,
		Action:     action,
		ContractID: contractID,
		Payload:    payload,
	}
}

func (i *TransactionIntent) ToValue() value.Object {
	payload := i.Payload
	if payload == nil {
		payload = value.Null{}
	}
	return value.Object{
		{Key: "op", Value: value.String(i.Op)},
		{Key: "action", Value: value.String(i.Action)},
		{Key: "contract_id", Value: value.String(i.ContractID)},
		{Key: "payload", Value: payload},
	}
}

type Headers struct {
	Type          HeaderType
	Nonce         *uint64
	RequiredAuths []string
}

// Envelope is the versioned transaction container that gets signed.
type Envelope struct {
	Version string
	Kind    string
	Headers Headers
	Tx      TransactionIntent
}

// ToValue renders the envelope in its wire layout.
func (e *Envelope) ToValue() value.Object {
	headers := value.Object{{Key: "type", Value: value.Int(e.Headers.Type)}}
	if e.Headers.Nonce != nil {
		headers = append(headers, value.Field{Key: "nonce", Value: value.Int(int64(*e.Headers.Nonce))})
	}
	auths := make(value.Array, 0, len(e.Headers.RequiredAuths))
	for _, a := range e.Headers.RequiredAuths {
		auths = append(auths, value.String(a))
	}
	headers = append(headers, value.Field{Key: "required_auths", Value: auths})

	return value.Object{
		{Key: "__v", Value: value.String(e.Version)},
		{Key: "__t", Value: value.String(e.Kind)},
		{Key: "headers", Value: headers},
		{Key: "tx", Value: e.Tx.ToValue()},
	}
}

func (e *Envelope) MarshalJSON() ([]byte, error) {
	return json.Marshal(e.ToValue())
}

// EnvelopeFromValue parses a decoded envelope.
func EnvelopeFromValue(v value.Value) (*Envelope, error) {
	obj, ok := v.(value.Object)
	if !ok {
		return nil, fmt.Errorf("envelope must be an object, got %s", value.KindOf(v))
	}
	env := &Envelope{}
	var err error
	if env.Version, err = stringField(obj, "__v"); err != nil {
		return nil, err
	}
	if env.Kind, err = stringField(obj, "__t"); err != nil {
		return nil, err
	}

	headersVal, ok := obj.Get("headers")
	if !ok {
		return nil, fmt.Errorf("envelope is missing headers")
	}
	headers, ok := headersVal.(value.Object)
	if !ok {
		return nil, fmt.Errorf("headers must be an object, got %s", value.KindOf(headersVal))
	}
	headerType, err := intField(headers, "type")
	if err != nil {
		return nil, err
	}
	env.Headers.Type = HeaderType(headerType)
	if _, present := headers.Get("nonce"); present {
		nonce, err := intField(headers, "nonce")
		if err != nil {
			return nil, err
		}
		if nonce < 0 {
			return nil, fmt.Errorf("nonce %d is negative", nonce)
		}
		n := uint64(nonce)
		env.Headers.Nonce = &n
	}
	authsVal, ok := headers.Get("required_auths")
	if !ok {
		return nil, fmt.Errorf("headers are missing required_auths")
	}
	auths, ok := authsVal.(value.Array)
	if !ok {
		return nil, fmt.Errorf("required_auths must be an array, got %s", value.KindOf(authsVal))
	}
	for _, a := range auths {
		s, ok := a.(value.String)
		if !ok {
			return nil, fmt.Errorf("required_auths entries must be strings, got %s", value.KindOf(a))
		}
		env.Headers.RequiredAuths = append(env.Headers.RequiredAuths, string(s))
	}

	txVal, ok := obj.Get("tx")
	if !ok {
		return nil, fmt.Errorf("envelope is missing tx")
	}
	tx, ok := txVal.(value.Object)
	if !ok {
		return nil, fmt.Errorf("tx must be an object, got %s", value.KindOf(txVal))
	}
	if env.Tx.Op, err = stringField(tx, "op"); err != nil {
		return nil, err
	}
	if env.Tx.Action, err = stringField(tx, "action"); err != nil {
		return nil, err
	}
	if env.Tx.ContractID, err = stringField(tx, "contract_id"); err != nil {
		return nil, err
	}
	env.Tx.Payload, _ = tx.Get("payload")
	return env, nil
}

// SignatureRecord is one entry of a signature bundle: DIDSignature or EIP191Signature.
type SignatureRecord interface {
	ToValue() value.Object
	isSignatureRecord()
}

// DIDSignature is a detached JWS signature made by a DID.
type DIDSignature struct {
	Alg string
	Kid string
	Sig string
}

func (DIDSignature) isSignatureRecord() {}

func (s DIDSignature) ToValue() value.Object {
	return value.Object{
		{Key: "alg", Value: value.String(s.Alg)},
		{Key: "kid", Value: value.String(s.Kid)},
		{Key: "sig", Value: value.String(s.Sig)},
	}
}

// EIP191Signature is a 0x-prefixed personal-sign signature over the typed-data hash.
type EIP191Signature struct {
	S string
}

func (EIP191Signature) isSignatureRecord() {}

func (s EIP191Signature) ToValue() value.Object {
	return value.Object{
		{Key: "t", Value: value.String(EIP191SignatureType)},
		{Key: "s", Value: value.String(s.S)},
	}
}

type SignatureBundle struct {
	Sigs []SignatureRecord
}

func (b *SignatureBundle) ToValue() value.Object {
	sigs := make(value.Array, 0, len(b.Sigs))
	for _, s := range b.Sigs {
		sigs = append(sigs, s.ToValue())
	}
	return value.Object{
		{Key: "__t", Value: value.String(SignatureKind)},
		{Key: "sigs", Value: sigs},
	}
}

// SignatureBundleFromValue parses a decoded signature bundle.
func SignatureBundleFromValue(v value.Value) (*SignatureBundle, error) {
	obj, ok := v.(value.Object)
	if !ok {
		return nil, fmt.Errorf("signature bundle must be an object, got %s", value.KindOf(v))
	}
	kind, err := stringField(obj, "__t")
	if err != nil {
		return nil, err
	}
	if kind != SignatureKind {
		return nil, fmt.Errorf("unexpected signature bundle kind %q", kind)
	}
	sigsVal, ok := obj.Get("sigs")
	if !ok {
		return nil, fmt.Errorf("signature bundle is missing sigs")
	}
	sigs, ok := sigsVal.(value.Array)
	if !ok {
		return nil, fmt.Errorf("sigs must be an array, got %s", value.KindOf(sigsVal))
	}

	bundle := &SignatureBundle{}
	for i, item := range sigs {
		rec, ok := item.(value.Object)
		if !ok {
			return nil, fmt.Errorf("sigs[%d] must be an object", i)
		}
		if t, present := rec.Get("t"); present && t == value.String(EIP191SignatureType) {
			s, err := stringField(rec, "s")
			if err != nil {
				return nil, fmt.Errorf("sigs[%d]: %w", i, err)
			}
			bundle.Sigs = append(bundle.Sigs, EIP191Signature{S: s})
			continue
		}
		var sig DIDSignature
		if sig.Alg, err = stringField(rec, "alg"); err != nil {
			return nil, fmt.Errorf("sigs[%d]: %w", i, err)
		}
		if sig.Kid, err = stringField(rec, "kid"); err != nil {
			return nil, fmt.Errorf("sigs[%d]: %w", i, err)
		}
		if sig.Sig, err = stringField(rec, "sig"); err != nil {
			return nil, fmt.Errorf("sigs[%d]: %w", i, err)
		}
		bundle.Sigs = append(bundle.Sigs, sig)
	}
	return bundle, nil
}

func stringField(obj value.Object, key string) (string, error) {
	v, ok := obj.Get(key)
	if !ok {
		return "", fmt.Errorf("missing field %q", key)
	}
	s, ok := v.(value.String)
	if !ok {
		return "", fmt.Errorf("field %q must be a string, got %s", key, value.KindOf(v))
	}
	return string(s), nil
}

func intField(obj value.Object, key string) (int64, error) {
	v, ok := obj.Get(key)
	if !ok {
		return 0, fmt.Errorf("missing field %q", key)
	}
	switch n := v.(type) {
	case value.Int:
		return int64(n), nil
	case value.Float:
		f := float64(n)
		if f != math.Trunc(f) {
			return 0, fmt.Errorf("field %q must be an integer, got %v", key, f)
		}
		return int64(f), nil
	default:
		return 0, fmt.Errorf("field %q must be a number, got %s", key, value.KindOf(v))
	}
}
