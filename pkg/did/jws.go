package did

import (
	"bytes"
	"encoding/json"
	"fmt"
	"unicode/utf8"

	"github.com/vsc-eco/vsc-client-go/pkg/codec"
	"github.com/vsc-eco/vsc-client-go/pkg/types"
)

// ProtectedHeader is the JWS protected header of a DID signature.
type ProtectedHeader struct {
	Alg string `json:"alg"`
	Kid string `json:"kid"`
}

// EncodeProtectedHeader renders h as base64url JSON with alg before kid.
func EncodeProtectedHeader(h ProtectedHeader) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(h); err != nil {
		return "", fmt.Errorf("failed to encode protected header: %w", err)
	}
	return codec.BytesToText(bytes.TrimRight(buf.Bytes(), "\n")), nil
}

// DecodeProtectedHeader unpacks a base64url protected header.
func DecodeProtectedHeader(protected string) (*ProtectedHeader, error) {
	raw, err := codec.TextToBytes(protected)
	if err != nil {
		return nil, err
	}
	if !utf8.Valid(raw) {
		return nil, &types.DecodeError{Err: fmt.Errorf("protected header is not valid UTF-8")}
	}
	var h ProtectedHeader
	if err := json.Unmarshal(raw, &h); err != nil {
		return nil, &types.DecodeError{Err: fmt.Errorf("protected header is not JSON: %w", err)}
	}
	if h.Alg == "" || h.Kid == "" {
		return nil, &types.DecodeError{Err: fmt.Errorf("protected header lacks alg or kid")}
	}
	return &h, nil
}

// SignatureRecords converts every signature of a DAG-JWS into bundle records.
func SignatureRecords(d *DagJWS) ([]types.SignatureRecord, error) {
	records := make([]types.SignatureRecord, 0, len(d.JWS.Signatures))
	for i, sig := range d.JWS.Signatures {
		h, err := DecodeProtectedHeader(sig.Protected)
		if err != nil {
			return nil, fmt.Errorf("signature %d: %w", i, err)
		}
		records = append(records, types.DIDSignature{
			Alg: h.Alg,
			Kid: CanonicalSignerID(h.Kid),
			Sig: sig.Signature,
		})
	}
	return records, nil
}

// ReassembleJWS rebuilds the DAG-JWS objects a verifier checks from a
// submitted (tx, sig) pair, one per DID signature in the bundle.
func ReassembleJWS(tx, sig string) ([]*DagJWS, error) {
	block, err := codec.TextToBytes(tx)
	if err != nil {
		return nil, err
	}
	sigBlock, err := codec.TextToBytes(sig)
	if err != nil {
		return nil, err
	}
	decoded, err := codec.Decode(sigBlock)
	if err != nil {
		return nil, err
	}
	bundle, err := types.SignatureBundleFromValue(decoded)
	if err != nil {
		return nil, &types.DecodeError{Err: err}
	}
	link, err := codec.ContentIDFromBytes(block)
	if err != nil {
		return nil, err
	}

	var out []*DagJWS
	for _, rec := range bundle.Sigs {
		didSig, ok := rec.(types.DIDSignature)
		if !ok {
			continue
		}
		protected, err := EncodeProtectedHeader(ProtectedHeader{Alg: didSig.Alg, Kid: KeyID(didSig.Kid)})
		if err != nil {
			return nil, err
		}
		out = append(out, &DagJWS{
			JWS: GeneralJWS{
				Payload:    codec.BytesToText(link.Bytes()),
				Signatures: []JWSSignature{{Protected: protected, Signature: didSig.Sig}},
				Link:       link,
			},
			LinkedBlock: block,
		})
	}
	return out, nil
}
