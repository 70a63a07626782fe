package codec

import (
	"encoding/base64"
	"strings"

	"github.com/vsc-eco/vsc-client-go/pkg/types"
)

var stdToURL = strings.NewReplacer("+", "-", "/", "_")

// BytesToText encodes data as unpadded base64url.
func BytesToText(data []byte) string {
	return base64.RawURLEncoding.EncodeToString(data)
}

// TextToBytes decodes base64url text. Standard-alphabet '+' and '/' are read
// as their url-safe counterparts. Padding is optional, but when present it
// must be complete, and unused trailing bits must be zero.
func TextToBytes(text string) ([]byte, error) {
	text = stdToURL.Replace(text)

	enc := base64.RawURLEncoding.Strict()
	if strings.Contains(text, "=") {
		enc = base64.URLEncoding.Strict()
	}
	out, err := enc.DecodeString(text)
	if err != nil {
		return nil, &types.DecodeError{Err: err}
	}
	return out, nil
}
