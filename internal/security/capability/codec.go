// Package capability mints and checks namespace bearer tokens.
//
// A token is valid for a namespace iff it decodes under the process secret to
// exactly that namespace string. Tokens carry no expiry and no holder binding,
// and anyone holding the secret can mint them offline.
package capability

import (
	"crypto/sha256"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/hkdf"
)

// Scheme names accepted by New
const (
	SchemeSealed = "sealed"
	SchemeJWT    = "jwt"
)

// Codec is the key-management boundary between the gateway and the token format
type Codec interface {
	// Issue returns a fresh token for namespace. Repeated calls return
	// different strings that all validate.
	Issue(namespace string) (string, error)
	// Validate never panics; any decode failure reports false.
	Validate(token, namespace string) bool
}

// New builds the codec for scheme keyed by secret
func New(scheme, secret string) (Codec, error) {
	switch scheme {
	case "", SchemeSealed:
		return NewSealedCodec(secret)
	case SchemeJWT:
		return NewJWTCodec(secret, "droplog")
	default:
		return nil, fmt.Errorf("unknown token scheme %q", scheme)
	}
}

// ExtractToken strips an optional "Bearer " prefix from an Authorization header value
func ExtractToken(authHeader string) string {
	v := strings.TrimSpace(authHeader)
	if len(v) > 7 && strings.EqualFold(v[:7], "bearer ") {
		v = strings.TrimSpace(v[7:])
	}
	return v
}

func deriveKey(secret, purpose string, size int) ([]byte, error) {
	if secret == "" {
		return nil, fmt.Errorf("token secret required")
	}
	key := make([]byte, size)
	if _, err := io.ReadFull(hkdf.New(sha256.New, []byte(secret), nil, []byte("droplog "+purpose)), key); err != nil {
		return nil, fmt.Errorf("derive %s key: %w", purpose, err)
	}
	return key, nil
}
