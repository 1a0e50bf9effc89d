package capability

import (
	"crypto/cipher"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
)

// SealedCodec encrypts the namespace with XChaCha20-Poly1305 under a random
// 24-byte nonce. Token layout is base64url(nonce || ciphertext || tag).
type SealedCodec struct {
	aead cipher.AEAD
}

func NewSealedCodec(secret string) (*SealedCodec, error) {
	key, err := deriveKey(secret, "sealed", chacha20poly1305.KeySize)
	if err != nil {
		return nil, err
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("init cipher: %w", err)
	}
	return &SealedCodec{aead: aead}, nil
}

func (c *SealedCodec) Issue(namespace string) (string, error) {
	ns := c.aead.NonceSize()
	buf := make([]byte, ns, ns+len(namespace)+c.aead.Overhead())
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read nonce: %w", err)
	}
	sealed := c.aead.Seal(buf, buf[:ns], []byte(namespace), nil)
	return base64.RawURLEncoding.EncodeToString(sealed), nil
}

func (c *SealedCodec) Validate(token, namespace string) bool {
	if token == "" {
		return false
	}
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return false
	}
	ns := c.aead.NonceSize()
	if len(raw) < ns+c.aead.Overhead() {
		return false
	}
	plain, err := c.aead.Open(nil, raw[:ns], raw[ns:], nil)
	if err != nil {
		return false
	}
	return subtle.ConstantTimeCompare(plain, []byte(namespace)) == 1
}
