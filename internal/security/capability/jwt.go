package capability

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// JWTCodec is the signing alternative to SealedCodec: the namespace travels in
// the subject claim in clear and the token is HMAC-signed instead of encrypted.
// A random token ID keeps issuance non-deterministic. No exp claim is set.
type JWTCodec struct {
	key    []byte
	issuer string
}

func NewJWTCodec(secret, issuer string) (*JWTCodec, error) {
	key, err := deriveKey(secret, "jwt", 32)
	if err != nil {
		return nil, err
	}
	if issuer == "" {
		issuer = "droplog"
	}
	return &JWTCodec{key: key, issuer: issuer}, nil
}

func (c *JWTCodec) Issue(namespace string) (string, error) {
	claims := jwt.RegisteredClaims{
		Subject: namespace,
		Issuer:  c.issuer,
		ID:      uuid.NewString(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.key)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

func (c *JWTCodec) Validate(token, namespace string) bool {
	if token == "" {
		return false
	}
	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return c.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(c.issuer),
	)
	if err != nil || !parsed.Valid {
		return false
	}
	return claims.Subject == namespace
}
