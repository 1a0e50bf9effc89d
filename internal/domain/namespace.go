package domain

import (
	"context"
	"regexp"
	"time"
)

// namespacePattern matches the canonical 8-4-4-4-12 UUID form only.
// uuid.Parse also accepts urn: and braced forms, which are not namespaces.
var namespacePattern = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)

// Record is one immutable entry in a namespace log
type Record struct {
	ID      int64     `json:"id"`
	Created time.Time `json:"created"`
	Content string    `json:"content"`
}

// IsNamespaceID reports whether s is a well-formed namespace identifier
func IsNamespaceID(s string) bool {
	return namespacePattern.MatchString(s)
}

// ParseNamespaceID validates s and returns it unchanged.
// The identifier is not case-folded: tokens bind to the exact string the
// client used, and the log is keyed the same way.
func ParseNamespaceID(s string) (string, error) {
	if !IsNamespaceID(s) {
		return "", ErrInvalidFormat
	}
	return s, nil
}

// TenantStore persists one append-only record log per namespace.
// Implementations acquire and release their own storage handle per call.
type TenantStore interface {
	Exists(ctx context.Context, namespace string) (bool, error)
	Append(ctx context.Context, namespace, content string) (*Record, error)
	List(ctx context.Context, namespace string) ([]Record, error)
	Destroy(ctx context.Context, namespace string) error
	Ping(ctx context.Context) error
}

// ClaimLedger records which namespaces have had a bearer issued.
// Claim must be atomic: exactly one concurrent caller observes true.
type ClaimLedger interface {
	Claim(ctx context.Context, namespace string) (bool, error)
	Release(ctx context.Context, namespace string) error
	Close() error
}
