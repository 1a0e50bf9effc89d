package repository

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aryan0dhankhar/droplog/internal/domain"
	"github.com/aryan0dhankhar/droplog/pkg/database"
)

const claimSchema = `
	CREATE TABLE IF NOT EXISTS namespace_claims (
		namespace TEXT PRIMARY KEY,
		claimed_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)
`

// SQLClaimLedger records issued bearers in a namespace_claims table.
// Works on both the Postgres and SQLite pools from pkg/database.
type SQLClaimLedger struct {
	pool   *database.ConnectionPool
	logger *slog.Logger
}

// NewSQLClaimLedger creates the claims table if missing
func NewSQLClaimLedger(ctx context.Context, pool *database.ConnectionPool, logger *slog.Logger) (*SQLClaimLedger, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if _, err := pool.GetDB().ExecContext(ctx, claimSchema); err != nil {
		return nil, fmt.Errorf("create claim table: %w", err)
	}
	return &SQLClaimLedger{pool: pool, logger: logger}, nil
}

func (l *SQLClaimLedger) placeholder() string {
	if l.pool.Driver() == "postgres" {
		return "$1"
	}
	return "?"
}

// Claim inserts the namespace; only the caller whose insert lands sees true
func (l *SQLClaimLedger) Claim(ctx context.Context, namespace string) (bool, error) {
	query := fmt.Sprintf(`INSERT INTO namespace_claims (namespace) VALUES (%s) ON CONFLICT DO NOTHING`, l.placeholder())
	res, err := l.pool.GetDB().ExecContext(ctx, query, namespace)
	if err != nil {
		return false, fmt.Errorf("claim: %w: %w", domain.ErrStorage, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("claim rows affected: %w: %w", domain.ErrStorage, err)
	}
	return n == 1, nil
}

// Release forgets the claim so a destroyed namespace can be claimed again
func (l *SQLClaimLedger) Release(ctx context.Context, namespace string) error {
	query := fmt.Sprintf(`DELETE FROM namespace_claims WHERE namespace = %s`, l.placeholder())
	if _, err := l.pool.GetDB().ExecContext(ctx, query, namespace); err != nil {
		return fmt.Errorf("release claim: %w: %w", domain.ErrStorage, err)
	}
	return nil
}

// Close closes the underlying pool
func (l *SQLClaimLedger) Close() error {
	return l.pool.Close()
}
