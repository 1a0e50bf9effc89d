package repository

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aryan0dhankhar/droplog/pkg/database"
)

func newSQLiteLedger(t *testing.T) *SQLClaimLedger {
	t.Helper()
	ctx := context.Background()
	pool, err := database.NewConnectionPool(ctx, database.SQLiteConfig(filepath.Join(t.TempDir(), "_claims.db")), nil)
	require.NoError(t, err)
	l, err := NewSQLClaimLedger(ctx, pool, nil)
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })
	return l
}

func exerciseLedger(t *testing.T, l *SQLClaimLedger, ns string) {
	ctx := context.Background()

	ok, err := l.Claim(ctx, ns)
	require.NoError(t, err)
	assert.True(t, ok, "first claim wins")

	ok, err = l.Claim(ctx, ns)
	require.NoError(t, err)
	assert.False(t, ok, "second claim loses")

	require.NoError(t, l.Release(ctx, ns))

	ok, err = l.Claim(ctx, ns)
	require.NoError(t, err)
	assert.True(t, ok, "released namespace can be claimed again")
	require.NoError(t, l.Release(ctx, ns))
}

func TestSQLiteClaimLedger(t *testing.T) {
	exerciseLedger(t, newSQLiteLedger(t), testNS)
}

func TestSQLiteClaimLedger_ConcurrentClaims(t *testing.T) {
	l := newSQLiteLedger(t)
	ctx := context.Background()

	var winners atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := l.Claim(ctx, testNS)
			assert.NoError(t, err)
			if ok {
				winners.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), winners.Load())
}

func TestPostgresClaimLedger(t *testing.T) {
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	pool, err := database.NewConnectionPool(ctx, database.PostgresConfig(dsn), nil)
	require.NoError(t, err)
	l, err := NewSQLClaimLedger(ctx, pool, nil)
	require.NoError(t, err)
	defer l.Close()

	exerciseLedger(t, l, uuid.NewString())
}
