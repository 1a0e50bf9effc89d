package repository

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aryan0dhankhar/droplog/internal/domain"
	"github.com/aryan0dhankhar/droplog/internal/reliability/circuitbreaker"
)

// brokenStore fails every call, Ping included
type brokenStore struct {
	calls int
	pings int
}

func (b *brokenStore) fail() error {
	b.calls++
	return fmt.Errorf("disk gone: %w", domain.ErrStorage)
}

func (b *brokenStore) Exists(ctx context.Context, ns string) (bool, error) { return false, b.fail() }
func (b *brokenStore) Append(ctx context.Context, ns, c string) (*domain.Record, error) {
	return nil, b.fail()
}
func (b *brokenStore) List(ctx context.Context, ns string) ([]domain.Record, error) {
	return nil, b.fail()
}
func (b *brokenStore) Destroy(ctx context.Context, ns string) error { return b.fail() }
func (b *brokenStore) Ping(ctx context.Context) error {
	b.pings++
	return fmt.Errorf("data dir not writable")
}

// damagedLogStore fails every call for one namespace and delegates the rest
type damagedLogStore struct {
	domain.TenantStore
	damaged string
}

func (d *damagedLogStore) Append(ctx context.Context, ns, c string) (*domain.Record, error) {
	if ns == d.damaged {
		return nil, fmt.Errorf("insert record: attempt to write a readonly database: %w", domain.ErrStorage)
	}
	return d.TenantStore.Append(ctx, ns, c)
}

func (d *damagedLogStore) List(ctx context.Context, ns string) ([]domain.Record, error) {
	if ns == d.damaged {
		return nil, fmt.Errorf("list: disk I/O error: %w", domain.ErrStorage)
	}
	return d.TenantStore.List(ctx, ns)
}

func TestGuardedStore_PassesThrough(t *testing.T) {
	g := NewGuardedStore(createTestStore(t), nil, nil)
	ctx := context.Background()

	rec, err := g.Append(ctx, testNS, "via guard")
	require.NoError(t, err)
	assert.Equal(t, int64(1), rec.ID)

	exists, err := g.Exists(ctx, testNS)
	require.NoError(t, err)
	assert.True(t, exists)

	recs, err := g.List(ctx, testNS)
	require.NoError(t, err)
	assert.Len(t, recs, 1)

	require.NoError(t, g.Destroy(ctx, testNS))
	assert.NoError(t, g.Ping(ctx))
}

func TestGuardedStore_OpensOnStorageFailures(t *testing.T) {
	inner := &brokenStore{}
	g := NewGuardedStore(inner, circuitbreaker.NewCircuitBreaker(2, 1, time.Minute), nil)
	ctx := context.Background()

	_, err := g.List(ctx, testNS)
	assert.ErrorIs(t, err, domain.ErrStorage)
	_, err = g.Append(ctx, testNS, "x")
	assert.ErrorIs(t, err, domain.ErrStorage)

	_, err = g.Exists(ctx, testNS)
	assert.ErrorIs(t, err, domain.ErrStorageUnavailable)
	assert.Equal(t, 2, inner.calls, "open breaker must not reach the store")
	assert.Equal(t, 2, inner.pings)
}

func TestGuardedStore_NamespaceFaultsDoNotOpenBreaker(t *testing.T) {
	breaker := circuitbreaker.NewCircuitBreaker(2, 1, time.Minute)
	inner := &damagedLogStore{TenantStore: createTestStore(t), damaged: testNS}
	g := NewGuardedStore(inner, breaker, nil)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		_, err := g.Append(ctx, testNS, "x")
		require.ErrorIs(t, err, domain.ErrStorage)
		assert.NotErrorIs(t, err, domain.ErrStorageUnavailable)
		_, err = g.List(ctx, testNS)
		require.ErrorIs(t, err, domain.ErrStorage)
	}
	assert.Equal(t, circuitbreaker.StateClosed, breaker.GetState())

	rec, err := g.Append(ctx, testOtherNS, "still here")
	require.NoError(t, err)
	assert.Equal(t, int64(1), rec.ID)
	recs, err := g.List(ctx, testOtherNS)
	require.NoError(t, err)
	assert.Len(t, recs, 1)
}

func TestGuardedStore_AppendDestroyChurnLeavesOthersAvailable(t *testing.T) {
	breaker := circuitbreaker.NewCircuitBreaker(5, 1, time.Minute)
	g := NewGuardedStore(createTestStore(t), breaker, nil)
	ctx := context.Background()

	_, err := g.Append(ctx, testOtherNS, "bystander")
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _ = g.Append(ctx, testNS, "churn")
		}()
		go func() {
			defer wg.Done()
			_ = g.Destroy(ctx, testNS)
		}()
	}
	wg.Wait()

	assert.Equal(t, circuitbreaker.StateClosed, breaker.GetState())
	recs, err := g.List(ctx, testOtherNS)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "bystander", recs[0].Content)
}
