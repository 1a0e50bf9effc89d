package worker

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aryan0dhankhar/droplog/internal/repository"
)

type countingSweeper struct {
	calls   atomic.Int32
	removed int
	err     error
}

func (c *countingSweeper) SweepTemp(ctx context.Context, maxAge time.Duration) (int, error) {
	c.calls.Add(1)
	return c.removed, c.err
}

func TestJanitor_RunOnceRemovesStaleTemps(t *testing.T) {
	dir := t.TempDir()
	store, err := repository.NewSQLiteTenantStore(dir, nil)
	require.NoError(t, err)

	stale := filepath.Join(dir, "a1b2c3d4-0000-4000-8000-000000000000.db.tmp-1")
	require.NoError(t, os.WriteFile(stale, nil, 0o644))
	old := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(stale, old, old))

	j := NewJanitor(store, nil, time.Minute)
	assert.Equal(t, 1, j.RunOnce(context.Background()))

	_, err = os.Stat(stale)
	assert.True(t, os.IsNotExist(err))
}

func TestJanitor_SweepErrorIsLoggedNotFatal(t *testing.T) {
	s := &countingSweeper{removed: 2, err: errors.New("permission denied")}
	j := NewJanitor(s, nil, time.Minute)

	assert.Equal(t, 2, j.RunOnce(context.Background()))
}

func TestJanitor_StartStopsOnCancel(t *testing.T) {
	s := &countingSweeper{}
	j := NewJanitor(s, nil, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		j.Start(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return s.calls.Load() >= 2 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("janitor did not stop")
	}
}
