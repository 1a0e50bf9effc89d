package repository

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/aryan0dhankhar/droplog/internal/domain"
	"github.com/aryan0dhankhar/droplog/internal/observability/metrics"
	"github.com/aryan0dhankhar/droplog/internal/observability/tracing"
	"github.com/aryan0dhankhar/droplog/internal/reliability/circuitbreaker"
)

const pingTimeout = 2 * time.Second

// GuardedStore wraps a TenantStore with a circuit breaker, a span and a
// latency metric per call. Calls are never retried. Only storage errors
// confirmed by a failing Ping count as breaker failures.
type GuardedStore struct {
	inner   domain.TenantStore
	breaker *circuitbreaker.CircuitBreaker
	logger  *slog.Logger
}

// NewGuardedStore wraps inner; a nil breaker gets a 5-failure / 30s default
func NewGuardedStore(inner domain.TenantStore, breaker *circuitbreaker.CircuitBreaker, logger *slog.Logger) *GuardedStore {
	if logger == nil {
		logger = slog.Default()
	}
	if breaker == nil {
		breaker = circuitbreaker.NewCircuitBreaker(5, 1, 30*time.Second)
	}
	breaker.SetStateChangeCallback(func(from, to circuitbreaker.State) {
		metrics.SetBreakerState(int(to))
		logger.Warn("tenant store breaker state changed",
			slog.String("from", from.String()),
			slog.String("to", to.String()),
		)
	})
	return &GuardedStore{inner: inner, breaker: breaker, logger: logger}
}

func (g *GuardedStore) run(ctx context.Context, op, namespace string, fn func(ctx context.Context) error) error {
	ctx, span := tracing.Tracer().Start(ctx, "store."+op)
	defer span.End()
	span.SetAttributes(attribute.String("droplog.namespace", namespace))

	start := time.Now()
	err := g.breaker.Execute(func() error { return fn(ctx) }, func(err error) bool {
		return g.backendFault(ctx, namespace, err)
	})
	metrics.ObserveStore(op, time.Since(start))

	if errors.Is(err, circuitbreaker.ErrOpen) {
		err = domain.ErrStorageUnavailable
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

// backendFault reports whether err means the whole backend is unhealthy.
// Errors confined to one namespace's log leave Ping healthy and do not count.
func (g *GuardedStore) backendFault(ctx context.Context, namespace string, err error) bool {
	if !errors.Is(err, domain.ErrStorage) || errors.Is(err, context.Canceled) {
		return false
	}
	pingCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), pingTimeout)
	defer cancel()
	pingErr := g.inner.Ping(pingCtx)
	if pingErr == nil {
		g.logger.Warn("namespace storage error",
			slog.String("namespace", namespace),
			slog.String("error", err.Error()),
		)
		return false
	}
	g.logger.Error("tenant store backend failure",
		slog.String("error", err.Error()),
		slog.String("ping_error", pingErr.Error()),
	)
	return true
}

func (g *GuardedStore) Exists(ctx context.Context, namespace string) (bool, error) {
	var exists bool
	err := g.run(ctx, "exists", namespace, func(ctx context.Context) error {
		var err error
		exists, err = g.inner.Exists(ctx, namespace)
		return err
	})
	return exists, err
}

func (g *GuardedStore) Append(ctx context.Context, namespace, content string) (*domain.Record, error) {
	var rec *domain.Record
	err := g.run(ctx, "append", namespace, func(ctx context.Context) error {
		var err error
		rec, err = g.inner.Append(ctx, namespace, content)
		return err
	})
	return rec, err
}

func (g *GuardedStore) List(ctx context.Context, namespace string) ([]domain.Record, error) {
	var recs []domain.Record
	err := g.run(ctx, "list", namespace, func(ctx context.Context) error {
		var err error
		recs, err = g.inner.List(ctx, namespace)
		return err
	})
	return recs, err
}

func (g *GuardedStore) Destroy(ctx context.Context, namespace string) error {
	return g.run(ctx, "destroy", namespace, func(ctx context.Context) error {
		return g.inner.Destroy(ctx, namespace)
	})
}

// Ping bypasses the breaker so readiness reflects the real backend
func (g *GuardedStore) Ping(ctx context.Context) error {
	return g.inner.Ping(ctx)
}
