package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/aryan0dhankhar/droplog/internal/domain"
	"github.com/aryan0dhankhar/droplog/internal/observability/metrics"
	"github.com/aryan0dhankhar/droplog/internal/observability/tracing"
	"github.com/aryan0dhankhar/droplog/internal/security/capability"
)

// NamespaceService is the gateway: identifier check, then token check, then store.
// It keeps no state between calls.
//
// Bearer issuance is gated on "no log exists yet", not on "no token issued yet".
// Every caller that asks before the first append gets its own valid token.
// Set a ClaimLedger to make the first issuance exclusive instead.
type NamespaceService struct {
	store  domain.TenantStore
	tokens capability.Codec
	ledger domain.ClaimLedger
	logger *slog.Logger
}

// Status is the ownership view of one namespace
type Status struct {
	Exists            bool `json:"exists"`
	IsOwner           bool `json:"isOwner"`
	CanGenerateBearer bool `json:"canGenerateBearer"`
}

// NewNamespaceService wires the gateway. ledger may be nil.
func NewNamespaceService(store domain.TenantStore, tokens capability.Codec, ledger domain.ClaimLedger, logger *slog.Logger) *NamespaceService {
	if logger == nil {
		logger = slog.Default()
	}
	return &NamespaceService{
		store:  store,
		tokens: tokens,
		ledger: ledger,
		logger: logger,
	}
}

func (s *NamespaceService) start(ctx context.Context, op, namespace string) (context.Context, trace.Span) {
	ctx, span := tracing.Tracer().Start(ctx, "namespace."+op)
	span.SetAttributes(attribute.String("droplog.namespace", namespace))
	return ctx, span
}

func (s *NamespaceService) finish(span trace.Span, op string, err error) {
	result := "ok"
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrInvalidFormat):
		result = "invalid_format"
	case errors.Is(err, domain.ErrUnauthorized):
		result = "unauthorized"
	case errors.Is(err, domain.ErrForbidden):
		result = "forbidden"
	case errors.Is(err, domain.ErrStorageUnavailable):
		result = "unavailable"
	default:
		result = "error"
		span.RecordError(err)
	}
	metrics.ObserveOperation(op, result)
	span.SetAttributes(attribute.String("droplog.result", result))
	span.End()
}

// Status reports existence and whether token owns the namespace
func (s *NamespaceService) Status(ctx context.Context, namespace, token string) (st *Status, err error) {
	ctx, span := s.start(ctx, "status", namespace)
	defer func() { s.finish(span, "status", err) }()

	if _, err = domain.ParseNamespaceID(namespace); err != nil {
		return nil, err
	}

	exists, err := s.store.Exists(ctx, namespace)
	if err != nil {
		return nil, err
	}

	return &Status{
		Exists:            exists,
		IsOwner:           token != "" && s.tokens.Validate(token, namespace),
		CanGenerateBearer: !exists,
	}, nil
}

// IssueBearer mints a token for a namespace that has no log yet
func (s *NamespaceService) IssueBearer(ctx context.Context, namespace string) (token string, err error) {
	ctx, span := s.start(ctx, "issue_bearer", namespace)
	defer func() { s.finish(span, "issue_bearer", err) }()

	if _, err = domain.ParseNamespaceID(namespace); err != nil {
		return "", err
	}

	exists, err := s.store.Exists(ctx, namespace)
	if err != nil {
		return "", err
	}
	if exists {
		return "", domain.ErrForbidden
	}

	if s.ledger != nil {
		won, err := s.ledger.Claim(ctx, namespace)
		if err != nil {
			return "", err
		}
		if !won {
			return "", domain.ErrForbidden
		}
	}

	token, err = s.tokens.Issue(namespace)
	if err != nil {
		if s.ledger != nil {
			if relErr := s.ledger.Release(ctx, namespace); relErr != nil {
				s.logger.Error("failed to release claim after issue error",
					slog.String("namespace", namespace),
					slog.String("error", relErr.Error()),
				)
			}
		}
		return "", fmt.Errorf("issue token: %w", err)
	}

	s.logger.Info("bearer issued", slog.String("namespace", namespace))
	return token, nil
}

// Append stores content for the token holder. A storage error here is
// ambiguous: the record may have committed before the failure surfaced,
// so a client retry can produce a duplicate.
func (s *NamespaceService) Append(ctx context.Context, namespace, token, content string) (rec *domain.Record, err error) {
	ctx, span := s.start(ctx, "append", namespace)
	defer func() { s.finish(span, "append", err) }()

	if _, err = domain.ParseNamespaceID(namespace); err != nil {
		return nil, err
	}
	if token == "" || !s.tokens.Validate(token, namespace) {
		return nil, domain.ErrUnauthorized
	}

	rec, err = s.store.Append(ctx, namespace, content)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("content appended",
		slog.String("namespace", namespace),
		slog.Int64("id", rec.ID),
		slog.Int("bytes", len(content)),
	)
	return rec, nil
}

// List returns the namespace records newest first, empty when absent
func (s *NamespaceService) List(ctx context.Context, namespace string) (recs []domain.Record, err error) {
	ctx, span := s.start(ctx, "list", namespace)
	defer func() { s.finish(span, "list", err) }()

	if _, err = domain.ParseNamespaceID(namespace); err != nil {
		return nil, err
	}
	return s.store.List(ctx, namespace)
}

// Destroy removes the whole namespace log for the token holder.
// Tokens are not revoked: an old token still validates if the namespace is
// recreated under the same identifier.
func (s *NamespaceService) Destroy(ctx context.Context, namespace, token string) (err error) {
	ctx, span := s.start(ctx, "destroy", namespace)
	defer func() { s.finish(span, "destroy", err) }()

	if _, err = domain.ParseNamespaceID(namespace); err != nil {
		return err
	}
	if token == "" || !s.tokens.Validate(token, namespace) {
		return domain.ErrUnauthorized
	}

	if err = s.store.Destroy(ctx, namespace); err != nil {
		return err
	}

	if s.ledger != nil {
		if err = s.ledger.Release(ctx, namespace); err != nil {
			return err
		}
	}

	s.logger.Info("namespace destroyed", slog.String("namespace", namespace))
	return nil
}
