package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/aryan0dhankhar/droplog/internal/domain"
	"github.com/aryan0dhankhar/droplog/internal/infrastructure/redis"
)

// appendScript allocates the next id and pushes the record in one atomic step.
// KEYS[1] = sequence counter, KEYS[2] = record list.
// ARGV[1] = content, ARGV[2] = created timestamp.
var appendScript = redis.NewScript(`
local id = redis.call('INCR', KEYS[1])
local rec = cjson.encode({id = id, created = ARGV[2], content = ARGV[1]})
redis.call('LPUSH', KEYS[2], rec)
return id
`)

// RedisTenantStore keeps each namespace as a counter key plus a list of
// JSON records, newest at the head. Existence is the counter key.
type RedisTenantStore struct {
	redis  *redis.Client
	prefix string
	logger *slog.Logger
}

// NewRedisTenantStore creates a store using keys under prefix
func NewRedisTenantStore(client *redis.Client, prefix string, logger *slog.Logger) *RedisTenantStore {
	if logger == nil {
		logger = slog.Default()
	}
	if prefix == "" {
		prefix = "droplog"
	}
	return &RedisTenantStore{redis: client, prefix: prefix, logger: logger}
}

func (r *RedisTenantStore) seqKey(namespace string) string {
	return fmt.Sprintf("%s:ns:%s:seq", r.prefix, namespace)
}

func (r *RedisTenantStore) logKey(namespace string) string {
	return fmt.Sprintf("%s:ns:%s:log", r.prefix, namespace)
}

type redisRecord struct {
	ID      int64  `json:"id"`
	Created string `json:"created"`
	Content string `json:"content"`
}

// Exists reports whether the namespace counter key is present
func (r *RedisTenantStore) Exists(ctx context.Context, namespace string) (bool, error) {
	n, err := r.redis.Exists(ctx, r.seqKey(namespace))
	if err != nil {
		return false, fmt.Errorf("exists: %w: %w", domain.ErrStorage, err)
	}
	return n > 0, nil
}

// Append atomically allocates an id and pushes one record
func (r *RedisTenantStore) Append(ctx context.Context, namespace, content string) (*domain.Record, error) {
	created := time.Now().UTC().Truncate(time.Millisecond)
	res, err := r.redis.Run(ctx, appendScript,
		[]string{r.seqKey(namespace), r.logKey(namespace)},
		content, created.Format(time.RFC3339Nano),
	)
	if err != nil {
		return nil, fmt.Errorf("append: %w: %w", domain.ErrStorage, err)
	}
	id, ok := res.(int64)
	if !ok {
		return nil, fmt.Errorf("append: %w: unexpected script result %T", domain.ErrStorage, res)
	}

	r.logger.Debug("record appended", slog.String("namespace", namespace), slog.Int64("id", id))
	return &domain.Record{ID: id, Created: created, Content: content}, nil
}

// List returns records newest first
func (r *RedisTenantStore) List(ctx context.Context, namespace string) ([]domain.Record, error) {
	raw, err := r.redis.LRange(ctx, r.logKey(namespace), 0, -1)
	if err != nil {
		return nil, fmt.Errorf("list: %w: %w", domain.ErrStorage, err)
	}

	out := make([]domain.Record, 0, len(raw))
	for _, item := range raw {
		var rr redisRecord
		if err := json.Unmarshal([]byte(item), &rr); err != nil {
			return nil, fmt.Errorf("decode record: %w: %w", domain.ErrStorage, err)
		}
		created, err := parseCreated(rr.Created)
		if err != nil {
			return nil, fmt.Errorf("decode record: %w: %w", domain.ErrStorage, err)
		}
		out = append(out, domain.Record{ID: rr.ID, Created: created, Content: rr.Content})
	}
	return out, nil
}

// Destroy removes both keys in a single DEL
func (r *RedisTenantStore) Destroy(ctx context.Context, namespace string) error {
	if err := r.redis.Delete(ctx, r.seqKey(namespace), r.logKey(namespace)); err != nil {
		return fmt.Errorf("destroy: %w: %w", domain.ErrStorage, err)
	}
	return nil
}

// Ping checks Redis connectivity
func (r *RedisTenantStore) Ping(ctx context.Context) error {
	return r.redis.Ping(ctx)
}
