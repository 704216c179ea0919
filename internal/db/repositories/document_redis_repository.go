package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"diversifia/ordersync/internal/constants"

	"github.com/redis/go-redis/v9"
)

// redisDocument mirrors the {payload, updatedAt} document shape.
type redisDocument struct {
	Payload   []json.RawMessage `json:"payload"`
	UpdatedAt string            `json:"updatedAt"`
}

// stringGetter is satisfied by both *redis.Client and *redis.Tx.
type stringGetter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

// DocumentRedisRepo stores keyed JSON documents as Redis strings and relies on
// WATCH/MULTI/EXEC for optimistic concurrency.
type DocumentRedisRepo struct {
	client      *redis.Client
	prefix      string
	maxAttempts int
	now         func() time.Time
}

// NewDocumentRedisRepo creates a Redis-backed document store.
func NewDocumentRedisRepo(client *redis.Client, maxAttempts int) *DocumentRedisRepo {
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	return &DocumentRedisRepo{
		client:      client,
		prefix:      "ordersync:doc:",
		maxAttempts: maxAttempts,
		now:         time.Now,
	}
}

// Name identifies the store in logs and metrics.
func (r *DocumentRedisRepo) Name() string { return "redis" }

// Ping checks the Redis connection.
func (r *DocumentRedisRepo) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Mutate runs fn against the document under key. EXEC fails with TxFailedErr
// when the watched key changed, in which case the whole read-modify-write is retried.
func (r *DocumentRedisRepo) Mutate(ctx context.Context, key string, fn MutateFunc) (int, error) {
	redisKey := r.prefix + key

	txf := func(tx *redis.Tx) error {
		doc, err := r.read(ctx, tx, redisKey)
		if err != nil {
			return err
		}

		next, write, err := fn(doc.Payload)
		if err != nil || !write {
			return err
		}

		data, err := json.Marshal(redisDocument{
			Payload:   next,
			UpdatedAt: r.now().UTC().Format(isoMillis),
		})
		if err != nil {
			return fmt.Errorf("%w: encode %s: %w", constants.ErrTargetStore, key, err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, redisKey, data, 0)
			return nil
		})
		return err
	}

	for attempt := 1; attempt <= r.maxAttempts; attempt++ {
		err := r.client.Watch(ctx, txf, redisKey)
		if err == nil {
			return attempt, nil
		}
		if !errors.Is(err, redis.TxFailedErr) {
			if errors.Is(err, constants.ErrTargetStore) {
				return attempt, err
			}
			return attempt, fmt.Errorf("%w: %s: %w", constants.ErrTargetStore, key, err)
		}
		if attempt == r.maxAttempts {
			break
		}
		if err := sleepCtx(ctx, retryDelay(attempt)); err != nil {
			return attempt, fmt.Errorf("%w: %w", constants.ErrTargetStore, err)
		}
	}
	return r.maxAttempts, fmt.Errorf("%w: key %s after %d attempts", constants.ErrTxConflict, key, r.maxAttempts)
}

// Load returns the current payload and last update time without watching the key.
func (r *DocumentRedisRepo) Load(ctx context.Context, key string) ([]json.RawMessage, time.Time, error) {
	doc, err := r.read(ctx, r.client, r.prefix+key)
	if err != nil || doc.UpdatedAt == "" {
		return doc.Payload, time.Time{}, err
	}
	updatedAt, err := time.Parse(isoMillis, doc.UpdatedAt)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("%w: decode %s updatedAt: %w", constants.ErrTargetStore, key, err)
	}
	return doc.Payload, updatedAt, nil
}

func (r *DocumentRedisRepo) read(ctx context.Context, c stringGetter, redisKey string) (redisDocument, error) {
	var doc redisDocument
	raw, err := c.Get(ctx, redisKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return doc, nil
	}
	if err != nil {
		return doc, fmt.Errorf("%w: read %s: %w", constants.ErrTargetStore, redisKey, err)
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return doc, fmt.Errorf("%w: decode %s: %w", constants.ErrTargetStore, redisKey, err)
	}
	return doc, nil
}
