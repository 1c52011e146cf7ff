// Package redis backs the order idempotency store with Redis.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/oakmart/orderd/internal/domain/order"
)

const (
	idempotencyKeyPrefix = "idem:"
	idempotencyKeyTTL    = 24 * time.Hour
)

var _ order.IdempotencyStore = (*IdempotencyStore)(nil)

// IdempotencyStore claims request keys via SET NX with a 24h TTL. A key that
// stays claimed marks a completed creation; Release frees it after a failure.
type IdempotencyStore struct {
	client *redis.Client
}

// NewIdempotencyStore returns an IdempotencyStore using the given client.
func NewIdempotencyStore(client *redis.Client) *IdempotencyStore {
	return &IdempotencyStore{client: client}
}

// Claim atomically claims key. Returns false when it is already held.
func (s *IdempotencyStore) Claim(ctx context.Context, key string) (bool, error) {
	ok, err := s.client.SetNX(ctx, idempotencyKeyPrefix+key, 1, idempotencyKeyTTL).Result()
	if err != nil {
		return false, fmt.Errorf("claiming idempotency key: %w", err)
	}
	return ok, nil
}

// Release frees a previously claimed key.
func (s *IdempotencyStore) Release(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, idempotencyKeyPrefix+key).Err(); err != nil {
		return fmt.Errorf("releasing idempotency key: %w", err)
	}
	return nil
}
