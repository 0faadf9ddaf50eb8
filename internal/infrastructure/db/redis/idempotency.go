package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/knowledgehub/workflow/internal/core/domain"
)

const defaultIdempotencyTTL = time.Hour

// IdempotencyStore maps client-supplied submission keys to the item they
// created. Key format: idempotency:<key>
type IdempotencyStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewIdempotencyStore wraps client. Keys expire after ttl (one hour when
// ttl is not positive).
func NewIdempotencyStore(client *redis.Client, ttl time.Duration) *IdempotencyStore {
	if ttl <= 0 {
		ttl = defaultIdempotencyTTL
	}
	return &IdempotencyStore{client: client, ttl: ttl}
}

// Lookup returns the item id remembered for key, if any.
func (s *IdempotencyStore) Lookup(ctx context.Context, key string) (string, bool, error) {
	id, err := s.client.Get(ctx, s.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("%w: idempotency lookup: %w", domain.ErrBackendUnavailable, err)
	}
	return id, true, nil
}

// Remember records that key produced itemID (expires after the store TTL).
func (s *IdempotencyStore) Remember(ctx context.Context, key, itemID string) error {
	if err := s.client.Set(ctx, s.key(key), itemID, s.ttl).Err(); err != nil {
		return fmt.Errorf("%w: idempotency remember: %w", domain.ErrBackendUnavailable, err)
	}
	return nil
}

func (s *IdempotencyStore) key(key string) string {
	return "idempotency:" + key
}
