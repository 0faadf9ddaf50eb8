package memory

import (
	"context"
	"sync"
	"time"
)

const defaultIdempotencyTTL = time.Hour

type idempotencyEntry struct {
	itemID    string
	expiresAt time.Time
}

// IdempotencyStore is the in-process fallback used when Redis is not
// configured. Expired keys are dropped lazily on lookup.
type IdempotencyStore struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]idempotencyEntry
	now     func() time.Time
}

func NewIdempotencyStore(ttl time.Duration) *IdempotencyStore {
	if ttl <= 0 {
		ttl = defaultIdempotencyTTL
	}
	return &IdempotencyStore{ttl: ttl, entries: make(map[string]idempotencyEntry), now: time.Now}
}

func (s *IdempotencyStore) Lookup(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		return "", false, nil
	}
	if s.now().After(e.expiresAt) {
		delete(s.entries, key)
		return "", false, nil
	}
	return e.itemID, true, nil
}

func (s *IdempotencyStore) Remember(_ context.Context, key, itemID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[key] = idempotencyEntry{itemID: itemID, expiresAt: s.now().Add(s.ttl)}
	return nil
}
