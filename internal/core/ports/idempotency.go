package ports

import "context"

// IdempotencyStore remembers which knowledge item a submission key produced.
type IdempotencyStore interface {
	// Lookup returns the item id recorded for key, if any.
	Lookup(ctx context.Context, key string) (string, bool, error)
	Remember(ctx context.Context, key, itemID string) error
}

// PasswordHasher turns credentials into opaque stored values and checks them.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Matches(hash, password string) bool
}
