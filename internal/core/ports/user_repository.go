package ports

import (
	"context"

	"github.com/knowledgehub/workflow/internal/core/domain"
)

// UserRepository is the persistence contract for accounts, keyed by the
// caller-supplied username.
//
// Insert fails with domain.ErrDuplicateKey when the username exists.
// Update and Remove fail with domain.ErrNotFound on a missing username.
// Storage faults are wrapped in domain.ErrBackendUnavailable.
type UserRepository interface {
	// List returns the matching users in no particular order.
	List(ctx context.Context, filter domain.UserFilter) ([]domain.User, error)
	FindByUsername(ctx context.Context, username string) (*domain.User, error)
	Insert(ctx context.Context, user domain.User) (*domain.User, error)
	// Update applies patch atomically with respect to other writes and
	// returns the updated record.
	Update(ctx context.Context, username string, patch domain.UserPatch) (*domain.User, error)
	// Remove deletes the user and returns the removed record.
	Remove(ctx context.Context, username string) (*domain.User, error)
	// RemovePending deletes the user only while its status is Pending. The
	// status check and the delete are one atomic step; an account that is
	// no longer pending yields domain.ErrConflict.
	RemovePending(ctx context.Context, username string) (*domain.User, error)
}
