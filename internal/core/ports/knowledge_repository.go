package ports

import (
	"context"

	"github.com/knowledgehub/workflow/internal/core/domain"
)

// KnowledgeRepository is the persistence contract for knowledge items.
//
// Ids are generated by the repository on Insert and are opaque to callers.
// An id that is not well-formed for the backend yields domain.ErrInvalidID;
// a well-formed but unknown id yields domain.ErrNotFound. Storage faults are
// wrapped in domain.ErrBackendUnavailable.
type KnowledgeRepository interface {
	// List returns the matching items in no particular order.
	List(ctx context.Context, filter domain.KnowledgeFilter) ([]domain.KnowledgeItem, error)
	FindByID(ctx context.Context, id string) (*domain.KnowledgeItem, error)
	// Insert ignores item.ID and returns the record with its fresh id.
	Insert(ctx context.Context, item domain.KnowledgeItem) (*domain.KnowledgeItem, error)
	// Update applies the decision patch as one write. Concurrent updates
	// of the same id serialize; the last one to arrive wins, unless the
	// patch sets OnlyIfUndecided, in which case only the first succeeds
	// and later ones fail with domain.ErrConflict.
	Update(ctx context.Context, id string, patch domain.KnowledgePatch) (*domain.KnowledgeItem, error)
	Remove(ctx context.Context, id string) (*domain.KnowledgeItem, error)
}
