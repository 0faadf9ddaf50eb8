package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/knowledgehub/workflow/internal/core/domain"
)

type KnowledgeRepository struct {
	mu    sync.RWMutex
	items map[string]domain.KnowledgeItem
}

func NewKnowledgeRepository() *KnowledgeRepository {
	return &KnowledgeRepository{items: make(map[string]domain.KnowledgeItem)}
}

func (r *KnowledgeRepository) List(_ context.Context, filter domain.KnowledgeFilter) ([]domain.KnowledgeItem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.KnowledgeItem, 0, len(r.items))
	for _, item := range r.items {
		if filter.Match(item) {
			out = append(out, cloneItem(item))
		}
	}
	return out, nil
}

func (r *KnowledgeRepository) FindByID(_ context.Context, id string) (*domain.KnowledgeItem, error) {
	if err := CheckID(id); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	item, ok := r.items[id]
	if !ok {
		return nil, fmt.Errorf("knowledge item %s: %w", id, domain.ErrNotFound)
	}
	out := cloneItem(item)
	return &out, nil
}

func (r *KnowledgeRepository) Insert(_ context.Context, item domain.KnowledgeItem) (*domain.KnowledgeItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	item = cloneItem(item)
	item.ID = uuid.NewString()
	r.items[item.ID] = item
	out := cloneItem(item)
	return &out, nil
}

func (r *KnowledgeRepository) Update(_ context.Context, id string, patch domain.KnowledgePatch) (*domain.KnowledgeItem, error) {
	if err := CheckID(id); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	item, ok := r.items[id]
	if !ok {
		return nil, fmt.Errorf("knowledge item %s: %w", id, domain.ErrNotFound)
	}
	if patch.OnlyIfUndecided && item.Decided() {
		return nil, fmt.Errorf("%w: knowledge item %s already decided", domain.ErrConflict, id)
	}
	patch.Apply(&item)
	r.items[id] = item
	out := cloneItem(item)
	return &out, nil
}

func (r *KnowledgeRepository) Remove(_ context.Context, id string) (*domain.KnowledgeItem, error) {
	if err := CheckID(id); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	item, ok := r.items[id]
	if !ok {
		return nil, fmt.Errorf("knowledge item %s: %w", id, domain.ErrNotFound)
	}
	delete(r.items, id)
	return &item, nil
}

// CheckID rejects ids that are not UUIDs, the format every non-document
// backend assigns.
func CheckID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("%w: %q", domain.ErrInvalidID, id)
	}
	return nil
}

func cloneItem(item domain.KnowledgeItem) domain.KnowledgeItem {
	item.Tags = domain.CloneTags(item.Tags)
	if item.ValidatedAt != nil {
		at := *item.ValidatedAt
		item.ValidatedAt = &at
	}
	return item
}
