package filestore

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/knowledgehub/workflow/internal/core/domain"
	"github.com/knowledgehub/workflow/internal/infrastructure/db/memory"
)

type KnowledgeRepository struct {
	store *Store
}

func indexOfItem(snap *snapshot, id string) int {
	for i, item := range snap.Knowledge {
		if item.ID == id {
			return i
		}
	}
	return -1
}

func (r *KnowledgeRepository) List(_ context.Context, filter domain.KnowledgeFilter) ([]domain.KnowledgeItem, error) {
	snap, err := r.store.view()
	if err != nil {
		return nil, err
	}
	out := make([]domain.KnowledgeItem, 0, len(snap.Knowledge))
	for _, item := range snap.Knowledge {
		if filter.Match(item) {
			item.Tags = domain.CloneTags(item.Tags)
			out = append(out, item)
		}
	}
	return out, nil
}

func (r *KnowledgeRepository) FindByID(_ context.Context, id string) (*domain.KnowledgeItem, error) {
	if err := memory.CheckID(id); err != nil {
		return nil, err
	}
	snap, err := r.store.view()
	if err != nil {
		return nil, err
	}
	i := indexOfItem(snap, id)
	if i < 0 {
		return nil, fmt.Errorf("knowledge item %s: %w", id, domain.ErrNotFound)
	}
	item := snap.Knowledge[i]
	item.Tags = domain.CloneTags(item.Tags)
	return &item, nil
}

func (r *KnowledgeRepository) Insert(_ context.Context, item domain.KnowledgeItem) (*domain.KnowledgeItem, error) {
	item.Tags = domain.CloneTags(item.Tags)
	err := r.store.mutate(func(snap *snapshot) error {
		item.ID = uuid.NewString()
		snap.Knowledge = append(snap.Knowledge, item)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *KnowledgeRepository) Update(_ context.Context, id string, patch domain.KnowledgePatch) (*domain.KnowledgeItem, error) {
	if err := memory.CheckID(id); err != nil {
		return nil, err
	}
	var updated domain.KnowledgeItem
	err := r.store.mutate(func(snap *snapshot) error {
		i := indexOfItem(snap, id)
		if i < 0 {
			return fmt.Errorf("knowledge item %s: %w", id, domain.ErrNotFound)
		}
		if patch.OnlyIfUndecided && snap.Knowledge[i].Decided() {
			return fmt.Errorf("%w: knowledge item %s already decided", domain.ErrConflict, id)
		}
		patch.Apply(&snap.Knowledge[i])
		updated = snap.Knowledge[i]
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

func (r *KnowledgeRepository) Remove(_ context.Context, id string) (*domain.KnowledgeItem, error) {
	if err := memory.CheckID(id); err != nil {
		return nil, err
	}
	var removed domain.KnowledgeItem
	err := r.store.mutate(func(snap *snapshot) error {
		i := indexOfItem(snap, id)
		if i < 0 {
			return fmt.Errorf("knowledge item %s: %w", id, domain.ErrNotFound)
		}
		removed = snap.Knowledge[i]
		snap.Knowledge = append(snap.Knowledge[:i], snap.Knowledge[i+1:]...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &removed, nil
}
