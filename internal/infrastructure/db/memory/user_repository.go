// Package memory keeps the workflow collections in process memory. Every
// collection has its own lock; records are copied in and out so callers
// never share state with the store.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/knowledgehub/workflow/internal/core/domain"
)

type UserRepository struct {
	mu    sync.RWMutex
	users map[string]domain.User
}

func NewUserRepository() *UserRepository {
	return &UserRepository{users: make(map[string]domain.User)}
}

func (r *UserRepository) List(_ context.Context, filter domain.UserFilter) ([]domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.User, 0, len(r.users))
	for _, u := range r.users {
		if filter.Match(u) {
			out = append(out, u)
		}
	}
	return out, nil
}

func (r *UserRepository) FindByUsername(_ context.Context, username string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[username]
	if !ok {
		return nil, fmt.Errorf("user %q: %w", username, domain.ErrNotFound)
	}
	return &u, nil
}

func (r *UserRepository) Insert(_ context.Context, user domain.User) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.users[user.Username]; exists {
		return nil, fmt.Errorf("user %q: %w", user.Username, domain.ErrDuplicateKey)
	}
	r.users[user.Username] = user
	return &user, nil
}

func (r *UserRepository) Update(_ context.Context, username string, patch domain.UserPatch) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[username]
	if !ok {
		return nil, fmt.Errorf("user %q: %w", username, domain.ErrNotFound)
	}
	patch.Apply(&u)
	r.users[username] = u
	return &u, nil
}

func (r *UserRepository) Remove(_ context.Context, username string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[username]
	if !ok {
		return nil, fmt.Errorf("user %q: %w", username, domain.ErrNotFound)
	}
	delete(r.users, username)
	return &u, nil
}

func (r *UserRepository) RemovePending(_ context.Context, username string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[username]
	if !ok {
		return nil, fmt.Errorf("user %q: %w", username, domain.ErrNotFound)
	}
	if u.Status != domain.UserPending {
		return nil, fmt.Errorf("%w: user %q is %s", domain.ErrConflict, username, u.Status)
	}
	delete(r.users, username)
	return &u, nil
}
