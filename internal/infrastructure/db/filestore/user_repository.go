package filestore

import (
	"context"
	"fmt"

	"github.com/knowledgehub/workflow/internal/core/domain"
)

type UserRepository struct {
	store *Store
}

func toFileUser(u domain.User) fileUser {
	return fileUser{
		Username:      u.Username,
		Password:      u.PasswordHash,
		Role:          u.Role,
		RequestedRole: u.RequestedRole,
		Region:        u.Region,
		Status:        u.Status,
		CreatedAt:     u.CreatedAt,
	}
}

func (f fileUser) toDomain() domain.User {
	return domain.User{
		Username:      f.Username,
		PasswordHash:  f.Password,
		Role:          f.Role,
		RequestedRole: f.RequestedRole,
		Region:        f.Region,
		Status:        f.Status,
		CreatedAt:     f.CreatedAt,
	}
}

func indexOfUser(snap *snapshot, username string) int {
	for i, u := range snap.Users {
		if u.Username == username {
			return i
		}
	}
	return -1
}

func (r *UserRepository) List(_ context.Context, filter domain.UserFilter) ([]domain.User, error) {
	snap, err := r.store.view()
	if err != nil {
		return nil, err
	}
	out := make([]domain.User, 0, len(snap.Users))
	for _, fu := range snap.Users {
		if u := fu.toDomain(); filter.Match(u) {
			out = append(out, u)
		}
	}
	return out, nil
}

func (r *UserRepository) FindByUsername(_ context.Context, username string) (*domain.User, error) {
	snap, err := r.store.view()
	if err != nil {
		return nil, err
	}
	i := indexOfUser(snap, username)
	if i < 0 {
		return nil, fmt.Errorf("user %q: %w", username, domain.ErrNotFound)
	}
	u := snap.Users[i].toDomain()
	return &u, nil
}

func (r *UserRepository) Insert(_ context.Context, user domain.User) (*domain.User, error) {
	err := r.store.mutate(func(snap *snapshot) error {
		if indexOfUser(snap, user.Username) >= 0 {
			return fmt.Errorf("user %q: %w", user.Username, domain.ErrDuplicateKey)
		}
		snap.Users = append(snap.Users, toFileUser(user))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) Update(_ context.Context, username string, patch domain.UserPatch) (*domain.User, error) {
	var updated domain.User
	err := r.store.mutate(func(snap *snapshot) error {
		i := indexOfUser(snap, username)
		if i < 0 {
			return fmt.Errorf("user %q: %w", username, domain.ErrNotFound)
		}
		updated = snap.Users[i].toDomain()
		patch.Apply(&updated)
		snap.Users[i] = toFileUser(updated)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

func (r *UserRepository) Remove(_ context.Context, username string) (*domain.User, error) {
	var removed domain.User
	err := r.store.mutate(func(snap *snapshot) error {
		i := indexOfUser(snap, username)
		if i < 0 {
			return fmt.Errorf("user %q: %w", username, domain.ErrNotFound)
		}
		removed = snap.Users[i].toDomain()
		snap.Users = append(snap.Users[:i], snap.Users[i+1:]...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &removed, nil
}

func (r *UserRepository) RemovePending(_ context.Context, username string) (*domain.User, error) {
	var removed domain.User
	err := r.store.mutate(func(snap *snapshot) error {
		i := indexOfUser(snap, username)
		if i < 0 {
			return fmt.Errorf("user %q: %w", username, domain.ErrNotFound)
		}
		if snap.Users[i].Status != domain.UserPending {
			return fmt.Errorf("%w: user %q is %s", domain.ErrConflict, username, snap.Users[i].Status)
		}
		removed = snap.Users[i].toDomain()
		snap.Users = append(snap.Users[:i], snap.Users[i+1:]...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &removed, nil
}
