package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/knowledgehub/workflow/internal/core/domain"
)

const userColumns = `username, password_hash, role, requested_role, region, status, created_at`

type UserRepository struct {
	db *sql.DB
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*domain.User, error) {
	var (
		u         domain.User
		role      string
		requested string
		status    string
		createdAt int64
	)
	if err := row.Scan(&u.Username, &u.PasswordHash, &role, &requested, &u.Region, &status, &createdAt); err != nil {
		return nil, err
	}
	u.Role = domain.Role(role)
	u.RequestedRole = domain.Role(requested)
	u.Status = domain.UserStatus(status)
	u.CreatedAt = fromMillis(createdAt)
	return &u, nil
}

func (r *UserRepository) List(ctx context.Context, filter domain.UserFilter) ([]domain.User, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE (?1 = '' OR status = ?1) ORDER BY rowid`,
		string(filter.Status),
	)
	if err != nil {
		return nil, backendErr("list users", err)
	}
	defer rows.Close()

	users := make([]domain.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, backendErr("scan user", err)
		}
		users = append(users, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, backendErr("list users", err)
	}
	return users, nil
}

func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE username = ?`, username))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user %q: %w", username, domain.ErrNotFound)
	}
	if err != nil {
		return nil, backendErr("find user", err)
	}
	return u, nil
}

func (r *UserRepository) Insert(ctx context.Context, user domain.User) (*domain.User, error) {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (`+userColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		user.Username, user.PasswordHash, string(user.Role), string(user.RequestedRole),
		user.Region, string(user.Status), toMillis(user.CreatedAt),
	)
	if isUniqueViolation(err) {
		return nil, fmt.Errorf("user %q: %w", user.Username, domain.ErrDuplicateKey)
	}
	if err != nil {
		return nil, backendErr("insert user", err)
	}
	user.CreatedAt = fromMillis(toMillis(user.CreatedAt))
	return &user, nil
}

func (r *UserRepository) Update(ctx context.Context, username string, patch domain.UserPatch) (*domain.User, error) {
	var role, status any
	if patch.Role != nil {
		role = string(*patch.Role)
	}
	if patch.Status != nil {
		status = string(*patch.Status)
	}
	u, err := scanUser(r.db.QueryRowContext(ctx,
		`UPDATE users SET role = COALESCE(?, role), status = COALESCE(?, status)
		 WHERE username = ? RETURNING `+userColumns,
		role, status, username,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user %q: %w", username, domain.ErrNotFound)
	}
	if err != nil {
		return nil, backendErr("update user", err)
	}
	return u, nil
}

func (r *UserRepository) Remove(ctx context.Context, username string) (*domain.User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx,
		`DELETE FROM users WHERE username = ? RETURNING `+userColumns, username))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user %q: %w", username, domain.ErrNotFound)
	}
	if err != nil {
		return nil, backendErr("remove user", err)
	}
	return u, nil
}

func (r *UserRepository) RemovePending(ctx context.Context, username string) (*domain.User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx,
		`DELETE FROM users WHERE username = ? AND status = ? RETURNING `+userColumns,
		username, string(domain.UserPending)))
	if errors.Is(err, sql.ErrNoRows) {
		// missing, or no longer pending
		current, err := r.FindByUsername(ctx, username)
		if err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: user %q is %s", domain.ErrConflict, username, current.Status)
	}
	if err != nil {
		return nil, backendErr("remove pending user", err)
	}
	return u, nil
}
