package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/knowledgehub/workflow/internal/core/domain"
	"github.com/knowledgehub/workflow/internal/core/ports"
)

// SeedAccount describes one account created by Bootstrap.
type SeedAccount struct {
	Username string
	Password string
	Role     domain.Role
	Region   string
}

// DefaultSeedAccounts are created approved on first boot.
var DefaultSeedAccounts = []SeedAccount{
	{Username: "consultant1", Password: "1234", Role: domain.RoleConsultant, Region: "Global"},
	{Username: "champion1", Password: "1234", Role: domain.RoleKnowledgeChampion, Region: "Global"},
	{Username: "admin1", Password: "1234", Role: domain.RoleAdmin, Region: "Global"},
}

// AccountService implements signup, login and the admin approval queue.
type AccountService struct {
	repo   ports.UserRepository
	hasher ports.PasswordHasher
	seeds  []SeedAccount
	logger zerolog.Logger
	now    func() time.Time
}

func NewAccountService(repo ports.UserRepository, hasher ports.PasswordHasher, logger zerolog.Logger) *AccountService {
	return &AccountService{
		repo:   repo,
		hasher: hasher,
		seeds:  DefaultSeedAccounts,
		logger: logger,
		now:    time.Now,
	}
}

func (s *AccountService) Signup(ctx context.Context, in ports.SignupInput) (*domain.SanitizedUser, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Password = strings.TrimSpace(in.Password)
	in.Region = strings.TrimSpace(in.Region)
	in.RequestedRole = strings.TrimSpace(in.RequestedRole)
	if err := validateInput(in); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("%w: password cannot be stored: %v", domain.ErrValidation, err)
	}

	created, err := s.repo.Insert(ctx, domain.User{
		Username:      in.Username,
		PasswordHash:  hash,
		Role:          domain.RoleConsultant,
		RequestedRole: domain.Role(in.RequestedRole),
		Region:        in.Region,
		Status:        domain.UserPending,
		CreatedAt:     timestamp(s.now),
	})
	if err != nil {
		if errors.Is(err, domain.ErrDuplicateKey) {
			return nil, fmt.Errorf("%w: username %q already exists", domain.ErrConflict, in.Username)
		}
		s.logger.Error().Err(err).Str("username", in.Username).Msg("failed to create account")
		return nil, err
	}

	s.logger.Info().
		Str("username", created.Username).
		Str("requested_role", string(created.RequestedRole)).
		Msg("account requested")

	out := created.Sanitized()
	return &out, nil
}

func (s *AccountService) Login(ctx context.Context, in ports.LoginInput) (*domain.Identity, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Password = strings.TrimSpace(in.Password)
	if err := validateInput(in); err != nil {
		return nil, err
	}

	user, err := s.repo.FindByUsername(ctx, in.Username)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrUnauthorized
		}
		return nil, err
	}
	if !s.hasher.Matches(user.PasswordHash, in.Password) {
		return nil, domain.ErrUnauthorized
	}
	if user.Status != domain.UserApproved {
		return nil, domain.ErrPendingApproval
	}

	return &domain.Identity{Username: user.Username, Role: user.Role}, nil
}

func (s *AccountService) ListPending(ctx context.Context, callerRole domain.Role) ([]domain.SanitizedUser, error) {
	if err := domain.Authorize(callerRole, domain.ActionListPendingAccounts); err != nil {
		return nil, err
	}

	users, err := s.repo.List(ctx, domain.UserFilter{Status: domain.UserPending})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(users, func(i, j int) bool {
		if users[i].CreatedAt.Equal(users[j].CreatedAt) {
			return users[i].Username < users[j].Username
		}
		return users[i].CreatedAt.Before(users[j].CreatedAt)
	})

	out := make([]domain.SanitizedUser, 0, len(users))
	for _, u := range users {
		out = append(out, u.Sanitized())
	}
	return out, nil
}

// Approve activates a pending account and grants its requested role.
// Approving an already approved account succeeds without changing status.
func (s *AccountService) Approve(ctx context.Context, callerRole domain.Role, username string) (*domain.SanitizedUser, error) {
	if err := domain.Authorize(callerRole, domain.ActionApproveAccount); err != nil {
		return nil, err
	}
	username = strings.TrimSpace(username)

	user, err := s.repo.FindByUsername(ctx, username)
	if err != nil {
		return nil, err
	}

	role := user.Role
	if user.RequestedRole != "" {
		role = user.RequestedRole
	}
	status := domain.UserApproved
	updated, err := s.repo.Update(ctx, username, domain.UserPatch{Role: &role, Status: &status})
	if err != nil {
		return nil, err
	}

	s.logger.Info().Str("username", username).Str("role", string(role)).Msg("account approved")
	out := updated.Sanitized()
	return &out, nil
}

// Reject deletes a pending account request; the username becomes free again.
func (s *AccountService) Reject(ctx context.Context, callerRole domain.Role, username string) (*domain.SanitizedUser, error) {
	if err := domain.Authorize(callerRole, domain.ActionRejectAccount); err != nil {
		return nil, err
	}
	username = strings.TrimSpace(username)

	// status check and delete are one atomic step
	removed, err := s.repo.RemovePending(ctx, username)
	if err != nil {
		return nil, err
	}

	s.logger.Info().Str("username", username).Msg("account request rejected")
	out := removed.Sanitized()
	return &out, nil
}

func (s *AccountService) Bootstrap(ctx context.Context) (int, error) {
	existing, err := s.repo.List(ctx, domain.UserFilter{})
	if err != nil {
		return 0, fmt.Errorf("bootstrap: %w", err)
	}
	if len(existing) > 0 {
		return 0, nil
	}

	created := 0
	for _, seed := range s.seeds {
		hash, err := s.hasher.Hash(seed.Password)
		if err != nil {
			return created, fmt.Errorf("bootstrap: hash %s: %w", seed.Username, err)
		}
		_, err = s.repo.Insert(ctx, domain.User{
			Username:      seed.Username,
			PasswordHash:  hash,
			Role:          seed.Role,
			RequestedRole: seed.Role,
			Region:        seed.Region,
			Status:        domain.UserApproved,
			CreatedAt:     timestamp(s.now),
		})
		if errors.Is(err, domain.ErrDuplicateKey) {
			// another process seeded concurrently
			continue
		}
		if err != nil {
			return created, fmt.Errorf("bootstrap: insert %s: %w", seed.Username, err)
		}
		created++
	}

	s.logger.Info().Int("accounts", created).Msg("seed accounts created")
	return created, nil
}
