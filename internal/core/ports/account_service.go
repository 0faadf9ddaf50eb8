package ports

import (
	"context"

	"github.com/knowledgehub/workflow/internal/core/domain"
)

// SignupInput carries a self-service account request.
type SignupInput struct {
	Username      string `validate:"required,min=3"`
	Password      string `validate:"required,min=4,max=72"`
	Region        string `validate:"required"`
	RequestedRole string `validate:"omitempty,oneof=Consultant KnowledgeChampion Admin"`
}

// LoginInput carries credentials to check.
type LoginInput struct {
	Username string `validate:"required"`
	Password string `validate:"required"`
}

// AccountService governs signup, login and admin approval.
type AccountService interface {
	Signup(ctx context.Context, input SignupInput) (*domain.SanitizedUser, error)
	Login(ctx context.Context, input LoginInput) (*domain.Identity, error)
	ListPending(ctx context.Context, callerRole domain.Role) ([]domain.SanitizedUser, error)
	Approve(ctx context.Context, callerRole domain.Role, username string) (*domain.SanitizedUser, error)
	Reject(ctx context.Context, callerRole domain.Role, username string) (*domain.SanitizedUser, error)
	// Bootstrap seeds the canonical accounts when no user exists and
	// returns how many were created.
	Bootstrap(ctx context.Context) (int, error)
}
