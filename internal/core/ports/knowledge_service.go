package ports

import (
	"context"

	"github.com/knowledgehub/workflow/internal/core/domain"
)

// SubmitKnowledgeInput is the DTO passed from the transport layer to
// KnowledgeService.Submit. Tags may arrive as a sequence or as one
// comma-delimited string in TagsText; both are normalized.
type SubmitKnowledgeInput struct {
	Title          string `validate:"required"`
	Description    string `validate:"required"`
	Author         string `validate:"required"`
	Role           string `validate:"required"`
	Tags           []string
	TagsText       string
	Project        string
	Region         string
	Type           string
	IdempotencyKey string
}

// DecideInput records a validator's decision on one item.
type DecideInput struct {
	ID         string
	CallerRole domain.Role
	Validator  string `validate:"required"`
	Decision   string `validate:"required"`
}

// SubmitResult wraps the created item. AlreadyExisted is true when the
// idempotency key matched an earlier submission.
type SubmitResult struct {
	Item           domain.KnowledgeItem
	AlreadyExisted bool
}

// KnowledgeService runs the knowledge item lifecycle.
type KnowledgeService interface {
	Submit(ctx context.Context, input SubmitKnowledgeInput) (*SubmitResult, error)
	Decide(ctx context.Context, input DecideInput) (*domain.KnowledgeItem, error)
	// List returns every item, newest first.
	List(ctx context.Context) ([]domain.KnowledgeItem, error)
	Get(ctx context.Context, id string) (*domain.KnowledgeItem, error)
}
