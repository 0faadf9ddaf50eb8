package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/knowledgehub/workflow/internal/core/domain"
	"github.com/knowledgehub/workflow/internal/core/ports"
)

// KnowledgePolicy resolves the two open lifecycle choices.
type KnowledgePolicy struct {
	// StrictDecisions limits decisions to the canonical outcomes.
	StrictDecisions bool
	// AllowRedecision lets a validator overwrite an earlier decision.
	AllowRedecision bool
}

// DefaultKnowledgePolicy enforces the closed decision set and keeps
// re-decisions possible.
var DefaultKnowledgePolicy = KnowledgePolicy{StrictDecisions: true, AllowRedecision: true}

type KnowledgeService struct {
	repo   ports.KnowledgeRepository
	idem   ports.IdempotencyStore
	policy KnowledgePolicy
	logger zerolog.Logger
	now    func() time.Time
}

// NewKnowledgeService wires the lifecycle. idem may be nil, in which case
// idempotency keys are ignored.
func NewKnowledgeService(repo ports.KnowledgeRepository, idem ports.IdempotencyStore, policy KnowledgePolicy, logger zerolog.Logger) *KnowledgeService {
	return &KnowledgeService{
		repo:   repo,
		idem:   idem,
		policy: policy,
		logger: logger,
		now:    time.Now,
	}
}

// Submit creates a knowledge item in Pending Validation. With an
// idempotency key that was already seen, the earlier item is returned
// without side effects.
func (s *KnowledgeService) Submit(ctx context.Context, in ports.SubmitKnowledgeInput) (*ports.SubmitResult, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	in.Author = strings.TrimSpace(in.Author)
	in.Role = strings.TrimSpace(in.Role)
	if err := validateInput(in); err != nil {
		return nil, err
	}
	if err := domain.Authorize(domain.Role(in.Role), domain.ActionSubmitKnowledge); err != nil {
		return nil, err
	}

	key := strings.TrimSpace(in.IdempotencyKey)
	if key != "" && s.idem != nil {
		if existing := s.replay(ctx, key); existing != nil {
			return &ports.SubmitResult{Item: *existing, AlreadyExisted: true}, nil
		}
	}

	tags := domain.NormalizeTags(in.Tags)
	if in.TagsText != "" {
		tags = append(tags, domain.SplitTags(in.TagsText)...)
	}

	created, err := s.repo.Insert(ctx, domain.KnowledgeItem{
		Title:       in.Title,
		Description: in.Description,
		Author:      in.Author,
		Role:        domain.Role(in.Role),
		Tags:        tags,
		Project:     strings.TrimSpace(in.Project),
		Region:      strings.TrimSpace(in.Region),
		Type:        strings.TrimSpace(in.Type),
		Status:      domain.StatusPendingValidation,
		CreatedAt:   timestamp(s.now),
	})
	if err != nil {
		s.logger.Error().Err(err).Str("author", in.Author).Msg("failed to create knowledge item")
		return nil, err
	}

	if key != "" && s.idem != nil {
		if err := s.idem.Remember(ctx, key, created.ID); err != nil {
			s.logger.Warn().Err(err).Str("idempotency_key", key).Msg("failed to record idempotency key")
		}
	}

	s.logger.Info().Str("id", created.ID).Str("author", created.Author).Msg("knowledge submitted")
	return &ports.SubmitResult{Item: *created}, nil
}

// replay returns the item an idempotency key already produced. Lookup
// failures are logged and treated as a miss.
func (s *KnowledgeService) replay(ctx context.Context, key string) *domain.KnowledgeItem {
	id, found, err := s.idem.Lookup(ctx, key)
	if err != nil {
		s.logger.Warn().Err(err).Str("idempotency_key", key).Msg("idempotency lookup failed, submitting anyway")
		return nil
	}
	if !found {
		return nil
	}
	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		s.logger.Warn().Err(err).Str("idempotency_key", key).Str("id", id).Msg("idempotency key points at missing item")
		return nil
	}
	s.logger.Info().Str("idempotency_key", key).Str("id", id).Msg("idempotent replay")
	return existing
}

// Decide records a validation decision. Status, validator and timestamp are
// written in one repository update.
func (s *KnowledgeService) Decide(ctx context.Context, in ports.DecideInput) (*domain.KnowledgeItem, error) {
	in.ID = strings.TrimSpace(in.ID)
	in.Validator = strings.TrimSpace(in.Validator)
	in.Decision = strings.TrimSpace(in.Decision)
	if err := validateInput(in); err != nil {
		return nil, err
	}
	if err := domain.Authorize(in.CallerRole, domain.ActionDecideValidation); err != nil {
		return nil, err
	}
	decision := domain.KnowledgeStatus(in.Decision)
	if s.policy.StrictDecisions && !decision.IsDecision() {
		return nil, fmt.Errorf("%w: decision must be one of %q, %q, %q", domain.ErrValidation,
			domain.StatusApproved, domain.StatusRejected, domain.StatusRevisionRequested)
	}

	current, err := s.repo.FindByID(ctx, in.ID)
	if err != nil {
		return nil, err
	}
	if current.Decided() {
		if !s.policy.AllowRedecision {
			return nil, fmt.Errorf("%w: item %s was already decided by %s", domain.ErrConflict, current.ID, current.ValidatedBy)
		}
		s.logger.Warn().
			Str("id", current.ID).
			Str("previous_status", string(current.Status)).
			Str("previous_validator", current.ValidatedBy).
			Msg("overwriting earlier validation decision")
	}

	updated, err := s.repo.Update(ctx, in.ID, domain.KnowledgePatch{
		Status:          decision,
		ValidatedBy:     in.Validator,
		ValidatedAt:     timestamp(s.now),
		OnlyIfUndecided: !s.policy.AllowRedecision,
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("id", updated.ID).
		Str("status", string(updated.Status)).
		Str("validator", updated.ValidatedBy).
		Msg("validation recorded")
	return updated, nil
}

func (s *KnowledgeService) List(ctx context.Context) ([]domain.KnowledgeItem, error) {
	items, err := s.repo.List(ctx, domain.KnowledgeFilter{})
	if err != nil {
		return nil, err
	}
	sortNewestFirst(items)
	return items, nil
}

func (s *KnowledgeService) Get(ctx context.Context, id string) (*domain.KnowledgeItem, error) {
	return s.repo.FindByID(ctx, strings.TrimSpace(id))
}

func sortNewestFirst(items []domain.KnowledgeItem) {
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].ID > items[j].ID
		}
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})
}
