package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/knowledgehub/workflow/internal/core/domain"
	"github.com/knowledgehub/workflow/internal/core/ports"
	"github.com/knowledgehub/workflow/internal/infrastructure/db/memory"
)

var ctx = context.Background()

// plainHasher keeps tests fast; it only needs exact-match semantics.
type plainHasher struct{}

func (plainHasher) Hash(password string) (string, error) { return "h:" + password, nil }

func (plainHasher) Matches(hash, password string) bool { return hash == "h:"+password }

// clock hands out strictly increasing instants.
type clock struct {
	mu sync.Mutex
	t  time.Time
}

func newClock() *clock {
	return &clock{t: time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC)}
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Second)
	return c.t
}

func newAccounts(t *testing.T) (*AccountService, *memory.UserRepository) {
	t.Helper()
	repo := memory.NewUserRepository()
	svc := NewAccountService(repo, plainHasher{}, zerolog.Nop())
	svc.now = newClock().Now
	return svc, repo
}

func newKnowledge(t *testing.T, policy KnowledgePolicy) (*KnowledgeService, *memory.KnowledgeRepository) {
	t.Helper()
	repo := memory.NewKnowledgeRepository()
	svc := NewKnowledgeService(repo, memory.NewIdempotencyStore(0), policy, zerolog.Nop())
	svc.now = newClock().Now
	return svc, repo
}

func submitInput(author string) ports.SubmitKnowledgeInput {
	return ports.SubmitKnowledgeInput{
		Title:       "Runbook",
		Description: "How to restart the ingest tier",
		Author:      author,
		Role:        string(domain.RoleConsultant),
	}
}

func expectErr(t *testing.T, err, target error) {
	t.Helper()
	if !errors.Is(err, target) {
		t.Fatalf("expected %v, got %v", target, err)
	}
}

func countItems(t *testing.T, repo ports.KnowledgeRepository) int {
	t.Helper()
	items, err := repo.List(ctx, domain.KnowledgeFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	return len(items)
}

// failingKnowledgeRepo simulates an unreachable backend.
type failingKnowledgeRepo struct{}

var errDown = errors.New("connection refused")

func (failingKnowledgeRepo) fail(op string) error {
	return errors.Join(domain.ErrBackendUnavailable, errors.New(op+": "+errDown.Error()))
}

func (r failingKnowledgeRepo) List(context.Context, domain.KnowledgeFilter) ([]domain.KnowledgeItem, error) {
	return nil, r.fail("list")
}

func (r failingKnowledgeRepo) FindByID(context.Context, string) (*domain.KnowledgeItem, error) {
	return nil, r.fail("find")
}

func (r failingKnowledgeRepo) Insert(context.Context, domain.KnowledgeItem) (*domain.KnowledgeItem, error) {
	return nil, r.fail("insert")
}

func (r failingKnowledgeRepo) Update(context.Context, string, domain.KnowledgePatch) (*domain.KnowledgeItem, error) {
	return nil, r.fail("update")
}

func (r failingKnowledgeRepo) Remove(context.Context, string) (*domain.KnowledgeItem, error) {
	return nil, r.fail("remove")
}

func contains(s, sub string) bool { return strings.Contains(s, sub) }
