package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"github.com/knowledgehub/workflow/internal/core/domain"
	"github.com/knowledgehub/workflow/internal/core/ports"
	"github.com/knowledgehub/workflow/internal/infrastructure/db/memory"
)

// ---- Submit ----

func TestSubmit_CreatesPendingItem(t *testing.T) {
	svc, repo := newKnowledge(t, DefaultKnowledgePolicy)

	in := submitInput("alice")
	in.Title = "  Runbook  "
	in.Project = "Atlas"
	in.Region = "EMEA"
	in.Type = "Guide"
	res, err := svc.Submit(ctx, in)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if res.AlreadyExisted {
		t.Fatal("fresh submission must not be flagged as replay")
	}

	item := res.Item
	if item.ID == "" || item.Title != "Runbook" || item.Author != "alice" {
		t.Fatalf("unexpected item %+v", item)
	}
	if item.Status != domain.StatusPendingValidation || item.Decided() || item.ValidatedBy != "" {
		t.Fatalf("new item must be undecided: %+v", item)
	}
	if item.Role != domain.RoleConsultant || item.Project != "Atlas" || item.Region != "EMEA" {
		t.Fatalf("metadata not kept: %+v", item)
	}
	if item.CreatedAt.IsZero() {
		t.Fatal("createdAt must be set")
	}
	if countItems(t, repo) != 1 {
		t.Fatal("expected one stored item")
	}
}

func TestSubmit_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*ports.SubmitKnowledgeInput)
	}{
		{"missing title", func(in *ports.SubmitKnowledgeInput) { in.Title = "" }},
		{"blank description", func(in *ports.SubmitKnowledgeInput) { in.Description = "   " }},
		{"missing author", func(in *ports.SubmitKnowledgeInput) { in.Author = "" }},
		{"missing role", func(in *ports.SubmitKnowledgeInput) { in.Role = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, repo := newKnowledge(t, DefaultKnowledgePolicy)
			in := submitInput("alice")
			tt.mutate(&in)

			_, err := svc.Submit(ctx, in)
			expectErr(t, err, domain.ErrValidation)
			if countItems(t, repo) != 0 {
				t.Fatal("invalid submission must not be stored")
			}
		})
	}
}

func TestSubmit_NonConsultantForbidden(t *testing.T) {
	for _, role := range []domain.Role{domain.RoleKnowledgeChampion, domain.RoleAdmin, "Guest"} {
		t.Run(string(role), func(t *testing.T) {
			svc, repo := newKnowledge(t, DefaultKnowledgePolicy)
			in := submitInput("bob")
			in.Role = string(role)

			_, err := svc.Submit(ctx, in)
			expectErr(t, err, domain.ErrForbidden)
			if countItems(t, repo) != 0 {
				t.Fatal("forbidden submission must not be stored")
			}
		})
	}
}

func TestSubmit_TagNormalization(t *testing.T) {
	svc, _ := newKnowledge(t, DefaultKnowledgePolicy)

	in := submitInput("alice")
	in.Tags = []string{" ops ", "", "k8s"}
	res, err := svc.Submit(ctx, in)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if got := strings.Join(res.Item.Tags, "|"); got != "ops|k8s" {
		t.Fatalf("unexpected tags from list: %q", got)
	}

	in = submitInput("alice")
	in.TagsText = "ops, k8s ,, runbook"
	res, err = svc.Submit(ctx, in)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if got := strings.Join(res.Item.Tags, "|"); got != "ops|k8s|runbook" {
		t.Fatalf("unexpected tags from text: %q", got)
	}

	res, err = svc.Submit(ctx, submitInput("alice"))
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if res.Item.Tags == nil || len(res.Item.Tags) != 0 {
		t.Fatalf("missing tags must become an empty list, got %#v", res.Item.Tags)
	}
}

func TestSubmit_IdempotentReplay(t *testing.T) {
	svc, repo := newKnowledge(t, DefaultKnowledgePolicy)

	in := submitInput("alice")
	in.IdempotencyKey = "req-1"
	first, err := svc.Submit(ctx, in)
	if err != nil {
		t.Fatalf("first submit: %v", err)
	}
	second, err := svc.Submit(ctx, in)
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if !second.AlreadyExisted || second.Item.ID != first.Item.ID {
		t.Fatalf("expected replay of %s, got %+v", first.Item.ID, second)
	}
	if countItems(t, repo) != 1 {
		t.Fatal("replay must not create a second item")
	}

	in.IdempotencyKey = "req-2"
	third, err := svc.Submit(ctx, in)
	if err != nil {
		t.Fatalf("new key: %v", err)
	}
	if third.AlreadyExisted || third.Item.ID == first.Item.ID {
		t.Fatal("different key must create a new item")
	}
}

func TestSubmit_WithoutIdempotencyStoreIgnoresKey(t *testing.T) {
	repo := memory.NewKnowledgeRepository()
	svc := NewKnowledgeService(repo, nil, DefaultKnowledgePolicy, zerolog.Nop())

	in := submitInput("alice")
	in.IdempotencyKey = "req-1"
	for i := 0; i < 2; i++ {
		if _, err := svc.Submit(ctx, in); err != nil {
			t.Fatalf("submit %d: %v", i, err)
		}
	}
	if countItems(t, repo) != 2 {
		t.Fatal("without a store every submission is new")
	}
}

// brokenIdempotency fails every call; submissions must still go through.
type brokenIdempotency struct{}

func (brokenIdempotency) Lookup(context.Context, string) (string, bool, error) {
	return "", false, errDown
}

func (brokenIdempotency) Remember(context.Context, string, string) error { return errDown }

func TestSubmit_IdempotencyFailureDoesNotBlock(t *testing.T) {
	repo := memory.NewKnowledgeRepository()
	svc := NewKnowledgeService(repo, brokenIdempotency{}, DefaultKnowledgePolicy, zerolog.Nop())

	in := submitInput("alice")
	in.IdempotencyKey = "req-1"
	if _, err := svc.Submit(ctx, in); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if countItems(t, repo) != 1 {
		t.Fatal("expected the item to be stored")
	}
}

func TestSubmit_BackendUnavailable(t *testing.T) {
	svc := NewKnowledgeService(failingKnowledgeRepo{}, nil, DefaultKnowledgePolicy, zerolog.Nop())

	_, err := svc.Submit(ctx, submitInput("alice"))
	expectErr(t, err, domain.ErrBackendUnavailable)
	if !domain.IsRetryable(err) {
		t.Fatal("backend faults must be retryable")
	}
}

// ---- Decide ----

func submitOne(t *testing.T, svc *KnowledgeService, author string) domain.KnowledgeItem {
	t.Helper()
	res, err := svc.Submit(ctx, submitInput(author))
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	return res.Item
}

func decide(id, decision string) ports.DecideInput {
	return ports.DecideInput{
		ID:         id,
		CallerRole: domain.RoleKnowledgeChampion,
		Validator:  "carol",
		Decision:   decision,
	}
}

func TestDecide_RecordsDecision(t *testing.T) {
	for _, decision := range []domain.KnowledgeStatus{domain.StatusApproved, domain.StatusRejected, domain.StatusRevisionRequested} {
		t.Run(string(decision), func(t *testing.T) {
			svc, repo := newKnowledge(t, DefaultKnowledgePolicy)
			item := submitOne(t, svc, "alice")

			updated, err := svc.Decide(ctx, decide(item.ID, string(decision)))
			if err != nil {
				t.Fatalf("decide: %v", err)
			}
			if updated.Status != decision || updated.ValidatedBy != "carol" || updated.ValidatedAt == nil {
				t.Fatalf("decision not recorded: %+v", updated)
			}
			if updated.Title != item.Title || !updated.CreatedAt.Equal(item.CreatedAt) {
				t.Fatal("decision must not touch content fields")
			}

			stored, err := repo.FindByID(ctx, item.ID)
			if err != nil {
				t.Fatalf("find: %v", err)
			}
			if stored.Status != decision || stored.ValidatedBy != "carol" {
				t.Fatalf("decision not persisted: %+v", stored)
			}
		})
	}
}

func TestDecide_StrictRejectsUnknownDecision(t *testing.T) {
	svc, repo := newKnowledge(t, DefaultKnowledgePolicy)
	item := submitOne(t, svc, "alice")

	_, err := svc.Decide(ctx, decide(item.ID, "Maybe"))
	expectErr(t, err, domain.ErrValidation)

	stored, _ := repo.FindByID(ctx, item.ID)
	if stored.Decided() {
		t.Fatal("rejected decision must not be written")
	}
}

func TestDecide_PermissiveStoresAnyDecision(t *testing.T) {
	svc, _ := newKnowledge(t, KnowledgePolicy{StrictDecisions: false, AllowRedecision: true})
	item := submitOne(t, svc, "alice")

	updated, err := svc.Decide(ctx, decide(item.ID, "Maybe"))
	if err != nil {
		t.Fatalf("decide: %v", err)
	}
	if updated.Status != "Maybe" {
		t.Fatalf("expected verbatim decision, got %q", updated.Status)
	}
}

func TestDecide_Validation(t *testing.T) {
	svc, _ := newKnowledge(t, DefaultKnowledgePolicy)
	item := submitOne(t, svc, "alice")

	in := decide(item.ID, "Approved")
	in.Validator = " "
	_, err := svc.Decide(ctx, in)
	expectErr(t, err, domain.ErrValidation)

	_, err = svc.Decide(ctx, decide(item.ID, ""))
	expectErr(t, err, domain.ErrValidation)
}

func TestDecide_NonChampionForbidden(t *testing.T) {
	for _, role := range []domain.Role{domain.RoleConsultant, domain.RoleAdmin, ""} {
		t.Run(string(role), func(t *testing.T) {
			svc, repo := newKnowledge(t, DefaultKnowledgePolicy)
			item := submitOne(t, svc, "alice")

			in := decide(item.ID, "Approved")
			in.CallerRole = role
			_, err := svc.Decide(ctx, in)
			expectErr(t, err, domain.ErrForbidden)

			stored, _ := repo.FindByID(ctx, item.ID)
			if stored.Decided() || stored.Status != domain.StatusPendingValidation {
				t.Fatal("forbidden decision must not be written")
			}
		})
	}
}

func TestDecide_UnknownOrMalformedID(t *testing.T) {
	svc, repo := newKnowledge(t, DefaultKnowledgePolicy)
	submitOne(t, svc, "alice")

	_, err := svc.Decide(ctx, decide("not-an-id", "Approved"))
	expectErr(t, err, domain.ErrInvalidID)

	_, err = svc.Decide(ctx, decide("3f2b1c9e-8d4a-4b7e-9f10-2a3b4c5d6e7f", "Approved"))
	expectErr(t, err, domain.ErrNotFound)

	items, _ := repo.List(ctx, domain.KnowledgeFilter{})
	if len(items) != 1 || items[0].Decided() {
		t.Fatal("failed decisions must leave the collection unchanged")
	}
}

func TestDecide_Redecision(t *testing.T) {
	t.Run("allowed", func(t *testing.T) {
		svc, _ := newKnowledge(t, DefaultKnowledgePolicy)
		item := submitOne(t, svc, "alice")

		if _, err := svc.Decide(ctx, decide(item.ID, "Rejected")); err != nil {
			t.Fatalf("first decision: %v", err)
		}
		in := decide(item.ID, "Approved")
		in.Validator = "dan"
		updated, err := svc.Decide(ctx, in)
		if err != nil {
			t.Fatalf("redecision: %v", err)
		}
		if updated.Status != domain.StatusApproved || updated.ValidatedBy != "dan" {
			t.Fatalf("last decision must win: %+v", updated)
		}
	})

	t.Run("frozen", func(t *testing.T) {
		svc, repo := newKnowledge(t, KnowledgePolicy{StrictDecisions: true, AllowRedecision: false})
		item := submitOne(t, svc, "alice")

		if _, err := svc.Decide(ctx, decide(item.ID, "Rejected")); err != nil {
			t.Fatalf("first decision: %v", err)
		}
		_, err := svc.Decide(ctx, decide(item.ID, "Approved"))
		expectErr(t, err, domain.ErrConflict)

		stored, _ := repo.FindByID(ctx, item.ID)
		if stored.Status != domain.StatusRejected {
			t.Fatalf("frozen decision changed to %q", stored.Status)
		}
	})
}

func TestDecide_ConcurrentDecisionsStayConsistent(t *testing.T) {
	svc, repo := newKnowledge(t, DefaultKnowledgePolicy)
	item := submitOne(t, svc, "alice")

	decisions := []string{"Approved", "Rejected", "Revision Requested"}
	validators := []string{"carol", "dan", "erin"}

	var wg sync.WaitGroup
	for i := 0; i < 30; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			in := decide(item.ID, decisions[i%3])
			in.Validator = validators[i%3]
			if _, err := svc.Decide(ctx, in); err != nil {
				t.Errorf("decide: %v", err)
			}
		}(i)
	}
	wg.Wait()

	stored, err := repo.FindByID(ctx, item.ID)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	// status and validator must come from the same decision
	pair := map[string]domain.KnowledgeStatus{
		"carol": domain.StatusApproved,
		"dan":   domain.StatusRejected,
		"erin":  domain.StatusRevisionRequested,
	}
	if pair[stored.ValidatedBy] != stored.Status {
		t.Fatalf("torn decision: status %q with validator %q", stored.Status, stored.ValidatedBy)
	}
	if countItems(t, repo) != 1 {
		t.Fatal("decisions must not create items")
	}
}

// ---- Reads ----

func TestList_NewestFirst(t *testing.T) {
	svc, _ := newKnowledge(t, DefaultKnowledgePolicy)
	var ids []string
	for _, author := range []string{"alice", "bob", "carol"} {
		ids = append(ids, submitOne(t, svc, author).ID)
	}

	items, err := svc.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("expected 3 items, got %d", len(items))
	}
	for i, want := range []string{ids[2], ids[1], ids[0]} {
		if items[i].ID != want {
			t.Fatalf("position %d: expected %s, got %s", i, want, items[i].ID)
		}
	}
}

func TestList_Empty(t *testing.T) {
	svc, _ := newKnowledge(t, DefaultKnowledgePolicy)
	items, err := svc.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != 0 {
		t.Fatalf("expected empty list, got %d", len(items))
	}
}

func TestGet(t *testing.T) {
	svc, _ := newKnowledge(t, DefaultKnowledgePolicy)
	item := submitOne(t, svc, "alice")

	got, err := svc.Get(ctx, " "+item.ID+" ")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.ID != item.ID {
		t.Fatalf("expected %s, got %s", item.ID, got.ID)
	}

	_, err = svc.Get(ctx, "garbage")
	expectErr(t, err, domain.ErrInvalidID)
	if errors.Is(err, domain.ErrNotFound) {
		t.Fatal("malformed id must not read as not found")
	}
}

// ---- End to end ----

func TestWorkflow_SubmitDecideScore(t *testing.T) {
	repo := memory.NewKnowledgeRepository()
	knowledge := NewKnowledgeService(repo, memory.NewIdempotencyStore(0), DefaultKnowledgePolicy, zerolog.Nop())
	knowledge.now = newClock().Now
	board := NewLeaderboardService(repo)

	a1 := submitOne(t, knowledge, "alice")
	a2 := submitOne(t, knowledge, "alice")
	b1 := submitOne(t, knowledge, "bob")

	steps := []struct {
		id       string
		decision string
	}{
		{a1.ID, "Approved"},
		{a2.ID, "Revision Requested"},
		{b1.ID, "Rejected"},
	}
	for _, s := range steps {
		if _, err := knowledge.Decide(ctx, decide(s.id, s.decision)); err != nil {
			t.Fatalf("decide %s: %v", s.decision, err)
		}
	}

	lb, err := board.Leaderboard(ctx, ports.LeaderboardQuery{})
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	// alice: 2 submissions (20) + approved (5) + revision (2) = 27
	// bob: 1 submission (10) + rejected (-2) = 8
	if lb.Scores["alice"] != 27 || lb.Scores["bob"] != 8 {
		t.Fatalf("unexpected scores %v", lb.Scores)
	}
	if lb.Ranking[0].Contributor != "alice" || lb.Ranking[0].Level != "Level 2" {
		t.Fatalf("unexpected leader %+v", lb.Ranking[0])
	}
}

// readBarrierRepo holds every FindByID until n callers have read, so all of
// them act on the same pre-decision snapshot.
type readBarrierRepo struct {
	*memory.KnowledgeRepository
	arrived sync.WaitGroup
}

func newReadBarrierRepo(n int) *readBarrierRepo {
	r := &readBarrierRepo{KnowledgeRepository: memory.NewKnowledgeRepository()}
	r.arrived.Add(n)
	return r
}

func (r *readBarrierRepo) FindByID(ctx context.Context, id string) (*domain.KnowledgeItem, error) {
	item, err := r.KnowledgeRepository.FindByID(ctx, id)
	r.arrived.Done()
	r.arrived.Wait()
	return item, err
}

func TestDecide_FrozenPolicyHoldsUnderConcurrentFirstDecisions(t *testing.T) {
	repo := newReadBarrierRepo(2)
	svc := NewKnowledgeService(repo, nil, KnowledgePolicy{StrictDecisions: true, AllowRedecision: false}, zerolog.Nop())

	created, err := repo.Insert(ctx, domain.KnowledgeItem{
		Title: "Runbook", Description: "d", Author: "alice",
		Role: domain.RoleConsultant, Status: domain.StatusPendingValidation,
	})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}

	decisions := []string{"Approved", "Rejected"}
	errs := make([]error, len(decisions))
	var wg sync.WaitGroup
	for i, d := range decisions {
		wg.Add(1)
		go func(i int, d string) {
			defer wg.Done()
			_, errs[i] = svc.Decide(ctx, decide(created.ID, d))
		}(i, d)
	}
	wg.Wait()

	committed := 0
	for _, err := range errs {
		switch {
		case err == nil:
			committed++
		case errors.Is(err, domain.ErrConflict):
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if committed != 1 {
		t.Fatalf("expected exactly one decision, got %d (errs=%v)", committed, errs)
	}
}

func TestDecide_RoleCheckedBeforeDecisionLiteral(t *testing.T) {
	svc, repo := newKnowledge(t, DefaultKnowledgePolicy)
	item := submitOne(t, svc, "alice")

	in := decide(item.ID, "Foo")
	in.CallerRole = domain.RoleConsultant
	_, err := svc.Decide(ctx, in)
	expectErr(t, err, domain.ErrForbidden)

	stored, _ := repo.FindByID(ctx, item.ID)
	if stored.Decided() {
		t.Fatal("forbidden decision must not be written")
	}
}
