// Package storetest is the backend-neutral conformance suite for the
// workflow repositories. Each backend's tests call Run with a factory that
// returns empty repositories.
package storetest

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/knowledgehub/workflow/internal/core/domain"
	"github.com/knowledgehub/workflow/internal/core/ports"
)

// Harness is one freshly emptied backend.
type Harness struct {
	Users     ports.UserRepository
	Knowledge ports.KnowledgeRepository
	// MissingID is a well-formed id for the backend that no record uses.
	MissingID string
}

// Run executes the whole suite, creating a new harness per subtest.
func Run(t *testing.T, newHarness func(t *testing.T) Harness) {
	t.Helper()

	for _, tc := range []struct {
		name string
		fn   func(t *testing.T, h Harness)
	}{
		{"UserInsertAndFind", testUserInsertAndFind},
		{"UserDuplicateKey", testUserDuplicateKey},
		{"UserUsernameCaseSensitive", testUserCaseSensitive},
		{"UserListFilter", testUserListFilter},
		{"UserUpdate", testUserUpdate},
		{"UserUpdateMissing", testUserUpdateMissing},
		{"UserRemoveReclaimsKey", testUserRemove},
		{"UserRemovePendingOnly", testUserRemovePending},
		{"KnowledgeRoundTrip", testKnowledgeRoundTrip},
		{"KnowledgeIDsUniqueAndURLSafe", testKnowledgeIDs},
		{"KnowledgeInvalidID", testKnowledgeInvalidID},
		{"KnowledgeMissingIDLeavesCollectionUnchanged", testKnowledgeMissing},
		{"KnowledgeUpdateWritesDecision", testKnowledgeUpdate},
		{"KnowledgeListFilter", testKnowledgeListFilter},
		{"KnowledgeRemove", testKnowledgeRemove},
		{"KnowledgeConcurrentInserts", testKnowledgeConcurrentInserts},
		{"KnowledgeConcurrentDecisionsDistinctItems", testKnowledgeConcurrentDistinct},
		{"KnowledgeConcurrentDecisionsSameItem", testKnowledgeConcurrentSame},
		{"KnowledgeConditionalDecision", testKnowledgeOnlyIfUndecided},
		{"KnowledgeConcurrentConditionalDecisions", testKnowledgeConcurrentOnlyIfUndecided},
	} {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			tc.fn(t, newHarness(t))
		})
	}
}

var ctx = context.Background()

func baseTime() time.Time {
	return time.Date(2026, 2, 19, 10, 30, 15, 123_000_000, time.UTC)
}

func newUser(username string, status domain.UserStatus) domain.User {
	return domain.User{
		Username:      username,
		PasswordHash:  "hash-" + username,
		Role:          domain.RoleConsultant,
		RequestedRole: domain.RoleKnowledgeChampion,
		Region:        "EMEA",
		Status:        status,
		CreatedAt:     baseTime(),
	}
}

func newItem(author string) domain.KnowledgeItem {
	return domain.KnowledgeItem{
		Title:       "Runbook",
		Description: "How to restart the ingest pipeline",
		Author:      author,
		Role:        domain.RoleConsultant,
		Tags:        []string{"ops", "runbook"},
		Project:     "Atlas",
		Region:      "APAC",
		Type:        "Guide",
		Status:      domain.StatusPendingValidation,
		CreatedAt:   baseTime(),
	}
}

func mustInsertItem(t *testing.T, h Harness, item domain.KnowledgeItem) domain.KnowledgeItem {
	t.Helper()
	created, err := h.Knowledge.Insert(ctx, item)
	if err != nil {
		t.Fatalf("insert item: %v", err)
	}
	return *created
}

func assertSameUser(t *testing.T, want, got domain.User) {
	t.Helper()
	if want.Username != got.Username || want.PasswordHash != got.PasswordHash || want.Role != got.Role ||
		want.RequestedRole != got.RequestedRole || want.Region != got.Region || want.Status != got.Status ||
		!want.CreatedAt.Equal(got.CreatedAt) {
		t.Fatalf("user mismatch:\nwant %+v\ngot  %+v", want, got)
	}
}

func assertSameItem(t *testing.T, want, got domain.KnowledgeItem) {
	t.Helper()
	if err := diffItem(want, got); err != nil {
		t.Fatalf("%v\nwant %+v\ngot  %+v", err, want, got)
	}
}

func diffItem(want, got domain.KnowledgeItem) error {
	switch {
	case want.ID != got.ID:
		return fmt.Errorf("id: want %q, got %q", want.ID, got.ID)
	case want.Title != got.Title || want.Description != got.Description:
		return errors.New("title/description differ")
	case want.Author != got.Author || want.Role != got.Role:
		return errors.New("author/role differ")
	case want.Project != got.Project || want.Region != got.Region || want.Type != got.Type:
		return errors.New("classification fields differ")
	case want.Status != got.Status || want.ValidatedBy != got.ValidatedBy:
		return errors.New("status/validatedBy differ")
	case !want.CreatedAt.Equal(got.CreatedAt):
		return fmt.Errorf("createdAt: want %v, got %v", want.CreatedAt, got.CreatedAt)
	case (want.ValidatedAt == nil) != (got.ValidatedAt == nil):
		return errors.New("validatedAt presence differs")
	case want.ValidatedAt != nil && !want.ValidatedAt.Equal(*got.ValidatedAt):
		return fmt.Errorf("validatedAt: want %v, got %v", *want.ValidatedAt, *got.ValidatedAt)
	case len(want.Tags) != len(got.Tags):
		return fmt.Errorf("tags: want %v, got %v", want.Tags, got.Tags)
	}
	for i := range want.Tags {
		if want.Tags[i] != got.Tags[i] {
			return fmt.Errorf("tags: want %v, got %v", want.Tags, got.Tags)
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// Users
// ---------------------------------------------------------------------------

func testUserInsertAndFind(t *testing.T, h Harness) {
	u := newUser("alice", domain.UserPending)
	created, err := h.Users.Insert(ctx, u)
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	assertSameUser(t, u, *created)

	found, err := h.Users.FindByUsername(ctx, "alice")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	assertSameUser(t, u, *found)

	if _, err := h.Users.FindByUsername(ctx, "nobody"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func testUserDuplicateKey(t *testing.T, h Harness) {
	if _, err := h.Users.Insert(ctx, newUser("bob", domain.UserPending)); err != nil {
		t.Fatalf("insert: %v", err)
	}
	dup := newUser("bob", domain.UserApproved)
	dup.Region = "Americas"
	if _, err := h.Users.Insert(ctx, dup); !errors.Is(err, domain.ErrDuplicateKey) {
		t.Fatalf("expected ErrDuplicateKey, got %v", err)
	}

	found, err := h.Users.FindByUsername(ctx, "bob")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if found.Region != "EMEA" || found.Status != domain.UserPending {
		t.Fatalf("duplicate insert modified the original: %+v", found)
	}
}

func testUserCaseSensitive(t *testing.T, h Harness) {
	if _, err := h.Users.Insert(ctx, newUser("carol", domain.UserPending)); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if _, err := h.Users.Insert(ctx, newUser("Carol", domain.UserPending)); err != nil {
		t.Fatalf("usernames differing in case must coexist: %v", err)
	}
	if _, err := h.Users.FindByUsername(ctx, "CAROL"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for different case, got %v", err)
	}
}

func testUserListFilter(t *testing.T, h Harness) {
	for _, u := range []domain.User{
		newUser("p1", domain.UserPending),
		newUser("p2", domain.UserPending),
		newUser("a1", domain.UserApproved),
	} {
		if _, err := h.Users.Insert(ctx, u); err != nil {
			t.Fatalf("insert %s: %v", u.Username, err)
		}
	}

	all, err := h.Users.List(ctx, domain.UserFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 users, got %d", len(all))
	}

	pending, err := h.Users.List(ctx, domain.UserFilter{Status: domain.UserPending})
	if err != nil {
		t.Fatalf("list pending: %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("expected 2 pending users, got %d", len(pending))
	}
	for _, u := range pending {
		if u.Status != domain.UserPending {
			t.Errorf("filter leaked %s with status %s", u.Username, u.Status)
		}
	}
}

func testUserUpdate(t *testing.T, h Harness) {
	if _, err := h.Users.Insert(ctx, newUser("dave", domain.UserPending)); err != nil {
		t.Fatalf("insert: %v", err)
	}

	role := domain.RoleKnowledgeChampion
	status := domain.UserApproved
	updated, err := h.Users.Update(ctx, "dave", domain.UserPatch{Role: &role, Status: &status})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Role != role || updated.Status != status {
		t.Fatalf("patch not applied: %+v", updated)
	}

	// partial patch leaves other fields alone
	back := domain.UserPending
	updated, err = h.Users.Update(ctx, "dave", domain.UserPatch{Status: &back})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Role != role || updated.Status != back || updated.Region != "EMEA" {
		t.Fatalf("partial patch clobbered fields: %+v", updated)
	}

	found, _ := h.Users.FindByUsername(ctx, "dave")
	assertSameUser(t, *updated, *found)
}

func testUserUpdateMissing(t *testing.T, h Harness) {
	status := domain.UserApproved
	if _, err := h.Users.Update(ctx, "ghost", domain.UserPatch{Status: &status}); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := h.Users.Remove(ctx, "ghost"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func testUserRemove(t *testing.T, h Harness) {
	u := newUser("erin", domain.UserPending)
	if _, err := h.Users.Insert(ctx, u); err != nil {
		t.Fatalf("insert: %v", err)
	}

	removed, err := h.Users.Remove(ctx, "erin")
	if err != nil {
		t.Fatalf("remove: %v", err)
	}
	assertSameUser(t, u, *removed)

	if _, err := h.Users.FindByUsername(ctx, "erin"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after remove, got %v", err)
	}
	if _, err := h.Users.Insert(ctx, u); err != nil {
		t.Fatalf("username must be reusable after remove: %v", err)
	}
}

func testUserRemovePending(t *testing.T, h Harness) {
	pending := newUser("erin", domain.UserPending)
	approved := newUser("frank", domain.UserApproved)
	for _, u := range []domain.User{pending, approved} {
		if _, err := h.Users.Insert(ctx, u); err != nil {
			t.Fatalf("insert %s: %v", u.Username, err)
		}
	}

	removed, err := h.Users.RemovePending(ctx, "erin")
	if err != nil {
		t.Fatalf("remove pending: %v", err)
	}
	assertSameUser(t, pending, *removed)
	if _, err := h.Users.FindByUsername(ctx, "erin"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after remove, got %v", err)
	}

	if _, err := h.Users.RemovePending(ctx, "frank"); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("approved account: expected ErrConflict, got %v", err)
	}
	got, err := h.Users.FindByUsername(ctx, "frank")
	if err != nil {
		t.Fatalf("approved account must survive: %v", err)
	}
	assertSameUser(t, approved, *got)

	if _, err := h.Users.RemovePending(ctx, "ghost"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("missing account: expected ErrNotFound, got %v", err)
	}
}

// ---------------------------------------------------------------------------
// Knowledge items
// ---------------------------------------------------------------------------

func testKnowledgeRoundTrip(t *testing.T, h Harness) {
	item := newItem("u1")
	created := mustInsertItem(t, h, item)
	if created.ID == "" {
		t.Fatal("insert must assign an id")
	}

	item.ID = created.ID
	assertSameItem(t, item, created)

	all, err := h.Knowledge.List(ctx, domain.KnowledgeFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("expected 1 item, got %d", len(all))
	}
	assertSameItem(t, item, all[0])

	found, err := h.Knowledge.FindByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	assertSameItem(t, item, *found)
}

func testKnowledgeIDs(t *testing.T, h Harness) {
	seen := make(map[string]bool)
	for i := 0; i < 20; i++ {
		created := mustInsertItem(t, h, newItem("u1"))
		if seen[created.ID] {
			t.Fatalf("id %s reused", created.ID)
		}
		seen[created.ID] = true
		if url.PathEscape(created.ID) != created.ID {
			t.Fatalf("id %q is not safe in a path segment", created.ID)
		}
	}
}

func testKnowledgeInvalidID(t *testing.T, h Harness) {
	mustInsertItem(t, h, newItem("u1"))
	for _, id := range []string{"", "not an id", "../etc", "42"} {
		if _, err := h.Knowledge.FindByID(ctx, id); !errors.Is(err, domain.ErrInvalidID) {
			t.Errorf("FindByID(%q): expected ErrInvalidID, got %v", id, err)
		}
		if _, err := h.Knowledge.Update(ctx, id, domain.KnowledgePatch{Status: domain.StatusApproved, ValidatedBy: "x", ValidatedAt: baseTime()}); !errors.Is(err, domain.ErrInvalidID) {
			t.Errorf("Update(%q): expected ErrInvalidID, got %v", id, err)
		}
		if _, err := h.Knowledge.Remove(ctx, id); !errors.Is(err, domain.ErrInvalidID) {
			t.Errorf("Remove(%q): expected ErrInvalidID, got %v", id, err)
		}
	}
}

func testKnowledgeMissing(t *testing.T, h Harness) {
	a := mustInsertItem(t, h, newItem("u1"))
	b := mustInsertItem(t, h, newItem("u2"))

	if _, err := h.Knowledge.FindByID(ctx, h.MissingID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("FindByID: expected ErrNotFound, got %v", err)
	}
	patch := domain.KnowledgePatch{Status: domain.StatusApproved, ValidatedBy: "champ", ValidatedAt: baseTime()}
	if _, err := h.Knowledge.Update(ctx, h.MissingID, patch); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("Update: expected ErrNotFound, got %v", err)
	}
	if _, err := h.Knowledge.Remove(ctx, h.MissingID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("Remove: expected ErrNotFound, got %v", err)
	}

	all, err := h.Knowledge.List(ctx, domain.KnowledgeFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("collection size changed: %d", len(all))
	}
	byID := map[string]domain.KnowledgeItem{all[0].ID: all[0], all[1].ID: all[1]}
	assertSameItem(t, a, byID[a.ID])
	assertSameItem(t, b, byID[b.ID])
}

func testKnowledgeUpdate(t *testing.T, h Harness) {
	created := mustInsertItem(t, h, newItem("u1"))

	at := baseTime().Add(time.Hour)
	updated, err := h.Knowledge.Update(ctx, created.ID, domain.KnowledgePatch{
		Status:      domain.StatusApproved,
		ValidatedBy: "champ1",
		ValidatedAt: at,
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}

	want := created
	want.Status = domain.StatusApproved
	want.ValidatedBy = "champ1"
	want.ValidatedAt = &at
	assertSameItem(t, want, *updated)

	found, err := h.Knowledge.FindByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	assertSameItem(t, want, *found)

	// a later decision overwrites both validator fields
	later := at.Add(time.Minute)
	updated, err = h.Knowledge.Update(ctx, created.ID, domain.KnowledgePatch{
		Status:      domain.StatusRevisionRequested,
		ValidatedBy: "champ2",
		ValidatedAt: later,
	})
	if err != nil {
		t.Fatalf("second update: %v", err)
	}
	if updated.ValidatedBy != "champ2" || !updated.ValidatedAt.Equal(later) || updated.Status != domain.StatusRevisionRequested {
		t.Fatalf("second decision not applied: %+v", updated)
	}
}

func testKnowledgeListFilter(t *testing.T, h Harness) {
	a := mustInsertItem(t, h, newItem("alice"))
	mustInsertItem(t, h, newItem("bob"))
	mustInsertItem(t, h, newItem("alice"))

	if _, err := h.Knowledge.Update(ctx, a.ID, domain.KnowledgePatch{Status: domain.StatusRejected, ValidatedBy: "c", ValidatedAt: baseTime()}); err != nil {
		t.Fatalf("update: %v", err)
	}

	byAuthor, err := h.Knowledge.List(ctx, domain.KnowledgeFilter{Author: "alice"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(byAuthor) != 2 {
		t.Fatalf("expected 2 items by alice, got %d", len(byAuthor))
	}

	rejected, err := h.Knowledge.List(ctx, domain.KnowledgeFilter{Author: "alice", Status: domain.StatusRejected})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(rejected) != 1 || rejected[0].ID != a.ID {
		t.Fatalf("expected only %s, got %+v", a.ID, rejected)
	}
}

func testKnowledgeRemove(t *testing.T, h Harness) {
	created := mustInsertItem(t, h, newItem("u1"))

	removed, err := h.Knowledge.Remove(ctx, created.ID)
	if err != nil {
		t.Fatalf("remove: %v", err)
	}
	assertSameItem(t, created, *removed)

	if _, err := h.Knowledge.FindByID(ctx, created.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after remove, got %v", err)
	}

	next := mustInsertItem(t, h, newItem("u1"))
	if next.ID == created.ID {
		t.Fatal("removed id was reused")
	}
}

func testKnowledgeConcurrentInserts(t *testing.T, h Harness) {
	const n = 25
	ids := make([]string, n)
	errs := make([]error, n)

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			created, err := h.Knowledge.Insert(ctx, newItem(fmt.Sprintf("author-%d", i)))
			if err != nil {
				errs[i] = err
				return
			}
			ids[i] = created.ID
		}(i)
	}
	wg.Wait()

	seen := make(map[string]bool, n)
	for i := 0; i < n; i++ {
		if errs[i] != nil {
			t.Fatalf("insert %d: %v", i, errs[i])
		}
		if seen[ids[i]] {
			t.Fatalf("duplicate id %s under concurrency", ids[i])
		}
		seen[ids[i]] = true
	}

	all, err := h.Knowledge.List(ctx, domain.KnowledgeFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != n {
		t.Fatalf("expected %d items, got %d", n, len(all))
	}
}

func testKnowledgeConcurrentDistinct(t *testing.T, h Harness) {
	const n = 20
	statuses := []domain.KnowledgeStatus{domain.StatusApproved, domain.StatusRejected, domain.StatusRevisionRequested}

	items := make([]domain.KnowledgeItem, n)
	for i := range items {
		items[i] = mustInsertItem(t, h, newItem(fmt.Sprintf("author-%d", i)))
	}

	want := make([]domain.KnowledgePatch, n)
	for i := range want {
		want[i] = domain.KnowledgePatch{
			Status:      statuses[i%len(statuses)],
			ValidatedBy: fmt.Sprintf("champ-%d", i),
			ValidatedAt: baseTime().Add(time.Duration(i) * time.Second),
		}
	}

	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = h.Knowledge.Update(ctx, items[i].ID, want[i])
		}(i)
	}
	wg.Wait()

	for i := 0; i < n; i++ {
		if errs[i] != nil {
			t.Fatalf("update %d: %v", i, errs[i])
		}
		got, err := h.Knowledge.FindByID(ctx, items[i].ID)
		if err != nil {
			t.Fatalf("find %d: %v", i, err)
		}
		expected := items[i]
		want[i].Apply(&expected)
		assertSameItem(t, expected, *got)
	}
}

func testKnowledgeConcurrentSame(t *testing.T, h Harness) {
	const n = 15
	item := mustInsertItem(t, h, newItem("u1"))

	patches := make(map[string]domain.KnowledgePatch, n)
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		p := domain.KnowledgePatch{
			Status:      domain.StatusApproved,
			ValidatedBy: fmt.Sprintf("champ-%d", i),
			ValidatedAt: baseTime().Add(time.Duration(i) * time.Minute),
		}
		if i%2 == 1 {
			p.Status = domain.StatusRejected
		}
		patches[p.ValidatedBy] = p
		wg.Add(1)
		go func(i int, p domain.KnowledgePatch) {
			defer wg.Done()
			_, errs[i] = h.Knowledge.Update(ctx, item.ID, p)
		}(i, p)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("update %d: %v", i, err)
		}
	}

	got, err := h.Knowledge.FindByID(ctx, item.ID)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	winner, ok := patches[got.ValidatedBy]
	if !ok {
		t.Fatalf("final validator %q was never written", got.ValidatedBy)
	}
	// all three decision fields must come from the same write
	expected := item
	winner.Apply(&expected)
	assertSameItem(t, expected, *got)
}

func testKnowledgeOnlyIfUndecided(t *testing.T, h Harness) {
	item := mustInsertItem(t, h, newItem("u1"))

	first := domain.KnowledgePatch{
		Status: domain.StatusRejected, ValidatedBy: "champ-a", ValidatedAt: baseTime(), OnlyIfUndecided: true,
	}
	if _, err := h.Knowledge.Update(ctx, item.ID, first); err != nil {
		t.Fatalf("first decision: %v", err)
	}

	second := domain.KnowledgePatch{
		Status: domain.StatusApproved, ValidatedBy: "champ-b", ValidatedAt: baseTime().Add(time.Hour), OnlyIfUndecided: true,
	}
	if _, err := h.Knowledge.Update(ctx, item.ID, second); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("second decision: expected ErrConflict, got %v", err)
	}

	got, err := h.Knowledge.FindByID(ctx, item.ID)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	expected := item
	first.Apply(&expected)
	assertSameItem(t, expected, *got)

	if _, err := h.Knowledge.Update(ctx, h.MissingID, first); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("missing id: expected ErrNotFound, got %v", err)
	}
}

func testKnowledgeConcurrentOnlyIfUndecided(t *testing.T, h Harness) {
	const n = 10
	item := mustInsertItem(t, h, newItem("u1"))

	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = h.Knowledge.Update(ctx, item.ID, domain.KnowledgePatch{
				Status:          domain.StatusApproved,
				ValidatedBy:     fmt.Sprintf("champ-%d", i),
				ValidatedAt:     baseTime(),
				OnlyIfUndecided: true,
			})
		}(i)
	}
	wg.Wait()

	winners := 0
	for i, err := range errs {
		switch {
		case err == nil:
			winners++
		case errors.Is(err, domain.ErrConflict):
		default:
			t.Fatalf("update %d: %v", i, err)
		}
	}
	if winners != 1 {
		t.Fatalf("expected exactly one decision to commit, got %d", winners)
	}
}
