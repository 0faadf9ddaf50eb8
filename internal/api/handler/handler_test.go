package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/knowledgehub/workflow/internal/api/middleware"
	"github.com/knowledgehub/workflow/internal/core/domain"
	"github.com/knowledgehub/workflow/internal/core/ports"
)

// ---- stubs ----

type stubAccountService struct {
	signupFn  func(ctx context.Context, in ports.SignupInput) (*domain.SanitizedUser, error)
	loginFn   func(ctx context.Context, in ports.LoginInput) (*domain.Identity, error)
	pendingFn func(ctx context.Context, role domain.Role) ([]domain.SanitizedUser, error)
	approveFn func(ctx context.Context, role domain.Role, username string) (*domain.SanitizedUser, error)
	rejectFn  func(ctx context.Context, role domain.Role, username string) (*domain.SanitizedUser, error)
}

func (s *stubAccountService) Signup(ctx context.Context, in ports.SignupInput) (*domain.SanitizedUser, error) {
	return s.signupFn(ctx, in)
}

func (s *stubAccountService) Login(ctx context.Context, in ports.LoginInput) (*domain.Identity, error) {
	return s.loginFn(ctx, in)
}

func (s *stubAccountService) ListPending(ctx context.Context, role domain.Role) ([]domain.SanitizedUser, error) {
	return s.pendingFn(ctx, role)
}

func (s *stubAccountService) Approve(ctx context.Context, role domain.Role, username string) (*domain.SanitizedUser, error) {
	return s.approveFn(ctx, role, username)
}

func (s *stubAccountService) Reject(ctx context.Context, role domain.Role, username string) (*domain.SanitizedUser, error) {
	return s.rejectFn(ctx, role, username)
}

func (s *stubAccountService) Bootstrap(context.Context) (int, error) { return 0, nil }

type stubKnowledgeService struct {
	submitFn func(ctx context.Context, in ports.SubmitKnowledgeInput) (*ports.SubmitResult, error)
	decideFn func(ctx context.Context, in ports.DecideInput) (*domain.KnowledgeItem, error)
	listFn   func(ctx context.Context) ([]domain.KnowledgeItem, error)
	getFn    func(ctx context.Context, id string) (*domain.KnowledgeItem, error)
}

func (s *stubKnowledgeService) Submit(ctx context.Context, in ports.SubmitKnowledgeInput) (*ports.SubmitResult, error) {
	return s.submitFn(ctx, in)
}

func (s *stubKnowledgeService) Decide(ctx context.Context, in ports.DecideInput) (*domain.KnowledgeItem, error) {
	return s.decideFn(ctx, in)
}

func (s *stubKnowledgeService) List(ctx context.Context) ([]domain.KnowledgeItem, error) {
	return s.listFn(ctx)
}

func (s *stubKnowledgeService) Get(ctx context.Context, id string) (*domain.KnowledgeItem, error) {
	return s.getFn(ctx, id)
}

type stubLeaderboardService struct {
	fn func(ctx context.Context, q ports.LeaderboardQuery) (*domain.Leaderboard, error)
}

func (s *stubLeaderboardService) Leaderboard(ctx context.Context, q ports.LeaderboardQuery) (*domain.Leaderboard, error) {
	return s.fn(ctx, q)
}

type stubChecker struct{ err error }

func (s stubChecker) Ping(context.Context) error { return s.err }

// ---- helpers ----

func newContext(method, target, body string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	e.Validator = NewValidator()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set(middleware.CtxVerified, false)
	return c, rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("invalid json %q: %v", rec.Body.String(), err)
	}
}

func expectHTTPError(t *testing.T, err error, code int) {
	t.Helper()
	var he *echo.HTTPError
	if !errors.As(err, &he) || he.Code != code {
		t.Fatalf("expected HTTP %d, got %v", code, err)
	}
}

// ---- accounts ----

func TestAccountHandler_Signup_Success(t *testing.T) {
	stub := &stubAccountService{
		signupFn: func(ctx context.Context, in ports.SignupInput) (*domain.SanitizedUser, error) {
			if in.Username != "dave" || in.Password != "pw12" || in.Region != "EMEA" || in.RequestedRole != "KnowledgeChampion" {
				t.Fatalf("unexpected input: %+v", in)
			}
			return &domain.SanitizedUser{Username: "dave", Role: domain.RoleConsultant, RequestedRole: domain.RoleKnowledgeChampion, Status: domain.UserPending}, nil
		},
	}
	c, rec := newContext(http.MethodPost, "/api/signup", `{"username":"dave","password":"pw12","region":"EMEA","requestedRole":"KnowledgeChampion"}`)

	if err := NewAccountHandler(stub).Signup(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}

	var resp map[string]any
	decode(t, rec, &resp)
	user, ok := resp["user"].(map[string]any)
	if !ok || user["status"] != "Pending" || user["role"] != "Consultant" {
		t.Fatalf("unexpected payload: %+v", resp)
	}
	if _, leaked := user["password"]; leaked {
		t.Fatal("password must never be serialized")
	}
}

func TestAccountHandler_Signup_InvalidPayload(t *testing.T) {
	stub := &stubAccountService{
		signupFn: func(ctx context.Context, in ports.SignupInput) (*domain.SanitizedUser, error) {
			t.Fatalf("should not be called")
			return nil, nil
		},
	}
	c, _ := newContext(http.MethodPost, "/api/signup", "not-json")

	expectHTTPError(t, NewAccountHandler(stub).Signup(c), http.StatusBadRequest)
}

func TestAccountHandler_Signup_PropagatesDomainError(t *testing.T) {
	stub := &stubAccountService{
		signupFn: func(ctx context.Context, in ports.SignupInput) (*domain.SanitizedUser, error) {
			return nil, domain.ErrConflict
		},
	}
	c, _ := newContext(http.MethodPost, "/api/signup", `{"username":"dave"}`)

	if err := NewAccountHandler(stub).Signup(c); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestAccountHandler_Login(t *testing.T) {
	stub := &stubAccountService{
		loginFn: func(ctx context.Context, in ports.LoginInput) (*domain.Identity, error) {
			if in.Username != "admin1" || in.Password != "1234" {
				return nil, domain.ErrUnauthorized
			}
			return &domain.Identity{Username: "admin1", Role: domain.RoleAdmin}, nil
		},
	}
	h := NewAccountHandler(stub)

	c, rec := newContext(http.MethodPost, "/api/login", `{"username":"admin1","password":"1234"}`)
	if err := h.Login(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	var identity domain.Identity
	decode(t, rec, &identity)
	if identity.Username != "admin1" || identity.Role != domain.RoleAdmin {
		t.Fatalf("unexpected identity %+v", identity)
	}

	c, _ = newContext(http.MethodPost, "/api/login", `{"username":"admin1","password":"nope"}`)
	if err := h.Login(c); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestAccountHandler_ListPending_UsesContextRole(t *testing.T) {
	stub := &stubAccountService{
		pendingFn: func(ctx context.Context, role domain.Role) ([]domain.SanitizedUser, error) {
			if role != domain.RoleAdmin {
				t.Fatalf("unexpected role %q", role)
			}
			return []domain.SanitizedUser{{Username: "dave"}}, nil
		},
	}
	c, rec := newContext(http.MethodGet, "/api/admin/requests", "")
	c.Set(middleware.CtxRole, domain.RoleAdmin)

	if err := NewAccountHandler(stub).ListPending(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	var users []domain.SanitizedUser
	decode(t, rec, &users)
	if len(users) != 1 || users[0].Username != "dave" {
		t.Fatalf("unexpected payload %+v", users)
	}
}

func TestAccountHandler_ApproveAndReject_UseBodyRoleInTrustMode(t *testing.T) {
	var approvedBy, rejectedBy domain.Role
	stub := &stubAccountService{
		approveFn: func(ctx context.Context, role domain.Role, username string) (*domain.SanitizedUser, error) {
			approvedBy = role
			return &domain.SanitizedUser{Username: username, Status: domain.UserApproved}, nil
		},
		rejectFn: func(ctx context.Context, role domain.Role, username string) (*domain.SanitizedUser, error) {
			rejectedBy = role
			return &domain.SanitizedUser{Username: username, Status: domain.UserPending}, nil
		},
	}
	h := NewAccountHandler(stub)

	c, rec := newContext(http.MethodPut, "/api/admin/requests/approve", `{"username":"dave","role":"Admin"}`)
	if err := h.Approve(c); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if approvedBy != domain.RoleAdmin || rec.Code != http.StatusOK {
		t.Fatalf("approve: role=%q code=%d", approvedBy, rec.Code)
	}

	c, rec = newContext(http.MethodPut, "/api/admin/requests/reject", `{"username":"erin","role":"Consultant"}`)
	if err := h.Reject(c); err != nil {
		t.Fatalf("reject: %v", err)
	}
	if rejectedBy != domain.RoleConsultant || rec.Code != http.StatusOK {
		t.Fatalf("reject: role=%q code=%d", rejectedBy, rec.Code)
	}
}

// ---- knowledge ----

func TestKnowledgeHandler_Submit_TagForms(t *testing.T) {
	tests := []struct {
		name     string
		tags     string
		wantList []string
		wantText string
	}{
		{"array", `["ops", " cloud "]`, []string{"ops", " cloud "}, ""},
		{"string", `"ops, cloud"`, nil, "ops, cloud"},
		{"absent", `null`, nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stub := &stubKnowledgeService{
				submitFn: func(ctx context.Context, in ports.SubmitKnowledgeInput) (*ports.SubmitResult, error) {
					if strings.Join(in.Tags, "|") != strings.Join(tt.wantList, "|") || in.TagsText != tt.wantText {
						t.Fatalf("unexpected tags: %q / %q", in.Tags, in.TagsText)
					}
					if in.Role != "Consultant" || in.Author != "alice" {
						t.Fatalf("unexpected caller: %+v", in)
					}
					return &ports.SubmitResult{Item: domain.KnowledgeItem{ID: "k1", Status: domain.StatusPendingValidation}}, nil
				},
			}
			body := `{"title":"T","description":"D","author":"alice","role":"Consultant","tags":` + tt.tags + `}`
			c, rec := newContext(http.MethodPost, "/api/knowledge", body)

			if err := NewKnowledgeHandler(stub).Submit(c); err != nil {
				t.Fatalf("handler error: %v", err)
			}
			if rec.Code != http.StatusCreated {
				t.Fatalf("expected 201, got %d", rec.Code)
			}
			var resp knowledgeResponse
			decode(t, rec, &resp)
			if resp.Message != "Knowledge submitted" || resp.Item.ID != "k1" {
				t.Fatalf("unexpected response %+v", resp)
			}
		})
	}
}

func TestKnowledgeHandler_Submit_RejectsBadTagType(t *testing.T) {
	stub := &stubKnowledgeService{
		submitFn: func(ctx context.Context, in ports.SubmitKnowledgeInput) (*ports.SubmitResult, error) {
			t.Fatalf("should not be called")
			return nil, nil
		},
	}
	c, _ := newContext(http.MethodPost, "/api/knowledge", `{"title":"T","tags":42}`)

	expectHTTPError(t, NewKnowledgeHandler(stub).Submit(c), http.StatusBadRequest)
}

func TestKnowledgeHandler_Submit_IdempotentReplay(t *testing.T) {
	stub := &stubKnowledgeService{
		submitFn: func(ctx context.Context, in ports.SubmitKnowledgeInput) (*ports.SubmitResult, error) {
			if in.IdempotencyKey != "abc" {
				t.Fatalf("idempotency key not forwarded: %q", in.IdempotencyKey)
			}
			return &ports.SubmitResult{Item: domain.KnowledgeItem{ID: "k1"}, AlreadyExisted: true}, nil
		},
	}
	c, rec := newContext(http.MethodPost, "/api/knowledge", `{"title":"T"}`)
	c.Request().Header.Set(HeaderIdempotencyKey, "abc")

	if err := NewKnowledgeHandler(stub).Submit(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 on replay, got %d", rec.Code)
	}
}

func TestKnowledgeHandler_Submit_VerifiedCallerOverridesBody(t *testing.T) {
	stub := &stubKnowledgeService{
		submitFn: func(ctx context.Context, in ports.SubmitKnowledgeInput) (*ports.SubmitResult, error) {
			if in.Author != "consultant1" || in.Role != "Consultant" {
				t.Fatalf("verified identity not applied: %+v", in)
			}
			return &ports.SubmitResult{Item: domain.KnowledgeItem{ID: "k1"}}, nil
		},
	}
	c, _ := newContext(http.MethodPost, "/api/knowledge", `{"title":"T","author":"mallory","role":"Admin"}`)
	c.Set(middleware.CtxVerified, true)
	c.Set(middleware.CtxUsername, "consultant1")
	c.Set(middleware.CtxRole, domain.RoleConsultant)

	if err := NewKnowledgeHandler(stub).Submit(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
}

func TestKnowledgeHandler_Decide(t *testing.T) {
	stub := &stubKnowledgeService{
		decideFn: func(ctx context.Context, in ports.DecideInput) (*domain.KnowledgeItem, error) {
			if in.ID != "k1" || in.CallerRole != domain.RoleKnowledgeChampion || in.Validator != "champion1" || in.Decision != "Approved" {
				t.Fatalf("unexpected input %+v", in)
			}
			at := time.Now().UTC()
			return &domain.KnowledgeItem{ID: "k1", Status: domain.StatusApproved, ValidatedBy: "champion1", ValidatedAt: &at}, nil
		},
	}
	c, rec := newContext(http.MethodPut, "/api/validate/k1", `{"role":"KnowledgeChampion","validator":"champion1","decision":"Approved"}`)
	c.SetParamNames("id")
	c.SetParamValues("k1")

	if err := NewKnowledgeHandler(stub).Decide(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	var resp knowledgeResponse
	decode(t, rec, &resp)
	if resp.Message != "Validation updated" || resp.Item.Status != domain.StatusApproved {
		t.Fatalf("unexpected response %+v", resp)
	}
}

func TestKnowledgeHandler_ListAndGet(t *testing.T) {
	stub := &stubKnowledgeService{
		listFn: func(ctx context.Context) ([]domain.KnowledgeItem, error) {
			return []domain.KnowledgeItem{{ID: "b"}, {ID: "a"}}, nil
		},
		getFn: func(ctx context.Context, id string) (*domain.KnowledgeItem, error) {
			if id != "a" {
				return nil, domain.ErrNotFound
			}
			return &domain.KnowledgeItem{ID: "a"}, nil
		},
	}
	h := NewKnowledgeHandler(stub)

	c, rec := newContext(http.MethodGet, "/api/knowledge", "")
	if err := h.List(c); err != nil {
		t.Fatalf("list: %v", err)
	}
	var items []domain.KnowledgeItem
	decode(t, rec, &items)
	if len(items) != 2 || items[0].ID != "b" {
		t.Fatalf("order not preserved: %+v", items)
	}

	c, _ = newContext(http.MethodGet, "/api/knowledge/zzz", "")
	c.SetParamNames("id")
	c.SetParamValues("zzz")
	if err := h.Get(c); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

// ---- leaderboard ----

func TestLeaderboardHandler_Query(t *testing.T) {
	var got ports.LeaderboardQuery
	stub := &stubLeaderboardService{
		fn: func(ctx context.Context, q ports.LeaderboardQuery) (*domain.Leaderboard, error) {
			got = q
			return &domain.Leaderboard{Scores: map[string]int{"a": 15}, Ranking: []domain.Standing{{Rank: 1, Contributor: "a", Points: 15}}}, nil
		},
	}
	h := NewLeaderboardHandler(stub)
	h.now = func() time.Time { return time.Date(2026, 3, 17, 9, 30, 0, 0, time.UTC) }

	c, rec := newContext(http.MethodGet, "/api/leaderboard?region=EMEA&project=Atlas&timeframe=month&search=al", "")
	if err := h.Get(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	want := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	if got.Region != "EMEA" || got.Project != "Atlas" || got.Search != "al" || !got.Since.Equal(want) {
		t.Fatalf("unexpected query %+v", got)
	}

	var board domain.Leaderboard
	decode(t, rec, &board)
	if board.Scores["a"] != 15 || len(board.Ranking) != 1 {
		t.Fatalf("unexpected board %+v", board)
	}
}

func TestLeaderboardHandler_AllTimeAndInvalidTimeframe(t *testing.T) {
	var got ports.LeaderboardQuery
	stub := &stubLeaderboardService{
		fn: func(ctx context.Context, q ports.LeaderboardQuery) (*domain.Leaderboard, error) {
			got = q
			return &domain.Leaderboard{Scores: map[string]int{}, Ranking: []domain.Standing{}}, nil
		},
	}
	h := NewLeaderboardHandler(stub)

	c, _ := newContext(http.MethodGet, "/api/leaderboard?timeframe=all", "")
	if err := h.Get(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if !got.Since.IsZero() {
		t.Fatalf("all-time must not set Since, got %v", got.Since)
	}

	c, _ = newContext(http.MethodGet, "/api/leaderboard?timeframe=decade", "")
	err := h.Get(c)
	if !errors.Is(err, domain.ErrValidation) || !strings.Contains(err.Error(), "timeframe must be one of") {
		t.Fatalf("expected a timeframe validation error, got %v", err)
	}
}

// ---- health ----

func TestHealthHandler_Readiness(t *testing.T) {
	c, rec := newContext(http.MethodGet, "/health/ready", "")
	h := NewHealthHandler(map[string]ports.HealthChecker{"sqlite": stubChecker{}})
	if err := h.Readiness(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	c, rec = newContext(http.MethodGet, "/health/ready", "")
	h = NewHealthHandler(map[string]ports.HealthChecker{
		"sqlite": stubChecker{},
		"redis":  stubChecker{err: domain.ErrBackendUnavailable},
	})
	if err := h.Readiness(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
	var resp readinessResponse
	decode(t, rec, &resp)
	if resp.Status != "degraded" || resp.Dependencies["redis"].Status != "unhealthy" || resp.Dependencies["sqlite"].Status != "ok" {
		t.Fatalf("unexpected readiness %+v", resp)
	}
}

func TestHealthHandler_Liveness(t *testing.T) {
	c, rec := newContext(http.MethodGet, "/health", "")
	if err := NewHealthHandler(nil).Liveness(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}
