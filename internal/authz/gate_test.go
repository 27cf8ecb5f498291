package authz_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/districthq/districthq/internal/audit"
	"github.com/districthq/districthq/internal/authz"
	"github.com/districthq/districthq/internal/rbac"
	"github.com/districthq/districthq/internal/shared"
	_ "github.com/districthq/districthq/testing"
)

type captureStore struct {
	mu     sync.Mutex
	events []audit.Event
}

func (s *captureStore) Append(ctx context.Context, ev audit.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
	return nil
}

func (s *captureStore) all() []audit.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]audit.Event, len(s.events))
	copy(out, s.events)
	return out
}

type stubResolver struct {
	actors map[int64]*rbac.Actor
}

func (s *stubResolver) FindActor(ctx context.Context, userID int64) (*rbac.Actor, error) {
	return s.actors[userID], nil
}

func newGate(t *testing.T, actors ...*rbac.Actor) (*authz.Gate, *captureStore, *audit.Recorder) {
	t.Helper()
	snap := rbac.NewSnapshot(rbac.DefaultRoles(), rbac.DefaultGrants())
	evaluator := rbac.NewEvaluator(rbac.NewStaticRegistry(snap, nil), nil)

	resolver := &stubResolver{actors: map[int64]*rbac.Actor{}}
	for _, a := range actors {
		resolver.actors[a.UserID] = a
	}
	store := &captureStore{}
	rec := audit.NewRecorder(store, nil, nil, prometheus.NewRegistry(), audit.RecorderOptions{})
	t.Cleanup(rec.Close)
	return authz.NewGate(evaluator, resolver, rec, nil), store, rec
}

func requestAs(userID int64) *http.Request {
	r := httptest.NewRequest(http.MethodGet, "/users/3", nil)
	r.RemoteAddr = "10.0.0.1:54321"
	sess := &shared.Session{ID: "sess-1"}
	if userID != 0 {
		sess.SetUser(strconv.FormatInt(userID, 10))
	}
	return r.WithContext(shared.ContextWithSession(r.Context(), sess))
}

func TestDeniedActorGetsForbiddenAndOneEvent(t *testing.T) {
	teacher := &rbac.Actor{UserID: 7, RoleKey: rbac.RoleTeacher}
	gate, store, rec := newGate(t, teacher)

	_, err := gate.Authorize(requestAs(7), authz.Requirements{
		RequireCapability: []rbac.Capability{rbac.CapUserManage},
	})
	if err == nil {
		t.Fatalf("teacher must be denied")
	}
	denial, ok := err.(*authz.Denial)
	if !ok || denial.Status != http.StatusForbidden {
		t.Fatalf("expected 403 denial, got %v", err)
	}

	rec.Close()
	events := store.all()
	if len(events) != 1 {
		t.Fatalf("exactly one denial event, got %d", len(events))
	}
	ev := events[0]
	if ev.Category != audit.CategoryPermission || ev.Outcome != audit.OutcomeFailure {
		t.Fatalf("wrong event shape: %+v", ev)
	}
	if ev.ActorID != 7 {
		t.Fatalf("denial must attribute the actor, got %d", ev.ActorID)
	}
}

func TestSystemAdminOverrideLeavesNoDenialEvent(t *testing.T) {
	admin := &rbac.Actor{UserID: 1, SystemAdmin: true}
	gate, store, rec := newGate(t, admin)

	actor, err := gate.Authorize(requestAs(1), authz.Requirements{
		RequireCapability: []rbac.Capability{rbac.CapUserManage, rbac.CapOpsDBWrite},
	})
	if err != nil {
		t.Fatalf("system admin must pass: %v", err)
	}
	if actor == nil || actor.UserID != 1 {
		t.Fatalf("actor not returned")
	}

	rec.Close()
	if events := store.all(); len(events) != 0 {
		t.Fatalf("no audit event on success, got %d", len(events))
	}
}

func TestAnonymousGetsUnauthorized(t *testing.T) {
	gate, store, rec := newGate(t)

	_, err := gate.Authorize(requestAs(0), authz.Requirements{RequireAuthenticated: true})
	denial, ok := err.(*authz.Denial)
	if !ok || denial.Status != http.StatusUnauthorized {
		t.Fatalf("anonymous must get 401, got %v", err)
	}

	rec.Close()
	events := store.all()
	if len(events) != 1 {
		t.Fatalf("denial must be audited, got %d events", len(events))
	}
	if events[0].ActorID != 0 {
		t.Fatalf("anonymous denial must have no actor, got %d", events[0].ActorID)
	}
}

func TestUnknownSessionUserFailsClosed(t *testing.T) {
	gate, _, _ := newGate(t)

	// Session names a user the resolver does not know.
	_, err := gate.Authorize(requestAs(99), authz.Requirements{RequireAuthenticated: true})
	denial, ok := err.(*authz.Denial)
	if !ok || denial.Status != http.StatusUnauthorized {
		t.Fatalf("unresolvable user must fail closed, got %v", err)
	}
}

func TestRoleAllowList(t *testing.T) {
	principal := &rbac.Actor{UserID: 20, RoleKey: rbac.RolePrincipal}
	gate, _, _ := newGate(t, principal)

	req := authz.Requirements{AllowedRoles: []rbac.RoleKey{rbac.RolePrincipal, rbac.RoleAsstPrincipal}}
	if _, err := gate.Authorize(requestAs(20), req); err != nil {
		t.Fatalf("principal is allow-listed: %v", err)
	}
	req = authz.Requirements{AllowedRoles: []rbac.RoleKey{rbac.RoleBusAdmin}}
	if _, err := gate.Authorize(requestAs(20), req); err == nil {
		t.Fatalf("principal is not bus_admin")
	}
}

func TestStaffRoleRequirement(t *testing.T) {
	roleless := &rbac.Actor{UserID: 5}
	gate, _, _ := newGate(t, roleless)

	_, err := gate.Authorize(requestAs(5), authz.Requirements{RequireStaffRole: true})
	denial, ok := err.(*authz.Denial)
	if !ok || denial.Status != http.StatusForbidden {
		t.Fatalf("roleless user must get 403, got %v", err)
	}
}

func TestRequireMiddleware(t *testing.T) {
	teacher := &rbac.Actor{UserID: 7, RoleKey: rbac.RoleTeacher}
	gate, _, _ := newGate(t, teacher)

	var seen *rbac.Actor
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = authz.ActorFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})

	ok := gate.Require(authz.Requirements{RequireCapability: []rbac.Capability{rbac.CapMeetingView}})(next)
	res := httptest.NewRecorder()
	ok.ServeHTTP(res, requestAs(7))
	if res.Code != http.StatusNoContent {
		t.Fatalf("allowed request failed: %d", res.Code)
	}
	if seen == nil || seen.UserID != 7 {
		t.Fatalf("actor missing from context")
	}

	denied := gate.Require(authz.Requirements{RequireAdminTier: true})(next)
	res = httptest.NewRecorder()
	denied.ServeHTTP(res, requestAs(7))
	if res.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", res.Code)
	}
}
