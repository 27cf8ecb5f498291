package users_test

import (
	"context"
	"testing"

	"github.com/districthq/districthq/internal/fieldacl"
	"github.com/districthq/districthq/internal/rbac"
	"github.com/districthq/districthq/internal/shared"
	"github.com/districthq/districthq/internal/users"
	_ "github.com/districthq/districthq/testing"
)

type stubRepo struct {
	users   map[int64]users.User
	updated map[string]any
}

func (s *stubRepo) FindByID(ctx context.Context, id int64) (users.User, error) {
	u, ok := s.users[id]
	if !ok {
		return users.User{}, shared.ErrNotFound
	}
	return u, nil
}

func (s *stubRepo) List(ctx context.Context, limit, offset int) ([]users.User, error) {
	out := make([]users.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, u)
	}
	return out, nil
}

func (s *stubRepo) UpdateFields(ctx context.Context, id int64, changes map[string]any) error {
	s.updated = changes
	return nil
}

func newService(t *testing.T, repo users.Repository) *users.Service {
	t.Helper()
	snap := rbac.NewSnapshot(rbac.DefaultRoles(), rbac.DefaultGrants())
	ev := rbac.NewEvaluator(rbac.NewStaticRegistry(snap, nil), nil)
	controller := fieldacl.NewController(fieldacl.DefaultRuleset(), ev)
	return users.NewService(repo, controller, nil)
}

func fixtureUsers() map[int64]users.User {
	return map[int64]users.User{
		7: {ID: 7, Name: "Pat Teacher", Email: "pat@district.local", HashedPassword: "x", RoleKey: rbac.RoleTeacher},
		8: {ID: 8, Name: "Sam Support", Email: "sam@district.local", HashedPassword: "y", RoleKey: rbac.RoleSupportStaff},
	}
}

func TestGetFiltersByViewer(t *testing.T) {
	repo := &stubRepo{users: fixtureUsers()}
	svc := newService(t, repo)
	ctx := context.Background()

	self := &rbac.Actor{UserID: 7, RoleKey: rbac.RoleTeacher}
	record, err := svc.Get(ctx, self, 7)
	if err != nil {
		t.Fatalf("get self: %v", err)
	}
	if _, ok := record["email"]; !ok {
		t.Fatalf("owner must see own email")
	}
	if _, ok := record["hashed_password"]; ok {
		t.Fatalf("password hash must never leave the service")
	}

	record, err = svc.Get(ctx, self, 8)
	if err != nil {
		t.Fatalf("get other: %v", err)
	}
	if _, ok := record["email"]; ok {
		t.Fatalf("email is self-only, must not show on other records")
	}
	if _, ok := record["name"]; !ok {
		t.Fatalf("public field missing")
	}
}

func TestListFiltersPerRow(t *testing.T) {
	repo := &stubRepo{users: fixtureUsers()}
	svc := newService(t, repo)

	self := &rbac.Actor{UserID: 7, RoleKey: rbac.RoleTeacher}
	records, err := svc.List(context.Background(), self, 25, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	for _, rec := range records {
		id, _ := rec["id"].(int64)
		_, hasEmail := rec["email"]
		if id == 7 && !hasEmail {
			t.Fatalf("own row must include email")
		}
		if id == 8 && hasEmail {
			t.Fatalf("other rows must not include email")
		}
	}
}

func TestUpdateRejectedWriteTouchesNothing(t *testing.T) {
	repo := &stubRepo{users: fixtureUsers()}
	svc := newService(t, repo)

	other := &rbac.Actor{UserID: 8, RoleKey: rbac.RoleSupportStaff}
	decision, err := svc.Update(context.Background(), other, 7, map[string]any{
		"name":  "hijacked",
		"email": "evil@district.local",
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if decision.Valid {
		t.Fatalf("cross-user write must be rejected")
	}
	if repo.updated != nil {
		t.Fatalf("rejected write must not reach storage: %v", repo.updated)
	}
}

func TestUpdateAppliesValidChanges(t *testing.T) {
	repo := &stubRepo{users: fixtureUsers()}
	svc := newService(t, repo)

	self := &rbac.Actor{UserID: 7, RoleKey: rbac.RoleTeacher}
	decision, err := svc.Update(context.Background(), self, 7, map[string]any{"name": "Pat T."})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if !decision.Valid {
		t.Fatalf("self rename rejected: %v", decision.Errors)
	}
	if repo.updated["name"] != "Pat T." {
		t.Fatalf("change not applied: %v", repo.updated)
	}
}

func TestUpdatePrivilegedFieldRequiresCapability(t *testing.T) {
	repo := &stubRepo{users: fixtureUsers()}
	svc := newService(t, repo)

	admin := &rbac.Actor{UserID: 1, RoleKey: rbac.RoleOpsAdmin}
	decision, err := svc.Update(context.Background(), admin, 7, map[string]any{"is_active": false})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if !decision.Valid {
		t.Fatalf("ops_admin holds user:manage: %v", decision.Errors)
	}

	repo.updated = nil
	teacher := &rbac.Actor{UserID: 7, RoleKey: rbac.RoleTeacher}
	decision, err = svc.Update(context.Background(), teacher, 7, map[string]any{"is_active": false})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if decision.Valid || repo.updated != nil {
		t.Fatalf("owner must not toggle own is_active")
	}
}
