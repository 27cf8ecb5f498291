// Package authz gates HTTP access behind declarative requirements. Every
// denial is recorded as a single permission audit event before the
// response is written.
package authz

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/districthq/districthq/internal/audit"
	"github.com/districthq/districthq/internal/platform/httpx"
	"github.com/districthq/districthq/internal/rbac"
	"github.com/districthq/districthq/internal/shared"
)

// ActorResolver loads the acting user's authorization view by user ID.
type ActorResolver interface {
	FindActor(ctx context.Context, userID int64) (*rbac.Actor, error)
}

// Requirements declare what a route demands. Zero-value fields impose
// nothing; any populated field must be satisfied. Capability lists use
// all-required semantics unless placed in AnyCapability.
type Requirements struct {
	RequireAuthenticated bool
	RequireStaffRole     bool
	RequireAdminTier     bool
	RequireCapability    []rbac.Capability
	AnyCapability        []rbac.Capability
	AllowedRoles         []rbac.RoleKey
}

// Denial is returned when a requirement is not met.
type Denial struct {
	Status int
	Reason string
}

// Error implements error.
func (d *Denial) Error() string { return d.Reason }

var (
	denialUnauthenticated = &Denial{Status: http.StatusUnauthorized, Reason: "authentication required"}
	denialForbidden       = &Denial{Status: http.StatusForbidden, Reason: "insufficient permissions"}
)

// Gate evaluates requirements against the current actor.
type Gate struct {
	evaluator *rbac.Evaluator
	resolver  ActorResolver
	recorder  *audit.Recorder
	logger    *slog.Logger
}

// NewGate constructs a Gate.
func NewGate(evaluator *rbac.Evaluator, resolver ActorResolver, recorder *audit.Recorder, logger *slog.Logger) *Gate {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gate{evaluator: evaluator, resolver: resolver, recorder: recorder, logger: logger}
}

// Authorize resolves the request's actor and checks it against the
// requirements. On success the actor is returned, nil for anonymous
// requests that pass an open requirement set. On denial exactly one
// permission failure event is recorded and a Denial is returned.
func (g *Gate) Authorize(r *http.Request, req Requirements) (*rbac.Actor, error) {
	ctx := r.Context()
	actor, err := g.resolveActor(ctx)
	if err != nil {
		// Treat resolution failures as anonymous: access fails closed
		// below rather than leaking an internal error to the client.
		g.logger.Error("actor resolution", slog.Any("error", err))
		actor = nil
	}

	if denial := g.check(actor, req); denial != nil {
		g.recordDenial(ctx, r, actor, req, denial)
		return nil, denial
	}
	return actor, nil
}

func (g *Gate) resolveActor(ctx context.Context) (*rbac.Actor, error) {
	sess := shared.SessionFromContext(ctx)
	if sess == nil || sess.User() == "" {
		return nil, nil
	}
	userID, err := strconv.ParseInt(sess.User(), 10, 64)
	if err != nil {
		return nil, err
	}
	return g.resolver.FindActor(ctx, userID)
}

// check applies requirements in precedence order. Authentication comes
// first so anonymous callers get 401, not 403.
func (g *Gate) check(actor *rbac.Actor, req Requirements) *Denial {
	needsIdentity := req.RequireAuthenticated || req.RequireStaffRole || req.RequireAdminTier ||
		len(req.RequireCapability) > 0 || len(req.AnyCapability) > 0 || len(req.AllowedRoles) > 0
	if actor == nil {
		if needsIdentity {
			return denialUnauthenticated
		}
		return nil
	}

	if req.RequireStaffRole && !actor.HasStaffRole() {
		return &Denial{Status: http.StatusForbidden, Reason: "staff role required"}
	}
	if req.RequireAdminTier && !g.evaluator.IsAnyAdmin(actor) {
		return &Denial{Status: http.StatusForbidden, Reason: "administrative tier required"}
	}
	if len(req.RequireCapability) > 0 && !g.evaluator.Can(actor, req.RequireCapability...) {
		return denialForbidden
	}
	if len(req.AnyCapability) > 0 && !g.evaluator.CanAny(actor, req.AnyCapability...) {
		return denialForbidden
	}
	if len(req.AllowedRoles) > 0 && !g.roleAllowed(actor, req.AllowedRoles) {
		return denialForbidden
	}
	return nil
}

func (g *Gate) roleAllowed(actor *rbac.Actor, allowed []rbac.RoleKey) bool {
	// The system-admin override also satisfies role allow-lists; it sits
	// above every other rule in the precedence order.
	if actor.SystemAdmin {
		return true
	}
	for _, key := range allowed {
		if g.evaluator.IsRole(actor, key) {
			return true
		}
	}
	return false
}

func (g *Gate) recordDenial(ctx context.Context, r *http.Request, actor *rbac.Actor, req Requirements, denial *Denial) {
	if g.recorder == nil {
		return
	}
	in := audit.Input{
		Action:    "authz.denied",
		Category:  audit.CategoryPermission,
		Outcome:   audit.OutcomeFailure,
		IP:        httpx.RemoteIP(r),
		UserAgent: r.UserAgent(),
		Detail:    denial.Reason,
		Context: map[string]any{
			"method": r.Method,
			"path":   r.URL.Path,
		},
	}
	if actor != nil {
		in.ActorID = actor.UserID
		in.StaffID = actor.StaffID
	}
	if sess := shared.SessionFromContext(ctx); sess != nil {
		in.SessionID = sess.ID
	}
	if caps := capabilityList(req); caps != "" {
		in.Context["required"] = caps
	}
	g.recorder.Record(ctx, in)
}

func capabilityList(req Requirements) string {
	parts := make([]string, 0, len(req.RequireCapability)+len(req.AnyCapability))
	for _, c := range req.RequireCapability {
		parts = append(parts, string(c))
	}
	for _, c := range req.AnyCapability {
		parts = append(parts, string(c)+"?")
	}
	return strings.Join(parts, ",")
}

