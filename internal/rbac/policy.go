package rbac

import "log/slog"

// Evaluator answers authorization questions against the current snapshot.
// Precedence is fixed: admin override, then explicit grant, then deny.
// Missing roles, missing grants, and lookup misses all resolve to deny.
type Evaluator struct {
	registry *Registry
	logger   *slog.Logger
}

// NewEvaluator constructs an Evaluator bound to a registry.
func NewEvaluator(registry *Registry, logger *slog.Logger) *Evaluator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Evaluator{registry: registry, logger: logger}
}

// Can reports whether the actor holds every listed capability. The
// system-admin override satisfies any capability regardless of grants.
func (e *Evaluator) Can(actor *Actor, caps ...Capability) bool {
	if actor == nil {
		return false
	}
	if actor.SystemAdmin {
		return true
	}
	if actor.RoleKey == "" {
		return false
	}
	snap := e.registry.Snapshot()
	for _, c := range caps {
		if !snap.hasCapability(actor.RoleKey, c) {
			return false
		}
	}
	return true
}

// CanAny reports whether the actor holds at least one listed capability.
// Callers must opt into this mode explicitly; the default is all-required.
func (e *Evaluator) CanAny(actor *Actor, caps ...Capability) bool {
	if actor == nil {
		return false
	}
	if actor.SystemAdmin {
		return true
	}
	if actor.RoleKey == "" {
		return false
	}
	snap := e.registry.Snapshot()
	for _, c := range caps {
		if snap.hasCapability(actor.RoleKey, c) {
			return true
		}
	}
	return false
}

// IsRole is a strict identity match on the actor's role key.
func (e *Evaluator) IsRole(actor *Actor, key RoleKey) bool {
	return actor != nil && actor.RoleKey == key
}

// IsAnyAdmin reports whether the actor belongs to any administrative tier.
// It supersedes fine-grained capability checks, so a positive answer is
// logged for traceability.
func (e *Evaluator) IsAnyAdmin(actor *Actor) bool {
	if actor == nil {
		return false
	}
	granted := actor.SystemAdmin || IsAdminTier(actor.RoleKey)
	if granted {
		e.logger.Debug("admin tier bypass",
			slog.Int64("user_id", actor.UserID),
			slog.String("role", string(actor.RoleKey)),
			slog.Bool("system_admin", actor.SystemAdmin),
		)
	}
	return granted
}

// RankOf exposes the hierarchy rank of the actor's role. Actors without a
// role rank below every defined role.
func (e *Evaluator) RankOf(actor *Actor) int {
	snap := e.registry.Snapshot()
	if actor == nil {
		return snap.RankOf("")
	}
	return snap.RankOf(actor.RoleKey)
}
