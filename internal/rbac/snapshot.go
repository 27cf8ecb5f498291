package rbac

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync/atomic"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Snapshot is an immutable view of the role table and capability grants.
// It is built once and shared across requests; a reload produces a new
// Snapshot rather than mutating this one.
type Snapshot struct {
	roles  map[RoleKey]Role
	grants map[RoleKey]map[Capability]struct{}
	sorted []Role
}

// NewSnapshot builds a snapshot from role definitions and per-role grants.
// Roles are ordered by (rank, key) so that duplicate ranks, should they
// slip past the storage constraint, still resolve deterministically.
func NewSnapshot(roles []Role, grants map[RoleKey][]Capability) *Snapshot {
	byKey := make(map[RoleKey]Role, len(roles))
	ordered := make([]Role, 0, len(roles))
	titler := cases.Title(language.AmericanEnglish)
	for _, r := range roles {
		if r.Key == "" {
			continue
		}
		if r.Title == "" {
			r.Title = titler.String(strings.ReplaceAll(string(r.Key), "_", " "))
		}
		byKey[r.Key] = r
		ordered = append(ordered, r)
	}
	sort.Slice(ordered, func(i, j int) bool {
		if ordered[i].Rank != ordered[j].Rank {
			return ordered[i].Rank < ordered[j].Rank
		}
		return ordered[i].Key < ordered[j].Key
	})

	grantSets := make(map[RoleKey]map[Capability]struct{}, len(grants))
	for key, caps := range grants {
		if _, ok := byKey[key]; !ok {
			continue
		}
		set := make(map[Capability]struct{}, len(caps))
		for _, c := range caps {
			if c != "" {
				set[c] = struct{}{}
			}
		}
		grantSets[key] = set
	}
	return &Snapshot{roles: byKey, grants: grantSets, sorted: ordered}
}

// Roles returns all roles ordered by rank then key.
func (s *Snapshot) Roles() []Role {
	out := make([]Role, len(s.sorted))
	copy(out, s.sorted)
	return out
}

// Role looks up a role definition by key.
func (s *Snapshot) Role(key RoleKey) (Role, bool) {
	r, ok := s.roles[key]
	return r, ok
}

// CapabilitiesOf returns the sorted capability set granted to a role. An
// unknown key yields the empty set.
func (s *Snapshot) CapabilitiesOf(key RoleKey) []Capability {
	set := s.grants[key]
	out := make([]Capability, 0, len(set))
	for c := range set {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// RankOf returns the role's rank. Unknown keys resolve to the lowest
// privilege rank observed plus one, so they never outrank a real role.
func (s *Snapshot) RankOf(key RoleKey) int {
	if r, ok := s.roles[key]; ok {
		return r.Rank
	}
	if n := len(s.sorted); n > 0 {
		return s.sorted[n-1].Rank + 1
	}
	return 1
}

func (s *Snapshot) hasCapability(key RoleKey, cap Capability) bool {
	set, ok := s.grants[key]
	if !ok {
		return false
	}
	_, ok = set[cap]
	return ok
}

// RoleStore loads and mutates the durable role and grant tables.
type RoleStore interface {
	LoadRoles(ctx context.Context) ([]Role, map[RoleKey][]Capability, error)
	UpsertRole(ctx context.Context, role Role) error
	ReplaceGrants(ctx context.Context, key RoleKey, caps []Capability) error
}

// Registry owns the current snapshot. Loading completes before any request
// is evaluated; Reload swaps the pointer atomically so in-flight requests
// keep the snapshot they started with.
type Registry struct {
	store   RoleStore
	logger  *slog.Logger
	current atomic.Pointer[Snapshot]
}

// NewRegistry loads the initial snapshot from the store. An error here is
// fatal to startup: the service must not serve requests without role data.
func NewRegistry(ctx context.Context, store RoleStore, logger *slog.Logger) (*Registry, error) {
	if logger == nil {
		logger = slog.Default()
	}
	reg := &Registry{store: store, logger: logger}
	if err := reg.Reload(ctx); err != nil {
		return nil, fmt.Errorf("rbac: initial load: %w", err)
	}
	return reg, nil
}

// NewStaticRegistry wraps a fixed snapshot; used by tests and the seed tool.
func NewStaticRegistry(snap *Snapshot, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	reg := &Registry{logger: logger}
	reg.current.Store(snap)
	return reg
}

// Snapshot returns the current immutable snapshot.
func (r *Registry) Snapshot() *Snapshot {
	if snap := r.current.Load(); snap != nil {
		return snap
	}
	return NewSnapshot(nil, nil)
}

// Reload rebuilds the snapshot from the store and swaps it in. Edits to
// role or grant rows take effect only for requests evaluated afterwards.
func (r *Registry) Reload(ctx context.Context) error {
	if r.store == nil {
		return fmt.Errorf("rbac: registry has no store")
	}
	roles, grants, err := r.store.LoadRoles(ctx)
	if err != nil {
		return err
	}
	snap := NewSnapshot(roles, grants)
	r.current.Store(snap)
	r.logger.Info("rbac snapshot reloaded", slog.Int("roles", len(roles)))
	return nil
}
