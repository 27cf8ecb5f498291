package rbac

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/districthq/districthq/internal/platform/httpx"
)

// PGStore implements RoleStore against PostgreSQL.
type PGStore struct {
	pool *pgxpool.Pool
}

// NewPGStore constructs a store backed by the provided pool.
func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

// LoadRoles fetches all roles and their capability grants.
func (s *PGStore) LoadRoles(ctx context.Context) ([]Role, map[RoleKey][]Capability, error) {
	rows, err := s.pool.Query(ctx, `SELECT key, title, rank, is_leadership, category FROM roles ORDER BY rank, key`)
	if err != nil {
		return nil, nil, fmt.Errorf("rbac: load roles: %w", err)
	}
	defer rows.Close()

	var roles []Role
	for rows.Next() {
		var r Role
		if err := rows.Scan(&r.Key, &r.Title, &r.Rank, &r.IsLeadership, &r.Category); err != nil {
			return nil, nil, fmt.Errorf("rbac: scan role: %w", err)
		}
		roles = append(roles, r)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}

	grantRows, err := s.pool.Query(ctx, `SELECT role_key, capability FROM role_capabilities ORDER BY role_key, capability`)
	if err != nil {
		return nil, nil, fmt.Errorf("rbac: load grants: %w", err)
	}
	defer grantRows.Close()

	grants := make(map[RoleKey][]Capability)
	for grantRows.Next() {
		var key RoleKey
		var cap Capability
		if err := grantRows.Scan(&key, &cap); err != nil {
			return nil, nil, fmt.Errorf("rbac: scan grant: %w", err)
		}
		grants[key] = append(grants[key], cap)
	}
	if err := grantRows.Err(); err != nil {
		return nil, nil, err
	}
	return roles, grants, nil
}

// UpsertRole inserts or updates a role definition. A rank collision with a
// different role surfaces as a duplicate error, never as a silent overwrite.
func (s *PGStore) UpsertRole(ctx context.Context, role Role) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO roles (key, title, rank, is_leadership, category)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (key) DO UPDATE
		SET title = EXCLUDED.title, rank = EXCLUDED.rank,
		    is_leadership = EXCLUDED.is_leadership, category = EXCLUDED.category`,
		role.Key, role.Title, role.Rank, role.IsLeadership, role.Category)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("%w: rank %d already assigned", httpx.ErrDuplicate, role.Rank)
		}
		return fmt.Errorf("rbac: upsert role: %w", err)
	}
	return nil
}

// ReplaceGrants swaps a role's capability set in one transaction.
func (s *PGStore) ReplaceGrants(ctx context.Context, key RoleKey, caps []Capability) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("rbac: begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM role_capabilities WHERE role_key = $1`, key); err != nil {
		return fmt.Errorf("rbac: clear grants: %w", err)
	}
	for _, c := range caps {
		if _, err := tx.Exec(ctx, `INSERT INTO role_capabilities (role_key, capability) VALUES ($1, $2) ON CONFLICT DO NOTHING`, key, c); err != nil {
			return fmt.Errorf("rbac: insert grant: %w", err)
		}
	}
	return tx.Commit(ctx)
}

var _ RoleStore = (*PGStore)(nil)
