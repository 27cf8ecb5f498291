package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/districthq/districthq/internal/rbac"
	"github.com/districthq/districthq/internal/shared"
)

// Repository loads accounts for authentication.
type Repository interface {
	FindByEmail(ctx context.Context, email string) (Account, error)
}

// PGRepository is the postgres-backed account lookup.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewPGRepository constructs a repository over the pool.
func NewPGRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// FindByEmail returns the account for the given email, including its
// staff assignment when one exists.
func (r *PGRepository) FindByEmail(ctx context.Context, email string) (Account, error) {
	var (
		acct    Account
		staffID pgtype.Int8
		roleKey pgtype.Text
	)
	err := r.pool.QueryRow(ctx, `
		SELECT u.id, u.email, u.display_name, u.hashed_password,
		       u.is_system_admin, u.is_active, s.id, s.role_key
		FROM users u
		LEFT JOIN staff_members s ON s.user_id = u.id
		WHERE lower(u.email) = lower($1)`,
		email,
	).Scan(&acct.ID, &acct.Email, &acct.DisplayName, &acct.HashedPassword,
		&acct.SystemAdmin, &acct.Active, &staffID, &roleKey)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, shared.ErrNotFound
		}
		return Account{}, fmt.Errorf("auth: find account: %w", err)
	}
	acct.StaffID = staffID.Int64
	acct.RoleKey = rbac.RoleKey(roleKey.String)
	return acct, nil
}
