package users

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/districthq/districthq/internal/rbac"
	"github.com/districthq/districthq/internal/shared"
)

// Repository is the storage contract for user profiles.
type Repository interface {
	FindByID(ctx context.Context, id int64) (User, error)
	List(ctx context.Context, limit, offset int) ([]User, error)
	UpdateFields(ctx context.Context, id int64, changes map[string]any) error
}

// writableColumns maps the externally named fields onto their columns.
// Anything absent here is refused at the storage layer even if a field
// rule allowed it, so the two tables cannot drift apart silently.
var writableColumns = map[string]string{
	"name":              "display_name",
	"email":             "email",
	"hashed_password":   "hashed_password",
	"two_factor_secret": "two_factor_secret",
	"backup_codes":      "backup_codes",
	"is_system_admin":   "is_system_admin",
	"is_active":         "is_active",
}

// PGRepository is the postgres-backed user store.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewPGRepository constructs a repository over the pool.
func NewPGRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const userColumns = `
	u.id, u.display_name, u.email, u.hashed_password,
	COALESCE(u.two_factor_secret, ''), COALESCE(u.backup_codes, ''),
	u.is_system_admin, u.is_active, u.created_at, u.updated_at,
	s.id, s.role_key`

// FindByID loads one user with any staff assignment.
func (r *PGRepository) FindByID(ctx context.Context, id int64) (User, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT`+userColumns+`
		FROM users u
		LEFT JOIN staff_members s ON s.user_id = u.id
		WHERE u.id = $1`, id)
	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, shared.ErrNotFound
		}
		return User{}, fmt.Errorf("users: find by id: %w", err)
	}
	return u, nil
}

// FindActor loads only the authorization view of a user. Inactive
// accounts resolve to no actor so disabling a user revokes access on the
// next request.
func (r *PGRepository) FindActor(ctx context.Context, userID int64) (*rbac.Actor, error) {
	var (
		actor   rbac.Actor
		active  bool
		staffID pgtype.Int8
		roleKey pgtype.Text
	)
	err := r.pool.QueryRow(ctx, `
		SELECT u.id, u.email, u.is_system_admin, u.is_active, s.id, s.role_key
		FROM users u
		LEFT JOIN staff_members s ON s.user_id = u.id
		WHERE u.id = $1`, userID,
	).Scan(&actor.UserID, &actor.Email, &actor.SystemAdmin, &active, &staffID, &roleKey)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("users: find actor: %w", err)
	}
	if !active {
		return nil, nil
	}
	actor.StaffID = staffID.Int64
	actor.RoleKey = rbac.RoleKey(roleKey.String)
	return &actor, nil
}

// List returns users ordered by id.
func (r *PGRepository) List(ctx context.Context, limit, offset int) ([]User, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT`+userColumns+`
		FROM users u
		LEFT JOIN staff_members s ON s.user_id = u.id
		ORDER BY u.id
		LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("users: list: %w", err)
	}
	defer rows.Close()

	var out []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("users: scan: %w", err)
		}
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateFields applies the already-validated changes. Unknown fields are
// refused rather than ignored.
func (r *PGRepository) UpdateFields(ctx context.Context, id int64, changes map[string]any) error {
	if len(changes) == 0 {
		return nil
	}
	sets := make([]string, 0, len(changes)+1)
	args := make([]any, 0, len(changes)+1)
	args = append(args, id)
	for field, value := range changes {
		col, ok := writableColumns[field]
		if !ok {
			return fmt.Errorf("users: field %q is not writable", field)
		}
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	sets = append(sets, "updated_at = now()")

	tag, err := r.pool.Exec(ctx,
		"UPDATE users SET "+strings.Join(sets, ", ")+" WHERE id = $1", args...)
	if err != nil {
		return fmt.Errorf("users: update: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (User, error) {
	var (
		u         User
		staffID   pgtype.Int8
		roleKey   pgtype.Text
		createdAt pgtype.Timestamptz
		updatedAt pgtype.Timestamptz
	)
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.HashedPassword,
		&u.TwoFactorSecret, &u.BackupCodes, &u.SystemAdmin, &u.Active,
		&createdAt, &updatedAt, &staffID, &roleKey); err != nil {
		return User{}, err
	}
	u.StaffID = staffID.Int64
	u.RoleKey = rbac.RoleKey(roleKey.String)
	u.CreatedAt = createdAt.Time
	u.UpdatedAt = updatedAt.Time
	return u, nil
}
