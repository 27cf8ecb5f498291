// Package users exposes the user profile surface. Reads pass through the
// field access controller before leaving the process; writes are checked
// field by field before touching storage.
package users

import (
	"time"

	"github.com/districthq/districthq/internal/rbac"
)

// User is the stored profile row joined with its staff assignment.
type User struct {
	ID              int64
	Name            string
	Email           string
	HashedPassword  string
	TwoFactorSecret string
	BackupCodes     string
	SystemAdmin     bool
	Active          bool
	StaffID         int64
	RoleKey         rbac.RoleKey
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Record flattens the user into the field map the access controller
// filters. Every key here must have a matching field rule; keys without
// one are dropped from responses.
func (u User) Record() map[string]any {
	return map[string]any{
		"id":                u.ID,
		"name":              u.Name,
		"email":             u.Email,
		"hashed_password":   u.HashedPassword,
		"two_factor_secret": u.TwoFactorSecret,
		"backup_codes":      u.BackupCodes,
		"is_system_admin":   u.SystemAdmin,
		"is_active":         u.Active,
		"role_key":          string(u.RoleKey),
	}
}

// Actor converts the user to its authorization view.
func (u User) Actor() *rbac.Actor {
	return &rbac.Actor{
		UserID:      u.ID,
		Email:       u.Email,
		StaffID:     u.StaffID,
		RoleKey:     u.RoleKey,
		SystemAdmin: u.SystemAdmin,
	}
}
