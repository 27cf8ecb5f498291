// Package auth implements credential verification and session login.
package auth

import "github.com/districthq/districthq/internal/rbac"

// Credentials are the login request inputs.
type Credentials struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

// Account is a user row joined with its staff assignment, as needed to
// authenticate and to construct the actor afterwards.
type Account struct {
	ID             int64
	Email          string
	DisplayName    string
	HashedPassword string
	SystemAdmin    bool
	Active         bool
	StaffID        int64
	RoleKey        rbac.RoleKey
}

// Actor converts the account to its authorization view.
func (a Account) Actor() *rbac.Actor {
	return &rbac.Actor{
		UserID:      a.ID,
		Email:       a.Email,
		StaffID:     a.StaffID,
		RoleKey:     a.RoleKey,
		SystemAdmin: a.SystemAdmin,
	}
}
