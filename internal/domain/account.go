package domain

import (
	"slices"
	"strings"
	"time"
)

// Account is a platform identity. Attempts are owned by accounts.
type Account struct {
	ID            int64
	Email         string
	Active        bool
	Roles         []Role
	FullName      *string
	Qualification *string
	BirthDate     *time.Time
}

// HasRole reports whether the account carries the given role.
func (a *Account) HasRole(r Role) bool {
	return slices.Contains(a.Roles, r)
}

// IsAdmin reports whether the account carries the admin role.
func (a *Account) IsAdmin() bool { return a.HasRole(RoleAdmin) }

// DisplayName returns the full name when present, otherwise the email.
func (a *Account) DisplayName() string {
	if a.FullName != nil && strings.TrimSpace(*a.FullName) != "" {
		return *a.FullName
	}
	return a.Email
}

// NormalizeEmail trims and lowercases an address for lookups.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
