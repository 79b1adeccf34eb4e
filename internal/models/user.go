package models

import (
	"time"
)

// GlobalRole represents a user's system-wide role.
// Project-level access is governed separately by Role grants.
type GlobalRole string

const (
	GlobalRoleAdmin  GlobalRole = "admin"
	GlobalRoleMember GlobalRole = "member"
)

// User represents an authenticated principal.
type User struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"` // Never expose in JSON
	GlobalRole   GlobalRole `json:"global_role"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// NewUser creates a new User with initialized timestamps.
func NewUser(name, email string, role GlobalRole) *User {
	now := time.Now()
	return &User{
		Name:       name,
		Email:      email,
		GlobalRole: role,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// IsAdmin returns true if the user may administer field definitions and users.
func (u *User) IsAdmin() bool {
	return u.GlobalRole == GlobalRoleAdmin
}

// ParseGlobalRole converts a string to GlobalRole.
func ParseGlobalRole(s string) GlobalRole {
	if s == "admin" {
		return GlobalRoleAdmin
	}
	return GlobalRoleMember
}
