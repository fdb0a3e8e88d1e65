package models

import (
	"time"

	id "chronicle/pkg/domain"
	dErrors "chronicle/pkg/domain-errors"
)

// Role is the single tagged variant for caller authority. Every policy decision
// flows through this enum; no other component compares role strings.
type Role string

const (
	RoleContributor Role = "contributor"
	RoleAdmin       Role = "admin"
)

// IsValid reports whether the role is one of the known variants.
func (r Role) IsValid() bool {
	return r == RoleContributor || r == RoleAdmin
}

// User represents a registered account in the identity domain.
// This is a pure domain entity - use UserResponse for JSON responses.
type User struct {
	ID           id.UserID
	Username     string
	Email        string
	PasswordHash string
	Role         Role
	Active       bool
	CreatedAt    time.Time
	LastLoginAt  *time.Time
}

// Principal is the authenticated (or anonymous) caller handed to every core
// call. It is resolved once per request from a fresh user row, never from
// cached claims, so suspensions take effect immediately.
type Principal struct {
	ID            id.UserID
	Role          Role
	Active        bool
	Authenticated bool
}

// Anonymous returns the principal used for unauthenticated requests.
func Anonymous() Principal {
	return Principal{}
}

// Principal derives the caller identity from a user row.
func (u *User) Principal() Principal {
	return Principal{
		ID:            u.ID,
		Role:          u.Role,
		Active:        u.Active,
		Authenticated: true,
	}
}

// IsAdmin reports whether the principal carries admin authority.
// Suspended admins keep no authority.
func (p Principal) IsAdmin() bool {
	return p.Authenticated && p.Active && p.Role == RoleAdmin
}

// IsActiveContributor reports whether the principal may author content.
func (p Principal) IsActiveContributor() bool {
	return p.Authenticated && p.Active && p.Role == RoleContributor
}

// Owns reports the ownership relation to a record created by createdBy.
func (p Principal) Owns(createdBy id.UserID) bool {
	return p.Authenticated && !p.ID.IsNil() && p.ID == createdBy
}

// NewUser creates a User with domain invariant checks.
func NewUser(userID id.UserID, username, email, passwordHash string, role Role, createdAt time.Time) (*User, error) {
	if userID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "user ID required")
	}
	if username == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "username required")
	}
	if passwordHash == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "password hash required")
	}
	if !role.IsValid() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "invalid role")
	}
	return &User{
		ID:           userID,
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
		Role:         role,
		Active:       true,
		CreatedAt:    createdAt,
	}, nil
}
