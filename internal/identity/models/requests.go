package models

import (
	"strings"

	dErrors "chronicle/pkg/domain-errors"
)

// RegisterRequest is the payload for account creation. Registration always
// produces a contributor; admin accounts are provisioned at startup.
type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r *RegisterRequest) Validate() error {
	r.Username = strings.TrimSpace(r.Username)
	r.Email = strings.TrimSpace(r.Email)

	if len(r.Username) < 3 {
		return dErrors.New(dErrors.CodeValidation, "username must be at least 3 characters")
	}
	if strings.ContainsAny(r.Username, " \t\n") {
		return dErrors.New(dErrors.CodeValidation, "username must not contain whitespace")
	}
	if len(r.Password) < 8 {
		return dErrors.New(dErrors.CodeValidation, "password must be at least 8 characters")
	}
	if r.Email != "" && !strings.Contains(r.Email, "@") {
		return dErrors.New(dErrors.CodeValidation, "invalid email address")
	}
	return nil
}

// LoginRequest is the payload for credential authentication.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (r *LoginRequest) Validate() error {
	r.Username = strings.TrimSpace(r.Username)
	if r.Username == "" || r.Password == "" {
		return dErrors.New(dErrors.CodeValidation, "username and password are required")
	}
	return nil
}
