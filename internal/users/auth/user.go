// Copyright (c) 2026 Natours. All rights reserved.
// Author: marcin.karbowniczyn@gmail.com

/*
Package auth implements the user identity and access management layer.

It defines the core domain entity (User) and the logic for authentication,
login throttling, and credential lifecycle (signup, password reset, email
verification).

# Architecture

This layer is the "Truth" of the system. Entities defined here have no
external dependencies and encapsulate all business rules related to user
identity, including the failed-login lockout state machine.
*/
package auth

import (
	"time"

	"github.com/marcin-karbowniczyn/natours/internal/platform/sec"
)

// # Domain Entities

// User represents a registered member of the Natours platform.
type User struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	Email        string       `json:"email"`
	Photo        string       `json:"photo,omitempty"`
	Role         sec.UserRole `json:"role"`
	PasswordHash string       `json:"-"` // Explicitly omitted from JSON for security.

	// PasswordChangedAt invalidates tokens issued before a password change.
	// Zero means the password has never been changed since signup.
	PasswordChangedAt time.Time `json:"-"`

	// Reset-token state. Only the one-way hash is ever persisted; the raw
	// token travels exclusively through the reset email.
	ResetTokenHash      string    `json:"-"`
	ResetTokenExpiresAt time.Time `json:"-"`

	// Lockout state maintained by [LoginGuard].
	FailedLoginAttempts int       `json:"-"`
	LockedUntil         time.Time `json:"-"`

	IsVerified bool      `json:"is_verified"`
	Active     bool      `json:"-"` // Soft-deactivated accounts keep their row but cannot log in.
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Principal projects the user into the request-scoped identity carried by
// the authorization middleware.
func (user *User) Principal() *sec.Principal {
	return &sec.Principal{
		ID:    user.ID,
		Name:  user.Name,
		Email: user.Email,
		Role:  user.Role,
		Photo: user.Photo,
	}
}

// # Field Identifiers

// Global field names for validation and identity mapping in the authentication domain.
const (
	FieldName            = "name"
	FieldEmail           = "email"
	FieldPassword        = "password"
	FieldPasswordConfirm = "password_confirm"
	FieldToken           = "token"
	FieldCurrentPassword = "current_password"
	FieldNewPassword     = "new_password"
	FieldUser            = "user"
	FieldMessage         = "message"
)
