// Copyright (c) 2026 Natours. All rights reserved.
// Author: marcin.karbowniczyn@gmail.com

package auth

import (
	"context"
	"time"
)

// # User Data Access

// UserRepository defines the data access contract for user accounts.
//
// All lookups exclude soft-deactivated accounts unless stated otherwise.
type UserRepository interface {

	/*
		Create persists a brand-new user account to the storage.

		Parameters:
		  - context: context.Context
		  - user: *User

		Returns:
		  - error: DuplicateKey on email collision, or persistence failures
	*/
	Create(context context.Context, user *User) error

	/*
		FindByID returns the active account with the given ID.

		Parameters:
		  - context: context.Context
		  - id: string

		Returns:
		  - *User: Hydrated entity
		  - error: apperr.NotFound or database retrieval failures
	*/
	FindByID(context context.Context, id string) (*User, error)

	/*
		FindByEmail returns the active account with the given email, including
		its password hash and lockout state for credential verification.

		Parameters:
		  - context: context.Context
		  - email: string

		Returns:
		  - *User: Hydrated entity
		  - error: apperr.NotFound or database retrieval failures
	*/
	FindByEmail(context context.Context, email string) (*User, error)

	/*
		FindByResetTokenHash returns the account holding an unexpired reset
		token with the given hash.

		Parameters:
		  - context: context.Context
		  - tokenHash: string
		  - now: time.Time (expiry cutoff)

		Returns:
		  - *User: Hydrated entity
		  - error: apperr.NotFound when the hash is unknown or expired
	*/
	FindByResetTokenHash(context context.Context, tokenHash string, now time.Time) (*User, error)

	/*
		UpdateLoginState persists the lockout counters maintained by [LoginGuard].

		Parameters:
		  - context: context.Context
		  - userID: string
		  - failedAttempts: int
		  - lockedUntil: time.Time (zero clears the lock)

		Returns:
		  - error: Persistence failures
	*/
	UpdateLoginState(context context.Context, userID string, failedAttempts int, lockedUntil time.Time) error

	/*
		UpdatePassword replaces the password hash, stamps the change time, and
		clears any outstanding reset token in the same statement.

		Parameters:
		  - context: context.Context
		  - userID: string
		  - newHash: string
		  - changedAt: time.Time

		Returns:
		  - error: Persistence failures
	*/
	UpdatePassword(context context.Context, userID, newHash string, changedAt time.Time) error

	/*
		SetResetToken stores the reset token hash and its expiry on the account.

		Parameters:
		  - context: context.Context
		  - userID: string
		  - tokenHash: string
		  - expiresAt: time.Time

		Returns:
		  - error: Persistence failures
	*/
	SetResetToken(context context.Context, userID, tokenHash string, expiresAt time.Time) error

	/*
		ClearResetToken removes the reset token state from the account, used
		when reset-email delivery fails and the token must be invalidated.

		Parameters:
		  - context: context.Context
		  - userID: string

		Returns:
		  - error: Persistence failures
	*/
	ClearResetToken(context context.Context, userID string) error

	/*
		MarkVerified updates the user's status to isverified = true.

		Parameters:
		  - context: context.Context
		  - userID: string

		Returns:
		  - error: Persistence failures
	*/
	MarkVerified(context context.Context, userID string) error
}

// # Volatile Data Access

// VerificationTokenRepository defines the contract for storing volatile email
// verification tokens.
type VerificationTokenRepository interface {

	/*
		Set stores a verification token associated with a userID.

		Parameters:
		  - context: context.Context
		  - token: string
		  - userID: string
		  - ttl: time.Duration

		Returns:
		  - error: Persistence failures
	*/
	Set(context context.Context, token string, userID string, ttl time.Duration) error

	/*
		Get retrieves the userID associated with a given verification token.

		Parameters:
		  - context: context.Context
		  - token: string

		Returns:
		  - string: UserID
		  - error: Retrieval failures
	*/
	Get(context context.Context, token string) (string, error)

	/*
		Delete removes a verification token after successful use.

		Parameters:
		  - context: context.Context
		  - token: string

		Returns:
		  - error: Persistence failures
	*/
	Delete(context context.Context, token string) error
}
