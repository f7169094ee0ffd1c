// Copyright (c) 2026 Natours. All rights reserved.
// Author: marcin.karbowniczyn@gmail.com

package auth

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/marcin-karbowniczyn/natours/internal/platform/dberr"
)

// # User Repository

// PostgresUserRepository implements the UserRepository interface using pgx.
//
// # err Mapping
//
// Storage-specific errors (pgx.ErrNoRows, unique violations) are mapped to
// domain-friendly [apperr.AppError] values through [dberr.Wrap] so the
// service layer never sees driver internals.
type PostgresUserRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository creates a new PostgreSQL implementation of the UserRepository.
func NewUserRepository(pool *pgxpool.Pool) *PostgresUserRepository {
	return &PostgresUserRepository{pool: pool}
}

// userColumns is the canonical projection for hydrating a [User].
const userColumns = `
	id, name, email, photo, role, passwordhash,
	passwordchangedat, resettokenhash, resettokenexpiresat,
	failedloginattempts, lockeduntil, isverified, active, createdat, updatedat`

/*
Create persists a new user record into the users table.

Description: Deep-persists account state, initializing timestamps when absent.

Parameters:
  - context: context.Context
  - user: *User (Entity to persist)

Returns:
  - error: DuplicateKey on email collision, or connectivity errors
*/
func (repository *PostgresUserRepository) Create(context context.Context, user *User) error {
	const query = `
		INSERT INTO users (
			id, name, email, photo, role, passwordhash, isverified, active, createdat, updatedat
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	now := time.Now()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now

	_, err := repository.pool.Exec(context, query,
		user.ID,
		user.Name,
		user.Email,
		user.Photo,
		user.Role,
		user.PasswordHash,
		user.IsVerified,
		user.Active,
		user.CreatedAt,
		user.UpdatedAt,
	)

	if err != nil {
		return dberr.Wrap(err, "user_create")
	}

	return nil
}

/*
FindByID retrieves an active user record by their unique ID.

Parameters:
  - context: context.Context
  - id: string (UUIDv7)

Returns:
  - *User: Hydrated account entity
  - error: apperr.NotFound or execution errors
*/
func (repository *PostgresUserRepository) FindByID(context context.Context, id string) (*User, error) {
	const query = `
		SELECT ` + userColumns + `
		FROM users
		WHERE id = $1 AND active = TRUE`

	return repository.scanOne(context, query, id)
}

/*
FindByEmail retrieves an active user record by their unique email address,
including the password hash and lockout state needed by the login flow.

Parameters:
  - context: context.Context
  - email: string

Returns:
  - *User: Hydrated account entity
  - error: apperr.NotFound or database errors
*/
func (repository *PostgresUserRepository) FindByEmail(context context.Context, email string) (*User, error) {
	const query = `
		SELECT ` + userColumns + `
		FROM users
		WHERE email = $1 AND active = TRUE`

	return repository.scanOne(context, query, email)
}

/*
FindByResetTokenHash retrieves the account holding an unexpired reset token
with the given hash.

Description: The expiry comparison lives in the query so an expired token is
indistinguishable from an unknown one.

Parameters:
  - context: context.Context
  - tokenHash: string
  - now: time.Time

Returns:
  - *User: Hydrated account entity
  - error: apperr.NotFound or database errors
*/
func (repository *PostgresUserRepository) FindByResetTokenHash(context context.Context, tokenHash string, now time.Time) (*User, error) {
	const query = `
		SELECT ` + userColumns + `
		FROM users
		WHERE resettokenhash = $1 AND resettokenexpiresat > $2 AND active = TRUE`

	return repository.scanOne(context, query, tokenHash, now)
}

/*
UpdateLoginState persists the failed-attempt counter and lock deadline.

Parameters:
  - context: context.Context
  - userID: string
  - failedAttempts: int
  - lockedUntil: time.Time (zero stores NULL)

Returns:
  - error: Execution errors
*/
func (repository *PostgresUserRepository) UpdateLoginState(context context.Context, userID string, failedAttempts int, lockedUntil time.Time) error {
	const query = `
		UPDATE users
		SET failedloginattempts = $2, lockeduntil = $3, updatedat = $4
		WHERE id = $1`

	_, err := repository.pool.Exec(context, query, userID, failedAttempts, nullableTime(lockedUntil), time.Now())
	if err != nil {
		return dberr.Wrap(err, "user_update_login_state")
	}

	return nil
}

/*
UpdatePassword replaces the password hash, stamps the change time, and clears
the reset token state in one statement.

Parameters:
  - context: context.Context
  - userID: string
  - newHash: string
  - changedAt: time.Time

Returns:
  - error: Execution errors
*/
func (repository *PostgresUserRepository) UpdatePassword(context context.Context, userID, newHash string, changedAt time.Time) error {
	const query = `
		UPDATE users
		SET passwordhash = $2, passwordchangedat = $3,
		    resettokenhash = NULL, resettokenexpiresat = NULL, updatedat = $4
		WHERE id = $1`

	_, err := repository.pool.Exec(context, query, userID, newHash, changedAt, time.Now())
	if err != nil {
		return dberr.Wrap(err, "user_update_password")
	}

	return nil
}

/*
SetResetToken stores the reset token hash and expiry on the account.

Parameters:
  - context: context.Context
  - userID: string
  - tokenHash: string
  - expiresAt: time.Time

Returns:
  - error: Execution errors
*/
func (repository *PostgresUserRepository) SetResetToken(context context.Context, userID, tokenHash string, expiresAt time.Time) error {
	const query = `
		UPDATE users
		SET resettokenhash = $2, resettokenexpiresat = $3, updatedat = $4
		WHERE id = $1`

	_, err := repository.pool.Exec(context, query, userID, tokenHash, expiresAt, time.Now())
	if err != nil {
		return dberr.Wrap(err, "user_set_reset_token")
	}

	return nil
}

/*
ClearResetToken removes any reset token state from the account.

Parameters:
  - context: context.Context
  - userID: string

Returns:
  - error: Execution errors
*/
func (repository *PostgresUserRepository) ClearResetToken(context context.Context, userID string) error {
	const query = `
		UPDATE users
		SET resettokenhash = NULL, resettokenexpiresat = NULL, updatedat = $2
		WHERE id = $1`

	_, err := repository.pool.Exec(context, query, userID, time.Now())
	if err != nil {
		return dberr.Wrap(err, "user_clear_reset_token")
	}

	return nil
}

/*
MarkVerified updates the user's status to isverified = true.

Description: Post-verification cleanup to activate the account.

Parameters:
  - context: context.Context
  - userID: string

Returns:
  - error: Database errors
*/
func (repository *PostgresUserRepository) MarkVerified(context context.Context, userID string) error {
	const query = "UPDATE users SET isverified = TRUE, updatedat = $2 WHERE id = $1"
	_, err := repository.pool.Exec(context, query, userID, time.Now())
	if err != nil {
		return dberr.Wrap(err, "user_mark_verified")
	}
	return nil
}

// scanOne runs a single-row user query and hydrates the entity, translating
// nullable columns into their zero values.
func (repository *PostgresUserRepository) scanOne(context context.Context, query string, args ...any) (*User, error) {
	user := &User{}
	var passwordChangedAt, resetTokenExpiresAt, lockedUntil *time.Time
	var photo, resetTokenHash *string

	err := repository.pool.QueryRow(context, query, args...).Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&photo,
		&user.Role,
		&user.PasswordHash,
		&passwordChangedAt,
		&resetTokenHash,
		&resetTokenExpiresAt,
		&user.FailedLoginAttempts,
		&lockedUntil,
		&user.IsVerified,
		&user.Active,
		&user.CreatedAt,
		&user.UpdatedAt,
	)

	if err != nil {
		return nil, dberr.Wrap(err, "user_find")
	}

	if photo != nil {
		user.Photo = *photo
	}
	if resetTokenHash != nil {
		user.ResetTokenHash = *resetTokenHash
	}
	if passwordChangedAt != nil {
		user.PasswordChangedAt = *passwordChangedAt
	}
	if resetTokenExpiresAt != nil {
		user.ResetTokenExpiresAt = *resetTokenExpiresAt
	}
	if lockedUntil != nil {
		user.LockedUntil = *lockedUntil
	}

	return user, nil
}

// nullableTime maps the zero time to NULL so "no lock" is stored as absence.
func nullableTime(value time.Time) *time.Time {
	if value.IsZero() {
		return nil
	}
	return &value
}
