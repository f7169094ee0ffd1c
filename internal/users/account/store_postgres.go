// Copyright (c) 2026 Natours. All rights reserved.
// Author: marcin.karbowniczyn@gmail.com

package account

import (
	"context"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/marcin-karbowniczyn/natours/internal/platform/dberr"
	"github.com/marcin-karbowniczyn/natours/internal/users/auth"
	"github.com/marcin-karbowniczyn/natours/pkg/query"
)

// UserQueryColumns is the allow-list the user directory exposes to the
// query builder. Secret columns are deliberately absent.
var UserQueryColumns = map[string]string{
	"name":      "name",
	"email":     "email",
	"role":      "role",
	"createdAt": "createdat",
}

// # Account Repository

// PostgresAccountRepository implements [AccountRepository] using pgx.
type PostgresAccountRepository struct {
	pool *pgxpool.Pool
}

// NewAccountRepository creates a new PostgreSQL implementation of [AccountRepository].
func NewAccountRepository(pool *pgxpool.Pool) *PostgresAccountRepository {
	return &PostgresAccountRepository{pool: pool}
}

// profileColumns is the non-secret projection used for profile reads.
const profileColumns = "id, name, email, photo, role, isverified, createdat, updatedat"

/*
FindByID retrieves an active user's profile by their unique ID.

Parameters:
  - context: context.Context
  - id: string (UUIDv7)

Returns:
  - *auth.User: Hydrated profile (credential fields zeroed)
  - error: apperr.NotFound or execution errors
*/
func (repository *PostgresAccountRepository) FindByID(context context.Context, id string) (*auth.User, error) {
	const sql = `
		SELECT ` + profileColumns + `
		FROM users
		WHERE id = $1 AND active = TRUE`

	user := &auth.User{}
	var photo *string
	err := repository.pool.QueryRow(context, sql, id).Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&photo,
		&user.Role,
		&user.IsVerified,
		&user.CreatedAt,
		&user.UpdatedAt,
	)

	if err != nil {
		return nil, dberr.Wrap(err, "account_find_by_id")
	}

	if photo != nil {
		user.Photo = *photo
	}

	return user, nil
}

/*
FindAll lists active users matching the request's query builder state.

Description: The builder contributes WHERE, ORDER BY and pagination; the
active filter is appended unconditionally so deactivated accounts never
appear in the directory.

Parameters:
  - context: context.Context
  - builder: *query.Builder

Returns:
  - []auth.User: Matching accounts
  - error: Execution errors
*/
func (repository *PostgresAccountRepository) FindAll(context context.Context, builder *query.Builder) ([]auth.User, error) {
	base := "SELECT " + profileColumns + " FROM users"

	sql, args := builder.Build(base)

	// Splice the activity filter in front of any builder predicates.
	if strings.Contains(sql, "WHERE") {
		sql = strings.Replace(sql, "WHERE", "WHERE active = TRUE AND", 1)
	} else {
		sql = strings.Replace(sql, base, base+" WHERE active = TRUE", 1)
	}

	rows, err := repository.pool.Query(context, sql, args...)
	if err != nil {
		return nil, dberr.Wrap(err, "account_find_all")
	}
	defer rows.Close()

	var users []auth.User
	for rows.Next() {
		var user auth.User
		var photo *string
		if err := rows.Scan(
			&user.ID,
			&user.Name,
			&user.Email,
			&photo,
			&user.Role,
			&user.IsVerified,
			&user.CreatedAt,
			&user.UpdatedAt,
		); err != nil {
			return nil, dberr.Wrap(err, "account_find_all_scan")
		}
		if photo != nil {
			user.Photo = *photo
		}
		users = append(users, user)
	}

	if err := rows.Err(); err != nil {
		return nil, dberr.Wrap(err, "account_find_all_rows")
	}

	return users, nil
}

/*
Update persists changes to a user's mutable profile fields.

Parameters:
  - context: context.Context
  - user: *auth.User

Returns:
  - error: DuplicateKey on email collision, or update failures
*/
func (repository *PostgresAccountRepository) Update(context context.Context, user *auth.User) error {
	const sql = `
		UPDATE users
		SET name = $2, email = $3, photo = $4, updatedat = $5
		WHERE id = $1 AND active = TRUE`

	user.UpdatedAt = time.Now()
	_, err := repository.pool.Exec(context, sql,
		user.ID,
		user.Name,
		user.Email,
		user.Photo,
		user.UpdatedAt,
	)

	if err != nil {
		return dberr.Wrap(err, "account_update")
	}

	return nil
}

/*
Deactivate flags a user account as inactive.

Description: Retention-friendly deletion; the row survives but drops out of
every active-only lookup.

Parameters:
  - context: context.Context
  - id: string

Returns:
  - error: Execution failures
*/
func (repository *PostgresAccountRepository) Deactivate(context context.Context, id string) error {
	const sql = "UPDATE users SET active = FALSE, updatedat = $2 WHERE id = $1"
	_, err := repository.pool.Exec(context, sql, id, time.Now())
	if err != nil {
		return dberr.Wrap(err, "account_deactivate")
	}
	return nil
}

// # Favourite Repository

// PostgresFavouriteRepository implements [FavouriteRepository] using pgx.
type PostgresFavouriteRepository struct {
	pool *pgxpool.Pool
}

// NewFavouriteRepository creates a new PostgreSQL implementation of [FavouriteRepository].
func NewFavouriteRepository(pool *pgxpool.Pool) *PostgresFavouriteRepository {
	return &PostgresFavouriteRepository{pool: pool}
}

/*
Add records a tour as a favourite. Conflicts are ignored so the operation is
idempotent; a missing tour surfaces as apperr.NotFound via the FK violation.

Parameters:
  - context: context.Context
  - userID: string
  - tourID: string

Returns:
  - error: apperr.NotFound or execution errors
*/
func (repository *PostgresFavouriteRepository) Add(context context.Context, userID, tourID string) error {
	const sql = `
		INSERT INTO user_favourites (userid, tourid, createdat)
		VALUES ($1, $2, $3)
		ON CONFLICT (userid, tourid) DO NOTHING`

	_, err := repository.pool.Exec(context, sql, userID, tourID, time.Now())
	if err != nil {
		return dberr.Wrap(err, "favourite_add")
	}

	return nil
}

/*
Remove deletes the favourite link. Removing an absent link is a no-op.

Parameters:
  - context: context.Context
  - userID: string
  - tourID: string

Returns:
  - error: Execution errors
*/
func (repository *PostgresFavouriteRepository) Remove(context context.Context, userID, tourID string) error {
	const sql = "DELETE FROM user_favourites WHERE userid = $1 AND tourid = $2"
	_, err := repository.pool.Exec(context, sql, userID, tourID)
	if err != nil {
		return dberr.Wrap(err, "favourite_remove")
	}
	return nil
}

/*
ListTourIDs returns the user's favourite tour IDs, newest first.

Parameters:
  - context: context.Context
  - userID: string

Returns:
  - []string: Favourite tour IDs
  - error: Execution errors
*/
func (repository *PostgresFavouriteRepository) ListTourIDs(context context.Context, userID string) ([]string, error) {
	const sql = `
		SELECT tourid
		FROM user_favourites
		WHERE userid = $1
		ORDER BY createdat DESC`

	rows, err := repository.pool.Query(context, sql, userID)
	if err != nil {
		return nil, dberr.Wrap(err, "favourite_list")
	}
	defer rows.Close()

	var tourIDs []string
	for rows.Next() {
		var tourID string
		if err := rows.Scan(&tourID); err != nil {
			return nil, dberr.Wrap(err, "favourite_list_scan")
		}
		tourIDs = append(tourIDs, tourID)
	}

	if err := rows.Err(); err != nil {
		return nil, dberr.Wrap(err, "favourite_list_rows")
	}

	return tourIDs, nil
}
