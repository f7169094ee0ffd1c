// Copyright (c) 2026 Natours. All rights reserved.
// Author: marcin.karbowniczyn@gmail.com

/*
Package account handles user profile management and administration.

It provides functionalities for users to view and update their private
identity data, curate their favourite tours, and soft-deactivate their
account, plus the administrative user directory.

# Architecture

  - Domain: This package depends on the auth package for the User entity.
  - Separation: Credential changes (password, reset) stay in auth; this
    package only ever touches non-secret profile state.
*/
package account

import (
	"context"

	"github.com/marcin-karbowniczyn/natours/internal/users/auth"
	"github.com/marcin-karbowniczyn/natours/pkg/query"
)

// # Repository Contracts

// AccountRepository defines the persistence contract for user profiles.
type AccountRepository interface {
	/*
		FindByID retrieves an active user record by their unique ID.

		Parameters:
		  - context: context.Context
		  - id: string (UUIDv7)

		Returns:
		  - *auth.User: Loaded account entity
		  - error: apperr.NotFound or storage failures
	*/
	FindByID(context context.Context, id string) (*auth.User, error)

	/*
		FindAll lists users matching the request's query builder state.

		Parameters:
		  - context: context.Context
		  - builder: *query.Builder (filter/sort/projection/pagination)

		Returns:
		  - []auth.User: Matching accounts
		  - error: Storage failures
	*/
	FindAll(context context.Context, builder *query.Builder) ([]auth.User, error)

	/*
		Update modifies the mutable profile fields of an existing user.

		Parameters:
		  - context: context.Context
		  - user: *auth.User (Hydrated entity with changes)

		Returns:
		  - error: DuplicateKey on email collision, or storage failures
	*/
	Update(context context.Context, user *auth.User) error

	/*
		Deactivate flags the account as inactive without removing the row.

		Parameters:
		  - context: context.Context
		  - id: string

		Returns:
		  - error: Storage failures
	*/
	Deactivate(context context.Context, id string) error
}

// FavouriteRepository defines the persistence contract for a user's
// favourite tours.
type FavouriteRepository interface {
	/*
		Add records a tour as a favourite of the user. Idempotent.

		Parameters:
		  - context: context.Context
		  - userID: string
		  - tourID: string

		Returns:
		  - error: apperr.NotFound when the tour does not exist
	*/
	Add(context context.Context, userID, tourID string) error

	/*
		Remove deletes the favourite link. Idempotent.

		Parameters:
		  - context: context.Context
		  - userID: string
		  - tourID: string

		Returns:
		  - error: Storage failures
	*/
	Remove(context context.Context, userID, tourID string) error

	/*
		ListTourIDs returns the IDs of the user's favourite tours.

		Parameters:
		  - context: context.Context
		  - userID: string

		Returns:
		  - []string: Favourite tour IDs, newest first
		  - error: Storage failures
	*/
	ListTourIDs(context context.Context, userID string) ([]string, error)
}
