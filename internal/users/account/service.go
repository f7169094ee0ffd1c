// Copyright (c) 2026 Natours. All rights reserved.
// Author: marcin.karbowniczyn@gmail.com

package account

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/marcin-karbowniczyn/natours/internal/platform/storage"
	"github.com/marcin-karbowniczyn/natours/internal/users/auth"
	"github.com/marcin-karbowniczyn/natours/pkg/pointer"
	"github.com/marcin-karbowniczyn/natours/pkg/query"
)

// # Service Layer

// Service orchestrates business logic for user profiles and favourites.
type Service struct {
	accountRepository   AccountRepository
	favouriteRepository FavouriteRepository
	photos              storage.Store
	logger              *slog.Logger
}

// NewService constructs a new [Service] with its repository dependencies.
func NewService(
	accountRepo AccountRepository,
	favouriteRepo FavouriteRepository,
	photos storage.Store,
	logger *slog.Logger,
) *Service {
	return &Service{
		accountRepository:   accountRepo,
		favouriteRepository: favouriteRepo,
		photos:              photos,
		logger:              logger,
	}
}

// # Profile Management

/*
GetProfile retrieves the full private identity of a user.

Parameters:
  - context: context.Context
  - userID: string

Returns:
  - *auth.User: The hydrated user profile
  - error: Not found or execution failures
*/
func (service *Service) GetProfile(context context.Context, userID string) (*auth.User, error) {
	user, err := service.accountRepository.FindByID(context, userID)
	if err != nil {
		return nil, err
	}
	return user, nil
}

// UpdateProfileInput defines the mutable subset of user profile fields.
// Credential fields are deliberately absent; password changes go through auth.
type UpdateProfileInput struct {
	Name  *string
	Email *string
	Photo *string
}

/*
UpdateProfile applies a partial set of changes to a user's account metadata.

Description: Fetches the existing user state, overrides provided fields, and
synchronizes the change to persistent storage.

Parameters:
  - context: context.Context
  - userID: string
  - input: UpdateProfileInput

Returns:
  - *auth.User: The updated user profile
  - error: DuplicateKey on email collision, or storage failures
*/
func (service *Service) UpdateProfile(context context.Context, userID string, input UpdateProfileInput) (*auth.User, error) {
	user, err := service.accountRepository.FindByID(context, userID)
	if err != nil {
		return nil, err
	}

	// Apply delta updates
	if input.Name != nil {
		user.Name = *input.Name
	}
	if input.Email != nil {
		user.Email = *input.Email
	}
	if input.Photo != nil {
		user.Photo = *input.Photo
	}

	if err := service.accountRepository.Update(context, user); err != nil {
		return nil, err
	}

	service.logger.Info("user_profile_updated", slog.String("user_id", userID))

	return user, nil
}

/*
UpdatePhoto stores a new profile photo and points the account at it.

Description: The image buffer goes through the file-storage collaborator,
which owns resizing and naming; only the returned filename reaches the
database.

Parameters:
  - context: context.Context
  - userID: string
  - image: []byte (Raw uploaded image)

Returns:
  - *auth.User: The updated user profile
  - error: Storage or persistence failures
*/
func (service *Service) UpdatePhoto(context context.Context, userID string, image []byte) (*auth.User, error) {
	filename, err := service.photos.SaveUserPhoto(context, userID, image)
	if err != nil {
		return nil, err
	}

	user, err := service.UpdateProfile(context, userID, UpdateProfileInput{Photo: pointer.To(filename)})
	if err != nil {
		return nil, err
	}

	service.logger.Info("user_photo_updated",
		slog.String("user_id", userID),
		slog.String("filename", filename),
	)

	return user, nil
}

/*
DeactivateAccount performs an idempotent soft-deactivation of a user account.

Description: Flags the account as inactive; the row is retained but every
authenticated lookup starts excluding it, which invalidates outstanding tokens.

Parameters:
  - context: context.Context
  - userID: string

Returns:
  - error: Execution failures
*/
func (service *Service) DeactivateAccount(context context.Context, userID string) error {
	if err := service.accountRepository.Deactivate(context, userID); err != nil {
		return fmt.Errorf("account_service_deactivate_failed: %w", err)
	}

	service.logger.Warn("user_account_deactivated", slog.String("user_id", userID))

	return nil
}

// # Administration

/*
ListUsers returns the user directory filtered by the request's query state.

Parameters:
  - context: context.Context
  - builder: *query.Builder

Returns:
  - []auth.User: Matching accounts
  - error: Storage failures
*/
func (service *Service) ListUsers(context context.Context, builder *query.Builder) ([]auth.User, error) {
	users, err := service.accountRepository.FindAll(context, builder)
	if err != nil {
		return nil, fmt.Errorf("account_service_list_users_failed: %w", err)
	}
	return users, nil
}

// # Favourites

/*
AddFavourite records a tour in the user's favourites list.

Parameters:
  - context: context.Context
  - userID: string
  - tourID: string

Returns:
  - error: apperr.NotFound when the tour does not exist
*/
func (service *Service) AddFavourite(context context.Context, userID, tourID string) error {
	if err := service.favouriteRepository.Add(context, userID, tourID); err != nil {
		return err
	}

	service.logger.Info("user_favourite_added",
		slog.String("user_id", userID),
		slog.String("tour_id", tourID),
	)

	return nil
}

/*
RemoveFavourite deletes a tour from the user's favourites list.

Parameters:
  - context: context.Context
  - userID: string
  - tourID: string

Returns:
  - error: Storage failures
*/
func (service *Service) RemoveFavourite(context context.Context, userID, tourID string) error {
	if err := service.favouriteRepository.Remove(context, userID, tourID); err != nil {
		return err
	}

	service.logger.Info("user_favourite_removed",
		slog.String("user_id", userID),
		slog.String("tour_id", tourID),
	)

	return nil
}

/*
ListFavourites returns the IDs of the user's favourite tours.

Parameters:
  - context: context.Context
  - userID: string

Returns:
  - []string: Favourite tour IDs, newest first
  - error: Storage failures
*/
func (service *Service) ListFavourites(context context.Context, userID string) ([]string, error) {
	tourIDs, err := service.favouriteRepository.ListTourIDs(context, userID)
	if err != nil {
		return nil, fmt.Errorf("account_service_list_favourites_failed: %w", err)
	}
	return tourIDs, nil
}
