// Copyright (c) 2026 Natours. All rights reserved.
// Author: marcin.karbowniczyn@gmail.com

package account

import (
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/marcin-karbowniczyn/natours/internal/platform/apperr"
	requestutil "github.com/marcin-karbowniczyn/natours/internal/platform/request"
	"github.com/marcin-karbowniczyn/natours/internal/platform/respond"
	"github.com/marcin-karbowniczyn/natours/internal/platform/validate"
	"github.com/marcin-karbowniczyn/natours/internal/users/auth"
	"github.com/marcin-karbowniczyn/natours/pkg/query"
)

// maxPhotoUploadBytes caps profile photo uploads.
const maxPhotoUploadBytes = 5 << 20

// # Definitions & Constructors

// Handler implements profile and user-administration HTTP endpoints.
//
// # Scope
//
// Everything under /users that is NOT a credential operation: the "me"
// surface, favourites, and the admin directory. It shares its mount point
// with the auth handler.
type Handler struct {
	accountService *Service
}

// NewHandler constructs a new [Handler] with its service dependency.
func NewHandler(service *Service) *Handler {
	return &Handler{accountService: service}
}

// Mount attaches the account routes to the shared users router.
//
// # Endpoints
//   - GET    /me                    : Current user's profile.
//   - PATCH  /updateMe              : Partial profile update (never passwords).
//   - PATCH  /updateMyPhoto         : Profile photo upload (multipart).
//   - DELETE /deleteMe              : Soft-deactivates the account.
//   - GET    /favourites            : Favourite tour IDs.
//   - POST   /favourites/{tourID}   : Adds a favourite.
//   - DELETE /favourites/{tourID}   : Removes a favourite.
//   - GET    /                      : Admin user directory.
//   - GET    /{id}                  : Admin single-user lookup.
//   - DELETE /{id}                  : Admin soft-deactivation.
func (handler *Handler) Mount(router chi.Router, protect, restrictAdmin func(http.Handler) http.Handler) {

	// Self-service endpoints
	router.Group(func(r chi.Router) {
		r.Use(protect)
		r.Get("/me", handler.getMe)
		r.Patch("/updateMe", handler.updateMe)
		r.Patch("/updateMyPhoto", handler.updateMyPhoto)
		r.Delete("/deleteMe", handler.deleteMe)
		r.Get("/favourites", handler.listFavourites)
		r.Post("/favourites/{tourID}", handler.addFavourite)
		r.Delete("/favourites/{tourID}", handler.removeFavourite)
	})

	// Administrative endpoints
	router.Group(func(r chi.Router) {
		r.Use(protect, restrictAdmin)
		r.Get("/", handler.listUsers)
		r.Get("/{id}", handler.getUser)
		r.Delete("/{id}", handler.deleteUser)
	})
}

// # Request Payloads

// updateMeRequest includes the credential fields solely to DETECT them:
// their presence is rejected so this route can never change a password.
type updateMeRequest struct {
	Name            *string `json:"name"`
	Email           *string `json:"email"`
	Photo           *string `json:"photo"`
	Password        *string `json:"password"`
	PasswordConfirm *string `json:"password_confirm"`
}

/*
GetMe returns the authenticated user's own profile.

GET /api/v1/users/me

Response:
  - 200: User: The caller's profile
  - 401: ErrUnauthorized: Not logged in
*/
func (handler *Handler) getMe(writer http.ResponseWriter, request *http.Request) {
	principal, err := requestutil.RequiredPrincipal(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	user, err := handler.accountService.GetProfile(request.Context(), principal.ID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]any{auth.FieldUser: user})
}

/*
UpdateMe applies a partial update to the caller's profile.

PATCH /api/v1/users/updateMe

Description: Accepts name, email and photo. Any attempt to smuggle password
fields through this route is rejected outright.

Request:
  - Body: updateMeRequest

Response:
  - 200: User: Updated profile
  - 400: ErrInvalidJSON: Validation failure or password fields present
*/
func (handler *Handler) updateMe(writer http.ResponseWriter, request *http.Request) {
	principal, err := requestutil.RequiredPrincipal(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input updateMeRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	if input.Password != nil || input.PasswordConfirm != nil {
		respond.Error(writer, request, apperr.ValidationError(
			"This route is not for password updates. Please use /updateMyPassword."))
		return
	}

	validator := &validate.Validator{}
	if input.Name != nil {
		validator.Required(auth.FieldName, *input.Name)
	}
	if input.Email != nil {
		validator.Required(auth.FieldEmail, *input.Email).Email(auth.FieldEmail, *input.Email)
	}

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	user, err := handler.accountService.UpdateProfile(request.Context(), principal.ID, UpdateProfileInput{
		Name:  input.Name,
		Email: input.Email,
		Photo: input.Photo,
	})

	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]any{auth.FieldUser: user})
}

/*
UpdateMyPhoto replaces the caller's profile photo.

PATCH /api/v1/users/updateMyPhoto

Description: Expects a multipart form with the image under the "photo"
field. The storage collaborator assigns the filename; the handler only
relays bytes.

Response:
  - 200: User: Profile with the new photo reference
  - 400: ErrValidation: Missing or oversized upload
*/
func (handler *Handler) updateMyPhoto(writer http.ResponseWriter, request *http.Request) {
	principal, err := requestutil.RequiredPrincipal(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := request.ParseMultipartForm(maxPhotoUploadBytes); err != nil {
		respond.Error(writer, request, apperr.ValidationError("Could not read the uploaded photo"))
		return
	}

	file, _, err := request.FormFile("photo")
	if err != nil {
		respond.Error(writer, request, apperr.ValidationError("Please upload an image under the 'photo' field"))
		return
	}
	defer file.Close()

	image, err := io.ReadAll(io.LimitReader(file, maxPhotoUploadBytes))
	if err != nil {
		respond.Error(writer, request, apperr.ValidationError("Could not read the uploaded photo"))
		return
	}

	user, err := handler.accountService.UpdatePhoto(request.Context(), principal.ID, image)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]any{auth.FieldUser: user})
}

/*
DeleteMe soft-deactivates the caller's account.

DELETE /api/v1/users/deleteMe

Response:
  - 204: No Content: Account deactivated
*/
func (handler *Handler) deleteMe(writer http.ResponseWriter, request *http.Request) {
	principal, err := requestutil.RequiredPrincipal(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.accountService.DeactivateAccount(request.Context(), principal.ID); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.NoContent(writer)
}

// # Favourites

/*
ListFavourites returns the caller's favourite tour IDs.

GET /api/v1/users/favourites

Response:
  - 200: []string: Favourite tour IDs, newest first
*/
func (handler *Handler) listFavourites(writer http.ResponseWriter, request *http.Request) {
	principal, err := requestutil.RequiredPrincipal(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	tourIDs, err := handler.accountService.ListFavourites(request.Context(), principal.ID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.List(writer, map[string]any{"favourites": tourIDs}, len(tourIDs))
}

/*
AddFavourite records a tour in the caller's favourites.

POST /api/v1/users/favourites/{tourID}

Response:
  - 201: Success: Favourite recorded
  - 404: ErrNotFound: Tour does not exist
*/
func (handler *Handler) addFavourite(writer http.ResponseWriter, request *http.Request) {
	principal, err := requestutil.RequiredPrincipal(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	tourID := requestutil.Param(request, "tourID")

	validator := &validate.Validator{}
	validator.UUID("tourID", tourID)
	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.accountService.AddFavourite(request.Context(), principal.ID, tourID); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Created(writer, map[string]string{auth.FieldMessage: "Tour added to favourites"})
}

/*
RemoveFavourite deletes a tour from the caller's favourites.

DELETE /api/v1/users/favourites/{tourID}

Response:
  - 204: No Content: Favourite removed (idempotent)
*/
func (handler *Handler) removeFavourite(writer http.ResponseWriter, request *http.Request) {
	principal, err := requestutil.RequiredPrincipal(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	tourID := requestutil.Param(request, "tourID")

	if err := handler.accountService.RemoveFavourite(request.Context(), principal.ID, tourID); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.NoContent(writer)
}

// # Administration

/*
ListUsers returns the user directory for administrators.

GET /api/v1/users?role=guide&sort=-createdAt&page=1&limit=20

Response:
  - 200: []User: Matching accounts
  - 403: ErrForbidden: Caller is not an admin
*/
func (handler *Handler) listUsers(writer http.ResponseWriter, request *http.Request) {
	builder := query.NewBuilder(request.URL.Query(), UserQueryColumns, "-createdAt").
		Filter().
		Sort().
		Paginate()

	users, err := handler.accountService.ListUsers(request.Context(), builder)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.List(writer, map[string]any{"users": users}, len(users))
}

/*
GetUser returns a single user by ID, for administrators.

GET /api/v1/users/{id}

Response:
  - 200: User: The account
  - 404: ErrNotFound: Unknown or deactivated account
*/
func (handler *Handler) getUser(writer http.ResponseWriter, request *http.Request) {
	id := requestutil.Param(request, "id")

	validator := &validate.Validator{}
	validator.UUID("id", id)
	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	user, err := handler.accountService.GetProfile(request.Context(), id)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]any{auth.FieldUser: user})
}

/*
DeleteUser soft-deactivates an arbitrary account, for administrators.

DELETE /api/v1/users/{id}

Response:
  - 204: No Content: Account deactivated
*/
func (handler *Handler) deleteUser(writer http.ResponseWriter, request *http.Request) {
	id := requestutil.Param(request, "id")

	validator := &validate.Validator{}
	validator.UUID("id", id)
	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.accountService.DeactivateAccount(request.Context(), id); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.NoContent(writer)
}
