// Copyright (c) 2026 Natours. All rights reserved.
// Author: marcin.karbowniczyn@gmail.com

package review

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	requestutil "github.com/marcin-karbowniczyn/natours/internal/platform/request"
	"github.com/marcin-karbowniczyn/natours/internal/platform/respond"
	"github.com/marcin-karbowniczyn/natours/internal/platform/validate"
)

// # Definitions & Constructors

// Handler implements the review HTTP endpoints.
//
// Routes are nested under a tour: the router is mounted at
// /tours/{tourID}/reviews, so every handler resolves the owning tour from
// the URL rather than the payload.
type Handler struct {
	reviewService *Service
}

// NewHandler constructs a new [Handler] with its service dependency.
func NewHandler(service *Service) *Handler {
	return &Handler{reviewService: service}
}

// Routes builds the nested review router.
//
// # Endpoints
//   - GET    /       : Reviews for the tour.
//   - POST   /       : Creates a review (travellers only).
//   - GET    /{id}   : Single review.
//   - PATCH  /{id}   : Updates a review (author or admin).
//   - DELETE /{id}   : Deletes a review (author or admin).
func (handler *Handler) Routes(protect, restrictTravellers, restrictAuthors func(http.Handler) http.Handler) chi.Router {
	router := chi.NewRouter()
	router.Use(protect)

	router.Get("/", handler.listReviews)
	router.Get("/{id}", handler.getReview)

	router.With(restrictTravellers).Post("/", handler.createReview)

	router.Group(func(r chi.Router) {
		r.Use(restrictAuthors)
		r.Patch("/{id}", handler.updateReview)
		r.Delete("/{id}", handler.deleteReview)
	})

	return router
}

// # Request Payloads

type reviewPayload struct {
	Rating int    `json:"rating"`
	Text   string `json:"text"`
}

// # Review Endpoints

/*
ListReviews returns the reviews of the enclosing tour.

GET /api/v1/tours/{tourID}/reviews

Response:
  - 200: []Review: The tour's reviews, newest first
*/
func (handler *Handler) listReviews(writer http.ResponseWriter, request *http.Request) {
	tourID := requestutil.Param(request, "tourID")

	validator := &validate.Validator{}
	validator.UUID("tourID", tourID)
	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	reviews, err := handler.reviewService.ListReviews(request.Context(), tourID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.List(writer, map[string]any{"reviews": reviews}, len(reviews))
}

/*
GetReview returns a single review.

GET /api/v1/tours/{tourID}/reviews/{id}

Response:
  - 200: Review: The review
  - 404: ErrNotFound: Unknown review
*/
func (handler *Handler) getReview(writer http.ResponseWriter, request *http.Request) {
	id := requestutil.Param(request, "id")

	validator := &validate.Validator{}
	validator.UUID("id", id)
	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	review, err := handler.reviewService.GetReview(request.Context(), id)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]any{"review": review})
}

/*
CreateReview posts a review for the enclosing tour as the caller.

POST /api/v1/tours/{tourID}/reviews

Description: Tour and author come from the URL and the session, never from
the payload, so a traveller cannot review on someone else's behalf.

Request:
  - Body: reviewPayload

Response:
  - 201: Review: The created review
  - 400: ErrInvalidJSON: Validation failure or second review for this tour
  - 403: ErrForbidden: Caller has not booked this tour
*/
func (handler *Handler) createReview(writer http.ResponseWriter, request *http.Request) {
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

	var payload reviewPayload
	if err := requestutil.DecodeJSON(request, &payload); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	review := &Review{
		TourID: tourID,
		UserID: principal.ID,
		Rating: payload.Rating,
		Text:   payload.Text,
	}

	if err := handler.reviewService.CreateReview(request.Context(), review); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Created(writer, map[string]any{"review": review})
}

/*
UpdateReview changes the rating or text of one of the caller's reviews.

PATCH /api/v1/tours/{tourID}/reviews/{id}

Request:
  - Body: reviewPayload

Response:
  - 200: Review: The updated review
  - 403: ErrForbidden: Caller is neither the author nor an admin
  - 404: ErrNotFound: Unknown review
*/
func (handler *Handler) updateReview(writer http.ResponseWriter, request *http.Request) {
	principal, err := requestutil.RequiredPrincipal(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	id := requestutil.Param(request, "id")

	validator := &validate.Validator{}
	validator.UUID("id", id)
	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	var payload reviewPayload
	if err := requestutil.DecodeJSON(request, &payload); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	review, err := handler.reviewService.UpdateReview(request.Context(), principal, id, payload.Rating, payload.Text)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]any{"review": review})
}

/*
DeleteReview removes one of the caller's reviews.

DELETE /api/v1/tours/{tourID}/reviews/{id}

Response:
  - 204: No Content: Review removed, tour rating rolled up
  - 403: ErrForbidden: Caller is neither the author nor an admin
  - 404: ErrNotFound: Unknown review
*/
func (handler *Handler) deleteReview(writer http.ResponseWriter, request *http.Request) {
	principal, err := requestutil.RequiredPrincipal(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	id := requestutil.Param(request, "id")

	validator := &validate.Validator{}
	validator.UUID("id", id)
	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.reviewService.DeleteReview(request.Context(), principal, id); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.NoContent(writer)
}
