// Copyright (c) 2026 Natours. All rights reserved.
// Author: marcin.karbowniczyn@gmail.com

package tour

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	requestutil "github.com/marcin-karbowniczyn/natours/internal/platform/request"
	"github.com/marcin-karbowniczyn/natours/internal/platform/respond"
	"github.com/marcin-karbowniczyn/natours/internal/platform/validate"
	"github.com/marcin-karbowniczyn/natours/pkg/query"
)

// # Definitions & Constructors

// Handler implements the HTTP endpoints of the tour catalogue.
type Handler struct {
	tourService *Service
}

// NewHandler constructs a new [Handler] with its service dependency.
func NewHandler(service *Service) *Handler {
	return &Handler{tourService: service}
}

// Routes builds the catalogue router.
//
// The public endpoints run behind softAuth so a logged-in caller is still
// identified in request logs without the catalogue requiring a session.
//
// # Endpoints
//   - GET    /       : Public catalogue listing with filters.
//   - GET    /{id}   : Public single tour.
//   - POST   /       : Creates a tour (admin, lead-guide).
//   - PATCH  /{id}   : Updates a tour (admin, lead-guide).
//   - DELETE /{id}   : Deletes a tour (admin, lead-guide).
func (handler *Handler) Routes(softAuth, protect, restrictManagers func(http.Handler) http.Handler) chi.Router {
	router := chi.NewRouter()

	router.With(softAuth).Get("/", handler.listTours)
	router.With(softAuth).Get("/{id}", handler.getTour)

	router.Group(func(r chi.Router) {
		r.Use(protect, restrictManagers)
		r.Post("/", handler.createTour)
		r.Patch("/{id}", handler.updateTour)
		r.Delete("/{id}", handler.deleteTour)
	})

	return router
}

// # Request Payloads

type startDatePayload struct {
	ID              string    `json:"id"`
	Date            time.Time `json:"date"`
	MaxParticipants int       `json:"max_participants"`
}

type tourPayload struct {
	Name         string             `json:"name"`
	Duration     int                `json:"duration"`
	MaxGroupSize int                `json:"max_group_size"`
	Difficulty   string             `json:"difficulty"`
	Price        float64            `json:"price"`
	Summary      string             `json:"summary"`
	Description  string             `json:"description"`
	ImageCover   string             `json:"image_cover"`
	Images       []string           `json:"images"`
	StartDates   []startDatePayload `json:"start_dates"`
	SecretTour   bool               `json:"secret_tour"`
}

// toTour maps the payload onto a domain entity; defaults are left to the service.
func (payload tourPayload) toTour(id string) *Tour {
	tour := &Tour{
		ID:           id,
		Name:         payload.Name,
		Duration:     payload.Duration,
		MaxGroupSize: payload.MaxGroupSize,
		Difficulty:   payload.Difficulty,
		Price:        payload.Price,
		Summary:      payload.Summary,
		Description:  payload.Description,
		ImageCover:   payload.ImageCover,
		Images:       payload.Images,
		SecretTour:   payload.SecretTour,
	}
	for _, startDate := range payload.StartDates {
		tour.StartDates = append(tour.StartDates, StartDate{
			ID:              startDate.ID,
			Date:            startDate.Date,
			MaxParticipants: startDate.MaxParticipants,
		})
	}
	return tour
}

// # Catalogue Endpoints

/*
ListTours returns the visible catalogue.

GET /api/v1/tours?difficulty=easy&price[lte]=1000&sort=-ratingsAverage

Response:
  - 200: []Tour: Matching tours
*/
func (handler *Handler) listTours(writer http.ResponseWriter, request *http.Request) {
	builder := query.NewBuilder(request.URL.Query(), TourQueryColumns, "-createdAt").
		Filter().
		Sort().
		Paginate()

	tours, err := handler.tourService.ListTours(request.Context(), builder)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.List(writer, map[string]any{"tours": tours}, len(tours))
}

/*
GetTour returns a single tour with its start dates.

GET /api/v1/tours/{id}

Response:
  - 200: Tour: The tour
  - 404: ErrNotFound: Unknown tour
*/
func (handler *Handler) getTour(writer http.ResponseWriter, request *http.Request) {
	id := requestutil.Param(request, "id")

	validator := &validate.Validator{}
	validator.UUID("id", id)
	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	tour, err := handler.tourService.GetTour(request.Context(), id)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]any{"tour": tour})
}

/*
CreateTour adds a tour to the catalogue.

POST /api/v1/tours

Request:
  - Body: tourPayload

Response:
  - 201: Tour: The created tour
  - 400: ErrInvalidJSON: Validation failure or duplicate name
  - 403: ErrForbidden: Caller is not a manager
*/
func (handler *Handler) createTour(writer http.ResponseWriter, request *http.Request) {
	var payload tourPayload
	if err := requestutil.DecodeJSON(request, &payload); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	tour := payload.toTour("")
	if err := handler.tourService.CreateTour(request.Context(), tour); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Created(writer, map[string]any{"tour": tour})
}

/*
UpdateTour overwrites a tour's descriptive fields.

PATCH /api/v1/tours/{id}

Request:
  - Body: tourPayload

Response:
  - 200: Tour: The updated tour
  - 404: ErrNotFound: Unknown tour
*/
func (handler *Handler) updateTour(writer http.ResponseWriter, request *http.Request) {
	id := requestutil.Param(request, "id")

	validator := &validate.Validator{}
	validator.UUID("id", id)
	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	var payload tourPayload
	if err := requestutil.DecodeJSON(request, &payload); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	tour := payload.toTour(id)
	if err := handler.tourService.UpdateTour(request.Context(), tour); err != nil {
		respond.Error(writer, request, err)
		return
	}

	// Re-read so the response carries the reconciled participant counters
	updated, err := handler.tourService.GetTour(request.Context(), id)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]any{"tour": updated})
}

/*
DeleteTour removes a tour and everything that hangs off it.

DELETE /api/v1/tours/{id}

Response:
  - 204: No Content: Deleted
  - 404: ErrNotFound: Unknown tour
*/
func (handler *Handler) deleteTour(writer http.ResponseWriter, request *http.Request) {
	id := requestutil.Param(request, "id")

	validator := &validate.Validator{}
	validator.UUID("id", id)
	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.tourService.DeleteTour(request.Context(), id); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.NoContent(writer)
}
