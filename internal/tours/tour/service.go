// Copyright (c) 2026 Natours. All rights reserved.
// Author: marcin.karbowniczyn@gmail.com

package tour

import (
	"context"
	"log/slog"
	"time"

	"github.com/marcin-karbowniczyn/natours/internal/platform/validate"
	"github.com/marcin-karbowniczyn/natours/pkg/query"
	"github.com/marcin-karbowniczyn/natours/pkg/slug"
	"github.com/marcin-karbowniczyn/natours/pkg/uuid"
)

// # Service Layer

// Service orchestrates the business logic for the tour catalogue.
type Service struct {
	tourRepository TourRepository
	logger         *slog.Logger
}

// NewService constructs a new [Service] with its required repository.
func NewService(tourRepository TourRepository, logger *slog.Logger) *Service {
	return &Service{
		tourRepository: tourRepository,
		logger:         logger,
	}
}

// # Catalogue Operations

/*
ListTours retrieves the visible catalogue for the prepared query.

Description: Secret tours are excluded at the storage layer; callers never
see them regardless of filters.

Parameters:
  - context: context.Context
  - builder: *query.Builder (Filter, sort and pagination, already prepared)

Returns:
  - []Tour: Matching tours, newest first unless the query sorts otherwise
  - error: Storage or execution errors
*/
func (service *Service) ListTours(context context.Context, builder *query.Builder) ([]Tour, error) {
	return service.tourRepository.FindAll(context, builder)
}

/*
GetTour retrieves a single tour with its start dates.

Parameters:
  - context: context.Context
  - id: string (UUID)

Returns:
  - *Tour: The hydrated tour
  - error: ErrNotFound if not found
*/
func (service *Service) GetTour(context context.Context, id string) (*Tour, error) {
	return service.tourRepository.FindByID(context, id)
}

/*
CreateTour validates and persists a new tour.

Description: Assigns the identity, derives the slug from the name, seeds the
derived rating fields and defaults each start date's capacity. Tour names
are unique; a collision surfaces as a duplicate-key error.

Parameters:
  - context: context.Context
  - tour: *Tour (Descriptive fields filled in by the caller)

Returns:
  - error: Validation or persistence errors
*/
func (service *Service) CreateTour(context context.Context, tour *Tour) error {

	// Identity & derived field seeding
	if tour.ID == "" {
		tour.ID = uuid.New()
	}
	tour.Slug = slug.From(tour.Name)
	tour.RatingsAverage = DefaultRatingsAverage
	tour.RatingsQuantity = 0

	prepareStartDates(tour)

	if err := validateTour(tour); err != nil {
		return err
	}

	if err := service.tourRepository.Create(context, tour); err != nil {
		return err
	}

	service.logger.Info("tour_created",
		slog.String("tour_id", tour.ID),
		slog.String("slug", tour.Slug),
		slog.Float64("price", tour.Price),
	)

	return nil
}

/*
UpdateTour overwrites a tour's descriptive fields.

Description: The slug follows the name. Start dates are replaced as a set;
departures that already carry participants keep their counters, matched by
ID. The derived rating fields are left untouched.

Parameters:
  - context: context.Context
  - tour: *Tour (Must carry the ID of an existing tour)

Returns:
  - error: Validation errors, ErrNotFound, or persistence errors
*/
func (service *Service) UpdateTour(context context.Context, tour *Tour) error {
	tour.Slug = slug.From(tour.Name)

	prepareStartDates(tour)

	if err := validateTour(tour); err != nil {
		return err
	}

	if err := service.tourRepository.Update(context, tour); err != nil {
		return err
	}

	service.logger.Info("tour_updated", slog.String("tour_id", tour.ID))

	return nil
}

/*
DeleteTour removes a tour from the catalogue.

Parameters:
  - context: context.Context
  - id: string (UUID)

Returns:
  - error: ErrNotFound if the tour does not exist
*/
func (service *Service) DeleteTour(context context.Context, id string) error {
	if err := service.tourRepository.Delete(context, id); err != nil {
		return err
	}

	service.logger.Warn("tour_deleted", slog.String("tour_id", id))

	return nil
}

// # Internal Helpers

// prepareStartDates assigns identities and capacity defaults to departures.
func prepareStartDates(tour *Tour) {
	for i := range tour.StartDates {
		startDate := &tour.StartDates[i]
		if startDate.ID == "" {
			startDate.ID = uuid.New()
		}
		startDate.TourID = tour.ID
		if startDate.MaxParticipants <= 0 {
			startDate.MaxParticipants = DefaultMaxParticipants
		}
	}
}

// validateTour applies the business attribute checks shared by create and update.
func validateTour(tour *Tour) error {
	validator := &validate.Validator{}
	validator.Required(FieldName, tour.Name).MaxLen(FieldName, tour.Name, 40).MinLen(FieldName, tour.Name, 10)
	validator.Required(FieldSummary, tour.Summary)
	validator.OneOf(FieldDifficulty, tour.Difficulty, Difficulties...)
	validator.Custom(FieldDuration, tour.Duration <= 0, "A tour must have a duration")
	validator.Custom(FieldMaxGroupSize, tour.MaxGroupSize <= 0, "A tour must have a group size")
	validator.Positive(FieldPrice, tour.Price)

	for _, startDate := range tour.StartDates {
		if startDate.Date.IsZero() || startDate.Date.Before(time.Unix(0, 0)) {
			validator.Custom(FieldStartDates, true, "A start date must have a valid date")
			break
		}
	}

	return validator.Err()
}
