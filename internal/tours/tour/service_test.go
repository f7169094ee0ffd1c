// Copyright (c) 2026 Natours. All rights reserved.
// Author: marcin.karbowniczyn@gmail.com

package tour

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marcin-karbowniczyn/natours/internal/platform/apperr"
	"github.com/marcin-karbowniczyn/natours/pkg/query"
)

// # Test Fakes

type fakeTourRepository struct {
	tours map[string]*Tour
}

func newFakeTourRepository() *fakeTourRepository {
	return &fakeTourRepository{tours: make(map[string]*Tour)}
}

func (repository *fakeTourRepository) Create(_ context.Context, tour *Tour) error {
	for _, existing := range repository.tours {
		if existing.Name == tour.Name {
			return apperr.DuplicateKey(tour.Name)
		}
	}
	clone := *tour
	repository.tours[tour.ID] = &clone
	return nil
}

func (repository *fakeTourRepository) FindByID(_ context.Context, id string) (*Tour, error) {
	tour, ok := repository.tours[id]
	if !ok {
		return nil, apperr.NotFound("tour")
	}
	clone := *tour
	return &clone, nil
}

func (repository *fakeTourRepository) FindAll(_ context.Context, _ *query.Builder) ([]Tour, error) {
	var tours []Tour
	for _, tour := range repository.tours {
		if !tour.SecretTour {
			tours = append(tours, *tour)
		}
	}
	return tours, nil
}

func (repository *fakeTourRepository) Update(_ context.Context, tour *Tour) error {
	stored, ok := repository.tours[tour.ID]
	if !ok {
		return apperr.NotFound("tour")
	}
	// Rating fields stay untouched, like the SQL statement
	ratingsAverage, ratingsQuantity := stored.RatingsAverage, stored.RatingsQuantity
	clone := *tour
	clone.RatingsAverage, clone.RatingsQuantity = ratingsAverage, ratingsQuantity
	repository.tours[tour.ID] = &clone
	return nil
}

func (repository *fakeTourRepository) Delete(_ context.Context, id string) error {
	if _, ok := repository.tours[id]; !ok {
		return apperr.NotFound("tour")
	}
	delete(repository.tours, id)
	return nil
}

func (repository *fakeTourRepository) FindStartDate(_ context.Context, startDateID string) (*StartDate, error) {
	for _, tour := range repository.tours {
		for _, startDate := range tour.StartDates {
			if startDate.ID == startDateID {
				return &startDate, nil
			}
		}
	}
	return nil, apperr.NotFound("tour start date")
}

func (repository *fakeTourRepository) ReserveSpot(_ context.Context, startDateID string) error {
	for _, tour := range repository.tours {
		for i := range tour.StartDates {
			if tour.StartDates[i].ID != startDateID {
				continue
			}
			if tour.StartDates[i].SoldOut() {
				return apperr.CapacityExceeded("This tour date is fully booked")
			}
			tour.StartDates[i].Participants++
			return nil
		}
	}
	return apperr.NotFound("tour start date")
}

func (repository *fakeTourRepository) RecomputeRatings(_ context.Context, _ string) error {
	return nil
}

// # Fixtures

func newTourService(t *testing.T) (*Service, *fakeTourRepository) {
	t.Helper()
	repository := newFakeTourRepository()
	return NewService(repository, slog.New(slog.NewJSONHandler(io.Discard, nil))), repository
}

func validTour() *Tour {
	return &Tour{
		Name:         "The Forest Hiker",
		Duration:     5,
		MaxGroupSize: 25,
		Difficulty:   "easy",
		Price:        397,
		Summary:      "Breathtaking hike through the Canadian Banff National Park",
		StartDates: []StartDate{
			{Date: time.Date(2026, 4, 25, 9, 0, 0, 0, time.UTC)},
		},
	}
}

// # Tests

func TestCreateTour_SeedsDerivedFields(t *testing.T) {
	service, repository := newTourService(t)

	tour := validTour()
	require.NoError(t, service.CreateTour(context.Background(), tour))

	stored := repository.tours[tour.ID]
	require.NotNil(t, stored)
	assert.Equal(t, "the-forest-hiker", stored.Slug)
	assert.Equal(t, DefaultRatingsAverage, stored.RatingsAverage)
	assert.Zero(t, stored.RatingsQuantity)

	require.Len(t, stored.StartDates, 1)
	assert.NotEmpty(t, stored.StartDates[0].ID)
	assert.Equal(t, tour.ID, stored.StartDates[0].TourID)
	assert.Equal(t, DefaultMaxParticipants, stored.StartDates[0].MaxParticipants)
	assert.Zero(t, stored.StartDates[0].Participants)
}

func TestCreateTour_RejectsUnknownDifficulty(t *testing.T) {
	service, _ := newTourService(t)

	tour := validTour()
	tour.Difficulty = "impossible"

	err := service.CreateTour(context.Background(), tour)
	require.Error(t, err)
	assert.Equal(t, apperr.CodeValidation, apperr.As(err).Code)
}

func TestCreateTour_RejectsDuplicateName(t *testing.T) {
	service, _ := newTourService(t)

	require.NoError(t, service.CreateTour(context.Background(), validTour()))

	err := service.CreateTour(context.Background(), validTour())
	require.Error(t, err)
	assert.Equal(t, apperr.CodeDuplicateKey, apperr.As(err).Code)
}

func TestUpdateTour_RefreshesSlugAndKeepsRatings(t *testing.T) {
	service, repository := newTourService(t)

	tour := validTour()
	require.NoError(t, service.CreateTour(context.Background(), tour))
	repository.tours[tour.ID].RatingsAverage = 4.8
	repository.tours[tour.ID].RatingsQuantity = 12

	tour.Name = "The Snow Adventurer"
	require.NoError(t, service.UpdateTour(context.Background(), tour))

	stored := repository.tours[tour.ID]
	assert.Equal(t, "the-snow-adventurer", stored.Slug)
	assert.Equal(t, 4.8, stored.RatingsAverage)
	assert.Equal(t, 12, stored.RatingsQuantity)
}

func TestReserveSpot_LastSlotWinsOnce(t *testing.T) {
	service, repository := newTourService(t)

	tour := validTour()
	tour.StartDates[0].MaxParticipants = 1
	require.NoError(t, service.CreateTour(context.Background(), tour))
	startDateID := repository.tours[tour.ID].StartDates[0].ID

	require.NoError(t, repository.ReserveSpot(context.Background(), startDateID))

	err := repository.ReserveSpot(context.Background(), startDateID)
	require.Error(t, err)
	assert.Equal(t, apperr.CodeCapacityExceeded, apperr.As(err).Code)
}

func TestRoundRating(t *testing.T) {
	assert.Equal(t, 4.7, RoundRating(4.66666))
	assert.Equal(t, 4.0, RoundRating(4.0))
	assert.Equal(t, 1.5, RoundRating(1.4500001))
}
