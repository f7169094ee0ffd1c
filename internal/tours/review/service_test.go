// Copyright (c) 2026 Natours. All rights reserved.
// Author: marcin.karbowniczyn@gmail.com

package review

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marcin-karbowniczyn/natours/internal/platform/apperr"
	"github.com/marcin-karbowniczyn/natours/internal/platform/sec"
	"github.com/marcin-karbowniczyn/natours/internal/tours/tour"
)

// # Test Fakes

type fakeReviewRepository struct {
	reviews map[string]*Review
}

func newFakeReviewRepository() *fakeReviewRepository {
	return &fakeReviewRepository{reviews: make(map[string]*Review)}
}

func (repository *fakeReviewRepository) Create(_ context.Context, review *Review) error {
	for _, existing := range repository.reviews {
		if existing.TourID == review.TourID && existing.UserID == review.UserID {
			return apperr.DuplicateKey("review")
		}
	}
	clone := *review
	repository.reviews[review.ID] = &clone
	return nil
}

func (repository *fakeReviewRepository) FindByID(_ context.Context, id string) (*Review, error) {
	review, ok := repository.reviews[id]
	if !ok {
		return nil, apperr.NotFound("review")
	}
	clone := *review
	return &clone, nil
}

func (repository *fakeReviewRepository) ListByTour(_ context.Context, tourID string) ([]Review, error) {
	var reviews []Review
	for _, review := range repository.reviews {
		if review.TourID == tourID {
			reviews = append(reviews, *review)
		}
	}
	return reviews, nil
}

func (repository *fakeReviewRepository) Update(_ context.Context, review *Review) error {
	stored, ok := repository.reviews[review.ID]
	if !ok {
		return apperr.NotFound("review")
	}
	stored.Rating = review.Rating
	stored.Text = review.Text
	return nil
}

func (repository *fakeReviewRepository) Delete(_ context.Context, id string) error {
	if _, ok := repository.reviews[id]; !ok {
		return apperr.NotFound("review")
	}
	delete(repository.reviews, id)
	return nil
}

// fakeRollup rebuilds the aggregate from the fake repository the way the
// SQL recompute does: full set, rounded average, defaults when empty.
type fakeRollup struct {
	repository *fakeReviewRepository
	averages   map[string]float64
	quantities map[string]int
}

func newFakeRollup(repository *fakeReviewRepository) *fakeRollup {
	return &fakeRollup{
		repository: repository,
		averages:   make(map[string]float64),
		quantities: make(map[string]int),
	}
}

func (rollup *fakeRollup) RecomputeRatings(_ context.Context, tourID string) error {
	var sum, count int
	for _, review := range rollup.repository.reviews {
		if review.TourID == tourID {
			sum += review.Rating
			count++
		}
	}
	if count == 0 {
		rollup.averages[tourID] = tour.DefaultRatingsAverage
		rollup.quantities[tourID] = 0
		return nil
	}
	rollup.averages[tourID] = tour.RoundRating(float64(sum) / float64(count))
	rollup.quantities[tourID] = count
	return nil
}

type fakeBookings struct {
	booked map[string]bool
}

func (bookings *fakeBookings) HasBooked(_ context.Context, userID, tourID string) (bool, error) {
	return bookings.booked[userID+"|"+tourID], nil
}

// # Fixtures

type reviewFixture struct {
	service    *Service
	repository *fakeReviewRepository
	rollup     *fakeRollup
	bookings   *fakeBookings
}

func newReviewFixture(t *testing.T) *reviewFixture {
	t.Helper()
	repository := newFakeReviewRepository()
	rollup := newFakeRollup(repository)
	bookings := &fakeBookings{booked: make(map[string]bool)}
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))

	return &reviewFixture{
		service:    NewService(repository, rollup, bookings, logger),
		repository: repository,
		rollup:     rollup,
		bookings:   bookings,
	}
}

func (fixture *reviewFixture) book(userID, tourID string) {
	fixture.bookings.booked[userID+"|"+tourID] = true
}

func (fixture *reviewFixture) create(t *testing.T, userID, tourID string, rating int) *Review {
	t.Helper()
	review := &Review{TourID: tourID, UserID: userID, Rating: rating, Text: "A solid experience all around"}
	require.NoError(t, fixture.service.CreateReview(context.Background(), review))
	return review
}

func traveller(id string) *sec.Principal {
	return &sec.Principal{ID: id, Role: sec.RoleUser}
}

// # Tests

func TestCreateReview_RequiresBooking(t *testing.T) {
	fixture := newReviewFixture(t)

	review := &Review{TourID: "tour-1", UserID: "user-1", Rating: 5, Text: "Never actually went"}
	err := fixture.service.CreateReview(context.Background(), review)

	require.Error(t, err)
	assert.Equal(t, apperr.CodeForbidden, apperr.As(err).Code)
}

func TestCreateReview_RejectsSecondReviewForSameTour(t *testing.T) {
	fixture := newReviewFixture(t)
	fixture.book("user-1", "tour-1")
	fixture.create(t, "user-1", "tour-1", 4)

	err := fixture.service.CreateReview(context.Background(),
		&Review{TourID: "tour-1", UserID: "user-1", Rating: 5, Text: "Changed my mind, it was great"})

	require.Error(t, err)
	assert.Equal(t, apperr.CodeDuplicateKey, apperr.As(err).Code)
}

func TestCreateReview_RollsUpTourRatings(t *testing.T) {
	fixture := newReviewFixture(t)
	fixture.book("user-1", "tour-1")
	fixture.book("user-2", "tour-1")

	fixture.create(t, "user-1", "tour-1", 3)
	fixture.create(t, "user-2", "tour-1", 5)

	assert.Equal(t, 4.0, fixture.rollup.averages["tour-1"])
	assert.Equal(t, 2, fixture.rollup.quantities["tour-1"])
}

func TestDeleteReview_LastReviewResetsDefaults(t *testing.T) {
	fixture := newReviewFixture(t)
	fixture.book("user-1", "tour-1")
	review := fixture.create(t, "user-1", "tour-1", 2)

	require.NoError(t, fixture.service.DeleteReview(context.Background(), traveller("user-1"), review.ID))

	assert.Equal(t, 4.5, fixture.rollup.averages["tour-1"])
	assert.Zero(t, fixture.rollup.quantities["tour-1"])
}

func TestUpdateReview_OnlyAuthorOrAdmin(t *testing.T) {
	fixture := newReviewFixture(t)
	fixture.book("user-1", "tour-1")
	review := fixture.create(t, "user-1", "tour-1", 4)

	_, err := fixture.service.UpdateReview(context.Background(), traveller("user-2"), review.ID, 1, "Sabotage attempt")
	require.Error(t, err)
	assert.Equal(t, apperr.CodeForbidden, apperr.As(err).Code)

	admin := &sec.Principal{ID: "admin-1", Role: sec.RoleAdmin}
	updated, err := fixture.service.UpdateReview(context.Background(), admin, review.ID, 1, "Moderated for policy violations")
	require.NoError(t, err)
	assert.Equal(t, 1, updated.Rating)
	assert.Equal(t, 1.0, fixture.rollup.averages["tour-1"])
}

func TestUpdateReview_RejectsOutOfRangeRating(t *testing.T) {
	fixture := newReviewFixture(t)
	fixture.book("user-1", "tour-1")
	review := fixture.create(t, "user-1", "tour-1", 4)

	_, err := fixture.service.UpdateReview(context.Background(), traveller("user-1"), review.ID, 6, "Off the charts")
	require.Error(t, err)
	assert.Equal(t, apperr.CodeValidation, apperr.As(err).Code)
}
