// Copyright (c) 2026 Natours. All rights reserved.
// Author: marcin.karbowniczyn@gmail.com

package booking

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marcin-karbowniczyn/natours/internal/platform/apperr"
	"github.com/marcin-karbowniczyn/natours/internal/tours/tour"
	"github.com/marcin-karbowniczyn/natours/internal/users/auth"
)

// # Test Fakes

type fakeBookingRepository struct {
	mu       sync.Mutex
	bookings map[string]*Booking
}

func newFakeBookingRepository() *fakeBookingRepository {
	return &fakeBookingRepository{bookings: make(map[string]*Booking)}
}

func (repository *fakeBookingRepository) Create(_ context.Context, booking *Booking) error {
	repository.mu.Lock()
	defer repository.mu.Unlock()
	clone := *booking
	repository.bookings[booking.ID] = &clone
	return nil
}

func (repository *fakeBookingRepository) FindByID(_ context.Context, id string) (*Booking, error) {
	repository.mu.Lock()
	defer repository.mu.Unlock()
	booking, ok := repository.bookings[id]
	if !ok {
		return nil, apperr.NotFound("booking")
	}
	clone := *booking
	return &clone, nil
}

func (repository *fakeBookingRepository) ListByUser(_ context.Context, userID string) ([]Booking, error) {
	repository.mu.Lock()
	defer repository.mu.Unlock()
	var bookings []Booking
	for _, booking := range repository.bookings {
		if booking.UserID == userID {
			bookings = append(bookings, *booking)
		}
	}
	return bookings, nil
}

func (repository *fakeBookingRepository) HasBooked(_ context.Context, userID, tourID string) (bool, error) {
	repository.mu.Lock()
	defer repository.mu.Unlock()
	for _, booking := range repository.bookings {
		if booking.UserID == userID && booking.TourID == tourID {
			return true, nil
		}
	}
	return false, nil
}

func (repository *fakeBookingRepository) count() int {
	repository.mu.Lock()
	defer repository.mu.Unlock()
	return len(repository.bookings)
}

// fakeCatalog mirrors the conditional-increment semantics of the SQL store:
// the check and the claim happen under one lock.
type fakeCatalog struct {
	mu         sync.Mutex
	tours      map[string]*tour.Tour
	startDates map[string]*tour.StartDate
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{
		tours:      make(map[string]*tour.Tour),
		startDates: make(map[string]*tour.StartDate),
	}
}

func (catalog *fakeCatalog) FindByID(_ context.Context, id string) (*tour.Tour, error) {
	catalog.mu.Lock()
	defer catalog.mu.Unlock()
	stored, ok := catalog.tours[id]
	if !ok {
		return nil, apperr.NotFound("tour")
	}
	clone := *stored
	return &clone, nil
}

func (catalog *fakeCatalog) FindStartDate(_ context.Context, startDateID string) (*tour.StartDate, error) {
	catalog.mu.Lock()
	defer catalog.mu.Unlock()
	stored, ok := catalog.startDates[startDateID]
	if !ok {
		return nil, apperr.NotFound("tour start date")
	}
	clone := *stored
	return &clone, nil
}

func (catalog *fakeCatalog) ReserveSpot(_ context.Context, startDateID string) error {
	catalog.mu.Lock()
	defer catalog.mu.Unlock()
	startDate, ok := catalog.startDates[startDateID]
	if !ok {
		return apperr.NotFound("tour start date")
	}
	if startDate.Participants >= startDate.MaxParticipants {
		return apperr.CapacityExceeded("This tour date is fully booked")
	}
	startDate.Participants++
	return nil
}

type fakeCheckout struct {
	lastInput CheckoutInput
	completed *CheckoutCompleted
}

func (checkout *fakeCheckout) CreateSession(_ context.Context, input CheckoutInput) (*CheckoutSession, error) {
	checkout.lastInput = input
	return &CheckoutSession{ID: "cs_test", URL: "https://checkout.test/cs_test"}, nil
}

func (checkout *fakeCheckout) ParseCompletedCheckout(_ []byte, _ string) (*CheckoutCompleted, error) {
	return checkout.completed, nil
}

type fakePurchasers struct {
	byEmail map[string]*auth.User
}

func (purchasers *fakePurchasers) FindByEmail(_ context.Context, email string) (*auth.User, error) {
	user, ok := purchasers.byEmail[email]
	if !ok {
		return nil, apperr.NotFound("user with this email address")
	}
	return user, nil
}

// # Fixtures

type bookingFixture struct {
	service    *Service
	repository *fakeBookingRepository
	catalog    *fakeCatalog
	checkout   *fakeCheckout
	purchasers *fakePurchasers
}

func newBookingFixture(t *testing.T) *bookingFixture {
	t.Helper()
	repository := newFakeBookingRepository()
	catalog := newFakeCatalog()
	checkout := &fakeCheckout{}
	purchasers := &fakePurchasers{byEmail: make(map[string]*auth.User)}
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))

	return &bookingFixture{
		service:    NewService(repository, catalog, checkout, purchasers, "https://natours.test", logger),
		repository: repository,
		catalog:    catalog,
		checkout:   checkout,
		purchasers: purchasers,
	}
}

// seedTour registers a tour with one departure and returns both IDs.
func (fixture *bookingFixture) seedTour(capacity int) (tourID, startDateID string) {
	tourID, startDateID = "11111111-1111-1111-1111-111111111111", "22222222-2222-2222-2222-222222222222"
	fixture.catalog.tours[tourID] = &tour.Tour{
		ID:      tourID,
		Name:    "The Sea Explorer",
		Slug:    "the-sea-explorer",
		Summary: "Exploring the jaw-dropping US east coast by foot and by boat",
		Price:   497,
	}
	fixture.catalog.startDates[startDateID] = &tour.StartDate{
		ID:              startDateID,
		TourID:          tourID,
		MaxParticipants: capacity,
	}
	return tourID, startDateID
}

// # Tests

func TestCreateBooking_ClaimsSpotAndCopiesPrice(t *testing.T) {
	fixture := newBookingFixture(t)
	tourID, startDateID := fixture.seedTour(12)

	booking, err := fixture.service.CreateBooking(context.Background(), "user-1", tourID, startDateID, true)
	require.NoError(t, err)

	assert.Equal(t, 497.0, booking.Price)
	assert.True(t, booking.Paid)
	assert.Equal(t, 1, fixture.catalog.startDates[startDateID].Participants)

	booked, err := fixture.service.HasBooked(context.Background(), "user-1", tourID)
	require.NoError(t, err)
	assert.True(t, booked)
}

func TestCreateBooking_FullDepartureLeavesNoBooking(t *testing.T) {
	fixture := newBookingFixture(t)
	tourID, startDateID := fixture.seedTour(1)

	_, err := fixture.service.CreateBooking(context.Background(), "user-1", tourID, startDateID, true)
	require.NoError(t, err)

	_, err = fixture.service.CreateBooking(context.Background(), "user-2", tourID, startDateID, true)
	require.Error(t, err)
	assert.Equal(t, apperr.CodeCapacityExceeded, apperr.As(err).Code)
	assert.Equal(t, 1, fixture.repository.count())
}

func TestCreateBooking_ConcurrentLastSlotHasOneWinner(t *testing.T) {
	fixture := newBookingFixture(t)
	tourID, startDateID := fixture.seedTour(1)

	results := make(chan error, 2)
	for i := 0; i < 2; i++ {
		user := []string{"user-1", "user-2"}[i]
		go func() {
			_, err := fixture.service.CreateBooking(context.Background(), user, tourID, startDateID, true)
			results <- err
		}()
	}

	var failures int
	for i := 0; i < 2; i++ {
		if err := <-results; err != nil {
			assert.Equal(t, apperr.CodeCapacityExceeded, apperr.As(err).Code)
			failures++
		}
	}

	assert.Equal(t, 1, failures)
	assert.Equal(t, 1, fixture.repository.count())
	assert.Equal(t, 1, fixture.catalog.startDates[startDateID].Participants)
}

func TestCreateBooking_RejectsForeignStartDate(t *testing.T) {
	fixture := newBookingFixture(t)
	tourID, _ := fixture.seedTour(12)

	otherStartDateID := "33333333-3333-3333-3333-333333333333"
	fixture.catalog.startDates[otherStartDateID] = &tour.StartDate{
		ID:              otherStartDateID,
		TourID:          "99999999-9999-9999-9999-999999999999",
		MaxParticipants: 12,
	}

	_, err := fixture.service.CreateBooking(context.Background(), "user-1", tourID, otherStartDateID, true)
	require.Error(t, err)
	assert.Equal(t, apperr.CodeValidation, apperr.As(err).Code)
}

func TestCreateCheckoutSession_CarriesReferenceAndMetadata(t *testing.T) {
	fixture := newBookingFixture(t)
	tourID, startDateID := fixture.seedTour(12)

	session, err := fixture.service.CreateCheckoutSession(context.Background(), "leo@example.com", tourID, startDateID)
	require.NoError(t, err)

	assert.Equal(t, "cs_test", session.ID)
	assert.Equal(t, tourID, fixture.checkout.lastInput.TourID)
	assert.Equal(t, startDateID, fixture.checkout.lastInput.StartDateID)
	assert.Equal(t, "leo@example.com", fixture.checkout.lastInput.CustomerEmail)
	assert.Contains(t, fixture.checkout.lastInput.CancelURL, "the-sea-explorer")
}

func TestCreateCheckoutSession_RejectsSoldOutDeparture(t *testing.T) {
	fixture := newBookingFixture(t)
	tourID, startDateID := fixture.seedTour(1)
	fixture.catalog.startDates[startDateID].Participants = 1

	_, err := fixture.service.CreateCheckoutSession(context.Background(), "leo@example.com", tourID, startDateID)
	require.Error(t, err)
	assert.Equal(t, apperr.CodeCapacityExceeded, apperr.As(err).Code)
}

func TestFulfilCheckout_CreatesPaidBooking(t *testing.T) {
	fixture := newBookingFixture(t)
	tourID, startDateID := fixture.seedTour(12)
	fixture.purchasers.byEmail["leo@example.com"] = &auth.User{ID: "user-1", Email: "leo@example.com"}
	fixture.checkout.completed = &CheckoutCompleted{
		TourID:        tourID,
		StartDateID:   startDateID,
		CustomerEmail: "leo@example.com",
		AmountTotal:   497,
	}

	require.NoError(t, fixture.service.FulfilCheckout(context.Background(), []byte("{}"), "sig"))

	bookings, err := fixture.service.ListMyBookings(context.Background(), "user-1")
	require.NoError(t, err)
	require.Len(t, bookings, 1)
	assert.True(t, bookings[0].Paid)
	assert.Equal(t, 1, fixture.catalog.startDates[startDateID].Participants)
}

func TestFulfilCheckout_IgnoresOtherEventTypes(t *testing.T) {
	fixture := newBookingFixture(t)
	fixture.seedTour(12)
	fixture.checkout.completed = nil

	require.NoError(t, fixture.service.FulfilCheckout(context.Background(), []byte("{}"), "sig"))
	assert.Zero(t, fixture.repository.count())
}
