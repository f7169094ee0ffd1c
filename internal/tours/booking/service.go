// Copyright (c) 2026 Natours. All rights reserved.
// Author: marcin.karbowniczyn@gmail.com

package booking

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/marcin-karbowniczyn/natours/internal/platform/apperr"
	"github.com/marcin-karbowniczyn/natours/pkg/uuid"
)

// # Service Layer

// Service orchestrates booking creation, checkout and webhook fulfilment.
type Service struct {
	bookingRepository BookingRepository
	catalog           TourCatalog
	checkout          CheckoutProvider
	purchasers        PurchaserResolver
	publicBaseURL     string
	logger            *slog.Logger
}

// NewService constructs a new [Service] with its required collaborators.
func NewService(
	bookingRepository BookingRepository,
	catalog TourCatalog,
	checkout CheckoutProvider,
	purchasers PurchaserResolver,
	publicBaseURL string,
	logger *slog.Logger,
) *Service {
	return &Service{
		bookingRepository: bookingRepository,
		catalog:           catalog,
		checkout:          checkout,
		purchasers:        purchasers,
		publicBaseURL:     publicBaseURL,
		logger:            logger,
	}
}

// # Booking Operations

/*
CreateBooking claims a spot on a departure and records the booking.

Description: The departure is resolved and checked against the tour, then
the spot is reserved through the atomic conditional increment BEFORE the
booking row is written. When two requests race for the last spot, exactly
one reservation succeeds; the loser never produces a booking.

Parameters:
  - context: context.Context
  - userID: string (The traveller)
  - tourID: string (UUID)
  - startDateID: string (UUID, must belong to the tour)
  - paid: bool (Webhook fulfilment passes true; admin grants choose)

Returns:
  - *Booking: The recorded booking
  - error: ErrNotFound, CapacityExceeded when the departure is full
*/
func (service *Service) CreateBooking(context context.Context, userID, tourID, startDateID string, paid bool) (*Booking, error) {
	bookedTour, err := service.catalog.FindByID(context, tourID)
	if err != nil {
		return nil, err
	}

	startDate, err := service.catalog.FindStartDate(context, startDateID)
	if err != nil {
		return nil, err
	}
	if startDate.TourID != bookedTour.ID {
		return nil, apperr.ValidationError("This start date does not belong to the requested tour")
	}

	// Capacity first: no booking exists unless the spot was claimed
	if err := service.catalog.ReserveSpot(context, startDateID); err != nil {
		return nil, err
	}

	booking := &Booking{
		ID:          uuid.New(),
		TourID:      bookedTour.ID,
		UserID:      userID,
		StartDateID: startDateID,
		Price:       bookedTour.Price,
		Paid:        paid,
	}

	if err := service.bookingRepository.Create(context, booking); err != nil {
		return nil, err
	}

	service.logger.Info("booking_created",
		slog.String("booking_id", booking.ID),
		slog.String("tour_id", booking.TourID),
		slog.String("user_id", booking.UserID),
		slog.Bool("paid", booking.Paid),
	)

	return booking, nil
}

/*
ListMyBookings returns the caller's bookings, newest first.
*/
func (service *Service) ListMyBookings(context context.Context, userID string) ([]Booking, error) {
	return service.bookingRepository.ListByUser(context, userID)
}

/*
HasBooked reports whether the user holds any booking of the tour.
*/
func (service *Service) HasBooked(context context.Context, userID, tourID string) (bool, error) {
	return service.bookingRepository.HasBooked(context, userID, tourID)
}

// # Checkout & Fulfilment

/*
CreateCheckoutSession builds a hosted payment page for one spot.

Description: The session carries the tour ID as the client reference and the
start date in metadata; fulfilment reads both back from the completed event.
A departure that is already sold out is rejected before the traveller is
sent off to pay.

Parameters:
  - context: context.Context
  - userEmail: string (Pre-fills the payment page)
  - tourID: string (UUID)
  - startDateID: string (UUID)

Returns:
  - *CheckoutSession: ID and redirect URL of the payment page
  - error: ErrNotFound, CapacityExceeded, or provider errors
*/
func (service *Service) CreateCheckoutSession(context context.Context, userEmail, tourID, startDateID string) (*CheckoutSession, error) {
	bookedTour, err := service.catalog.FindByID(context, tourID)
	if err != nil {
		return nil, err
	}

	startDate, err := service.catalog.FindStartDate(context, startDateID)
	if err != nil {
		return nil, err
	}
	if startDate.TourID != bookedTour.ID {
		return nil, apperr.ValidationError("This start date does not belong to the requested tour")
	}
	if startDate.SoldOut() {
		return nil, apperr.CapacityExceeded("This tour date is fully booked")
	}

	session, err := service.checkout.CreateSession(context, CheckoutInput{
		TourID:        bookedTour.ID,
		StartDateID:   startDate.ID,
		TourName:      bookedTour.Name,
		TourSummary:   bookedTour.Summary,
		ImageURL:      bookedTour.ImageCover,
		Price:         bookedTour.Price,
		CustomerEmail: userEmail,
		SuccessURL:    fmt.Sprintf("%s/my-bookings?alert=booking", service.publicBaseURL),
		CancelURL:     fmt.Sprintf("%s/tours/%s", service.publicBaseURL, bookedTour.Slug),
	})
	if err != nil {
		return nil, apperr.Recoverable("Could not create a checkout session. Please try again later.", err)
	}

	service.logger.Info("checkout_session_created",
		slog.String("session_id", session.ID),
		slog.String("tour_id", tourID),
	)

	return session, nil
}

/*
FulfilCheckout turns a verified completed checkout into a booking.

Description: Runs through the same capacity-checked path as the API.
Reaching a full departure here means the spot was sold while the traveller
was paying; the error propagates so the provider retries and the failure is
visible for manual refunding.

Parameters:
  - context: context.Context
  - payload: []byte (Raw webhook body, unparsed)
  - signature: string (Provider signature header)

Returns:
  - error: Signature failures, unknown purchaser, or booking errors
*/
func (service *Service) FulfilCheckout(context context.Context, payload []byte, signature string) error {
	completed, err := service.checkout.ParseCompletedCheckout(payload, signature)
	if err != nil {
		return err
	}
	if completed == nil {
		// An event type this service does not act on
		return nil
	}

	purchaser, err := service.purchasers.FindByEmail(context, completed.CustomerEmail)
	if err != nil {
		return err
	}

	_, err = service.CreateBooking(context, purchaser.ID, completed.TourID, completed.StartDateID, true)
	if err != nil {
		return err
	}

	service.logger.Info("checkout_fulfilled",
		slog.String("tour_id", completed.TourID),
		slog.String("user_id", purchaser.ID),
	)

	return nil
}
