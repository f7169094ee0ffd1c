// Copyright (c) 2026 Natours. All rights reserved.
// Author: marcin.karbowniczyn@gmail.com

/*
Package booking sells spots on tour departures.

Capacity is the invariant here: a booking only ever comes into existence
after the departure's participant counter was atomically incremented, so a
departure can never be oversold no matter how many requests race for the
last spot. Both entry points (the authenticated API and the payment webhook)
funnel through the same capacity-checked path.
*/
package booking

import (
	"context"
	"time"

	"github.com/marcin-karbowniczyn/natours/internal/tours/tour"
	"github.com/marcin-karbowniczyn/natours/internal/users/auth"
)

// # Domain Entities

// Booking records a traveller's paid (or admin-granted) spot on a departure.
type Booking struct {
	ID          string    `json:"id"`
	TourID      string    `json:"tour_id"`
	UserID      string    `json:"user_id"`
	StartDateID string    `json:"start_date_id"`
	Price       float64   `json:"price"`
	Paid        bool      `json:"paid"`
	CreatedAt   time.Time `json:"created_at"`
}

// # Checkout Types

// CheckoutInput carries everything the payment provider needs to build a
// hosted checkout page for one spot.
type CheckoutInput struct {
	TourID        string
	StartDateID   string
	TourName      string
	TourSummary   string
	ImageURL      string
	Price         float64
	CustomerEmail string
	SuccessURL    string
	CancelURL     string
}

// CheckoutSession is the provider's answer: where to send the traveller.
type CheckoutSession struct {
	ID  string
	URL string
}

// CheckoutCompleted is the provider-agnostic projection of a finished
// payment, extracted from a verified webhook event.
type CheckoutCompleted struct {
	TourID        string
	StartDateID   string
	CustomerEmail string
	AmountTotal   float64
}

// # Repository & Collaborator Contracts

// BookingRepository abstracts booking persistence.
type BookingRepository interface {

	// Create persists a booking.
	Create(ctx context.Context, booking *Booking) error

	// FindByID returns a booking or ErrNotFound.
	FindByID(ctx context.Context, id string) (*Booking, error)

	// ListByUser returns a traveller's bookings, newest first.
	ListByUser(ctx context.Context, userID string) ([]Booking, error)

	// HasBooked reports whether the user holds any booking of the tour.
	HasBooked(ctx context.Context, userID, tourID string) (bool, error)
}

// TourCatalog is the slice of the tour repository this package consumes.
//
// Satisfied by tour.TourRepository.
type TourCatalog interface {
	FindByID(ctx context.Context, id string) (*tour.Tour, error)
	FindStartDate(ctx context.Context, startDateID string) (*tour.StartDate, error)

	// ReserveSpot atomically claims one slot; CapacityExceeded when full.
	ReserveSpot(ctx context.Context, startDateID string) error
}

// CheckoutProvider is the payment collaborator.
//
// CreateSession builds a hosted payment page; ParseCompletedCheckout
// verifies a webhook payload's signature and extracts the purchase, or
// returns (nil, nil) for event types this package does not act on.
type CheckoutProvider interface {
	CreateSession(ctx context.Context, input CheckoutInput) (*CheckoutSession, error)
	ParseCompletedCheckout(payload []byte, signature string) (*CheckoutCompleted, error)
}

// PurchaserResolver maps a checkout's email back to an account.
//
// Satisfied by the auth user repository.
type PurchaserResolver interface {
	FindByEmail(ctx context.Context, email string) (*auth.User, error)
}
