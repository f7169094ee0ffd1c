// Copyright (c) 2026 Natours. All rights reserved.
// Author: marcin.karbowniczyn@gmail.com

/*
Package review implements tour reviews and keeps the tours' rating aggregates
consistent with them.

Every write (create, update, delete) is followed by an explicit recompute of
the affected tour's ratingsAverage and ratingsQuantity. The recompute is a
full rebuild from the review set rather than an incremental adjustment, so
concurrent writers converge on the same values whatever order they land in.
*/
package review

import (
	"context"
	"time"
)

// # Field Names

const (
	FieldRating = "rating"
	FieldText   = "text"
)

// Text length bounds for a review body.
const (
	MinTextLength = 3
	MaxTextLength = 300
)

// # Domain Entities

// Review is a traveller's rating of a tour they booked.
//
// A user reviews a given tour at most once; the (tour, user) pair is unique.
type Review struct {
	ID        string    `json:"id"`
	TourID    string    `json:"tour_id"`
	UserID    string    `json:"user_id"`
	Rating    int       `json:"rating"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// # Repository & Collaborator Contracts

// ReviewRepository abstracts review persistence.
type ReviewRepository interface {

	// Create persists a review. A second review for the same (tour, user)
	// pair fails with DuplicateKey.
	Create(ctx context.Context, review *Review) error

	// FindByID returns a review or ErrNotFound.
	FindByID(ctx context.Context, id string) (*Review, error)

	// ListByTour returns a tour's reviews, newest first.
	ListByTour(ctx context.Context, tourID string) ([]Review, error)

	// Update overwrites the rating and text of an existing review.
	Update(ctx context.Context, review *Review) error

	// Delete removes a review.
	Delete(ctx context.Context, id string) error
}

// RatingRollup recomputes a tour's rating aggregate from its reviews.
//
// Satisfied by the tour repository; kept narrow so this package does not
// depend on the catalogue.
type RatingRollup interface {
	RecomputeRatings(ctx context.Context, tourID string) error
}

// BookingChecker reports whether a user has booked a tour.
//
// Satisfied by the booking repository.
type BookingChecker interface {
	HasBooked(ctx context.Context, userID, tourID string) (bool, error)
}
