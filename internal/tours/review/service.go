// Copyright (c) 2026 Natours. All rights reserved.
// Author: marcin.karbowniczyn@gmail.com

package review

import (
	"context"
	"log/slog"

	"github.com/marcin-karbowniczyn/natours/internal/platform/apperr"
	"github.com/marcin-karbowniczyn/natours/internal/platform/sec"
	"github.com/marcin-karbowniczyn/natours/internal/platform/validate"
	"github.com/marcin-karbowniczyn/natours/pkg/uuid"
)

// # Service Layer

// Service orchestrates review writes and the rating rollups they trigger.
type Service struct {
	reviewRepository ReviewRepository
	rollup           RatingRollup
	bookings         BookingChecker
	logger           *slog.Logger
}

// NewService constructs a new [Service] with its required collaborators.
func NewService(reviewRepository ReviewRepository, rollup RatingRollup, bookings BookingChecker, logger *slog.Logger) *Service {
	return &Service{
		reviewRepository: reviewRepository,
		rollup:           rollup,
		bookings:         bookings,
		logger:           logger,
	}
}

// # Review Operations

/*
ListReviews retrieves a tour's reviews, newest first.

Parameters:
  - context: context.Context
  - tourID: string (UUID)

Returns:
  - []Review: The tour's reviews
  - error: Storage or execution errors
*/
func (service *Service) ListReviews(context context.Context, tourID string) ([]Review, error) {
	return service.reviewRepository.ListByTour(context, tourID)
}

/*
GetReview retrieves a single review by its ID.
*/
func (service *Service) GetReview(context context.Context, id string) (*Review, error) {
	return service.reviewRepository.FindByID(context, id)
}

/*
CreateReview validates, guards and persists a review, then rolls up the tour.

Description: Only travellers with a booking of the tour may review it, and
only once. After the insert the tour's rating aggregate is rebuilt from the
full review set.

Parameters:
  - context: context.Context
  - review: *Review (TourID, UserID, Rating and Text filled in)

Returns:
  - error: Validation errors, Forbidden without a booking, DuplicateKey on a
    second review for the same tour
*/
func (service *Service) CreateReview(context context.Context, review *Review) error {
	if review.ID == "" {
		review.ID = uuid.New()
	}

	if err := validateReview(review); err != nil {
		return err
	}

	// Reviews are reserved for travellers who actually booked the tour
	booked, err := service.bookings.HasBooked(context, review.UserID, review.TourID)
	if err != nil {
		return err
	}
	if !booked {
		return apperr.Forbidden("You cannot review a tour you have not booked.")
	}

	if err := service.reviewRepository.Create(context, review); err != nil {
		return err
	}

	if err := service.rollup.RecomputeRatings(context, review.TourID); err != nil {
		return err
	}

	service.logger.Info("review_created",
		slog.String("review_id", review.ID),
		slog.String("tour_id", review.TourID),
		slog.Int("rating", review.Rating),
	)

	return nil
}

/*
UpdateReview overwrites a review's rating and text, then rolls up its tour.

Description: The stored review is loaded first so the rollup targets the
tour the review actually belongs to, and so the author check runs against
persisted state rather than the request payload.

Parameters:
  - context: context.Context
  - principal: *sec.Principal (Caller; must be the author or an admin)
  - reviewID: string (UUID)
  - rating: int
  - text: string

Returns:
  - *Review: The updated review
  - error: ErrNotFound, Forbidden for non-authors, validation errors
*/
func (service *Service) UpdateReview(context context.Context, principal *sec.Principal, reviewID string, rating int, text string) (*Review, error) {
	review, err := service.reviewRepository.FindByID(context, reviewID)
	if err != nil {
		return nil, err
	}

	if err := checkIfAuthor(principal, review); err != nil {
		return nil, err
	}

	review.Rating = rating
	review.Text = text
	if err := validateReview(review); err != nil {
		return nil, err
	}

	if err := service.reviewRepository.Update(context, review); err != nil {
		return nil, err
	}

	if err := service.rollup.RecomputeRatings(context, review.TourID); err != nil {
		return nil, err
	}

	service.logger.Info("review_updated", slog.String("review_id", review.ID))

	return review, nil
}

/*
DeleteReview removes a review, then rolls up its tour.

Description: The tour reference is resolved before the delete; afterwards
the row is gone and the rollup would have nothing to target. A tour losing
its last review resets to the seeded defaults inside the recompute.

Parameters:
  - context: context.Context
  - principal: *sec.Principal (Caller; must be the author or an admin)
  - reviewID: string (UUID)

Returns:
  - error: ErrNotFound, Forbidden for non-authors
*/
func (service *Service) DeleteReview(context context.Context, principal *sec.Principal, reviewID string) error {
	review, err := service.reviewRepository.FindByID(context, reviewID)
	if err != nil {
		return err
	}

	if err := checkIfAuthor(principal, review); err != nil {
		return err
	}

	if err := service.reviewRepository.Delete(context, reviewID); err != nil {
		return err
	}

	if err := service.rollup.RecomputeRatings(context, review.TourID); err != nil {
		return err
	}

	service.logger.Info("review_deleted",
		slog.String("review_id", reviewID),
		slog.String("tour_id", review.TourID),
	)

	return nil
}

// # Internal Helpers

// checkIfAuthor allows the review's author and admins through.
func checkIfAuthor(principal *sec.Principal, review *Review) error {
	if principal.Role == sec.RoleAdmin || principal.ID == review.UserID {
		return nil
	}
	return apperr.Forbidden("You can only modify your own reviews.")
}

// validateReview applies the attribute checks shared by create and update.
func validateReview(review *Review) error {
	validator := &validate.Validator{}
	validator.Required(FieldText, review.Text)
	validator.MinLen(FieldText, review.Text, MinTextLength)
	validator.MaxLen(FieldText, review.Text, MaxTextLength)
	validator.Range(FieldRating, review.Rating, 1, 5)
	return validator.Err()
}
