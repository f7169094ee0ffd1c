// Copyright (c) 2026 Natours. All rights reserved.
// Author: marcin.karbowniczyn@gmail.com

/*
Package tour implements the tour catalogue: the resource travellers browse,
guides lead and bookings consume.

A tour carries two kinds of state. The descriptive fields (name, price,
difficulty, dates) are owned by this package and edited by lead guides. The
derived fields (ratingsAverage, ratingsQuantity, per-date participants) are
owned by the review and booking packages and must only ever change through
the aggregate operations this package's repository exposes: RecomputeRatings
and ReserveSpot. Handlers never write derived fields directly.
*/
package tour

import (
	"context"
	"math"
	"time"

	"github.com/marcin-karbowniczyn/natours/pkg/query"
)

// # Field Names

const (
	FieldName         = "name"
	FieldDuration     = "duration"
	FieldMaxGroupSize = "maxGroupSize"
	FieldDifficulty   = "difficulty"
	FieldPrice        = "price"
	FieldSummary      = "summary"
	FieldStartDates   = "startDates"
)

// # Defaults

const (
	// DefaultRatingsAverage seeds a tour that has no reviews yet.
	DefaultRatingsAverage = 4.5

	// DefaultMaxParticipants caps a start date when none is given.
	DefaultMaxParticipants = 12
)

// Difficulties lists the accepted values for the difficulty field.
var Difficulties = []string{"easy", "medium", "difficult"}

// # Domain Entities

// Tour is the aggregate root of the catalogue.
type Tour struct {
	ID              string      `json:"id"`
	Name            string      `json:"name"`
	Slug            string      `json:"slug"`
	Duration        int         `json:"duration"`
	MaxGroupSize    int         `json:"max_group_size"`
	Difficulty      string      `json:"difficulty"`
	Price           float64     `json:"price"`
	Summary         string      `json:"summary"`
	Description     string      `json:"description,omitempty"`
	ImageCover      string      `json:"image_cover,omitempty"`
	Images          []string    `json:"images,omitempty"`
	RatingsAverage  float64     `json:"ratings_average"`
	RatingsQuantity int         `json:"ratings_quantity"`
	StartDates      []StartDate `json:"start_dates"`
	SecretTour      bool        `json:"-"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
}

// StartDate is a scheduled departure with its own capacity counter.
//
// Participants only moves through [TourRepository.ReserveSpot]; reading
// code treats it as eventually consistent with the bookings table.
type StartDate struct {
	ID              string    `json:"id"`
	TourID          string    `json:"tour_id"`
	Date            time.Time `json:"date"`
	Participants    int       `json:"participants"`
	MaxParticipants int       `json:"max_participants"`
}

// SoldOut reports whether the departure has no remaining spots.
func (startDate StartDate) SoldOut() bool {
	return startDate.Participants >= startDate.MaxParticipants
}

// RoundRating normalises a rating average to one decimal place, applying
// the same rounding as the rollup UPDATE so that averages computed in memory
// compare equal to stored ones.
func RoundRating(value float64) float64 {
	return math.Round(value*10) / 10
}

// # Query Allow-List

// TourQueryColumns maps public filter/sort names to catalogue columns.
var TourQueryColumns = map[string]string{
	"name":            "name",
	"duration":        "duration",
	"maxGroupSize":    "maxgroupsize",
	"difficulty":      "difficulty",
	"price":           "price",
	"ratingsAverage":  "ratingsaverage",
	"ratingsQuantity": "ratingsquantity",
	"createdAt":       "createdat",
}

// # Repository Contracts

// TourRepository abstracts catalogue persistence.
type TourRepository interface {

	// Create persists a tour together with its start dates.
	Create(ctx context.Context, tour *Tour) error

	// FindByID returns a tour with its start dates, or ErrNotFound.
	// Secret tours resolve normally here; only listings hide them.
	FindByID(ctx context.Context, id string) (*Tour, error)

	// FindAll lists non-secret tours matching the prepared query.
	FindAll(ctx context.Context, builder *query.Builder) ([]Tour, error)

	// Update overwrites the descriptive fields and replaces start dates.
	// Derived rating fields are never written by this method.
	Update(ctx context.Context, tour *Tour) error

	// Delete removes a tour and, through cascades, its dependents.
	Delete(ctx context.Context, id string) error

	// FindStartDate resolves a single departure by its ID.
	FindStartDate(ctx context.Context, startDateID string) (*StartDate, error)

	// ReserveSpot atomically claims one participant slot on a departure.
	// Returns CapacityExceeded when the departure is already full.
	ReserveSpot(ctx context.Context, startDateID string) error

	// RecomputeRatings rebuilds ratingsAverage and ratingsQuantity for a
	// tour from its current reviews. A tour with no reviews resets to the
	// defaults (4.5, 0).
	RecomputeRatings(ctx context.Context, tourID string) error
}
