// Copyright (c) 2026 Natours. All rights reserved.
// Author: marcin.karbowniczyn@gmail.com

package tour

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/marcin-karbowniczyn/natours/internal/platform/apperr"
	"github.com/marcin-karbowniczyn/natours/internal/platform/dberr"
	"github.com/marcin-karbowniczyn/natours/pkg/query"
)

// # PostgreSQL Repository

// tourColumns is the canonical projection for tour reads.
const tourColumns = `id, name, slug, duration, maxgroupsize, difficulty, price,
	summary, description, imagecover, images, ratingsaverage, ratingsquantity,
	secrettour, createdat, updatedat`

// PostgresTourRepository implements [TourRepository] on pgx.
type PostgresTourRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresTourRepository constructs a PostgreSQL backed tour store.
func NewPostgresTourRepository(pool *pgxpool.Pool) *PostgresTourRepository {
	return &PostgresTourRepository{pool: pool}
}

// # Catalogue Writes

/*
Create persists a tour together with its start dates in one transaction.

Parameters:
  - context: context.Context
  - tour: *Tour (Fully prepared by the service layer)

Returns:
  - error: DuplicateKey on a name collision, or persistence errors
*/
func (repository *PostgresTourRepository) Create(context context.Context, tour *Tour) error {
	transaction, err := repository.pool.Begin(context)
	if err != nil {
		return dberr.Wrap(err, "tour_create")
	}
	defer transaction.Rollback(context)

	_, err = transaction.Exec(context, `
		INSERT INTO tours (
			id, name, slug, duration, maxgroupsize, difficulty, price,
			summary, description, imagecover, images,
			ratingsaverage, ratingsquantity, secrettour
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		tour.ID, tour.Name, tour.Slug, tour.Duration, tour.MaxGroupSize,
		tour.Difficulty, tour.Price, tour.Summary, tour.Description,
		tour.ImageCover, tour.Images, tour.RatingsAverage, tour.RatingsQuantity,
		tour.SecretTour,
	)
	if err != nil {
		return dberr.Wrap(err, "tour_create")
	}

	if err := upsertStartDates(context, transaction, tour.StartDates); err != nil {
		return err
	}

	if err := transaction.Commit(context); err != nil {
		return dberr.Wrap(err, "tour_create")
	}

	return nil
}

/*
Update overwrites the descriptive fields and reconciles start dates.

Description: Departures absent from the new set are removed; survivors keep
their participant counters, matched by ID. The rating fields never appear in
the UPDATE so that concurrent rollups cannot be overwritten.

Parameters:
  - context: context.Context
  - tour: *Tour

Returns:
  - error: ErrNotFound, DuplicateKey, or persistence errors
*/
func (repository *PostgresTourRepository) Update(context context.Context, tour *Tour) error {
	transaction, err := repository.pool.Begin(context)
	if err != nil {
		return dberr.Wrap(err, "tour_update")
	}
	defer transaction.Rollback(context)

	result, err := transaction.Exec(context, `
		UPDATE tours
		SET name = $1, slug = $2, duration = $3, maxgroupsize = $4,
			difficulty = $5, price = $6, summary = $7, description = $8,
			imagecover = $9, images = $10, secrettour = $11, updatedat = NOW()
		WHERE id = $12`,
		tour.Name, tour.Slug, tour.Duration, tour.MaxGroupSize, tour.Difficulty,
		tour.Price, tour.Summary, tour.Description, tour.ImageCover, tour.Images,
		tour.SecretTour, tour.ID,
	)
	if err != nil {
		return dberr.Wrap(err, "tour_update")
	}
	if result.RowsAffected() == 0 {
		return apperr.NotFound("tour")
	}

	// Remove departures dropped from the new set
	keptIDs := make([]string, 0, len(tour.StartDates))
	for _, startDate := range tour.StartDates {
		keptIDs = append(keptIDs, startDate.ID)
	}

	_, err = transaction.Exec(context,
		`DELETE FROM tour_start_dates WHERE tourid = $1 AND id <> ALL($2)`,
		tour.ID, keptIDs,
	)
	if err != nil {
		return dberr.Wrap(err, "tour_update")
	}

	if err := upsertStartDates(context, transaction, tour.StartDates); err != nil {
		return err
	}

	if err := transaction.Commit(context); err != nil {
		return dberr.Wrap(err, "tour_update")
	}

	return nil
}

/*
Delete removes a tour; dependent rows go with it through cascades.
*/
func (repository *PostgresTourRepository) Delete(context context.Context, id string) error {
	result, err := repository.pool.Exec(context, `DELETE FROM tours WHERE id = $1`, id)
	if err != nil {
		return dberr.Wrap(err, "tour_delete")
	}
	if result.RowsAffected() == 0 {
		return apperr.NotFound("tour")
	}
	return nil
}

// # Catalogue Reads

/*
FindByID returns a tour with its start dates.

Parameters:
  - context: context.Context
  - id: string (UUID)

Returns:
  - *Tour: The hydrated tour
  - error: ErrNotFound on absent rows
*/
func (repository *PostgresTourRepository) FindByID(context context.Context, id string) (*Tour, error) {
	row := repository.pool.QueryRow(context,
		`SELECT `+tourColumns+` FROM tours WHERE id = $1`, id)

	tour, err := scanTour(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("tour")
		}
		return nil, dberr.Wrap(err, "tour_find_by_id")
	}

	startDates, err := repository.loadStartDates(context, []string{tour.ID})
	if err != nil {
		return nil, err
	}
	tour.StartDates = startDates[tour.ID]

	return tour, nil
}

/*
FindAll lists the visible catalogue for a prepared query.

Description: Splices the secret-tour exclusion into the generated statement
so that no combination of filters can surface a hidden tour.

Parameters:
  - context: context.Context
  - builder: *query.Builder

Returns:
  - []Tour: Matching tours with their start dates attached
  - error: Storage or execution errors
*/
func (repository *PostgresTourRepository) FindAll(context context.Context, builder *query.Builder) ([]Tour, error) {
	statement, args := builder.Build(`SELECT ` + tourColumns + ` FROM tours`)

	// Hidden tours stay hidden regardless of the caller's filters
	if strings.Contains(statement, " WHERE ") {
		statement = strings.Replace(statement, " WHERE ", " WHERE secrettour = FALSE AND ", 1)
	} else {
		statement = strings.Replace(statement, " FROM tours", " FROM tours WHERE secrettour = FALSE", 1)
	}

	rows, err := repository.pool.Query(context, statement, args...)
	if err != nil {
		return nil, dberr.Wrap(err, "tour_find_all")
	}
	defer rows.Close()

	var tours []Tour
	var tourIDs []string
	for rows.Next() {
		tour, err := scanTour(rows)
		if err != nil {
			return nil, dberr.Wrap(err, "tour_find_all")
		}
		tours = append(tours, *tour)
		tourIDs = append(tourIDs, tour.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, dberr.Wrap(err, "tour_find_all")
	}

	if len(tours) == 0 {
		return tours, nil
	}

	// Attach departures in a single additional round-trip
	startDates, err := repository.loadStartDates(context, tourIDs)
	if err != nil {
		return nil, err
	}
	for i := range tours {
		tours[i].StartDates = startDates[tours[i].ID]
	}

	return tours, nil
}

// # Capacity & Rollup Aggregates

/*
FindStartDate resolves a single departure.
*/
func (repository *PostgresTourRepository) FindStartDate(context context.Context, startDateID string) (*StartDate, error) {
	var startDate StartDate
	err := repository.pool.QueryRow(context, `
		SELECT id, tourid, date, participants, maxparticipants
		FROM tour_start_dates
		WHERE id = $1`, startDateID,
	).Scan(&startDate.ID, &startDate.TourID, &startDate.Date, &startDate.Participants, &startDate.MaxParticipants)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("tour start date")
		}
		return nil, dberr.Wrap(err, "start_date_find")
	}

	return &startDate, nil
}

/*
ReserveSpot atomically claims one participant slot on a departure.

Description: The capacity check and the increment are a single conditional
UPDATE, so two requests racing for the last spot resolve inside the
database: exactly one affects a row, the other gets CapacityExceeded.

Parameters:
  - context: context.Context
  - startDateID: string (UUID)

Returns:
  - error: ErrNotFound for an unknown departure, CapacityExceeded when full
*/
func (repository *PostgresTourRepository) ReserveSpot(context context.Context, startDateID string) error {
	result, err := repository.pool.Exec(context, `
		UPDATE tour_start_dates
		SET participants = participants + 1
		WHERE id = $1 AND participants < maxparticipants`, startDateID)
	if err != nil {
		return dberr.Wrap(err, "start_date_reserve")
	}

	if result.RowsAffected() > 0 {
		return nil
	}

	// Zero rows means either an unknown departure or a full one
	var exists bool
	err = repository.pool.QueryRow(context,
		`SELECT EXISTS (SELECT 1 FROM tour_start_dates WHERE id = $1)`, startDateID,
	).Scan(&exists)
	if err != nil {
		return dberr.Wrap(err, "start_date_reserve")
	}
	if !exists {
		return apperr.NotFound("tour start date")
	}

	return apperr.CapacityExceeded("This tour date is fully booked")
}

/*
RecomputeRatings rebuilds a tour's rating aggregate from its reviews.

Description: One idempotent UPDATE derived from the full review set, rounded
to one decimal inside the statement. A tour whose last review disappeared
resets to the seeded defaults (4.5, 0). Last writer wins under concurrency;
every writer computes the same values for the same review set.

Parameters:
  - context: context.Context
  - tourID: string (UUID)

Returns:
  - error: Persistence errors
*/
func (repository *PostgresTourRepository) RecomputeRatings(context context.Context, tourID string) error {
	_, err := repository.pool.Exec(context, `
		UPDATE tours
		SET ratingsquantity = aggregate.quantity,
			ratingsaverage  = aggregate.average,
			updatedat       = NOW()
		FROM (
			SELECT COUNT(*) AS quantity,
				COALESCE(ROUND(AVG(rating)::numeric, 1), $2) AS average
			FROM reviews
			WHERE tourid = $1
		) AS aggregate
		WHERE tours.id = $1`,
		tourID, DefaultRatingsAverage,
	)
	if err != nil {
		return dberr.Wrap(err, "tour_recompute_ratings")
	}

	return nil
}

// # Internal Helpers

// upsertStartDates inserts or refreshes departures, preserving counters.
func upsertStartDates(context context.Context, transaction pgx.Tx, startDates []StartDate) error {
	for _, startDate := range startDates {
		_, err := transaction.Exec(context, `
			INSERT INTO tour_start_dates (id, tourid, date, participants, maxparticipants)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (id) DO UPDATE
			SET date = EXCLUDED.date, maxparticipants = EXCLUDED.maxparticipants`,
			startDate.ID, startDate.TourID, startDate.Date,
			startDate.Participants, startDate.MaxParticipants,
		)
		if err != nil {
			return dberr.Wrap(err, "start_date_upsert")
		}
	}
	return nil
}

// loadStartDates fetches departures for a set of tours, keyed by tour ID.
func (repository *PostgresTourRepository) loadStartDates(context context.Context, tourIDs []string) (map[string][]StartDate, error) {
	rows, err := repository.pool.Query(context, `
		SELECT id, tourid, date, participants, maxparticipants
		FROM tour_start_dates
		WHERE tourid = ANY($1)
		ORDER BY date ASC`, tourIDs)
	if err != nil {
		return nil, dberr.Wrap(err, "start_date_load")
	}
	defer rows.Close()

	startDates := make(map[string][]StartDate)
	for rows.Next() {
		var startDate StartDate
		err := rows.Scan(&startDate.ID, &startDate.TourID, &startDate.Date,
			&startDate.Participants, &startDate.MaxParticipants)
		if err != nil {
			return nil, dberr.Wrap(err, "start_date_load")
		}
		startDates[startDate.TourID] = append(startDates[startDate.TourID], startDate)
	}
	if err := rows.Err(); err != nil {
		return nil, dberr.Wrap(err, "start_date_load")
	}

	return startDates, nil
}

// scanTour hydrates a tour from the canonical projection.
func scanTour(row pgx.Row) (*Tour, error) {
	var tour Tour
	var description, imageCover *string

	err := row.Scan(
		&tour.ID, &tour.Name, &tour.Slug, &tour.Duration, &tour.MaxGroupSize,
		&tour.Difficulty, &tour.Price, &tour.Summary, &description, &imageCover,
		&tour.Images, &tour.RatingsAverage, &tour.RatingsQuantity,
		&tour.SecretTour, &tour.CreatedAt, &tour.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if description != nil {
		tour.Description = *description
	}
	if imageCover != nil {
		tour.ImageCover = *imageCover
	}

	return &tour, nil
}
