// Copyright (c) 2026 Natours. All rights reserved.
// Author: marcin.karbowniczyn@gmail.com

package review

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/marcin-karbowniczyn/natours/internal/platform/apperr"
	"github.com/marcin-karbowniczyn/natours/internal/platform/dberr"
)

// # PostgreSQL Repository

// reviewColumns is the canonical projection for review reads.
const reviewColumns = `id, tourid, userid, rating, text, createdat, updatedat`

// PostgresReviewRepository implements [ReviewRepository] on pgx.
type PostgresReviewRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresReviewRepository constructs a PostgreSQL backed review store.
func NewPostgresReviewRepository(pool *pgxpool.Pool) *PostgresReviewRepository {
	return &PostgresReviewRepository{pool: pool}
}

/*
Create persists a review.

Description: The unique (tourid, userid) index enforces one review per
traveller per tour; a violation surfaces as DuplicateKey through the shared
error translation.

Parameters:
  - context: context.Context
  - review: *Review

Returns:
  - error: DuplicateKey on a second review, NotFound via FK for unknown tours
*/
func (repository *PostgresReviewRepository) Create(context context.Context, review *Review) error {
	_, err := repository.pool.Exec(context, `
		INSERT INTO reviews (id, tourid, userid, rating, text)
		VALUES ($1, $2, $3, $4, $5)`,
		review.ID, review.TourID, review.UserID, review.Rating, review.Text,
	)
	if err != nil {
		return dberr.Wrap(err, "review_create")
	}
	return nil
}

/*
FindByID returns a review or ErrNotFound.
*/
func (repository *PostgresReviewRepository) FindByID(context context.Context, id string) (*Review, error) {
	var review Review
	err := repository.pool.QueryRow(context,
		`SELECT `+reviewColumns+` FROM reviews WHERE id = $1`, id,
	).Scan(&review.ID, &review.TourID, &review.UserID, &review.Rating,
		&review.Text, &review.CreatedAt, &review.UpdatedAt)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("review")
		}
		return nil, dberr.Wrap(err, "review_find_by_id")
	}

	return &review, nil
}

/*
ListByTour returns a tour's reviews, newest first.
*/
func (repository *PostgresReviewRepository) ListByTour(context context.Context, tourID string) ([]Review, error) {
	rows, err := repository.pool.Query(context,
		`SELECT `+reviewColumns+` FROM reviews WHERE tourid = $1 ORDER BY createdat DESC`, tourID)
	if err != nil {
		return nil, dberr.Wrap(err, "review_list_by_tour")
	}
	defer rows.Close()

	var reviews []Review
	for rows.Next() {
		var review Review
		err := rows.Scan(&review.ID, &review.TourID, &review.UserID, &review.Rating,
			&review.Text, &review.CreatedAt, &review.UpdatedAt)
		if err != nil {
			return nil, dberr.Wrap(err, "review_list_by_tour")
		}
		reviews = append(reviews, review)
	}
	if err := rows.Err(); err != nil {
		return nil, dberr.Wrap(err, "review_list_by_tour")
	}

	return reviews, nil
}

/*
Update overwrites the rating and text of an existing review.
*/
func (repository *PostgresReviewRepository) Update(context context.Context, review *Review) error {
	result, err := repository.pool.Exec(context, `
		UPDATE reviews
		SET rating = $1, text = $2, updatedat = NOW()
		WHERE id = $3`,
		review.Rating, review.Text, review.ID,
	)
	if err != nil {
		return dberr.Wrap(err, "review_update")
	}
	if result.RowsAffected() == 0 {
		return apperr.NotFound("review")
	}
	return nil
}

/*
Delete removes a review.
*/
func (repository *PostgresReviewRepository) Delete(context context.Context, id string) error {
	result, err := repository.pool.Exec(context, `DELETE FROM reviews WHERE id = $1`, id)
	if err != nil {
		return dberr.Wrap(err, "review_delete")
	}
	if result.RowsAffected() == 0 {
		return apperr.NotFound("review")
	}
	return nil
}
