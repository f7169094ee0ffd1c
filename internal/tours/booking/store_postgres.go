// Copyright (c) 2026 Natours. All rights reserved.
// Author: marcin.karbowniczyn@gmail.com

package booking

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/marcin-karbowniczyn/natours/internal/platform/apperr"
	"github.com/marcin-karbowniczyn/natours/internal/platform/dberr"
)

// # PostgreSQL Repository

// bookingColumns is the canonical projection for booking reads.
const bookingColumns = `id, tourid, userid, startdateid, price, paid, createdat`

// PostgresBookingRepository implements [BookingRepository] on pgx.
type PostgresBookingRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresBookingRepository constructs a PostgreSQL backed booking store.
func NewPostgresBookingRepository(pool *pgxpool.Pool) *PostgresBookingRepository {
	return &PostgresBookingRepository{pool: pool}
}

/*
Create persists a booking.
*/
func (repository *PostgresBookingRepository) Create(context context.Context, booking *Booking) error {
	_, err := repository.pool.Exec(context, `
		INSERT INTO bookings (id, tourid, userid, startdateid, price, paid)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		booking.ID, booking.TourID, booking.UserID, booking.StartDateID,
		booking.Price, booking.Paid,
	)
	if err != nil {
		return dberr.Wrap(err, "booking_create")
	}
	return nil
}

/*
FindByID returns a booking or ErrNotFound.
*/
func (repository *PostgresBookingRepository) FindByID(context context.Context, id string) (*Booking, error) {
	var booking Booking
	err := repository.pool.QueryRow(context,
		`SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, id,
	).Scan(&booking.ID, &booking.TourID, &booking.UserID, &booking.StartDateID,
		&booking.Price, &booking.Paid, &booking.CreatedAt)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("booking")
		}
		return nil, dberr.Wrap(err, "booking_find_by_id")
	}

	return &booking, nil
}

/*
ListByUser returns a traveller's bookings, newest first.
*/
func (repository *PostgresBookingRepository) ListByUser(context context.Context, userID string) ([]Booking, error) {
	rows, err := repository.pool.Query(context,
		`SELECT `+bookingColumns+` FROM bookings WHERE userid = $1 ORDER BY createdat DESC`, userID)
	if err != nil {
		return nil, dberr.Wrap(err, "booking_list_by_user")
	}
	defer rows.Close()

	var bookings []Booking
	for rows.Next() {
		var booking Booking
		err := rows.Scan(&booking.ID, &booking.TourID, &booking.UserID, &booking.StartDateID,
			&booking.Price, &booking.Paid, &booking.CreatedAt)
		if err != nil {
			return nil, dberr.Wrap(err, "booking_list_by_user")
		}
		bookings = append(bookings, booking)
	}
	if err := rows.Err(); err != nil {
		return nil, dberr.Wrap(err, "booking_list_by_user")
	}

	return bookings, nil
}

/*
HasBooked reports whether the user holds any booking of the tour.
*/
func (repository *PostgresBookingRepository) HasBooked(context context.Context, userID, tourID string) (bool, error) {
	var booked bool
	err := repository.pool.QueryRow(context,
		`SELECT EXISTS (SELECT 1 FROM bookings WHERE userid = $1 AND tourid = $2)`,
		userID, tourID,
	).Scan(&booked)
	if err != nil {
		return false, dberr.Wrap(err, "booking_has_booked")
	}
	return booked, nil
}
