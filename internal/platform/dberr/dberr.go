// Copyright (c) 2026 Natours. All rights reserved.
// Author: marcin.karbowniczyn@gmail.com

// Package dberr provides a bridge between low-level database errors and
// higher-level application errors.
//
// # Why structured codes
//
// Constraint violations are classified via the Postgres SQLSTATE and the
// constraint name reported by the server — never by pattern-matching the
// human-readable message, which is locale- and version-dependent.
package dberr

import (
	"errors"
	"strings"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/marcin-karbowniczyn/natours/internal/platform/apperr"
)

var (
	// ErrNotFound is a standard error returned when a queried row doesn't exist.
	ErrNotFound = apperr.NotFound("Resource")
)

// Wrap inspects a database error and wraps it into a meaningful [apperr.AppError].
// It hides internal database details from the client while classifying the error type.
func Wrap(err error, action string) error {
	if err == nil {
		return nil
	}

	// 1. Not Found mapping
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}

	// 2. Constraint violations carry a SQLSTATE we can classify on.
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgerrcode.UniqueViolation:
			return apperr.DuplicateKey(duplicateValue(pgErr))
		case pgerrcode.ForeignKeyViolation:
			return apperr.NotFound("Referenced resource")
		case pgerrcode.CheckViolation, pgerrcode.NotNullViolation:
			return apperr.ValidationError("Invalid input data")
		}
	}

	// 3. Unknown query errors become Internal Server Errors
	return apperr.Internal(err)
}

// duplicateValue extracts the offending value from a unique-violation error.
//
// Postgres reports the conflict detail as `Key (col)=(value) already exists.`;
// when the detail is unavailable the constraint name is the fallback so the
// client still learns which uniqueness rule fired.
func duplicateValue(pgErr *pgconn.PgError) string {
	detail := pgErr.Detail
	if open := strings.Index(detail, ")=("); open >= 0 {
		rest := detail[open+3:]
		if close := strings.Index(rest, ")"); close >= 0 {
			return rest[:close]
		}
	}
	return pgErr.ConstraintName
}
