// Copyright (c) 2026 Natours. All rights reserved.
// Author: marcin.karbowniczyn@gmail.com

/*
Package apperr defines the centralized error handling framework for Natours.

It provides a rich error type that bridges the gap between low-level Domain/Storage
errors and high-level HTTP responses.

Architecture:

  - AppError: A struct containing machine-readable ErrorCode and user-friendly messages.
  - Operationality: Errors constructed here are "operational" — expected failures whose
    message is safe to show the client. Anything else is treated as a programming error.
  - Mapping: Explicit mapping from AppError to standard HTTP Status Codes.

Every error that leaves the service layer should be wrapped as an [AppError] to ensure
consistent API responses.
*/
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Machine-readable error codes carried in [AppError.Code].
const (
	CodeNotFound         = "NOT_FOUND"
	CodeUnauthorized     = "UNAUTHORIZED"
	CodeForbidden        = "FORBIDDEN"
	CodeAccountLocked    = "ACCOUNT_LOCKED"
	CodeDuplicateKey     = "DUPLICATE_KEY"
	CodeCapacityExceeded = "CAPACITY_EXCEEDED"
	CodeValidation       = "VALIDATION_ERROR"
	CodeRateLimited      = "RATE_LIMITED"
	CodeInternal         = "INTERNAL_ERROR"
	CodeCollaborator     = "COLLABORATOR_ERROR"
)

// AppError is the canonical error type for the Natours API.
//
// It carries an HTTP status code, a machine-readable code, a client-safe
// message, and an optional slice of field-level validation errors.
//
// # Security
//
// The Cause field is for server-side logging only and is never sent to clients
// in production mode to avoid leaking internal implementation details.
type AppError struct {
	// Code is a machine-readable error identifier (e.g. "NOT_FOUND", "ACCOUNT_LOCKED").
	Code string `json:"code"`
	// Message is a human-readable description safe to return to the client.
	Message string `json:"message"`
	// HTTPStatus is the HTTP response status code.
	HTTPStatus int `json:"-"`
	// Operational marks expected failures whose message may reach the client
	// even in production. Programming errors are non-operational.
	Operational bool `json:"-"`
	// Cause is the underlying error, used for server-side logging only.
	Cause error `json:"-"`
	// Details holds per-field validation errors for VALIDATION_ERROR responses.
	Details []FieldError `json:"details,omitempty"`
}

// FieldError represents a single field-level validation failure.
type FieldError struct {
	// Field is the JSON field name that failed validation.
	Field string `json:"field"`
	// Message is the human-readable description of the failure.
	Message string `json:"message"`
}

// Error implements the error interface. It returns the client-safe message.
func (e *AppError) Error() string { return e.Message }

// Unwrap allows [errors.Is] and [errors.As] to traverse the cause chain.
func (e *AppError) Unwrap() error { return e.Cause }

// Status returns the envelope status word for this error:
// "fail" for client (4xx) errors and "error" for server (5xx) errors.
func (e *AppError) Status() string {
	if e.HTTPStatus >= 400 && e.HTTPStatus < 500 {
		return "fail"
	}
	return "error"
}

// # Client Errors (4xx)

// NotFound creates a 404 [AppError] for a named resource.
//
// Example:
//
//	apperr.NotFound("Tour") // Returns "Tour not found"
func NotFound(resource string) *AppError {
	return &AppError{
		Code:        CodeNotFound,
		Message:     resource + " not found",
		HTTPStatus:  http.StatusNotFound,
		Operational: true,
	}
}

// Unauthorized creates a 401 [AppError].
func Unauthorized(msg string) *AppError {
	return &AppError{
		Code:        CodeUnauthorized,
		Message:     msg,
		HTTPStatus:  http.StatusUnauthorized,
		Operational: true,
	}
}

// Forbidden creates a 403 [AppError].
func Forbidden(msg string) *AppError {
	return &AppError{
		Code:        CodeForbidden,
		Message:     msg,
		HTTPStatus:  http.StatusForbidden,
		Operational: true,
	}
}

// AccountLocked creates a 423 [AppError] for the login lockout window.
// The message names the remaining seconds so clients can display a countdown.
func AccountLocked(remainingSeconds int) *AppError {
	return &AppError{
		Code: CodeAccountLocked,
		Message: fmt.Sprintf(
			"Too many incorrect attempts. You are blocked from logging in. Wait %d seconds and try to log again.",
			remainingSeconds,
		),
		HTTPStatus:  http.StatusLocked,
		Operational: true,
	}
}

// DuplicateKey creates a 400 [AppError] for unique-constraint violations.
// The message names the offending value.
func DuplicateKey(value string) *AppError {
	return &AppError{
		Code:        CodeDuplicateKey,
		Message:     fmt.Sprintf("Duplicate field value: %s. Please use another value.", value),
		HTTPStatus:  http.StatusBadRequest,
		Operational: true,
	}
}

// CapacityExceeded creates a 409 [AppError] for fully booked start dates.
func CapacityExceeded(msg string) *AppError {
	return &AppError{
		Code:        CodeCapacityExceeded,
		Message:     msg,
		HTTPStatus:  http.StatusConflict,
		Operational: true,
	}
}

// ValidationError creates a 400 [AppError] with optional per-field details.
func ValidationError(msg string, details ...FieldError) *AppError {
	return &AppError{
		Code:        CodeValidation,
		Message:     msg,
		HTTPStatus:  http.StatusBadRequest,
		Operational: true,
		Details:     details,
	}
}

// RateLimited creates a 429 [AppError].
func RateLimited(retryAfterSeconds int) *AppError {
	return &AppError{
		Code:        CodeRateLimited,
		Message:     fmt.Sprintf("Too many requests. Try again in %ds.", retryAfterSeconds),
		HTTPStatus:  http.StatusTooManyRequests,
		Operational: true,
	}
}

// # Server Errors (5xx)

// Internal creates a 500 [AppError] wrapping an unexpected server-side error.
// It is non-operational: production responses replace its message with a
// generic one and the cause is only logged.
func Internal(cause error) *AppError {
	return &AppError{
		Code:       CodeInternal,
		Message:    "Something went wrong",
		HTTPStatus: http.StatusInternalServerError,
		Cause:      cause,
	}
}

// Recoverable creates a 500 operational [AppError] for failures of external
// collaborators (e.g. the email sender) where retrying is a sensible action.
func Recoverable(msg string, cause error) *AppError {
	return &AppError{
		Code:        CodeCollaborator,
		Message:     msg,
		HTTPStatus:  http.StatusInternalServerError,
		Operational: true,
		Cause:       cause,
	}
}

// # Helpers

// IsAppError reports whether err (or any error in its chain) is an [*AppError].
func IsAppError(err error) bool {
	var ae *AppError
	return errors.As(err, &ae)
}

// As extracts the [*AppError] from err's chain. It returns nil if not found.
func As(err error) *AppError {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae
	}
	return nil
}
