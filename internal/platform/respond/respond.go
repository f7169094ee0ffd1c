// Copyright (c) 2026 Natours. All rights reserved.
// Author: marcin.karbowniczyn@gmail.com

// Package respond provides HTTP response helpers used by all API handlers.
//
// # Architecture
//
// This package centralizes the presentation logic for HTTP responses.
// It ensures that every response (Success or Error) across the entire application
// follows a strict, predictable JSON envelope structure:
//
//	{"status": "success", "data": {...}}
//	{"status": "fail" | "error", "message": "..."}
//
// Browser-rendered routes (anything outside /api) receive a minimal HTML
// error page instead of the JSON envelope; the taxonomy is identical.
package respond

import (
	"encoding/json"
	"fmt"
	"html"
	"log/slog"
	"net/http"
	"strings"

	"github.com/marcin-karbowniczyn/natours/internal/platform/apperr"
	"github.com/marcin-karbowniczyn/natours/internal/platform/constants"
	"github.com/marcin-karbowniczyn/natours/internal/platform/ctxkey"
)

// debugMode controls whether error responses expose the underlying cause.
// Set once at startup via [Configure]; defaults to the safe production value.
var debugMode = false

// Configure sets the error-detail exposure mode. In development the full
// cause chain is returned to the caller; in production only operational
// errors reveal their message.
func Configure(isDevelopment bool) {
	debugMode = isDevelopment
}

// SuccessEnvelope is the JSON envelope for successful single-resource responses.
type SuccessEnvelope struct {
	Status string      `json:"status"`
	Data   interface{} `json:"data"`
}

// ListEnvelope is the JSON envelope for list responses. Results carries the
// number of documents in this page of the result set.
type ListEnvelope struct {
	Status  string      `json:"status"`
	Results int         `json:"results"`
	Data    interface{} `json:"data"`
}

// ErrorEnvelope is the JSON envelope for error responses.
type ErrorEnvelope struct {
	Status  string              `json:"status"`
	Message string              `json:"message"`
	Code    string              `json:"code,omitempty"`
	Details []apperr.FieldError `json:"details,omitempty"`

	// Cause is only populated in development mode.
	Cause string `json:"error,omitempty"`
}

// JSON writes a JSON response with the given status code.
func JSON(writer http.ResponseWriter, statusCode int, payload interface{}) {
	writer.Header().Set("Content-Type", "application/json; charset=utf-8")
	writer.WriteHeader(statusCode)
	_ = json.NewEncoder(writer).Encode(payload)
}

// OK writes a 200 OK response with data wrapped in the standard success envelope.
func OK(writer http.ResponseWriter, data interface{}) {
	JSON(writer, http.StatusOK, SuccessEnvelope{Status: "success", Data: data})
}

// Created writes a 201 Created response with data wrapped in the standard success envelope.
func Created(writer http.ResponseWriter, data interface{}) {
	JSON(writer, http.StatusCreated, SuccessEnvelope{Status: "success", Data: data})
}

// List writes a 200 OK response with list data and a result count.
func List(writer http.ResponseWriter, data interface{}, results int) {
	JSON(writer, http.StatusOK, ListEnvelope{Status: "success", Results: results, Data: data})
}

// NoContent writes a 204 No Content response.
func NoContent(writer http.ResponseWriter) {
	writer.WriteHeader(http.StatusNoContent)
}

// Error converts any Go error into a standardized error response.
//
// All handler errors funnel through here: known [apperr.AppError] values keep
// their status and message; anything else is treated as a non-operational
// internal error, logged server-side, and masked with a generic message in
// production mode.
func Error(writer http.ResponseWriter, request *http.Request, err error) {
	if !apperr.IsAppError(err) {
		// Unexpected internal error: log full details but hide them from the client.
		logger := getLoggerFromContext(request)
		logger.ErrorContext(request.Context(), "unhandled_error",
			slog.String("error", err.Error()),
			slog.String("request_id", getRequestIDFromContext(request)),
		)
		err = apperr.Internal(err)
	}
	appError := apperr.As(err)

	// Always log 5xx errors as they indicate server-side issues.
	if appError.HTTPStatus >= 500 {
		logger := getLoggerFromContext(request)
		logger.ErrorContext(request.Context(), "api_server_error",
			slog.String("code", appError.Code),
			slog.String("request_id", getRequestIDFromContext(request)),
			slog.Any("cause", appError.Cause),
		)
	}

	message := appError.Message
	if !debugMode && !appError.Operational {
		// Programming or unknown error: don't leak details to the caller.
		message = "Something went wrong"
	}

	if !isAPIRequest(request) {
		errorPage(writer, appError.HTTPStatus, message)
		return
	}

	envelope := ErrorEnvelope{
		Status:  appError.Status(),
		Message: message,
		Code:    appError.Code,
		Details: appError.Details,
	}
	if debugMode && appError.Cause != nil {
		envelope.Cause = appError.Cause.Error()
	}

	JSON(writer, appError.HTTPStatus, envelope)
}

// isAPIRequest distinguishes JSON API calls from browser-rendered routes.
// The payment webhook sits outside the API prefix but is called by the
// provider, not a browser, so it gets the JSON envelope too.
func isAPIRequest(request *http.Request) bool {
	return strings.HasPrefix(request.URL.Path, constants.PathAPIPrefix) ||
		request.URL.Path == constants.PathWebhookCheckout
}

// errorPage writes a minimal rendered error page for non-API routes.
// Full view rendering is owned by an external collaborator; the error page
// must not depend on it, so it stays a self-contained template.
func errorPage(writer http.ResponseWriter, statusCode int, message string) {
	writer.Header().Set("Content-Type", "text/html; charset=utf-8")
	writer.WriteHeader(statusCode)
	_, _ = fmt.Fprintf(writer,
		"<!DOCTYPE html><html><head><title>Something went wrong</title></head>"+
			"<body><h1>Something went wrong.</h1><p>%s</p></body></html>",
		html.EscapeString(message),
	)
}

// getLoggerFromContext extracts the per-request logger.
func getLoggerFromContext(request *http.Request) *slog.Logger {
	if logger, ok := request.Context().Value(ctxkey.KeyLogger).(*slog.Logger); ok && logger != nil {
		return logger
	}
	return slog.Default()
}

// getRequestIDFromContext extracts the X-Request-ID for log correlation.
func getRequestIDFromContext(request *http.Request) string {
	if id, ok := request.Context().Value(ctxkey.KeyRequestID).(string); ok {
		return id
	}
	return ""
}
