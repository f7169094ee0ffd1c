// Copyright (c) 2026 Natours. All rights reserved.
// Author: marcin.karbowniczyn@gmail.com

package booking

import (
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/marcin-karbowniczyn/natours/internal/platform/constants"
	requestutil "github.com/marcin-karbowniczyn/natours/internal/platform/request"
	"github.com/marcin-karbowniczyn/natours/internal/platform/respond"
	"github.com/marcin-karbowniczyn/natours/internal/platform/validate"
)

// maxWebhookBody caps what the webhook endpoint is willing to read.
const maxWebhookBody = 1 << 20

// # Definitions & Constructors

// Handler implements the booking HTTP endpoints.
type Handler struct {
	bookingService *Service
}

// NewHandler constructs a new [Handler] with its service dependency.
func NewHandler(service *Service) *Handler {
	return &Handler{bookingService: service}
}

// Routes builds the booking router.
//
// # Endpoints
//   - GET  /                                           : Caller's bookings.
//   - POST /                                           : Manual booking (admin, lead-guide).
//   - GET  /checkout-session/{tourID}/{startDateID}    : Hosted payment page.
//
// The payment webhook is NOT here: it carries no session and must read the
// raw body, so the server mounts [Handler.Webhook] outside the protected
// tree.
func (handler *Handler) Routes(protect, restrictManagers func(http.Handler) http.Handler) chi.Router {
	router := chi.NewRouter()
	router.Use(protect)

	router.Get("/", handler.listMyBookings)
	router.Get("/checkout-session/{tourID}/{startDateID}", handler.createCheckoutSession)

	router.With(restrictManagers).Post("/", handler.createBooking)

	return router
}

// # Request Payloads

type bookingPayload struct {
	TourID      string `json:"tour_id"`
	UserID      string `json:"user_id"`
	StartDateID string `json:"start_date_id"`
	Paid        bool   `json:"paid"`
}

// # Booking Endpoints

/*
ListMyBookings returns the caller's bookings.

GET /api/v1/bookings

Response:
  - 200: []Booking: The caller's bookings, newest first
*/
func (handler *Handler) listMyBookings(writer http.ResponseWriter, request *http.Request) {
	principal, err := requestutil.RequiredPrincipal(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	bookings, err := handler.bookingService.ListMyBookings(request.Context(), principal.ID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.List(writer, map[string]any{"bookings": bookings}, len(bookings))
}

/*
CreateBooking records a booking without payment, for staff.

POST /api/v1/bookings

Request:
  - Body: bookingPayload

Response:
  - 201: Booking: The recorded booking
  - 409: ErrCapacityExceeded: The departure is full
*/
func (handler *Handler) createBooking(writer http.ResponseWriter, request *http.Request) {
	var payload bookingPayload
	if err := requestutil.DecodeJSON(request, &payload); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	validator := &validate.Validator{}
	validator.UUID("tour_id", payload.TourID)
	validator.UUID("user_id", payload.UserID)
	validator.UUID("start_date_id", payload.StartDateID)
	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	booking, err := handler.bookingService.CreateBooking(request.Context(),
		payload.UserID, payload.TourID, payload.StartDateID, payload.Paid)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Created(writer, map[string]any{"booking": booking})
}

/*
CreateCheckoutSession sends the caller to a hosted payment page.

GET /api/v1/bookings/checkout-session/{tourID}/{startDateID}

Response:
  - 200: CheckoutSession: Session ID and redirect URL
  - 409: ErrCapacityExceeded: The departure is already full
*/
func (handler *Handler) createCheckoutSession(writer http.ResponseWriter, request *http.Request) {
	principal, err := requestutil.RequiredPrincipal(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	tourID := requestutil.Param(request, "tourID")
	startDateID := requestutil.Param(request, "startDateID")

	validator := &validate.Validator{}
	validator.UUID("tourID", tourID)
	validator.UUID("startDateID", startDateID)
	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	session, err := handler.bookingService.CreateCheckoutSession(request.Context(),
		principal.Email, tourID, startDateID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]any{"session": session})
}

/*
Webhook fulfils completed checkouts pushed by the payment provider.

POST /webhook-checkout

Description: Reads the raw body before any parsing so the provider's
signature can be verified over the exact bytes sent. Responds 200 on
success so the provider stops retrying.

Response:
  - 200: Received: Event processed or ignored
  - 400: ErrValidation: Signature verification failure
*/
func (handler *Handler) Webhook(writer http.ResponseWriter, request *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(request.Body, maxWebhookBody))
	if err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	signature := request.Header.Get(constants.HeaderStripeSignature)
	if err := handler.bookingService.FulfilCheckout(request.Context(), payload, signature); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]bool{"received": true})
}
