// Copyright (c) 2026 Natours. All rights reserved.
// Author: marcin.karbowniczyn@gmail.com

package booking

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/marcin-karbowniczyn/natours/internal/platform/apperr"
	"github.com/marcin-karbowniczyn/natours/pkg/uuid"
)

// # Development Provider

// DevCheckoutProvider satisfies [CheckoutProvider] without a payment
// account.
//
// Sessions are logged instead of created, and webhooks are rejected: there
// is no signature secret to verify against, so fulfilment only works
// against the real provider.
type DevCheckoutProvider struct {
	logger *slog.Logger
}

// NewDevCheckoutProvider constructs the development provider.
func NewDevCheckoutProvider(logger *slog.Logger) *DevCheckoutProvider {
	return &DevCheckoutProvider{logger: logger}
}

// CreateSession fabricates a session and logs what would have been sold.
func (provider *DevCheckoutProvider) CreateSession(_ context.Context, input CheckoutInput) (*CheckoutSession, error) {
	sessionID := "dev_" + uuid.New()

	provider.logger.Info("dev_checkout_session",
		slog.String("session_id", sessionID),
		slog.String("tour_id", input.TourID),
		slog.String("start_date_id", input.StartDateID),
		slog.Float64("price", input.Price),
		slog.String("customer_email", input.CustomerEmail),
	)

	return &CheckoutSession{
		ID:  sessionID,
		URL: fmt.Sprintf("https://checkout.invalid/%s", sessionID),
	}, nil
}

// ParseCompletedCheckout always fails: nothing can be verified in dev mode.
func (provider *DevCheckoutProvider) ParseCompletedCheckout(_ []byte, _ string) (*CheckoutCompleted, error) {
	return nil, apperr.ValidationError("Payment webhooks are not available without provider credentials")
}
