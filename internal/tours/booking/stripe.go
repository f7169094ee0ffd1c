// Copyright (c) 2026 Natours. All rights reserved.
// Author: marcin.karbowniczyn@gmail.com

package booking

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/checkout/session"
	"github.com/stripe/stripe-go/v76/webhook"

	"github.com/marcin-karbowniczyn/natours/internal/platform/apperr"
)

// metadataStartDateID is the metadata key carrying the departure through
// the checkout round-trip.
const metadataStartDateID = "start_date_id"

// # Stripe Provider

// StripeProvider implements [CheckoutProvider] on Stripe Checkout.
type StripeProvider struct {
	webhookSecret string
}

// NewStripeProvider configures the Stripe SDK and returns the provider.
//
// The SDK keeps the API key in package state; setting it here keeps the
// rest of the package free of Stripe globals.
func NewStripeProvider(apiKey, webhookSecret string) (*StripeProvider, error) {
	if apiKey == "" || webhookSecret == "" {
		return nil, fmt.Errorf("stripe_provider_disabled: missing api key or webhook secret")
	}
	stripe.Key = apiKey
	return &StripeProvider{webhookSecret: webhookSecret}, nil
}

/*
CreateSession builds a hosted Stripe Checkout page for one spot.

Parameters:
  - context: context.Context
  - input: CheckoutInput (Tour description, price and redirect URLs)

Returns:
  - *CheckoutSession: Stripe session ID and redirect URL
  - error: Stripe API errors
*/
func (provider *StripeProvider) CreateSession(context context.Context, input CheckoutInput) (*CheckoutSession, error) {
	productData := &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
		Name:        stripe.String(input.TourName),
		Description: stripe.String(input.TourSummary),
	}
	if input.ImageURL != "" {
		productData.Images = []*string{stripe.String(input.ImageURL)}
	}

	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:        stripe.String(input.SuccessURL),
		CancelURL:         stripe.String(input.CancelURL),
		CustomerEmail:     stripe.String(input.CustomerEmail),
		ClientReferenceID: stripe.String(input.TourID),
		LineItems: []*stripe.CheckoutSessionLineItemParams{{
			Quantity: stripe.Int64(1),
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:    stripe.String(string(stripe.CurrencyUSD)),
				UnitAmount:  stripe.Int64(int64(input.Price * 100)),
				ProductData: productData,
			},
		}},
	}
	params.Context = context
	params.AddMetadata(metadataStartDateID, input.StartDateID)

	stripeSession, err := session.New(params)
	if err != nil {
		return nil, fmt.Errorf("stripe_create_session_failed: %w", err)
	}

	return &CheckoutSession{ID: stripeSession.ID, URL: stripeSession.URL}, nil
}

/*
ParseCompletedCheckout verifies a webhook payload and extracts the purchase.

Description: The signature covers the raw body, so callers must hand the
bytes over untouched. Event types other than checkout.session.completed
verify fine but return (nil, nil).

Parameters:
  - payload: []byte (Raw request body)
  - signature: string (Stripe-Signature header)

Returns:
  - *CheckoutCompleted: The purchase, or nil for ignored event types
  - error: Signature or payload failures
*/
func (provider *StripeProvider) ParseCompletedCheckout(payload []byte, signature string) (*CheckoutCompleted, error) {
	event, err := webhook.ConstructEvent(payload, signature, provider.webhookSecret)
	if err != nil {
		return nil, apperr.ValidationError("Webhook signature verification failed")
	}

	if event.Type != "checkout.session.completed" {
		return nil, nil
	}

	var stripeSession stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &stripeSession); err != nil {
		return nil, apperr.ValidationError("Webhook payload could not be parsed")
	}

	email := stripeSession.CustomerEmail
	if email == "" && stripeSession.CustomerDetails != nil {
		email = stripeSession.CustomerDetails.Email
	}

	return &CheckoutCompleted{
		TourID:        stripeSession.ClientReferenceID,
		StartDateID:   stripeSession.Metadata[metadataStartDateID],
		CustomerEmail: email,
		AmountTotal:   float64(stripeSession.AmountTotal) / 100,
	}, nil
}
