// Copyright (c) 2026 Natours. All rights reserved.
// Author: marcin.karbowniczyn@gmail.com

/*
Package mailer provides transactional email delivery for the Natours API.

It defines the [Service] contract consumed by the domain layer and two
implementations: a MailerSend-backed sender for production and a logging
sender for local development where no API key is configured.

Core Responsibilities:

  - Welcome emails on signup.
  - Password reset emails carrying the one-time reset link.
  - Email verification messages carrying the verification link.

Email delivery is best-effort from the caller's perspective: domain services
log failures but never fail the user-facing operation because of them, with
the exception of password reset where an undeliverable token must roll back.
*/
package mailer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/mailersend/mailersend-go"
)

// sendTimeout bounds a single delivery attempt against the provider API.
const sendTimeout = 10 * time.Second

// ErrDisabled is returned when the mailer has no provider credentials.
var ErrDisabled = errors.New("mailer: disabled (missing API key or from address)")

// Service is the transactional email contract consumed by domain services.
type Service interface {
	// SendWelcome greets a freshly signed-up user and points them at their profile.
	SendWelcome(ctx context.Context, toEmail, toName, profileURL string) error

	// SendPasswordReset delivers the one-time password reset link.
	// The link is valid for the duration communicated in the message body.
	SendPasswordReset(ctx context.Context, toEmail, toName, resetURL string) error

	// SendEmailVerification delivers the address confirmation link.
	SendEmailVerification(ctx context.Context, toEmail, toName, verifyURL string) error
}

// MailerSend sends transactional email through the MailerSend HTTP API.
type MailerSend struct {
	client *mailersend.Mailersend
	from   mailersend.From
}

// NewMailerSend constructs a MailerSend-backed [Service].
//
// # Parameters
//   - apiKey: MailerSend API token.
//   - fromName: Display name for the From header.
//   - fromEmail: Verified sender address.
func NewMailerSend(apiKey, fromName, fromEmail string) (*MailerSend, error) {
	if apiKey == "" || fromEmail == "" {
		return nil, ErrDisabled
	}

	return &MailerSend{
		client: mailersend.NewMailersend(apiKey),
		from: mailersend.From{
			Name:  fromName,
			Email: fromEmail,
		},
	}, nil
}

// SendWelcome implements [Service].
func (mailer *MailerSend) SendWelcome(ctx context.Context, toEmail, toName, profileURL string) error {
	subject := "Welcome to the Natours Family!"
	text := fmt.Sprintf(
		"Hi %s, welcome to Natours, we're glad to have you! Visit your profile to upload a photo and browse tours: %s",
		toName, profileURL,
	)
	html := fmt.Sprintf(
		`<p>Hi %s,</p><p>Welcome to Natours, we're glad to have you!</p><p><a href="%s">Visit your profile</a> to upload a photo and browse tours.</p>`,
		toName, profileURL,
	)
	return mailer.send(ctx, toEmail, toName, subject, text, html)
}

// SendPasswordReset implements [Service].
func (mailer *MailerSend) SendPasswordReset(ctx context.Context, toEmail, toName, resetURL string) error {
	subject := "Your password reset token (valid for only 10 minutes)"
	text := fmt.Sprintf(
		"Forgot your password? Submit a request with your new password to: %s\nIf you didn't forget your password, please ignore this email.",
		resetURL,
	)
	html := fmt.Sprintf(
		`<p>Forgot your password? <a href="%s">Click here to set a new one.</a></p><p>If you didn't forget your password, please ignore this email.</p>`,
		resetURL,
	)
	return mailer.send(ctx, toEmail, toName, subject, text, html)
}

// SendEmailVerification implements [Service].
func (mailer *MailerSend) SendEmailVerification(ctx context.Context, toEmail, toName, verifyURL string) error {
	subject := "Confirm your Natours email address"
	text := fmt.Sprintf("Hi %s, confirm your email address by visiting: %s", toName, verifyURL)
	html := fmt.Sprintf(
		`<p>Hi %s,</p><p><a href="%s">Confirm your email address</a> to activate all account features.</p>`,
		toName, verifyURL,
	)
	return mailer.send(ctx, toEmail, toName, subject, text, html)
}

// send performs a single delivery attempt against the MailerSend API.
func (mailer *MailerSend) send(ctx context.Context, toEmail, toName, subject, text, html string) error {
	sendCtx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	message := mailer.client.Email.NewMessage()
	message.SetFrom(mailer.from)
	message.SetRecipients([]mailersend.Recipient{{Name: toName, Email: toEmail}})
	message.SetSubject(subject)
	message.SetText(text)
	message.SetHTML(html)

	response, err := mailer.client.Email.Send(sendCtx, message)
	if err != nil {
		return fmt.Errorf("mailer_send_failed: %w", err)
	}
	defer response.Body.Close()

	if response.StatusCode < 200 || response.StatusCode >= 300 {
		body, _ := io.ReadAll(response.Body)
		return fmt.Errorf("mailer_send_failed: status=%d body=%s", response.StatusCode, strings.TrimSpace(string(body)))
	}

	return nil
}
