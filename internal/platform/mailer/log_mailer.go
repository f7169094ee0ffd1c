// Copyright (c) 2026 Natours. All rights reserved.
// Author: marcin.karbowniczyn@gmail.com

package mailer

import (
	"context"
	"log/slog"
)

// LogMailer is the development [Service]: it writes each message to the
// structured log instead of delivering it. Used whenever no MailerSend
// credentials are configured so the full auth flow stays testable locally.
type LogMailer struct {
	logger *slog.Logger
}

// NewLogMailer constructs a logging [Service].
func NewLogMailer(logger *slog.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

// SendWelcome implements [Service].
func (mailer *LogMailer) SendWelcome(_ context.Context, toEmail, toName, profileURL string) error {
	mailer.logger.Info("dev_mail_welcome",
		slog.String("to", toEmail),
		slog.String("name", toName),
		slog.String("profile_url", profileURL),
	)
	return nil
}

// SendPasswordReset implements [Service].
func (mailer *LogMailer) SendPasswordReset(_ context.Context, toEmail, toName, resetURL string) error {
	mailer.logger.Info("dev_mail_password_reset",
		slog.String("to", toEmail),
		slog.String("name", toName),
		slog.String("reset_url", resetURL),
	)
	return nil
}

// SendEmailVerification implements [Service].
func (mailer *LogMailer) SendEmailVerification(_ context.Context, toEmail, toName, verifyURL string) error {
	mailer.logger.Info("dev_mail_email_verification",
		slog.String("to", toEmail),
		slog.String("name", toName),
		slog.String("verify_url", verifyURL),
	)
	return nil
}
