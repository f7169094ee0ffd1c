// Copyright (c) 2026 Natours. All rights reserved.
// Author: marcin.karbowniczyn@gmail.com

package auth

import "time"

// # Authentication Constraints

const (
	// MaxFailedLoginAttempts is the number of consecutive failed logins
	// after which the account is locked.
	MaxFailedLoginAttempts = 5

	// LoginLockoutWindow is how long an account stays locked once the
	// failed-attempt threshold is reached.
	LoginLockoutWindow = 10 * time.Minute

	// ResetTokenTTL is the duration a password reset token remains valid.
	// Short-lived (10 minutes) for security.
	ResetTokenTTL = 10 * time.Minute

	// ResetTokenLength is the byte length of the random password reset token.
	ResetTokenLength = 32

	// VerificationTokenTTL is the duration an email verification token remains valid.
	// Long-lived (24 hours) as users might not check email immediately.
	VerificationTokenTTL = 24 * time.Hour

	// VerificationTokenLength is the byte length of the random verification token.
	VerificationTokenLength = 32

	// passwordChangedAtSkew is subtracted from the recorded password-change
	// timestamp so a token issued in the same instant as the change (clock
	// granularity) still compares as issued-after.
	passwordChangedAtSkew = 1 * time.Second
)
