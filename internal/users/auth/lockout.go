// Copyright (c) 2026 Natours. All rights reserved.
// Author: marcin.karbowniczyn@gmail.com

package auth

import "time"

// # Login Throttling

// LoginGuard implements the failed-login lockout state machine.
//
// # State Model
//
// The guard mutates only two fields of [User]: FailedLoginAttempts and
// LockedUntil. Transitions:
//
//   - A failed attempt increments the counter; reaching the threshold sets
//     LockedUntil = now + window.
//   - While now < LockedUntil, every attempt (correct password included)
//     is rejected.
//   - Once the window elapses, the next check lazily resets the counter and
//     clears the lock; no background job is involved.
//   - A successful login resets the counter to zero.
//
// The guard itself is pure state-transition logic; callers persist the
// mutated fields through [UserRepository.UpdateLoginState].
type LoginGuard struct {
	maxAttempts int
	lockWindow  time.Duration
}

// NewLoginGuard constructs a [LoginGuard] with the platform defaults.
func NewLoginGuard() *LoginGuard {
	return &LoginGuard{
		maxAttempts: MaxFailedLoginAttempts,
		lockWindow:  LoginLockoutWindow,
	}
}

// Check reports whether the account is currently locked.
//
// # Returns
//   - remaining: Time left until the lock expires (zero when unlocked).
//   - mutated: True when an elapsed lock was lazily cleared; the caller must
//     persist the user's login state.
func (guard *LoginGuard) Check(user *User, now time.Time) (remaining time.Duration, mutated bool) {
	if user.FailedLoginAttempts < guard.maxAttempts {
		return 0, false
	}

	if now.Before(user.LockedUntil) {
		return user.LockedUntil.Sub(now), false
	}

	// The window elapsed; unlock lazily.
	user.FailedLoginAttempts = 0
	user.LockedUntil = time.Time{}
	return 0, true
}

// RegisterFailure records one failed login attempt, arming the lock when the
// threshold is reached.
func (guard *LoginGuard) RegisterFailure(user *User, now time.Time) {
	user.FailedLoginAttempts++

	if user.FailedLoginAttempts >= guard.maxAttempts {
		user.LockedUntil = now.Add(guard.lockWindow)
	}
}

// RegisterSuccess clears the failure counter after a successful login.
//
// # Returns
//   - mutated: True when there was state to clear; persisting is skipped for
//     the common clean-login case.
func (guard *LoginGuard) RegisterSuccess(user *User) (mutated bool) {
	if user.FailedLoginAttempts == 0 && user.LockedUntil.IsZero() {
		return false
	}

	user.FailedLoginAttempts = 0
	user.LockedUntil = time.Time{}
	return true
}
