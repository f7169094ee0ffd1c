// Copyright (c) 2026 Natours. All rights reserved.
// Author: marcin.karbowniczyn@gmail.com

package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoginGuard_LocksAfterThreshold(t *testing.T) {
	guard := NewLoginGuard()
	user := &User{}
	now := time.Now()

	// The first four failures only count; the account stays open.
	for attempt := 1; attempt < MaxFailedLoginAttempts; attempt++ {
		guard.RegisterFailure(user, now)

		remaining, _ := guard.Check(user, now)
		assert.Zero(t, remaining, "attempt %d should not lock", attempt)
	}

	// The fifth failure arms the lock.
	guard.RegisterFailure(user, now)

	remaining, mutated := guard.Check(user, now)
	assert.Equal(t, LoginLockoutWindow, remaining)
	assert.False(t, mutated)
}

func TestLoginGuard_LockedAccountRejectsWithinWindow(t *testing.T) {
	guard := NewLoginGuard()
	user := &User{}
	now := time.Now()

	for attempt := 0; attempt < MaxFailedLoginAttempts; attempt++ {
		guard.RegisterFailure(user, now)
	}

	// Partway through the window the remaining time shrinks but stays positive.
	later := now.Add(4 * time.Minute)
	remaining, mutated := guard.Check(user, later)
	assert.Equal(t, 6*time.Minute, remaining)
	assert.False(t, mutated)
}

func TestLoginGuard_LazyUnlockAfterWindow(t *testing.T) {
	guard := NewLoginGuard()
	user := &User{}
	now := time.Now()

	for attempt := 0; attempt < MaxFailedLoginAttempts; attempt++ {
		guard.RegisterFailure(user, now)
	}

	// One tick past the window the lock clears, and the caller is told to persist.
	afterWindow := now.Add(LoginLockoutWindow + time.Second)
	remaining, mutated := guard.Check(user, afterWindow)

	assert.Zero(t, remaining)
	assert.True(t, mutated)
	assert.Zero(t, user.FailedLoginAttempts)
	assert.True(t, user.LockedUntil.IsZero())
}

func TestLoginGuard_SuccessResetsCounter(t *testing.T) {
	guard := NewLoginGuard()
	user := &User{}
	now := time.Now()

	guard.RegisterFailure(user, now)
	guard.RegisterFailure(user, now)
	assert.Equal(t, 2, user.FailedLoginAttempts)

	mutated := guard.RegisterSuccess(user)
	assert.True(t, mutated)
	assert.Zero(t, user.FailedLoginAttempts)

	// A clean login has nothing to persist.
	assert.False(t, guard.RegisterSuccess(user))
}
