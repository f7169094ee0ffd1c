// Copyright (c) 2026 Natours. All rights reserved.
// Author: marcin.karbowniczyn@gmail.com

// Package sec provides cryptographic primitives and token management.
//
// # Architecture
//
// This package isolates security-sensitive code (Hashing, JWT Signing) from
// the domain logic. It acts as an Infrastructure service injected into the
// Application layer via small interfaces.
package sec

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Sentinel verification failures. Callers translate these into 401 responses
// with user-facing messages.
var (
	// ErrInvalidToken means the signature or claims did not check out.
	ErrInvalidToken = errors.New("sec: invalid token")

	// ErrExpiredToken means the token was valid but is past its expiry.
	ErrExpiredToken = errors.New("sec: token has expired")
)

// SessionClaims is the payload embedded inside a session JWT.
//
// Only the user ID travels in the token: the authorization middleware loads
// the full principal from storage on every protected request, so a role or
// email change takes effect immediately rather than at token refresh.
type SessionClaims struct {
	jwt.RegisteredClaims

	// UserID identifies the account the session belongs to.
	UserID string `json:"uid"`
}

// TokenService issues and verifies HMAC-signed session tokens.
//
// The token is an opaque signed artifact: nothing is persisted server-side,
// validity is determined by signature, expiry, and (in the middleware) the
// comparison against the account's passwordChangedAt.
type TokenService struct {
	secret     []byte
	issuer     string
	timeToLive time.Duration
}

// NewTokenService creates a TokenService signing with the given shared secret.
func NewTokenService(secret, issuer string, timeToLive time.Duration) (*TokenService, error) {
	if len(secret) < 32 {
		return nil, fmt.Errorf("sec: jwt secret must be at least 32 bytes, got %d", len(secret))
	}
	return &TokenService{
		secret:     []byte(secret),
		issuer:     issuer,
		timeToLive: timeToLive,
	}, nil
}

// TTL returns the configured token lifetime. The HTTP layer uses it to align
// the cookie expiry with the token expiry.
func (service *TokenService) TTL() time.Duration {
	return service.timeToLive
}

// Issue creates a signed session token embedding the user ID and issue time.
func (service *TokenService) Issue(userID string) (string, error) {
	currentTime := time.Now()
	claims := SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    service.issuer,
			IssuedAt:  jwt.NewNumericDate(currentTime),
			ExpiresAt: jwt.NewNumericDate(currentTime.Add(service.timeToLive)),
		},
		UserID: userID,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := token.SignedString(service.secret)
	if err != nil {
		return "", fmt.Errorf("sec: failed to sign token: %w", err)
	}

	return signedToken, nil
}

// Verify checks the signature and expiry of a token string and returns its claims.
//
// # Returns
//   - *SessionClaims on success
//   - [ErrExpiredToken] if the token is past its expiry
//   - [ErrInvalidToken] for any other verification failure
func (service *TokenService) Verify(tokenString string) (*SessionClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &SessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("sec: unexpected signing method: %v", token.Header["alg"])
		}
		return service.secret, nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	return claims, nil
}
