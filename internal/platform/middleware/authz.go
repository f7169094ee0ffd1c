// Copyright (c) 2026 Natours. All rights reserved.
// Author: marcin.karbowniczyn@gmail.com

// Package middleware provides the HTTP middleware chain for the Natours API server.
//
// # Architecture
//
// Middleware intercepts incoming HTTP requests to apply global policies
// before they reach the domain handlers. This includes cross-cutting concerns
// like Logging, AuthZ/AuthN, Rate Limiting, and CORS.
package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/marcin-karbowniczyn/natours/internal/platform/apperr"
	"github.com/marcin-karbowniczyn/natours/internal/platform/constants"
	"github.com/marcin-karbowniczyn/natours/internal/platform/ctxutil"
	"github.com/marcin-karbowniczyn/natours/internal/platform/respond"
	"github.com/marcin-karbowniczyn/natours/internal/platform/sec"
)

// TokenVerifier defines the interface needed to verify session tokens.
//
// # Why an interface?
//
// Defining TokenVerifier here decouples the middleware from [sec.TokenService],
// allowing us to easily inject mocks during unit testing.
type TokenVerifier interface {
	Verify(tokenString string) (*sec.SessionClaims, error)
}

// PrincipalLoader resolves a verified token's user ID into a live principal.
//
// The second return value is the account's passwordChangedAt timestamp
// (zero if the password was never changed); [Protect] uses it to invalidate
// tokens issued before a password change.
type PrincipalLoader interface {
	LoadPrincipal(ctx context.Context, userID string) (*sec.Principal, time.Time, error)
}

// Protect blocks requests that do not carry a valid session token.
//
// # Flow
//  1. Extract the token: 'Authorization: Bearer <token>' first, 'jwt' cookie fallback.
//  2. Abort 401 if absent.
//  3. Verify signature and expiry via [TokenVerifier].
//  4. Load the principal; abort 401 if the account no longer exists.
//  5. Abort 401 if the password changed after the token was issued.
//  6. Inject the [*sec.Principal] into the request context.
func Protect(verifier TokenVerifier, loader PrincipalLoader) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			token := extractToken(request)
			if token == "" {
				respond.Error(writer, request, apperr.Unauthorized("You are not logged in! Please log in to get access."))
				return
			}

			principal, err := resolvePrincipal(request.Context(), verifier, loader, token)
			if err != nil {
				respond.Error(writer, request, err)
				return
			}

			ctx := ctxutil.WithPrincipal(request.Context(), principal)
			next.ServeHTTP(writer, request.WithContext(ctx))
		})
	}
}

// IsLoggedIn is the soft variant of [Protect] used for optional-auth views.
//
// It runs the same checks but never fails the request: a missing or invalid
// token simply means no principal is attached. Used only for display
// personalization on rendered routes.
func IsLoggedIn(verifier TokenVerifier, loader PrincipalLoader) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			token := extractToken(request)
			if token == "" {
				next.ServeHTTP(writer, request)
				return
			}

			principal, err := resolvePrincipal(request.Context(), verifier, loader, token)
			if err != nil {
				// No one is logged in; proceed anonymously.
				next.ServeHTTP(writer, request)
				return
			}

			ctx := ctxutil.WithPrincipal(request.Context(), principal)
			next.ServeHTTP(writer, request.WithContext(ctx))
		})
	}
}

// RestrictTo blocks requests whose principal's role is not in the allowed set.
//
// # Usage
//
// Must be registered in the router AFTER [Protect]. Roles are checked by
// membership, not hierarchy: RestrictTo(RoleAdmin, RoleLeadGuide) admits
// exactly those two roles.
func RestrictTo(roles ...sec.UserRole) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			principal := ctxutil.GetPrincipal(request.Context())

			// ── 1. Authentication Check ───────────────────────────────────────
			if principal == nil {
				respond.Error(writer, request, apperr.Unauthorized("You are not logged in! Please log in to get access."))
				return
			}

			// ── 2. Authorization Check ────────────────────────────────────────
			if !principal.Role.In(roles...) {
				respond.Error(writer, request, apperr.Forbidden("You do not have permission to perform this action."))
				return
			}

			next.ServeHTTP(writer, request)
		})
	}
}

// resolvePrincipal runs the shared verification pipeline of [Protect] and
// [IsLoggedIn]: token → claims → live principal → password-change check.
func resolvePrincipal(
	ctx context.Context,
	verifier TokenVerifier,
	loader PrincipalLoader,
	token string,
) (*sec.Principal, error) {
	claims, err := verifier.Verify(token)
	if err != nil {
		if errors.Is(err, sec.ErrExpiredToken) {
			return nil, apperr.Unauthorized("Your token has expired. Please log in again.")
		}
		return nil, apperr.Unauthorized("Invalid token. Please log in again.")
	}

	principal, passwordChangedAt, err := loader.LoadPrincipal(ctx, claims.UserID)
	if err != nil {
		return nil, apperr.Unauthorized("The user belonging to this token does no longer exist.")
	}

	// Tokens issued before the last password change are void.
	if !passwordChangedAt.IsZero() && claims.IssuedAt != nil && claims.IssuedAt.Time.Before(passwordChangedAt) {
		return nil, apperr.Unauthorized("User recently changed password! Please log in again.")
	}

	return principal, nil
}

// extractToken pulls the session token from the request.
// The Authorization header takes precedence; the cookie is the fallback.
func extractToken(request *http.Request) string {
	authHeader := request.Header.Get(constants.HeaderAuthorization)
	if authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			return parts[1]
		}
	}

	cookie, err := request.Cookie(constants.AuthCookieName)
	if err != nil || cookie.Value == constants.AuthCookieLoggedOut {
		return ""
	}
	return cookie.Value
}
