// Copyright (c) 2026 Natours. All rights reserved.
// Author: marcin.karbowniczyn@gmail.com

package middleware_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marcin-karbowniczyn/natours/internal/platform/constants"
	"github.com/marcin-karbowniczyn/natours/internal/platform/ctxutil"
	"github.com/marcin-karbowniczyn/natours/internal/platform/middleware"
	"github.com/marcin-karbowniczyn/natours/internal/platform/sec"
)

// # Test Doubles

// fakeVerifier maps raw token strings to canned claims.
type fakeVerifier struct {
	claims map[string]*sec.SessionClaims
}

func (verifier *fakeVerifier) Verify(tokenString string) (*sec.SessionClaims, error) {
	claims, ok := verifier.claims[tokenString]
	if !ok {
		return nil, sec.ErrInvalidToken
	}
	return claims, nil
}

// fakeLoader resolves user IDs to principals with a fixed passwordChangedAt.
type fakeLoader struct {
	principals map[string]*sec.Principal
	changedAt  map[string]time.Time
}

func (loader *fakeLoader) LoadPrincipal(_ context.Context, userID string) (*sec.Principal, time.Time, error) {
	principal, ok := loader.principals[userID]
	if !ok {
		return nil, time.Time{}, sec.ErrInvalidToken
	}
	return principal, loader.changedAt[userID], nil
}

// # Fixtures

func sessionClaims(userID string, issuedAt time.Time) *sec.SessionClaims {
	return &sec.SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt: jwt.NewNumericDate(issuedAt),
		},
		UserID: userID,
	}
}

// capturingHandler records whether it ran and which principal it saw.
type capturingHandler struct {
	called    bool
	principal *sec.Principal
}

func (handler *capturingHandler) ServeHTTP(writer http.ResponseWriter, request *http.Request) {
	handler.called = true
	handler.principal = ctxutil.GetPrincipal(request.Context())
	writer.WriteHeader(http.StatusOK)
}

func bearerRequest(token string) *http.Request {
	request := httptest.NewRequest(http.MethodGet, "/api/v1/tours", nil)
	if token != "" {
		request.Header.Set(constants.HeaderAuthorization, "Bearer "+token)
	}
	return request
}

// # Protect

func TestProtect_RejectsMissingToken(t *testing.T) {
	verifier := &fakeVerifier{claims: map[string]*sec.SessionClaims{}}
	loader := &fakeLoader{}

	next := &capturingHandler{}
	recorder := httptest.NewRecorder()
	middleware.Protect(verifier, loader)(next).ServeHTTP(recorder, bearerRequest(""))

	assert.False(t, next.called)
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
}

func TestProtect_AttachesPrincipal(t *testing.T) {
	now := time.Now()
	verifier := &fakeVerifier{claims: map[string]*sec.SessionClaims{
		"good-token": sessionClaims("user-1", now),
	}}
	loader := &fakeLoader{
		principals: map[string]*sec.Principal{
			"user-1": {ID: "user-1", Role: sec.RoleUser},
		},
		changedAt: map[string]time.Time{},
	}

	next := &capturingHandler{}
	recorder := httptest.NewRecorder()
	middleware.Protect(verifier, loader)(next).ServeHTTP(recorder, bearerRequest("good-token"))

	require.True(t, next.called)
	require.NotNil(t, next.principal)
	assert.Equal(t, "user-1", next.principal.ID)
}

// A freshly signed-up account has a zero passwordChangedAt, and its session
// token is minted in the same instant as the user row. The whole-second iat
// truncation must not invalidate that token against any creation timestamp.
func TestProtect_AcceptsFreshSignupToken(t *testing.T) {
	tokenService, err := sec.NewTokenService("test-secret-key-of-at-least-32-bytes", "natours.dev", time.Hour)
	require.NoError(t, err)

	token, err := tokenService.Issue("user-1")
	require.NoError(t, err)

	loader := &fakeLoader{
		principals: map[string]*sec.Principal{
			"user-1": {ID: "user-1", Role: sec.RoleUser},
		},
		// Never changed: the store reads the column as NULL.
		changedAt: map[string]time.Time{},
	}

	next := &capturingHandler{}
	recorder := httptest.NewRecorder()
	middleware.Protect(tokenService, loader)(next).ServeHTTP(recorder, bearerRequest(token))

	require.True(t, next.called, "a just-issued signup token must pass the guard")
	assert.Equal(t, http.StatusOK, recorder.Code)
	require.NotNil(t, next.principal)
	assert.Equal(t, "user-1", next.principal.ID)
}

func TestProtect_RejectsTokenIssuedBeforePasswordChange(t *testing.T) {
	issuedAt := time.Now().Add(-1 * time.Hour)
	verifier := &fakeVerifier{claims: map[string]*sec.SessionClaims{
		"stale-token": sessionClaims("user-1", issuedAt),
	}}
	loader := &fakeLoader{
		principals: map[string]*sec.Principal{
			"user-1": {ID: "user-1", Role: sec.RoleUser},
		},
		// Password was changed after the token was minted.
		changedAt: map[string]time.Time{"user-1": issuedAt.Add(30 * time.Minute)},
	}

	next := &capturingHandler{}
	recorder := httptest.NewRecorder()
	middleware.Protect(verifier, loader)(next).ServeHTTP(recorder, bearerRequest("stale-token"))

	assert.False(t, next.called)
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
}

func TestProtect_RejectsDeletedAccount(t *testing.T) {
	verifier := &fakeVerifier{claims: map[string]*sec.SessionClaims{
		"orphan-token": sessionClaims("gone-user", time.Now()),
	}}
	loader := &fakeLoader{principals: map[string]*sec.Principal{}}

	next := &capturingHandler{}
	recorder := httptest.NewRecorder()
	middleware.Protect(verifier, loader)(next).ServeHTTP(recorder, bearerRequest("orphan-token"))

	assert.False(t, next.called)
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
}

// # RestrictTo

func TestRestrictTo_ChecksRoleMembership(t *testing.T) {
	testCases := []struct {
		name       string
		role       sec.UserRole
		allowed    []sec.UserRole
		wantStatus int
	}{
		{"admin allowed", sec.RoleAdmin, []sec.UserRole{sec.RoleAdmin, sec.RoleLeadGuide}, http.StatusOK},
		{"lead-guide allowed", sec.RoleLeadGuide, []sec.UserRole{sec.RoleAdmin, sec.RoleLeadGuide}, http.StatusOK},
		{"guide forbidden", sec.RoleGuide, []sec.UserRole{sec.RoleAdmin, sec.RoleLeadGuide}, http.StatusForbidden},
		{"traveller forbidden", sec.RoleUser, []sec.UserRole{sec.RoleAdmin, sec.RoleLeadGuide}, http.StatusForbidden},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			next := &capturingHandler{}
			recorder := httptest.NewRecorder()

			request := bearerRequest("")
			ctx := ctxutil.WithPrincipal(request.Context(), &sec.Principal{ID: "user-1", Role: testCase.role})
			middleware.RestrictTo(testCase.allowed...)(next).ServeHTTP(recorder, request.WithContext(ctx))

			assert.Equal(t, testCase.wantStatus, recorder.Code)
			assert.Equal(t, testCase.wantStatus == http.StatusOK, next.called)
		})
	}
}

func TestRestrictTo_RejectsAnonymous(t *testing.T) {
	next := &capturingHandler{}
	recorder := httptest.NewRecorder()
	middleware.RestrictTo(sec.RoleAdmin)(next).ServeHTTP(recorder, bearerRequest(""))

	assert.False(t, next.called)
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
}

// # IsLoggedIn

func TestIsLoggedIn_NeverFailsTheRequest(t *testing.T) {
	verifier := &fakeVerifier{claims: map[string]*sec.SessionClaims{}}
	loader := &fakeLoader{}

	next := &capturingHandler{}
	recorder := httptest.NewRecorder()
	middleware.IsLoggedIn(verifier, loader)(next).ServeHTTP(recorder, bearerRequest("garbage"))

	require.True(t, next.called)
	assert.Nil(t, next.principal)
	assert.Equal(t, http.StatusOK, recorder.Code)
}

func TestIsLoggedIn_SkipsLoggedOutSentinel(t *testing.T) {
	verifier := &fakeVerifier{claims: map[string]*sec.SessionClaims{}}
	loader := &fakeLoader{}

	next := &capturingHandler{}
	recorder := httptest.NewRecorder()
	request := httptest.NewRequest(http.MethodGet, "/api/v1/tours", nil)
	request.AddCookie(&http.Cookie{Name: constants.AuthCookieName, Value: constants.AuthCookieLoggedOut})
	middleware.IsLoggedIn(verifier, loader)(next).ServeHTTP(recorder, request)

	require.True(t, next.called)
	assert.Nil(t, next.principal)
}
