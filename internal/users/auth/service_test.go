// Copyright (c) 2026 Natours. All rights reserved.
// Author: marcin.karbowniczyn@gmail.com

package auth

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marcin-karbowniczyn/natours/internal/platform/apperr"
	"github.com/marcin-karbowniczyn/natours/internal/platform/sec"
)

// # Test Doubles

// fakeUserRepository is an in-memory UserRepository keyed by user ID.
type fakeUserRepository struct {
	users map[string]*User
}

func newFakeUserRepository() *fakeUserRepository {
	return &fakeUserRepository{users: map[string]*User{}}
}

func (repo *fakeUserRepository) Create(_ context.Context, user *User) error {
	for _, existing := range repo.users {
		if existing.Email == user.Email {
			return apperr.DuplicateKey(user.Email)
		}
	}
	clone := *user
	repo.users[user.ID] = &clone
	return nil
}

func (repo *fakeUserRepository) FindByID(_ context.Context, id string) (*User, error) {
	user, ok := repo.users[id]
	if !ok || !user.Active {
		return nil, apperr.NotFound("User")
	}
	clone := *user
	return &clone, nil
}

func (repo *fakeUserRepository) FindByEmail(_ context.Context, email string) (*User, error) {
	for _, user := range repo.users {
		if user.Email == email && user.Active {
			clone := *user
			return &clone, nil
		}
	}
	return nil, apperr.NotFound("User")
}

func (repo *fakeUserRepository) FindByResetTokenHash(_ context.Context, tokenHash string, now time.Time) (*User, error) {
	for _, user := range repo.users {
		if user.ResetTokenHash == tokenHash && user.ResetTokenExpiresAt.After(now) && user.Active {
			clone := *user
			return &clone, nil
		}
	}
	return nil, apperr.NotFound("User")
}

func (repo *fakeUserRepository) UpdateLoginState(_ context.Context, userID string, failedAttempts int, lockedUntil time.Time) error {
	user := repo.users[userID]
	user.FailedLoginAttempts = failedAttempts
	user.LockedUntil = lockedUntil
	return nil
}

func (repo *fakeUserRepository) UpdatePassword(_ context.Context, userID, newHash string, changedAt time.Time) error {
	user := repo.users[userID]
	user.PasswordHash = newHash
	user.PasswordChangedAt = changedAt
	user.ResetTokenHash = ""
	user.ResetTokenExpiresAt = time.Time{}
	return nil
}

func (repo *fakeUserRepository) SetResetToken(_ context.Context, userID, tokenHash string, expiresAt time.Time) error {
	user := repo.users[userID]
	user.ResetTokenHash = tokenHash
	user.ResetTokenExpiresAt = expiresAt
	return nil
}

func (repo *fakeUserRepository) ClearResetToken(_ context.Context, userID string) error {
	user := repo.users[userID]
	user.ResetTokenHash = ""
	user.ResetTokenExpiresAt = time.Time{}
	return nil
}

func (repo *fakeUserRepository) MarkVerified(_ context.Context, userID string) error {
	repo.users[userID].IsVerified = true
	return nil
}

// fakeTokenProvider issues predictable tokens.
type fakeTokenProvider struct{ issued int }

func (provider *fakeTokenProvider) Issue(userID string) (string, error) {
	provider.issued++
	return "token-for-" + userID, nil
}

// fakeVerificationTokenRepository stores tokens in a plain map, ignoring TTL.
type fakeVerificationTokenRepository struct {
	tokens map[string]string
}

func newFakeVerificationTokenRepository() *fakeVerificationTokenRepository {
	return &fakeVerificationTokenRepository{tokens: map[string]string{}}
}

func (repo *fakeVerificationTokenRepository) Set(_ context.Context, token, userID string, _ time.Duration) error {
	repo.tokens[token] = userID
	return nil
}

func (repo *fakeVerificationTokenRepository) Get(_ context.Context, token string) (string, error) {
	userID, ok := repo.tokens[token]
	if !ok {
		return "", apperr.ValidationError("Verification token is invalid or expired")
	}
	return userID, nil
}

func (repo *fakeVerificationTokenRepository) Delete(_ context.Context, token string) error {
	delete(repo.tokens, token)
	return nil
}

// fakeMailer records outgoing mail and can simulate delivery failure.
type fakeMailer struct {
	resetURLs  []string
	welcomes   int
	failResets bool
}

func (mail *fakeMailer) SendWelcome(_ context.Context, _, _, _ string) error {
	mail.welcomes++
	return nil
}

func (mail *fakeMailer) SendPasswordReset(_ context.Context, _, _, resetURL string) error {
	if mail.failResets {
		return assert.AnError
	}
	mail.resetURLs = append(mail.resetURLs, resetURL)
	return nil
}

func (mail *fakeMailer) SendEmailVerification(_ context.Context, _, _, _ string) error {
	return nil
}

// # Fixtures

type serviceFixture struct {
	service *Service
	users   *fakeUserRepository
	tokens  *fakeTokenProvider
	verify  *fakeVerificationTokenRepository
	mail    *fakeMailer
}

func newServiceFixture() *serviceFixture {
	users := newFakeUserRepository()
	tokens := &fakeTokenProvider{}
	verify := newFakeVerificationTokenRepository()
	mail := &fakeMailer{}

	return &serviceFixture{
		service: NewService(users, verify, tokens, mail, "https://natours.dev"),
		users:   users,
		tokens:  tokens,
		verify:  verify,
		mail:    mail,
	}
}

// seedUser registers an account directly through Signup so the stored hash
// is produced by the real hashing path.
func (fixture *serviceFixture) seedUser(t *testing.T, email, password string) *User {
	t.Helper()
	session, err := fixture.service.Signup(context.Background(), SignupInput{
		Name:     "Test User",
		Email:    email,
		Password: password,
	})
	require.NoError(t, err)
	return session.User
}

// # Tests

func TestService_SignupIssuesSessionAndWelcome(t *testing.T) {
	fixture := newServiceFixture()

	session, err := fixture.service.Signup(context.Background(), SignupInput{
		Name:     "Marcin",
		Email:    "marcin@example.com",
		Password: "pass1234",
	})
	require.NoError(t, err)

	assert.Equal(t, "token-for-"+session.User.ID, session.Token)
	assert.Equal(t, sec.RoleUser, session.User.Role)
	assert.NotEqual(t, "pass1234", session.User.PasswordHash, "password must be stored hashed")
	assert.True(t, session.User.PasswordChangedAt.IsZero(),
		"a fresh account has never changed its password; a creation stamp here would void the signup token")
	assert.Equal(t, 1, fixture.mail.welcomes)
	assert.Len(t, fixture.verify.tokens, 1, "a verification token should be staged")
}

func TestService_SignupRejectsDuplicateEmail(t *testing.T) {
	fixture := newServiceFixture()
	fixture.seedUser(t, "marcin@example.com", "pass1234")

	_, err := fixture.service.Signup(context.Background(), SignupInput{
		Name:     "Impostor",
		Email:    "marcin@example.com",
		Password: "other123",
	})

	appError := apperr.As(err)
	require.NotNil(t, appError)
	assert.Equal(t, apperr.CodeDuplicateKey, appError.Code)
}

func TestService_LoginSuccess(t *testing.T) {
	fixture := newServiceFixture()
	fixture.seedUser(t, "marcin@example.com", "pass1234")

	session, err := fixture.service.Login(context.Background(), "marcin@example.com", "pass1234")
	require.NoError(t, err)
	assert.NotEmpty(t, session.Token)
}

func TestService_LoginUnknownEmailIsGeneric(t *testing.T) {
	fixture := newServiceFixture()

	_, err := fixture.service.Login(context.Background(), "ghost@example.com", "whatever1")

	appError := apperr.As(err)
	require.NotNil(t, appError)
	assert.Equal(t, 401, appError.HTTPStatus)
	assert.Equal(t, "Incorrect email or password", appError.Message)
}

func TestService_LoginLocksAfterFiveFailures(t *testing.T) {
	fixture := newServiceFixture()
	user := fixture.seedUser(t, "marcin@example.com", "pass1234")

	for attempt := 0; attempt < MaxFailedLoginAttempts; attempt++ {
		_, err := fixture.service.Login(context.Background(), "marcin@example.com", "wrong-pass")
		appError := apperr.As(err)
		require.NotNil(t, appError)
		assert.Equal(t, 401, appError.HTTPStatus)
	}

	// The sixth attempt fails with AccountLocked even though the password is correct.
	_, err := fixture.service.Login(context.Background(), "marcin@example.com", "pass1234")
	appError := apperr.As(err)
	require.NotNil(t, appError)
	assert.Equal(t, apperr.CodeAccountLocked, appError.Code)

	assert.Equal(t, MaxFailedLoginAttempts, fixture.users.users[user.ID].FailedLoginAttempts)
}

func TestService_LoginUnlocksAfterWindow(t *testing.T) {
	fixture := newServiceFixture()
	user := fixture.seedUser(t, "marcin@example.com", "pass1234")

	// Arm the lock, then backdate it so the window has elapsed.
	stored := fixture.users.users[user.ID]
	stored.FailedLoginAttempts = MaxFailedLoginAttempts
	stored.LockedUntil = time.Now().Add(-time.Minute)

	session, err := fixture.service.Login(context.Background(), "marcin@example.com", "pass1234")
	require.NoError(t, err)
	assert.NotEmpty(t, session.Token)
	assert.Zero(t, fixture.users.users[user.ID].FailedLoginAttempts)
}

func TestService_LoginSuccessResetsCounter(t *testing.T) {
	fixture := newServiceFixture()
	user := fixture.seedUser(t, "marcin@example.com", "pass1234")

	_, _ = fixture.service.Login(context.Background(), "marcin@example.com", "wrong-pass")
	_, _ = fixture.service.Login(context.Background(), "marcin@example.com", "wrong-pass")
	require.Equal(t, 2, fixture.users.users[user.ID].FailedLoginAttempts)

	_, err := fixture.service.Login(context.Background(), "marcin@example.com", "pass1234")
	require.NoError(t, err)
	assert.Zero(t, fixture.users.users[user.ID].FailedLoginAttempts)
}

func TestService_ForgotPasswordStoresOnlyHash(t *testing.T) {
	fixture := newServiceFixture()
	user := fixture.seedUser(t, "marcin@example.com", "pass1234")

	err := fixture.service.ForgotPassword(context.Background(), "marcin@example.com")
	require.NoError(t, err)

	stored := fixture.users.users[user.ID]
	require.NotEmpty(t, stored.ResetTokenHash)
	require.Len(t, fixture.mail.resetURLs, 1)

	// The emailed link carries the raw token, never the stored hash.
	assert.NotContains(t, fixture.mail.resetURLs[0], stored.ResetTokenHash)
	assert.True(t, stored.ResetTokenExpiresAt.After(time.Now()))
}

func TestService_ForgotPasswordUnknownEmail(t *testing.T) {
	fixture := newServiceFixture()

	err := fixture.service.ForgotPassword(context.Background(), "ghost@example.com")

	appError := apperr.As(err)
	require.NotNil(t, appError)
	assert.Equal(t, 404, appError.HTTPStatus)
}

func TestService_ForgotPasswordRollsBackOnMailFailure(t *testing.T) {
	fixture := newServiceFixture()
	user := fixture.seedUser(t, "marcin@example.com", "pass1234")
	fixture.mail.failResets = true

	err := fixture.service.ForgotPassword(context.Background(), "marcin@example.com")

	appError := apperr.As(err)
	require.NotNil(t, appError)
	assert.Equal(t, 500, appError.HTTPStatus)
	assert.True(t, appError.Operational, "delivery failure is recoverable, not a bug")
	assert.Empty(t, fixture.users.users[user.ID].ResetTokenHash, "undeliverable token must be invalidated")
}

func TestService_ResetPasswordRoundTrip(t *testing.T) {
	fixture := newServiceFixture()
	user := fixture.seedUser(t, "marcin@example.com", "pass1234")

	require.NoError(t, fixture.service.ForgotPassword(context.Background(), "marcin@example.com"))
	require.Len(t, fixture.mail.resetURLs, 1)

	// Extract the raw token from the emailed link.
	resetURL := fixture.mail.resetURLs[0]
	rawToken := resetURL[strings.LastIndexByte(resetURL, '/')+1:]

	session, err := fixture.service.ResetPassword(context.Background(), rawToken, "newpass99")
	require.NoError(t, err)
	assert.NotEmpty(t, session.Token)

	stored := fixture.users.users[user.ID]
	assert.Empty(t, stored.ResetTokenHash, "used token must be cleared")
	assert.False(t, stored.PasswordChangedAt.IsZero())

	// The old password no longer works; the new one does.
	_, err = fixture.service.Login(context.Background(), "marcin@example.com", "pass1234")
	assert.Error(t, err)
	_, err = fixture.service.Login(context.Background(), "marcin@example.com", "newpass99")
	assert.NoError(t, err)
}

func TestService_ResetPasswordRejectsExpiredToken(t *testing.T) {
	fixture := newServiceFixture()
	user := fixture.seedUser(t, "marcin@example.com", "pass1234")

	require.NoError(t, fixture.service.ForgotPassword(context.Background(), "marcin@example.com"))

	// Expire the stored token.
	fixture.users.users[user.ID].ResetTokenExpiresAt = time.Now().Add(-time.Minute)

	resetURL := fixture.mail.resetURLs[0]
	rawToken := resetURL[strings.LastIndexByte(resetURL, '/')+1:]

	_, err := fixture.service.ResetPassword(context.Background(), rawToken, "newpass99")

	appError := apperr.As(err)
	require.NotNil(t, appError)
	assert.Equal(t, 400, appError.HTTPStatus)
	assert.Equal(t, "Token is invalid or has expired", appError.Message)
}

func TestService_UpdatePasswordRequiresCurrent(t *testing.T) {
	fixture := newServiceFixture()
	user := fixture.seedUser(t, "marcin@example.com", "pass1234")

	_, err := fixture.service.UpdatePassword(context.Background(), user.ID, "wrong-current", "newpass99")

	appError := apperr.As(err)
	require.NotNil(t, appError)
	assert.Equal(t, 401, appError.HTTPStatus)
	assert.Equal(t, "Your current password is wrong.", appError.Message)
}

func TestService_UpdatePasswordBackdatesChangeTime(t *testing.T) {
	fixture := newServiceFixture()
	user := fixture.seedUser(t, "marcin@example.com", "pass1234")

	before := time.Now()
	session, err := fixture.service.UpdatePassword(context.Background(), user.ID, "pass1234", "newpass99")
	require.NoError(t, err)
	assert.NotEmpty(t, session.Token)

	// The recorded change time sits slightly in the past so a token minted in
	// the same instant as the change still validates.
	changedAt := fixture.users.users[user.ID].PasswordChangedAt
	assert.True(t, changedAt.Before(before))
}

func TestService_VerifyEmail(t *testing.T) {
	fixture := newServiceFixture()
	user := fixture.seedUser(t, "marcin@example.com", "pass1234")

	// Pull the staged verification token.
	var rawToken string
	for token := range fixture.verify.tokens {
		rawToken = token
	}
	require.NotEmpty(t, rawToken)

	require.NoError(t, fixture.service.VerifyEmail(context.Background(), rawToken))
	assert.True(t, fixture.users.users[user.ID].IsVerified)
	assert.Empty(t, fixture.verify.tokens, "used token must be deleted")

	// A second use fails.
	err := fixture.service.VerifyEmail(context.Background(), rawToken)
	assert.Error(t, err)
}
