// Copyright (c) 2026 Natours. All rights reserved.
// Author: marcin.karbowniczyn@gmail.com

package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/marcin-karbowniczyn/natours/internal/platform/apperr"
	"github.com/marcin-karbowniczyn/natours/internal/platform/mailer"
	"github.com/marcin-karbowniczyn/natours/internal/platform/sec"
	"github.com/marcin-karbowniczyn/natours/pkg/uuid"
)

// # Contracts & Types

// TokenProvider defines the contract for generating session tokens.
type TokenProvider interface {
	// Issue creates a signed JWT string for the given user.
	//
	// # Parameters
	//   - userID: The ID of the account.
	//
	// # Returns
	//   - A signed JWT string, or an err if signing fails.
	Issue(userID string) (string, error)
}

// Service implements user authentication use cases.
//
// # Review Process
//
// This service is critical for security. Any changes to hashing, lockout,
// or password-reset logic must be reviewed by the security team.
type Service struct {
	userRepository              UserRepository
	verificationTokenRepository VerificationTokenRepository
	tokenProvider               TokenProvider
	mail                        mailer.Service
	guard                       *LoginGuard
	publicBaseURL               string
}

// NewService constructs a new auth [Service] with necessary dependencies.
func NewService(
	userRepo UserRepository,
	verifyRepo VerificationTokenRepository,
	tokenProv TokenProvider,
	mail mailer.Service,
	publicBaseURL string,
) *Service {
	return &Service{
		userRepository:              userRepo,
		verificationTokenRepository: verifyRepo,
		tokenProvider:               tokenProv,
		mail:                        mail,
		guard:                       NewLoginGuard(),
		publicBaseURL:               publicBaseURL,
	}
}

// Session represents a successfully authenticated user with a fresh token.
type Session struct {
	Token string
	User  *User
}

// # Registration Flow

// SignupInput holds the data required to enroll a new member.
type SignupInput struct {
	Name     string
	Email    string
	Password string
}

/*
Signup validates, hashes, and persists a brand new user account.

Description: Deep-enrollment of a new member, handling password hashing,
welcome email, verification token state, and the initial session token.

Parameters:
  - context: context.Context
  - input: SignupInput

Returns:
  - *Session: Token plus the created entity
  - err: DuplicateKey (if the email exists) or storage errors
*/
func (service *Service) Signup(context context.Context, input SignupInput) (*Session, error) {

	// Prevent storing plain-text passwords. Cost 12 balances security and
	// CPU utilization during registration spikes.
	hashedPassword, err := sec.HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("auth_service_hash_failed: %w", err)
	}

	// Construct the new User entity. Time-sortable ID to prevent PG index fragmentation.
	user := &User{
		ID:           uuid.New(),
		Name:         input.Name,
		Email:        input.Email,
		PasswordHash: hashedPassword,
		Role:         sec.RoleUser,
		Active:       true,
	}

	// Persist the user to the database. Email uniqueness surfaces here as DuplicateKey.
	if err := service.userRepository.Create(context, user); err != nil {
		return nil, err
	}

	// Greet the new member. Delivery is best-effort and never fails signup.
	_ = service.mail.SendWelcome(context, user.Email, user.Name, service.publicBaseURL+"/me")

	// Generate and store a verification token in Redis as an async-ready side effect.
	token, err := sec.GenerateSecureToken(VerificationTokenLength)
	if err == nil {
		_ = service.verificationTokenRepository.Set(context, token, user.ID, VerificationTokenTTL)
		_ = service.mail.SendEmailVerification(context, user.Email, user.Name,
			fmt.Sprintf("%s/api/v1/users/verifyEmail/%s", service.publicBaseURL, token))
	}

	// Log the new member straight in.
	sessionToken, err := service.tokenProvider.Issue(user.ID)
	if err != nil {
		return nil, fmt.Errorf("auth_service_token_generation_failed: %w", err)
	}

	return &Session{Token: sessionToken, User: user}, nil
}

// # Authentication Flow

/*
Login validates user credentials and issues a session token.

Description: Enforces the account lockout policy, performs constant-time
password comparison, and maintains the failed-attempt counters.

Parameters:
  - context: context.Context
  - email: string
  - password: string

Returns:
  - *Session: Transport-ready session token and profile
  - err: Unauthorized, AccountLocked, or internal failures
*/
func (service *Service) Login(context context.Context, email, password string) (*Session, error) {
	user, err := service.userRepository.FindByEmail(context, email)

	// If (err != nil) the user does not exist. Generic message to prevent enumeration.
	if err != nil {
		return nil, apperr.Unauthorized("Incorrect email or password")
	}

	now := time.Now()

	// Lockout check runs BEFORE password verification: a locked account
	// rejects even the correct password until the window elapses.
	remaining, unlocked := service.guard.Check(user, now)
	if unlocked {
		// Lazy unlock after an elapsed window; persist the cleared state.
		if err := service.userRepository.UpdateLoginState(context, user.ID, user.FailedLoginAttempts, user.LockedUntil); err != nil {
			return nil, fmt.Errorf("auth_service_unlock_persist_failed: %w", err)
		}
	}
	if remaining > 0 {
		return nil, apperr.AccountLocked(int(remaining.Seconds()))
	}

	// Verify password hash using constant-time comparison in bcrypt to prevent timing attacks.
	if !sec.CheckPasswordHash(password, user.PasswordHash) {
		service.guard.RegisterFailure(user, now)
		// Counter persistence is mandatory; a lost write would weaken the lockout policy.
		if err := service.userRepository.UpdateLoginState(context, user.ID, user.FailedLoginAttempts, user.LockedUntil); err != nil {
			return nil, fmt.Errorf("auth_service_attempt_persist_failed: %w", err)
		}
		return nil, apperr.Unauthorized("Incorrect email or password")
	}

	// Successful login resets the failure counter.
	if service.guard.RegisterSuccess(user) {
		if err := service.userRepository.UpdateLoginState(context, user.ID, user.FailedLoginAttempts, user.LockedUntil); err != nil {
			return nil, fmt.Errorf("auth_service_reset_persist_failed: %w", err)
		}
	}

	sessionToken, err := service.tokenProvider.Issue(user.ID)
	if err != nil {
		return nil, fmt.Errorf("auth_service_token_generation_failed: %w", err)
	}

	return &Session{Token: sessionToken, User: user}, nil
}

/*
LoadPrincipal resolves a verified token's user ID into a live principal.

Description: Backs the authorization middleware; confirms the account still
exists and exposes the password-change timestamp for token invalidation.

Parameters:
  - context: context.Context
  - userID: string

Returns:
  - *sec.Principal: Request-scoped identity
  - time.Time: When the password last changed (zero if never)
  - err: apperr.NotFound when the account is gone or deactivated
*/
func (service *Service) LoadPrincipal(context context.Context, userID string) (*sec.Principal, time.Time, error) {
	user, err := service.userRepository.FindByID(context, userID)
	if err != nil {
		return nil, time.Time{}, err
	}

	return user.Principal(), user.PasswordChangedAt, nil
}

// # Password Recovery

/*
ForgotPassword initiates the forgot-password flow.

Description: Generates a secure token, persists only its hash with a short
expiry, and emails the raw token as a reset link.

Parameters:
  - context: context.Context
  - email: string

Returns:
  - err: NotFound when no account holds the email, Recoverable when the
    reset email cannot be delivered (the token is invalidated)
*/
func (service *Service) ForgotPassword(context context.Context, email string) error {
	user, err := service.userRepository.FindByEmail(context, email)
	if err != nil {
		return apperr.NotFound("user with this email address")
	}

	// Generate the raw token; only its hash touches the database.
	token, err := sec.GenerateSecureToken(ResetTokenLength)
	if err != nil {
		return fmt.Errorf("auth_service_generate_reset_token_failed: %w", err)
	}

	expiresAt := time.Now().Add(ResetTokenTTL)
	if err := service.userRepository.SetResetToken(context, user.ID, sec.HashToken(token), expiresAt); err != nil {
		return fmt.Errorf("auth_service_save_reset_token_failed: %w", err)
	}

	resetURL := fmt.Sprintf("%s/api/v1/users/resetPassword/%s", service.publicBaseURL, token)
	if err := service.mail.SendPasswordReset(context, user.Email, user.Name, resetURL); err != nil {
		// An undeliverable token is a dead token; roll it back so the stored
		// hash can never be matched.
		_ = service.userRepository.ClearResetToken(context, user.ID)
		return apperr.Recoverable("There was an error sending the email. Try again later!", err)
	}

	return nil
}

/*
ResetPassword completes the forgot-password flow.

Description: Hashes the presented raw token, matches it against the stored
hash with an expiry check, rotates the password, and issues a fresh session.

Parameters:
  - context: context.Context
  - token: string (raw value from the reset email)
  - newPassword: string

Returns:
  - *Session: New session token for the recovered account
  - err: ValidationError on an unknown or expired token
*/
func (service *Service) ResetPassword(context context.Context, token, newPassword string) (*Session, error) {
	user, err := service.userRepository.FindByResetTokenHash(context, sec.HashToken(token), time.Now())
	if err != nil {
		return nil, apperr.ValidationError("Token is invalid or has expired")
	}

	session, err := service.rotatePassword(context, user, newPassword)
	if err != nil {
		return nil, err
	}

	return session, nil
}

/*
UpdatePassword allows an authenticated user to rotate their credentials.

Description: Verifies the current password before applying the new one, then
issues a fresh session token since the old one is invalidated by the change.

Parameters:
  - context: context.Context
  - userID: string
  - currentPassword: string
  - newPassword: string

Returns:
  - *Session: New session token
  - err: Unauthorized when the current password is wrong
*/
func (service *Service) UpdatePassword(context context.Context, userID, currentPassword, newPassword string) (*Session, error) {
	user, err := service.userRepository.FindByID(context, userID)
	if err != nil {
		return nil, err
	}

	// Verify the current password before allowing change.
	if !sec.CheckPasswordHash(currentPassword, user.PasswordHash) {
		return nil, apperr.Unauthorized("Your current password is wrong.")
	}

	return service.rotatePassword(context, user, newPassword)
}

// rotatePassword hashes and persists a new password, stamps the change time,
// and issues the replacement session token.
//
// The change timestamp is backdated by one second so the token issued in the
// same instant still reads as created after the change.
func (service *Service) rotatePassword(context context.Context, user *User, newPassword string) (*Session, error) {
	hashedPassword, err := sec.HashPassword(newPassword)
	if err != nil {
		return nil, fmt.Errorf("auth_service_rotate_password_hash_failed: %w", err)
	}

	changedAt := time.Now().Add(-passwordChangedAtSkew)
	if err := service.userRepository.UpdatePassword(context, user.ID, hashedPassword, changedAt); err != nil {
		return nil, fmt.Errorf("auth_service_rotate_password_update_failed: %w", err)
	}

	user.PasswordHash = hashedPassword
	user.PasswordChangedAt = changedAt
	user.ResetTokenHash = ""
	user.ResetTokenExpiresAt = time.Time{}

	sessionToken, err := service.tokenProvider.Issue(user.ID)
	if err != nil {
		return nil, fmt.Errorf("auth_service_token_generation_failed: %w", err)
	}

	return &Session{Token: sessionToken, User: user}, nil
}

// # Email Verification

/*
VerifyEmail confirms a user's email address using a secure token.

Parameters:
  - context: context.Context
  - token: string

Returns:
  - err: Database or resolution errors
*/
func (service *Service) VerifyEmail(context context.Context, token string) error {

	// Retrieve the user ID associated with the verification token from Redis.
	userID, err := service.verificationTokenRepository.Get(context, token)
	if err != nil {
		return err
	}

	// Update the user's status to verified in persistent storage.
	if err := service.userRepository.MarkVerified(context, userID); err != nil {
		return fmt.Errorf("auth_service_verify_email_failed: %w", err)
	}

	// Cleanup the used verification token from Redis.
	_ = service.verificationTokenRepository.Delete(context, token)

	return nil
}
