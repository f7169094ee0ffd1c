// Copyright (c) 2026 Natours. All rights reserved.
// Author: marcin.karbowniczyn@gmail.com

package auth

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/marcin-karbowniczyn/natours/internal/platform/constants"
	requestutil "github.com/marcin-karbowniczyn/natours/internal/platform/request"
	"github.com/marcin-karbowniczyn/natours/internal/platform/respond"
	"github.com/marcin-karbowniczyn/natours/internal/platform/validate"
)

// # Definitions & Constructors

// Handler implements authentication-related HTTP endpoints.
//
// # Scope
//
// This handler manages the user lifecycle entry points (Signup, Login,
// Password Recovery callbacks) and owns the session cookie protocol.
type Handler struct {
	authService   *Service
	cookieTTLDays int
}

// NewHandler constructs a new [Handler] with its service dependency.
//
// # Parameters
//   - service: The auth domain service.
//   - cookieTTLDays: Lifetime of the session cookie in days.
func NewHandler(service *Service, cookieTTLDays int) *Handler {
	return &Handler{authService: service, cookieTTLDays: cookieTTLDays}
}

// Routes returns a [chi.Router] configured with authentication-specific routes.
//
// # Endpoints
//   - POST  /signup                : Creates a new account and logs it in.
//   - POST  /login                 : Authenticates and returns a JWT.
//   - GET   /logout                : Overwrites the session cookie.
//   - POST  /forgotPassword        : Emails a password reset link.
//   - PATCH /resetPassword/{token} : Completes the reset flow.
//   - GET   /verifyEmail/{token}   : Confirms email ownership.
//   - PATCH /updateMyPassword      : Rotates the authenticated user's password.
func (handler *Handler) Routes(protect func(http.Handler) http.Handler) chi.Router {
	router := chi.NewRouter()

	// Public endpoints
	router.Post("/signup", handler.signup)
	router.Post("/login", handler.login)
	router.Get("/logout", handler.logout)
	router.Post("/forgotPassword", handler.forgotPassword)
	router.Patch("/resetPassword/{token}", handler.resetPassword)
	router.Get("/verifyEmail/{token}", handler.verifyEmail)

	// Protected endpoints
	router.Group(func(r chi.Router) {
		r.Use(protect)
		r.Patch("/updateMyPassword", handler.updateMyPassword)
	})

	return router
}

// # Request Payloads

type signupRequest struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"password_confirm"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

type resetPasswordRequest struct {
	Password        string `json:"password"`
	PasswordConfirm string `json:"password_confirm"`
}

type updatePasswordRequest struct {
	CurrentPassword    string `json:"current_password"`
	NewPassword        string `json:"new_password"`
	NewPasswordConfirm string `json:"new_password_confirm"`
}

// sessionEnvelope is the login/signup response shape: the token rides at the
// top level next to the standard status/data pair.
type sessionEnvelope struct {
	Status string         `json:"status"`
	Token  string         `json:"token"`
	Data   map[string]any `json:"data"`
}

/*
Signup handles the creation of a new user account.

POST /api/v1/users/signup

Description: Validates input, persists a new user profile, and establishes
a session (cookie + token) for the fresh account.

Request:
  - Body: signupRequest (Name, Email, Password, PasswordConfirm)

Response:
  - 201: sessionEnvelope: Token plus created user profile
  - 400: ErrInvalidJSON: Bad input, validation failure, or duplicate email
*/
func (handler *Handler) signup(writer http.ResponseWriter, request *http.Request) {
	var input signupRequest

	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldName, input.Name).
		Required(FieldEmail, input.Email).
		Email(FieldEmail, input.Email).
		Required(FieldPassword, input.Password).
		MinLen(FieldPassword, input.Password, 8).
		Custom(FieldPasswordConfirm, input.Password != input.PasswordConfirm, "Passwords are not the same!")

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	session, err := handler.authService.Signup(request.Context(), SignupInput{
		Name:     input.Name,
		Email:    input.Email,
		Password: input.Password,
	})

	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	handler.sendSession(writer, request, session, http.StatusCreated)
}

/*
Login authenticates a user and establishes a session.

POST /api/v1/users/login

Description: Verifies credentials under the lockout policy, issues a JWT,
and injects the session cookie into the response.

Request:
  - Body: loginRequest (Email, Password)

Response:
  - 200: sessionEnvelope: Token and user profile
  - 401: ErrUnauthorized: Invalid credentials
  - 423: AccountLocked: Too many failed attempts
*/
func (handler *Handler) login(writer http.ResponseWriter, request *http.Request) {
	var input loginRequest

	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldEmail, input.Email)
	validator.Required(FieldPassword, input.Password)

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	session, err := handler.authService.Login(request.Context(), input.Email, input.Password)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	handler.sendSession(writer, request, session, http.StatusOK)
}

/*
Logout terminates the current browser session.

GET /api/v1/users/logout

Description: JWTs are stateless, so logout is purely a cookie operation: the
session cookie is overwritten with an inert sentinel that expires shortly.

Response:
  - 200: Success: Cookie cleared
*/
func (handler *Handler) logout(writer http.ResponseWriter, request *http.Request) {
	http.SetCookie(writer, &http.Cookie{
		Name:     constants.AuthCookieName,
		Value:    constants.AuthCookieLoggedOut,
		Path:     "/",
		Expires:  time.Now().Add(10 * time.Second),
		HttpOnly: true,
		Secure:   isSecureRequest(request),
		SameSite: http.SameSiteLaxMode,
	})

	respond.OK(writer, nil)
}

/*
ForgotPassword initiates the password recovery flow.

POST /api/v1/users/forgotPassword

Description: Emails a reset link to the account holding the address.

Request:
  - Body: forgotPasswordRequest (Email)

Response:
  - 200: Success: Reset token sent to email
  - 404: ErrNotFound: No account with this email
  - 500: Recoverable: Email delivery failed, token rolled back
*/
func (handler *Handler) forgotPassword(writer http.ResponseWriter, request *http.Request) {
	var input forgotPasswordRequest

	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	v := &validate.Validator{}
	v.Required(FieldEmail, input.Email).Email(FieldEmail, input.Email)

	if err := v.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.authService.ForgotPassword(request.Context(), input.Email); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]string{
		FieldMessage: "Token sent to email!",
	})
}

/*
ResetPassword completes the password recovery flow.

PATCH /api/v1/users/resetPassword/{token}

Description: Matches the raw token from the reset email against the stored
hash, rotates the password, and logs the user straight in.

Request:
  - Path: token (raw reset token)
  - Body: resetPasswordRequest (Password, PasswordConfirm)

Response:
  - 200: sessionEnvelope: Fresh session for the recovered account
  - 400: ErrInvalidJSON: Unknown or expired token, or weak password
*/
func (handler *Handler) resetPassword(writer http.ResponseWriter, request *http.Request) {
	token := requestutil.Param(request, "token")

	var input resetPasswordRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	v := &validate.Validator{}
	v.Required(FieldToken, token).
		Required(FieldPassword, input.Password).
		MinLen(FieldPassword, input.Password, 8).
		Custom(FieldPasswordConfirm, input.Password != input.PasswordConfirm, "Passwords are not the same!")

	if err := v.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	session, err := handler.authService.ResetPassword(request.Context(), token, input.Password)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	handler.sendSession(writer, request, session, http.StatusOK)
}

/*
UpdateMyPassword rotates the authenticated user's password.

PATCH /api/v1/users/updateMyPassword

Description: Verifies the current password before applying the new one; the
response carries a fresh token since the old one is now invalid.

Request:
  - Body: updatePasswordRequest (CurrentPassword, NewPassword, NewPasswordConfirm)

Response:
  - 200: sessionEnvelope: Fresh session
  - 401: ErrUnauthorized: Current password is wrong
  - 400: ErrInvalidJSON: Weak password or validation failure
*/
func (handler *Handler) updateMyPassword(writer http.ResponseWriter, request *http.Request) {
	principal, err := requestutil.RequiredPrincipal(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input updatePasswordRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	v := &validate.Validator{}
	v.Required(FieldCurrentPassword, input.CurrentPassword).
		Required(FieldNewPassword, input.NewPassword).
		MinLen(FieldNewPassword, input.NewPassword, 8).
		Custom(FieldPasswordConfirm, input.NewPassword != input.NewPasswordConfirm, "Passwords are not the same!")

	if err := v.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	session, err := handler.authService.UpdatePassword(
		request.Context(),
		principal.ID,
		input.CurrentPassword,
		input.NewPassword,
	)

	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	handler.sendSession(writer, request, session, http.StatusOK)
}

/*
VerifyEmail confirms a user's email ownership.

GET /api/v1/users/verifyEmail/{token}

Description: Validates an email verification token and marks the account as verified.

Request:
  - Path: token (raw verification token)

Response:
  - 200: Success: Email verified
  - 400: ErrInvalidJSON: Missing or invalid token
*/
func (handler *Handler) verifyEmail(writer http.ResponseWriter, request *http.Request) {
	token := requestutil.Param(request, "token")

	if token == "" {
		respond.Error(writer, request, validate.RequiredError(FieldToken, "is required"))
		return
	}

	if err := handler.authService.VerifyEmail(request.Context(), token); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]string{
		FieldMessage: "Email verified successfully",
	})
}

// # Session Transport

// sendSession writes the session cookie and the token envelope.
func (handler *Handler) sendSession(writer http.ResponseWriter, request *http.Request, session *Session, statusCode int) {
	http.SetCookie(writer, &http.Cookie{
		Name:     constants.AuthCookieName,
		Value:    session.Token,
		Path:     "/",
		Expires:  time.Now().Add(time.Duration(handler.cookieTTLDays) * 24 * time.Hour),
		HttpOnly: true,
		Secure:   isSecureRequest(request),
		SameSite: http.SameSiteLaxMode,
	})

	respond.JSON(writer, statusCode, sessionEnvelope{
		Status: "success",
		Token:  session.Token,
		Data:   map[string]any{FieldUser: session.User},
	})
}

// isSecureRequest reports whether the request arrived over HTTPS, directly
// or via a TLS-terminating proxy.
func isSecureRequest(request *http.Request) bool {
	return request.TLS != nil || request.Header.Get(constants.HeaderXForwardedProto) == "https"
}
