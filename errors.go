package noteauth

import "errors"

// Error codes returned in JSON error responses
const (
	ErrCodeMissingField = "missing_field"
	ErrCodeInvalidEmail = "invalid_email"
	ErrCodeWeakPassword = "weak_password"
	ErrCodeEmailExists  = "email_exists"
	ErrCodeInvalidCreds = "invalid_credentials"
	ErrCodeInvalidOtp   = "invalid_otp"
	ErrCodeInvalidToken = "invalid_token"
	ErrCodeAuthFailed   = "auth_failed"
	ErrCodeServerError  = "server_error"
	ErrCodeRateLimited  = "rate_limit_exceeded"
)

// Sentinel errors for the flows. Handlers translate these into
// enumeration-resistant responses; nothing below ever reveals whether a
// particular email is registered.
var (
	// ErrEmailExists means a user record already exists for the email.
	ErrEmailExists = errors.New("email already registered")

	// ErrUserNotFound is internal only. The orchestrator absorbs it into
	// ErrInvalidCredentials or ErrAuthFailed before it reaches a caller.
	ErrUserNotFound = errors.New("user not found")

	// ErrInvalidCredentials covers both unknown email and wrong password.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrInvalidOtp covers absent, expired, replayed and mismatched codes.
	ErrInvalidOtp = errors.New("invalid otp")

	// ErrInvalidToken means federated token verification failed.
	ErrInvalidToken = errors.New("invalid identity token")

	// ErrAuthFailed is the generic terminal failure for the OTP signin flow.
	ErrAuthFailed = errors.New("authentication failed")

	// ErrTokenExpired and ErrTokenMalformed are returned by TokenIssuer.Validate.
	ErrTokenExpired   = errors.New("session token expired")
	ErrTokenMalformed = errors.New("session token malformed")
)

// AuthError is a structured authentication error with an error code,
// human-readable message, and optionally the field that caused the error.
type AuthError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

func (e *AuthError) Error() string {
	return e.Message
}

// NewAuthError creates a new AuthError
func NewAuthError(code, message, field string) *AuthError {
	return &AuthError{Code: code, Message: message, Field: field}
}
