package noteauth

import (
	"encoding/json"
	"errors"
	"log"
	"net"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
)

// API exposes the authentication flows over HTTP. Routes and payload
// shapes follow the notes application's auth API:
//
//	POST /auth/signup             begin password signup (dispatches OTP)
//	POST /auth/verify-otp         complete password signup
//	POST /auth/signin             password signin
//	POST /auth/send-signin-otp    begin OTP signin (generic ack)
//	POST /auth/verify-signin-otp  complete OTP signin
//	POST /auth/google             federated signup/signin
//	POST /auth/google-signup      alias for /auth/google
type API struct {
	Auth *Auth

	// RateLimiter, when set, gates the credential-bearing endpoints
	// (signin and both OTP verifications) per client IP and email.
	RateLimiter RateLimiter
}

// NewRouter mounts an API for auth on a fresh gorilla router.
func NewRouter(auth *Auth) *mux.Router {
	api := &API{Auth: auth}
	r := mux.NewRouter()
	api.Register(r)
	return r
}

// Register mounts the auth routes under /auth on an existing router.
func (s *API) Register(r *mux.Router) {
	auth := r.PathPrefix("/auth").Subrouter()
	auth.HandleFunc("/signup", s.handleSignup).Methods(http.MethodPost)
	auth.HandleFunc("/verify-otp", s.handleVerifySignup).Methods(http.MethodPost)
	auth.HandleFunc("/signin", s.handleSignin).Methods(http.MethodPost)
	auth.HandleFunc("/send-signin-otp", s.handleSendSigninOtp).Methods(http.MethodPost)
	auth.HandleFunc("/verify-signin-otp", s.handleVerifySigninOtp).Methods(http.MethodPost)
	auth.HandleFunc("/google", s.handleGoogleAuth).Methods(http.MethodPost)
	auth.HandleFunc("/google-signup", s.handleGoogleAuth).Methods(http.MethodPost)
}

func (s *API) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if !decodeBody(w, r, &req) {
		return
	}

	err := s.Auth.BeginSignup(r.Context(), req)
	recordAttempt("signup_begin", err)
	if err != nil {
		s.writeFlowError(w, err)
		return
	}
	otpIssued.Inc()
	writeJSON(w, http.StatusOK, map[string]any{"message": "OTP sent to email."})
}

func (s *API) handleVerifySignup(w http.ResponseWriter, r *http.Request) {
	var req VerifySignupRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if !s.allow(w, r, req.Email) {
		return
	}

	result, err := s.Auth.CompleteSignup(r.Context(), req)
	recordAttempt("signup_complete", err)
	if err != nil {
		s.writeFlowError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

func (s *API) handleSignin(w http.ResponseWriter, r *http.Request) {
	var req SigninRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if !s.allow(w, r, req.Email) {
		return
	}

	result, err := s.Auth.Signin(r.Context(), req)
	recordAttempt("signin", err)
	if err != nil {
		s.writeFlowError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *API) handleSendSigninOtp(w http.ResponseWriter, r *http.Request) {
	var req SendSigninOtpRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if err := s.Auth.BeginOtpSignin(r.Context(), req); err != nil {
		s.writeFlowError(w, err)
		return
	}
	// Identical acknowledgement whether or not the account exists.
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "If a user with that email exists, an OTP has been sent.",
	})
}

func (s *API) handleVerifySigninOtp(w http.ResponseWriter, r *http.Request) {
	var req VerifySigninOtpRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if !s.allow(w, r, req.Email) {
		return
	}

	result, err := s.Auth.CompleteOtpSignin(r.Context(), req)
	recordAttempt("otp_signin", err)
	if err != nil {
		s.writeFlowError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *API) handleGoogleAuth(w http.ResponseWriter, r *http.Request) {
	var req GoogleAuthRequest
	if !decodeBody(w, r, &req) {
		return
	}

	result, err := s.Auth.GoogleAuth(r.Context(), req)
	recordAttempt("google", err)
	if err != nil {
		s.writeFlowError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

// allow applies the rate limiter, writing a 429 when the caller is over
// budget. Returns true when the request may proceed.
func (s *API) allow(w http.ResponseWriter, r *http.Request, email string) bool {
	if s.RateLimiter == nil {
		return true
	}
	key := getClientIP(r) + ":" + NormalizeEmail(email)
	if s.RateLimiter.Allow(key) {
		return true
	}
	writeError(w, NewAuthError(ErrCodeRateLimited, "Too many attempts", ""), http.StatusTooManyRequests)
	return false
}

// writeFlowError maps flow errors onto the wire. Identity and credential
// mismatches have already been absorbed into generic sentinels by the
// orchestrator; anything unrecognized is a dependency failure and becomes a
// plain server error.
func (s *API) writeFlowError(w http.ResponseWriter, err error) {
	var authErr *AuthError
	if errors.As(err, &authErr) {
		writeError(w, authErr, http.StatusBadRequest)
		return
	}

	switch {
	case errors.Is(err, ErrEmailExists):
		writeError(w, NewAuthError(ErrCodeEmailExists, "User already exists.", "email"), http.StatusBadRequest)
	case errors.Is(err, ErrInvalidCredentials):
		writeError(w, NewAuthError(ErrCodeInvalidCreds, "Invalid credentials.", ""), http.StatusUnauthorized)
	case errors.Is(err, ErrInvalidOtp):
		writeError(w, NewAuthError(ErrCodeInvalidOtp, "Invalid OTP.", "otp"), http.StatusUnauthorized)
	case errors.Is(err, ErrAuthFailed):
		writeError(w, NewAuthError(ErrCodeAuthFailed, "Authentication failed.", ""), http.StatusUnauthorized)
	case errors.Is(err, ErrInvalidToken):
		writeError(w, NewAuthError(ErrCodeInvalidToken, "Invalid identity token.", "token"), http.StatusUnauthorized)
	default:
		log.Println("auth dependency error: ", err)
		writeError(w, NewAuthError(ErrCodeServerError, "Server error", ""), http.StatusInternalServerError)
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, NewAuthError("parse_error", "Invalid post body", ""), http.StatusBadRequest)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, authErr *AuthError, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{
		"error": authErr.Message,
		"code":  authErr.Code,
		"field": authErr.Field,
	})
}

// getClientIP extracts the originating client IP, honoring X-Forwarded-For
// when present.
func getClientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if idx := strings.Index(fwd, ","); idx != -1 {
			return strings.TrimSpace(fwd[:idx])
		}
		return strings.TrimSpace(fwd)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
