// Package noteauth implements the identity and credential verification
// subsystem for the Notably notes application.
//
// Noteauth authenticates end users through three converging paths: password
// credentials, one-time passcodes (OTP) delivered over email, and federated
// Google identity. Every successful path ends the same way: a signed,
// time-bounded session token minted for the authenticated user.
//
// # Architecture
//
// The package is organized leaf-first:
//
// OtpStore: holds short-lived one-time codes keyed by normalized email. Owns
// code generation, expiry and single-use verification.
//
// Account resolution: given a proof of identity (password, OTP or a verified
// Google claim), finds or creates the corresponding user record while
// enforcing the one-email-one-identity rule.
//
// TokenIssuer: mints and validates the HS256 session tokens presented on
// subsequent requests.
//
// Auth: the orchestrator. Composes the pieces into the five authentication
// flows and maps every outcome to a caller-visible result.
//
// # Basic Usage
//
// Wire the pieces against a user store and an outbound sender:
//
//	users := stores.NewFSUserStore(storagePath)
//	otp := noteauth.NewOtpStore(&noteauth.ConsoleSender{}, nil)
//	defer otp.Close()
//
//	auth := &noteauth.Auth{
//	    Users:    users,
//	    Otp:      otp,
//	    Tokens:   noteauth.NewTokenIssuer(secret, "notably", 0),
//	    Verifier: noteauth.NewGoogleVerifier(googleClientID),
//	}
//
//	mux := noteauth.NewRouter(auth)
//	http.ListenAndServe(":8080", mux)
//
// # Store Implementations
//
// A file-based user store lives in the stores package and is suitable for
// development and tests. GORM and Cloud Datastore backed stores live in
// stores/gorm and stores/gae for production deployments.
//
// # Security
//
// Passwords are hashed with bcrypt at default cost. OTP codes are six
// uniformly random digits, valid for five minutes and consumed on first
// successful verification. Credential mismatches are reported to callers
// without distinguishing unknown accounts from wrong passwords, and the
// begin-OTP-signin acknowledgement is identical whether or not the email is
// registered.
package noteauth
