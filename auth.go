package noteauth

import (
	"context"
	"errors"
	"fmt"
	"log"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// DateOfBirthLayout is the wire format for dates of birth.
const DateOfBirthLayout = "2006-01-02"

// Request structs, one per operation, validated before any component is
// touched. The date of birth travels as a "2006-01-02" string.

type SignupRequest struct {
	Name        string `json:"name"          validate:"required"`
	Email       string `json:"email"         validate:"required,email"`
	Password    string `json:"password"      validate:"required"`
	DateOfBirth string `json:"date_of_birth" validate:"required,datetime=2006-01-02"`
}

type VerifySignupRequest struct {
	Name        string `json:"name"          validate:"required"`
	Email       string `json:"email"         validate:"required,email"`
	Password    string `json:"password"      validate:"required"`
	DateOfBirth string `json:"date_of_birth" validate:"required,datetime=2006-01-02"`
	Otp         string `json:"otp"           validate:"required"`
}

type SigninRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type SendSigninOtpRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type VerifySigninOtpRequest struct {
	Email string `json:"email" validate:"required,email"`
	Otp   string `json:"otp"   validate:"required"`
}

type GoogleAuthRequest struct {
	Token string `json:"token" validate:"required"`
}

// AuthResult is the success payload of every flow: a signed session token
// and the authenticated user.
type AuthResult struct {
	Token string `json:"token"`
	User  *User  `json:"user"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report fields by their json names so errors line up with the wire format.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validateRequest runs struct validation and converts the first failure into
// an AuthError.
func validateRequest(req any) *AuthError {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		switch fe.Tag() {
		case "required":
			return NewAuthError(ErrCodeMissingField, fmt.Sprintf("%s is required", fe.Field()), fe.Field())
		case "email":
			return NewAuthError(ErrCodeInvalidEmail, "Invalid email format", fe.Field())
		default:
			return NewAuthError(ErrCodeMissingField, fmt.Sprintf("%s is invalid", fe.Field()), fe.Field())
		}
	}
	return NewAuthError(ErrCodeMissingField, err.Error(), "")
}

// Auth orchestrates the five authentication flows. Each flow is a short
// linear sequence: prove identity (password, OTP or federated claim),
// resolve the account, issue a session token.
type Auth struct {
	Users    UserStore
	Otp      OtpStore
	Verifier IdentityVerifier
	Tokens   *TokenIssuer
	Accounts *Accounts
}

// NewAuth wires an Auth from its collaborators.
func NewAuth(users UserStore, otp OtpStore, verifier IdentityVerifier, tokens *TokenIssuer) *Auth {
	return &Auth{
		Users:    users,
		Otp:      otp,
		Verifier: verifier,
		Tokens:   tokens,
		Accounts: &Accounts{Users: users},
	}
}

// BeginSignup starts password signup: reject duplicates, then dispatch an
// OTP to prove control of the email. No user record is created yet, so the
// email stays claimable until CompleteSignup succeeds.
func (a *Auth) BeginSignup(ctx context.Context, req SignupRequest) error {
	if authErr := validateRequest(req); authErr != nil {
		return authErr
	}

	_, err := a.Users.FindByEmail(ctx, NormalizeEmail(req.Email))
	if err == nil {
		return ErrEmailExists
	}
	if !errors.Is(err, ErrUserNotFound) {
		return err
	}

	return a.Otp.Issue(ctx, req.Email)
}

// CompleteSignup verifies the OTP and creates the account.
func (a *Auth) CompleteSignup(ctx context.Context, req VerifySignupRequest) (*AuthResult, error) {
	if authErr := validateRequest(req); authErr != nil {
		return nil, authErr
	}

	if !a.Otp.Verify(req.Email, req.Otp) {
		return nil, ErrInvalidOtp
	}

	dob, err := time.Parse(DateOfBirthLayout, req.DateOfBirth)
	if err != nil {
		return nil, NewAuthError(ErrCodeMissingField, "date_of_birth is invalid", "date_of_birth")
	}

	user, err := a.Accounts.ResolveForPasswordSignup(ctx, req.Name, req.Email, req.Password, dob)
	if err != nil {
		return nil, err
	}

	return a.issueFor(user)
}

// Signin authenticates with email and password. Unknown email, missing
// local password and wrong password all collapse into ErrInvalidCredentials
// so callers cannot enumerate accounts.
func (a *Auth) Signin(ctx context.Context, req SigninRequest) (*AuthResult, error) {
	if authErr := validateRequest(req); authErr != nil {
		return nil, authErr
	}

	user, err := a.Users.FindByEmail(ctx, NormalizeEmail(req.Email))
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !user.HasPassword() {
		return nil, ErrInvalidCredentials
	}

	ok, err := VerifyPassword(req.Password, user.PasswordHash)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrInvalidCredentials
	}

	return a.issueFor(user)
}

// BeginOtpSignin dispatches a signin OTP when the user exists. The caller
// always receives the same acknowledgement either way; only a dependency
// failure surfaces as an error.
func (a *Auth) BeginOtpSignin(ctx context.Context, req SendSigninOtpRequest) error {
	if authErr := validateRequest(req); authErr != nil {
		return authErr
	}

	_, err := a.Users.FindByEmail(ctx, NormalizeEmail(req.Email))
	if errors.Is(err, ErrUserNotFound) {
		// Don't reveal whether the account exists.
		return nil
	}
	if err != nil {
		return err
	}

	return a.Otp.Issue(ctx, req.Email)
}

// CompleteOtpSignin verifies the OTP and signs the existing user in.
func (a *Auth) CompleteOtpSignin(ctx context.Context, req VerifySigninOtpRequest) (*AuthResult, error) {
	if authErr := validateRequest(req); authErr != nil {
		return nil, authErr
	}

	if !a.Otp.Verify(req.Email, req.Otp) {
		return nil, ErrInvalidOtp
	}

	user, err := a.Accounts.ResolveForOtpSignin(ctx, req.Email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrAuthFailed
		}
		return nil, err
	}

	return a.issueFor(user)
}

// GoogleAuth handles federated signup and signin in one operation: verify
// the provider token, then fetch or create the account for its email.
func (a *Auth) GoogleAuth(ctx context.Context, req GoogleAuthRequest) (*AuthResult, error) {
	if authErr := validateRequest(req); authErr != nil {
		return nil, authErr
	}

	claim, err := a.Verifier.Verify(ctx, req.Token)
	if err != nil {
		log.Println("error verifying identity token: ", err)
		return nil, ErrInvalidToken
	}

	user, err := a.Accounts.ResolveForFederatedLogin(ctx, claim)
	if err != nil {
		return nil, err
	}

	return a.issueFor(user)
}

func (a *Auth) issueFor(user *User) (*AuthResult, error) {
	token, err := a.Tokens.Issue(user.ID)
	if err != nil {
		return nil, err
	}
	return &AuthResult{Token: token, User: user}, nil
}
