package noteauth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenExpirySession is how long an issued session token stays valid.
const TokenExpirySession = 7 * 24 * time.Hour

// TokenIssuer mints and validates the signed session tokens returned by
// every successful authentication flow. Tokens are self-contained and never
// persisted server-side; expiry is the only revocation mechanism in scope.
// Both operations are pure computations and safe for concurrent use.
type TokenIssuer struct {
	secret []byte
	issuer string
	expiry time.Duration
}

// NewTokenIssuer creates a TokenIssuer signing with the process-wide secret.
// An expiry of 0 means TokenExpirySession.
func NewTokenIssuer(secret, issuer string, expiry time.Duration) *TokenIssuer {
	if expiry <= 0 {
		expiry = TokenExpirySession
	}
	return &TokenIssuer{
		secret: []byte(secret),
		issuer: issuer,
		expiry: expiry,
	}
}

// Issue mints an HS256 token binding the user id and an expiry.
func (t *TokenIssuer) Issue(userID string) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   userID,
		Issuer:    t.issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(t.expiry)),
	})
	signed, err := token.SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Validate parses a session token and returns the subject user id. Expired
// tokens fail with ErrTokenExpired; anything else wrong with the token
// (bad signature, wrong algorithm, garbage input) fails with ErrTokenMalformed.
func (t *TokenIssuer) Validate(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return t.secret, nil
	},
		jwt.WithExpirationRequired(),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrTokenExpired
		}
		return "", ErrTokenMalformed
	}
	if !token.Valid {
		return "", ErrTokenMalformed
	}

	sub, err := token.Claims.GetSubject()
	if err != nil || sub == "" {
		return "", ErrTokenMalformed
	}
	return sub, nil
}

// VerifyTokenFunc adapts Validate to the Middleware.VerifyToken signature.
func (t *TokenIssuer) VerifyTokenFunc() func(tokenString string) (userID string, token any, err error) {
	return func(tokenString string) (string, any, error) {
		userID, err := t.Validate(tokenString)
		if err != nil {
			return "", nil, err
		}
		return userID, nil, nil
	}
}
