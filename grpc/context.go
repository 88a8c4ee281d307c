// Package grpc provides authentication interceptors and context utilities
// for gRPC services that accept noteauth session tokens.
package grpc

import (
	"context"

	"google.golang.org/grpc/metadata"
)

// Default metadata keys for authentication context.
// These can be customized via Config if needed.
const (
	// DefaultMetadataKeyAuthorization carries the bearer session token.
	DefaultMetadataKeyAuthorization = "authorization"

	// DefaultMetadataKeyUserID is a pre-authenticated user id set by a
	// trusted gateway. Only honored when TrustForwardedUserID is enabled.
	DefaultMetadataKeyUserID = "x-user-id"
)

type userIDContextKey struct{}

// Config holds the metadata key configuration for auth context.
type Config struct {
	// MetadataKeyAuthorization is the gRPC metadata key holding the bearer
	// session token. Defaults to "authorization".
	MetadataKeyAuthorization string

	// MetadataKeyUserID is the gRPC metadata key for a forwarded user id.
	// Defaults to "x-user-id".
	MetadataKeyUserID string

	// TrustForwardedUserID when true accepts MetadataKeyUserID without a
	// token. Enable only behind a gateway that has already authenticated
	// the caller.
	TrustForwardedUserID bool
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		MetadataKeyAuthorization: DefaultMetadataKeyAuthorization,
		MetadataKeyUserID:        DefaultMetadataKeyUserID,
		TrustForwardedUserID:     false,
	}
}

// EnsureDefaults fills in default values for any unset fields.
func (c *Config) EnsureDefaults() {
	if c.MetadataKeyAuthorization == "" {
		c.MetadataKeyAuthorization = DefaultMetadataKeyAuthorization
	}
	if c.MetadataKeyUserID == "" {
		c.MetadataKeyUserID = DefaultMetadataKeyUserID
	}
}

// UserIDFromContext extracts the authenticated user ID placed in the
// context by the interceptors. Returns empty string if no user is
// authenticated.
func UserIDFromContext(ctx context.Context) string {
	if v := ctx.Value(userIDContextKey{}); v != nil {
		if userID, ok := v.(string); ok {
			return userID
		}
	}
	return ""
}

// IsAuthenticated returns true if there is an authenticated user in the context.
func IsAuthenticated(ctx context.Context) bool {
	return UserIDFromContext(ctx) != ""
}

func withUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDContextKey{}, userID)
}

// TokenToOutgoingContext adds a bearer session token to outgoing gRPC
// context metadata.
func TokenToOutgoingContext(ctx context.Context, token string) context.Context {
	return metadata.AppendToOutgoingContext(ctx, DefaultMetadataKeyAuthorization, "Bearer "+token)
}

// UserIDToOutgoingContext adds a forwarded user ID to outgoing gRPC context
// metadata, for calls between services behind a trusted gateway.
func UserIDToOutgoingContext(ctx context.Context, userID string) context.Context {
	return metadata.AppendToOutgoingContext(ctx, DefaultMetadataKeyUserID, userID)
}
