package noteauth

import (
	"context"
	"fmt"

	"google.golang.org/api/idtoken"
)

// FederatedClaim is the verified result of federated token verification:
// who the provider says this is. It is consumed immediately by account
// resolution and never retained.
type FederatedClaim struct {
	Email     string
	SubjectID string
	Name      string
}

// IdentityVerifier validates a raw federated identity token and extracts a
// verified claim.
type IdentityVerifier interface {
	Verify(ctx context.Context, rawToken string) (*FederatedClaim, error)
}

// GoogleVerifier validates Google-issued ID tokens against Google's
// published signing keys. Key retrieval is cached by the underlying
// validator, so verification involves no per-call network round trip.
type GoogleVerifier struct {
	ClientID string
}

// NewGoogleVerifier creates a verifier for tokens issued to the given OAuth
// client id (the audience check).
func NewGoogleVerifier(clientID string) *GoogleVerifier {
	return &GoogleVerifier{ClientID: clientID}
}

func (g *GoogleVerifier) Verify(ctx context.Context, rawToken string) (*FederatedClaim, error) {
	payload, err := idtoken.Validate(ctx, rawToken, g.ClientID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	email, _ := payload.Claims["email"].(string)
	if email == "" {
		return nil, fmt.Errorf("%w: token has no email claim", ErrInvalidToken)
	}
	if verified, ok := payload.Claims["email_verified"].(bool); ok && !verified {
		return nil, fmt.Errorf("%w: email not verified by provider", ErrInvalidToken)
	}

	name, _ := payload.Claims["name"].(string)
	return &FederatedClaim{
		Email:     email,
		SubjectID: payload.Subject,
		Name:      name,
	}, nil
}
