package noteauth_test

import (
	"errors"
	"testing"
	"time"

	oa "github.com/notably/noteauth"
)

func TestTokenIssueAndValidate(t *testing.T) {
	issuer := oa.NewTokenIssuer("test-secret", "notably", 0)

	token, err := issuer.Issue("user-42")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	userID, err := issuer.Validate(token)
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if userID != "user-42" {
		t.Errorf("expected subject user-42, got %q", userID)
	}
}

func TestTokenExpired(t *testing.T) {
	issuer := oa.NewTokenIssuer("test-secret", "notably", time.Millisecond)

	token, err := issuer.Issue("user-42")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	time.Sleep(10 * time.Millisecond)
	if _, err := issuer.Validate(token); !errors.Is(err, oa.ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
}

func TestTokenMalformed(t *testing.T) {
	issuer := oa.NewTokenIssuer("test-secret", "notably", 0)

	tests := []struct {
		name  string
		token string
	}{
		{"garbage", "not-a-token"},
		{"empty", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := issuer.Validate(tt.token); !errors.Is(err, oa.ErrTokenMalformed) {
				t.Fatalf("expected ErrTokenMalformed, got %v", err)
			}
		})
	}
}

func TestTokenWrongSecret(t *testing.T) {
	issuer := oa.NewTokenIssuer("test-secret", "notably", 0)
	other := oa.NewTokenIssuer("different-secret", "notably", 0)

	token, err := issuer.Issue("user-42")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	if _, err := other.Validate(token); !errors.Is(err, oa.ErrTokenMalformed) {
		t.Fatalf("expected token signed with another secret to be rejected, got %v", err)
	}
}

func TestVerifyTokenFunc(t *testing.T) {
	issuer := oa.NewTokenIssuer("test-secret", "notably", 0)
	verify := issuer.VerifyTokenFunc()

	token, _ := issuer.Issue("user-42")
	userID, _, err := verify(token)
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	if userID != "user-42" {
		t.Errorf("expected user-42, got %q", userID)
	}

	if _, _, err := verify("junk"); err == nil {
		t.Fatal("expected junk token to fail")
	}
}
