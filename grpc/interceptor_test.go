package grpc

import (
	"context"
	"errors"
	"testing"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// staticVerifier accepts exactly one token.
func staticVerifier(valid, userID string) VerifyTokenFunc {
	return func(tokenString string) (string, error) {
		if tokenString == valid {
			return userID, nil
		}
		return "", errors.New("token is invalid")
	}
}

func TestDefaultInterceptorConfig(t *testing.T) {
	config := DefaultInterceptorConfig(nil)
	if !config.RequireAuth {
		t.Error("expected RequireAuth to be true by default")
	}
	if config.PublicMethods == nil {
		t.Error("expected PublicMethods to be initialized")
	}
	if config.Config == nil {
		t.Error("expected Config to be initialized")
	}
}

func TestNewPublicMethodsConfig(t *testing.T) {
	config := NewPublicMethodsConfig(nil, "/pkg.Svc/Method1", "/pkg.Svc/Method2")
	if !config.PublicMethods["/pkg.Svc/Method1"] {
		t.Error("expected Method1 to be public")
	}
	if !config.PublicMethods["/pkg.Svc/Method2"] {
		t.Error("expected Method2 to be public")
	}
	if config.PublicMethods["/pkg.Svc/Method3"] {
		t.Error("expected Method3 to not be public")
	}
}

func TestOptionalAuthConfig(t *testing.T) {
	config := OptionalAuthConfig(nil)
	if config.RequireAuth {
		t.Error("expected RequireAuth to be false")
	}
}

func TestUnaryAuthInterceptor_RequireAuth_NoUser(t *testing.T) {
	interceptor := UnaryAuthInterceptor(nil)

	ctx := context.Background()
	info := &grpc.UnaryServerInfo{FullMethod: "/pkg.Svc/Method"}

	_, err := interceptor(ctx, nil, info, func(ctx context.Context, req interface{}) (interface{}, error) {
		t.Error("handler should not be called")
		return nil, nil
	})

	if err == nil {
		t.Fatal("expected error for unauthenticated request")
	}
	if status.Code(err) != codes.Unauthenticated {
		t.Errorf("expected Unauthenticated, got %v", status.Code(err))
	}
}

func TestUnaryAuthInterceptor_BearerToken(t *testing.T) {
	config := DefaultInterceptorConfig(staticVerifier("good-token", "user123"))
	interceptor := UnaryAuthInterceptor(config)

	md := metadata.Pairs(DefaultMetadataKeyAuthorization, "Bearer good-token")
	ctx := metadata.NewIncomingContext(context.Background(), md)
	info := &grpc.UnaryServerInfo{FullMethod: "/pkg.Svc/Method"}

	var gotUserID string
	_, err := interceptor(ctx, nil, info, func(ctx context.Context, req interface{}) (interface{}, error) {
		gotUserID = UserIDFromContext(ctx)
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotUserID != "user123" {
		t.Errorf("expected user123 in handler context, got %q", gotUserID)
	}
}

func TestUnaryAuthInterceptor_BadToken(t *testing.T) {
	config := DefaultInterceptorConfig(staticVerifier("good-token", "user123"))
	interceptor := UnaryAuthInterceptor(config)

	md := metadata.Pairs(DefaultMetadataKeyAuthorization, "Bearer forged")
	ctx := metadata.NewIncomingContext(context.Background(), md)
	info := &grpc.UnaryServerInfo{FullMethod: "/pkg.Svc/Method"}

	_, err := interceptor(ctx, nil, info, func(ctx context.Context, req interface{}) (interface{}, error) {
		t.Error("handler should not be called")
		return nil, nil
	})
	if status.Code(err) != codes.Unauthenticated {
		t.Errorf("expected Unauthenticated, got %v", status.Code(err))
	}
}

func TestUnaryAuthInterceptor_PublicMethod(t *testing.T) {
	config := NewPublicMethodsConfig(staticVerifier("good-token", "user123"), "/pkg.Svc/Public")
	interceptor := UnaryAuthInterceptor(config)

	ctx := context.Background()
	info := &grpc.UnaryServerInfo{FullMethod: "/pkg.Svc/Public"}

	called := false
	_, err := interceptor(ctx, nil, info, func(ctx context.Context, req interface{}) (interface{}, error) {
		called = true
		if UserIDFromContext(ctx) != "" {
			t.Error("expected no user on unauthenticated public call")
		}
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !called {
		t.Error("expected handler to be called for public method")
	}
}

func TestUnaryAuthInterceptor_OptionalAuth(t *testing.T) {
	config := OptionalAuthConfig(staticVerifier("good-token", "user123"))
	interceptor := UnaryAuthInterceptor(config)

	ctx := context.Background()
	info := &grpc.UnaryServerInfo{FullMethod: "/pkg.Svc/Method"}

	_, err := interceptor(ctx, nil, info, func(ctx context.Context, req interface{}) (interface{}, error) {
		if IsAuthenticated(ctx) {
			t.Error("expected unauthenticated context")
		}
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestUnaryAuthInterceptor_ForwardedUserID(t *testing.T) {
	md := metadata.Pairs(DefaultMetadataKeyUserID, "user456")
	ctx := metadata.NewIncomingContext(context.Background(), md)
	info := &grpc.UnaryServerInfo{FullMethod: "/pkg.Svc/Method"}

	// Not trusted by default
	interceptor := UnaryAuthInterceptor(DefaultInterceptorConfig(nil))
	_, err := interceptor(ctx, nil, info, func(ctx context.Context, req interface{}) (interface{}, error) {
		return "ok", nil
	})
	if status.Code(err) != codes.Unauthenticated {
		t.Errorf("expected Unauthenticated without trust, got %v", status.Code(err))
	}

	// Trusted gateway
	config := DefaultInterceptorConfig(nil)
	config.TrustForwardedUserID = true
	interceptor = UnaryAuthInterceptor(config)
	var gotUserID string
	_, err = interceptor(ctx, nil, info, func(ctx context.Context, req interface{}) (interface{}, error) {
		gotUserID = UserIDFromContext(ctx)
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotUserID != "user456" {
		t.Errorf("expected user456, got %q", gotUserID)
	}
}

type fakeServerStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (s *fakeServerStream) Context() context.Context { return s.ctx }

func TestStreamAuthInterceptor(t *testing.T) {
	config := DefaultInterceptorConfig(staticVerifier("good-token", "user123"))
	interceptor := StreamAuthInterceptor(config)
	info := &grpc.StreamServerInfo{FullMethod: "/pkg.Svc/Stream"}

	md := metadata.Pairs(DefaultMetadataKeyAuthorization, "Bearer good-token")
	stream := &fakeServerStream{ctx: metadata.NewIncomingContext(context.Background(), md)}

	err := interceptor(nil, stream, info, func(srv interface{}, ss grpc.ServerStream) error {
		if UserIDFromContext(ss.Context()) != "user123" {
			t.Errorf("expected user123 in stream context, got %q", UserIDFromContext(ss.Context()))
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Without credentials the stream is rejected.
	stream = &fakeServerStream{ctx: context.Background()}
	err = interceptor(nil, stream, info, func(srv interface{}, ss grpc.ServerStream) error {
		t.Error("handler should not be called")
		return nil
	})
	if status.Code(err) != codes.Unauthenticated {
		t.Errorf("expected Unauthenticated, got %v", status.Code(err))
	}
}
