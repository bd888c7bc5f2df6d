package auth_test

import (
	"context"
	"errors"
	"testing"
	"time"

	authsvc "github.com/JPJPKIMJP/AMLWD/internal/services/auth"
)

func TestValidateAccessTokenRoundTrip(t *testing.T) {
	jwtManager := authsvc.NewJWTManager("test-secret")
	svc := authsvc.NewService(jwtManager)

	token, _, err := jwtManager.GenerateAccessToken(authsvc.AccessClaims{
		UserID:        "uid-1001",
		Email:         "a@example.com",
		EmailVerified: true,
		Admin:         true,
	}, time.Hour)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	claims, err := svc.ValidateAccessToken(context.Background(), token)
	if err != nil {
		t.Fatalf("validate token: %v", err)
	}
	if claims.UserID != "uid-1001" || claims.Email != "a@example.com" || !claims.EmailVerified || !claims.Admin {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestValidateAccessTokenRejectsForeignSecret(t *testing.T) {
	issuer := authsvc.NewJWTManager("other-secret")
	token, _, err := issuer.GenerateAccessToken(authsvc.AccessClaims{UserID: "uid-1"}, time.Hour)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	svc := authsvc.NewService(authsvc.NewJWTManager("test-secret"))
	if _, err := svc.ValidateAccessToken(context.Background(), token); !errors.Is(err, authsvc.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestValidateAccessTokenRejectsGarbage(t *testing.T) {
	svc := authsvc.NewService(authsvc.NewJWTManager("test-secret"))
	for _, raw := range []string{"", "not-a-jwt", "a.b.c"} {
		if _, err := svc.ValidateAccessToken(context.Background(), raw); !errors.Is(err, authsvc.ErrUnauthorized) {
			t.Fatalf("expected ErrUnauthorized for %q, got %v", raw, err)
		}
	}
}

func TestRequesterFromContextWithoutIdentityIsAnonymous(t *testing.T) {
	req := authsvc.RequesterFromContext(context.Background(), "10.0.0.1")
	if req.Authenticated() {
		t.Fatalf("expected anonymous requester")
	}
	if req.IP != "10.0.0.1" {
		t.Fatalf("unexpected ip: %s", req.IP)
	}
}
