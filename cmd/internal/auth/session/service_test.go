package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"chitter/cmd/identity"
)

func testService(t *testing.T) (*Service, identity.User) {
	t.Helper()
	t.Setenv("CHITTER_ARGON2_MEMORY_KIB", "8192")
	t.Setenv("CHITTER_ARGON2_ITERATIONS", "1")

	cfg := DefaultConfig()
	cfg.JWTSecret = []byte(testSecret)

	mgr, err := NewJWTManager(cfg)
	if err != nil {
		t.Fatalf("NewJWTManager: %v", err)
	}

	users := identity.NewMemoryStore()
	user, err := users.CreateUser(context.Background(), identity.CreateUserInput{
		Username: "alice",
		Email:    "alice@x.com",
		Password: "pw123",
		Challenge: identity.Challenge{
			CodeHash:  "h",
			ExpiresAt: time.Now().UTC().Add(10 * time.Minute),
		},
		Now: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	return NewService(cfg, NewMemoryStore(), users, mgr), user
}

func TestService_IssueAndRotate(t *testing.T) {
	svc, user := testService(t)
	ctx := context.Background()
	now := time.Now().UTC()

	issued, err := svc.Issue(ctx, now, user)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if issued.AccessToken == "" || issued.RefreshToken == "" {
		t.Fatalf("expected both tokens, got %+v", issued)
	}

	claims, err := svc.VerifyAccess(issued.AccessToken, now)
	if err != nil {
		t.Fatalf("VerifyAccess: %v", err)
	}
	if claims.UserID() != user.ID || claims.Username != "alice" {
		t.Fatalf("claim mismatch: %+v", claims)
	}

	rotated, got, err := svc.Rotate(ctx, now.Add(time.Minute), issued.RefreshToken)
	if err != nil {
		t.Fatalf("Rotate: %v", err)
	}
	if got.ID != user.ID {
		t.Fatalf("rotated user mismatch: %q", got.ID)
	}
	if rotated.RefreshToken == issued.RefreshToken {
		t.Fatalf("rotation must mint a new refresh token")
	}
}

func TestService_Rotate_ReuseRevokesFamily(t *testing.T) {
	svc, user := testService(t)
	ctx := context.Background()
	now := time.Now().UTC()

	issued, err := svc.Issue(ctx, now, user)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	rotated, _, err := svc.Rotate(ctx, now.Add(time.Minute), issued.RefreshToken)
	if err != nil {
		t.Fatalf("Rotate: %v", err)
	}

	// The original token was replaced; presenting it again is reuse.
	_, _, err = svc.Rotate(ctx, now.Add(2*time.Minute), issued.RefreshToken)
	if !errors.Is(err, ErrReuseDetected) {
		t.Fatalf("expected ErrReuseDetected, got %v", err)
	}

	// Reuse kills the whole family, including the live successor.
	_, _, err = svc.Rotate(ctx, now.Add(3*time.Minute), rotated.RefreshToken)
	if !errors.Is(err, ErrTokenRevoked) {
		t.Fatalf("expected ErrTokenRevoked after family revocation, got %v", err)
	}
}

func TestService_Rotate_Expired(t *testing.T) {
	svc, user := testService(t)
	ctx := context.Background()
	now := time.Now().UTC()

	issued, err := svc.Issue(ctx, now, user)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	_, _, err = svc.Rotate(ctx, now.Add(DefaultConfig().RefreshTokenTTL+time.Hour), issued.RefreshToken)
	if !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
}

func TestService_Rotate_Unknown(t *testing.T) {
	svc, _ := testService(t)

	_, _, err := svc.Rotate(context.Background(), time.Now().UTC(), "no-such-token")
	if !errors.Is(err, ErrTokenNotFound) {
		t.Fatalf("expected ErrTokenNotFound, got %v", err)
	}
}

func TestService_Revoke_Idempotent(t *testing.T) {
	svc, user := testService(t)
	ctx := context.Background()
	now := time.Now().UTC()

	issued, err := svc.Issue(ctx, now, user)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	if err := svc.Revoke(ctx, now, issued.RefreshToken); err != nil {
		t.Fatalf("Revoke: %v", err)
	}
	if err := svc.Revoke(ctx, now, issued.RefreshToken); err != nil {
		t.Fatalf("second Revoke should be a no-op: %v", err)
	}
	if err := svc.Revoke(ctx, now, "never-issued"); err != nil {
		t.Fatalf("Revoke of unknown token should be a no-op: %v", err)
	}

	_, _, err = svc.Rotate(ctx, now.Add(time.Minute), issued.RefreshToken)
	if !errors.Is(err, ErrTokenRevoked) {
		t.Fatalf("expected ErrTokenRevoked after logout, got %v", err)
	}
}
