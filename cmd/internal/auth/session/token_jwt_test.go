package session

import (
	"errors"
	"testing"
	"time"
)

func testJWTManager(t *testing.T) AccessTokenManager {
	t.Helper()
	cfg := DefaultConfig()
	cfg.JWTSecret = []byte(testSecret)

	mgr, err := NewJWTManager(cfg)
	if err != nil {
		t.Fatalf("NewJWTManager: %v", err)
	}
	return mgr
}

func TestJWT_IssueAndVerify(t *testing.T) {
	mgr := testJWTManager(t)

	now := time.Now().UTC()
	tok, exp, err := mgr.Issue("01HZZZZZZZZZZZZZZZZZZZZZZZ", "alice", []string{"user"}, now)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if !exp.After(now) {
		t.Fatalf("expected exp after now")
	}

	claims, err := mgr.Verify(tok, now.Add(1*time.Second))
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if claims.UserID() != "01HZZZZZZZZZZZZZZZZZZZZZZZ" {
		t.Fatalf("subject mismatch: %q", claims.Subject)
	}
	if claims.Username != "alice" {
		t.Fatalf("username mismatch: %q", claims.Username)
	}
	if len(claims.Roles) != 1 || claims.Roles[0] != "user" {
		t.Fatalf("roles mismatch: %v", claims.Roles)
	}
}

func TestJWT_Verify_Expired(t *testing.T) {
	mgr := testJWTManager(t)

	now := time.Now().UTC()
	tok, _, err := mgr.Issue("u1", "alice", nil, now)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	_, err = mgr.Verify(tok, now.Add(DefaultConfig().AccessTokenTTL+time.Minute))
	if !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
}

func TestJWT_Verify_WrongSecret(t *testing.T) {
	mgr := testJWTManager(t)

	other := DefaultConfig()
	other.JWTSecret = []byte("ffffffffffffffffffffffffffffffff")
	otherMgr, err := NewJWTManager(other)
	if err != nil {
		t.Fatalf("NewJWTManager: %v", err)
	}

	now := time.Now().UTC()
	tok, _, err := otherMgr.Issue("u1", "alice", nil, now)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	if _, err := mgr.Verify(tok, now); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for foreign signature, got %v", err)
	}
}

func TestJWT_Verify_Garbage(t *testing.T) {
	mgr := testJWTManager(t)

	if _, err := mgr.Verify("not-a-jwt", time.Now().UTC()); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}
