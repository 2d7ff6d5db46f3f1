package session

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"chitter/cmd/identity"
)

// Integration tests are enabled when CHITTER_DATABASE_URL is set and points
// at a migrated database. Without it they skip, keeping local runs fast.

func integrationPool(ctx context.Context, t *testing.T) *pgxpool.Pool {
	t.Helper()

	dbURL := os.Getenv("CHITTER_DATABASE_URL")
	if dbURL == "" {
		t.Skip("CHITTER_DATABASE_URL is not set; skipping Postgres integration test")
	}

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		t.Fatalf("pgxpool.New: %v", err)
	}
	t.Cleanup(pool.Close)

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		t.Skipf("Postgres unreachable (CHITTER_DATABASE_URL set): %v", err)
	}
	return pool
}

func integrationService(ctx context.Context, t *testing.T, pool *pgxpool.Pool) (*Service, identity.User) {
	t.Helper()

	t.Setenv("CHITTER_ARGON2_MEMORY_KIB", "8192")
	t.Setenv("CHITTER_ARGON2_ITERATIONS", "1")

	cfg := DefaultConfig()
	cfg.JWTSecret = []byte(testSecret)
	tokens, err := NewJWTManager(cfg)
	if err != nil {
		t.Fatalf("NewJWTManager: %v", err)
	}

	users, err := identity.NewPostgresStore(pool)
	if err != nil {
		t.Fatalf("identity.NewPostgresStore: %v", err)
	}

	now := time.Now().UTC()
	suffix, err := identity.NewULID(now)
	if err != nil {
		t.Fatalf("NewULID: %v", err)
	}
	suffix = strings.ToLower(suffix)

	user, err := users.CreateUser(ctx, identity.CreateUserInput{
		Username: "it_" + suffix,
		Email:    "it_" + suffix + "@example.com",
		Password: "pw-integration-1",
		Challenge: identity.Challenge{
			CodeHash:  strings.Repeat("0", 64),
			ExpiresAt: now.Add(10 * time.Minute),
		},
		Now: now,
	})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	t.Cleanup(func() {
		_, _ = pool.Exec(context.Background(), `DELETE FROM refresh_tokens WHERE user_id = $1`, user.ID)
		_, _ = pool.Exec(context.Background(), `DELETE FROM users WHERE id = $1`, user.ID)
	})

	if err := users.MarkVerified(ctx, user.ID, now); err != nil {
		t.Fatalf("MarkVerified: %v", err)
	}
	user.VerifiedAt = &now

	return NewService(cfg, NewPostgresStore(pool), users, tokens), user
}

func TestPostgresStore_IssueAndRotate(t *testing.T) {
	ctx := context.Background()
	pool := integrationPool(ctx, t)
	svc, user := integrationService(ctx, t, pool)

	now := time.Now().UTC()

	issued1, err := svc.Issue(ctx, now, user)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if issued1.AccessToken == "" || issued1.RefreshToken == "" {
		t.Fatalf("expected non-empty tokens")
	}

	issued2, rotatedUser, err := svc.Rotate(ctx, now.Add(time.Second), issued1.RefreshToken)
	if err != nil {
		t.Fatalf("Rotate: %v", err)
	}
	if rotatedUser.ID != user.ID {
		t.Fatalf("rotated user mismatch: %q vs %q", rotatedUser.ID, user.ID)
	}
	if issued2.RefreshToken == issued1.RefreshToken {
		t.Fatalf("expected a new refresh token")
	}

	old, err := svc.store.GetByHash(ctx, hashRefreshTokenHex(issued1.RefreshToken))
	if err != nil {
		t.Fatalf("GetByHash: %v", err)
	}
	if !old.Revoked || old.ReplacedBy == nil {
		t.Fatalf("expected predecessor revoked with successor link, got %+v", old)
	}
}

func TestPostgresStore_ReuseRevokesFamily(t *testing.T) {
	ctx := context.Background()
	pool := integrationPool(ctx, t)
	svc, user := integrationService(ctx, t, pool)

	now := time.Now().UTC()

	issued1, err := svc.Issue(ctx, now, user)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	issued2, _, err := svc.Rotate(ctx, now.Add(time.Second), issued1.RefreshToken)
	if err != nil {
		t.Fatalf("Rotate: %v", err)
	}

	// Replay of the rotated-away token.
	if _, _, err := svc.Rotate(ctx, now.Add(2*time.Second), issued1.RefreshToken); !errors.Is(err, ErrReuseDetected) {
		t.Fatalf("expected ErrReuseDetected, got %v", err)
	}

	// The successor must have been revoked with the rest of the family.
	if _, _, err := svc.Rotate(ctx, now.Add(3*time.Second), issued2.RefreshToken); !errors.Is(err, ErrTokenRevoked) {
		t.Fatalf("expected ErrTokenRevoked for successor, got %v", err)
	}
}

func TestPostgresStore_RevokeIdempotent(t *testing.T) {
	ctx := context.Background()
	pool := integrationPool(ctx, t)
	svc, user := integrationService(ctx, t, pool)

	now := time.Now().UTC()

	issued, err := svc.Issue(ctx, now, user)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	if err := svc.Revoke(ctx, now.Add(time.Second), issued.RefreshToken); err != nil {
		t.Fatalf("Revoke: %v", err)
	}
	if err := svc.Revoke(ctx, now.Add(2*time.Second), issued.RefreshToken); err != nil {
		t.Fatalf("second Revoke should be a no-op, got %v", err)
	}

	if _, _, err := svc.Rotate(ctx, now.Add(3*time.Second), issued.RefreshToken); !errors.Is(err, ErrTokenRevoked) {
		t.Fatalf("expected ErrTokenRevoked after revoke, got %v", err)
	}
}
