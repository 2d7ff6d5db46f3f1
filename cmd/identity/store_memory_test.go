package identity

import (
	"context"
	"errors"
	"testing"
	"time"
)

func fastArgon2(t *testing.T) {
	t.Helper()
	t.Setenv("CHITTER_ARGON2_MEMORY_KIB", "8192")
	t.Setenv("CHITTER_ARGON2_ITERATIONS", "1")
}

func newTestUser(t *testing.T, s Store, username, email string) User {
	t.Helper()
	u, err := s.CreateUser(context.Background(), CreateUserInput{
		Username: username,
		Email:    email,
		Password: "pw123",
		Challenge: Challenge{
			CodeHash:  "0000000000000000000000000000000000000000000000000000000000000000",
			ExpiresAt: time.Now().UTC().Add(10 * time.Minute),
		},
		Now: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("CreateUser(%s): %v", username, err)
	}
	return u
}

func TestMemoryStore_CreateUser_StartsUnverifiedWithChallenge(t *testing.T) {
	fastArgon2(t)
	s := NewMemoryStore()

	u := newTestUser(t, s, "alice", "alice@x.com")

	if u.Verified() {
		t.Fatalf("expected new user to be unverified")
	}
	if u.Challenge == nil {
		t.Fatalf("expected pending challenge")
	}
	if u.PasswordHash == "" || u.PasswordHash == "pw123" {
		t.Fatalf("expected hashed password, got %q", u.PasswordHash)
	}
	if len(u.Roles) != 1 || u.Roles[0] != "user" {
		t.Fatalf("unexpected roles: %v", u.Roles)
	}
}

func TestMemoryStore_CreateUser_Conflicts(t *testing.T) {
	fastArgon2(t)
	s := NewMemoryStore()

	newTestUser(t, s, "alice", "alice@x.com")

	_, err := s.CreateUser(context.Background(), CreateUserInput{
		Username:  "Alice",
		Email:     "other@x.com",
		Password:  "pw123",
		Challenge: Challenge{CodeHash: "x", ExpiresAt: time.Now().Add(time.Minute)},
	})
	if !IsConflict(err) {
		t.Fatalf("expected username conflict (case-insensitive), got %v", err)
	}

	_, err = s.CreateUser(context.Background(), CreateUserInput{
		Username:  "bob",
		Email:     "ALICE@x.com",
		Password:  "pw123",
		Challenge: Challenge{CodeHash: "x", ExpiresAt: time.Now().Add(time.Minute)},
	})
	if !IsConflict(err) {
		t.Fatalf("expected email conflict (case-insensitive), got %v", err)
	}
}

func TestMemoryStore_MarkVerified_ClearsChallengeOnce(t *testing.T) {
	fastArgon2(t)
	s := NewMemoryStore()
	ctx := context.Background()

	u := newTestUser(t, s, "alice", "alice@x.com")
	now := time.Now().UTC()

	if err := s.MarkVerified(ctx, u.ID, now); err != nil {
		t.Fatalf("MarkVerified: %v", err)
	}

	got, err := s.GetUserByID(ctx, u.ID)
	if err != nil {
		t.Fatalf("GetUserByID: %v", err)
	}
	if !got.Verified() {
		t.Fatalf("expected verified user")
	}
	if got.Challenge != nil {
		t.Fatalf("expected challenge cleared on verification")
	}

	if err := s.MarkVerified(ctx, u.ID, now); !errors.Is(err, ErrAlreadyVerified) {
		t.Fatalf("expected ErrAlreadyVerified on second verification, got %v", err)
	}
}

func TestMemoryStore_ReplaceChallenge_BumpsResendCount(t *testing.T) {
	fastArgon2(t)
	s := NewMemoryStore()
	ctx := context.Background()

	u := newTestUser(t, s, "alice", "alice@x.com")
	now := time.Now().UTC()

	for i := 1; i <= 3; i++ {
		if err := s.ReplaceChallenge(ctx, u.ID, "hash", now.Add(10*time.Minute), now); err != nil {
			t.Fatalf("ReplaceChallenge #%d: %v", i, err)
		}
	}

	got, _ := s.GetUserByID(ctx, u.ID)
	if got.Challenge == nil || got.Challenge.ResendCount != 3 {
		t.Fatalf("expected resend count 3, got %+v", got.Challenge)
	}
	if got.Challenge.LastResendAt == nil {
		t.Fatalf("expected last resend timestamp")
	}
}

func TestMemoryStore_Follow_SetSemantics(t *testing.T) {
	fastArgon2(t)
	s := NewMemoryStore()
	ctx := context.Background()

	alice := newTestUser(t, s, "alice", "alice@x.com")
	bob := newTestUser(t, s, "bob", "bob@x.com")

	if err := s.Follow(ctx, alice.ID, alice.ID); !IsInvalidInput(err) {
		t.Fatalf("expected self-follow rejection, got %v", err)
	}
	if err := s.Follow(ctx, alice.ID, "missing"); !IsNotFound(err) {
		t.Fatalf("expected not found for missing followee, got %v", err)
	}

	if err := s.Follow(ctx, alice.ID, bob.ID); err != nil {
		t.Fatalf("Follow: %v", err)
	}
	if err := s.Follow(ctx, alice.ID, bob.ID); err != nil {
		t.Fatalf("repeat Follow should be idempotent: %v", err)
	}

	got, _ := s.GetUserByID(ctx, alice.ID)
	if len(got.Following) != 1 || got.Following[0] != bob.ID {
		t.Fatalf("expected following set {bob}, got %v", got.Following)
	}
}

func TestMemoryStore_ListSuggested_ExcludesSelfAndFollowed(t *testing.T) {
	fastArgon2(t)
	s := NewMemoryStore()
	ctx := context.Background()

	alice := newTestUser(t, s, "alice", "alice@x.com")
	bob := newTestUser(t, s, "bob", "bob@x.com")
	newTestUser(t, s, "carol", "carol@x.com")

	if err := s.Follow(ctx, alice.ID, bob.ID); err != nil {
		t.Fatalf("Follow: %v", err)
	}

	got, err := s.ListSuggested(ctx, alice.ID, 10)
	if err != nil {
		t.Fatalf("ListSuggested: %v", err)
	}
	if len(got) != 1 || got[0].Username != "carol" {
		t.Fatalf("expected only carol suggested, got %v", got)
	}
}
