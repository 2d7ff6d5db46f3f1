package feed

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

func integrationUser(ctx context.Context, t *testing.T, pool *pgxpool.Pool) identity.User {
	t.Helper()

	t.Setenv("CHITTER_ARGON2_MEMORY_KIB", "8192")
	t.Setenv("CHITTER_ARGON2_ITERATIONS", "1")

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
		Username: "feed_" + suffix,
		Email:    "feed_" + suffix + "@example.com",
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
		// Likes, bookmarks, comments, and posts cascade from users.
		_, _ = pool.Exec(context.Background(), `DELETE FROM users WHERE id = $1`, user.ID)
	})
	return user
}

func integrationPost(ctx context.Context, t *testing.T, store *PostgresStore, user identity.User) Post {
	t.Helper()

	now := time.Now().UTC()
	id, err := identity.NewULID(now)
	if err != nil {
		t.Fatalf("NewULID: %v", err)
	}
	post := Post{
		ID:        id,
		UserID:    user.ID,
		Username:  user.Username,
		Body:      "integration post",
		CreatedAt: now,
	}
	if err := store.CreatePost(ctx, post); err != nil {
		t.Fatalf("CreatePost: %v", err)
	}
	return post
}

func TestPostgresStore_LikeIdempotent(t *testing.T) {
	ctx := context.Background()
	pool := integrationPool(ctx, t)
	user := integrationUser(ctx, t, pool)

	store := NewPostgresStore(pool)
	post := integrationPost(ctx, t, store, user)

	res, err := store.Like(ctx, post.ID, user.ID)
	if err != nil {
		t.Fatalf("Like: %v", err)
	}
	if !res.Changed || res.Count != 1 {
		t.Fatalf("first like: got %+v", res)
	}

	res, err = store.Like(ctx, post.ID, user.ID)
	if err != nil {
		t.Fatalf("repeat Like: %v", err)
	}
	if res.Changed || res.Count != 1 {
		t.Fatalf("repeat like must not change the counter: got %+v", res)
	}

	res, err = store.Unlike(ctx, post.ID, user.ID)
	if err != nil {
		t.Fatalf("Unlike: %v", err)
	}
	if !res.Changed || res.Count != 0 {
		t.Fatalf("unlike: got %+v", res)
	}

	res, err = store.Unlike(ctx, post.ID, user.ID)
	if err != nil {
		t.Fatalf("repeat Unlike: %v", err)
	}
	if res.Changed || res.Count != 0 {
		t.Fatalf("repeat unlike must stay clamped at zero: got %+v", res)
	}
}

func TestPostgresStore_LikeMissingPost(t *testing.T) {
	ctx := context.Background()
	pool := integrationPool(ctx, t)
	user := integrationUser(ctx, t, pool)

	store := NewPostgresStore(pool)

	missing, err := identity.NewULID(time.Now().UTC())
	if err != nil {
		t.Fatalf("NewULID: %v", err)
	}
	if _, err := store.Like(ctx, missing, user.ID); !errors.Is(err, ErrPostNotFound) {
		t.Fatalf("expected ErrPostNotFound, got %v", err)
	}
}

func TestPostgresStore_BookmarkToggle(t *testing.T) {
	ctx := context.Background()
	pool := integrationPool(ctx, t)
	user := integrationUser(ctx, t, pool)

	store := NewPostgresStore(pool)
	post := integrationPost(ctx, t, store, user)

	on, err := store.SetBookmark(ctx, user.ID, post.ID, nil)
	if err != nil {
		t.Fatalf("toggle on: %v", err)
	}
	if !on {
		t.Fatalf("first toggle should bookmark")
	}

	off, err := store.SetBookmark(ctx, user.ID, post.ID, nil)
	if err != nil {
		t.Fatalf("toggle off: %v", err)
	}
	if off {
		t.Fatalf("second toggle should remove the bookmark")
	}

	want := true
	on, err = store.SetBookmark(ctx, user.ID, post.ID, &want)
	if err != nil || !on {
		t.Fatalf("explicit set: %v on=%v", err, on)
	}
	on, err = store.SetBookmark(ctx, user.ID, post.ID, &want)
	if err != nil || !on {
		t.Fatalf("explicit set must be idempotent: %v on=%v", err, on)
	}
}
