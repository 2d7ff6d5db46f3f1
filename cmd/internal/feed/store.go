package feed

import (
	"context"
	"time"
)

// Post is a feed entry with denormalized interaction counters.
type Post struct {
	ID           string
	UserID       string
	Username     string
	Body         string
	CreatedAt    time.Time
	LikeCount    int
	CommentCount int
}

// Comment is an append-only reply to a post.
type Comment struct {
	ID        string
	PostID    string
	UserID    string
	Username  string
	Body      string
	CreatedAt time.Time
}

// LikeResult reports the outcome of a like or unlike alongside the
// authoritative counter value read back after the write.
type LikeResult struct {
	Changed bool
	Count   int
}

// Store abstracts persistence for posts and interactions.
//
// Like and Unlike must be insert-if-absent / delete-if-present: the
// membership write and the counter adjustment belong to one logical
// transition, and the counter never goes negative.
type Store interface {
	CreatePost(ctx context.Context, p Post) error
	GetPost(ctx context.Context, id string) (Post, error)

	// ListHomeFeed returns the newest posts authored by any of authorIDs.
	ListHomeFeed(ctx context.Context, authorIDs []string, limit int) ([]Post, error)

	AddComment(ctx context.Context, c Comment) error
	ListComments(ctx context.Context, postID string) ([]Comment, error)

	// Like registers (postID, userID) if absent and bumps the counter only
	// when a row was actually created. Changed=false means the like already
	// existed and the counter was left untouched.
	Like(ctx context.Context, postID, userID string) (LikeResult, error)

	// Unlike removes the membership if present, decrementing the counter
	// with a floor of zero. Removing a non-existent like is a no-op.
	Unlike(ctx context.Context, postID, userID string) (LikeResult, error)

	// SetBookmark sets, clears, or (when want is nil) toggles the caller's
	// bookmark on a post, returning the resulting state.
	SetBookmark(ctx context.Context, userID, postID string, want *bool) (bookmarked bool, err error)

	// ListBookmarks returns the user's bookmarked posts, newest bookmark first.
	ListBookmarks(ctx context.Context, userID string) ([]Post, error)
}
