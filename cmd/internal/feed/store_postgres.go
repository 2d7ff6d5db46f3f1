package feed

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore implements Store using PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a Postgres-backed feed store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postColumns = `id, user_id, username, body, created_at, like_count, comment_count`

// CreatePost inserts a new post with zeroed counters.
func (s *PostgresStore) CreatePost(ctx context.Context, p Post) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO posts (id, user_id, username, body, created_at, like_count, comment_count)
		VALUES ($1, $2, $3, $4, $5, 0, 0)
	`, p.ID, p.UserID, p.Username, p.Body, p.CreatedAt)
	return err
}

// GetPost loads a single post by ID.
func (s *PostgresStore) GetPost(ctx context.Context, id string) (Post, error) {
	var p Post
	err := s.pool.QueryRow(ctx, `
		SELECT `+postColumns+`
		FROM posts
		WHERE id = $1
	`, id).Scan(&p.ID, &p.UserID, &p.Username, &p.Body, &p.CreatedAt, &p.LikeCount, &p.CommentCount)
	if errors.Is(err, pgx.ErrNoRows) {
		return Post{}, ErrPostNotFound
	}
	if err != nil {
		return Post{}, err
	}
	return p, nil
}

// ListHomeFeed returns the newest posts authored by any of authorIDs.
func (s *PostgresStore) ListHomeFeed(ctx context.Context, authorIDs []string, limit int) ([]Post, error) {
	if len(authorIDs) == 0 {
		return []Post{}, nil
	}
	rows, err := s.pool.Query(ctx, `
		SELECT `+postColumns+`
		FROM posts
		WHERE user_id = ANY($1)
		ORDER BY created_at DESC
		LIMIT $2
	`, authorIDs, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanPosts(rows)
}

// AddComment appends a comment and bumps the post's comment counter in the
// same transaction.
func (s *PostgresStore) AddComment(ctx context.Context, c Comment) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx, `
		UPDATE posts
		SET comment_count = comment_count + 1
		WHERE id = $1
	`, c.PostID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() != 1 {
		return ErrPostNotFound
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO comments (id, post_id, user_id, username, body, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, c.ID, c.PostID, c.UserID, c.Username, c.Body, c.CreatedAt)
	if err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// ListComments returns a post's comments, oldest first.
func (s *PostgresStore) ListComments(ctx context.Context, postID string) ([]Comment, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, post_id, user_id, username, body, created_at
		FROM comments
		WHERE post_id = $1
		ORDER BY created_at ASC
	`, postID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	comments := []Comment{}
	for rows.Next() {
		var c Comment
		if err := rows.Scan(&c.ID, &c.PostID, &c.UserID, &c.Username, &c.Body, &c.CreatedAt); err != nil {
			return nil, err
		}
		comments = append(comments, c)
	}
	return comments, rows.Err()
}

// Like registers the (postID, userID) membership if absent. The primary key
// on the pair is the arbiter under concurrent retries; the counter moves
// only when this call actually created the row.
func (s *PostgresStore) Like(ctx context.Context, postID, userID string) (LikeResult, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return LikeResult{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := postExistsTx(ctx, tx, postID); err != nil {
		return LikeResult{}, err
	}

	tag, err := tx.Exec(ctx, `
		INSERT INTO likes (post_id, user_id, created_at)
		VALUES ($1, $2, $3)
		ON CONFLICT DO NOTHING
	`, postID, userID, time.Now().UTC())
	if err != nil {
		return LikeResult{}, err
	}
	created := tag.RowsAffected() == 1

	if created {
		if _, err := tx.Exec(ctx, `
			UPDATE posts
			SET like_count = like_count + 1
			WHERE id = $1
		`, postID); err != nil {
			return LikeResult{}, err
		}
	}

	// Read the counter back so the caller sees the authoritative value.
	count, err := likeCountTx(ctx, tx, postID)
	if err != nil {
		return LikeResult{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return LikeResult{}, err
	}

	return LikeResult{Changed: created, Count: count}, nil
}

// Unlike removes the membership if present. The counter decrement is
// clamped so a stray delete can never drive it negative.
func (s *PostgresStore) Unlike(ctx context.Context, postID, userID string) (LikeResult, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return LikeResult{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := postExistsTx(ctx, tx, postID); err != nil {
		return LikeResult{}, err
	}

	tag, err := tx.Exec(ctx, `
		DELETE FROM likes
		WHERE post_id = $1 AND user_id = $2
	`, postID, userID)
	if err != nil {
		return LikeResult{}, err
	}
	deleted := tag.RowsAffected() == 1

	if deleted {
		if _, err := tx.Exec(ctx, `
			UPDATE posts
			SET like_count = like_count - 1
			WHERE id = $1 AND like_count > 0
		`, postID); err != nil {
			return LikeResult{}, err
		}
	}

	count, err := likeCountTx(ctx, tx, postID)
	if err != nil {
		return LikeResult{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return LikeResult{}, err
	}

	return LikeResult{Changed: deleted, Count: count}, nil
}

// SetBookmark sets, clears, or toggles the caller's bookmark on a post.
func (s *PostgresStore) SetBookmark(ctx context.Context, userID, postID string, want *bool) (bool, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := postExistsTx(ctx, tx, postID); err != nil {
		return false, err
	}

	bookmarked := false
	switch {
	case want == nil:
		// Toggle: try to create; if it already existed, clear it instead.
		tag, err := tx.Exec(ctx, `
			INSERT INTO bookmarks (user_id, post_id, created_at)
			VALUES ($1, $2, $3)
			ON CONFLICT DO NOTHING
		`, userID, postID, time.Now().UTC())
		if err != nil {
			return false, err
		}
		if tag.RowsAffected() == 1 {
			bookmarked = true
		} else {
			if _, err := tx.Exec(ctx, `
				DELETE FROM bookmarks
				WHERE user_id = $1 AND post_id = $2
			`, userID, postID); err != nil {
				return false, err
			}
		}
	case *want:
		if _, err := tx.Exec(ctx, `
			INSERT INTO bookmarks (user_id, post_id, created_at)
			VALUES ($1, $2, $3)
			ON CONFLICT DO NOTHING
		`, userID, postID, time.Now().UTC()); err != nil {
			return false, err
		}
		bookmarked = true
	default:
		if _, err := tx.Exec(ctx, `
			DELETE FROM bookmarks
			WHERE user_id = $1 AND post_id = $2
		`, userID, postID); err != nil {
			return false, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return false, err
	}

	return bookmarked, nil
}

// ListBookmarks returns the user's bookmarked posts, newest bookmark first.
func (s *PostgresStore) ListBookmarks(ctx context.Context, userID string) ([]Post, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT p.id, p.user_id, p.username, p.body, p.created_at, p.like_count, p.comment_count
		FROM posts p
		JOIN bookmarks b ON b.post_id = p.id
		WHERE b.user_id = $1
		ORDER BY b.created_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanPosts(rows)
}

func scanPosts(rows pgx.Rows) ([]Post, error) {
	posts := []Post{}
	for rows.Next() {
		var p Post
		if err := rows.Scan(&p.ID, &p.UserID, &p.Username, &p.Body, &p.CreatedAt, &p.LikeCount, &p.CommentCount); err != nil {
			return nil, err
		}
		posts = append(posts, p)
	}
	return posts, rows.Err()
}

func postExistsTx(ctx context.Context, tx pgx.Tx, postID string) error {
	var exists bool
	if err := tx.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM posts WHERE id = $1)
	`, postID).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return ErrPostNotFound
	}
	return nil
}

func likeCountTx(ctx context.Context, tx pgx.Tx, postID string) (int, error) {
	var count int
	err := tx.QueryRow(ctx, `
		SELECT like_count FROM posts WHERE id = $1
	`, postID).Scan(&count)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrPostNotFound
	}
	return count, err
}
