package session

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore implements Store using PostgreSQL (refresh_tokens).
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a Postgres-backed refresh token store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Create inserts a new refresh token row.
func (s *PostgresStore) Create(ctx context.Context, t Token) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO refresh_tokens (
			token_hash, user_id, created_at, expires_at,
			revoked, revoked_at, replaced_by
		) VALUES ($1, $2, $3, $4, FALSE, NULL, NULL)
	`, t.Hash, t.UserID, t.CreatedAt, t.ExpiresAt)
	return err
}

// GetByHash loads a refresh token row by its stored hash.
func (s *PostgresStore) GetByHash(ctx context.Context, hash string) (Token, error) {
	return getByHash(ctx, s.pool, hash)
}

// Rotate claims the old token with a conditional update inside a single
// transaction, then inserts the successor and links replaced_by.
//
// The conditional update is the arbiter for concurrent rotations: only
// one caller flips revoked FALSE -> TRUE, everyone else loses the claim.
// A loser re-reads the row after the winner committed, finds replaced_by
// set, and takes the reuse path: the whole family is revoked, including
// the winner's fresh token. A benign double-fired refresh therefore ends
// in a re-login; it cannot be told apart from a stolen token.
func (s *PostgresStore) Rotate(ctx context.Context, now time.Time, oldHash, newHash string, newExpiresAt time.Time) (string, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return "", err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var userID string
	err = tx.QueryRow(ctx, `
		UPDATE refresh_tokens
		SET revoked = TRUE,
		    revoked_at = $2,
		    replaced_by = $3
		WHERE token_hash = $1
		  AND revoked = FALSE
		  AND expires_at > $2
		RETURNING user_id
	`, oldHash, now, newHash).Scan(&userID)

	if errors.Is(err, pgx.ErrNoRows) {
		// Claim failed. Re-read the row to tell apart missing, expired,
		// revoked, and reuse of an already-rotated token.
		old, getErr := getByHash(ctx, tx, oldHash)
		if getErr != nil {
			return "", getErr
		}
		if !old.ExpiresAt.After(now) && !old.Revoked {
			return "", ErrTokenExpired
		}
		if old.ReplacedBy != nil {
			// A rotated token presented again is a stolen-token signal.
			// Kill the whole family before reporting it.
			if err := revokeAllForUserTx(ctx, tx, now, old.UserID); err != nil {
				return "", err
			}
			if err := tx.Commit(ctx); err != nil {
				return "", err
			}
			return "", ErrReuseDetected
		}
		return "", ErrTokenRevoked
	}
	if err != nil {
		return "", err
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO refresh_tokens (
			token_hash, user_id, created_at, expires_at,
			revoked, revoked_at, replaced_by
		) VALUES ($1, $2, $3, $4, FALSE, NULL, NULL)
	`, newHash, userID, now, newExpiresAt)
	if err != nil {
		return "", err
	}

	if err := tx.Commit(ctx); err != nil {
		return "", err
	}

	return userID, nil
}

// Revoke revokes a single refresh token (idempotent).
func (s *PostgresStore) Revoke(ctx context.Context, now time.Time, hash string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE refresh_tokens
		SET revoked = TRUE,
		    revoked_at = COALESCE(revoked_at, $2)
		WHERE token_hash = $1
	`, hash, now)
	return err
}

// RevokeAllForUser revokes all refresh tokens for a user (idempotent).
func (s *PostgresStore) RevokeAllForUser(ctx context.Context, now time.Time, userID string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE refresh_tokens
		SET revoked = TRUE,
		    revoked_at = COALESCE(revoked_at, $2)
		WHERE user_id = $1
	`, userID, now)
	return err
}

type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func getByHash(ctx context.Context, q querier, hash string) (Token, error) {
	var t Token

	err := q.QueryRow(ctx, `
		SELECT token_hash, user_id, created_at, expires_at,
		       revoked, revoked_at, replaced_by
		FROM refresh_tokens
		WHERE token_hash = $1
	`, hash).Scan(
		&t.Hash,
		&t.UserID,
		&t.CreatedAt,
		&t.ExpiresAt,
		&t.Revoked,
		&t.RevokedAt,
		&t.ReplacedBy,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Token{}, ErrTokenNotFound
	}
	if err != nil {
		return Token{}, err
	}

	return t, nil
}

func revokeAllForUserTx(ctx context.Context, tx pgx.Tx, now time.Time, userID string) error {
	_, err := tx.Exec(ctx, `
		UPDATE refresh_tokens
		SET revoked = TRUE,
		    revoked_at = COALESCE(revoked_at, $2)
		WHERE user_id = $1
	`, userID, now)
	return err
}
