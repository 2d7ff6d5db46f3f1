package session

import (
	"context"
	"time"
)

// Token mirrors a stored refresh token row. The hash is the primary key;
// the plaintext token never touches storage.
type Token struct {
	Hash       string
	UserID     string
	CreatedAt  time.Time
	ExpiresAt  time.Time
	Revoked    bool
	RevokedAt  *time.Time
	ReplacedBy *string
}

// Active reports whether the token can still be redeemed at now.
func (t Token) Active(now time.Time) bool {
	return !t.Revoked && t.ExpiresAt.After(now)
}

// Store abstracts persistence for refresh tokens.
//
// Rotate is the linearization point for refresh: implementations must
// claim the old token with a single conditional write so that concurrent
// rotations of the same token produce exactly one winner.
type Store interface {
	// Create inserts a new refresh token row.
	Create(ctx context.Context, t Token) error

	// GetByHash loads a refresh token by its stored hash.
	GetByHash(ctx context.Context, hash string) (Token, error)

	// Rotate atomically revokes the token identified by oldHash and inserts
	// its successor. The old token is claimed with a conditional write
	// (active rows only); exactly one of several concurrent rotations wins
	// the claim.
	//
	// Presenting an already-rotated token (revoked with a successor) is
	// reuse: the implementation revokes every token for that user and
	// returns ErrReuseDetected. A claim loser therefore also lands on the
	// reuse path, because by the time it re-reads the row the winner has
	// linked a successor. A double-fired refresh is indistinguishable from
	// theft and costs the user a re-login.
	Rotate(ctx context.Context, now time.Time, oldHash, newHash string, newExpiresAt time.Time) (userID string, err error)

	// Revoke revokes a single refresh token (idempotent).
	Revoke(ctx context.Context, now time.Time, hash string) error

	// RevokeAllForUser revokes all refresh tokens for a user (idempotent).
	RevokeAllForUser(ctx context.Context, now time.Time, userID string) error
}
