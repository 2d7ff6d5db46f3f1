package identity

import (
	"context"
	"time"
)

// User is chitter's canonical security principal.
type User struct {
	ID           string
	Username     string
	UsernameNorm string
	Email        string
	EmailNorm    string
	PasswordHash string
	Roles        []string
	CreatedAt    time.Time

	// Verification state. A verified user always has a nil Challenge;
	// the store clears the challenge in the same write that sets VerifiedAt.
	VerifiedAt *time.Time
	Challenge  *Challenge

	// Following is additive set semantics: no duplicates, never the user's
	// own id (both enforced on write).
	Following []string
}

// Verified reports whether the user's email has been verified.
func (u User) Verified() bool { return u.VerifiedAt != nil }

// Follows reports whether the user follows the given user id.
func (u User) Follows(id string) bool {
	for _, f := range u.Following {
		if f == id {
			return true
		}
	}
	return false
}

// Challenge is the pending email verification challenge.
// Only the code hash is stored; the plaintext code exists once, for
// out-of-band delivery.
type Challenge struct {
	CodeHash     string
	ExpiresAt    time.Time
	ResendCount  int
	LastResendAt *time.Time
}

// CreateUserInput describes a registration request. The user is created
// unverified with the given initial challenge.
type CreateUserInput struct {
	Username  string
	Email     string
	Password  string
	Challenge Challenge
	Now       time.Time
}

// Store is the credential-store persistence boundary.
//
// Implementations must make every method a single atomic transition: callers
// run concurrently with no in-process locking, so conditional writes (not
// read-decide-write sequences) carry all the safety.
type Store interface {
	// CreateUser creates an unverified user with a pending challenge.
	// Duplicate username/email surface as ConflictError.
	CreateUser(ctx context.Context, in CreateUserInput) (User, error)

	// GetUserByID loads a user by id. Missing -> NotFoundError.
	GetUserByID(ctx context.Context, id string) (User, error)

	// GetUserByEmail loads a user by normalized email. Missing -> NotFoundError.
	GetUserByEmail(ctx context.Context, email string) (User, error)

	// MarkVerified sets the verified timestamp and clears the challenge and
	// resend bookkeeping in one write. Returns ErrAlreadyVerified when the
	// user was verified concurrently, NotFoundError when absent.
	MarkVerified(ctx context.Context, userID string, now time.Time) error

	// ReplaceChallenge installs a new code hash and expiry and atomically
	// increments the resend counter, recording now as the last resend time.
	// Fails with ErrAlreadyVerified for verified users.
	ReplaceChallenge(ctx context.Context, userID string, codeHash string, expiresAt time.Time, now time.Time) error

	// Follow adds followeeID to the follower's following set (idempotent).
	// Self-follows fail with ErrInvalidInput; a missing followee with
	// NotFoundError.
	Follow(ctx context.Context, followerID, followeeID string) error

	// ListSuggested returns up to limit users the given user does not follow
	// yet (excluding the user), newest first.
	ListSuggested(ctx context.Context, userID string, limit int) ([]User, error)
}
