package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore implements the credential store over PostgreSQL.
//
// Design notes:
//   - The pgx pool is owned by the caller; this store must NOT close it.
//   - Every method is a single conditional statement (or a short transaction);
//     row counts from conditional writes decide races, never prior reads.
//   - Unique violations are classified into typed ConflictError values.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore constructs a PostgresStore.
func NewPostgresStore(pool *pgxpool.Pool) (*PostgresStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("identity: nil pool")
	}
	return &PostgresStore{pool: pool}, nil
}

const userColumns = `
	id, username, username_norm, email, email_norm, password_hash, roles,
	created_at, verified_at, code_hash, code_expires_at, resend_count,
	last_resend_at, following`

// CreateUser creates an unverified user carrying its initial challenge.
func (s *PostgresStore) CreateUser(ctx context.Context, in CreateUserInput) (User, error) {
	const op = "identity.CreateUser"

	username := strings.TrimSpace(in.Username)
	email := strings.TrimSpace(in.Email)
	if username == "" || email == "" {
		return User{}, OpError{Op: op, Kind: ErrInvalidInput, Msg: "username and email are required"}
	}
	if strings.TrimSpace(in.Password) == "" {
		return User{}, OpError{Op: op, Kind: ErrInvalidInput, Msg: "password is required"}
	}
	if in.Challenge.CodeHash == "" {
		return User{}, OpError{Op: op, Kind: ErrInvalidInput, Msg: "challenge is required"}
	}

	now := in.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	pwHash, err := HashPassword(in.Password)
	if err != nil {
		return User{}, OpError{Op: op, Kind: ErrInvalidInput, Msg: err.Error()}
	}

	userID, err := NewULID(now)
	if err != nil {
		return User{}, err
	}

	roles := []string{"user"}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO users (
			id, username, username_norm, email, email_norm, password_hash,
			roles, created_at, verified_at, code_hash, code_expires_at,
			resend_count, last_resend_at, following
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NULL, $9, $10, 0, NULL, '{}')
	`,
		userID, username, NormalizeUsername(username), email, NormalizeEmail(email),
		pwHash, roles, now, in.Challenge.CodeHash, in.Challenge.ExpiresAt,
	)
	if err != nil {
		if field, ok := classifyUniqueViolation(err); ok {
			return User{}, ConflictError{Op: op, Field: field}
		}
		return User{}, err
	}

	return User{
		ID:           userID,
		Username:     username,
		UsernameNorm: NormalizeUsername(username),
		Email:        email,
		EmailNorm:    NormalizeEmail(email),
		PasswordHash: pwHash,
		Roles:        roles,
		CreatedAt:    now,
		Challenge: &Challenge{
			CodeHash:  in.Challenge.CodeHash,
			ExpiresAt: in.Challenge.ExpiresAt,
		},
		Following: []string{},
	}, nil
}

// GetUserByID loads a user by id.
func (s *PostgresStore) GetUserByID(ctx context.Context, id string) (User, error) {
	const op = "identity.GetUserByID"

	row := s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	u, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, NotFoundError{Op: op, Resource: "user"}
	}
	if err != nil {
		return User{}, err
	}
	return u, nil
}

// GetUserByEmail loads a user by normalized email.
func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (User, error) {
	const op = "identity.GetUserByEmail"

	row := s.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE email_norm = $1`,
		NormalizeEmail(email),
	)
	u, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, NotFoundError{Op: op, Resource: "user"}
	}
	if err != nil {
		return User{}, err
	}
	return u, nil
}

// MarkVerified flips the user to verified and clears challenge state in one
// conditional write. The row count decides a concurrent verification race.
func (s *PostgresStore) MarkVerified(ctx context.Context, userID string, now time.Time) error {
	const op = "identity.MarkVerified"

	ct, err := s.pool.Exec(ctx, `
		UPDATE users
		SET verified_at = $2,
		    code_hash = NULL,
		    code_expires_at = NULL,
		    resend_count = 0,
		    last_resend_at = NULL
		WHERE id = $1
		  AND verified_at IS NULL
	`, userID, now)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 1 {
		return nil
	}
	return s.verifiedOrMissing(ctx, op, userID)
}

// ReplaceChallenge installs a new code hash/expiry and bumps the resend
// counter atomically.
func (s *PostgresStore) ReplaceChallenge(ctx context.Context, userID string, codeHash string, expiresAt time.Time, now time.Time) error {
	const op = "identity.ReplaceChallenge"

	ct, err := s.pool.Exec(ctx, `
		UPDATE users
		SET code_hash = $2,
		    code_expires_at = $3,
		    resend_count = resend_count + 1,
		    last_resend_at = $4
		WHERE id = $1
		  AND verified_at IS NULL
	`, userID, codeHash, expiresAt, now)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 1 {
		return nil
	}
	return s.verifiedOrMissing(ctx, op, userID)
}

// Follow adds followeeID to the follower's following set.
// The WHERE clause enforces set semantics and the no-self-follow invariant;
// array_append under that condition cannot produce duplicates even under
// concurrent requests because the row update is atomic.
func (s *PostgresStore) Follow(ctx context.Context, followerID, followeeID string) error {
	const op = "identity.Follow"

	if followerID == followeeID {
		return OpError{Op: op, Kind: ErrInvalidInput, Msg: "cannot follow self"}
	}

	ct, err := s.pool.Exec(ctx, `
		UPDATE users
		SET following = array_append(following, $2)
		WHERE id = $1
		  AND NOT ($2 = ANY(following))
		  AND EXISTS (SELECT 1 FROM users f WHERE f.id = $2)
	`, followerID, followeeID)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 1 {
		return nil
	}

	// Disambiguate the no-op: missing followee and missing follower are
	// errors; an existing follow edge is an idempotent success.
	var exists bool
	if err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`, followeeID,
	).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return NotFoundError{Op: op, Resource: "user"}
	}
	if err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`, followerID,
	).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return NotFoundError{Op: op, Resource: "follower"}
	}
	return nil
}

// ListSuggested returns users the given user does not follow yet.
func (s *PostgresStore) ListSuggested(ctx context.Context, userID string, limit int) ([]User, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.pool.Query(ctx, `
		SELECT `+userColumns+`
		FROM users u
		WHERE u.id <> $1
		  AND NOT (u.id = ANY(COALESCE((SELECT following FROM users WHERE id = $1), '{}')))
		ORDER BY u.created_at DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (s *PostgresStore) verifiedOrMissing(ctx context.Context, op, userID string) error {
	var exists bool
	if err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`, userID,
	).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return NotFoundError{Op: op, Resource: "user"}
	}
	return OpError{Op: op, Kind: ErrAlreadyVerified}
}

type rowScanner interface {
	Scan(dest ...any) error
}

// scanUser folds the nullable challenge columns into the Challenge variant:
// a non-null code hash materializes the struct, the remaining columns fill it.
func scanUser(row rowScanner) (User, error) {
	var (
		u            User
		codeHash     *string
		codeExpires  *time.Time
		resendCount  int
		lastResendAt *time.Time
	)
	err := row.Scan(
		&u.ID, &u.Username, &u.UsernameNorm, &u.Email, &u.EmailNorm,
		&u.PasswordHash, &u.Roles, &u.CreatedAt, &u.VerifiedAt,
		&codeHash, &codeExpires, &resendCount, &lastResendAt,
		&u.Following,
	)
	if err != nil {
		return User{}, err
	}
	if codeHash != nil {
		ch := &Challenge{
			CodeHash:     *codeHash,
			ResendCount:  resendCount,
			LastResendAt: lastResendAt,
		}
		if codeExpires != nil {
			ch.ExpiresAt = *codeExpires
		}
		u.Challenge = ch
	}
	return u, nil
}

// classifyUniqueViolation maps a Postgres 23505 error to a logical field name.
func classifyUniqueViolation(err error) (string, bool) {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return "", false
	}
	if pgErr.Code != "23505" {
		return "", false
	}
	switch {
	case strings.Contains(pgErr.ConstraintName, "username"):
		return "username", true
	case strings.Contains(pgErr.ConstraintName, "email"):
		return "email", true
	default:
		return pgErr.ConstraintName, true
	}
}
