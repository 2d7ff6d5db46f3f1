package identity

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

// MemoryStore is an in-memory Store used by unit tests and DB-less dev runs.
// It mirrors the Postgres store's conditional-write semantics under a single
// mutex, so races resolve the same way: exactly one writer wins.
type MemoryStore struct {
	mu    sync.Mutex
	users map[string]*User // by id
}

// NewMemoryStore constructs an empty in-memory credential store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{users: make(map[string]*User)}
}

// CreateUser creates an unverified user with a pending challenge.
func (s *MemoryStore) CreateUser(ctx context.Context, in CreateUserInput) (User, error) {
	const op = "identity.CreateUser"

	if err := ctx.Err(); err != nil {
		return User{}, err
	}

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

	id, err := NewULID(now)
	if err != nil {
		return User{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	unorm := NormalizeUsername(username)
	enorm := NormalizeEmail(email)
	for _, u := range s.users {
		if u.UsernameNorm == unorm {
			return User{}, ConflictError{Op: op, Field: "username"}
		}
		if u.EmailNorm == enorm {
			return User{}, ConflictError{Op: op, Field: "email"}
		}
	}

	u := &User{
		ID:           id,
		Username:     username,
		UsernameNorm: unorm,
		Email:        email,
		EmailNorm:    enorm,
		PasswordHash: pwHash,
		Roles:        []string{"user"},
		CreatedAt:    now,
		Challenge: &Challenge{
			CodeHash:  in.Challenge.CodeHash,
			ExpiresAt: in.Challenge.ExpiresAt,
		},
		Following: []string{},
	}
	s.users[id] = u

	return cloneUser(u), nil
}

// GetUserByID loads a user by id.
func (s *MemoryStore) GetUserByID(ctx context.Context, id string) (User, error) {
	if err := ctx.Err(); err != nil {
		return User{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return User{}, NotFoundError{Op: "identity.GetUserByID", Resource: "user"}
	}
	return cloneUser(u), nil
}

// GetUserByEmail loads a user by normalized email.
func (s *MemoryStore) GetUserByEmail(ctx context.Context, email string) (User, error) {
	if err := ctx.Err(); err != nil {
		return User{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	norm := NormalizeEmail(email)
	for _, u := range s.users {
		if u.EmailNorm == norm {
			return cloneUser(u), nil
		}
	}
	return User{}, NotFoundError{Op: "identity.GetUserByEmail", Resource: "user"}
}

// MarkVerified flips the user to verified and clears challenge state.
func (s *MemoryStore) MarkVerified(ctx context.Context, userID string, now time.Time) error {
	const op = "identity.MarkVerified"

	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[userID]
	if !ok {
		return NotFoundError{Op: op, Resource: "user"}
	}
	if u.VerifiedAt != nil {
		return OpError{Op: op, Kind: ErrAlreadyVerified}
	}

	ts := now
	u.VerifiedAt = &ts
	u.Challenge = nil
	return nil
}

// ReplaceChallenge installs a new code hash/expiry and bumps the resend counter.
func (s *MemoryStore) ReplaceChallenge(ctx context.Context, userID string, codeHash string, expiresAt time.Time, now time.Time) error {
	const op = "identity.ReplaceChallenge"

	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[userID]
	if !ok {
		return NotFoundError{Op: op, Resource: "user"}
	}
	if u.VerifiedAt != nil {
		return OpError{Op: op, Kind: ErrAlreadyVerified}
	}

	count := 0
	if u.Challenge != nil {
		count = u.Challenge.ResendCount
	}
	ts := now
	u.Challenge = &Challenge{
		CodeHash:     codeHash,
		ExpiresAt:    expiresAt,
		ResendCount:  count + 1,
		LastResendAt: &ts,
	}
	return nil
}

// Follow adds followeeID to the follower's following set (idempotent).
func (s *MemoryStore) Follow(ctx context.Context, followerID, followeeID string) error {
	const op = "identity.Follow"

	if err := ctx.Err(); err != nil {
		return err
	}
	if followerID == followeeID {
		return OpError{Op: op, Kind: ErrInvalidInput, Msg: "cannot follow self"}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[followeeID]; !ok {
		return NotFoundError{Op: op, Resource: "user"}
	}
	u, ok := s.users[followerID]
	if !ok {
		return NotFoundError{Op: op, Resource: "follower"}
	}
	for _, f := range u.Following {
		if f == followeeID {
			return nil
		}
	}
	u.Following = append(u.Following, followeeID)
	return nil
}

// ListSuggested returns users the given user does not follow yet.
func (s *MemoryStore) ListSuggested(ctx context.Context, userID string, limit int) ([]User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 20
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var self *User
	if u, ok := s.users[userID]; ok {
		self = u
	}

	var out []User
	for id, u := range s.users {
		if id == userID {
			continue
		}
		if self != nil && self.Follows(id) {
			continue
		}
		out = append(out, cloneUser(u))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func cloneUser(u *User) User {
	out := *u
	out.Roles = append([]string(nil), u.Roles...)
	out.Following = append([]string(nil), u.Following...)
	if u.VerifiedAt != nil {
		ts := *u.VerifiedAt
		out.VerifiedAt = &ts
	}
	if u.Challenge != nil {
		ch := *u.Challenge
		if u.Challenge.LastResendAt != nil {
			lr := *u.Challenge.LastResendAt
			ch.LastResendAt = &lr
		}
		out.Challenge = &ch
	}
	return out
}
