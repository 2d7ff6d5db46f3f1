package session

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-memory Store used by tests and local development.
// It mirrors the conditional-claim semantics of the Postgres store.
type MemoryStore struct {
	mu     sync.Mutex
	tokens map[string]*Token
}

// NewMemoryStore returns an empty in-memory refresh token store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{tokens: make(map[string]*Token)}
}

func (s *MemoryStore) Create(ctx context.Context, t Token) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cp := t
	s.tokens[t.Hash] = &cp
	return nil
}

func (s *MemoryStore) GetByHash(ctx context.Context, hash string) (Token, error) {
	if err := ctx.Err(); err != nil {
		return Token{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tokens[hash]
	if !ok {
		return Token{}, ErrTokenNotFound
	}
	return *t, nil
}

func (s *MemoryStore) Rotate(ctx context.Context, now time.Time, oldHash, newHash string, newExpiresAt time.Time) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	old, ok := s.tokens[oldHash]
	if !ok {
		return "", ErrTokenNotFound
	}

	if !old.Revoked && !old.ExpiresAt.After(now) {
		return "", ErrTokenExpired
	}
	if old.Revoked {
		if old.ReplacedBy != nil {
			for _, t := range s.tokens {
				if t.UserID == old.UserID && !t.Revoked {
					t.Revoked = true
					at := now
					t.RevokedAt = &at
				}
			}
			return "", ErrReuseDetected
		}
		return "", ErrTokenRevoked
	}

	at := now
	old.Revoked = true
	old.RevokedAt = &at
	replaced := newHash
	old.ReplacedBy = &replaced

	s.tokens[newHash] = &Token{
		Hash:      newHash,
		UserID:    old.UserID,
		CreatedAt: now,
		ExpiresAt: newExpiresAt,
	}

	return old.UserID, nil
}

func (s *MemoryStore) Revoke(ctx context.Context, now time.Time, hash string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tokens[hash]
	if !ok {
		return nil
	}
	if !t.Revoked {
		t.Revoked = true
		at := now
		t.RevokedAt = &at
	}
	return nil
}

func (s *MemoryStore) RevokeAllForUser(ctx context.Context, now time.Time, userID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, t := range s.tokens {
		if t.UserID == userID && !t.Revoked {
			t.Revoked = true
			at := now
			t.RevokedAt = &at
		}
	}
	return nil
}
