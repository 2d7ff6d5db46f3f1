package session

import (
	"context"
	"strings"
	"time"

	"chitter/cmd/identity"
)

// Service implements the high-level session operations for Chitter.
//
// It issues token pairs (access + refresh), verifies access tokens,
// supports per-token and per-user revocation, and performs refresh
// rotation with reuse detection.
type Service struct {
	cfg    Config
	tokens AccessTokenManager
	store  Store

	// users is read on rotation so the new access token carries the
	// user's current username and roles, not a stale snapshot.
	users identity.Store
}

// Issued is the result of issuing or rotating a token pair.
// It includes a short-lived access token and an opaque refresh token.
type Issued struct {
	AccessToken  string
	AccessExp    time.Time
	RefreshToken string
	RefreshExp   time.Time
}

// NewService constructs a Service with the provided configuration, stores, and token manager.
func NewService(cfg Config, store Store, users identity.Store, tokens AccessTokenManager) *Service {
	return &Service{cfg: cfg, store: store, users: users, tokens: tokens}
}

// Issue creates a new refresh token row and returns a fresh token pair.
//
// Refresh tokens are opaque random strings and must never be persisted in
// plaintext. Only the hash (hex) is stored in the database.
func (s *Service) Issue(ctx context.Context, now time.Time, user identity.User) (Issued, error) {
	refreshPlain, refreshHash, err := newOpaqueRefreshToken(s.cfg.RefreshTokenBytes)
	if err != nil {
		return Issued{}, err
	}

	refreshExp := now.Add(s.cfg.RefreshTokenTTL)

	err = s.store.Create(ctx, Token{
		Hash:      refreshHash,
		UserID:    user.ID,
		CreatedAt: now,
		ExpiresAt: refreshExp,
	})
	if err != nil {
		return Issued{}, err
	}

	accessToken, accessExp, err := s.tokens.Issue(user.ID, user.Username, user.Roles, now)
	if err != nil {
		return Issued{}, err
	}

	return Issued{
		AccessToken:  accessToken,
		AccessExp:    accessExp,
		RefreshToken: refreshPlain,
		RefreshExp:   refreshExp,
	}, nil
}

// VerifyAccess verifies an access token statelessly.
//
// Revocation is enforced at the refresh boundary only; a valid access
// token is honored until it expires.
func (s *Service) VerifyAccess(token string, now time.Time) (AccessClaims, error) {
	return s.tokens.Verify(token, now)
}

// Rotate redeems a refresh token for a new token pair.
//
// Security model:
//   - The presented token is hashed in memory and claimed in the store
//     with a single conditional write. Concurrent rotations of the same
//     token resolve to exactly one winner.
//   - Presenting an already-rotated token is reuse: the store revokes
//     every token for the user and ErrReuseDetected is returned. This
//     includes the loser of a concurrent double-fired refresh, whose
//     replay is indistinguishable from theft; the cost of that false
//     positive is a forced re-login.
//   - The new access token is minted from the user's current record.
func (s *Service) Rotate(ctx context.Context, now time.Time, refreshPlain string) (Issued, identity.User, error) {
	refreshPlain = strings.TrimSpace(refreshPlain)
	// Basic sanity bounds to avoid pathological inputs.
	if refreshPlain == "" || len(refreshPlain) > 4096 {
		return Issued{}, identity.User{}, ErrTokenNotFound
	}

	// Hash the refresh token in memory (never persist the plain token).
	oldHash := hashRefreshTokenHex(refreshPlain)

	newPlain, newHash, err := newOpaqueRefreshToken(s.cfg.RefreshTokenBytes)
	if err != nil {
		return Issued{}, identity.User{}, err
	}
	newExp := now.Add(s.cfg.RefreshTokenTTL)

	userID, err := s.store.Rotate(ctx, now, oldHash, newHash, newExp)
	if err != nil {
		return Issued{}, identity.User{}, err
	}

	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return Issued{}, identity.User{}, err
	}

	accessToken, accessExp, err := s.tokens.Issue(user.ID, user.Username, user.Roles, now)
	if err != nil {
		return Issued{}, identity.User{}, err
	}

	return Issued{
		AccessToken:  accessToken,
		AccessExp:    accessExp,
		RefreshToken: newPlain,
		RefreshExp:   newExp,
	}, user, nil
}

// Revoke revokes the refresh token presented (e.g. logout from a device).
//
// Unknown tokens are a no-op so logout stays idempotent.
func (s *Service) Revoke(ctx context.Context, now time.Time, refreshPlain string) error {
	refreshPlain = strings.TrimSpace(refreshPlain)
	if refreshPlain == "" || len(refreshPlain) > 4096 {
		return nil
	}
	return s.store.Revoke(ctx, now, hashRefreshTokenHex(refreshPlain))
}

// RevokeAllForUser revokes all refresh tokens for a user (e.g. logout everywhere).
func (s *Service) RevokeAllForUser(ctx context.Context, now time.Time, userID string) error {
	return s.store.RevokeAllForUser(ctx, now, userID)
}
