package verify

import (
	"context"
	"time"

	"chitter/cmd/identity"
)

// Service implements challenge issuance, verification, and resend policy.
type Service struct {
	cfg   Config
	users identity.Store
}

// NewService constructs a Service over the given user store.
func NewService(cfg Config, users identity.Store) *Service {
	return &Service{cfg: cfg, users: users}
}

// NewChallenge mints a fresh challenge for registration.
//
// The returned plaintext code is for out-of-band delivery only; the
// challenge carries the hash and expiry for storage.
func (s *Service) NewChallenge(now time.Time) (plainCode string, ch identity.Challenge, err error) {
	plain, hash, err := newCode()
	if err != nil {
		return "", identity.Challenge{}, err
	}

	return plain, identity.Challenge{
		CodeHash:  hash,
		ExpiresAt: now.Add(s.cfg.CodeTTL),
	}, nil
}

// Verify redeems a challenge code for the account behind email.
//
// Check ordering is fixed: account state first, then code match, then
// expiry. A wrong code reports ErrCodeMismatch even when the challenge
// has also expired. On success the account is marked verified and the
// challenge (including resend bookkeeping) is cleared.
func (s *Service) Verify(ctx context.Context, email, code string, now time.Time) error {
	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		return err
	}

	if user.Verified() {
		return ErrAlreadyVerified
	}
	if user.Challenge == nil {
		return ErrNoChallenge
	}

	if !codeMatches(user.Challenge.CodeHash, code) {
		return ErrCodeMismatch
	}
	if now.After(user.Challenge.ExpiresAt) {
		return ErrCodeExpired
	}

	return s.users.MarkVerified(ctx, user.ID, now)
}

// Resend replaces the pending challenge with a fresh one, subject to the
// resend budget, and returns the new plaintext code for delivery.
//
// Policy: once ResendLimit resends have been made, further resends are
// rejected until ResendWindow has elapsed since the most recent one. The
// counter resets only on successful verification.
func (s *Service) Resend(ctx context.Context, email string, now time.Time) (string, error) {
	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		return "", err
	}

	if user.Verified() {
		return "", ErrAlreadyVerified
	}

	if ch := user.Challenge; ch != nil && ch.ResendCount >= s.cfg.ResendLimit && ch.LastResendAt != nil {
		elapsed := now.Sub(*ch.LastResendAt)
		if elapsed < s.cfg.ResendWindow {
			return "", ResendLimitError{RetryAfter: s.cfg.ResendWindow - elapsed}
		}
	}

	plain, hash, err := newCode()
	if err != nil {
		return "", err
	}

	if err := s.users.ReplaceChallenge(ctx, user.ID, hash, now.Add(s.cfg.CodeTTL), now); err != nil {
		return "", err
	}

	return plain, nil
}
