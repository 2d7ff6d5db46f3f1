package verify

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrAlreadyVerified is returned when the account has no pending
	// verification left to do.
	ErrAlreadyVerified = errors.New("account already verified")

	// ErrNoChallenge is returned when verification is attempted without a
	// pending challenge.
	ErrNoChallenge = errors.New("no pending verification challenge")

	// ErrCodeMismatch is returned when the supplied code does not match the
	// stored hash. Mismatch wins over expiry: a wrong code is reported as a
	// mismatch even when the challenge has also expired.
	ErrCodeMismatch = errors.New("verification code mismatch")

	// ErrCodeExpired is returned when a matching code is presented after the
	// challenge expiry.
	ErrCodeExpired = errors.New("verification code expired")

	// ErrResendLimited is returned when the resend budget is exhausted.
	ErrResendLimited = errors.New("resend rate limited")

	// ErrConfig is returned for invalid configuration.
	ErrConfig = errors.New("invalid config")
)

// ResendLimitError carries retry metadata for resend throttling.
type ResendLimitError struct {
	RetryAfter time.Duration
}

func (e ResendLimitError) Error() string {
	if e.RetryAfter <= 0 {
		return ErrResendLimited.Error()
	}
	return fmt.Sprintf("%s: retry after %s", ErrResendLimited.Error(), e.RetryAfter)
}

func (e ResendLimitError) Unwrap() error { return ErrResendLimited }
