package password

import "errors"

var (
	// ErrInvalidHash is returned for malformed or unsupported encoded hashes.
	ErrInvalidHash = errors.New("invalid password hash")

	// ErrPasswordTooShort is returned when a password fails the minimum length policy.
	ErrPasswordTooShort = errors.New("password too short")

	// ErrPasswordTooLong is returned when a password exceeds the maximum length policy.
	ErrPasswordTooLong = errors.New("password too long")
)
