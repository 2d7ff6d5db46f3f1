package session

import "errors"

var (
	// ErrInvalidToken is returned when an access token fails verification or validation.
	ErrInvalidToken = errors.New("invalid token")

	// ErrTokenNotFound is returned when a refresh token does not match any stored session.
	ErrTokenNotFound = errors.New("refresh token not found")

	// ErrTokenExpired is returned when an access or refresh token is past its expiry.
	ErrTokenExpired = errors.New("refresh token expired")

	// ErrTokenRevoked is returned when the refresh token has been revoked.
	ErrTokenRevoked = errors.New("refresh token revoked")

	// ErrReuseDetected is returned when a rotated (replaced) refresh token is
	// presented again. The store revokes every token for the user before
	// returning this.
	ErrReuseDetected = errors.New("refresh token reuse detected")

	// ErrConfig is returned for invalid configuration.
	ErrConfig = errors.New("invalid config")
)
