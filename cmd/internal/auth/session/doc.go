// Package session is Chitter's session token authority.
//
// It issues short-lived JWT access tokens alongside opaque rotating
// refresh tokens, and rotates refresh tokens with reuse detection.
//
// Access tokens are HS256 JWTs and are verified statelessly; revocation
// takes effect at the refresh boundary. Refresh tokens are opaque random
// strings stored hashed in Postgres (HMAC-SHA256 when CHITTER_TOKEN_HMAC_KEY
// is set; otherwise SHA-256 for dev/back-compat). Rotation is a single
// conditional claim on the stored hash, so concurrent refreshes with the
// same token resolve to exactly one winner.
//
// Transport (cookies, headers) integration is intentionally out of scope here.
package session
