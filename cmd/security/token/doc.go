// Package token provides opaque-token and verification-code hashing
// primitives for chitter.
//
// It is the single source of truth for how refresh tokens and email
// verification codes are stored server-side:
//   - Default dev mode: SHA-256(value) when no HMAC key is configured.
//   - Hardened mode: HMAC-SHA256(value, key) when CHITTER_TOKEN_HMAC_KEY is set.
//   - Stable 64-char hex output for storage and constant-time comparison.
//
// Plaintext values never reach persistent storage.
package token
