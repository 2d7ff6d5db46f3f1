// Package identity implements chitter's credential store.
//
// It holds the canonical user record: unique username/email, Argon2id
// password hash, role set, the email verification challenge, and the
// following set. All cross-request safety comes from the store's atomic
// single-row operations and uniqueness constraints.
package identity
