// Package verify implements Chitter's email verification workflow.
//
// Registration issues a time-boxed 6-digit challenge code. Only the code's
// hash is stored (HMAC-SHA256 when CHITTER_TOKEN_HMAC_KEY is set; otherwise
// SHA-256); the plaintext code exists exactly once, on its way to the
// outbound email. Resends replace the pending challenge and are rate
// limited per account.
//
// Email delivery itself is out of scope here; callers receive the plaintext
// code and own the delivery channel.
package verify
