// Package password implements Argon2id password hashing for chitter.
//
// Hashes use the PHC string format and are verified with a constant-time
// comparison. Decoding enforces anti-DoS parameter bounds so that
// attacker-supplied hash strings cannot drive pathological resource usage.
package password
