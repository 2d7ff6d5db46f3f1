package identity

import (
	"sync"

	"chitter/cmd/security/password"
)

// passwordConfig resolves the security/password configuration once, at
// first use, mirroring the config-at-startup convention of the rest of
// the tree. Invalid env values fall back to the package defaults.
var passwordConfig = sync.OnceValue(func() password.Config {
	cfg, err := password.FromEnv()
	if err != nil {
		return password.DefaultConfig()
	}
	return cfg
})

// HashPassword returns a PHC-style Argon2id hash string using the
// environment-driven security/password configuration.
func HashPassword(plain string) (string, error) {
	return passwordConfig().Hash(plain)
}

// VerifyPassword checks plain against an encoded Argon2id hash.
// Returns (false, nil) for a clean mismatch.
func VerifyPassword(plain, encodedHash string) (bool, error) {
	return passwordConfig().Verify(encodedHash, plain)
}
