package verify

import (
	"crypto/rand"
	"fmt"
	"math/big"

	"chitter/cmd/security/token"
)

var codeSpace = big.NewInt(1000000)

// newCode draws a 6-digit numeric code uniformly at random and returns the
// plaintext alongside its storage hash.
func newCode() (plain string, hashHex string, err error) {
	n, err := rand.Int(rand.Reader, codeSpace)
	if err != nil {
		return "", "", err
	}

	plain = fmt.Sprintf("%06d", n.Int64())
	hashHex = token.HashHex(plain)

	return plain, hashHex, nil
}

// codeMatches compares a supplied code against a stored hash in constant time.
func codeMatches(storedHash, suppliedCode string) bool {
	return token.EqualHex64(storedHash, token.HashHex(suppliedCode))
}
