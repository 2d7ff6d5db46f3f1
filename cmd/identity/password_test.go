package identity

import (
	"strings"
	"testing"
)

func TestHashPasswordUsesResolvedParams(t *testing.T) {
	fastArgon2(t)

	hash, err := HashPassword("pw123")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	// The env-resolved cost parameters are visible in the PHC string.
	if !strings.Contains(hash, "m=8192,t=1,") {
		t.Fatalf("hash does not carry the resolved params: %s", hash)
	}

	ok, err := VerifyPassword("pw123", hash)
	if err != nil || !ok {
		t.Fatalf("VerifyPassword: ok=%v err=%v", ok, err)
	}

	// The resolved config is stable across calls.
	again, err := HashPassword("pw123")
	if err != nil {
		t.Fatalf("second HashPassword: %v", err)
	}
	if !strings.Contains(again, "m=8192,t=1,") {
		t.Fatalf("second hash used different params: %s", again)
	}
}
