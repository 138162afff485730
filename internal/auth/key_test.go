package auth

import (
	"errors"
	"strings"
	"testing"
)

func TestHashKey_RoundTrip(t *testing.T) {
	hash, err := HashKey("correct-horse-battery-staple")
	if err != nil {
		t.Fatalf("HashKey() error = %v", err)
	}
	if !strings.HasPrefix(hash, "$argon2id$v=19$m=65536,t=3,p=1$") {
		t.Errorf("hash = %q, want PHC argon2id prefix", hash)
	}

	if err := VerifyKey("correct-horse-battery-staple", hash); err != nil {
		t.Errorf("VerifyKey() correct key error = %v", err)
	}
	if err := VerifyKey("wrong", hash); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("VerifyKey() wrong key error = %v, want ErrInvalidCredentials", err)
	}
}

func TestHashKey_UniqueSalts(t *testing.T) {
	a, err := HashKey("same")
	if err != nil {
		t.Fatalf("HashKey() error = %v", err)
	}
	b, err := HashKey("same")
	if err != nil {
		t.Fatalf("HashKey() error = %v", err)
	}
	if a == b {
		t.Error("two hashes of the same key are identical")
	}
}

func TestVerifyKey_MalformedHash(t *testing.T) {
	tests := []struct {
		name string
		hash string
	}{
		{name: "empty", hash: ""},
		{name: "wrong field count", hash: "$argon2id$v=19$abc"},
		{name: "bcrypt", hash: "$2a$v=19$m=1,t=1,p=1$c2FsdA$aGFzaA"},
		{name: "bad version", hash: "$argon2id$v=1$m=65536,t=3,p=1$c2FsdA$aGFzaA"},
		{name: "bad params", hash: "$argon2id$v=19$m=x$c2FsdA$aGFzaA"},
		{name: "bad salt", hash: "$argon2id$v=19$m=65536,t=3,p=1$!!!$aGFzaA"},
		{name: "empty hash", hash: "$argon2id$v=19$m=65536,t=3,p=1$c2FsdA$"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := VerifyKey("k", tt.hash); !errors.Is(err, ErrInvalidHash) {
				t.Errorf("VerifyKey() error = %v, want ErrInvalidHash", err)
			}
		})
	}
}

func TestGenerateKey(t *testing.T) {
	a, err := GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey() error = %v", err)
	}
	if len(a) != 64 {
		t.Errorf("len(key) = %d, want 64 hex chars", len(a))
	}
	b, _ := GenerateKey() //nolint:errcheck // checked above
	if a == b {
		t.Error("GenerateKey() returned the same key twice")
	}
}
