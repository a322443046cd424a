package pwhash

import (
	"strings"
	"testing"
)

func TestHashAndComparePassword(t *testing.T) {
	t.Run("correct password matches", func(t *testing.T) {
		hash, err := HashPassword("Str0ng!Password123")
		if err != nil {
			t.Errorf("unexpected error: %v", err)
			return
		}
		if !strings.HasPrefix(hash, "$argon2id$") {
			t.Errorf("unexpected hash format: %s", hash)
		}
		match, err := ComparePasswordWithHash(hash, "Str0ng!Password123")
		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		if !match {
			t.Error("expected password to match")
		}
	})

	t.Run("wrong password does not match", func(t *testing.T) {
		hash, err := HashPassword("Str0ng!Password123")
		if err != nil {
			t.Errorf("unexpected error: %v", err)
			return
		}
		match, err := ComparePasswordWithHash(hash, "Wr0ng!Password123")
		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		if match {
			t.Error("expected password to not match")
		}
	})

	t.Run("hashes are salted", func(t *testing.T) {
		h1, _ := HashPassword("Str0ng!Password123")
		h2, _ := HashPassword("Str0ng!Password123")
		if h1 == h2 {
			t.Error("expected different hashes for same password")
		}
	})

	t.Run("malformed hash", func(t *testing.T) {
		_, err := ComparePasswordWithHash("not-a-hash", "anything")
		if err == nil {
			t.Error("expected error for malformed hash")
		}
	})
}
