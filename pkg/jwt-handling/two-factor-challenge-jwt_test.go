package jwthandling

import (
	"testing"
	"time"
)

func TestTwoFactorChallengeToken(t *testing.T) {
	secret := "test-signing-key"

	t.Run("generate and validate", func(t *testing.T) {
		token, err := GenerateNewTwoFactorChallengeToken(5*time.Minute, "acc-1", "shopper@example.com", secret)
		if err != nil {
			t.Errorf("unexpected error: %v", err)
			return
		}
		claims, valid, err := ValidateTwoFactorChallengeToken(token, secret)
		if err != nil {
			t.Errorf("unexpected error: %v", err)
			return
		}
		if !valid {
			t.Error("token should be valid")
		}
		if claims.Subject != "acc-1" || claims.Email != "shopper@example.com" {
			t.Errorf("unexpected claims: %v", claims)
		}
	})

	t.Run("wrong key", func(t *testing.T) {
		token, _ := GenerateNewTwoFactorChallengeToken(5*time.Minute, "acc-1", "shopper@example.com", secret)
		_, valid, err := ValidateTwoFactorChallengeToken(token, "other-key")
		if err == nil {
			t.Error("should return error")
		}
		if valid {
			t.Error("token should not be valid")
		}
	})

	t.Run("expired token", func(t *testing.T) {
		token, _ := GenerateNewTwoFactorChallengeToken(-time.Minute, "acc-1", "shopper@example.com", secret)
		_, valid, err := ValidateTwoFactorChallengeToken(token, secret)
		if err == nil {
			t.Error("should return error")
		}
		if valid {
			t.Error("token should not be valid")
		}
	})
}
