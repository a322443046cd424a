package utils

import (
	"testing"
)

func TestSanitizeEmail(t *testing.T) {
	t.Run("with different formats", func(t *testing.T) {
		email := SanitizeEmail("\nShopper@Example.COM")
		if email != "shopper@example.com" {
			t.Errorf("unexpected email: %s", email)
		}

		email = SanitizeEmail("  \n shopper@example.com \n\r")
		if email != "shopper@example.com" {
			t.Errorf("unexpected email: %s", email)
		}
	})
}

func TestCheckEmailFormat(t *testing.T) {
	t.Run("with invalid addresses", func(t *testing.T) {
		for _, email := range []string{"", "plain", "@nohost.com", "no-at.com", "a@b"} {
			if CheckEmailFormat(email) {
				t.Errorf("should be false: %s", email)
			}
		}
	})
	t.Run("with valid addresses", func(t *testing.T) {
		for _, email := range []string{"shopper@example.com", "first.last+tag@sub.example.org"} {
			if !CheckEmailFormat(email) {
				t.Errorf("should be true: %s", email)
			}
		}
	})
}

func TestBlurEmailAddress(t *testing.T) {
	t.Run("with different formats", func(t *testing.T) {
		email := BlurEmailAddress("a@test.de")
		if email != "a****@test.de" {
			t.Errorf("unexpected email: %s", email)
		}

		email = BlurEmailAddress("a123sdfsdfsdfa34@test.de")
		if email != "a****@test.de" {
			t.Errorf("unexpected email: %s", email)
		}

		email = BlurEmailAddress("")
		if email != "****@**" {
			t.Errorf("unexpected email: %s", email)
		}
	})
}

func TestCheckPasswordFormat(t *testing.T) {
	t.Run("with a too short password", func(t *testing.T) {
		if CheckPasswordFormat("1n34T6@") {
			t.Error("should be false")
		}
	})
	t.Run("with missing character classes", func(t *testing.T) {
		if CheckPasswordFormat("alllowercase!234") {
			t.Error("should be false without uppercase")
		}
		if CheckPasswordFormat("NoDigitsHere!!!!") {
			t.Error("should be false without digits")
		}
		if CheckPasswordFormat("NoSymbols12345ab") {
			t.Error("should be false without symbols")
		}
	})
	t.Run("with good passwords", func(t *testing.T) {
		if !CheckPasswordFormat("Str0ng!Password123") {
			t.Error("should be true")
		}
		if !CheckPasswordFormat("An0ther-Good#Pass") {
			t.Error("should be true")
		}
	})
}

func TestGenerateUniqueTokenString(t *testing.T) {
	t.Run("tokens are unique and hex", func(t *testing.T) {
		t1, err := GenerateUniqueTokenString()
		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		t2, err := GenerateUniqueTokenString()
		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		if len(t1) != 64 {
			t.Errorf("unexpected token length: %d", len(t1))
		}
		if t1 == t2 {
			t.Error("tokens should differ")
		}
	})
}
