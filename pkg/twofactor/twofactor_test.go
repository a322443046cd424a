package twofactor

import (
	"testing"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

func TestGenerateSecret(t *testing.T) {
	secret, qr, err := GenerateSecret("Thriftstore", "shopper@example.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if secret == "" {
		t.Error("secret should not be empty")
	}
	if qr == "" {
		t.Error("QR code should not be empty")
	}
}

func TestValidateCode(t *testing.T) {
	secret, _, err := GenerateSecret("Thriftstore", "shopper@example.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	t.Run("current code is valid", func(t *testing.T) {
		code, err := totp.GenerateCode(secret, time.Now())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !ValidateCode(code, secret) {
			t.Error("current code should be valid")
		}
	})

	t.Run("code within skew is valid", func(t *testing.T) {
		code, err := totp.GenerateCodeCustom(secret, time.Now().Add(-60*time.Second), totp.ValidateOpts{
			Period:    30,
			Digits:    otp.DigitsSix,
			Algorithm: otp.AlgorithmSHA1,
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !ValidateCode(code, secret) {
			t.Error("code two periods old should be valid")
		}
	})

	t.Run("stale code is rejected", func(t *testing.T) {
		code, err := totp.GenerateCodeCustom(secret, time.Now().Add(-10*time.Minute), totp.ValidateOpts{
			Period:    30,
			Digits:    otp.DigitsSix,
			Algorithm: otp.AlgorithmSHA1,
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if ValidateCode(code, secret) {
			t.Error("stale code should be rejected")
		}
	})

	t.Run("garbage is rejected", func(t *testing.T) {
		if ValidateCode("000000", secret) && ValidateCode("abcdef", secret) {
			t.Error("garbage codes should be rejected")
		}
	})
}

func TestBackupCodes(t *testing.T) {
	codes, hashes, err := GenerateBackupCodes()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(codes) != BackupCodeCount || len(hashes) != BackupCodeCount {
		t.Fatalf("unexpected counts: %d codes, %d hashes", len(codes), len(hashes))
	}

	t.Run("codes have expected shape", func(t *testing.T) {
		seen := map[string]bool{}
		for _, code := range codes {
			if len(code) != backupCodeLength {
				t.Errorf("unexpected code length: %s", code)
			}
			if seen[code] {
				t.Errorf("duplicate code: %s", code)
			}
			seen[code] = true
		}
	})

	t.Run("matching returns the hash", func(t *testing.T) {
		hash := MatchBackupCode(codes[3], hashes)
		if hash != hashes[3] {
			t.Error("should match the corresponding hash")
		}
	})

	t.Run("unknown code matches nothing", func(t *testing.T) {
		if MatchBackupCode("NOTACODE", hashes) != "" {
			t.Error("should not match")
		}
	})
}
