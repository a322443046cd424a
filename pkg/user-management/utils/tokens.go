package utils

import (
	"crypto/rand"
	"encoding/hex"
	"time"
)

// GenerateUniqueTokenString returns a 32 byte crypto-random token encoded as
// lowercase hex, used for email verification and password reset links.
func GenerateUniqueTokenString() (string, error) {
	token := make([]byte, 32)
	if _, err := rand.Read(token); err != nil {
		return "", err
	}
	return hex.EncodeToString(token), nil
}

func GetExpirationTime(validityPeriod time.Duration) time.Time {
	return time.Now().Add(validityPeriod)
}

func ReachedExpirationTime(t time.Time) bool {
	return time.Now().After(t)
}
