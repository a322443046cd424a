package twofactor

import (
	"bytes"
	"crypto/rand"
	"encoding/base64"
	"image/png"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
	"golang.org/x/crypto/bcrypt"
)

const (
	// codes are accepted within +/- this many 30s periods to tolerate clock drift
	totpSkew = 2

	BackupCodeCount  = 10
	backupCodeLength = 8

	bcryptCost = 10
)

const backupCodeCharSet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// GenerateSecret creates a new TOTP secret for the given account and renders
// the provisioning QR code as a base64 encoded PNG.
func GenerateSecret(issuer string, accountEmail string) (secret string, qrCodeBase64 string, err error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      issuer,
		AccountName: accountEmail,
	})
	if err != nil {
		return "", "", err
	}

	img, err := key.Image(200, 200)
	if err != nil {
		return "", "", err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", "", err
	}

	return key.Secret(), base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// ValidateCode checks a 6 digit TOTP code against the secret.
func ValidateCode(code string, secret string) bool {
	valid, err := totp.ValidateCustom(code, secret, time.Now(), totp.ValidateOpts{
		Period:    30,
		Skew:      totpSkew,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	if err != nil {
		return false
	}
	return valid
}

// GenerateBackupCodes returns a fresh set of single-use recovery codes in
// plaintext (shown to the user exactly once) together with their bcrypt
// hashes for storage.
func GenerateBackupCodes() (codes []string, hashes []string, err error) {
	codes = make([]string, 0, BackupCodeCount)
	hashes = make([]string, 0, BackupCodeCount)
	for i := 0; i < BackupCodeCount; i++ {
		code, err := randomBackupCode()
		if err != nil {
			return nil, nil, err
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(code), bcryptCost)
		if err != nil {
			return nil, nil, err
		}
		codes = append(codes, code)
		hashes = append(hashes, string(hash))
	}
	return codes, hashes, nil
}

// MatchBackupCode returns the stored hash the submitted code matches, or an
// empty string when none matches.
func MatchBackupCode(code string, hashes []string) string {
	for _, hash := range hashes {
		if bcrypt.CompareHashAndPassword([]byte(hash), []byte(code)) == nil {
			return hash
		}
	}
	return ""
}

func randomBackupCode() (string, error) {
	buffer := make([]byte, backupCodeLength)
	if _, err := rand.Read(buffer); err != nil {
		return "", err
	}
	for i := 0; i < backupCodeLength; i++ {
		buffer[i] = backupCodeCharSet[int(buffer[i])%len(backupCodeCharSet)]
	}
	return string(buffer), nil
}
