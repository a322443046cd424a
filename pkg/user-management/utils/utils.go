package utils

import (
	"net/mail"
	"regexp"
	"strings"

	zxcvbn "github.com/nbutton23/zxcvbn-go"
)

const (
	PASSWORD_MIN_LEN = 12
	PASSWORD_MAX_LEN = 512
)

func SanitizeEmail(email string) string {
	email = strings.ToLower(email)
	email = strings.Trim(email, " \n\r")
	return email
}

// CheckEmailFormat to check if input string is a correct email address
func CheckEmailFormat(email string) bool {
	if len(email) > 254 {
		return false
	}
	_, err := mail.ParseAddress(email)
	if err != nil {
		return false
	}
	// additional regex check for correct email format
	emailRule := regexp.MustCompile(`^[a-zA-Z0-9._%+'-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	return emailRule.MatchString(email)
}

// BlurEmailAddress transforms an email address to reduce exposed personal info
func BlurEmailAddress(email string) string {
	items := strings.Split(email, "@")
	if len(items) < 1 || len(items[0]) < 1 {
		return "****@**"
	}

	blurredEmail := string([]rune(items[0])[0]) + "****@" + strings.Join(items[1:], "")
	return blurredEmail
}

// CheckPasswordFormat to check if password fulfills password rules:
// min length and all four character classes present
func CheckPasswordFormat(password string) bool {
	pl := len(password)
	if pl < PASSWORD_MIN_LEN || pl > PASSWORD_MAX_LEN {
		return false
	}

	lowercase := regexp.MustCompile("[a-z]")
	uppercase := regexp.MustCompile("[A-Z]")
	number := regexp.MustCompile(`\d`)
	symbol := regexp.MustCompile(`[^a-zA-Z0-9]`)

	return lowercase.MatchString(password) &&
		uppercase.MatchString(password) &&
		number.MatchString(password) &&
		symbol.MatchString(password)
}

// PasswordStrengthScore returns an advisory strength estimate between 0
// (guessable) and 4 (very strong). It never blocks a password on its own.
func PasswordStrengthScore(password string, userInputs ...string) int {
	result := zxcvbn.PasswordStrength(password, userInputs)
	return result.Score
}
