package jwthandling

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Information a two-factor login challenge token encodes: issued after the
// password check succeeded, consumed when the TOTP or backup code arrives.
type TwoFactorChallengeClaims struct {
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

func GenerateNewTwoFactorChallengeToken(
	expiresIn time.Duration,
	accountID string,
	email string,
	secretKey string,
) (tokenString string, err error) {
	claims := TwoFactorChallengeClaims{
		email,
		jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiresIn)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Subject:   accountID,
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err = token.SignedString([]byte(secretKey))
	return
}

func ValidateTwoFactorChallengeToken(tokenString string, secretKey string) (claims *TwoFactorChallengeClaims, valid bool, err error) {
	token, err := jwt.ParseWithClaims(tokenString, &TwoFactorChallengeClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secretKey), nil
	})
	if token == nil {
		return
	}
	claims, valid = token.Claims.(*TwoFactorChallengeClaims)
	valid = valid && token.Valid
	return
}
