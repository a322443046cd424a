package account

import (
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

var ErrCaptchaNotFound = errors.New("captcha challenge not found")

// CaptchaChallenge is a short-lived arithmetic challenge handed out to
// clients once their failed login count passes the captcha threshold.
// Documents are evicted by the TTL index on expiresAt.
type CaptchaChallenge struct {
	ID        string    `bson:"_id"`
	Answer    string    `bson:"answer"`
	ExpiresAt time.Time `bson:"expiresAt"`
}

func (dbService *AccountDBService) SaveCaptchaChallenge(challenge CaptchaChallenge) error {
	ctx, cancel := dbService.getContext()
	defer cancel()

	_, err := dbService.collectionCaptchaChallenges().InsertOne(ctx, challenge)
	return err
}

// ConsumeCaptchaChallenge returns and removes the challenge in one step, so
// a challenge id can only ever be answered once.
func (dbService *AccountDBService) ConsumeCaptchaChallenge(challengeID string) (CaptchaChallenge, error) {
	ctx, cancel := dbService.getContext()
	defer cancel()

	var challenge CaptchaChallenge
	err := dbService.collectionCaptchaChallenges().FindOneAndDelete(ctx, bson.M{"_id": challengeID}).Decode(&challenge)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return challenge, ErrCaptchaNotFound
		}
		return challenge, err
	}
	if time.Now().After(challenge.ExpiresAt) {
		return challenge, ErrCaptchaNotFound
	}
	return challenge, nil
}
