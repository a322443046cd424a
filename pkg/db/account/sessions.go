package account

import (
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	umTypes "github.com/maneesh0001/Security-Thriftstore-backend/pkg/user-management/types"
)

var ErrSessionNotFound = errors.New("session not found")

func (dbService *AccountDBService) CreateSession(session umTypes.Session) error {
	ctx, cancel := dbService.getContext()
	defer cancel()

	now := time.Now()
	if session.CreatedAt.IsZero() {
		session.CreatedAt = now
	}
	if session.LastActivity.IsZero() {
		session.LastActivity = now
	}

	_, err := dbService.collectionSessions().InsertOne(ctx, session)
	return err
}

func (dbService *AccountDBService) GetSession(sessionID string) (umTypes.Session, error) {
	ctx, cancel := dbService.getContext()
	defer cancel()

	var session umTypes.Session
	err := dbService.collectionSessions().FindOne(ctx, bson.M{"_id": sessionID}).Decode(&session)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return session, ErrSessionNotFound
		}
		return session, err
	}
	return session, nil
}

// TouchSession advances lastActivity for the rolling inactivity window. The
// $max keeps the timestamp monotonic when concurrent requests race.
func (dbService *AccountDBService) TouchSession(sessionID string) error {
	ctx, cancel := dbService.getContext()
	defer cancel()

	update := bson.M{
		"$max": bson.M{
			"lastActivity": time.Now(),
		},
	}
	_, err := dbService.collectionSessions().UpdateOne(ctx, bson.M{"_id": sessionID}, update)
	return err
}

func (dbService *AccountDBService) DeleteSession(sessionID string) error {
	ctx, cancel := dbService.getContext()
	defer cancel()

	_, err := dbService.collectionSessions().DeleteOne(ctx, bson.M{"_id": sessionID})
	return err
}

// DeleteSessionsForAccount removes every session of the account, used when
// the password changes or an admin deletes the account.
func (dbService *AccountDBService) DeleteSessionsForAccount(accountID string) error {
	ctx, cancel := dbService.getContext()
	defer cancel()

	_, err := dbService.collectionSessions().DeleteMany(ctx, bson.M{"accountID": accountID})
	return err
}
