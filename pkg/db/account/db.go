package account

import (
	"context"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/maneesh0001/Security-Thriftstore-backend/pkg/db"
	umTypes "github.com/maneesh0001/Security-Thriftstore-backend/pkg/user-management/types"
)

// collection names
const (
	COLLECTION_NAME_ACCOUNTS           = "accounts"
	COLLECTION_NAME_SESSIONS           = "sessions"
	COLLECTION_NAME_CAPTCHA_CHALLENGES = "captcha-challenges"
)

type AccountDBService struct {
	DBClient     *mongo.Client
	timeout      int
	DBNamePrefix string
}

func NewAccountDBService(configs db.DBConfig) (*AccountDBService, error) {
	dbClient, err := db.Connect(configs)
	if err != nil {
		return nil, err
	}

	accountDBSc := &AccountDBService{
		DBClient:     dbClient,
		timeout:      configs.Timeout,
		DBNamePrefix: configs.DBNamePrefix,
	}

	accountDBSc.ensureIndexes()
	return accountDBSc, nil
}

func (dbService *AccountDBService) getDBName() string {
	return dbService.DBNamePrefix + "users"
}

func (dbService *AccountDBService) getContext() (ctx context.Context, cancel context.CancelFunc) {
	return context.WithTimeout(context.Background(), time.Duration(dbService.timeout)*time.Second)
}

func (dbService *AccountDBService) collectionAccounts() *mongo.Collection {
	return dbService.DBClient.Database(dbService.getDBName()).Collection(COLLECTION_NAME_ACCOUNTS)
}

func (dbService *AccountDBService) collectionSessions() *mongo.Collection {
	return dbService.DBClient.Database(dbService.getDBName()).Collection(COLLECTION_NAME_SESSIONS)
}

func (dbService *AccountDBService) collectionCaptchaChallenges() *mongo.Collection {
	return dbService.DBClient.Database(dbService.getDBName()).Collection(COLLECTION_NAME_CAPTCHA_CHALLENGES)
}

func (dbService *AccountDBService) ensureIndexes() {
	slog.Debug("Ensuring indexes for account DB")

	if err := dbService.CreateIndexForAccounts(); err != nil {
		slog.Error("Error creating indexes for accounts", slog.String("error", err.Error()))
	}
	if err := dbService.CreateIndexForSessions(); err != nil {
		slog.Error("Error creating indexes for sessions", slog.String("error", err.Error()))
	}
	if err := dbService.CreateIndexForCaptchaChallenges(); err != nil {
		slog.Error("Error creating indexes for captcha challenges", slog.String("error", err.Error()))
	}
}

func (dbService *AccountDBService) CreateIndexForAccounts() error {
	ctx, cancel := dbService.getContext()
	defer cancel()

	_, err := dbService.collectionAccounts().Indexes().CreateMany(
		ctx, []mongo.IndexModel{
			{
				Keys:    bson.D{{Key: "email", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
			{
				Keys: bson.D{{Key: "passwordReset.token", Value: 1}},
			},
			{
				Keys: bson.D{{Key: "emailVerification.token", Value: 1}},
			},
		},
	)
	return err
}

func (dbService *AccountDBService) CreateIndexForSessions() error {
	ctx, cancel := dbService.getContext()
	defer cancel()

	_, err := dbService.collectionSessions().Indexes().CreateMany(
		ctx, []mongo.IndexModel{
			{
				Keys: bson.D{{Key: "lastActivity", Value: 1}},
				Options: options.Index().SetExpireAfterSeconds(
					int32(umTypes.SessionInactivityTimeout.Seconds()),
				),
			},
			{
				Keys: bson.D{{Key: "accountID", Value: 1}},
			},
		},
	)
	return err
}

func (dbService *AccountDBService) CreateIndexForCaptchaChallenges() error {
	ctx, cancel := dbService.getContext()
	defer cancel()

	_, err := dbService.collectionCaptchaChallenges().Indexes().CreateOne(
		ctx, mongo.IndexModel{
			Keys:    bson.D{{Key: "expiresAt", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0),
		},
	)
	return err
}
