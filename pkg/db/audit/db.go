package audit

import (
	"context"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/maneesh0001/Security-Thriftstore-backend/pkg/audit"
	"github.com/maneesh0001/Security-Thriftstore-backend/pkg/db"
)

// collection names
const (
	COLLECTION_NAME_AUDIT_EVENTS = "audit-events"
)

type AuditDBService struct {
	DBClient     *mongo.Client
	timeout      int
	DBNamePrefix string
}

func NewAuditDBService(configs db.DBConfig) (*AuditDBService, error) {
	dbClient, err := db.Connect(configs)
	if err != nil {
		return nil, err
	}

	auditDBSc := &AuditDBService{
		DBClient:     dbClient,
		timeout:      configs.Timeout,
		DBNamePrefix: configs.DBNamePrefix,
	}

	auditDBSc.ensureIndexes()
	return auditDBSc, nil
}

func (dbService *AuditDBService) getDBName() string {
	return dbService.DBNamePrefix + "audit"
}

func (dbService *AuditDBService) getContext() (ctx context.Context, cancel context.CancelFunc) {
	return context.WithTimeout(context.Background(), time.Duration(dbService.timeout)*time.Second)
}

func (dbService *AuditDBService) collectionAuditEvents() *mongo.Collection {
	return dbService.DBClient.Database(dbService.getDBName()).Collection(COLLECTION_NAME_AUDIT_EVENTS)
}

func (dbService *AuditDBService) ensureIndexes() {
	slog.Debug("Ensuring indexes for audit DB")

	if err := dbService.CreateIndexForAuditEvents(); err != nil {
		slog.Debug("Error creating indexes for audit events", slog.String("error", err.Error()))
	}
}

func (dbService *AuditDBService) CreateIndexForAuditEvents() error {
	ctx, cancel := dbService.getContext()
	defer cancel()

	_, err := dbService.collectionAuditEvents().Indexes().CreateMany(
		ctx, []mongo.IndexModel{
			{
				Keys: bson.D{
					{Key: "accountId", Value: 1},
					{Key: "createdAt", Value: -1},
				},
			},
			{
				Keys: bson.D{
					{Key: "action", Value: 1},
					{Key: "createdAt", Value: -1},
				},
			},
		},
	)
	return err
}

func (dbService *AuditDBService) SaveEvent(event audit.Event) error {
	ctx, cancel := dbService.getContext()
	defer cancel()

	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}
	_, err := dbService.collectionAuditEvents().InsertOne(ctx, event)
	return err
}

// GetEventsForAccount returns the most recent audit events for one account.
func (dbService *AuditDBService) GetEventsForAccount(accountID string, limit int64) ([]audit.Event, error) {
	ctx, cancel := dbService.getContext()
	defer cancel()

	if limit <= 0 {
		limit = 50
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetLimit(limit)

	cursor, err := dbService.collectionAuditEvents().Find(ctx, bson.M{"accountId": accountID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var events []audit.Event
	if err := cursor.All(ctx, &events); err != nil {
		return nil, err
	}
	return events, nil
}
