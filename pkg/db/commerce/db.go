package commerce

import (
	"context"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/maneesh0001/Security-Thriftstore-backend/pkg/db"
)

// collection names
const (
	COLLECTION_NAME_PRODUCTS = "products"
	COLLECTION_NAME_CARTS    = "carts"
	COLLECTION_NAME_ORDERS   = "orders"
	COLLECTION_NAME_PAYMENTS = "payments"
	COLLECTION_NAME_COUNTERS = "counters"
)

type CommerceDBService struct {
	DBClient     *mongo.Client
	timeout      int
	DBNamePrefix string
}

func NewCommerceDBService(configs db.DBConfig) (*CommerceDBService, error) {
	dbClient, err := db.Connect(configs)
	if err != nil {
		return nil, err
	}

	commerceDBSc := &CommerceDBService{
		DBClient:     dbClient,
		timeout:      configs.Timeout,
		DBNamePrefix: configs.DBNamePrefix,
	}

	commerceDBSc.ensureIndexes()
	return commerceDBSc, nil
}

func (dbService *CommerceDBService) getDBName() string {
	return dbService.DBNamePrefix + "commerce"
}

func (dbService *CommerceDBService) getContext() (ctx context.Context, cancel context.CancelFunc) {
	return context.WithTimeout(context.Background(), time.Duration(dbService.timeout)*time.Second)
}

func (dbService *CommerceDBService) collectionProducts() *mongo.Collection {
	return dbService.DBClient.Database(dbService.getDBName()).Collection(COLLECTION_NAME_PRODUCTS)
}

func (dbService *CommerceDBService) collectionCarts() *mongo.Collection {
	return dbService.DBClient.Database(dbService.getDBName()).Collection(COLLECTION_NAME_CARTS)
}

func (dbService *CommerceDBService) collectionOrders() *mongo.Collection {
	return dbService.DBClient.Database(dbService.getDBName()).Collection(COLLECTION_NAME_ORDERS)
}

func (dbService *CommerceDBService) collectionPayments() *mongo.Collection {
	return dbService.DBClient.Database(dbService.getDBName()).Collection(COLLECTION_NAME_PAYMENTS)
}

func (dbService *CommerceDBService) collectionCounters() *mongo.Collection {
	return dbService.DBClient.Database(dbService.getDBName()).Collection(COLLECTION_NAME_COUNTERS)
}

func (dbService *CommerceDBService) ensureIndexes() {
	slog.Debug("Ensuring indexes for commerce DB")

	ctx, cancel := dbService.getContext()
	defer cancel()

	_, err := dbService.collectionPayments().Indexes().CreateOne(
		ctx, mongo.IndexModel{
			Keys:    bson.D{{Key: "externalTransactionId", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	)
	if err != nil {
		slog.Error("Error creating indexes for payments", slog.String("error", err.Error()))
	}

	_, err = dbService.collectionOrders().Indexes().CreateMany(
		ctx, []mongo.IndexModel{
			{
				Keys:    bson.D{{Key: "orderNumber", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
			{
				Keys: bson.D{
					{Key: "accountId", Value: 1},
					{Key: "createdAt", Value: -1},
				},
			},
		},
	)
	if err != nil {
		slog.Error("Error creating indexes for orders", slog.String("error", err.Error()))
	}

	_, err = dbService.collectionCarts().Indexes().CreateOne(
		ctx, mongo.IndexModel{
			Keys:    bson.D{{Key: "accountId", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	)
	if err != nil {
		slog.Error("Error creating indexes for carts", slog.String("error", err.Error()))
	}

	_, err = dbService.collectionProducts().Indexes().CreateOne(
		ctx, mongo.IndexModel{
			Keys: bson.D{{Key: "category", Value: 1}},
		},
	)
	if err != nil {
		slog.Error("Error creating indexes for products", slog.String("error", err.Error()))
	}
}
