package commerce

import (
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/maneesh0001/Security-Thriftstore-backend/pkg/payment"
)

func (dbService *CommerceDBService) SaveOrder(order payment.Order) (payment.Order, error) {
	ctx, cancel := dbService.getContext()
	defer cancel()

	now := time.Now()
	order.CreatedAt = now
	order.UpdatedAt = now

	res, err := dbService.collectionOrders().InsertOne(ctx, order)
	if err != nil {
		return order, err
	}
	order.ID = res.InsertedID.(primitive.ObjectID)
	return order, nil
}

func (dbService *CommerceDBService) GetOrderByID(id primitive.ObjectID) (payment.Order, error) {
	ctx, cancel := dbService.getContext()
	defer cancel()

	var order payment.Order
	err := dbService.collectionOrders().FindOne(ctx, bson.M{"_id": id}).Decode(&order)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return order, payment.ErrOrderNotFound
		}
		return order, err
	}
	return order, nil
}

func (dbService *CommerceDBService) DeleteOrder(id primitive.ObjectID) error {
	ctx, cancel := dbService.getContext()
	defer cancel()

	_, err := dbService.collectionOrders().DeleteOne(ctx, bson.M{"_id": id})
	return err
}

func (dbService *CommerceDBService) GetOrdersForAccount(accountID string, page int64, limit int64) ([]payment.Order, int64, error) {
	ctx, cancel := dbService.getContext()
	defer cancel()

	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	filter := bson.M{"accountId": accountID}
	total, err := dbService.collectionOrders().CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetSkip((page - 1) * limit).
		SetLimit(limit)

	cursor, err := dbService.collectionOrders().Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	var orders []payment.Order
	if err := cursor.All(ctx, &orders); err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

// GetOrders lists orders across all accounts, optionally filtered by status.
func (dbService *CommerceDBService) GetOrders(status string, page int64, limit int64) ([]payment.Order, int64, error) {
	ctx, cancel := dbService.getContext()
	defer cancel()

	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	filter := bson.M{}
	if status != "" {
		filter["status"] = status
	}
	total, err := dbService.collectionOrders().CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetSkip((page - 1) * limit).
		SetLimit(limit)

	cursor, err := dbService.collectionOrders().Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	var orders []payment.Order
	if err := cursor.All(ctx, &orders); err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

type OrderStats struct {
	TotalOrders  int64            `json:"totalOrders"`
	TotalRevenue float64          `json:"totalRevenue"`
	ByStatus     map[string]int64 `json:"byStatus"`
}

// GetOrderStats aggregates order counts and revenue grouped by status.
// Cancelled orders count but contribute no revenue.
func (dbService *CommerceDBService) GetOrderStats() (OrderStats, error) {
	ctx, cancel := dbService.getContext()
	defer cancel()

	pipeline := []bson.M{
		{"$group": bson.M{
			"_id":     "$status",
			"count":   bson.M{"$sum": 1},
			"revenue": bson.M{"$sum": "$total"},
		}},
	}
	cursor, err := dbService.collectionOrders().Aggregate(ctx, pipeline)
	if err != nil {
		return OrderStats{}, err
	}
	defer cursor.Close(ctx)

	var groups []struct {
		Status  string  `bson:"_id"`
		Count   int64   `bson:"count"`
		Revenue float64 `bson:"revenue"`
	}
	if err := cursor.All(ctx, &groups); err != nil {
		return OrderStats{}, err
	}

	stats := OrderStats{ByStatus: map[string]int64{}}
	for _, group := range groups {
		stats.TotalOrders += group.Count
		stats.ByStatus[group.Status] = group.Count
		if group.Status != payment.ORDER_STATUS_CANCELLED {
			stats.TotalRevenue += group.Revenue
		}
	}
	return stats, nil
}

// UpdateOrderStatus applies a forward transition, guarded by the expected
// current status.
func (dbService *CommerceDBService) UpdateOrderStatus(id primitive.ObjectID, fromStatus string, toStatus string) (bool, error) {
	ctx, cancel := dbService.getContext()
	defer cancel()

	filter := bson.M{
		"_id":    id,
		"status": fromStatus,
	}
	update := bson.M{
		"$set": bson.M{
			"status":    toStatus,
			"updatedAt": time.Now(),
		},
	}
	res, err := dbService.collectionOrders().UpdateOne(ctx, filter, update)
	if err != nil {
		return false, err
	}
	return res.ModifiedCount > 0, nil
}

// NextOrderNumber draws the next value from the atomic order counter and
// formats a globally unique order number.
func (dbService *CommerceDBService) NextOrderNumber() (string, error) {
	seq, err := dbService.incrementAndGetCounterValue("orderNumber")
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("ORD-%d-%04d", time.Now().UnixMilli(), seq), nil
}

func (dbService *CommerceDBService) incrementAndGetCounterValue(scope string) (int64, error) {
	ctx, cancel := dbService.getContext()
	defer cancel()

	filter := bson.M{"scope": scope}
	update := bson.M{
		"$inc":         bson.M{"value": int64(1)},
		"$setOnInsert": bson.M{"scope": scope},
	}
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var counter struct {
		Scope string `bson:"scope"`
		Value int64  `bson:"value"`
	}
	err := dbService.collectionCounters().FindOneAndUpdate(ctx, filter, update, opts).Decode(&counter)
	if err != nil {
		return 0, err
	}
	return counter.Value, nil
}
