package commerce

import (
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/maneesh0001/Security-Thriftstore-backend/pkg/payment"
)

func (dbService *CommerceDBService) CreatePayment(p payment.Payment) (payment.Payment, error) {
	ctx, cancel := dbService.getContext()
	defer cancel()

	now := time.Now()
	p.CreatedAt = now
	p.UpdatedAt = now
	if p.Status == "" {
		p.Status = payment.PAYMENT_STATUS_PENDING
	}

	res, err := dbService.collectionPayments().InsertOne(ctx, p)
	if err != nil {
		return p, err
	}
	p.ID = res.InsertedID.(primitive.ObjectID)
	return p, nil
}

func (dbService *CommerceDBService) GetPaymentByTransactionID(pidx string) (payment.Payment, error) {
	ctx, cancel := dbService.getContext()
	defer cancel()

	var p payment.Payment
	err := dbService.collectionPayments().FindOne(ctx, bson.M{"externalTransactionId": pidx}).Decode(&p)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return p, payment.ErrPaymentNotFound
		}
		return p, err
	}
	return p, nil
}

func (dbService *CommerceDBService) GetPaymentByID(id primitive.ObjectID) (payment.Payment, error) {
	ctx, cancel := dbService.getContext()
	defer cancel()

	var p payment.Payment
	err := dbService.collectionPayments().FindOne(ctx, bson.M{"_id": id}).Decode(&p)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return p, payment.ErrPaymentNotFound
		}
		return p, err
	}
	return p, nil
}

// UpdatePaymentStatus transitions the payment only when it is still in
// fromStatus, so concurrent verifications cannot move a status backwards.
func (dbService *CommerceDBService) UpdatePaymentStatus(id primitive.ObjectID, fromStatus string, toStatus string, failureReason string) (bool, error) {
	ctx, cancel := dbService.getContext()
	defer cancel()

	filter := bson.M{
		"_id":    id,
		"status": fromStatus,
	}
	setFields := bson.M{
		"status":    toStatus,
		"updatedAt": time.Now(),
	}
	if failureReason != "" {
		setFields["failureReason"] = failureReason
	}

	res, err := dbService.collectionPayments().UpdateOne(ctx, filter, bson.M{"$set": setFields})
	if err != nil {
		return false, err
	}
	return res.ModifiedCount > 0, nil
}

// LinkOrderToPayment attaches the order only when no order is linked yet;
// the losing side of a replay race sees false and discards its order.
func (dbService *CommerceDBService) LinkOrderToPayment(id primitive.ObjectID, orderID primitive.ObjectID) (bool, error) {
	ctx, cancel := dbService.getContext()
	defer cancel()

	filter := bson.M{
		"_id":     id,
		"orderId": nil,
	}
	update := bson.M{
		"$set": bson.M{
			"orderId":   orderID,
			"updatedAt": time.Now(),
		},
	}
	res, err := dbService.collectionPayments().UpdateOne(ctx, filter, update)
	if err != nil {
		return false, err
	}
	return res.ModifiedCount > 0, nil
}

func (dbService *CommerceDBService) GetPaymentsForAccount(accountID string, page int64, limit int64) ([]payment.Payment, int64, error) {
	ctx, cancel := dbService.getContext()
	defer cancel()

	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	filter := bson.M{"accountId": accountID}
	total, err := dbService.collectionPayments().CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetSkip((page - 1) * limit).
		SetLimit(limit)

	cursor, err := dbService.collectionPayments().Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	var payments []payment.Payment
	if err := cursor.All(ctx, &payments); err != nil {
		return nil, 0, err
	}
	return payments, total, nil
}
