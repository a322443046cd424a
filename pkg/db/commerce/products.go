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

func (dbService *CommerceDBService) CreateProduct(product Product) (Product, error) {
	ctx, cancel := dbService.getContext()
	defer cancel()

	now := time.Now()
	product.CreatedAt = now
	product.UpdatedAt = now

	res, err := dbService.collectionProducts().InsertOne(ctx, product)
	if err != nil {
		return product, err
	}
	product.ID = res.InsertedID.(primitive.ObjectID)
	return product, nil
}

func (dbService *CommerceDBService) GetProductByID(id string) (Product, error) {
	ctx, cancel := dbService.getContext()
	defer cancel()

	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return Product{}, payment.ErrProductNotFound
	}

	var product Product
	err = dbService.collectionProducts().FindOne(ctx, bson.M{"_id": objID}).Decode(&product)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return product, payment.ErrProductNotFound
		}
		return product, err
	}
	return product, nil
}

// GetProductPrice resolves the effective price of a product, falling back to
// the rental price for rental-only items.
func (dbService *CommerceDBService) GetProductPrice(productID string) (float64, error) {
	product, err := dbService.GetProductByID(productID)
	if err != nil {
		return 0, err
	}
	if product.Price > 0 {
		return product.Price, nil
	}
	if product.RentalPrice > 0 {
		return product.RentalPrice, nil
	}
	return 0, payment.ErrProductNotFound
}

func (dbService *CommerceDBService) GetProducts(category string, page int64, limit int64) ([]Product, int64, error) {
	ctx, cancel := dbService.getContext()
	defer cancel()

	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	filter := bson.M{}
	if category != "" {
		filter["category"] = category
	}

	total, err := dbService.collectionProducts().CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetSkip((page - 1) * limit).
		SetLimit(limit)

	cursor, err := dbService.collectionProducts().Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	var products []Product
	if err := cursor.All(ctx, &products); err != nil {
		return nil, 0, err
	}
	return products, total, nil
}

func (dbService *CommerceDBService) UpdateProduct(id string, product Product) error {
	ctx, cancel := dbService.getContext()
	defer cancel()

	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return payment.ErrProductNotFound
	}

	update := bson.M{
		"$set": bson.M{
			"name":        product.Name,
			"description": product.Description,
			"category":    product.Category,
			"price":       product.Price,
			"rentalPrice": product.RentalPrice,
			"imageUrl":    product.ImageURL,
			"stock":       product.Stock,
			"updatedAt":   time.Now(),
		},
	}
	res, err := dbService.collectionProducts().UpdateOne(ctx, bson.M{"_id": objID}, update)
	if err != nil {
		return err
	}
	if res.MatchedCount < 1 {
		return payment.ErrProductNotFound
	}
	return nil
}

func (dbService *CommerceDBService) DeleteProduct(id string) error {
	ctx, cancel := dbService.getContext()
	defer cancel()

	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return payment.ErrProductNotFound
	}

	res, err := dbService.collectionProducts().DeleteOne(ctx, bson.M{"_id": objID})
	if err != nil {
		return err
	}
	if res.DeletedCount < 1 {
		return payment.ErrProductNotFound
	}
	return nil
}
