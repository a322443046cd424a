package commerce

import (
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func (dbService *CommerceDBService) GetCartForAccount(accountID string) (Cart, error) {
	ctx, cancel := dbService.getContext()
	defer cancel()

	var cart Cart
	err := dbService.collectionCarts().FindOne(ctx, bson.M{"accountId": accountID}).Decode(&cart)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return Cart{AccountID: accountID, Items: []CartItem{}}, nil
		}
		return cart, err
	}
	return cart, nil
}

// SetCartItem sets the quantity of one product in the account's cart,
// creating the cart on first use. Quantity zero removes the item.
func (dbService *CommerceDBService) SetCartItem(accountID string, productID string, quantity int) error {
	if quantity < 1 {
		return dbService.RemoveCartItem(accountID, productID)
	}

	ctx, cancel := dbService.getContext()
	defer cancel()

	// update an existing line first
	filter := bson.M{
		"accountId":       accountID,
		"items.productId": productID,
	}
	update := bson.M{
		"$set": bson.M{
			"items.$.quantity": quantity,
			"updatedAt":        time.Now(),
		},
	}
	res, err := dbService.collectionCarts().UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if res.MatchedCount > 0 {
		return nil
	}

	// no such line yet, append it (upserting the cart when needed)
	pushUpdate := bson.M{
		"$push": bson.M{
			"items": CartItem{ProductID: productID, Quantity: quantity},
		},
		"$set": bson.M{
			"updatedAt": time.Now(),
		},
	}
	_, err = dbService.collectionCarts().UpdateOne(
		ctx,
		bson.M{"accountId": accountID},
		pushUpdate,
		options.Update().SetUpsert(true),
	)
	return err
}

func (dbService *CommerceDBService) RemoveCartItem(accountID string, productID string) error {
	ctx, cancel := dbService.getContext()
	defer cancel()

	update := bson.M{
		"$pull": bson.M{
			"items": bson.M{"productId": productID},
		},
		"$set": bson.M{
			"updatedAt": time.Now(),
		},
	}
	_, err := dbService.collectionCarts().UpdateOne(ctx, bson.M{"accountId": accountID}, update)
	return err
}

func (dbService *CommerceDBService) ClearCart(accountID string) error {
	ctx, cancel := dbService.getContext()
	defer cancel()

	update := bson.M{
		"$set": bson.M{
			"items":     []CartItem{},
			"updatedAt": time.Now(),
		},
	}
	_, err := dbService.collectionCarts().UpdateOne(ctx, bson.M{"accountId": accountID}, update)
	return err
}
