package payment

import (
	"errors"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	ErrPaymentNotFound = errors.New("payment not found")
	ErrProductNotFound = errors.New("product not found")
	ErrOrderNotFound   = errors.New("order not found")
)

// GatewayStatus is the authoritative payment state reported by the gateway
// lookup API.
type GatewayStatus struct {
	Status string
	// amount in paisa as reported upstream
	AmountPaisa   int64
	TransactionID string
}

type Gateway interface {
	LookupPayment(pidx string) (GatewayStatus, error)
}

type PaymentStore interface {
	GetPaymentByTransactionID(pidx string) (Payment, error)
	GetPaymentByID(id primitive.ObjectID) (Payment, error)
	// UpdatePaymentStatus applies the transition only when the payment is
	// still in fromStatus, reports whether the document was modified.
	UpdatePaymentStatus(id primitive.ObjectID, fromStatus string, toStatus string, failureReason string) (bool, error)
	// LinkOrderToPayment sets the order reference only when none is linked
	// yet, reports whether the document was modified.
	LinkOrderToPayment(id primitive.ObjectID, orderID primitive.ObjectID) (bool, error)
}

type OrderStore interface {
	SaveOrder(order Order) (Order, error)
	GetOrderByID(id primitive.ObjectID) (Order, error)
	DeleteOrder(id primitive.ObjectID) error
	// NextOrderNumber returns a globally unique, never reused order number.
	NextOrderNumber() (string, error)
}

type ProductCatalog interface {
	GetProductPrice(productID string) (float64, error)
}
