package payment

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// payment statuses, transitions only move forward
const (
	PAYMENT_STATUS_PENDING   = "pending"
	PAYMENT_STATUS_COMPLETED = "completed"
	PAYMENT_STATUS_FAILED    = "failed"
	PAYMENT_STATUS_REFUNDED  = "refunded"
)

// order statuses
const (
	ORDER_STATUS_PENDING    = "pending"
	ORDER_STATUS_CONFIRMED  = "confirmed"
	ORDER_STATUS_PROCESSING = "processing"
	ORDER_STATUS_SHIPPED    = "shipped"
	ORDER_STATUS_DELIVERED  = "delivered"
	ORDER_STATUS_CANCELLED  = "cancelled"
)

const (
	ORDER_PAYMENT_STATUS_UNPAID = "unpaid"
	ORDER_PAYMENT_STATUS_PAID   = "paid"
)

type SnapshotItem struct {
	ProductID string  `bson:"productId" json:"productId"`
	Name      string  `bson:"name,omitempty" json:"name,omitempty"`
	Price     float64 `bson:"price,omitempty" json:"price,omitempty"`
	Quantity  int     `bson:"quantity" json:"quantity"`
}

type CartSnapshot struct {
	Items []SnapshotItem `bson:"items" json:"items"`
}

// Metadata holds the product snapshot captured at payment initiation. Exactly
// one of the variants is set: a full cart snapshot, a direct item list, or
// neither when the payment was initiated without product info.
type Metadata struct {
	Cart  *CartSnapshot  `bson:"cart,omitempty" json:"cart,omitempty"`
	Items []SnapshotItem `bson:"items,omitempty" json:"items,omitempty"`
}

// SnapshotItems resolves the variant to the item list, nil when no product
// info was captured.
func (m Metadata) SnapshotItems() []SnapshotItem {
	if m.Cart != nil {
		return m.Cart.Items
	}
	return m.Items
}

type Payment struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	AccountID string             `bson:"accountId" json:"accountId"`
	// nil until the payment is reconciled to an order
	OrderID *primitive.ObjectID `bson:"orderId" json:"orderId,omitempty"`
	// amount in the base currency unit (rupees)
	Amount float64 `bson:"amount" json:"amount"`
	// gateway transaction reference (pidx), unique
	ExternalTransactionID string   `bson:"externalTransactionId" json:"externalTransactionId"`
	Status                string   `bson:"status" json:"status"`
	FailureReason         string   `bson:"failureReason,omitempty" json:"failureReason,omitempty"`
	Metadata              Metadata `bson:"metadata,omitempty" json:"metadata,omitempty"`

	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

type OrderItem struct {
	ProductID string  `bson:"productId" json:"productId"`
	Name      string  `bson:"name,omitempty" json:"name,omitempty"`
	UnitPrice float64 `bson:"unitPrice" json:"unitPrice"`
	Quantity  int     `bson:"quantity" json:"quantity"`
	Subtotal  float64 `bson:"subtotal" json:"subtotal"`
}

type Order struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	OrderNumber string             `bson:"orderNumber" json:"orderNumber"`
	AccountID   string             `bson:"accountId" json:"accountId"`
	Items       []OrderItem        `bson:"items" json:"items"`

	Subtotal float64 `bson:"subtotal" json:"subtotal"`
	Tax      float64 `bson:"tax" json:"tax"`
	Shipping float64 `bson:"shipping" json:"shipping"`
	Discount float64 `bson:"discount" json:"discount"`
	Total    float64 `bson:"total" json:"total"`

	Status        string             `bson:"status" json:"status"`
	PaymentStatus string             `bson:"paymentStatus" json:"paymentStatus"`
	PaymentID     primitive.ObjectID `bson:"paymentId,omitempty" json:"paymentId,omitempty"`

	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}
