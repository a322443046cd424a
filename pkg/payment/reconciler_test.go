package payment

import (
	"errors"
	"fmt"
	"math"
	"testing"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/maneesh0001/Security-Thriftstore-backend/pkg/payment/khalti"
)

type fakePaymentStore struct {
	payments map[string]*Payment // keyed by pidx
}

func newFakePaymentStore(payments ...Payment) *fakePaymentStore {
	store := &fakePaymentStore{payments: map[string]*Payment{}}
	for i := range payments {
		p := payments[i]
		if p.ID.IsZero() {
			p.ID = primitive.NewObjectID()
		}
		store.payments[p.ExternalTransactionID] = &p
	}
	return store
}

func (s *fakePaymentStore) GetPaymentByTransactionID(pidx string) (Payment, error) {
	p, ok := s.payments[pidx]
	if !ok {
		return Payment{}, ErrPaymentNotFound
	}
	return *p, nil
}

func (s *fakePaymentStore) GetPaymentByID(id primitive.ObjectID) (Payment, error) {
	for _, p := range s.payments {
		if p.ID == id {
			return *p, nil
		}
	}
	return Payment{}, ErrPaymentNotFound
}

func (s *fakePaymentStore) UpdatePaymentStatus(id primitive.ObjectID, fromStatus string, toStatus string, failureReason string) (bool, error) {
	for _, p := range s.payments {
		if p.ID == id && p.Status == fromStatus {
			p.Status = toStatus
			p.FailureReason = failureReason
			return true, nil
		}
	}
	return false, nil
}

func (s *fakePaymentStore) LinkOrderToPayment(id primitive.ObjectID, orderID primitive.ObjectID) (bool, error) {
	for _, p := range s.payments {
		if p.ID == id && p.OrderID == nil {
			oid := orderID
			p.OrderID = &oid
			return true, nil
		}
	}
	return false, nil
}

type fakeOrderStore struct {
	orders      map[primitive.ObjectID]Order
	saveCount   int
	deleteCount int
	failSave    bool
	sequence    int
}

func newFakeOrderStore() *fakeOrderStore {
	return &fakeOrderStore{orders: map[primitive.ObjectID]Order{}}
}

func (s *fakeOrderStore) SaveOrder(order Order) (Order, error) {
	if s.failSave {
		return Order{}, errors.New("db unavailable")
	}
	s.saveCount += 1
	order.ID = primitive.NewObjectID()
	s.orders[order.ID] = order
	return order, nil
}

func (s *fakeOrderStore) GetOrderByID(id primitive.ObjectID) (Order, error) {
	order, ok := s.orders[id]
	if !ok {
		return Order{}, ErrOrderNotFound
	}
	return order, nil
}

func (s *fakeOrderStore) DeleteOrder(id primitive.ObjectID) error {
	s.deleteCount += 1
	delete(s.orders, id)
	return nil
}

func (s *fakeOrderStore) NextOrderNumber() (string, error) {
	s.sequence += 1
	return fmt.Sprintf("ORD-1756000000000-%04d", s.sequence), nil
}

type fakeCatalog struct {
	prices map[string]float64
}

func (c *fakeCatalog) GetProductPrice(productID string) (float64, error) {
	price, ok := c.prices[productID]
	if !ok {
		return 0, ErrProductNotFound
	}
	return price, nil
}

type fakeGateway struct {
	status GatewayStatus
	err    error
	calls  int
}

func (g *fakeGateway) LookupPayment(pidx string) (GatewayStatus, error) {
	g.calls += 1
	if g.err != nil {
		return GatewayStatus{}, g.err
	}
	return g.status, nil
}

func pendingPayment(amount float64, metadata Metadata) Payment {
	return Payment{
		ID:                    primitive.NewObjectID(),
		AccountID:             "acc-1",
		Amount:                amount,
		ExternalTransactionID: "pidx-1",
		Status:                PAYMENT_STATUS_PENDING,
		Metadata:              metadata,
	}
}

func newTestReconciler(payments *fakePaymentStore, orders *fakeOrderStore, catalog *fakeCatalog, gateway *fakeGateway) *Reconciler {
	if catalog == nil {
		catalog = &fakeCatalog{prices: map[string]float64{}}
	}
	return NewReconciler(payments, orders, catalog, gateway)
}

func TestVerifyPayment(t *testing.T) {
	t.Run("unknown transaction id is a hard error", func(t *testing.T) {
		r := newTestReconciler(newFakePaymentStore(), newFakeOrderStore(), nil, &fakeGateway{})
		_, err := r.VerifyPayment("no-such-pidx")
		if !errors.Is(err, ErrPaymentNotFound) {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("completed upstream creates and links the order", func(t *testing.T) {
		p := pendingPayment(300, Metadata{Cart: &CartSnapshot{Items: []SnapshotItem{
			{ProductID: "prod-1", Name: "Denim jacket", Price: 100, Quantity: 1},
			{ProductID: "prod-2", Name: "Wool scarf", Price: 100, Quantity: 2},
		}}})
		payments := newFakePaymentStore(p)
		orders := newFakeOrderStore()
		gateway := &fakeGateway{status: GatewayStatus{Status: khalti.STATUS_COMPLETED, AmountPaisa: 30000}}
		r := newTestReconciler(payments, orders, nil, gateway)

		result, err := r.VerifyPayment("pidx-1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.Payment.Status != PAYMENT_STATUS_COMPLETED {
			t.Errorf("unexpected payment status: %s", result.Payment.Status)
		}
		if result.Order == nil {
			t.Fatal("expected an order")
		}
		if result.Order.Status != ORDER_STATUS_CONFIRMED || result.Order.PaymentStatus != ORDER_PAYMENT_STATUS_PAID {
			t.Errorf("unexpected order state: %s / %s", result.Order.Status, result.Order.PaymentStatus)
		}
		if len(result.Order.Items) != 2 {
			t.Errorf("unexpected item count: %d", len(result.Order.Items))
		}
		if result.Order.OrderNumber == "" {
			t.Error("order number should be set")
		}
		stored, _ := payments.GetPaymentByTransactionID("pidx-1")
		if stored.OrderID == nil || *stored.OrderID != result.Order.ID {
			t.Error("payment should link back to the order")
		}
	})

	t.Run("replayed verification creates exactly one order", func(t *testing.T) {
		p := pendingPayment(100, Metadata{Items: []SnapshotItem{
			{ProductID: "prod-1", Price: 100, Quantity: 1},
		}})
		payments := newFakePaymentStore(p)
		orders := newFakeOrderStore()
		gateway := &fakeGateway{status: GatewayStatus{Status: khalti.STATUS_COMPLETED}}
		r := newTestReconciler(payments, orders, nil, gateway)

		first, err := r.VerifyPayment("pidx-1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		second, err := r.VerifyPayment("pidx-1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if orders.saveCount != 1 {
			t.Errorf("expected exactly one order, got %d", orders.saveCount)
		}
		if second.Order == nil || second.Order.ID != first.Order.ID {
			t.Error("replay should return the same order")
		}
		if gateway.calls != 1 {
			t.Errorf("replay of a completed payment should not call the gateway again, got %d calls", gateway.calls)
		}
	})

	t.Run("pending upstream keeps the payment pending", func(t *testing.T) {
		payments := newFakePaymentStore(pendingPayment(100, Metadata{}))
		orders := newFakeOrderStore()
		gateway := &fakeGateway{status: GatewayStatus{Status: khalti.STATUS_PENDING}}
		r := newTestReconciler(payments, orders, nil, gateway)

		result, err := r.VerifyPayment("pidx-1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.Payment.Status != PAYMENT_STATUS_PENDING {
			t.Errorf("unexpected status: %s", result.Payment.Status)
		}
		if orders.saveCount != 0 {
			t.Error("no order should be created")
		}
	})

	t.Run("other upstream status fails the payment with reason", func(t *testing.T) {
		payments := newFakePaymentStore(pendingPayment(100, Metadata{}))
		gateway := &fakeGateway{status: GatewayStatus{Status: "Expired"}}
		r := newTestReconciler(payments, newFakeOrderStore(), nil, gateway)

		result, err := r.VerifyPayment("pidx-1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.Payment.Status != PAYMENT_STATUS_FAILED {
			t.Errorf("unexpected status: %s", result.Payment.Status)
		}
		if result.Payment.FailureReason != "Expired" {
			t.Errorf("unexpected failure reason: %s", result.Payment.FailureReason)
		}
	})

	t.Run("gateway error propagates and never completes the payment", func(t *testing.T) {
		payments := newFakePaymentStore(pendingPayment(100, Metadata{}))
		gateway := &fakeGateway{err: errors.New("timeout")}
		r := newTestReconciler(payments, newFakeOrderStore(), nil, gateway)

		_, err := r.VerifyPayment("pidx-1")
		if err == nil {
			t.Fatal("expected error")
		}
		stored, _ := payments.GetPaymentByTransactionID("pidx-1")
		if stored.Status != PAYMENT_STATUS_PENDING {
			t.Errorf("payment must stay pending, got %s", stored.Status)
		}
	})

	t.Run("order save failure does not fail the verification", func(t *testing.T) {
		payments := newFakePaymentStore(pendingPayment(100, Metadata{}))
		orders := newFakeOrderStore()
		orders.failSave = true
		gateway := &fakeGateway{status: GatewayStatus{Status: khalti.STATUS_COMPLETED}}
		r := newTestReconciler(payments, orders, nil, gateway)

		result, err := r.VerifyPayment("pidx-1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.Payment.Status != PAYMENT_STATUS_COMPLETED {
			t.Errorf("unexpected status: %s", result.Payment.Status)
		}
		if !result.OrderCreationFailed {
			t.Error("order creation failure should be flagged")
		}
	})

	t.Run("replay repairs a completed payment missing its order", func(t *testing.T) {
		payments := newFakePaymentStore(pendingPayment(100, Metadata{Items: []SnapshotItem{
			{ProductID: "prod-1", Name: "Denim jacket", Price: 100, Quantity: 1},
		}}))
		orders := newFakeOrderStore()
		orders.failSave = true
		gateway := &fakeGateway{status: GatewayStatus{Status: khalti.STATUS_COMPLETED}}
		r := newTestReconciler(payments, orders, nil, gateway)

		first, err := r.VerifyPayment("pidx-1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !first.OrderCreationFailed {
			t.Fatal("first verification should flag the missing order")
		}

		orders.failSave = false
		second, err := r.VerifyPayment("pidx-1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if second.OrderCreationFailed {
			t.Error("replay should recover from the earlier save failure")
		}
		if second.Order == nil {
			t.Fatal("replay should reconstruct the order")
		}
		if orders.saveCount != 1 {
			t.Errorf("expected exactly one order, got %d", orders.saveCount)
		}
		stored, _ := payments.GetPaymentByTransactionID("pidx-1")
		if stored.OrderID == nil || *stored.OrderID != second.Order.ID {
			t.Error("payment should link back to the reconstructed order")
		}
		if gateway.calls != 1 {
			t.Errorf("replay of a completed payment should not call the gateway again, got %d calls", gateway.calls)
		}
	})
}

func TestBuildOrderItems(t *testing.T) {
	t.Run("cart snapshot with prices", func(t *testing.T) {
		p := pendingPayment(250, Metadata{Cart: &CartSnapshot{Items: []SnapshotItem{
			{ProductID: "prod-1", Price: 50, Quantity: 1},
			{ProductID: "prod-2", Price: 100, Quantity: 2},
		}}})
		r := newTestReconciler(newFakePaymentStore(), newFakeOrderStore(), nil, &fakeGateway{})

		items := r.buildOrderItems(p)
		if len(items) != 2 {
			t.Fatalf("unexpected item count: %d", len(items))
		}
		if items[1].Subtotal != 200 {
			t.Errorf("unexpected subtotal: %f", items[1].Subtotal)
		}
	})

	t.Run("missing price resolves from the catalog", func(t *testing.T) {
		p := pendingPayment(80, Metadata{Items: []SnapshotItem{
			{ProductID: "prod-1", Quantity: 1},
		}})
		catalog := &fakeCatalog{prices: map[string]float64{"prod-1": 80}}
		r := newTestReconciler(newFakePaymentStore(), newFakeOrderStore(), catalog, &fakeGateway{})

		items := r.buildOrderItems(p)
		if items[0].UnitPrice != 80 {
			t.Errorf("unexpected price: %f", items[0].UnitPrice)
		}
	})

	t.Run("unknown product falls back to even split", func(t *testing.T) {
		p := pendingPayment(200, Metadata{Items: []SnapshotItem{
			{ProductID: "gone-1", Quantity: 1},
			{ProductID: "gone-2", Quantity: 1},
		}})
		r := newTestReconciler(newFakePaymentStore(), newFakeOrderStore(), nil, &fakeGateway{})

		items := r.buildOrderItems(p)
		for _, item := range items {
			if item.UnitPrice != 100 {
				t.Errorf("unexpected price: %f", item.UnitPrice)
			}
		}
	})

	t.Run("no product info creates one generic line", func(t *testing.T) {
		p := pendingPayment(150, Metadata{})
		r := newTestReconciler(newFakePaymentStore(), newFakeOrderStore(), nil, &fakeGateway{})

		items := r.buildOrderItems(p)
		if len(items) != 1 {
			t.Fatalf("unexpected item count: %d", len(items))
		}
		if items[0].UnitPrice != 150 || items[0].Quantity != 1 {
			t.Errorf("unexpected generic line: %+v", items[0])
		}
	})
}

func TestReconcileItemTotals(t *testing.T) {
	t.Run("small discrepancy is left alone", func(t *testing.T) {
		items := []OrderItem{{UnitPrice: 99.5, Quantity: 1, Subtotal: 99.5}}
		adjusted := reconcileItemTotals(items, 100)
		if adjusted[0].Subtotal != 99.5 {
			t.Errorf("should not be rescaled: %f", adjusted[0].Subtotal)
		}
	})

	t.Run("large discrepancy rescales to the paid amount exactly", func(t *testing.T) {
		items := []OrderItem{
			{UnitPrice: 100, Quantity: 1, Subtotal: 100},
			{UnitPrice: 50, Quantity: 2, Subtotal: 100},
		}
		adjusted := reconcileItemTotals(items, 150)
		total := 0.0
		for _, item := range adjusted {
			total += item.Subtotal
		}
		if total != 150 {
			t.Errorf("sum should reconcile exactly: %f", total)
		}
		if math.Abs(adjusted[0].UnitPrice-75) > 1e-9 {
			t.Errorf("prices should rescale uniformly: %f", adjusted[0].UnitPrice)
		}
	})

	t.Run("zero calculated total is not rescaled", func(t *testing.T) {
		items := []OrderItem{{Quantity: 1}}
		adjusted := reconcileItemTotals(items, 100)
		if adjusted[0].Subtotal != 0 {
			t.Errorf("unexpected subtotal: %f", adjusted[0].Subtotal)
		}
	})
}
