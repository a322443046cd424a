package payment

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/maneesh0001/Security-Thriftstore-backend/pkg/payment/khalti"
)

// price sums within this distance of the paid amount are accepted as-is
const reconcileEpsilon = 1.0

type Reconciler struct {
	payments PaymentStore
	orders   OrderStore
	products ProductCatalog
	gateway  Gateway
}

func NewReconciler(
	payments PaymentStore,
	orders OrderStore,
	products ProductCatalog,
	gateway Gateway,
) *Reconciler {
	return &Reconciler{
		payments: payments,
		orders:   orders,
		products: products,
		gateway:  gateway,
	}
}

type VerifyResult struct {
	Payment Payment
	Order   *Order
	// set when the payment completed but the order could not be created;
	// the inconsistency is recoverable, not fatal
	OrderCreationFailed bool
}

// VerifyPayment reconciles a payment against the gateway's authoritative
// status. Safe to call repeatedly for the same transaction id: replays of a
// completed payment never create a second order.
func (r *Reconciler) VerifyPayment(pidx string) (*VerifyResult, error) {
	p, err := r.payments.GetPaymentByTransactionID(pidx)
	if err != nil {
		return nil, err
	}

	// already reconciled, reply idempotently without calling the gateway
	if p.Status == PAYMENT_STATUS_COMPLETED {
		return r.resultForCompleted(p)
	}

	upstream, err := r.gateway.LookupPayment(pidx)
	if err != nil {
		return nil, fmt.Errorf("gateway lookup failed: %w", err)
	}

	switch upstream.Status {
	case khalti.STATUS_COMPLETED:
		return r.completePayment(p)
	case khalti.STATUS_PENDING:
		return &VerifyResult{Payment: p}, nil
	default:
		modified, err := r.payments.UpdatePaymentStatus(p.ID, PAYMENT_STATUS_PENDING, PAYMENT_STATUS_FAILED, upstream.Status)
		if err != nil {
			return nil, err
		}
		if modified {
			p.Status = PAYMENT_STATUS_FAILED
			p.FailureReason = upstream.Status
		} else {
			// lost a race against another transition, report current state
			p, err = r.payments.GetPaymentByID(p.ID)
			if err != nil {
				return nil, err
			}
		}
		return &VerifyResult{Payment: p}, nil
	}
}

func (r *Reconciler) completePayment(p Payment) (*VerifyResult, error) {
	modified, err := r.payments.UpdatePaymentStatus(p.ID, PAYMENT_STATUS_PENDING, PAYMENT_STATUS_COMPLETED, "")
	if err != nil {
		return nil, err
	}
	if !modified {
		// a concurrent verification won the transition, return its outcome
		current, err := r.payments.GetPaymentByID(p.ID)
		if err != nil {
			return nil, err
		}
		return r.resultForCompleted(current)
	}
	p.Status = PAYMENT_STATUS_COMPLETED

	if p.OrderID != nil {
		return r.resultForCompleted(p)
	}
	return r.attachOrder(p)
}

// attachOrder reconstructs the order for a completed payment and links it.
// Losing the link race means another verification already attached one, so
// the duplicate is discarded and the winner's outcome returned.
func (r *Reconciler) attachOrder(p Payment) (*VerifyResult, error) {
	order, err := r.createOrderForPayment(p)
	if err != nil {
		// the payment stays completed, the order can be repaired later
		slog.Error("order creation failed for completed payment",
			slog.String("paymentId", p.ID.Hex()),
			slog.String("pidx", p.ExternalTransactionID),
			slog.String("error", err.Error()))
		return &VerifyResult{Payment: p, OrderCreationFailed: true}, nil
	}

	linked, err := r.payments.LinkOrderToPayment(p.ID, order.ID)
	if err != nil {
		slog.Error("linking order to payment failed",
			slog.String("paymentId", p.ID.Hex()),
			slog.String("error", err.Error()))
		return &VerifyResult{Payment: p, OrderCreationFailed: true}, nil
	}
	if !linked {
		// a concurrent verification already linked an order, discard ours
		if err := r.orders.DeleteOrder(order.ID); err != nil {
			slog.Error("failed to delete duplicate order", slog.String("orderId", order.ID.Hex()), slog.String("error", err.Error()))
		}
		current, err := r.payments.GetPaymentByID(p.ID)
		if err != nil {
			return nil, err
		}
		return r.resultForCompleted(current)
	}

	p.OrderID = &order.ID
	return &VerifyResult{Payment: p, Order: &order}, nil
}

// resultForCompleted builds the reply for a payment that already reached
// COMPLETED. A payment without a linked order means an earlier verification
// failed halfway, so the order reconstruction is retried here and replays
// repair the gap.
func (r *Reconciler) resultForCompleted(p Payment) (*VerifyResult, error) {
	if p.OrderID == nil {
		return r.attachOrder(p)
	}
	result := &VerifyResult{Payment: p}
	order, err := r.orders.GetOrderByID(*p.OrderID)
	if err != nil {
		slog.Error("could not load order for completed payment", slog.String("paymentId", p.ID.Hex()), slog.String("error", err.Error()))
		return result, nil
	}
	result.Order = &order
	return result, nil
}

func (r *Reconciler) createOrderForPayment(p Payment) (Order, error) {
	items := r.buildOrderItems(p)
	items = reconcileItemTotals(items, p.Amount)

	orderNumber, err := r.orders.NextOrderNumber()
	if err != nil {
		return Order{}, err
	}

	order := Order{
		OrderNumber:   orderNumber,
		AccountID:     p.AccountID,
		Items:         items,
		Subtotal:      p.Amount,
		Total:         p.Amount,
		Status:        ORDER_STATUS_CONFIRMED,
		PaymentStatus: ORDER_PAYMENT_STATUS_PAID,
		PaymentID:     p.ID,
	}
	return r.orders.SaveOrder(order)
}

// buildOrderItems reconstructs order lines from the metadata snapshot taken
// at payment initiation. Prices resolve from the snapshot first, then from
// the current catalog, and as a last resort from an even split of the paid
// amount, so no line ends up with a zero price.
func (r *Reconciler) buildOrderItems(p Payment) []OrderItem {
	snapshot := p.Metadata.SnapshotItems()
	if len(snapshot) == 0 {
		// no product info captured, create a single generic line
		return []OrderItem{
			{
				Quantity:  1,
				UnitPrice: p.Amount,
				Subtotal:  p.Amount,
			},
		}
	}

	fallbackPrice := p.Amount / float64(len(snapshot))

	items := make([]OrderItem, 0, len(snapshot))
	for _, snapItem := range snapshot {
		quantity := snapItem.Quantity
		if quantity < 1 {
			quantity = 1
		}

		price := snapItem.Price
		if price == 0 && snapItem.ProductID != "" {
			currentPrice, err := r.products.GetProductPrice(snapItem.ProductID)
			if err != nil {
				slog.Debug("could not resolve product price for order line",
					slog.String("productId", snapItem.ProductID),
					slog.String("error", err.Error()))
				price = fallbackPrice
			} else {
				price = currentPrice
			}
		}
		if price == 0 {
			price = fallbackPrice
		}

		items = append(items, OrderItem{
			ProductID: snapItem.ProductID,
			Name:      snapItem.Name,
			UnitPrice: price,
			Quantity:  quantity,
			Subtotal:  price * float64(quantity),
		})
	}
	return items
}

// reconcileItemTotals rescales the line prices uniformly when their sum
// disagrees with the paid amount by more than the epsilon, so the persisted
// order reconciles exactly with what was actually paid.
func reconcileItemTotals(items []OrderItem, paidAmount float64) []OrderItem {
	calculatedTotal := 0.0
	for _, item := range items {
		calculatedTotal += item.Subtotal
	}
	if calculatedTotal == 0 || math.Abs(calculatedTotal-paidAmount) <= reconcileEpsilon {
		return items
	}

	factor := paidAmount / calculatedTotal
	adjusted := make([]OrderItem, len(items))
	runningTotal := 0.0
	for i, item := range items {
		item.UnitPrice = item.UnitPrice * factor
		item.Subtotal = item.UnitPrice * float64(item.Quantity)
		adjusted[i] = item
		runningTotal += item.Subtotal
	}

	// fold the float residual into the last line so the sum is exact
	residual := paidAmount - runningTotal
	if residual != 0 {
		last := &adjusted[len(adjusted)-1]
		last.Subtotal += residual
	}
	return adjusted
}
