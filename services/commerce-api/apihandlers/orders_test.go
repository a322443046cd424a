package apihandlers

import (
	"testing"

	"github.com/maneesh0001/Security-Thriftstore-backend/pkg/payment"
)

func TestOrderCancellable(t *testing.T) {
	t.Run("before shipping", func(t *testing.T) {
		for _, status := range []string{
			payment.ORDER_STATUS_PENDING,
			payment.ORDER_STATUS_CONFIRMED,
			payment.ORDER_STATUS_PROCESSING,
		} {
			if !orderCancellable(status) {
				t.Errorf("%s should be cancellable", status)
			}
		}
	})

	t.Run("at or after shipping", func(t *testing.T) {
		for _, status := range []string{
			payment.ORDER_STATUS_SHIPPED,
			payment.ORDER_STATUS_DELIVERED,
			payment.ORDER_STATUS_CANCELLED,
		} {
			if orderCancellable(status) {
				t.Errorf("%s should not be cancellable", status)
			}
		}
	})
}
