package payment

import (
	"github.com/maneesh0001/Security-Thriftstore-backend/pkg/payment/khalti"
)

// KhaltiGateway adapts the Khalti API client to the Gateway interface.
type KhaltiGateway struct {
	client *khalti.Client
}

func NewKhaltiGateway(client *khalti.Client) *KhaltiGateway {
	return &KhaltiGateway{client: client}
}

func (g *KhaltiGateway) LookupPayment(pidx string) (GatewayStatus, error) {
	resp, err := g.client.Lookup(pidx)
	if err != nil {
		return GatewayStatus{}, err
	}
	return GatewayStatus{
		Status:        resp.Status,
		AmountPaisa:   resp.TotalAmount,
		TransactionID: resp.TransactionID,
	}, nil
}
