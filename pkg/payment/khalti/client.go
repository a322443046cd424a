package khalti

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// upstream payment states as reported by the lookup API
const (
	STATUS_COMPLETED = "Completed"
	STATUS_PENDING   = "Pending"
)

type ClientConfig struct {
	BaseURL   string        `yaml:"base_url"`
	SecretKey string        `yaml:"secret_key"`
	Timeout   time.Duration `yaml:"timeout"`
}

type Client struct {
	config     ClientConfig
	httpClient *http.Client
}

func NewClient(config ClientConfig) *Client {
	if config.Timeout <= 0 {
		config.Timeout = 15 * time.Second
	}
	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
	}
}

type CustomerInfo struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone,omitempty"`
}

type InitiateRequest struct {
	ReturnURL  string `json:"return_url"`
	WebsiteURL string `json:"website_url"`
	// amount in paisa (1/100 of the base currency unit)
	Amount            int64        `json:"amount"`
	PurchaseOrderID   string       `json:"purchase_order_id"`
	PurchaseOrderName string       `json:"purchase_order_name"`
	CustomerInfo      CustomerInfo `json:"customer_info"`
}

type InitiateResponse struct {
	Pidx       string `json:"pidx"`
	PaymentURL string `json:"payment_url"`
	ExpiresAt  string `json:"expires_at"`
}

type LookupResponse struct {
	Pidx          string `json:"pidx"`
	TotalAmount   int64  `json:"total_amount"`
	Status        string `json:"status"`
	TransactionID string `json:"transaction_id"`
	Fee           int64  `json:"fee"`
	Refunded      bool   `json:"refunded"`
}

// Initiate registers a new payment with the gateway and returns the pidx
// reference and the redirect URL for the customer.
func (c *Client) Initiate(req InitiateRequest) (*InitiateResponse, error) {
	var resp InitiateResponse
	if err := c.runCall("/epayment/initiate/", req, &resp); err != nil {
		return nil, err
	}
	if resp.Pidx == "" {
		return nil, fmt.Errorf("gateway returned no transaction reference")
	}
	return &resp, nil
}

// Lookup fetches the authoritative payment status for a pidx.
func (c *Client) Lookup(pidx string) (*LookupResponse, error) {
	var resp LookupResponse
	payload := map[string]string{"pidx": pidx}
	if err := c.runCall("/epayment/lookup/", payload, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) runCall(pathname string, payload interface{}, result interface{}) error {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	url := c.config.BaseURL + pathname
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		slog.Error("unexpected error in preparing gateway request", slog.String("error", err.Error()))
		return err
	}
	req.Header.Set("Authorization", "Key "+c.config.SecretKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		slog.Error("unexpected error in gateway call", slog.String("url", pathname), slog.String("error", err.Error()))
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errBody map[string]interface{}
		_ = json.NewDecoder(resp.Body).Decode(&errBody)
		return fmt.Errorf("gateway call to %s failed with status %d: %v", pathname, resp.StatusCode, errBody)
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		slog.Error("error decoding gateway response", slog.String("error", err.Error()))
		return err
	}
	return nil
}
