package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/careerforge/careerforge/internal/pkg/env"
)

const defaultRazorpayAPIBaseURL = "https://api.razorpay.com"

// GatewayClient is the injected external gateway collaborator: it mints
// order ids and exposes the checkout key. It performs no local persistence.
type GatewayClient interface {
	CreateOrder(ctx context.Context, amount int64, currency, receipt string) (string, error)
	PublicKey() string
	IsTestMode() bool
}

// RazorpayClient talks to the Razorpay Orders API.
type RazorpayClient struct {
	KeyID      string
	KeySecret  string
	APIBaseURL string

	HTTPClient *http.Client
}

func NewRazorpayClientFromEnv() *RazorpayClient {
	return &RazorpayClient{
		KeyID:      strings.TrimSpace(env.GetEnv("RAZORPAY_KEY_ID", "")),
		KeySecret:  strings.TrimSpace(env.GetEnv("RAZORPAY_KEY_SECRET", "")),
		APIBaseURL: strings.TrimSpace(env.GetEnv("RAZORPAY_API_BASE_URL", defaultRazorpayAPIBaseURL)),
		HTTPClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// PublicKey returns the checkout key id handed to the browser client.
func (c *RazorpayClient) PublicKey() string {
	return c.KeyID
}

// IsTestMode reports whether the configured key is a test-mode key.
func (c *RazorpayClient) IsTestMode() bool {
	return strings.HasPrefix(c.KeyID, "rzp_test_")
}

// CreateOrder mints a gateway order and returns its external order id.
func (c *RazorpayClient) CreateOrder(ctx context.Context, amount int64, currency, receipt string) (string, error) {
	if strings.TrimSpace(c.KeyID) == "" || strings.TrimSpace(c.KeySecret) == "" {
		return "", errors.New("RAZORPAY_KEY_ID/RAZORPAY_KEY_SECRET are not configured")
	}
	if amount <= 0 {
		return "", errors.New("order amount must be positive")
	}

	body, err := json.Marshal(map[string]interface{}{
		"amount":   amount,
		"currency": currency,
		"receipt":  receipt,
	})
	if err != nil {
		return "", err
	}

	url := strings.TrimRight(c.APIBaseURL, "/") + "/v1/orders"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.SetBasicAuth(c.KeyID, c.KeySecret)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("gateway order creation failed: status=%d body=%s", resp.StatusCode, string(respBody))
	}

	var out struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(respBody, &out); err != nil {
		return "", err
	}
	if strings.TrimSpace(out.ID) == "" {
		return "", errors.New("gateway order response missing order id")
	}
	return out.ID, nil
}
