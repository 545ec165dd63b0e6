package payment

import "time"

// Gateway provider identifier used on webhook event records.
const ProviderRazorpay = "razorpay"

// Webhook event types understood by the service. captured and paid both
// settle the order; failed records the terminal failure.
const (
	EventPaymentCaptured = "payment.captured"
	EventOrderPaid       = "order.paid"
	EventPaymentFailed   = "payment.failed"
)

// PendingOrderTTL is how long a created order stays payable.
const PendingOrderTTL = 30 * time.Minute

// OrderDetails is returned to the caller after order creation; it carries
// everything the client needs to open the gateway checkout.
type OrderDetails struct {
	OrderID    string    `json:"order_id"`
	Amount     int64     `json:"amount"`
	Currency   string    `json:"currency"`
	PublicKey  string    `json:"public_key"`
	PaymentID  uint      `json:"payment_id"`
	ExpiresAt  time.Time `json:"expires_at"`
	IsTestMode bool      `json:"is_test_mode"`
}

// WebhookOutcome classifies what a webhook delivery did. Duplicate and
// invalid-state deliveries are short-circuits, not errors; the endpoint
// acknowledges them all the same.
type WebhookOutcome string

const (
	OutcomeProcessed        WebhookOutcome = "processed"
	OutcomeAlreadyProcessed WebhookOutcome = "already_processed"
	OutcomeInvalidState     WebhookOutcome = "invalid_state"
	OutcomeIgnored          WebhookOutcome = "ignored"
)

// WebhookResult reports the outcome of one webhook delivery.
type WebhookResult struct {
	Outcome   WebhookOutcome `json:"outcome"`
	PaymentID uint           `json:"payment_id,omitempty"`
}

// CallbackStatus is the non-authoritative status shown to a returning user.
// It never grants credit; settlement happens only through webhooks.
type CallbackStatus struct {
	SignatureValid bool   `json:"signature_valid"`
	PaymentStatus  string `json:"payment_status"`
}
