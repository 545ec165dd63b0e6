package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func hmacHex(secret string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestVerifyWebhookSignature(t *testing.T) {
	body := []byte(`{"event":"payment.captured"}`)
	secret := "whsec_test"

	tests := []struct {
		name      string
		payload   []byte
		signature string
		secret    string
		expected  bool
	}{
		{
			name:      "valid signature",
			payload:   body,
			signature: hmacHex(secret, body),
			secret:    secret,
			expected:  true,
		},
		{
			name:      "valid signature with surrounding whitespace",
			payload:   body,
			signature: "  " + hmacHex(secret, body) + "\n",
			secret:    secret,
			expected:  true,
		},
		{
			name:      "uppercase hex is accepted",
			payload:   body,
			signature: strings.ToUpper(hmacHex(secret, body)),
			secret:    secret,
			expected:  true,
		},
		{
			name:      "wrong secret",
			payload:   body,
			signature: hmacHex("other_secret", body),
			secret:    secret,
			expected:  false,
		},
		{
			name:      "tampered payload",
			payload:   []byte(`{"event":"payment.failed"}`),
			signature: hmacHex(secret, body),
			secret:    secret,
			expected:  false,
		},
		{
			name:      "empty signature",
			payload:   body,
			signature: "",
			secret:    secret,
			expected:  false,
		},
		{
			name:      "empty secret",
			payload:   body,
			signature: hmacHex(secret, body),
			secret:    "",
			expected:  false,
		},
		{
			name:      "non-hex signature",
			payload:   body,
			signature: "not-a-hex-string",
			secret:    secret,
			expected:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := VerifyWebhookSignature(tt.payload, tt.signature, tt.secret)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestVerifyCallbackSignature(t *testing.T) {
	keySecret := "key_secret_test"
	orderID := "order_Abc123"
	paymentID := "pay_Xyz789"
	valid := hmacHex(keySecret, []byte(orderID+"|"+paymentID))

	tests := []struct {
		name      string
		orderID   string
		paymentID string
		signature string
		keySecret string
		expected  bool
	}{
		{
			name:      "valid signature",
			orderID:   orderID,
			paymentID: paymentID,
			signature: valid,
			keySecret: keySecret,
			expected:  true,
		},
		{
			name:      "swapped order and payment ids",
			orderID:   paymentID,
			paymentID: orderID,
			signature: valid,
			keySecret: keySecret,
			expected:  false,
		},
		{
			name:      "wrong key secret",
			orderID:   orderID,
			paymentID: paymentID,
			signature: valid,
			keySecret: "different_secret",
			expected:  false,
		},
		{
			name:      "empty signature",
			orderID:   orderID,
			paymentID: paymentID,
			signature: "",
			keySecret: keySecret,
			expected:  false,
		},
		{
			name:      "empty key secret",
			orderID:   orderID,
			paymentID: paymentID,
			signature: valid,
			keySecret: "",
			expected:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := VerifyCallbackSignature(tt.orderID, tt.paymentID, tt.signature, tt.keySecret)
			assert.Equal(t, tt.expected, got)
		})
	}
}
