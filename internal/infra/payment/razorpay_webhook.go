package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"fitness-subscription-platform/internal/domain"
	"fitness-subscription-platform/internal/domain/ports/adapter"
)

type razorpayEvent struct {
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity razorpayPayment `json:"entity"`
		} `json:"payment"`
	} `json:"payload"`
}

// VerifyWebhook authenticates the delivery against the exact raw bytes
// received. Parsing happens only after the HMAC holds; an attacker who cannot
// sign cannot make us read their JSON.
func (g *RazorpayGateway) VerifyWebhook(rawBody []byte, signature string) (*adapter.ConfirmedPayment, error) {
	if !checkHMAC(g.webhookSecret, rawBody, signature) {
		return nil, domain.ErrSignatureInvalid
	}

	var ev razorpayEvent
	if err := json.Unmarshal(rawBody, &ev); err != nil {
		return nil, fmt.Errorf("parse webhook payload: %w", err)
	}

	// Only captures carry money to reconcile. Authorized/failed events are
	// acknowledged and dropped.
	if ev.Event != "payment.captured" {
		return nil, nil
	}

	p := ev.Payload.Payment.Entity
	if p.ID == "" || p.OrderID == "" {
		return nil, fmt.Errorf("capture event missing payment or order id: %w", domain.ErrInvalidArgument)
	}
	return g.confirmed(p), nil
}

// VerifyCheckoutSignature checks the proof the checkout widget hands the
// client after a successful payment: HMAC-SHA256 over "orderID|paymentID"
// keyed by the API secret.
func (g *RazorpayGateway) VerifyCheckoutSignature(orderID, paymentID, signature string) error {
	payload := orderID + "|" + paymentID
	if !checkHMAC(g.keySecret, []byte(payload), signature) {
		return domain.ErrSignatureInvalid
	}
	return nil
}

func checkHMAC(secret string, data []byte, signature string) bool {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(data)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}
