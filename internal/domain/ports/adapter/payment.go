package adapter

import (
	"context"

	"fitness-subscription-platform/internal/domain/model"
)

// CheckoutSession is the gateway-hosted checkout handle returned to clients.
// Razorpay-style gateways hand back an order id the client-side widget opens;
// redirect-style gateways fill RedirectURL instead.
type CheckoutSession struct {
	OrderID     string
	RedirectURL string
	AmountMinor int64
	Currency    string
	Receipt     string
	KeyID       string // public key the client widget needs
}

// Metadata is the opaque context embedded in a checkout session and echoed
// back unmodified by the gateway on confirmation. The round-trip is how the
// reconciliation engine recovers user and plan without a lookup table.
type Metadata struct {
	UserID string
	PlanID string
}

// ConfirmedPayment is one signature-verified gateway confirmation.
type ConfirmedPayment struct {
	TransactionID string // gateway payment id; the idempotency key
	OrderID       string
	Provider      string
	AmountMinor   int64
	Currency      string
	Meta          Metadata
}

// PaymentGateway is the hex port for payment providers.
type PaymentGateway interface {
	Name() string

	// CreateCheckoutSession initiates a hosted checkout for the plan's price,
	// embedding userID/planID as gateway metadata.
	CreateCheckoutSession(ctx context.Context, userID string, plan *model.Plan, receipt string) (*CheckoutSession, error)

	// VerifyWebhook authenticates a webhook delivery with a constant-time
	// HMAC over the exact raw bytes received, then parses it. It returns
	// domain.ErrSignatureInvalid on any mismatch, and (nil, nil) for
	// signature-valid events that carry no capture to reconcile.
	VerifyWebhook(rawBody []byte, signature string) (*ConfirmedPayment, error)

	// VerifyCheckoutSignature checks the client-side proof from the checkout
	// widget (HMAC over "orderID|paymentID"). Fails closed with
	// domain.ErrSignatureInvalid.
	VerifyCheckoutSignature(orderID, paymentID, signature string) error

	// FetchPayment retrieves a captured payment by gateway payment id. Used
	// by the poll fallback; never called on the webhook path.
	FetchPayment(ctx context.Context, paymentID string) (*ConfirmedPayment, error)

	// FetchOrderPayments lists captured payments for an order; feeds the
	// stale-pending reconciler worker.
	FetchOrderPayments(ctx context.Context, orderID string) ([]*ConfirmedPayment, error)
}
