package model

import "time"

type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "pending"  // checkout session created; awaiting gateway confirmation
	PaymentStatusSuccess  PaymentStatus = "success"  // confirmed by the gateway, subscription granted
	PaymentStatusFailed   PaymentStatus = "failed"   // gateway reported failure or session abandoned
	PaymentStatusRefunded PaymentStatus = "refunded" // refunded after success
)

// Refund is the single allowed mutation of a successful payment.
type Refund struct {
	AmountMinor int64
	Reason      string
	Actor       string // admin user id
	At          time.Time
}

// Payment records one payment attempt and its outcome. TransactionID is the
// gateway-issued idempotency key: at most one row ever carries a given value,
// enforced by a unique index. Rows are immutable once successful, except for
// the refund transition.
type Payment struct {
	ID             string  // UUID
	UserID         string  // UUID
	TrainerID      *string // set only for trainer-directed payments
	PlanID         string  // UUID
	Provider       string  // gateway name, e.g. "razorpay"
	AmountMinor    int64
	Currency       string
	OrderID        string  // gateway checkout session / order id
	Receipt        string  // our receipt identifier sent to the gateway
	TransactionID  *string // gateway payment id; nil until confirmed
	Status         PaymentStatus
	SubscriptionID *string // subscription this payment activated
	Refund         *Refund
	CreatedAt      time.Time
	UpdatedAt      time.Time
	PaidAt         *time.Time
}
