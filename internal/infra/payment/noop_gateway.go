package payment

import (
	"context"
	"fmt"
	"time"

	"fitness-subscription-platform/internal/domain/model"
	"fitness-subscription-platform/internal/domain/ports/adapter"
)

var _ adapter.PaymentGateway = (*NoopGateway)(nil)

// NoopGateway is a local-development stand-in that never talks to a real
// provider. Every checkout succeeds and every fetch reports a capture.
type NoopGateway struct{}

func NewNoopGateway() *NoopGateway { return &NoopGateway{} }

func (NoopGateway) Name() string { return "noop" }

func (NoopGateway) CreateCheckoutSession(_ context.Context, userID string, plan *model.Plan, receipt string) (*adapter.CheckoutSession, error) {
	return &adapter.CheckoutSession{
		OrderID:     fmt.Sprintf("order_noop_%d", time.Now().UnixNano()),
		AmountMinor: plan.PriceMinor,
		Currency:    plan.Currency,
		Receipt:     receipt,
		KeyID:       "noop",
	}, nil
}

func (NoopGateway) VerifyWebhook([]byte, string) (*adapter.ConfirmedPayment, error) {
	return nil, nil
}

func (NoopGateway) VerifyCheckoutSignature(string, string, string) error { return nil }

func (g NoopGateway) FetchPayment(_ context.Context, paymentID string) (*adapter.ConfirmedPayment, error) {
	return &adapter.ConfirmedPayment{TransactionID: paymentID, Provider: g.Name()}, nil
}

func (NoopGateway) FetchOrderPayments(context.Context, string) ([]*adapter.ConfirmedPayment, error) {
	return nil, nil
}
