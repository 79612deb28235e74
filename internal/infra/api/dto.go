package api

import (
	"time"

	"github.com/go-playground/validator/v10"

	"fitness-subscription-platform/internal/domain/model"
	"fitness-subscription-platform/internal/domain/ports/adapter"
	"fitness-subscription-platform/internal/usecase"
)

var validate = validator.New()

type checkoutRequest struct {
	PlanID string `json:"plan_id" validate:"required"`
}

type checkoutResponse struct {
	PaymentID   string `json:"payment_id"`
	OrderID     string `json:"order_id"`
	AmountMinor int64  `json:"amount_minor"`
	Currency    string `json:"currency"`
	Receipt     string `json:"receipt"`
	KeyID       string `json:"key_id"`
}

func newCheckoutResponse(sess *adapter.CheckoutSession, p *model.Payment) checkoutResponse {
	return checkoutResponse{
		PaymentID:   p.ID,
		OrderID:     sess.OrderID,
		AmountMinor: sess.AmountMinor,
		Currency:    sess.Currency,
		Receipt:     sess.Receipt,
		KeyID:       sess.KeyID,
	}
}

type verifyRequest struct {
	OrderID   string `json:"order_id" validate:"required"`
	PaymentID string `json:"payment_id" validate:"required"`
	Signature string `json:"signature" validate:"required"`
}

type planCreateRequest struct {
	Name         string   `json:"name" validate:"required"`
	PriceMinor   int64    `json:"price_minor" validate:"gte=0"`
	Currency     string   `json:"currency" validate:"required,len=3"`
	DurationDays int      `json:"duration_days" validate:"gt=0"`
	Features     []string `json:"features"`
}

type planUpdateRequest struct {
	Name         *string  `json:"name" validate:"omitempty,min=1"`
	PriceMinor   *int64   `json:"price_minor" validate:"omitempty,gte=0"`
	DurationDays *int     `json:"duration_days" validate:"omitempty,gt=0"`
	Features     []string `json:"features"`
	Active       *bool    `json:"active"`
}

func usecasePlanUpdate(req planUpdateRequest) usecase.PlanUpdate {
	return usecase.PlanUpdate{
		Name:         req.Name,
		PriceMinor:   req.PriceMinor,
		DurationDays: req.DurationDays,
		Features:     req.Features,
		Active:       req.Active,
	}
}

type withdrawalCreateRequest struct {
	AmountMinor int64 `json:"amount_minor" validate:"gt=0"`
}

type refundRequest struct {
	AmountMinor int64  `json:"amount_minor" validate:"gt=0"`
	Reason      string `json:"reason" validate:"required"`
}

type planResponse struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	PriceMinor   int64    `json:"price_minor"`
	Currency     string   `json:"currency"`
	DurationDays int      `json:"duration_days"`
	Features     []string `json:"features"`
	Active       bool     `json:"active"`
}

func newPlanResponse(p *model.Plan) planResponse {
	return planResponse{
		ID:           p.ID,
		Name:         p.Name,
		PriceMinor:   p.PriceMinor,
		Currency:     p.Currency,
		DurationDays: p.DurationDays,
		Features:     p.Features,
		Active:       p.Active,
	}
}

type subscriptionResponse struct {
	ID        string    `json:"id"`
	PlanID    string    `json:"plan_id"`
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
	Status    string    `json:"status"`
}

func newSubscriptionResponse(s *model.Subscription) subscriptionResponse {
	return subscriptionResponse{
		ID:        s.ID,
		PlanID:    s.PlanID,
		StartDate: s.StartDate,
		EndDate:   s.EndDate,
		Status:    string(s.Status),
	}
}

type refundResponse struct {
	AmountMinor int64     `json:"amount_minor"`
	Reason      string    `json:"reason"`
	Actor       string    `json:"actor"`
	At          time.Time `json:"at"`
}

type paymentResponse struct {
	ID             string          `json:"id"`
	PlanID         string          `json:"plan_id"`
	Provider       string          `json:"provider"`
	AmountMinor    int64           `json:"amount_minor"`
	Currency       string          `json:"currency"`
	OrderID        string          `json:"order_id"`
	TransactionID  *string         `json:"transaction_id,omitempty"`
	Status         string          `json:"status"`
	SubscriptionID *string         `json:"subscription_id,omitempty"`
	Refund         *refundResponse `json:"refund,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	PaidAt         *time.Time      `json:"paid_at,omitempty"`
}

func newPaymentResponse(p *model.Payment) paymentResponse {
	resp := paymentResponse{
		ID:             p.ID,
		PlanID:         p.PlanID,
		Provider:       p.Provider,
		AmountMinor:    p.AmountMinor,
		Currency:       p.Currency,
		OrderID:        p.OrderID,
		TransactionID:  p.TransactionID,
		Status:         string(p.Status),
		SubscriptionID: p.SubscriptionID,
		CreatedAt:      p.CreatedAt,
		PaidAt:         p.PaidAt,
	}
	if p.Refund != nil {
		resp.Refund = &refundResponse{
			AmountMinor: p.Refund.AmountMinor,
			Reason:      p.Refund.Reason,
			Actor:       p.Refund.Actor,
			At:          p.Refund.At,
		}
	}
	return resp
}

type withdrawalResponse struct {
	ID          string     `json:"id"`
	TrainerID   string     `json:"trainer_id"`
	AmountMinor int64      `json:"amount_minor"`
	Status      string     `json:"status"`
	ProcessedBy *string    `json:"processed_by,omitempty"`
	ProcessedAt *time.Time `json:"processed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

func newWithdrawalResponse(w *model.Withdrawal) withdrawalResponse {
	return withdrawalResponse{
		ID:          w.ID,
		TrainerID:   w.TrainerID,
		AmountMinor: w.AmountMinor,
		Status:      string(w.Status),
		ProcessedBy: w.ProcessedBy,
		ProcessedAt: w.ProcessedAt,
		CreatedAt:   w.CreatedAt,
	}
}
