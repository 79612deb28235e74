package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"fitness-subscription-platform/internal/domain"
	"fitness-subscription-platform/internal/domain/model"
	"fitness-subscription-platform/internal/domain/ports/adapter"
	"fitness-subscription-platform/internal/domain/ports/repository"
)

// Compile-time check
var _ CheckoutUseCase = (*checkoutUC)(nil)

// CheckoutUseCase starts a hosted checkout with the payment gateway. Only a
// confirmed payment ever creates subscription state; a timed-out or failed
// session request leaves nothing behind.
type CheckoutUseCase interface {
	Checkout(ctx context.Context, userID, planID string) (*adapter.CheckoutSession, *model.Payment, error)
}

type checkoutUC struct {
	payments repository.PaymentRepository
	plans    repository.PlanRepository
	gateway  adapter.PaymentGateway
	timeout  time.Duration
	log      *zerolog.Logger
}

func NewCheckoutUseCase(payments repository.PaymentRepository, plans repository.PlanRepository, gateway adapter.PaymentGateway, timeout time.Duration, logger *zerolog.Logger) *checkoutUC {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &checkoutUC{payments: payments, plans: plans, gateway: gateway, timeout: timeout, log: logger}
}

func (u *checkoutUC) Checkout(ctx context.Context, userID, planID string) (*adapter.CheckoutSession, *model.Payment, error) {
	if userID == "" || planID == "" {
		return nil, nil, domain.ErrInvalidArgument
	}
	plan, err := u.plans.FindByID(ctx, repository.NoTX, planID)
	if err != nil {
		return nil, nil, err
	}
	if !plan.Active {
		return nil, nil, fmt.Errorf("%w: plan is not active", domain.ErrNotFound)
	}
	if plan.PriceMinor <= 0 {
		return nil, nil, fmt.Errorf("%w: invalid plan price", domain.ErrInvalidArgument)
	}

	// ULIDs sort by creation time, which keeps gateway-side receipt listings ordered.
	receipt := "rcpt_" + ulid.Make().String()

	sctx, cancel := context.WithTimeout(ctx, u.timeout)
	defer cancel()
	session, err := u.gateway.CreateCheckoutSession(sctx, userID, plan, receipt)
	if err != nil {
		u.log.Error().Err(err).Str("user_id", userID).Str("plan_id", planID).Msg("checkout session creation failed")
		return nil, nil, err
	}

	now := time.Now()
	p := &model.Payment{
		ID:          uuid.NewString(),
		UserID:      userID,
		PlanID:      planID,
		Provider:    u.gateway.Name(),
		AmountMinor: session.AmountMinor,
		Currency:    session.Currency,
		OrderID:     session.OrderID,
		Receipt:     receipt,
		Status:      model.PaymentStatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := u.payments.Save(ctx, repository.NoTX, p); err != nil {
		return nil, nil, err
	}
	u.log.Info().Str("user_id", userID).Str("plan_id", planID).Str("order_id", session.OrderID).Msg("checkout session created")
	return session, p, nil
}
