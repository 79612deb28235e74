package usecase

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"fitness-subscription-platform/internal/domain"
	"fitness-subscription-platform/internal/domain/model"
	"fitness-subscription-platform/internal/domain/ports/repository"
)

// Compile-time check
var _ PaymentQueryUseCase = (*paymentQueryUC)(nil)

// PaymentQueryUseCase covers payment reads and the refund transition.
type PaymentQueryUseCase interface {
	// ListForUser returns the user's payment history, newest first.
	ListForUser(ctx context.Context, userID string, limit, offset int) ([]*model.Payment, error)
	// Refund transitions a successful payment to refunded, recording amount,
	// reason and actor. The subscription is deliberately untouched: revoking
	// entitlement is a separate explicit decision.
	Refund(ctx context.Context, paymentID string, amountMinor int64, reason, actor string) (*model.Payment, error)
}

type paymentQueryUC struct {
	payments repository.PaymentRepository
	log      *zerolog.Logger
	now      func() time.Time
}

func NewPaymentQueryUseCase(payments repository.PaymentRepository, logger *zerolog.Logger) *paymentQueryUC {
	return &paymentQueryUC{payments: payments, log: logger, now: time.Now}
}

func (u *paymentQueryUC) ListForUser(ctx context.Context, userID string, limit, offset int) ([]*model.Payment, error) {
	if userID == "" {
		return nil, domain.ErrInvalidArgument
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return u.payments.ListByUser(ctx, repository.NoTX, userID, limit, offset)
}

func (u *paymentQueryUC) Refund(ctx context.Context, paymentID string, amountMinor int64, reason, actor string) (*model.Payment, error) {
	if paymentID == "" || amountMinor <= 0 || actor == "" {
		return nil, domain.ErrInvalidArgument
	}
	p, err := u.payments.FindByID(ctx, repository.NoTX, paymentID)
	if err != nil {
		return nil, err
	}
	if amountMinor > p.AmountMinor {
		return nil, domain.ErrInvalidArgument
	}
	r := &model.Refund{AmountMinor: amountMinor, Reason: reason, Actor: actor, At: u.now()}
	moved, err := u.payments.MarkRefunded(ctx, repository.NoTX, paymentID, r)
	if err != nil {
		return nil, err
	}
	if !moved {
		// Row exists but was not in success: already refunded, still pending,
		// or failed.
		return nil, domain.ErrAlreadyProcessed
	}
	u.log.Info().Str("payment_id", paymentID).Int64("amount_minor", amountMinor).Str("actor", actor).Msg("payment refunded")
	return u.payments.FindByID(ctx, repository.NoTX, paymentID)
}
