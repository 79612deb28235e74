package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"fitness-subscription-platform/internal/domain"
	"fitness-subscription-platform/internal/domain/model"
	"fitness-subscription-platform/internal/domain/ports/adapter"
	"fitness-subscription-platform/internal/domain/ports/repository"
)

// Compile-time check
var _ ReconcileUseCase = (*reconcileUC)(nil)

// ReconcileUseCase turns a signature-verified gateway confirmation into
// authoritative subscription and payment state. It is the single entry point
// for both webhook deliveries and the client-initiated verify fallback, and
// it is safe to call any number of times with the same confirmation.
type ReconcileUseCase interface {
	// Reconcile returns the resulting payment row and whether the call was an
	// idempotent no-op (the transaction id had already been recorded).
	Reconcile(ctx context.Context, cp *adapter.ConfirmedPayment) (*model.Payment, bool, error)
}

type reconcileUC struct {
	payments repository.PaymentRepository
	plans    repository.PlanRepository
	subs     repository.SubscriptionRepository
	users    repository.UserRepository
	tm       repository.TransactionManager
	cache    EntitlementCache
	log      *zerolog.Logger
	now      func() time.Time
}

func NewReconcileUseCase(
	payments repository.PaymentRepository,
	plans repository.PlanRepository,
	subs repository.SubscriptionRepository,
	users repository.UserRepository,
	tm repository.TransactionManager,
	cache EntitlementCache,
	logger *zerolog.Logger,
) *reconcileUC {
	return &reconcileUC{
		payments: payments,
		plans:    plans,
		subs:     subs,
		users:    users,
		tm:       tm,
		cache:    cache,
		log:      logger,
		now:      time.Now,
	}
}

func (u *reconcileUC) Reconcile(ctx context.Context, cp *adapter.ConfirmedPayment) (*model.Payment, bool, error) {
	if cp == nil || cp.TransactionID == "" {
		return nil, false, domain.ErrInvalidArgument
	}

	// Fast path: this confirmation was already processed. The unique index on
	// transaction_id inside the transaction below is the real guarantee; this
	// read only keeps the common redelivery case cheap.
	existing, err := u.payments.FindByTransactionID(ctx, repository.NoTX, cp.TransactionID)
	if err == nil {
		u.log.Debug().Str("transaction_id", cp.TransactionID).Msg("confirmation already reconciled")
		return existing, true, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, false, err
	}

	// The confirmation is signed and valid, but its application data may not
	// be: callers must acknowledge these errors instead of retrying.
	if cp.Meta.UserID == "" || cp.Meta.PlanID == "" {
		u.log.Error().Str("transaction_id", cp.TransactionID).Msg("confirmation metadata missing user or plan")
		return nil, false, fmt.Errorf("%w: confirmation metadata incomplete", domain.ErrNotFound)
	}
	plan, err := u.plans.FindByID(ctx, repository.NoTX, cp.Meta.PlanID)
	if err != nil {
		u.log.Error().Err(err).Str("transaction_id", cp.TransactionID).Str("plan_id", cp.Meta.PlanID).Msg("confirmed payment references unknown plan")
		return nil, false, fmt.Errorf("plan %s: %w", cp.Meta.PlanID, err)
	}

	now := u.now()
	sub, err := model.NewSubscription(uuid.NewString(), cp.Meta.UserID, plan, now)
	if err != nil {
		return nil, false, err
	}

	var out *model.Payment
	err = u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		subID, err := u.subs.Activate(ctx, tx, sub)
		if err != nil {
			return err
		}

		// Prefer promoting the pending row created at checkout; fall back to a
		// fresh append when the webhook beat the checkout write or the pending
		// row was already claimed. Either way the unique transaction_id index
		// rejects a concurrent duplicate, aborting the whole transaction.
		claimed, err := u.payments.ClaimPending(ctx, tx, cp.OrderID, cp.TransactionID, cp.AmountMinor, subID, now)
		if err != nil {
			return err
		}
		if claimed != nil {
			out = claimed
		} else {
			p := &model.Payment{
				ID:             uuid.NewString(),
				UserID:         cp.Meta.UserID,
				PlanID:         plan.ID,
				Provider:       cp.Provider,
				AmountMinor:    cp.AmountMinor,
				Currency:       cp.Currency,
				OrderID:        cp.OrderID,
				TransactionID:  &cp.TransactionID,
				Status:         model.PaymentStatusSuccess,
				SubscriptionID: &subID,
				CreatedAt:      now,
				UpdatedAt:      now,
				PaidAt:         &now,
			}
			if err := u.payments.Append(ctx, tx, p); err != nil {
				return err
			}
			out = p
		}

		snap := &model.SubscriptionSnapshot{
			PlanID:    plan.ID,
			StartDate: sub.StartDate,
			EndDate:   sub.EndDate,
			Status:    model.SubscriptionStatusActive,
		}
		return u.users.UpdateSubscriptionSnapshot(ctx, tx, cp.Meta.UserID, snap)
	})
	if err != nil {
		if errors.Is(err, domain.ErrDuplicateTransaction) {
			// Lost the race against a concurrent delivery of the same
			// confirmation; the winner's row is the answer.
			if existing, ferr := u.payments.FindByTransactionID(ctx, repository.NoTX, cp.TransactionID); ferr == nil {
				return existing, true, nil
			}
			return nil, false, err
		}
		return nil, false, err
	}

	u.cache.Invalidate(ctx, cp.Meta.UserID)
	u.log.Info().
		Str("transaction_id", cp.TransactionID).
		Str("user_id", cp.Meta.UserID).
		Str("plan_id", plan.ID).
		Time("end_date", sub.EndDate).
		Msg("payment reconciled, subscription active")
	return out, false, nil
}
