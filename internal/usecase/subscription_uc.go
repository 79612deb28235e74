package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"fitness-subscription-platform/internal/domain"
	"fitness-subscription-platform/internal/domain/model"
	"fitness-subscription-platform/internal/domain/ports/repository"
)

// Compile-time check
var _ SubscriptionUseCase = (*subscriptionUC)(nil)

// SubscriptionUseCase reads and revokes ledger entries. Activation happens
// only through the reconciliation engine; expiry is checked lazily on read
// because nothing in the system proactively sweeps expired rows.
type SubscriptionUseCase interface {
	// GetActiveForUser returns the user's current subscription, or
	// domain.ErrNoActiveSubscription when none exists or the period lapsed.
	GetActiveForUser(ctx context.Context, userID string) (*model.Subscription, error)
	// Cancel revokes the user's active subscription. Explicit action only: a
	// refund never triggers this implicitly.
	Cancel(ctx context.Context, userID, actor string) error
}

type subscriptionUC struct {
	subs  repository.SubscriptionRepository
	users repository.UserRepository
	tm    repository.TransactionManager
	cache EntitlementCache
	log   *zerolog.Logger
	now   func() time.Time
}

func NewSubscriptionUseCase(subs repository.SubscriptionRepository, users repository.UserRepository, tm repository.TransactionManager, cache EntitlementCache, logger *zerolog.Logger) *subscriptionUC {
	return &subscriptionUC{subs: subs, users: users, tm: tm, cache: cache, log: logger, now: time.Now}
}

func (u *subscriptionUC) GetActiveForUser(ctx context.Context, userID string) (*model.Subscription, error) {
	if userID == "" {
		return nil, domain.ErrInvalidArgument
	}
	sub, err := u.subs.FindActiveByUser(ctx, repository.NoTX, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNoActiveSubscription
		}
		return nil, err
	}
	if sub.ExpiredAt(u.now()) {
		// Opportunistic flip; MarkExpired is idempotent so a racing reader
		// doing the same is harmless.
		if err := u.subs.MarkExpired(ctx, repository.NoTX, sub.ID); err != nil {
			u.log.Warn().Err(err).Str("subscription_id", sub.ID).Msg("lazy expiry flip failed")
		}
		return nil, domain.ErrNoActiveSubscription
	}
	return sub, nil
}

func (u *subscriptionUC) Cancel(ctx context.Context, userID, actor string) error {
	if userID == "" {
		return domain.ErrInvalidArgument
	}
	sub, err := u.subs.FindActiveByUser(ctx, repository.NoTX, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrNoActiveSubscription
		}
		return err
	}
	// Ledger flip and snapshot rewrite commit together, same as activation.
	var moved bool
	err = u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		var err error
		moved, err = u.subs.Cancel(ctx, tx, sub.ID)
		if err != nil || !moved {
			return err
		}
		snap := &model.SubscriptionSnapshot{
			PlanID:    sub.PlanID,
			StartDate: sub.StartDate,
			EndDate:   sub.EndDate,
			Status:    model.SubscriptionStatusCancelled,
		}
		return u.users.UpdateSubscriptionSnapshot(ctx, tx, userID, snap)
	})
	if err != nil {
		return err
	}
	if !moved {
		return domain.ErrAlreadyProcessed
	}
	u.cache.Invalidate(ctx, userID)
	u.log.Info().Str("subscription_id", sub.ID).Str("user_id", userID).Str("actor", actor).Msg("subscription cancelled")
	return nil
}
