package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"fitness-subscription-platform/internal/domain"
	"fitness-subscription-platform/internal/domain/ports/repository"
)

// EntitlementCache memoizes positive entitlement answers. Negative answers
// are never cached: a user who just paid must see their access immediately.
// Implementations must treat every method as best-effort.
type EntitlementCache interface {
	IsEntitled(ctx context.Context, userID string) bool
	MarkEntitled(ctx context.Context, userID string, until time.Time)
	Invalidate(ctx context.Context, userID string)
}

// NoopEntitlementCache satisfies EntitlementCache without storing anything.
type NoopEntitlementCache struct{}

func (NoopEntitlementCache) IsEntitled(context.Context, string) bool         { return false }
func (NoopEntitlementCache) MarkEntitled(context.Context, string, time.Time) {}
func (NoopEntitlementCache) Invalidate(context.Context, string)              {}

// Compile-time checks
var (
	_ EntitlementCache   = NoopEntitlementCache{}
	_ EntitlementUseCase = (*entitlementUC)(nil)
)

// EntitlementUseCase is the guard feature endpoints (nutrition logging,
// progress logging) consult before serving paid functionality.
type EntitlementUseCase interface {
	// RequireActiveEntitlement returns nil when the user holds an active,
	// unexpired subscription and domain.ErrPaymentRequired otherwise. A row
	// whose end date has passed denies access even if its stored status still
	// says active.
	RequireActiveEntitlement(ctx context.Context, userID string) error
}

type entitlementUC struct {
	subs  repository.SubscriptionRepository
	cache EntitlementCache
	log   *zerolog.Logger
	now   func() time.Time
}

func NewEntitlementUseCase(subs repository.SubscriptionRepository, cache EntitlementCache, logger *zerolog.Logger) *entitlementUC {
	return &entitlementUC{subs: subs, cache: cache, log: logger, now: time.Now}
}

func (u *entitlementUC) RequireActiveEntitlement(ctx context.Context, userID string) error {
	if userID == "" {
		return domain.ErrInvalidArgument
	}
	if u.cache.IsEntitled(ctx, userID) {
		return nil
	}
	sub, err := u.subs.FindActiveByUser(ctx, repository.NoTX, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrPaymentRequired
		}
		return err
	}
	now := u.now()
	if sub.ExpiredAt(now) {
		if err := u.subs.MarkExpired(ctx, repository.NoTX, sub.ID); err != nil {
			u.log.Warn().Err(err).Str("subscription_id", sub.ID).Msg("lazy expiry flip failed")
		}
		u.cache.Invalidate(ctx, userID)
		return domain.ErrPaymentRequired
	}
	u.cache.MarkEntitled(ctx, userID, sub.EndDate)
	return nil
}
