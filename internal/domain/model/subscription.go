package model

import (
	"time"

	"fitness-subscription-platform/internal/domain"
)

type SubscriptionStatus string

const (
	SubscriptionStatusActive    SubscriptionStatus = "active"
	SubscriptionStatusExpired   SubscriptionStatus = "expired"
	SubscriptionStatusCancelled SubscriptionStatus = "cancelled"
)

// Subscription is the authoritative entitlement record: which user has which
// plan, for which period. At most one active subscription exists per user.
type Subscription struct {
	ID        string // UUID
	UserID    string // UUID
	PlanID    string // UUID
	StartDate time.Time
	EndDate   time.Time // StartDate + plan duration snapshot
	Status    SubscriptionStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewSubscription builds an active subscription starting at start. The plan's
// duration is applied once here; the resulting EndDate never changes if the
// plan is edited afterwards.
func NewSubscription(id, userID string, plan *Plan, start time.Time) (*Subscription, error) {
	if id == "" || userID == "" || plan.IsZero() {
		return nil, domain.ErrInvalidArgument
	}
	return &Subscription{
		ID:        id,
		UserID:    userID,
		PlanID:    plan.ID,
		StartDate: start,
		EndDate:   start.AddDate(0, 0, plan.DurationDays),
		Status:    SubscriptionStatusActive,
		CreatedAt: start,
		UpdatedAt: start,
	}, nil
}

// ExpiredAt reports whether the subscription's period has lapsed at the given
// instant, regardless of the stored status. Nothing proactively flips active
// rows to expired; callers must treat a lapsed period as not entitled.
func (s *Subscription) ExpiredAt(now time.Time) bool {
	return !s.EndDate.After(now)
}
