package model

import (
	"time"

	"fitness-subscription-platform/internal/domain"
)

// Plan is a purchasable subscription tier with a fixed duration and a price
// in minor currency units (paise for INR). Duration is counted in days; the
// value is snapshotted into a subscription at activation, so later edits to a
// plan never move an existing subscription's end date.
type Plan struct {
	ID           string // UUID
	Name         string // unique
	PriceMinor   int64  // minor units, e.g. paise
	Currency     string // ISO code, e.g. "INR"
	DurationDays int
	Features     []string
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (p *Plan) IsZero() bool { return p == nil || p.ID == "" }

// NewPlan validates and constructs a plan.
func NewPlan(id, name string, priceMinor int64, currency string, durationDays int, features []string) (*Plan, error) {
	if id == "" || name == "" || priceMinor <= 0 || durationDays <= 0 {
		return nil, domain.ErrInvalidArgument
	}
	if currency == "" {
		currency = "INR"
	}
	now := time.Now()
	return &Plan{
		ID:           id,
		Name:         name,
		PriceMinor:   priceMinor,
		Currency:     currency,
		DurationDays: durationDays,
		Features:     features,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}
