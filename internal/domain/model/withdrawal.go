package model

import (
	"time"

	"fitness-subscription-platform/internal/domain"
)

type WithdrawalStatus string

const (
	WithdrawalStatusPending  WithdrawalStatus = "pending"
	WithdrawalStatusApproved WithdrawalStatus = "approved"
	WithdrawalStatusRejected WithdrawalStatus = "rejected"
)

// Withdrawal is a trainer payout request. pending -> approved|rejected is the
// only transition; both outcomes are terminal.
type Withdrawal struct {
	ID          string // UUID
	TrainerID   string // UUID
	AmountMinor int64
	Status      WithdrawalStatus
	ProcessedBy *string // admin who approved/rejected
	ProcessedAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NewWithdrawal validates and constructs a pending payout request.
func NewWithdrawal(id, trainerID string, amountMinor int64) (*Withdrawal, error) {
	if id == "" || trainerID == "" || amountMinor <= 0 {
		return nil, domain.ErrInvalidArgument
	}
	now := time.Now()
	return &Withdrawal{
		ID:          id,
		TrainerID:   trainerID,
		AmountMinor: amountMinor,
		Status:      WithdrawalStatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}
