package repository

import (
	"context"
	"time"

	"fitness-subscription-platform/internal/domain/model"
)

// PaymentRepository is the port for the payment record store. The unique
// index on transaction_id is the enforcement point for the idempotency
// invariant; Append and ClaimPending surface violations as
// domain.ErrDuplicateTransaction.
type PaymentRepository interface {
	// Save inserts a new payment row (used for pending checkout rows).
	Save(ctx context.Context, tx Tx, p *model.Payment) error
	// Append inserts a confirmed payment row; fails with
	// domain.ErrDuplicateTransaction when the transaction id is taken.
	Append(ctx context.Context, tx Tx, p *model.Payment) error
	// ClaimPending promotes the pending row for an order to success, stamping
	// the gateway transaction id. Returns (nil, nil) when no pending row
	// exists for the order.
	ClaimPending(ctx context.Context, tx Tx, orderID, transactionID string, amountMinor int64, subscriptionID string, paidAt time.Time) (*model.Payment, error)
	FindByID(ctx context.Context, tx Tx, id string) (*model.Payment, error)
	FindByTransactionID(ctx context.Context, tx Tx, transactionID string) (*model.Payment, error)
	// ListByUser returns the user's payments, newest first.
	ListByUser(ctx context.Context, tx Tx, userID string, limit, offset int) ([]*model.Payment, error)
	// MarkRefunded transitions success -> refunded; reports whether a row moved.
	MarkRefunded(ctx context.Context, tx Tx, id string, r *model.Refund) (bool, error)
	// ListPendingOlderThan feeds the reconciler worker's poll fallback.
	ListPendingOlderThan(ctx context.Context, tx Tx, olderThan time.Time, limit int) ([]*model.Payment, error)
	// MarkFailedIfPending abandons a stale pending row; reports whether a row moved.
	MarkFailedIfPending(ctx context.Context, tx Tx, id string) (bool, error)
}
