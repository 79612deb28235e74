package repository

import (
	"context"

	"fitness-subscription-platform/internal/domain/model"
)

// SubscriptionRepository is the port for the subscription ledger. Rows are
// mutated only through the reconciliation engine (Activate) and the explicit
// MarkExpired/Cancel transitions; everything else is read-only.
type SubscriptionRepository interface {
	// Activate upserts the user's active subscription in a single atomic
	// statement (conflict target: the partial unique index on user_id for
	// active rows) and returns the id of the surviving row. It must never be
	// implemented as read-modify-write.
	Activate(ctx context.Context, tx Tx, s *model.Subscription) (string, error)
	FindByID(ctx context.Context, tx Tx, id string) (*model.Subscription, error)
	FindActiveByUser(ctx context.Context, tx Tx, userID string) (*model.Subscription, error)
	// MarkExpired flips an active row to expired. Idempotent: a second call,
	// or a call against a non-active row, is a no-op.
	MarkExpired(ctx context.Context, tx Tx, id string) error
	// Cancel flips an active row to cancelled; reports whether a row moved.
	Cancel(ctx context.Context, tx Tx, id string) (bool, error)
}
