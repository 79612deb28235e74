package repository

import (
	"context"

	"fitness-subscription-platform/internal/domain/model"
)

// UserRepository is the read/snapshot port onto the externally-owned users
// collection. The core never creates users; it only keeps the denormalized
// subscription snapshot consistent with the ledger.
type UserRepository interface {
	FindByID(ctx context.Context, tx Tx, id string) (*model.User, error)
	UpdateSubscriptionSnapshot(ctx context.Context, tx Tx, userID string, snap *model.SubscriptionSnapshot) error
}
