package repository

import (
	"context"
	"time"

	"fitness-subscription-platform/internal/domain/model"
)

// WithdrawalRepository is the port for trainer payout requests.
type WithdrawalRepository interface {
	Save(ctx context.Context, tx Tx, w *model.Withdrawal) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Withdrawal, error)
	List(ctx context.Context, tx Tx, status string) ([]*model.Withdrawal, error)
	// Transition atomically moves pending -> to, recording the actor. It
	// reports whether a row moved; false against an existing row means the
	// request was already processed.
	Transition(ctx context.Context, tx Tx, id string, to model.WithdrawalStatus, actor string, at time.Time) (bool, error)
}
