package postgres

import (
	"context"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"fitness-subscription-platform/internal/domain"
	"fitness-subscription-platform/internal/domain/model"
	"fitness-subscription-platform/internal/domain/ports/repository"
)

// Ensure subscriptionRepo implements repository.SubscriptionRepository
var _ repository.SubscriptionRepository = (*subscriptionRepo)(nil)

type subscriptionRepo struct {
	pool *pgxpool.Pool
}

func NewSubscriptionRepo(pool *pgxpool.Pool) *subscriptionRepo {
	return &subscriptionRepo{pool: pool}
}

const subColumns = `id, user_id, plan_id, start_date, end_date, status, created_at, updated_at`

// Activate is the single-statement upsert behind reconciliation step 5a. The
// conflict target is the partial unique index on (user_id) WHERE
// status='active', so concurrent activations for one user serialize on the
// index instead of interleaving, and the last committed transaction wins.
func (r *subscriptionRepo) Activate(ctx context.Context, tx repository.Tx, s *model.Subscription) (string, error) {
	const q = `
INSERT INTO subscriptions (id, user_id, plan_id, start_date, end_date, status, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,'active',$6,$6)
ON CONFLICT (user_id) WHERE status='active' DO UPDATE SET
  plan_id=EXCLUDED.plan_id,
  start_date=EXCLUDED.start_date,
  end_date=EXCLUDED.end_date,
  updated_at=EXCLUDED.updated_at
RETURNING id;`

	row, err := pickRow(ctx, r.pool, tx, q, s.ID, s.UserID, s.PlanID, s.StartDate, s.EndDate, s.CreatedAt)
	if err != nil {
		return "", err
	}
	var id string
	if err := row.Scan(&id); err != nil {
		return "", domain.ErrOperationFailed
	}
	return id, nil
}

func (r *subscriptionRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Subscription, error) {
	const q = `SELECT ` + subColumns + ` FROM subscriptions WHERE id=$1;`
	return r.queryOne(ctx, tx, q, id)
}

func (r *subscriptionRepo) FindActiveByUser(ctx context.Context, tx repository.Tx, userID string) (*model.Subscription, error) {
	const q = `
SELECT ` + subColumns + `
  FROM subscriptions
 WHERE user_id=$1 AND status='active'
 LIMIT 1;`
	return r.queryOne(ctx, tx, q, userID)
}

func (r *subscriptionRepo) MarkExpired(ctx context.Context, tx repository.Tx, id string) error {
	const q = `UPDATE subscriptions SET status='expired', updated_at=NOW() WHERE id=$1 AND status='active';`
	_, err := execSQL(ctx, r.pool, tx, q, id)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *subscriptionRepo) Cancel(ctx context.Context, tx repository.Tx, id string) (bool, error) {
	const q = `UPDATE subscriptions SET status='cancelled', updated_at=NOW() WHERE id=$1 AND status='active';`
	cmd, err := execSQL(ctx, r.pool, tx, q, id)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return false, err
		}
		return false, domain.ErrOperationFailed
	}
	return cmd.RowsAffected() >= 1, nil
}

func (r *subscriptionRepo) queryOne(ctx context.Context, tx repository.Tx, sql string, args ...interface{}) (*model.Subscription, error) {
	row, err := pickRow(ctx, r.pool, tx, sql, args...)
	if err != nil {
		return nil, err
	}
	s := &model.Subscription{}
	var status string
	if err := row.Scan(&s.ID, &s.UserID, &s.PlanID, &s.StartDate, &s.EndDate, &status, &s.CreatedAt, &s.UpdatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	s.Status = model.SubscriptionStatus(status)
	return s, nil
}
