package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"fitness-subscription-platform/internal/domain"
	"fitness-subscription-platform/internal/domain/model"
	"fitness-subscription-platform/internal/domain/ports/repository"
)

var _ repository.UserRepository = (*userRepo)(nil)

type userRepo struct{ pool *pgxpool.Pool }

func NewUserRepo(pool *pgxpool.Pool) *userRepo {
	return &userRepo{pool: pool}
}

func (r *userRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.User, error) {
	const q = `
SELECT id, name, email, role, sub_plan_id, sub_start_date, sub_end_date, sub_status, created_at, updated_at
  FROM users WHERE id=$1;`
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}

	u := &model.User{}
	var role string
	var planID, status *string
	var start, end *time.Time
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &role, &planID, &start, &end, &status, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	u.Role = model.Role(role)
	if planID != nil && status != nil && start != nil && end != nil {
		u.Subscription = &model.SubscriptionSnapshot{
			PlanID:    *planID,
			StartDate: *start,
			EndDate:   *end,
			Status:    model.SubscriptionStatus(*status),
		}
	}
	return u, nil
}

// UpdateSubscriptionSnapshot rewrites the denormalized subscription fields on
// the user row. Zero rows affected means the confirmation referenced a user
// this system does not know, which callers treat as bad application data.
func (r *userRepo) UpdateSubscriptionSnapshot(ctx context.Context, tx repository.Tx, userID string, snap *model.SubscriptionSnapshot) error {
	const q = `
UPDATE users
   SET sub_plan_id=$2, sub_start_date=$3, sub_end_date=$4, sub_status=$5, updated_at=NOW()
 WHERE id=$1;`
	cmd, err := execSQL(ctx, r.pool, tx, q, userID, snap.PlanID, snap.StartDate, snap.EndDate, snap.Status)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
