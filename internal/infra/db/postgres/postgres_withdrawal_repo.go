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

var _ repository.WithdrawalRepository = (*withdrawalRepo)(nil)

type withdrawalRepo struct{ pool *pgxpool.Pool }

func NewWithdrawalRepo(pool *pgxpool.Pool) *withdrawalRepo {
	return &withdrawalRepo{pool: pool}
}

const withdrawalColumns = `id, trainer_id, amount_minor, status, processed_by, processed_at, created_at, updated_at`

func (r *withdrawalRepo) Save(ctx context.Context, tx repository.Tx, w *model.Withdrawal) error {
	const q = `
INSERT INTO withdrawals (id, trainer_id, amount_minor, status, processed_by, processed_at, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8);`
	_, err := execSQL(ctx, r.pool, tx, q, w.ID, w.TrainerID, w.AmountMinor, w.Status, w.ProcessedBy, w.ProcessedAt, w.CreatedAt, w.UpdatedAt)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *withdrawalRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Withdrawal, error) {
	const q = `SELECT ` + withdrawalColumns + ` FROM withdrawals WHERE id=$1;`
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	return scanWithdrawal(row)
}

func (r *withdrawalRepo) List(ctx context.Context, tx repository.Tx, status string) ([]*model.Withdrawal, error) {
	q := `SELECT ` + withdrawalColumns + ` FROM withdrawals`
	var args []interface{}
	if status != "" {
		q += ` WHERE status=$1`
		args = append(args, status)
	}
	q += ` ORDER BY created_at DESC;`
	rows, err := queryRows(ctx, r.pool, tx, q, args...)
	if err != nil {
		switch err {
		case domain.ErrInvalidArgument, domain.ErrInvalidExecContext:
			return nil, err
		default:
			return nil, domain.ErrOperationFailed
		}
	}
	defer rows.Close()

	var out []*model.Withdrawal
	for rows.Next() {
		w, err := scanWithdrawal(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	return out, nil
}

// Transition moves pending -> to in a single conditional write. Zero rows
// affected with an existing row means the request was already processed.
func (r *withdrawalRepo) Transition(ctx context.Context, tx repository.Tx, id string, to model.WithdrawalStatus, actor string, at time.Time) (bool, error) {
	const q = `
UPDATE withdrawals
   SET status=$2, processed_by=$3, processed_at=$4, updated_at=$4
 WHERE id=$1 AND status='pending';`
	cmd, err := execSQL(ctx, r.pool, tx, q, id, to, actor, at)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return false, err
		}
		return false, domain.ErrOperationFailed
	}
	return cmd.RowsAffected() >= 1, nil
}

func scanWithdrawal(row pgx.Row) (*model.Withdrawal, error) {
	w := &model.Withdrawal{}
	var status string
	if err := row.Scan(&w.ID, &w.TrainerID, &w.AmountMinor, &status, &w.ProcessedBy, &w.ProcessedAt, &w.CreatedAt, &w.UpdatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	w.Status = model.WithdrawalStatus(status)
	return w, nil
}
