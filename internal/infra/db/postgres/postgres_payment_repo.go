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

var _ repository.PaymentRepository = (*paymentRepo)(nil)

type paymentRepo struct{ pool *pgxpool.Pool }

func NewPaymentRepo(pool *pgxpool.Pool) *paymentRepo {
	return &paymentRepo{pool: pool}
}

const paymentColumns = `id, user_id, trainer_id, plan_id, provider, amount_minor, currency, order_id, receipt, transaction_id, status, subscription_id, refund_amount_minor, refund_reason, refund_actor, refunded_at, created_at, updated_at, paid_at`

func (r *paymentRepo) Save(ctx context.Context, tx repository.Tx, p *model.Payment) error {
	const q = `
INSERT INTO payments (
  id, user_id, trainer_id, plan_id, provider, amount_minor, currency, order_id, receipt, transaction_id, status, subscription_id, created_at, updated_at, paid_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15);`

	_, err := execSQL(ctx, r.pool, tx, q, p.ID, p.UserID, p.TrainerID, p.PlanID, p.Provider, p.AmountMinor, p.Currency, p.OrderID, p.Receipt, p.TransactionID, p.Status, p.SubscriptionID, p.CreatedAt, p.UpdatedAt, p.PaidAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicateTransaction
		}
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

// Append is Save with the unique transaction_id index as its contract: the
// row must carry a transaction id, and a second insert for the same id
// reports domain.ErrDuplicateTransaction.
func (r *paymentRepo) Append(ctx context.Context, tx repository.Tx, p *model.Payment) error {
	if p.TransactionID == nil || *p.TransactionID == "" {
		return domain.ErrInvalidArgument
	}
	return r.Save(ctx, tx, p)
}

func (r *paymentRepo) ClaimPending(ctx context.Context, tx repository.Tx, orderID, transactionID string, amountMinor int64, subscriptionID string, paidAt time.Time) (*model.Payment, error) {
	if orderID == "" {
		return nil, nil
	}
	const q = `
UPDATE payments
   SET transaction_id=$2,
       status='success',
       amount_minor=$3,
       subscription_id=$4,
       paid_at=$5,
       updated_at=$5
 WHERE order_id=$1 AND status='pending'
RETURNING ` + paymentColumns + `;`

	row, err := pickRow(ctx, r.pool, tx, q, orderID, transactionID, amountMinor, subscriptionID, paidAt)
	if err != nil {
		return nil, err
	}
	p, err := scanPayment(row)
	if err != nil {
		if err == domain.ErrNotFound {
			return nil, nil
		}
		return nil, err
	}
	return p, nil
}

func (r *paymentRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Payment, error) {
	const q = `SELECT ` + paymentColumns + ` FROM payments WHERE id=$1;`
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	return scanPayment(row)
}

func (r *paymentRepo) FindByTransactionID(ctx context.Context, tx repository.Tx, transactionID string) (*model.Payment, error) {
	const q = `SELECT ` + paymentColumns + ` FROM payments WHERE transaction_id=$1 LIMIT 1;`
	row, err := pickRow(ctx, r.pool, tx, q, transactionID)
	if err != nil {
		return nil, err
	}
	return scanPayment(row)
}

func (r *paymentRepo) ListByUser(ctx context.Context, tx repository.Tx, userID string, limit, offset int) ([]*model.Payment, error) {
	const q = `SELECT ` + paymentColumns + ` FROM payments WHERE user_id=$1 ORDER BY created_at DESC LIMIT $2 OFFSET $3;`
	rows, err := queryRows(ctx, r.pool, tx, q, userID, limit, offset)
	if err != nil {
		switch err {
		case domain.ErrInvalidArgument, domain.ErrInvalidExecContext:
			return nil, err
		default:
			return nil, domain.ErrOperationFailed
		}
	}
	defer rows.Close()

	var out []*model.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	return out, nil
}

// MarkRefunded transitions success -> refunded in one conditional write; the
// WHERE clause is the state-machine guard.
func (r *paymentRepo) MarkRefunded(ctx context.Context, tx repository.Tx, id string, ref *model.Refund) (bool, error) {
	const q = `
UPDATE payments
   SET status='refunded',
       refund_amount_minor=$2,
       refund_reason=$3,
       refund_actor=$4,
       refunded_at=$5,
       updated_at=$5
 WHERE id=$1 AND status='success';`

	cmd, err := execSQL(ctx, r.pool, tx, q, id, ref.AmountMinor, ref.Reason, ref.Actor, ref.At)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return false, err
		}
		return false, domain.ErrOperationFailed
	}
	return cmd.RowsAffected() >= 1, nil
}

func (r *paymentRepo) ListPendingOlderThan(ctx context.Context, tx repository.Tx, olderThan time.Time, limit int) ([]*model.Payment, error) {
	if limit <= 0 {
		limit = 100
	}
	const q = `SELECT ` + paymentColumns + ` FROM payments WHERE status='pending' AND created_at < $1 ORDER BY created_at ASC LIMIT $2;`
	rows, err := queryRows(ctx, r.pool, tx, q, olderThan, limit)
	if err != nil {
		switch err {
		case domain.ErrInvalidArgument, domain.ErrInvalidExecContext:
			return nil, err
		default:
			return nil, domain.ErrOperationFailed
		}
	}
	defer rows.Close()

	var out []*model.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	return out, nil
}

func (r *paymentRepo) MarkFailedIfPending(ctx context.Context, tx repository.Tx, id string) (bool, error) {
	const q = `UPDATE payments SET status='failed', updated_at=NOW() WHERE id=$1 AND status='pending';`
	cmd, err := execSQL(ctx, r.pool, tx, q, id)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return false, err
		}
		return false, domain.ErrOperationFailed
	}
	return cmd.RowsAffected() >= 1, nil
}

func scanPayment(row pgx.Row) (*model.Payment, error) {
	p := &model.Payment{}
	var status string
	var refundAmount *int64
	var refundReason, refundActor *string
	var refundedAt *time.Time
	if err := row.Scan(
		&p.ID, &p.UserID, &p.TrainerID, &p.PlanID, &p.Provider, &p.AmountMinor, &p.Currency,
		&p.OrderID, &p.Receipt, &p.TransactionID, &status, &p.SubscriptionID,
		&refundAmount, &refundReason, &refundActor, &refundedAt,
		&p.CreatedAt, &p.UpdatedAt, &p.PaidAt,
	); err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		// QueryRow surfaces statement errors at Scan time; a 23505 here means
		// a concurrent reconciliation already recorded the transaction id.
		if isUniqueViolation(err) {
			return nil, domain.ErrDuplicateTransaction
		}
		return nil, domain.ErrReadDatabaseRow
	}
	p.Status = model.PaymentStatus(status)
	if refundAmount != nil {
		p.Refund = &model.Refund{AmountMinor: *refundAmount}
		if refundReason != nil {
			p.Refund.Reason = *refundReason
		}
		if refundActor != nil {
			p.Refund.Actor = *refundActor
		}
		if refundedAt != nil {
			p.Refund.At = *refundedAt
		}
	}
	return p, nil
}
