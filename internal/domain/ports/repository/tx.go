package repository

import (
	"context"

	"github.com/jackc/pgx/v4"
)

type Tx interface{}

// NoTX marks the non-transactional path explicitly at call sites.
var NoTX Tx

// TransactionManager executes a function within a database transaction,
// passing the underlying transaction handle via `tx`.
//
// Repository methods accept a Tx so the reconciliation engine can group the
// subscription upsert, the payment append and the user snapshot update into
// one atomic commit without leaking driver types into use cases. The concrete
// type of `tx` is infra-defined (pgx.Tx for Postgres); repositories must
// gracefully accept a nil handle and fall back to the pool.
type TransactionManager interface {
	WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx Tx) error) error
}
