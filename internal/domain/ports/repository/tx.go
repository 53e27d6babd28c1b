package repository

import (
	"context"

	"github.com/jackc/pgx/v4"
)

// Tx is an opaque transaction handle threaded through repository calls.
// The concrete type is infra-defined (pgx.Tx for Postgres). Repositories
// must gracefully accept a nil handle and fall back to the pool.
type Tx interface{}

// NoTX is the explicit "no transaction" handle for readability at call sites.
var NoTX Tx

// TransactionManager executes a function within a database transaction,
// passing the tx handle to repositories via their Tx argument. Keeping the
// interface this small means use cases never see driver types beyond the
// options struct.
//
//	tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
//	    staged, err := stagedRepo.FindByID(ctx, tx, id)
//	    ...
//	    return err
//	})
type TransactionManager interface {
	WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx Tx) error) error
}
