package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/keepstone/keepstone/internal/store"
)

var errNoTxSupport = errors.New("database handle cannot begin transactions")

// inTransaction runs fn inside a transaction on db. A handle that is already
// a transaction is reused so nested calls join the outer unit of work.
func inTransaction(ctx context.Context, db store.DBTX, fn store.TxFn) error {
	if tx, ok := db.(*sql.Tx); ok {
		return fn(ctx, tx)
	}
	beginner, ok := db.(store.TxBeginner)
	if !ok {
		return errNoTxSupport
	}
	return store.RunInTransaction(ctx, beginner, fn)
}
