package database

import (
	"context"

	"github.com/jmoiron/sqlx"

	appErrors "github.com/noah-isme/parts-inventory-api/pkg/errors"
)

type txKey struct{}

// Transactor runs units of work inside a single database transaction. The transaction
// travels in the context so repositories stay oblivious of whether they run inside one.
type Transactor struct {
	db *sqlx.DB
}

// NewTransactor constructs a transactor bound to db.
func NewTransactor(db *sqlx.DB) *Transactor {
	return &Transactor{db: db}
}

// WithinTx executes fn in a transaction, committing when fn returns nil and rolling
// back otherwise. Nested calls join the outer transaction. Begin and commit failures,
// deferred constraint violations included, surface as InvalidOperation.
func (t *Transactor) WithinTx(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if _, ok := ctx.Value(txKey{}).(*sqlx.Tx); ok {
		return fn(ctx)
	}

	tx, err := t.db.BeginTxx(ctx, nil)
	if err != nil {
		return appErrors.WrapInvalid(err, "begin transaction")
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return appErrors.WrapInvalid(err, "commit transaction")
	}
	return nil
}

// Executor returns the transaction carried by ctx, falling back to db.
func Executor(ctx context.Context, db *sqlx.DB) sqlx.ExtContext {
	if tx, ok := ctx.Value(txKey{}).(*sqlx.Tx); ok {
		return tx
	}
	return db
}
