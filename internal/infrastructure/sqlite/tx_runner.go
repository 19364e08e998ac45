package sqlite

import (
	"context"
	"database/sql"

	"github.com/jhoicas/bar-ledger/internal/application/ledger"
	"github.com/jhoicas/bar-ledger/internal/domain/repository"
)

var (
	_ ledger.TxRunner = (*TxRunner)(nil)
	_ Querier         = (*sql.Tx)(nil)
	_ Querier         = (*sql.DB)(nil)
)

// TxRunner ejecuta callbacks dentro de una transacción SQLite.
type TxRunner struct {
	db *sql.DB
}

// NewTxRunner construye el runner. db debe venir de Open (una sola conexión).
func NewTxRunner(db *sql.DB) *TxRunner {
	return &TxRunner{db: db}
}

// Run inicia una transacción, ejecuta fn con repos atados a la tx y hace Commit o Rollback.
func (r *TxRunner) Run(ctx context.Context, fn func(
	productRepo repository.ProductRepository,
	entryRepo repository.LedgerEntryRepository,
) error) error {
	return r.run(ctx, nil, fn)
}

// RunReadOnly transacción de solo lectura; SQLite ya da una instantánea por transacción.
func (r *TxRunner) RunReadOnly(ctx context.Context, fn func(
	productRepo repository.ProductRepository,
	entryRepo repository.LedgerEntryRepository,
) error) error {
	return r.run(ctx, &sql.TxOptions{ReadOnly: true}, fn)
}

func (r *TxRunner) run(ctx context.Context, opts *sql.TxOptions, fn func(
	productRepo repository.ProductRepository,
	entryRepo repository.LedgerEntryRepository,
) error) error {
	tx, err := r.db.BeginTx(ctx, opts)
	if err != nil {
		return mapError("begin transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(NewProductRepository(tx), NewLedgerEntryRepository(tx)); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return mapError("commit transaction", err)
	}
	return nil
}
