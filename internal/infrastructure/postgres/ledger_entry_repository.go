package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jhoicas/bar-ledger/internal/domain/entity"
	"github.com/jhoicas/bar-ledger/internal/domain/quantity"
	"github.com/jhoicas/bar-ledger/internal/domain/repository"
	"github.com/shopspring/decimal"
)

var _ repository.LedgerEntryRepository = (*LedgerEntryRepo)(nil)

const entryColumns = `id, product_id, old_value, new_value, delta, actor_id, note, recorded_at`

// LedgerEntryRepo implementación sobre PostgreSQL (usable con pool o tx). Solo inserta y lee;
// el único borrado es la cascada de un producto eliminado.
type LedgerEntryRepo struct {
	q Querier
}

// NewLedgerEntryRepository construye el adaptador. Pasar pool o tx (Querier).
func NewLedgerEntryRepository(q Querier) *LedgerEntryRepo {
	return &LedgerEntryRepo{q: q}
}

// Create persiste una entrada. Rechaza entradas cuyo delta no sea new - old.
func (r *LedgerEntryRepo) Create(ctx context.Context, entry *entity.LedgerEntry) error {
	if err := entry.Validate(); err != nil {
		return err
	}
	query := `INSERT INTO ledger_entries (` + entryColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := r.q.Exec(ctx, query,
		entry.ID, entry.ProductID, entry.OldValue.Decimal(), entry.NewValue.Decimal(), entry.Delta,
		entry.Actor, entry.Note, entry.RecordedAt,
	)
	if err != nil {
		return mapError("create ledger entry", err)
	}
	return nil
}

// GetByID obtiene una entrada por ID. Devuelve nil, nil si no existe.
func (r *LedgerEntryRepo) GetByID(ctx context.Context, id string) (*entity.LedgerEntry, error) {
	query := `SELECT ` + entryColumns + ` FROM ledger_entries WHERE id = $1`
	e, err := scanEntry(r.q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, mapError("get ledger entry", err)
	}
	return e, nil
}

// ListByProduct historial completo de un producto, más reciente primero.
func (r *LedgerEntryRepo) ListByProduct(ctx context.Context, productID string) ([]*entity.LedgerEntry, error) {
	query := `SELECT ` + entryColumns + ` FROM ledger_entries
		WHERE product_id = $1
		ORDER BY recorded_at DESC, id DESC`
	return r.list(ctx, "list by product", query, productID)
}

// ListRecent últimas limit entradas de todos los productos.
func (r *LedgerEntryRepo) ListRecent(ctx context.Context, limit int) ([]*entity.LedgerEntry, error) {
	query := `SELECT ` + entryColumns + ` FROM ledger_entries ORDER BY recorded_at DESC, id DESC LIMIT $1`
	return r.list(ctx, "list recent", query, limit)
}

// List todas las entradas paginadas, más reciente primero.
func (r *LedgerEntryRepo) List(ctx context.Context, limit, offset int) ([]*entity.LedgerEntry, error) {
	query := `SELECT ` + entryColumns + ` FROM ledger_entries ORDER BY recorded_at DESC, id DESC LIMIT $1 OFFSET $2`
	return r.list(ctx, "list ledger entries", query, limit, offset)
}

// DeleteByProduct borra el historial de un producto y devuelve cuántas entradas eliminó.
func (r *LedgerEntryRepo) DeleteByProduct(ctx context.Context, productID string) (int64, error) {
	cmd, err := r.q.Exec(ctx, `DELETE FROM ledger_entries WHERE product_id = $1`, productID)
	if err != nil {
		return 0, mapError("delete ledger entries", err)
	}
	return cmd.RowsAffected(), nil
}

func (r *LedgerEntryRepo) list(ctx context.Context, op, query string, args ...any) ([]*entity.LedgerEntry, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, mapError(op, err)
	}
	defer rows.Close()
	list := []*entity.LedgerEntry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan ledger entry: %w", err)
		}
		list = append(list, e)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(op, err)
	}
	return list, nil
}

func scanEntry(row pgxScanner) (*entity.LedgerEntry, error) {
	var (
		e              entity.LedgerEntry
		oldVal, newVal decimal.Decimal
	)
	if err := row.Scan(&e.ID, &e.ProductID, &oldVal, &newVal, &e.Delta, &e.Actor, &e.Note, &e.RecordedAt); err != nil {
		return nil, err
	}
	var err error
	if e.OldValue, err = quantity.New(oldVal); err != nil {
		return nil, err
	}
	if e.NewValue, err = quantity.New(newVal); err != nil {
		return nil, err
	}
	e.RecordedAt = e.RecordedAt.UTC()
	if err := e.Validate(); err != nil {
		return nil, err
	}
	return &e, nil
}
