package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jhoicas/bar-ledger/internal/domain/entity"
	"github.com/jhoicas/bar-ledger/internal/domain/quantity"
	"github.com/jhoicas/bar-ledger/internal/domain/repository"
	"github.com/shopspring/decimal"
)

var _ repository.LedgerEntryRepository = (*LedgerEntryRepo)(nil)

const entryColumns = `id, product_id, old_value, new_value, delta, actor_id, note, recorded_at`

// LedgerEntryRepo LedgerEntryRepository sobre SQLite.
type LedgerEntryRepo struct {
	q Querier
}

// NewLedgerEntryRepository pasar *sql.DB o *sql.Tx.
func NewLedgerEntryRepository(q Querier) *LedgerEntryRepo {
	return &LedgerEntryRepo{q: q}
}

func (r *LedgerEntryRepo) Create(ctx context.Context, entry *entity.LedgerEntry) error {
	if err := entry.Validate(); err != nil {
		return err
	}
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO ledger_entries (`+entryColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.ProductID, entry.OldValue.String(), entry.NewValue.String(), entry.Delta.String(),
		entry.Actor, entry.Note, entry.RecordedAt.UnixNano(),
	)
	return mapError("create ledger entry", err)
}

func (r *LedgerEntryRepo) GetByID(ctx context.Context, id string) (*entity.LedgerEntry, error) {
	e, err := scanEntry(r.q.QueryRowContext(ctx, `SELECT `+entryColumns+` FROM ledger_entries WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, mapError("get ledger entry", err)
	}
	return e, nil
}

func (r *LedgerEntryRepo) ListByProduct(ctx context.Context, productID string) ([]*entity.LedgerEntry, error) {
	return r.list(ctx, "list by product", `
		SELECT `+entryColumns+` FROM ledger_entries
		WHERE product_id = ?
		ORDER BY recorded_at DESC, id DESC`, productID)
}

func (r *LedgerEntryRepo) ListRecent(ctx context.Context, limit int) ([]*entity.LedgerEntry, error) {
	return r.list(ctx, "list recent",
		`SELECT `+entryColumns+` FROM ledger_entries ORDER BY recorded_at DESC, id DESC LIMIT ?`, limit)
}

func (r *LedgerEntryRepo) List(ctx context.Context, limit, offset int) ([]*entity.LedgerEntry, error) {
	return r.list(ctx, "list ledger entries",
		`SELECT `+entryColumns+` FROM ledger_entries ORDER BY recorded_at DESC, id DESC LIMIT ? OFFSET ?`, limit, offset)
}

func (r *LedgerEntryRepo) DeleteByProduct(ctx context.Context, productID string) (int64, error) {
	res, err := r.q.ExecContext(ctx, `DELETE FROM ledger_entries WHERE product_id = ?`, productID)
	if err != nil {
		return 0, mapError("delete ledger entries", err)
	}
	return res.RowsAffected()
}

func (r *LedgerEntryRepo) list(ctx context.Context, op, query string, args ...any) ([]*entity.LedgerEntry, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError(op, err)
	}
	defer rows.Close()
	list := []*entity.LedgerEntry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, wrapf("scan ledger entry", err)
		}
		list = append(list, e)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(op, err)
	}
	return list, nil
}

func scanEntry(row rowScanner) (*entity.LedgerEntry, error) {
	var (
		e                     entity.LedgerEntry
		oldVal, newVal, delta string
		recordedAt            int64
	)
	if err := row.Scan(&e.ID, &e.ProductID, &oldVal, &newVal, &delta, &e.Actor, &e.Note, &recordedAt); err != nil {
		return nil, err
	}
	var err error
	if e.OldValue, err = quantity.Parse(oldVal); err != nil {
		return nil, err
	}
	if e.NewValue, err = quantity.Parse(newVal); err != nil {
		return nil, err
	}
	if e.Delta, err = decimal.NewFromString(delta); err != nil {
		return nil, err
	}
	e.RecordedAt = time.Unix(0, recordedAt).UTC()
	if err := e.Validate(); err != nil {
		return nil, err
	}
	return &e, nil
}
