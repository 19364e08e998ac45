package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jhoicas/bar-ledger/internal/domain"
	"github.com/jhoicas/bar-ledger/internal/domain/entity"
	"github.com/jhoicas/bar-ledger/internal/domain/quantity"
	"github.com/jhoicas/bar-ledger/internal/domain/repository"
	"github.com/shopspring/decimal"
)

var _ repository.ProductRepository = (*ProductRepo)(nil)

const productColumns = `id, name, total_capacity, initial_remaining, remaining, category_id, price_per_unit,
	location, photo_url, created_by, version, created_at, updated_at`

// ProductRepo ProductRepository sobre SQLite.
type ProductRepo struct {
	q Querier
}

// NewProductRepository pasar *sql.DB o *sql.Tx.
func NewProductRepository(q Querier) *ProductRepo {
	return &ProductRepo{q: q}
}

func (r *ProductRepo) Create(ctx context.Context, product *entity.Product) error {
	var price *string
	if product.PricePerUnit != nil {
		s := product.PricePerUnit.String()
		price = &s
	}
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO products (`+productColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		product.ID, product.Name, product.TotalCapacity.String(), product.InitialRemaining.String(),
		product.Remaining.String(), product.CategoryID, price, product.Location, product.PhotoURL,
		product.CreatedBy, product.Version, product.CreatedAt.UnixNano(), product.UpdatedAt.UnixNano(),
	)
	return mapError("insert product", err)
}

func (r *ProductRepo) GetByID(ctx context.Context, id string) (*entity.Product, error) {
	p, err := scanProduct(r.q.QueryRowContext(ctx, `SELECT `+productColumns+` FROM products WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, mapError("get product", err)
	}
	return p, nil
}

// GetForUpdate en SQLite la transacción ya es exclusiva (una conexión), así que basta con leer.
func (r *ProductRepo) GetForUpdate(ctx context.Context, id string) (*entity.Product, error) {
	return r.GetByID(ctx, id)
}

func (r *ProductRepo) UpdateRemaining(ctx context.Context, product *entity.Product, expectedVersion int64) error {
	res, err := r.q.ExecContext(ctx, `
		UPDATE products SET remaining = ?, updated_at = ?, version = ?
		WHERE id = ? AND version = ?`,
		product.Remaining.String(), product.UpdatedAt.UnixNano(), product.Version, product.ID, expectedVersion,
	)
	if err != nil {
		return mapError("update product remaining", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return wrapf("update product remaining", err)
	}
	if n == 0 {
		return wrapf("update product remaining", domain.ErrConflict)
	}
	return nil
}

func (r *ProductRepo) UpdateDetails(ctx context.Context, product *entity.Product) error {
	var price *string
	if product.PricePerUnit != nil {
		s := product.PricePerUnit.String()
		price = &s
	}
	res, err := r.q.ExecContext(ctx, `
		UPDATE products SET name = ?, category_id = ?, price_per_unit = ?, location = ?, photo_url = ?, updated_at = ?
		WHERE id = ?`,
		product.Name, product.CategoryID, price, product.Location, product.PhotoURL, product.UpdatedAt.UnixNano(), product.ID,
	)
	if err != nil {
		return mapError("update product details", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return wrapf("update product details", err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *ProductRepo) Delete(ctx context.Context, id string) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM products WHERE id = ?`, id)
	if err != nil {
		return mapError("delete product", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return wrapf("delete product", err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *ProductRepo) List(ctx context.Context, limit, offset int) ([]*entity.Product, error) {
	return r.list(ctx, "list products",
		`SELECT `+productColumns+` FROM products ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`, limit, offset)
}

func (r *ProductRepo) ListLowStock(ctx context.Context, threshold quantity.Quantity) ([]*entity.Product, error) {
	list, err := r.list(ctx, "list low stock", `
		SELECT `+productColumns+` FROM products
		WHERE CAST(remaining AS REAL) > 0 AND CAST(remaining AS REAL) <= CAST(? AS REAL)
		ORDER BY CAST(remaining AS REAL) ASC, id ASC`, threshold.String())
	if err != nil {
		return nil, err
	}
	// El filtro en REAL es aproximado en el borde; se confirma con aritmética decimal.
	out := list[:0]
	for _, p := range list {
		if p.IsLowStock(threshold) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *ProductRepo) ListDepleted(ctx context.Context) ([]*entity.Product, error) {
	return r.list(ctx, "list depleted", `
		SELECT `+productColumns+` FROM products
		WHERE CAST(remaining AS REAL) = 0
		ORDER BY updated_at DESC, id ASC`)
}

func (r *ProductRepo) list(ctx context.Context, op, query string, args ...any) ([]*entity.Product, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError(op, err)
	}
	defer rows.Close()
	list := []*entity.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, wrapf("scan product", err)
		}
		list = append(list, p)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(op, err)
	}
	return list, nil
}

func scanProduct(row rowScanner) (*entity.Product, error) {
	var (
		p                          entity.Product
		capacity, initial, remains string
		price                      sql.NullString
		createdAt, updatedAt       int64
	)
	err := row.Scan(
		&p.ID, &p.Name, &capacity, &initial, &remains, &p.CategoryID, &price,
		&p.Location, &p.PhotoURL, &p.CreatedBy, &p.Version, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}
	if p.TotalCapacity, err = quantity.Parse(capacity); err != nil {
		return nil, err
	}
	if p.InitialRemaining, err = quantity.Parse(initial); err != nil {
		return nil, err
	}
	if p.Remaining, err = quantity.Parse(remains); err != nil {
		return nil, err
	}
	if price.Valid {
		d, err := decimal.NewFromString(price.String)
		if err != nil {
			return nil, err
		}
		p.PricePerUnit = &d
	}
	p.CreatedAt = time.Unix(0, createdAt).UTC()
	p.UpdatedAt = time.Unix(0, updatedAt).UTC()
	return &p, nil
}
