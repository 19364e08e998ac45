package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jhoicas/bar-ledger/internal/domain"
	"github.com/jhoicas/bar-ledger/internal/domain/entity"
	"github.com/jhoicas/bar-ledger/internal/domain/quantity"
	"github.com/jhoicas/bar-ledger/internal/domain/repository"
	"github.com/shopspring/decimal"
)

var _ repository.ProductRepository = (*ProductRepo)(nil)

const productColumns = `id, name, total_capacity, initial_remaining, remaining, category_id, price_per_unit,
	location, photo_url, created_by, version, created_at, updated_at`

// ProductRepo implementación del puerto ProductRepository sobre PostgreSQL (usable con pool o tx).
type ProductRepo struct {
	q Querier
}

// NewProductRepository construye el adaptador de persistencia para productos. Pasar pool o tx (Querier).
func NewProductRepository(q Querier) *ProductRepo {
	return &ProductRepo{q: q}
}

// Create persiste un nuevo producto.
func (r *ProductRepo) Create(ctx context.Context, product *entity.Product) error {
	query := `
		INSERT INTO products (` + productColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`
	_, err := r.q.Exec(ctx, query,
		product.ID, product.Name, product.TotalCapacity.Decimal(), product.InitialRemaining.Decimal(),
		product.Remaining.Decimal(), product.CategoryID, product.PricePerUnit, product.Location,
		product.PhotoURL, product.CreatedBy, product.Version, product.CreatedAt, product.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("insert product: %w: id duplicado", domain.ErrConflict)
		}
		return mapError("insert product", err)
	}
	return nil
}

// GetByID obtiene un producto por ID. Devuelve nil, nil si no existe.
func (r *ProductRepo) GetByID(ctx context.Context, id string) (*entity.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`
	p, err := scanProduct(r.q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, mapError("get product", err)
	}
	return p, nil
}

// GetForUpdate como GetByID pero bloquea la fila (SELECT FOR UPDATE) hasta el fin de la transacción.
// Otro escritor del mismo producto espera aquí; si la espera supera lock_timeout se devuelve ErrConflict.
func (r *ProductRepo) GetForUpdate(ctx context.Context, id string) (*entity.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1 FOR UPDATE`
	p, err := scanProduct(r.q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, mapError("get product for update", err)
	}
	return p, nil
}

// UpdateRemaining escribe remaining, updated_at y version con guardia de versión.
func (r *ProductRepo) UpdateRemaining(ctx context.Context, product *entity.Product, expectedVersion int64) error {
	cmd, err := r.q.Exec(ctx, `
		UPDATE products SET remaining = $2, updated_at = $3, version = $4
		WHERE id = $1 AND version = $5`,
		product.ID, product.Remaining.Decimal(), product.UpdatedAt, product.Version, expectedVersion,
	)
	if err != nil {
		return mapError("update product remaining", err)
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("update product remaining: %w: versión %d ya no es la actual", domain.ErrConflict, expectedVersion)
	}
	return nil
}

// UpdateDetails escribe solo los datos descriptivos; remaining y version quedan como estaban.
func (r *ProductRepo) UpdateDetails(ctx context.Context, product *entity.Product) error {
	cmd, err := r.q.Exec(ctx, `
		UPDATE products SET name = $2, category_id = $3, price_per_unit = $4, location = $5, photo_url = $6, updated_at = $7
		WHERE id = $1`,
		product.ID, product.Name, product.CategoryID, product.PricePerUnit, product.Location, product.PhotoURL, product.UpdatedAt,
	)
	if err != nil {
		return mapError("update product details", err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Delete elimina un producto por ID. Las entradas del ledger deben borrarse antes (FK sin cascada).
func (r *ProductRepo) Delete(ctx context.Context, id string) error {
	cmd, err := r.q.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return mapError("delete product", err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// List lista productos con paginación, más recientes primero.
func (r *ProductRepo) List(ctx context.Context, limit, offset int) ([]*entity.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products ORDER BY created_at DESC, id DESC LIMIT $1 OFFSET $2`
	return r.list(ctx, "list products", query, limit, offset)
}

// ListLowStock productos con 0 < remaining <= threshold, menor remaining primero.
func (r *ProductRepo) ListLowStock(ctx context.Context, threshold quantity.Quantity) ([]*entity.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products
		WHERE remaining > 0 AND remaining <= $1
		ORDER BY remaining ASC, id ASC`
	return r.list(ctx, "list low stock", query, threshold.Decimal())
}

// ListDepleted productos agotados, actualizados más recientemente primero.
func (r *ProductRepo) ListDepleted(ctx context.Context) ([]*entity.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE remaining = 0 ORDER BY updated_at DESC, id ASC`
	return r.list(ctx, "list depleted", query)
}

func (r *ProductRepo) list(ctx context.Context, op, query string, args ...any) ([]*entity.Product, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, mapError(op, err)
	}
	defer rows.Close()
	list := []*entity.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		list = append(list, p)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(op, err)
	}
	return list, nil
}

func scanProduct(row pgxScanner) (*entity.Product, error) {
	var (
		p                          entity.Product
		capacity, initial, remains decimal.Decimal
		price                      decimal.NullDecimal
	)
	err := row.Scan(
		&p.ID, &p.Name, &capacity, &initial, &remains, &p.CategoryID, &price,
		&p.Location, &p.PhotoURL, &p.CreatedBy, &p.Version, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if p.TotalCapacity, err = quantity.New(capacity); err != nil {
		return nil, err
	}
	if p.InitialRemaining, err = quantity.New(initial); err != nil {
		return nil, err
	}
	if p.Remaining, err = quantity.New(remains); err != nil {
		return nil, err
	}
	if price.Valid {
		p.PricePerUnit = &price.Decimal
	}
	p.CreatedAt = p.CreatedAt.UTC()
	p.UpdatedAt = p.UpdatedAt.UTC()
	return &p, nil
}
