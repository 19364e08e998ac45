package repository

import (
	"context"

	"github.com/jhoicas/bar-ledger/internal/domain/entity"
	"github.com/jhoicas/bar-ledger/internal/domain/quantity"
)

// ProductRepository puerto de persistencia para Product (DIP).
// No expone escrituras directas de Remaining fuera de UpdateRemaining, que solo usa el ledger.
type ProductRepository interface {
	Create(ctx context.Context, product *entity.Product) error
	// GetByID devuelve (nil, nil) si no existe.
	GetByID(ctx context.Context, id string) (*entity.Product, error)
	// GetForUpdate obtiene el producto y bloquea la fila hasta el fin de la transacción.
	GetForUpdate(ctx context.Context, id string) (*entity.Product, error)
	// UpdateRemaining escribe Remaining/UpdatedAt/Version solo si la versión almacenada
	// sigue siendo expectedVersion; si no, devuelve domain.ErrConflict.
	UpdateRemaining(ctx context.Context, product *entity.Product, expectedVersion int64) error
	// UpdateDetails escribe name, category_id, price_per_unit, location, photo_url y updated_at.
	// Nunca toca remaining, capacidad ni version. domain.ErrNotFound si no había fila.
	UpdateDetails(ctx context.Context, product *entity.Product) error
	// Delete devuelve domain.ErrNotFound si no había fila.
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, limit, offset int) ([]*entity.Product, error)
	// ListLowStock productos con 0 < remaining <= threshold ordenados por remaining ascendente.
	ListLowStock(ctx context.Context, threshold quantity.Quantity) ([]*entity.Product, error)
	// ListDepleted productos con remaining = 0, actualizados más recientemente primero.
	ListDepleted(ctx context.Context) ([]*entity.Product, error)
}
