package repository

import (
	"context"

	"github.com/jhoicas/bar-ledger/internal/domain/entity"
)

// LedgerEntryRepository puerto de persistencia para las entradas del ledger (solo inserción).
// Los listados se ordenan por recorded_at DESC, id DESC.
type LedgerEntryRepository interface {
	Create(ctx context.Context, entry *entity.LedgerEntry) error
	// GetByID devuelve (nil, nil) si no existe.
	GetByID(ctx context.Context, id string) (*entity.LedgerEntry, error)
	ListByProduct(ctx context.Context, productID string) ([]*entity.LedgerEntry, error)
	ListRecent(ctx context.Context, limit int) ([]*entity.LedgerEntry, error)
	// List todas las entradas paginadas.
	List(ctx context.Context, limit, offset int) ([]*entity.LedgerEntry, error)
	// DeleteByProduct borra el historial de un producto; solo lo usa la cascada de DeleteProduct.
	DeleteByProduct(ctx context.Context, productID string) (int64, error)
}
