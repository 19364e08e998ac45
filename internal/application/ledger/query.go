package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jhoicas/bar-ledger/internal/domain"
	"github.com/jhoicas/bar-ledger/internal/domain/entity"
	"github.com/jhoicas/bar-ledger/internal/domain/inventory"
	"github.com/jhoicas/bar-ledger/internal/domain/quantity"
	"github.com/jhoicas/bar-ledger/internal/domain/repository"
)

// QueryService lecturas sobre el estado confirmado del ledger. No escribe.
type QueryService struct {
	txRunner TxRunner
	cache    LowStockCache
}

// NewQueryService construye el servicio de consultas. cache puede ser nil.
func NewQueryService(txRunner TxRunner, cache LowStockCache) *QueryService {
	return &QueryService{txRunner: txRunner, cache: cache}
}

// VerifyReport resultado de reproducir el historial de un producto.
type VerifyReport struct {
	ProductID  string
	Name       string
	Initial    quantity.Quantity
	Current    quantity.Quantity
	Replayed   quantity.Quantity
	Entries    int
	BrokenAt   string
	Consistent bool
}

// Product devuelve un producto o ErrNotFound.
func (q *QueryService) Product(ctx context.Context, id string) (*entity.Product, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, domain.ErrNotFound
	}
	var product *entity.Product
	err := q.txRunner.RunReadOnly(ctx, func(productRepo repository.ProductRepository, _ repository.LedgerEntryRepository) error {
		p, err := productRepo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if p == nil {
			return domain.ErrNotFound
		}
		product = p
		return nil
	})
	return product, err
}

// Products lista productos, más recientes primero.
func (q *QueryService) Products(ctx context.Context, limit, offset int) ([]*entity.Product, error) {
	if limit < 1 || offset < 0 {
		return nil, fmt.Errorf("%w: limit >= 1 y offset >= 0", domain.ErrInvalidArgument)
	}
	var list []*entity.Product
	err := q.txRunner.RunReadOnly(ctx, func(productRepo repository.ProductRepository, _ repository.LedgerEntryRepository) error {
		var err error
		list, err = productRepo.List(ctx, limit, offset)
		return err
	})
	return list, err
}

// History devuelve el historial de un producto, más reciente primero (empates por id descendente).
// Un producto inexistente (o eliminado) devuelve ErrNotFound; uno sin cambios, una lista vacía.
func (q *QueryService) History(ctx context.Context, productID string) ([]*entity.LedgerEntry, error) {
	if _, err := uuid.Parse(productID); err != nil {
		return nil, domain.ErrNotFound
	}
	var list []*entity.LedgerEntry
	err := q.txRunner.RunReadOnly(ctx, func(productRepo repository.ProductRepository, entryRepo repository.LedgerEntryRepository) error {
		p, err := productRepo.GetByID(ctx, productID)
		if err != nil {
			return err
		}
		if p == nil {
			return domain.ErrNotFound
		}
		list, err = entryRepo.ListByProduct(ctx, productID)
		return err
	})
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []*entity.LedgerEntry{}
	}
	return list, nil
}

// Recent últimas entradas de todos los productos. El valor por defecto de limit lo pone el llamador.
func (q *QueryService) Recent(ctx context.Context, limit int) ([]*entity.LedgerEntry, error) {
	if limit < 1 {
		return nil, fmt.Errorf("%w: limit debe ser >= 1", domain.ErrInvalidArgument)
	}
	var list []*entity.LedgerEntry
	err := q.txRunner.RunReadOnly(ctx, func(_ repository.ProductRepository, entryRepo repository.LedgerEntryRepository) error {
		var err error
		list, err = entryRepo.ListRecent(ctx, limit)
		return err
	})
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []*entity.LedgerEntry{}
	}
	return list, nil
}

// Entries todas las entradas del ledger paginadas, más reciente primero.
func (q *QueryService) Entries(ctx context.Context, limit, offset int) ([]*entity.LedgerEntry, error) {
	if limit < 1 || offset < 0 {
		return nil, fmt.Errorf("%w: limit >= 1 y offset >= 0", domain.ErrInvalidArgument)
	}
	var list []*entity.LedgerEntry
	err := q.txRunner.RunReadOnly(ctx, func(_ repository.ProductRepository, entryRepo repository.LedgerEntryRepository) error {
		var err error
		list, err = entryRepo.List(ctx, limit, offset)
		return err
	})
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []*entity.LedgerEntry{}
	}
	return list, nil
}

// Entry devuelve una entrada por id o ErrNotFound.
func (q *QueryService) Entry(ctx context.Context, id string) (*entity.LedgerEntry, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, domain.ErrNotFound
	}
	var entry *entity.LedgerEntry
	err := q.txRunner.RunReadOnly(ctx, func(_ repository.ProductRepository, entryRepo repository.LedgerEntryRepository) error {
		e, err := entryRepo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if e == nil {
			return domain.ErrNotFound
		}
		entry = e
		return nil
	})
	return entry, err
}

// LowStock productos con 0 < remaining <= threshold, ascendente por remaining.
// Un producto en 0 está agotado, no "bajo": se excluye a propósito y se consulta con Depleted.
func (q *QueryService) LowStock(ctx context.Context, threshold float64) ([]*entity.Product, error) {
	t, err := quantity.FromFloat(threshold)
	if err != nil {
		return nil, fmt.Errorf("%w: threshold debe ser finito y >= 0: %v", domain.ErrInvalidArgument, err)
	}
	load := func(ctx context.Context) ([]*entity.Product, error) {
		var list []*entity.Product
		err := q.txRunner.RunReadOnly(ctx, func(productRepo repository.ProductRepository, _ repository.LedgerEntryRepository) error {
			var err error
			list, err = productRepo.ListLowStock(ctx, t)
			return err
		})
		if list == nil {
			list = []*entity.Product{}
		}
		return list, err
	}
	if q.cache != nil {
		return q.cache.LowStock(ctx, t, load)
	}
	return load(ctx)
}

// Depleted productos agotados (remaining = 0).
func (q *QueryService) Depleted(ctx context.Context) ([]*entity.Product, error) {
	var list []*entity.Product
	err := q.txRunner.RunReadOnly(ctx, func(productRepo repository.ProductRepository, _ repository.LedgerEntryRepository) error {
		var err error
		list, err = productRepo.ListDepleted(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []*entity.Product{}
	}
	return list, nil
}

// Verify reproduce el historial del producto desde su remaining inicial y lo compara con el actual.
// Producto e historial se leen en la misma instantánea.
func (q *QueryService) Verify(ctx context.Context, productID string) (*VerifyReport, error) {
	if _, err := uuid.Parse(productID); err != nil {
		return nil, domain.ErrNotFound
	}
	var (
		product *entity.Product
		entries []*entity.LedgerEntry
	)
	err := q.txRunner.RunReadOnly(ctx, func(productRepo repository.ProductRepository, entryRepo repository.LedgerEntryRepository) error {
		p, err := productRepo.GetByID(ctx, productID)
		if err != nil {
			return err
		}
		if p == nil {
			return domain.ErrNotFound
		}
		product = p
		entries, err = entryRepo.ListByProduct(ctx, productID)
		return err
	})
	if err != nil {
		return nil, err
	}
	res, err := inventory.Replay(product.InitialRemaining, entries)
	if err != nil {
		return nil, err
	}
	return &VerifyReport{
		ProductID:  product.ID,
		Name:       product.Name,
		Initial:    product.InitialRemaining,
		Current:    product.Remaining,
		Replayed:   res.Replayed,
		Entries:    res.Entries,
		BrokenAt:   res.BrokenAt,
		Consistent: res.Consistent(product.Remaining),
	}, nil
}

// VerifyAll verifica todos los productos, paginando de a pageSize.
func (q *QueryService) VerifyAll(ctx context.Context, pageSize int) ([]*VerifyReport, error) {
	if pageSize < 1 {
		return nil, fmt.Errorf("%w: pageSize debe ser >= 1", domain.ErrInvalidArgument)
	}
	var reports []*VerifyReport
	for offset := 0; ; offset += pageSize {
		page, err := q.Products(ctx, pageSize, offset)
		if err != nil {
			return nil, err
		}
		for _, p := range page {
			r, err := q.Verify(ctx, p.ID)
			if errors.Is(err, domain.ErrNotFound) {
				// eliminado entre la página y su verificación
				continue
			}
			if err != nil {
				return nil, fmt.Errorf("verificar %s: %w", p.ID, err)
			}
			reports = append(reports, r)
		}
		if len(page) < pageSize {
			return reports, nil
		}
	}
}
