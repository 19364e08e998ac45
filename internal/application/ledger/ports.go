package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/jhoicas/bar-ledger/internal/domain/entity"
	"github.com/jhoicas/bar-ledger/internal/domain/quantity"
	"github.com/jhoicas/bar-ledger/internal/domain/repository"
)

// TxRunner ejecuta una función dentro de una transacción de BD, pasando repositorios atados a esa tx.
// Si fn devuelve error (o el ctx se cancela) la transacción hace Rollback completo.
type TxRunner interface {
	Run(ctx context.Context, fn func(
		productRepo repository.ProductRepository,
		entryRepo repository.LedgerEntryRepository,
	) error) error
	// RunReadOnly ejecuta lecturas sobre una única instantánea confirmada.
	RunReadOnly(ctx context.Context, fn func(
		productRepo repository.ProductRepository,
		entryRepo repository.LedgerEntryRepository,
	) error) error
}

// Tipos de evento publicados después del commit.
const (
	EventEntryRecorded  = "ledger.entry.recorded"
	EventProductCreated = "ledger.product.created"
	EventProductUpdated = "ledger.product.updated"
	EventProductDeleted = "ledger.product.deleted"
)

// Event notificación posterior al commit. Entry solo viene en EventEntryRecorded.
type Event struct {
	Type       string
	ProductID  string
	Product    *entity.Product
	Entry      *entity.LedgerEntry
	OccurredAt time.Time
}

// EventPublisher recibe los eventos ya confirmados. Un error aquí no deshace nada.
type EventPublisher interface {
	Publish(ctx context.Context, event Event) error
}

// Publishers reparte un evento a varios publicadores.
type Publishers []EventPublisher

// Publish llama a todos los publicadores y junta los errores.
func (p Publishers) Publish(ctx context.Context, event Event) error {
	var errs []error
	for _, pub := range p {
		if pub == nil {
			continue
		}
		if err := pub.Publish(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// NopPublisher descarta los eventos.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }

// Resultados para métricas de ApplyChange.
const (
	ResultChanged         = "changed"
	ResultNoop            = "noop"
	ResultNotFound        = "not_found"
	ResultInvalidQuantity = "invalid_quantity"
	ResultOutOfRange      = "out_of_range"
	ResultConflict        = "conflict"
	ResultError           = "error"
)

// Metrics instrumentación del ledger.
type Metrics interface {
	ObserveChange(result string, elapsed time.Duration)
}

// NopMetrics no registra nada.
type NopMetrics struct{}

func (NopMetrics) ObserveChange(string, time.Duration) {}

// LowStockCache caché de lectura para LowStock. load se invoca en un fallo de caché.
type LowStockCache interface {
	LowStock(ctx context.Context, threshold quantity.Quantity, load func(context.Context) ([]*entity.Product, error)) ([]*entity.Product, error)
}
