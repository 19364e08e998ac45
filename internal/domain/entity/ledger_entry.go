package entity

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jhoicas/bar-ledger/internal/domain/quantity"
	"github.com/shopspring/decimal"
)

// LedgerEntry registro inmutable de un cambio de remaining de un producto.
// Delta siempre es NewValue - OldValue; se calcula al construir, nunca se asigna.
type LedgerEntry struct {
	ID         string
	ProductID  string
	OldValue   quantity.Quantity
	NewValue   quantity.Quantity
	Delta      decimal.Decimal
	Actor      *string // nil si el actor fue eliminado o no se conoce
	Note       *string
	RecordedAt time.Time
}

// NewLedgerEntry construye la entrada con ID UUIDv7 (ordenado por tiempo) y Delta derivado.
func NewLedgerEntry(productID string, oldValue, newValue quantity.Quantity, actor, note *string, at time.Time) (*LedgerEntry, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("generar id de entrada: %w", err)
	}
	return &LedgerEntry{
		ID:         id.String(),
		ProductID:  productID,
		OldValue:   oldValue,
		NewValue:   newValue,
		Delta:      quantity.Delta(oldValue, newValue),
		Actor:      actor,
		Note:       note,
		RecordedAt: at,
	}, nil
}

// Validate comprueba el invariante derivado Delta == NewValue - OldValue.
// Se usa al persistir y al leer filas (un delta almacenado que no cuadra es corrupción).
func (e *LedgerEntry) Validate() error {
	want := quantity.Delta(e.OldValue, e.NewValue)
	if !e.Delta.Equal(want) {
		return fmt.Errorf("entrada %s: delta %s no coincide con %s - %s", e.ID, e.Delta, e.NewValue, e.OldValue)
	}
	return nil
}

// IsConsumption indica si la entrada reduce el remaining (servido, merma).
func (e *LedgerEntry) IsConsumption() bool {
	return e.Delta.IsNegative()
}
