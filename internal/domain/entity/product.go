package entity

import (
	"time"

	"github.com/jhoicas/bar-ledger/internal/domain"
	"github.com/jhoicas/bar-ledger/internal/domain/quantity"
	"github.com/shopspring/decimal"
)

// Product representa una botella (o cualquier ítem de volumen finito) medida en cl.
// Remaining solo cambia vía ledger (ApplyChange); TotalCapacity e InitialRemaining
// no cambian después de la creación.
type Product struct {
	ID               string
	Name             string
	TotalCapacity    quantity.Quantity
	InitialRemaining quantity.Quantity // punto de partida para reproducir el historial
	Remaining        quantity.Quantity
	CategoryID       *string
	PricePerUnit     *decimal.Decimal // precio por cl
	Location         string
	PhotoURL         string
	CreatedBy        *string // nil si el creador fue eliminado
	Version          int64   // se incrementa en cada cambio del ledger
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// CheckRange valida 0 <= v <= capacity devolviendo un *domain.RangeError con la cota violada.
func CheckRange(v decimal.Decimal, capacity quantity.Quantity) error {
	if v.IsNegative() {
		return &domain.RangeError{Bound: domain.BoundBelowZero, Value: v, Limit: decimal.Zero}
	}
	if v.GreaterThan(capacity.Decimal()) {
		return &domain.RangeError{Bound: domain.BoundAboveCapacity, Value: v, Limit: capacity.Decimal()}
	}
	return nil
}

// IsDepleted producto agotado (remaining == 0); no se considera "stock bajo".
func (p *Product) IsDepleted() bool {
	return p.Remaining.IsZero()
}

// IsLowStock 0 < remaining <= threshold.
func (p *Product) IsLowStock(threshold quantity.Quantity) bool {
	return p.Remaining.IsPositive() && p.Remaining.LessOrEqual(threshold)
}
