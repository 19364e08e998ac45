package domain

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Errores de dominio del ledger (sin dependencias de infraestructura).
var (
	ErrNotFound        = errors.New("recurso no encontrado")
	ErrInvalidQuantity = errors.New("cantidad inválida")
	ErrOutOfRange      = errors.New("cantidad fuera de rango")
	ErrConflict        = errors.New("conflicto por escritura concurrente")
	ErrInvalidArgument = errors.New("argumento inválido")
	ErrUnauthorized    = errors.New("no autorizado")
	ErrForbidden       = errors.New("acceso denegado")
)

// Bound identifica qué cota del invariante 0 <= remaining <= totalCapacity se violó.
type Bound string

const (
	BoundBelowZero           Bound = "below_zero"
	BoundAboveCapacity       Bound = "above_capacity"
	BoundCapacityNotPositive Bound = "capacity_not_positive"
)

// RangeError describe una violación de rango. errors.Is(err, ErrOutOfRange) es true.
type RangeError struct {
	Bound Bound
	Value decimal.Decimal
	Limit decimal.Decimal
}

func (e *RangeError) Error() string {
	switch e.Bound {
	case BoundBelowZero:
		return fmt.Sprintf("%s: %s es menor que 0", ErrOutOfRange, e.Value)
	case BoundAboveCapacity:
		return fmt.Sprintf("%s: %s excede la capacidad %s", ErrOutOfRange, e.Value, e.Limit)
	case BoundCapacityNotPositive:
		return fmt.Sprintf("%s: la capacidad %s debe ser mayor que 0", ErrOutOfRange, e.Value)
	}
	return ErrOutOfRange.Error()
}

func (e *RangeError) Unwrap() error { return ErrOutOfRange }

// BoundOf devuelve la cota violada si err es (o envuelve) un RangeError.
func BoundOf(err error) (Bound, bool) {
	var re *RangeError
	if errors.As(err, &re) {
		return re.Bound, true
	}
	return "", false
}
