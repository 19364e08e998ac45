// Package quantity define el valor de volumen (cl) validado que usa el ledger.
package quantity

import (
	"fmt"
	"math"
	"strings"

	"github.com/jhoicas/bar-ledger/internal/domain"
	"github.com/shopspring/decimal"
)

// Quantity es un decimal no negativo. El valor cero es una cantidad válida (0).
type Quantity struct {
	d decimal.Decimal
}

// Zero cantidad nula (producto agotado).
var Zero = Quantity{d: decimal.Zero}

// New valida d y construye la cantidad. Falla con ErrInvalidQuantity si d < 0.
func New(d decimal.Decimal) (Quantity, error) {
	if d.IsNegative() {
		return Quantity{}, fmt.Errorf("%w: %s es negativo", domain.ErrInvalidQuantity, d)
	}
	return Quantity{d: d}, nil
}

// FromFloat construye desde un float64; NaN e ±Inf no son cantidades.
func FromFloat(f float64) (Quantity, error) {
	if !IsFinite(f) {
		return Quantity{}, fmt.Errorf("%w: %v no es finito", domain.ErrInvalidQuantity, f)
	}
	return New(decimal.NewFromFloat(f))
}

// Parse construye desde texto ("70", "12.5").
func Parse(s string) (Quantity, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return Quantity{}, fmt.Errorf("%w: %q", domain.ErrInvalidQuantity, s)
	}
	return New(d)
}

// MustParse como Parse pero entra en pánico; solo para constantes y tests.
func MustParse(s string) Quantity {
	q, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return q
}

// IsFinite indica si f puede convertirse en decimal.
func IsFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// Decimal devuelve el valor subyacente (para persistencia y aritmética con signo).
func (q Quantity) Decimal() decimal.Decimal { return q.d }

func (q Quantity) Cmp(o Quantity) int {
	return q.d.Cmp(o.d)
}

func (q Quantity) Equal(o Quantity) bool {
	return q.d.Equal(o.d)
}

func (q Quantity) LessThan(o Quantity) bool {
	return q.d.LessThan(o.d)
}

func (q Quantity) GreaterThan(o Quantity) bool {
	return q.d.GreaterThan(o.d)
}

func (q Quantity) LessOrEqual(o Quantity) bool {
	return q.d.LessThanOrEqual(o.d)
}

func (q Quantity) IsZero() bool {
	return q.d.IsZero()
}

func (q Quantity) IsPositive() bool {
	return q.d.IsPositive()
}

func (q Quantity) Add(o Quantity) Quantity {
	return Quantity{d: q.d.Add(o.d)}
}

// WouldUnderflow indica si q - o sería negativo.
func (q Quantity) WouldUnderflow(o Quantity) bool {
	return q.d.LessThan(o.d)
}

// Sub resta o; si el resultado fuera negativo no se calcula y devuelve ErrInvalidQuantity.
func (q Quantity) Sub(o Quantity) (Quantity, error) {
	if q.WouldUnderflow(o) {
		return Quantity{}, fmt.Errorf("%w: %s - %s es negativo", domain.ErrInvalidQuantity, q.d, o.d)
	}
	return Quantity{d: q.d.Sub(o.d)}, nil
}

// Delta diferencia con signo to - from (negativa en un consumo).
func Delta(from, to Quantity) decimal.Decimal {
	return to.d.Sub(from.d)
}

// Apply suma un delta con signo; falla si el resultado es negativo.
func (q Quantity) Apply(delta decimal.Decimal) (Quantity, error) {
	return New(q.d.Add(delta))
}

func (q Quantity) String() string { return q.d.String() }

// MarshalJSON serializa como número JSON.
func (q Quantity) MarshalJSON() ([]byte, error) {
	return []byte(q.d.String()), nil
}

// UnmarshalJSON acepta número o string y aplica la misma validación que New.
func (q *Quantity) UnmarshalJSON(b []byte) error {
	var d decimal.Decimal
	if err := d.UnmarshalJSON(b); err != nil {
		return fmt.Errorf("%w: %s", domain.ErrInvalidQuantity, string(b))
	}
	v, err := New(d)
	if err != nil {
		return err
	}
	*q = v
	return nil
}
