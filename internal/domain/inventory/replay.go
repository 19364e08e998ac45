package inventory

import (
	"fmt"
	"sort"

	"github.com/jhoicas/bar-ledger/internal/domain/entity"
	"github.com/jhoicas/bar-ledger/internal/domain/quantity"
)

// ReplayResult resultado de reproducir el historial de un producto.
type ReplayResult struct {
	Replayed quantity.Quantity // remaining obtenido tras aplicar todas las entradas
	Entries  int
	// BrokenAt es el ID de la primera entrada cuyo OldValue no coincide con el
	// NewValue anterior (o cuyo delta no cuadra). Vacío si la cadena es continua.
	BrokenAt string
}

// Replay aplica las entradas en orden (RecordedAt, ID) ascendente partiendo de initial.
// No modifica el slice recibido.
func Replay(initial quantity.Quantity, entries []*entity.LedgerEntry) (ReplayResult, error) {
	ordered := make([]*entity.LedgerEntry, len(entries))
	copy(ordered, entries)
	SortChronological(ordered)

	res := ReplayResult{Replayed: initial, Entries: len(ordered)}
	current := initial
	for _, e := range ordered {
		if err := e.Validate(); err != nil {
			if res.BrokenAt == "" {
				res.BrokenAt = e.ID
			}
		}
		if !e.OldValue.Equal(current) && res.BrokenAt == "" {
			res.BrokenAt = e.ID
		}
		next, err := current.Apply(e.Delta)
		if err != nil {
			return res, fmt.Errorf("reproducir entrada %s: %w", e.ID, err)
		}
		current = next
	}
	res.Replayed = current
	return res, nil
}

// Consistent indica si el historial reproduce exactamente el remaining actual.
func (r ReplayResult) Consistent(current quantity.Quantity) bool {
	return r.BrokenAt == "" && r.Replayed.Equal(current)
}

// SortChronological ordena por RecordedAt ascendente y, a igual instante, por ID ascendente.
func SortChronological(entries []*entity.LedgerEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if !a.RecordedAt.Equal(b.RecordedAt) {
			return a.RecordedAt.Before(b.RecordedAt)
		}
		return a.ID < b.ID
	})
}
