package dto

import (
	"encoding/json"
	"time"

	"github.com/jhoicas/bar-ledger/internal/application/ledger"
	"github.com/jhoicas/bar-ledger/internal/domain/entity"
	"github.com/jhoicas/bar-ledger/internal/domain/quantity"
)

// ApplyChangeRequest body para PUT /api/products/{id}/remaining.
type ApplyChangeRequest struct {
	Remaining         *float64 `json:"remaining"`
	Note              *string  `json:"note,omitempty"`
	ExpectedRemaining *float64 `json:"expected_remaining,omitempty"`
}

// LedgerEntryResponse una entrada del historial. Delta es número con signo (negativo en un consumo).
type LedgerEntryResponse struct {
	ID         string            `json:"id"`
	ProductID  string            `json:"product_id"`
	OldValue   quantity.Quantity `json:"old_value"`
	NewValue   quantity.Quantity `json:"new_value"`
	Delta      json.Number       `json:"delta"`
	Actor      *string           `json:"actor,omitempty"`
	Note       *string           `json:"note,omitempty"`
	RecordedAt time.Time         `json:"recorded_at"`
}

// LedgerEntryListResponse página de GET /api/ledger.
type LedgerEntryListResponse struct {
	Items []LedgerEntryResponse `json:"items"`
	Page  PageResponse          `json:"page"`
}

// ApplyChangeResponse resultado de un cambio. Entry es null en un no-op.
type ApplyChangeResponse struct {
	Product ProductResponse      `json:"product"`
	Entry   *LedgerEntryResponse `json:"entry"`
	Changed bool                 `json:"changed"`
}

// VerifyResponse resultado de reproducir el historial de un producto.
type VerifyResponse struct {
	ProductID  string            `json:"product_id"`
	Name       string            `json:"name"`
	Initial    quantity.Quantity `json:"initial"`
	Current    quantity.Quantity `json:"current"`
	Replayed   quantity.Quantity `json:"replayed"`
	Entries    int               `json:"entries"`
	BrokenAt   string            `json:"broken_at,omitempty"`
	Consistent bool              `json:"consistent"`
}

// ToLedgerEntryResponse mapea la entidad a su representación HTTP.
func ToLedgerEntryResponse(e *entity.LedgerEntry) LedgerEntryResponse {
	return LedgerEntryResponse{
		ID:         e.ID,
		ProductID:  e.ProductID,
		OldValue:   e.OldValue,
		NewValue:   e.NewValue,
		Delta:      json.Number(e.Delta.String()),
		Actor:      e.Actor,
		Note:       e.Note,
		RecordedAt: e.RecordedAt,
	}
}

// ToLedgerEntryList mapea una lista; nunca devuelve nil.
func ToLedgerEntryList(list []*entity.LedgerEntry) []LedgerEntryResponse {
	out := make([]LedgerEntryResponse, 0, len(list))
	for _, e := range list {
		out = append(out, ToLedgerEntryResponse(e))
	}
	return out
}

// ToApplyChangeResponse mapea el resultado de ApplyChange.
func ToApplyChangeResponse(r *ledger.ChangeResult) ApplyChangeResponse {
	out := ApplyChangeResponse{Product: ToProductResponse(r.Product), Changed: r.Changed}
	if r.Entry != nil {
		e := ToLedgerEntryResponse(r.Entry)
		out.Entry = &e
	}
	return out
}

// ToVerifyResponse mapea un reporte de verificación.
func ToVerifyResponse(r *ledger.VerifyReport) VerifyResponse {
	return VerifyResponse{
		ProductID:  r.ProductID,
		Name:       r.Name,
		Initial:    r.Initial,
		Current:    r.Current,
		Replayed:   r.Replayed,
		Entries:    r.Entries,
		BrokenAt:   r.BrokenAt,
		Consistent: r.Consistent,
	}
}
