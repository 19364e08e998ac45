package dto

import (
	"time"

	"github.com/jhoicas/bar-ledger/internal/domain/entity"
	"github.com/jhoicas/bar-ledger/internal/domain/quantity"
	"github.com/shopspring/decimal"
)

// CreateProductRequest entrada para crear un producto. Capacidad y remaining en cl.
type CreateProductRequest struct {
	Name             string           `json:"name"`
	TotalCapacity    *float64         `json:"total_capacity"`
	InitialRemaining *float64         `json:"initial_remaining"`
	CategoryID       *string          `json:"category_id"`
	PricePerUnit     *decimal.Decimal `json:"price_per_unit"`
	Location         string           `json:"location"`
	PhotoURL         string           `json:"photo_url"`
}

// UpdateProductRequest cambios descriptivos (PATCH). No tiene remaining ni capacidad:
// esos campos se ignoran si llegan en el cuerpo. category_id "" quita la categoría.
type UpdateProductRequest struct {
	Name         *string          `json:"name"`
	CategoryID   *string          `json:"category_id"`
	PricePerUnit *decimal.Decimal `json:"price_per_unit"`
	Location     *string          `json:"location"`
	PhotoURL     *string          `json:"photo_url"`
}

// ProductResponse salida de un producto.
type ProductResponse struct {
	ID               string            `json:"id"`
	Name             string            `json:"name"`
	TotalCapacity    quantity.Quantity `json:"total_capacity"`
	InitialRemaining quantity.Quantity `json:"initial_remaining"`
	Remaining        quantity.Quantity `json:"remaining"`
	CategoryID       *string           `json:"category_id,omitempty"`
	PricePerUnit     *decimal.Decimal  `json:"price_per_unit,omitempty"`
	Location         string            `json:"location,omitempty"`
	PhotoURL         string            `json:"photo_url,omitempty"`
	CreatedBy        *string           `json:"created_by,omitempty"`
	Version          int64             `json:"version"`
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
}

// ProductListResponse lista paginada de productos.
type ProductListResponse struct {
	Items []ProductResponse `json:"items"`
	Page  PageResponse      `json:"page"`
}

// ToProductResponse mapea la entidad a su representación HTTP.
func ToProductResponse(p *entity.Product) ProductResponse {
	return ProductResponse{
		ID:               p.ID,
		Name:             p.Name,
		TotalCapacity:    p.TotalCapacity,
		InitialRemaining: p.InitialRemaining,
		Remaining:        p.Remaining,
		CategoryID:       p.CategoryID,
		PricePerUnit:     p.PricePerUnit,
		Location:         p.Location,
		PhotoURL:         p.PhotoURL,
		CreatedBy:        p.CreatedBy,
		Version:          p.Version,
		CreatedAt:        p.CreatedAt,
		UpdatedAt:        p.UpdatedAt,
	}
}

// ToProductList mapea una lista; nunca devuelve nil para que el JSON sea [].
func ToProductList(list []*entity.Product) []ProductResponse {
	out := make([]ProductResponse, 0, len(list))
	for _, p := range list {
		out = append(out, ToProductResponse(p))
	}
	return out
}
