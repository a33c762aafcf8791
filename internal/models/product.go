package models

import (
	"time"

	"github.com/google/uuid"
)

type Product struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Category    string    `json:"category"`
	Price       float64   `json:"price"`
	Quantity    int       `json:"quantity"`
	InStock     bool      `json:"in_stock"`
	Images      []string  `json:"images"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// SyncStock keeps the derived in-stock flag in line with the quantity.
// Every stock-affecting write must call this before persisting.
func (p *Product) SyncStock() {
	p.InStock = p.Quantity > 0
}

type CreateProductRequest struct {
	Name        string   `json:"name" validate:"required,min=2,max=200"`
	Description string   `json:"description,omitempty"`
	Category    string   `json:"category" validate:"required"`
	Price       float64  `json:"price" validate:"gte=0"`
	Quantity    int      `json:"quantity" validate:"gte=0"`
	Images      []string `json:"images,omitempty" validate:"omitempty,dive,url"`
}

type UpdateProductRequest struct {
	Name        *string   `json:"name,omitempty" validate:"omitempty,min=2,max=200"`
	Description *string   `json:"description,omitempty"`
	Category    *string   `json:"category,omitempty"`
	Price       *float64  `json:"price,omitempty" validate:"omitempty,gte=0"`
	Quantity    *int      `json:"quantity,omitempty" validate:"omitempty,gte=0"`
	Images      *[]string `json:"images,omitempty" validate:"omitempty,dive,url"`
}
