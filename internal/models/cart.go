package models

import (
	"time"

	"github.com/google/uuid"
)

// CartItem is one line in a cart. Price is the catalog price captured when
// the line was added, not a live join against the product.
type CartItem struct {
	ProductID uuid.UUID `json:"product_id"`
	Quantity  int       `json:"quantity"`
	Price     float64   `json:"price"`
}

// Cart holds one ordered list of line items per user. Lines keep their
// insertion order; adding a product that is already present merges into the
// existing line instead of appending a duplicate.
type Cart struct {
	ID          uuid.UUID  `json:"id"`
	UserID      uuid.UUID  `json:"user_id"`
	Items       []CartItem `json:"items"`
	TotalAmount float64    `json:"total_amount"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// RecalculateTotal recomputes the derived total from the lines. Called after
// every mutation, before the cart is persisted.
func (c *Cart) RecalculateTotal() {
	var total float64

	for _, item := range c.Items {
		total += item.Price * float64(item.Quantity)
	}

	c.TotalAmount = total
}

// FindItem returns the index of the line holding productID, or -1.
func (c *Cart) FindItem(productID uuid.UUID) int {
	for i, item := range c.Items {
		if item.ProductID == productID {
			return i
		}
	}

	return -1
}

type AddCartItemRequest struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Quantity  int       `json:"quantity" validate:"required,min=1"`
}

type UpdateCartItemRequest struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Quantity  int       `json:"quantity" validate:"min=0"`
}
