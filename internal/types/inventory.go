package types

import (
	"time"

	"github.com/google/uuid"
)

// InventoryItem is a stocked part. SKU is unique shop-wide.
type InventoryItem struct {
	ID          uuid.UUID  `json:"id"`
	SKU         string     `json:"sku"`
	Name        string     `json:"name"`
	Description *string    `json:"description,omitempty"`
	Category    *string    `json:"category,omitempty"`
	Quantity    int        `json:"quantity"`
	MinQuantity int        `json:"min_quantity"`
	UnitPrice   float64    `json:"unit_price"`
	Supplier    *string    `json:"supplier,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	DeletedAt   *time.Time `json:"-"`
}

// LowStock reports whether the item is at or below its reorder threshold.
func (i InventoryItem) LowStock() bool {
	return i.Quantity <= i.MinQuantity
}

type CreateInventoryItemParams struct {
	SKU         string  `json:"sku"`
	Name        string  `json:"name"`
	Description *string `json:"description,omitempty"`
	Category    *string `json:"category,omitempty"`
	Quantity    int     `json:"quantity"`
	MinQuantity int     `json:"min_quantity"`
	UnitPrice   float64 `json:"unit_price"`
	Supplier    *string `json:"supplier,omitempty"`
}

type UpdateInventoryItemParams struct {
	Name        *string  `json:"name,omitempty"`
	Description *string  `json:"description,omitempty"`
	Category    *string  `json:"category,omitempty"`
	MinQuantity *int     `json:"min_quantity,omitempty"`
	UnitPrice   *float64 `json:"unit_price,omitempty"`
	Supplier    *string  `json:"supplier,omitempty"`
}

// AdjustStockParams moves stock by a signed delta with an audit reason.
type AdjustStockParams struct {
	Delta  int    `json:"delta"`
	Reason string `json:"reason"`
}
