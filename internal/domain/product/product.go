package product

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ProductStatus marks sale availability
type ProductStatus string

const (
	StatusActive     ProductStatus = "active"
	StatusOutOfStock ProductStatus = "out-of-stock"
)

// LowStockThreshold is the remaining quantity at or below which a
// stock-depletion alert is emitted.
const LowStockThreshold = 5

// Product is owned by the catalog service; this core only reads it and
// decrements stock during settlement.
type Product struct {
	ID                 uuid.UUID
	Title              string
	StockQuantity      int
	Status             ProductStatus
	OriginalPriceCents int64
	DiscountPriceCents *int64
	TaxRate            float64
	UpdatedAt          time.Time
}

// EffectivePriceCents is the unit price charged at checkout: the discount
// price when one is set, the original price otherwise.
func (p *Product) EffectivePriceCents() int64 {
	if p.DiscountPriceCents != nil {
		return *p.DiscountPriceCents
	}
	return p.OriginalPriceCents
}

// Repository reads products and applies stock decrements.
type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Product, error)

	// DecrementStock atomically subtracts qty from the product's stock,
	// bounded below by zero: when the current stock is smaller than qty the
	// call fails with ErrInsufficientStock and nothing is decremented. The
	// store flips the product to out-of-stock when the remaining quantity
	// reaches exactly 0. Returns the remaining quantity.
	DecrementStock(ctx context.Context, id uuid.UUID, qty int) (remaining int, err error)
}
