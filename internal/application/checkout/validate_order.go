package checkout

import (
	"context"
	"fmt"
	"math"

	domainErrors "github.com/cassiomorais/checkout/internal/domain/errors"
	"github.com/cassiomorais/checkout/internal/domain/order"
	"github.com/cassiomorais/checkout/internal/domain/product"
	"github.com/cassiomorais/checkout/internal/domain/shipping"
	"github.com/google/uuid"
)

// Quantity bounds per line item.
const (
	MinQuantity = 1
	MaxQuantity = 100
)

// ItemRequest is one requested line item. The client never supplies prices;
// they are resolved from the catalog at validation time.
type ItemRequest struct {
	ProductID uuid.UUID
	Quantity  int
}

// ValidatedOrder is the priced result of validation: resolved line items with
// unit-price snapshots and the recomputed totals.
type ValidatedOrder struct {
	Items         []order.Item
	SubtotalCents int64
	ShippingCents int64
	TaxCents      int64
	TotalCents    int64
}

// OrderValidator recomputes an order's pricing from authoritative product and
// shipping data.
type OrderValidator struct {
	productRepo  product.Repository
	shippingRepo shipping.Repository
}

func NewOrderValidator(productRepo product.Repository, shippingRepo shipping.Repository) *OrderValidator {
	return &OrderValidator{
		productRepo:  productRepo,
		shippingRepo: shippingRepo,
	}
}

// Validate resolves every requested item against the catalog and prices the
// order. Prices are tax-inclusive: the tax component is derived per item as
// price - price/(1+rate), accumulated across items and rounded to the nearest
// whole currency unit once at the end so mixed tax rates don't drift.
func (v *OrderValidator) Validate(ctx context.Context, items []ItemRequest, city string) (*ValidatedOrder, error) {
	if len(items) == 0 {
		return nil, domainErrors.NewValidationError("items", "order must contain at least one item")
	}

	var (
		resolved      []order.Item
		subtotalCents int64
		taxCents      float64
	)

	for i, item := range items {
		if item.Quantity < MinQuantity || item.Quantity > MaxQuantity {
			return nil, domainErrors.NewValidationError(
				fmt.Sprintf("items[%d].quantity", i),
				fmt.Sprintf("must be between %d and %d", MinQuantity, MaxQuantity),
			)
		}

		p, err := v.productRepo.GetByID(ctx, item.ProductID)
		if err != nil {
			return nil, err
		}
		if p.StockQuantity < item.Quantity {
			return nil, domainErrors.NewDomainError(
				"insufficient_stock",
				fmt.Sprintf("product %q has %d in stock, %d requested", p.Title, p.StockQuantity, item.Quantity),
				domainErrors.ErrInsufficientStock,
			)
		}

		unitPrice := p.EffectivePriceCents()
		lineTotal := unitPrice * int64(item.Quantity)
		subtotalCents += lineTotal

		if p.TaxRate > 0 {
			base := float64(lineTotal) / (1 + p.TaxRate)
			taxCents += float64(lineTotal) - base
		}

		resolved = append(resolved, order.Item{
			ProductID:  p.ID,
			Quantity:   item.Quantity,
			PriceCents: unitPrice,
		})
	}

	shippingCents, err := v.shippingRepo.ChargeForCity(ctx, city)
	if err != nil {
		return nil, fmt.Errorf("resolve shipping charge: %w", err)
	}

	// Single rounding step, to the nearest whole currency unit.
	roundedTax := int64(math.Round(taxCents/100)) * 100

	return &ValidatedOrder{
		Items:         resolved,
		SubtotalCents: subtotalCents,
		ShippingCents: shippingCents,
		TaxCents:      roundedTax,
		TotalCents:    subtotalCents + shippingCents,
	}, nil
}
