package testutil

import (
	"time"

	"github.com/cassiomorais/checkout/internal/domain/order"
	"github.com/cassiomorais/checkout/internal/domain/product"
	"github.com/google/uuid"
)

func NewTestProduct(title string, stock int, priceCents int64) *product.Product {
	return &product.Product{
		ID:                 uuid.New(),
		Title:              title,
		StockQuantity:      stock,
		Status:             product.StatusActive,
		OriginalPriceCents: priceCents,
		TaxRate:            0,
		UpdatedAt:          time.Now(),
	}
}

func NewTestShippingInfo() order.ShippingInfo {
	return order.ShippingInfo{
		Name:    "Test Customer",
		Email:   "customer@example.com",
		Phone:   "9800000000",
		Address: "123 Test Street",
		City:    "Kathmandu",
	}
}

// NewTestOrder builds a PENDING order for one product with the given quantity
// and total already computed.
func NewTestOrder(userID string, productID uuid.UUID, qty int, unitPriceCents, shippingCents int64) *order.Order {
	now := time.Now()
	subtotal := unitPriceCents * int64(qty)
	return &order.Order{
		ID:     uuid.New(),
		UserID: userID,
		Items: []order.Item{
			{ProductID: productID, Quantity: qty, PriceCents: unitPriceCents},
		},
		TransactionUUID: uuid.New().String(),
		SubtotalCents:   subtotal,
		ShippingCents:   shippingCents,
		TotalCents:      subtotal + shippingCents,
		Status:          order.StatusPending,
		DeliveryStatus:  order.DeliveryPending,
		ShippingInfo:    NewTestShippingInfo(),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// NewCompletedOrder builds an order already settled by a previous delivery.
func NewCompletedOrder(userID string, productID uuid.UUID, qty int, unitPriceCents int64) *order.Order {
	o := NewTestOrder(userID, productID, qty, unitPriceCents, 0)
	o.Status = order.StatusCompleted
	ref := "REF-" + uuid.New().String()[:8]
	o.GatewayRefID = &ref
	return o
}
