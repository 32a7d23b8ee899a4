package checkout_test

import (
	"context"
	"testing"

	"github.com/cassiomorais/checkout/internal/application/checkout"
	domainErrors "github.com/cassiomorais/checkout/internal/domain/errors"
	"github.com/cassiomorais/checkout/internal/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateOrder_Success(t *testing.T) {
	ctx := context.Background()
	productRepo := testutil.NewMockProductRepository()
	shippingRepo := testutil.NewMockShippingRepository()

	p := testutil.NewTestProduct("Widget", 10, 500_00)
	productRepo.AddProduct(p)
	shippingRepo.SetCharge("Kathmandu", 100_00)

	v := checkout.NewOrderValidator(productRepo, shippingRepo)
	result, err := v.Validate(ctx, []checkout.ItemRequest{
		{ProductID: p.ID, Quantity: 2},
	}, "Kathmandu")

	require.NoError(t, err)
	assert.Equal(t, int64(1000_00), result.SubtotalCents)
	assert.Equal(t, int64(100_00), result.ShippingCents)
	assert.Equal(t, int64(1100_00), result.TotalCents)
	require.Len(t, result.Items, 1)
	assert.Equal(t, int64(500_00), result.Items[0].PriceCents)
}

func TestValidateOrder_EmptyItems(t *testing.T) {
	v := checkout.NewOrderValidator(testutil.NewMockProductRepository(), testutil.NewMockShippingRepository())

	_, err := v.Validate(context.Background(), nil, "Kathmandu")
	var vErr *domainErrors.ValidationError
	assert.ErrorAs(t, err, &vErr)
}

func TestValidateOrder_QuantityBounds(t *testing.T) {
	ctx := context.Background()
	productRepo := testutil.NewMockProductRepository()
	p := testutil.NewTestProduct("Widget", 1000, 500_00)
	productRepo.AddProduct(p)

	v := checkout.NewOrderValidator(productRepo, testutil.NewMockShippingRepository())

	tests := []struct {
		name    string
		qty     int
		wantErr bool
	}{
		{"zero", 0, true},
		{"negative", -1, true},
		{"minimum", 1, false},
		{"maximum", 100, false},
		{"above maximum", 101, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := v.Validate(ctx, []checkout.ItemRequest{{ProductID: p.ID, Quantity: tt.qty}}, "")
			if tt.wantErr {
				var vErr *domainErrors.ValidationError
				assert.ErrorAs(t, err, &vErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateOrder_ProductNotFound(t *testing.T) {
	v := checkout.NewOrderValidator(testutil.NewMockProductRepository(), testutil.NewMockShippingRepository())

	_, err := v.Validate(context.Background(), []checkout.ItemRequest{
		{ProductID: uuid.New(), Quantity: 1},
	}, "")
	assert.ErrorIs(t, err, domainErrors.ErrProductNotFound)
}

func TestValidateOrder_InsufficientStock_NamesProduct(t *testing.T) {
	productRepo := testutil.NewMockProductRepository()
	p := testutil.NewTestProduct("Rare Widget", 2, 500_00)
	productRepo.AddProduct(p)

	v := checkout.NewOrderValidator(productRepo, testutil.NewMockShippingRepository())
	_, err := v.Validate(context.Background(), []checkout.ItemRequest{
		{ProductID: p.ID, Quantity: 5},
	}, "")

	assert.ErrorIs(t, err, domainErrors.ErrInsufficientStock)
	assert.Contains(t, err.Error(), "Rare Widget")
	assert.Contains(t, err.Error(), "2 in stock")
}

func TestValidateOrder_DiscountPriceWins(t *testing.T) {
	productRepo := testutil.NewMockProductRepository()
	p := testutil.NewTestProduct("Widget", 10, 500_00)
	discount := int64(400_00)
	p.DiscountPriceCents = &discount
	productRepo.AddProduct(p)

	v := checkout.NewOrderValidator(productRepo, testutil.NewMockShippingRepository())
	result, err := v.Validate(context.Background(), []checkout.ItemRequest{
		{ProductID: p.ID, Quantity: 1},
	}, "")

	require.NoError(t, err)
	assert.Equal(t, int64(400_00), result.SubtotalCents)
	assert.Equal(t, int64(400_00), result.Items[0].PriceCents)
}

func TestValidateOrder_UnknownCityMeansFreeShipping(t *testing.T) {
	productRepo := testutil.NewMockProductRepository()
	p := testutil.NewTestProduct("Widget", 10, 500_00)
	productRepo.AddProduct(p)

	v := checkout.NewOrderValidator(productRepo, testutil.NewMockShippingRepository())
	result, err := v.Validate(context.Background(), []checkout.ItemRequest{
		{ProductID: p.ID, Quantity: 1},
	}, "Nowhere")

	require.NoError(t, err)
	assert.Equal(t, int64(0), result.ShippingCents)
	assert.Equal(t, result.SubtotalCents, result.TotalCents)
}

func TestValidateOrder_TaxRoundedOnceAtEnd(t *testing.T) {
	productRepo := testutil.NewMockProductRepository()

	// Two items with 13% tax-inclusive pricing; per-item tax components carry
	// fractions that would drift if rounded individually.
	p1 := testutil.NewTestProduct("A", 10, 113_00)
	p1.TaxRate = 0.13
	p2 := testutil.NewTestProduct("B", 10, 56_50)
	p2.TaxRate = 0.13
	productRepo.AddProduct(p1)
	productRepo.AddProduct(p2)

	v := checkout.NewOrderValidator(productRepo, testutil.NewMockShippingRepository())
	result, err := v.Validate(context.Background(), []checkout.ItemRequest{
		{ProductID: p1.ID, Quantity: 1},
		{ProductID: p2.ID, Quantity: 1},
	}, "")

	require.NoError(t, err)
	// 113.00 -> 13.00 tax, 56.50 -> 6.50 tax, total 19.50 -> rounds to 20 units.
	assert.Equal(t, int64(20_00), result.TaxCents)
	// Tax is derived, never added: total stays subtotal + shipping.
	assert.Equal(t, int64(169_50), result.TotalCents)
}
