package checkout_test

import (
	"context"
	"testing"

	"github.com/cassiomorais/checkout/internal/application/checkout"
	domainErrors "github.com/cassiomorais/checkout/internal/domain/errors"
	"github.com/cassiomorais/checkout/internal/domain/order"
	"github.com/cassiomorais/checkout/internal/gateway"
	"github.com/cassiomorais/checkout/internal/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCreateOrderFixture() (*checkout.CreateOrderUseCase, *testutil.MockOrderRepository, *testutil.MockProductRepository) {
	productRepo := testutil.NewMockProductRepository()
	shippingRepo := testutil.NewMockShippingRepository()
	orderRepo := testutil.NewMockOrderRepository()

	signer := gateway.NewSigner("8gBm/:&EnhH.1/q", "EPAYTEST")
	builder := gateway.NewFormBuilder(signer,
		"https://rc-epay.example.com/form",
		"https://shop.example.com/payment/success",
		"https://shop.example.com/payment/failure",
	)

	uc := checkout.NewCreateOrderUseCase(
		checkout.NewOrderValidator(productRepo, shippingRepo),
		orderRepo,
		builder,
		zerolog.Nop(),
	)
	return uc, orderRepo, productRepo
}

func TestCreateOrder_Success(t *testing.T) {
	uc, orderRepo, productRepo := newCreateOrderFixture()
	p := testutil.NewTestProduct("Widget", 10, 500_00)
	productRepo.AddProduct(p)

	resp, err := uc.Execute(context.Background(), checkout.CreateOrderRequest{
		UserID:       "user-1",
		Items:        []checkout.ItemRequest{{ProductID: p.ID, Quantity: 2}},
		ShippingInfo: testutil.NewTestShippingInfo(),
	})

	require.NoError(t, err)
	assert.Equal(t, order.StatusPending, resp.Order.Status)
	assert.Equal(t, int64(1000_00), resp.Order.TotalCents)
	assert.NotEmpty(t, resp.Order.TransactionUUID)

	// The order is persisted and resolvable by its join key.
	stored, err := orderRepo.GetByTransactionUUID(context.Background(), resp.Order.TransactionUUID)
	require.NoError(t, err)
	assert.Equal(t, resp.Order.ID, stored.ID)

	// The form is signed over the recomputed total and this transaction.
	require.NotNil(t, resp.FormFields)
	assert.Equal(t, "1000", resp.FormFields.TotalAmount)
	assert.Equal(t, resp.Order.TransactionUUID, resp.FormFields.TransactionUUID)
	assert.Equal(t, gateway.SignedFieldNames, resp.FormFields.SignedFieldNames)
	assert.NotEmpty(t, resp.FormFields.Signature)
	assert.Equal(t, "https://rc-epay.example.com/form", resp.FormAction)
}

func TestCreateOrder_EmptyUser(t *testing.T) {
	uc, _, productRepo := newCreateOrderFixture()
	p := testutil.NewTestProduct("Widget", 10, 500_00)
	productRepo.AddProduct(p)

	_, err := uc.Execute(context.Background(), checkout.CreateOrderRequest{
		UserID: "",
		Items:  []checkout.ItemRequest{{ProductID: p.ID, Quantity: 1}},
	})
	var vErr *domainErrors.ValidationError
	assert.ErrorAs(t, err, &vErr)
}

func TestCreateOrder_ValidationFailureDoesNotPersist(t *testing.T) {
	uc, orderRepo, productRepo := newCreateOrderFixture()
	p := testutil.NewTestProduct("Widget", 1, 500_00)
	productRepo.AddProduct(p)

	_, err := uc.Execute(context.Background(), checkout.CreateOrderRequest{
		UserID:       "user-1",
		Items:        []checkout.ItemRequest{{ProductID: p.ID, Quantity: 5}},
		ShippingInfo: testutil.NewTestShippingInfo(),
	})

	assert.ErrorIs(t, err, domainErrors.ErrInsufficientStock)

	// Nothing was written.
	orderRepo.CreateFunc = nil
	_, getErr := orderRepo.GetByTransactionUUID(context.Background(), "anything")
	assert.ErrorIs(t, getErr, domainErrors.ErrOrderNotFound)
}

func TestCreateOrder_ValidationDoesNotDecrementStock(t *testing.T) {
	uc, _, productRepo := newCreateOrderFixture()
	p := testutil.NewTestProduct("Widget", 10, 500_00)
	productRepo.AddProduct(p)

	_, err := uc.Execute(context.Background(), checkout.CreateOrderRequest{
		UserID:       "user-1",
		Items:        []checkout.ItemRequest{{ProductID: p.ID, Quantity: 3}},
		ShippingInfo: testutil.NewTestShippingInfo(),
	})
	require.NoError(t, err)

	// Stock moves at settlement, not checkout.
	assert.Equal(t, 10, productRepo.GetProduct(p.ID).StockQuantity)
}
