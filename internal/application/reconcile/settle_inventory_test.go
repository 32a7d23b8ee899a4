package reconcile_test

import (
	"context"
	"sync"
	"testing"

	"github.com/cassiomorais/checkout/internal/application/reconcile"
	domainErrors "github.com/cassiomorais/checkout/internal/domain/errors"
	"github.com/cassiomorais/checkout/internal/domain/order"
	"github.com/cassiomorais/checkout/internal/domain/product"
	"github.com/cassiomorais/checkout/internal/monitoring"
	"github.com/cassiomorais/checkout/internal/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSettler() (*reconcile.InventorySettler, *testutil.MockProductRepository, *testutil.MockSink) {
	productRepo := testutil.NewMockProductRepository()
	sink := testutil.NewMockSink()
	return reconcile.NewInventorySettler(productRepo, sink, nil, zerolog.Nop()), productRepo, sink
}

func TestSettleItems_DecrementsEveryItem(t *testing.T) {
	settler, productRepo, _ := newSettler()

	p1 := testutil.NewTestProduct("A", 10, 100_00)
	p2 := testutil.NewTestProduct("B", 20, 200_00)
	productRepo.AddProduct(p1)
	productRepo.AddProduct(p2)

	o := testutil.NewTestOrder("user-1", p1.ID, 3, 100_00, 0)
	o.Items = append(o.Items, order.Item{ProductID: p2.ID, Quantity: 5, PriceCents: 200_00})

	err := settler.SettleItems(context.Background(), o)
	require.NoError(t, err)
	assert.Equal(t, 7, productRepo.GetProduct(p1.ID).StockQuantity)
	assert.Equal(t, 15, productRepo.GetProduct(p2.ID).StockQuantity)
}

func TestSettleItems_LowStockAlert(t *testing.T) {
	settler, productRepo, sink := newSettler()

	p := testutil.NewTestProduct("Widget", 7, 100_00)
	productRepo.AddProduct(p)
	o := testutil.NewTestOrder("user-1", p.ID, 3, 100_00, 0)

	require.NoError(t, settler.SettleItems(context.Background(), o))

	events := sink.EventsOfType(monitoring.EventStockDepletion)
	require.Len(t, events, 1)
	assert.Equal(t, monitoring.SeverityInfo, events[0].Severity)
	assert.Equal(t, 4, events[0].Details["remaining"])
}

func TestSettleItems_OutOfStockFlipAtZero(t *testing.T) {
	settler, productRepo, sink := newSettler()

	p := testutil.NewTestProduct("Widget", 3, 100_00)
	productRepo.AddProduct(p)
	o := testutil.NewTestOrder("user-1", p.ID, 3, 100_00, 0)

	require.NoError(t, settler.SettleItems(context.Background(), o))

	assert.Equal(t, 0, productRepo.GetProduct(p.ID).StockQuantity)
	assert.Equal(t, product.StatusOutOfStock, productRepo.GetProduct(p.ID).Status)

	events := sink.EventsOfType(monitoring.EventStockDepletion)
	require.Len(t, events, 1)
	assert.Equal(t, monitoring.SeverityWarning, events[0].Severity)
}

func TestSettleItems_InsufficientStockAborts(t *testing.T) {
	settler, productRepo, _ := newSettler()

	p1 := testutil.NewTestProduct("A", 10, 100_00)
	p2 := testutil.NewTestProduct("B", 1, 200_00)
	p3 := testutil.NewTestProduct("C", 10, 300_00)
	productRepo.AddProduct(p1)
	productRepo.AddProduct(p2)
	productRepo.AddProduct(p3)

	o := testutil.NewTestOrder("user-1", p1.ID, 2, 100_00, 0)
	o.Items = append(o.Items,
		order.Item{ProductID: p2.ID, Quantity: 5, PriceCents: 200_00},
		order.Item{ProductID: p3.ID, Quantity: 1, PriceCents: 300_00},
	)

	err := settler.SettleItems(context.Background(), o)
	require.ErrorIs(t, err, domainErrors.ErrInsufficientStock)

	// The failing item is untouched and later items are not reached.
	assert.Equal(t, 1, productRepo.GetProduct(p2.ID).StockQuantity)
	assert.Equal(t, 10, productRepo.GetProduct(p3.ID).StockQuantity)
}

func TestSettleItems_UnknownProduct(t *testing.T) {
	settler, productRepo, _ := newSettler()

	p := testutil.NewTestProduct("Widget", 10, 100_00)
	o := testutil.NewTestOrder("user-1", p.ID, 1, 100_00, 0)
	_ = productRepo // product never added

	err := settler.SettleItems(context.Background(), o)
	assert.ErrorIs(t, err, domainErrors.ErrProductNotFound)
}

func TestDecrementStock_FloorUnderConcurrency(t *testing.T) {
	productRepo := testutil.NewMockProductRepository()
	p := testutil.NewTestProduct("Widget", 10, 100_00)
	productRepo.AddProduct(p)

	const attempts = 25
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := productRepo.DecrementStock(context.Background(), p.ID, 1); err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 10, wins, "exactly as many decrements as there was stock")
	assert.Equal(t, 0, productRepo.GetProduct(p.ID).StockQuantity)
}
