package reconcile_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/cassiomorais/checkout/internal/application/reconcile"
	domainErrors "github.com/cassiomorais/checkout/internal/domain/errors"
	"github.com/cassiomorais/checkout/internal/domain/order"
	"github.com/cassiomorais/checkout/internal/gateway"
	"github.com/cassiomorais/checkout/internal/monitoring"
	"github.com/cassiomorais/checkout/internal/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testSecret      = "8gBm/:&EnhH.1/q"
	testProductCode = "EPAYTEST"
	gatewayIP       = "203.0.113.10"
)

type fixture struct {
	reconciler  *reconcile.Reconciler
	orderRepo   *testutil.MockOrderRepository
	productRepo *testutil.MockProductRepository
	dlqRepo     *testutil.MockDLQRepository
	notifier    *testutil.MockNotifier
	sink        *testutil.MockSink
	signer      *gateway.Signer
}

func newFixture(t *testing.T, strict bool) *fixture {
	t.Helper()

	orderRepo := testutil.NewMockOrderRepository()
	productRepo := testutil.NewMockProductRepository()
	dlqRepo := testutil.NewMockDLQRepository()
	notifier := testutil.NewMockNotifier()
	sink := testutil.NewMockSink()
	signer := gateway.NewSigner(testSecret, testProductCode)
	logger := zerolog.Nop()

	guard, err := reconcile.NewGuard(strict, !strict,
		[]string{"203.0.113.0/24"},
		[]string{"127.0.0.1", "::1"},
		5*time.Minute, logger)
	require.NoError(t, err)

	settler := reconcile.NewInventorySettler(productRepo, sink, nil, logger)
	settlement := reconcile.NewSettlement(orderRepo, settler, notifier, sink, nil, logger)
	deferrer := reconcile.NewDeferrer(dlqRepo, sink, nil, 3, nil, logger)

	return &fixture{
		reconciler:  reconcile.NewReconciler(guard, signer, orderRepo, settlement, deferrer, sink, nil, strict, logger),
		orderRepo:   orderRepo,
		productRepo: productRepo,
		dlqRepo:     dlqRepo,
		notifier:    notifier,
		sink:        sink,
		signer:      signer,
	}
}

// signedRequest builds a COMPLETE webhook for the order, signed over amount.
func (f *fixture) signedRequest(t *testing.T, o *order.Order, amount string) reconcile.Request {
	t.Helper()
	sig, err := f.signer.Sign(amount, o.TransactionUUID)
	require.NoError(t, err)
	return reconcile.Request{
		Payload: reconcile.WebhookPayload{
			TransactionUUID: o.TransactionUUID,
			TransactionCode: "000XYZ",
			Status:          "COMPLETE",
			TotalAmount:     amount,
			Signature:       sig,
		},
		RemoteIP:        gatewayIP,
		HeaderTimestamp: fmt.Sprint(time.Now().Unix()),
	}
}

func TestReconcile_Settles(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()

	p := testutil.NewTestProduct("Widget", 10, 500_00)
	f.productRepo.AddProduct(p)
	o := testutil.NewTestOrder("user-1", p.ID, 2, 500_00, 0)
	f.orderRepo.AddOrder(o)

	res, err := f.reconciler.Execute(ctx, f.signedRequest(t, o, "1000"))

	require.NoError(t, err)
	assert.Equal(t, reconcile.OutcomeSettled, res.Outcome)
	assert.Equal(t, order.StatusCompleted, o.Status)
	// The returned order carries the completed state, not the snapshot read
	// before the transition.
	assert.Equal(t, order.StatusCompleted, res.Order.Status)
	require.NotNil(t, o.GatewayRefID)
	assert.Equal(t, "000XYZ", *o.GatewayRefID)
	assert.Equal(t, 8, f.productRepo.GetProduct(p.ID).StockQuantity)

	// Audit trail and downstream notification both fired.
	assert.Len(t, f.sink.EventsOfType(monitoring.EventAudit), 1)
	require.Len(t, f.notifier.Events(), 1)
	assert.Equal(t, o.TransactionUUID, f.notifier.Events()[0].TransactionUUID)
}

func TestReconcile_RedeliveryIsIdempotent(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()

	p := testutil.NewTestProduct("Widget", 10, 500_00)
	f.productRepo.AddProduct(p)
	o := testutil.NewTestOrder("user-1", p.ID, 2, 500_00, 0)
	f.orderRepo.AddOrder(o)

	req := f.signedRequest(t, o, "1000")
	_, err := f.reconciler.Execute(ctx, req)
	require.NoError(t, err)

	// Identical payload again: ACK, no further stock movement.
	res, err := f.reconciler.Execute(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, reconcile.OutcomeAlreadySettled, res.Outcome)
	assert.Equal(t, 8, f.productRepo.GetProduct(p.ID).StockQuantity)
	assert.Len(t, f.notifier.Events(), 1)
}

func TestReconcile_AmountMismatchRejected(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()

	p := testutil.NewTestProduct("Widget", 10, 500_00)
	f.productRepo.AddProduct(p)
	o := testutil.NewTestOrder("user-1", p.ID, 2, 500_00, 0)
	f.orderRepo.AddOrder(o)

	tests := []string{"999", "1000.01", "999.99", "1001"}
	for _, amount := range tests {
		t.Run(amount, func(t *testing.T) {
			_, err := f.reconciler.Execute(ctx, f.signedRequest(t, o, amount))
			assert.ErrorIs(t, err, domainErrors.ErrAmountMismatch)
		})
	}

	// Mismatches are fatal: PENDING order, no stock movement, no DLQ record.
	assert.Equal(t, order.StatusPending, o.Status)
	assert.Equal(t, 10, f.productRepo.GetProduct(p.ID).StockQuantity)
	assert.Equal(t, 0, f.dlqRepo.Count())
}

func TestReconcile_UnknownTransaction(t *testing.T) {
	f := newFixture(t, true)

	sig, _ := f.signer.Sign("1000", "no-such-txn")
	_, err := f.reconciler.Execute(context.Background(), reconcile.Request{
		Payload: reconcile.WebhookPayload{
			TransactionUUID: "no-such-txn",
			Status:          "COMPLETE",
			TotalAmount:     "1000",
			Signature:       sig,
		},
		RemoteIP:        gatewayIP,
		HeaderTimestamp: fmt.Sprint(time.Now().Unix()),
	})
	assert.ErrorIs(t, err, domainErrors.ErrOrderNotFound)
	assert.Equal(t, 0, f.dlqRepo.Count())
}

func TestReconcile_NonTerminalStatusAcked(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()

	p := testutil.NewTestProduct("Widget", 10, 500_00)
	f.productRepo.AddProduct(p)
	o := testutil.NewTestOrder("user-1", p.ID, 2, 500_00, 0)
	f.orderRepo.AddOrder(o)

	req := f.signedRequest(t, o, "1000")
	req.Payload.Status = "PENDING"

	res, err := f.reconciler.Execute(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, reconcile.OutcomeNonTerminal, res.Outcome)
	assert.Equal(t, order.StatusPending, o.Status)
	assert.Equal(t, 10, f.productRepo.GetProduct(p.ID).StockQuantity)
}

func TestReconcile_SignatureStrict(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()

	p := testutil.NewTestProduct("Widget", 10, 500_00)
	f.productRepo.AddProduct(p)
	o := testutil.NewTestOrder("user-1", p.ID, 2, 500_00, 0)
	f.orderRepo.AddOrder(o)

	t.Run("tampered signature", func(t *testing.T) {
		req := f.signedRequest(t, o, "1000")
		req.Payload.Signature = "dGFtcGVyZWQ="
		_, err := f.reconciler.Execute(ctx, req)
		assert.ErrorIs(t, err, domainErrors.ErrInvalidSignature)
	})

	t.Run("missing signature", func(t *testing.T) {
		req := f.signedRequest(t, o, "1000")
		req.Payload.Signature = ""
		_, err := f.reconciler.Execute(ctx, req)
		assert.ErrorIs(t, err, domainErrors.ErrSignatureRequired)
	})

	assert.Equal(t, order.StatusPending, o.Status)
}

func TestReconcile_SignatureLenientWarnsAndSettles(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	p := testutil.NewTestProduct("Widget", 10, 500_00)
	f.productRepo.AddProduct(p)
	o := testutil.NewTestOrder("user-1", p.ID, 1, 500_00, 0)
	f.orderRepo.AddOrder(o)

	req := f.signedRequest(t, o, "500")
	req.Payload.Signature = ""
	req.RemoteIP = "127.0.0.1"

	res, err := f.reconciler.Execute(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, reconcile.OutcomeSettled, res.Outcome)
}

func TestReconcile_OriginRejectedStrict(t *testing.T) {
	f := newFixture(t, true)

	p := testutil.NewTestProduct("Widget", 10, 500_00)
	f.productRepo.AddProduct(p)
	o := testutil.NewTestOrder("user-1", p.ID, 1, 500_00, 0)
	f.orderRepo.AddOrder(o)

	req := f.signedRequest(t, o, "500")
	req.RemoteIP = "198.51.100.7"

	_, err := f.reconciler.Execute(context.Background(), req)
	assert.ErrorIs(t, err, domainErrors.ErrOriginRejected)
	assert.Equal(t, order.StatusPending, o.Status)
}

func TestReconcile_StaleTimestampStrict(t *testing.T) {
	f := newFixture(t, true)

	p := testutil.NewTestProduct("Widget", 10, 500_00)
	f.productRepo.AddProduct(p)
	o := testutil.NewTestOrder("user-1", p.ID, 1, 500_00, 0)
	f.orderRepo.AddOrder(o)

	req := f.signedRequest(t, o, "500")
	req.HeaderTimestamp = fmt.Sprint(time.Now().Add(-10 * time.Minute).Unix())

	_, err := f.reconciler.Execute(context.Background(), req)
	assert.ErrorIs(t, err, domainErrors.ErrReplayRejected)

	t.Run("missing timestamp", func(t *testing.T) {
		req := f.signedRequest(t, o, "500")
		req.HeaderTimestamp = ""
		_, err := f.reconciler.Execute(context.Background(), req)
		assert.ErrorIs(t, err, domainErrors.ErrReplayRejected)
	})
}

func TestReconcile_StaleTimestampLenientWarnsAndSettles(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	p := testutil.NewTestProduct("Widget", 10, 500_00)
	f.productRepo.AddProduct(p)
	o := testutil.NewTestOrder("user-1", p.ID, 1, 500_00, 0)
	f.orderRepo.AddOrder(o)

	req := f.signedRequest(t, o, "500")
	req.HeaderTimestamp = fmt.Sprint(time.Now().Add(-10 * time.Minute).Unix())

	res, err := f.reconciler.Execute(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, reconcile.OutcomeSettled, res.Outcome)
	assert.Equal(t, order.StatusCompleted, o.Status)
	assert.Equal(t, 9, f.productRepo.GetProduct(p.ID).StockQuantity)

	t.Run("missing timestamp", func(t *testing.T) {
		p2 := testutil.NewTestProduct("Gadget", 5, 300_00)
		f.productRepo.AddProduct(p2)
		o2 := testutil.NewTestOrder("user-2", p2.ID, 1, 300_00, 0)
		f.orderRepo.AddOrder(o2)

		req := f.signedRequest(t, o2, "300")
		req.HeaderTimestamp = ""
		res, err := f.reconciler.Execute(ctx, req)
		require.NoError(t, err)
		assert.Equal(t, reconcile.OutcomeSettled, res.Outcome)
		assert.Equal(t, 4, f.productRepo.GetProduct(p2.ID).StockQuantity)
	})
}

func TestReconcile_FulfillmentFailureDefers(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()

	// Stock shrank between checkout validation and settlement.
	p := testutil.NewTestProduct("Widget", 1, 500_00)
	f.productRepo.AddProduct(p)
	o := testutil.NewTestOrder("user-1", p.ID, 2, 500_00, 0)
	f.orderRepo.AddOrder(o)

	_, err := f.reconciler.Execute(ctx, f.signedRequest(t, o, "1000"))

	require.ErrorIs(t, err, domainErrors.ErrSettlementDeferred)
	// Payment is real money received: COMPLETED sticks, fulfillment retries.
	assert.Equal(t, order.StatusCompleted, o.Status)
	assert.Equal(t, 1, f.productRepo.GetProduct(p.ID).StockQuantity)

	rec, recErr := f.dlqRepo.GetByTransactionUUID(ctx, o.TransactionUUID)
	require.NoError(t, recErr)
	assert.Equal(t, o.ID, rec.OrderID)
	assert.Equal(t, 0, rec.RetryCount)
	assert.Len(t, f.sink.EventsOfType(monitoring.EventPaymentFailure), 1)
}

func TestReconcile_NotifierFailureDoesNotFailSettlement(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()

	p := testutil.NewTestProduct("Widget", 10, 500_00)
	f.productRepo.AddProduct(p)
	o := testutil.NewTestOrder("user-1", p.ID, 1, 500_00, 0)
	f.orderRepo.AddOrder(o)
	f.notifier.Err = fmt.Errorf("stream down")

	res, err := f.reconciler.Execute(ctx, f.signedRequest(t, o, "500"))
	require.NoError(t, err)
	assert.Equal(t, reconcile.OutcomeSettled, res.Outcome)
}

func TestReconcile_ConcurrentDeliveriesSettleOnce(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()

	p := testutil.NewTestProduct("Widget", 100, 500_00)
	f.productRepo.AddProduct(p)
	o := testutil.NewTestOrder("user-1", p.ID, 2, 500_00, 0)
	f.orderRepo.AddOrder(o)

	req := f.signedRequest(t, o, "1000")

	const deliveries = 10
	results := make([]reconcile.Outcome, deliveries)
	var wg sync.WaitGroup
	for i := 0; i < deliveries; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := f.reconciler.Execute(ctx, req)
			if err == nil {
				results[i] = res.Outcome
			}
		}(i)
	}
	wg.Wait()

	settled := 0
	for _, outcome := range results {
		if outcome == reconcile.OutcomeSettled {
			settled++
		}
	}
	assert.Equal(t, 1, settled, "exactly one delivery wins the transition")
	assert.Equal(t, 98, f.productRepo.GetProduct(p.ID).StockQuantity, "stock decremented exactly once")
}
