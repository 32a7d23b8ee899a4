package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/cassiomorais/checkout/internal/domain/dlq"
	domainErrors "github.com/cassiomorais/checkout/internal/domain/errors"
	"github.com/cassiomorais/checkout/internal/domain/order"
	"github.com/cassiomorais/checkout/internal/domain/product"
	"github.com/cassiomorais/checkout/internal/gateway"
	"github.com/cassiomorais/checkout/internal/monitoring"
	"github.com/cassiomorais/checkout/internal/notification"
	"github.com/google/uuid"
)

// --- Order Repository Mock ---

// MockOrderRepository is a mock implementation of order.Repository.
type MockOrderRepository struct {
	mu     sync.Mutex
	orders map[uuid.UUID]*order.Order
	byTxn  map[string]*order.Order

	CreateFunc               func(ctx context.Context, o *order.Order) error
	GetByIDFunc              func(ctx context.Context, id uuid.UUID) (*order.Order, error)
	GetByTransactionUUIDFunc func(ctx context.Context, txnUUID string) (*order.Order, error)
	CompleteIfPendingFunc    func(ctx context.Context, txnUUID, gatewayRefID string) (bool, error)
	MarkFailedFunc           func(ctx context.Context, txnUUID string) error
	UpdateDeliveryStatusFunc func(ctx context.Context, id uuid.UUID, status order.DeliveryStatus) error
}

func NewMockOrderRepository() *MockOrderRepository {
	return &MockOrderRepository{
		orders: make(map[uuid.UUID]*order.Order),
		byTxn:  make(map[string]*order.Order),
	}
}

// Count reports how many orders the mock holds.
func (m *MockOrderRepository) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.orders)
}

// AddOrder seeds an order directly, bypassing Create.
func (m *MockOrderRepository) AddOrder(o *order.Order) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orders[o.ID] = o
	m.byTxn[o.TransactionUUID] = o
}

func (m *MockOrderRepository) Create(ctx context.Context, o *order.Order) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, o)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.byTxn[o.TransactionUUID]; exists {
		return domainErrors.ErrDuplicateTransaction
	}
	m.orders[o.ID] = o
	m.byTxn[o.TransactionUUID] = o
	return nil
}

func (m *MockOrderRepository) GetByID(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, domainErrors.ErrOrderNotFound
	}
	cp := *o
	return &cp, nil
}

func (m *MockOrderRepository) GetByTransactionUUID(ctx context.Context, txnUUID string) (*order.Order, error) {
	if m.GetByTransactionUUIDFunc != nil {
		return m.GetByTransactionUUIDFunc(ctx, txnUUID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.byTxn[txnUUID]
	if !ok {
		return nil, domainErrors.ErrOrderNotFound
	}
	cp := *o
	return &cp, nil
}

func (m *MockOrderRepository) CompleteIfPending(ctx context.Context, txnUUID, gatewayRefID string) (bool, error) {
	if m.CompleteIfPendingFunc != nil {
		return m.CompleteIfPendingFunc(ctx, txnUUID, gatewayRefID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.byTxn[txnUUID]
	if !ok {
		return false, domainErrors.ErrOrderNotFound
	}
	if o.Status != order.StatusPending {
		return false, nil
	}
	o.Status = order.StatusCompleted
	if gatewayRefID != "" && o.GatewayRefID == nil {
		o.GatewayRefID = &gatewayRefID
	}
	o.UpdatedAt = time.Now()
	return true, nil
}

func (m *MockOrderRepository) MarkFailed(ctx context.Context, txnUUID string) error {
	if m.MarkFailedFunc != nil {
		return m.MarkFailedFunc(ctx, txnUUID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.byTxn[txnUUID]
	if !ok {
		return domainErrors.ErrOrderNotFound
	}
	if o.Status != order.StatusPending {
		return domainErrors.ErrOptimisticLockFailed
	}
	o.Status = order.StatusFailed
	return nil
}

func (m *MockOrderRepository) UpdateDeliveryStatus(ctx context.Context, id uuid.UUID, status order.DeliveryStatus) error {
	if m.UpdateDeliveryStatusFunc != nil {
		return m.UpdateDeliveryStatusFunc(ctx, id, status)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return domainErrors.ErrOrderNotFound
	}
	o.DeliveryStatus = status
	return nil
}

// --- Product Repository Mock ---

// MockProductRepository is a mock implementation of product.Repository.
type MockProductRepository struct {
	mu       sync.Mutex
	products map[uuid.UUID]*product.Product

	GetByIDFunc        func(ctx context.Context, id uuid.UUID) (*product.Product, error)
	DecrementStockFunc func(ctx context.Context, id uuid.UUID, qty int) (int, error)
}

func NewMockProductRepository() *MockProductRepository {
	return &MockProductRepository{products: make(map[uuid.UUID]*product.Product)}
}

func (m *MockProductRepository) AddProduct(p *product.Product) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.products[p.ID] = p
}

func (m *MockProductRepository) GetProduct(id uuid.UUID) *product.Product {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.products[id]
}

func (m *MockProductRepository) GetByID(ctx context.Context, id uuid.UUID) (*product.Product, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[id]
	if !ok {
		return nil, domainErrors.ErrProductNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *MockProductRepository) DecrementStock(ctx context.Context, id uuid.UUID, qty int) (int, error) {
	if m.DecrementStockFunc != nil {
		return m.DecrementStockFunc(ctx, id, qty)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[id]
	if !ok {
		return 0, domainErrors.ErrProductNotFound
	}
	if p.StockQuantity < qty {
		return 0, domainErrors.ErrInsufficientStock
	}
	p.StockQuantity -= qty
	if p.StockQuantity == 0 {
		p.Status = product.StatusOutOfStock
	}
	return p.StockQuantity, nil
}

// --- Shipping Repository Mock ---

// MockShippingRepository is a mock implementation of shipping.Repository.
type MockShippingRepository struct {
	mu      sync.Mutex
	charges map[string]int64

	ChargeForCityFunc func(ctx context.Context, city string) (int64, error)
}

func NewMockShippingRepository() *MockShippingRepository {
	return &MockShippingRepository{charges: make(map[string]int64)}
}

func (m *MockShippingRepository) SetCharge(city string, cents int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.charges[city] = cents
}

func (m *MockShippingRepository) ChargeForCity(ctx context.Context, city string) (int64, error) {
	if m.ChargeForCityFunc != nil {
		return m.ChargeForCityFunc(ctx, city)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.charges[city], nil
}

// --- DLQ Repository Mock ---

// MockDLQRepository is a mock implementation of dlq.Repository.
type MockDLQRepository struct {
	mu      sync.Mutex
	records map[string]*dlq.FailedPayment

	UpsertFunc func(ctx context.Context, f *dlq.FailedPayment) error
	GetDueFunc func(ctx context.Context, now time.Time, limit int) ([]*dlq.FailedPayment, error)
	UpdateFunc func(ctx context.Context, f *dlq.FailedPayment) error
	DeleteFunc func(ctx context.Context, txnUUID string) error
}

func NewMockDLQRepository() *MockDLQRepository {
	return &MockDLQRepository{records: make(map[string]*dlq.FailedPayment)}
}

func (m *MockDLQRepository) AddRecord(f *dlq.FailedPayment) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[f.TransactionUUID] = f
}

func (m *MockDLQRepository) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

func (m *MockDLQRepository) Upsert(ctx context.Context, f *dlq.FailedPayment) error {
	if m.UpsertFunc != nil {
		return m.UpsertFunc(ctx, f)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[f.TransactionUUID] = f
	return nil
}

func (m *MockDLQRepository) GetByTransactionUUID(ctx context.Context, txnUUID string) (*dlq.FailedPayment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.records[txnUUID]
	if !ok {
		return nil, domainErrors.ErrFailedPaymentNotFound
	}
	return f, nil
}

func (m *MockDLQRepository) GetDue(ctx context.Context, now time.Time, limit int) ([]*dlq.FailedPayment, error) {
	if m.GetDueFunc != nil {
		return m.GetDueFunc(ctx, now, limit)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var due []*dlq.FailedPayment
	for _, f := range m.records {
		if f.Due(now) {
			due = append(due, f)
		}
		if len(due) == limit {
			break
		}
	}
	return due, nil
}

func (m *MockDLQRepository) Update(ctx context.Context, f *dlq.FailedPayment) error {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, f)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[f.TransactionUUID]; !ok {
		return domainErrors.ErrFailedPaymentNotFound
	}
	m.records[f.TransactionUUID] = f
	return nil
}

func (m *MockDLQRepository) Delete(ctx context.Context, txnUUID string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, txnUUID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[txnUUID]; !ok {
		return domainErrors.ErrFailedPaymentNotFound
	}
	delete(m.records, txnUUID)
	return nil
}

func (m *MockDLQRepository) Stats(ctx context.Context, now time.Time) (*dlq.Stats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := &dlq.Stats{Total: int64(len(m.records))}
	for _, f := range m.records {
		if f.Exhausted() {
			s.Exhausted++
			continue
		}
		s.Pending++
		if f.Due(now) {
			s.Due++
		}
	}
	return s, nil
}

// --- Transaction Manager Mock ---

// MockTransactionManager runs the callback directly; tests that care about
// rollback behavior override WithTransactionFunc.
type MockTransactionManager struct {
	WithTransactionFunc func(ctx context.Context, fn func(ctx context.Context) error) error
}

func NewMockTransactionManager() *MockTransactionManager {
	return &MockTransactionManager{}
}

func (m *MockTransactionManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if m.WithTransactionFunc != nil {
		return m.WithTransactionFunc(ctx, fn)
	}
	return fn(ctx)
}

// --- Gateway Status Checker Mock ---

// MockStatusChecker is a mock implementation of gateway.StatusChecker.
type MockStatusChecker struct {
	mu    sync.Mutex
	calls int

	CheckFunc func(ctx context.Context, transactionUUID string, totalCents int64) (*gateway.StatusResult, error)
}

func NewMockStatusChecker() *MockStatusChecker {
	return &MockStatusChecker{}
}

func (m *MockStatusChecker) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func (m *MockStatusChecker) Check(ctx context.Context, transactionUUID string, totalCents int64) (*gateway.StatusResult, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if m.CheckFunc != nil {
		return m.CheckFunc(ctx, transactionUUID, totalCents)
	}
	return &gateway.StatusResult{
		Status:          gateway.StatusComplete,
		RefID:           "MOCK-REF",
		TransactionUUID: transactionUUID,
	}, nil
}

// --- Notifier Mock ---

// MockNotifier records settlement notifications.
type MockNotifier struct {
	mu     sync.Mutex
	Err    error
	events []notification.SettlementEvent
}

func NewMockNotifier() *MockNotifier {
	return &MockNotifier{}
}

func (m *MockNotifier) NotifySettled(ctx context.Context, event notification.SettlementEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.events = append(m.events, event)
	return nil
}

func (m *MockNotifier) Events() []notification.SettlementEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]notification.SettlementEvent(nil), m.events...)
}

// --- Monitoring Sink Mock ---

// MockSink records emitted monitoring events.
type MockSink struct {
	mu     sync.Mutex
	events []monitoring.Event
}

func NewMockSink() *MockSink {
	return &MockSink{}
}

func (m *MockSink) Emit(_ context.Context, event monitoring.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
}

func (m *MockSink) Events() []monitoring.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]monitoring.Event(nil), m.events...)
}

// EventsOfType filters recorded events by type.
func (m *MockSink) EventsOfType(eventType string) []monitoring.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []monitoring.Event
	for _, e := range m.events {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}

// --- Fake Clock ---

// FakeClock is a settable clock for deterministic scheduling tests.
type FakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func NewFakeClock(now time.Time) *FakeClock {
	return &FakeClock{now: now}
}

func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func (c *FakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}
