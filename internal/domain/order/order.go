package order

import (
	"time"

	"github.com/cassiomorais/checkout/internal/domain/errors"
	"github.com/google/uuid"
)

// OrderStatus represents the payment status of an order in the state machine
type OrderStatus string

const (
	StatusPending   OrderStatus = "PENDING"
	StatusCompleted OrderStatus = "COMPLETED"
	StatusDelivered OrderStatus = "DELIVERED"
	StatusFailed    OrderStatus = "FAILED"
)

// DeliveryStatus is the fulfillment axis, independent from payment status
type DeliveryStatus string

const (
	DeliveryPending   DeliveryStatus = "PENDING"
	DeliveryShipped   DeliveryStatus = "SHIPPED"
	DeliveryDelivered DeliveryStatus = "DELIVERED"
	DeliveryCancelled DeliveryStatus = "CANCELLED"
)

// Item is one ordered line item with the unit price snapshotted at order time.
type Item struct {
	ProductID  uuid.UUID
	Quantity   int
	PriceCents int64
}

// ShippingInfo is the destination snapshot taken at checkout.
type ShippingInfo struct {
	Name       string
	Email      string
	Phone      string
	Address    string
	City       string
	Province   string
	PostalCode string
}

// Order represents one purchase attempt. TransactionUUID is the sole join key
// between the storefront order and the gateway's asynchronous callback.
type Order struct {
	ID              uuid.UUID
	UserID          string
	Items           []Item
	TransactionUUID string
	GatewayRefID    *string
	SubtotalCents   int64
	ShippingCents   int64
	TaxCents        int64
	TotalCents      int64
	Status          OrderStatus
	DeliveryStatus  DeliveryStatus
	ShippingInfo    ShippingInfo
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// New creates a PENDING order with a fresh transaction UUID. The monetary
// fields are write-once: total must equal subtotal + shipping (subtotal is
// tax-inclusive).
func New(userID string, items []Item, shipping ShippingInfo, subtotalCents, shippingCents, taxCents int64) (*Order, error) {
	if userID == "" {
		return nil, errors.NewValidationError("userId", "cannot be empty")
	}
	if len(items) == 0 {
		return nil, errors.NewValidationError("items", "order must contain at least one item")
	}
	if subtotalCents <= 0 {
		return nil, errors.NewValidationError("subtotal", "must be greater than 0")
	}
	if shippingCents < 0 {
		return nil, errors.NewValidationError("shippingCharge", "cannot be negative")
	}

	now := time.Now()
	return &Order{
		ID:              uuid.New(),
		UserID:          userID,
		Items:           items,
		TransactionUUID: uuid.New().String(),
		SubtotalCents:   subtotalCents,
		ShippingCents:   shippingCents,
		TaxCents:        taxCents,
		TotalCents:      subtotalCents + shippingCents,
		Status:          StatusPending,
		DeliveryStatus:  DeliveryPending,
		ShippingInfo:    shipping,
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}

// CanTransitionTo checks if the order can transition to the given status
func (o *Order) CanTransitionTo(newStatus OrderStatus) bool {
	transitions := map[OrderStatus][]OrderStatus{
		StatusPending: {
			StatusCompleted,
			StatusFailed,
		},
		StatusCompleted: {
			StatusDelivered,
		},
		StatusDelivered: {}, // Terminal state
		StatusFailed:    {}, // Terminal state
	}

	allowed, exists := transitions[o.Status]
	if !exists {
		return false
	}
	for _, s := range allowed {
		if s == newStatus {
			return true
		}
	}
	return false
}

// MarkCompleted transitions the order to COMPLETED and records the gateway
// settlement reference. Re-applying it to an already-completed order is a
// no-op, not an error: gateways routinely redeliver webhooks.
func (o *Order) MarkCompleted(gatewayRefID string) error {
	if o.Status == StatusCompleted {
		return nil
	}
	if !o.CanTransitionTo(StatusCompleted) {
		return errors.NewDomainError(
			"invalid_transition",
			"cannot transition from "+string(o.Status)+" to "+string(StatusCompleted),
			errors.ErrInvalidStateTransition,
		)
	}
	o.Status = StatusCompleted
	if gatewayRefID != "" {
		o.GatewayRefID = &gatewayRefID
	}
	o.UpdatedAt = time.Now()
	return nil
}

// MarkFailed transitions the order to FAILED.
func (o *Order) MarkFailed() error {
	if !o.CanTransitionTo(StatusFailed) {
		return errors.NewDomainError(
			"invalid_transition",
			"cannot transition from "+string(o.Status)+" to "+string(StatusFailed),
			errors.ErrInvalidStateTransition,
		)
	}
	o.Status = StatusFailed
	o.UpdatedAt = time.Now()
	return nil
}

// SetDeliveryStatus updates the fulfillment axis. Any value is reachable from
// any other; the delivery flow is operator-driven.
func (o *Order) SetDeliveryStatus(s DeliveryStatus) error {
	switch s {
	case DeliveryPending, DeliveryShipped, DeliveryDelivered, DeliveryCancelled:
		o.DeliveryStatus = s
		o.UpdatedAt = time.Now()
		return nil
	default:
		return errors.NewValidationError("deliveryStatus", "must be one of PENDING, SHIPPED, DELIVERED, CANCELLED")
	}
}

// IsCompleted reports whether payment settled for this order.
func (o *Order) IsCompleted() bool {
	return o.Status == StatusCompleted || o.Status == StatusDelivered
}
