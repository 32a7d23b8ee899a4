// Package notification publishes post-settlement events for downstream
// consumers (email rendering, analytics). Delivery is fire-and-forget:
// a publish failure is logged and never fails a settlement.
package notification

import (
	"context"
	"time"
)

// SettlementEvent describes a successfully settled order.
type SettlementEvent struct {
	OrderID         string    `json:"order_id"`
	TransactionUUID string    `json:"transaction_uuid"`
	GatewayRefID    string    `json:"gateway_ref_id"`
	CustomerEmail   string    `json:"customer_email"`
	TotalCents      int64     `json:"total_cents"`
	SettledAt       time.Time `json:"settled_at"`
}

// Notifier delivers settlement events to interested consumers.
type Notifier interface {
	NotifySettled(ctx context.Context, event SettlementEvent) error
}
