// Package monitoring carries operational events that need operator
// attention: payment failures, stock depletion, reconciliation audits.
package monitoring

import "context"

// Event types.
const (
	EventPaymentFailure = "PAYMENT_FAILURE"
	EventStockDepletion = "STOCK_DEPLETION"
	EventAudit          = "AUDIT"
)

// Severities.
const (
	SeverityInfo     = "INFO"
	SeverityWarning  = "WARNING"
	SeverityCritical = "CRITICAL"
)

// Event is a structured operational event.
type Event struct {
	Type     string
	Severity string
	Message  string
	OrderID  string
	UserID   string
	Details  map[string]any
}

// Sink receives operational events. Emit must never fail the business
// operation that produced the event.
type Sink interface {
	Emit(ctx context.Context, event Event)
}
