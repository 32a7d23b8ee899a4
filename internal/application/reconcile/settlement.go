package reconcile

import (
	"context"
	"time"

	"github.com/cassiomorais/checkout/internal/domain/order"
	"github.com/cassiomorais/checkout/internal/infrastructure/observability"
	"github.com/cassiomorais/checkout/internal/monitoring"
	"github.com/cassiomorais/checkout/internal/notification"
	"github.com/rs/zerolog"
)

// Settlement runs the shared settle sequence: flip the order to COMPLETED,
// decrement inventory, write the audit trail and notify downstream. The
// webhook reconciler, the status-check path and the DLQ sweeper all converge
// here.
type Settlement struct {
	orderRepo order.Repository
	settler   *InventorySettler
	notifier  notification.Notifier
	sink      monitoring.Sink
	metrics   *observability.Metrics
	logger    zerolog.Logger
}

func NewSettlement(
	orderRepo order.Repository,
	settler *InventorySettler,
	notifier notification.Notifier,
	sink monitoring.Sink,
	metrics *observability.Metrics,
	logger zerolog.Logger,
) *Settlement {
	return &Settlement{
		orderRepo: orderRepo,
		settler:   settler,
		notifier:  notifier,
		sink:      sink,
		metrics:   metrics,
		logger:    logger.With().Str("component", "settlement").Logger(),
	}
}

// Settle completes and fulfills one order. The bool reports whether this
// caller won the PENDING→COMPLETED transition; false with a nil error means
// another delivery settled the order first and there is nothing to do. An
// error after a won transition is a fulfillment failure on an order whose
// COMPLETED state is already authoritative — the caller routes it to the DLQ,
// never rolls it back.
func (s *Settlement) Settle(ctx context.Context, o *order.Order, gatewayRefID, path string) (bool, error) {
	start := time.Now()

	won, err := s.orderRepo.CompleteIfPending(ctx, o.TransactionUUID, gatewayRefID)
	if err != nil {
		return false, err
	}
	if !won {
		s.logger.Info().
			Str("transaction_uuid", o.TransactionUUID).
			Msg("Order already completed by a concurrent delivery")
		return false, nil
	}

	// The store transition won; the in-memory snapshot must match it, since
	// callers hand this order back to clients.
	if err := o.MarkCompleted(gatewayRefID); err != nil {
		s.logger.Warn().Err(err).
			Str("order_id", o.ID.String()).
			Msg("Snapshot out of step with stored transition")
	}

	if err := s.settler.SettleItems(ctx, o); err != nil {
		return true, err
	}

	s.sink.Emit(ctx, monitoring.Event{
		Type:     monitoring.EventAudit,
		Severity: monitoring.SeverityInfo,
		Message:  "order settled",
		OrderID:  o.ID.String(),
		UserID:   o.UserID,
		Details: map[string]any{
			"transaction_uuid": o.TransactionUUID,
			"gateway_ref_id":   gatewayRefID,
			"total_cents":      o.TotalCents,
			"path":             path,
		},
	})

	if s.metrics != nil {
		s.metrics.SettlementDuration.WithLabelValues(path).Observe(time.Since(start).Seconds())
	}

	// Best-effort: a notification failure never fails the settlement.
	if err := s.notifier.NotifySettled(ctx, notification.SettlementEvent{
		OrderID:         o.ID.String(),
		TransactionUUID: o.TransactionUUID,
		GatewayRefID:    gatewayRefID,
		CustomerEmail:   o.ShippingInfo.Email,
		TotalCents:      o.TotalCents,
		SettledAt:       time.Now(),
	}); err != nil {
		s.logger.Warn().Err(err).
			Str("order_id", o.ID.String()).
			Msg("Settlement notification failed")
	}

	s.logger.Info().
		Str("order_id", o.ID.String()).
		Str("transaction_uuid", o.TransactionUUID).
		Str("path", path).
		Msg("Order settled")
	return true, nil
}
