package reconcile

import (
	"context"
	"fmt"

	"github.com/cassiomorais/checkout/internal/domain/order"
	"github.com/cassiomorais/checkout/internal/domain/product"
	"github.com/cassiomorais/checkout/internal/infrastructure/observability"
	"github.com/cassiomorais/checkout/internal/monitoring"
	"github.com/rs/zerolog"
)

// InventorySettler decrements stock for a settled order's line items. It runs
// at most once per order: callers reach it only through the reconciler's
// idempotency short-circuit or the sweeper's status re-check.
type InventorySettler struct {
	productRepo product.Repository
	sink        monitoring.Sink
	metrics     *observability.Metrics
	logger      zerolog.Logger
}

func NewInventorySettler(
	productRepo product.Repository,
	sink monitoring.Sink,
	metrics *observability.Metrics,
	logger zerolog.Logger,
) *InventorySettler {
	return &InventorySettler{
		productRepo: productRepo,
		sink:        sink,
		metrics:     metrics,
		logger:      logger.With().Str("component", "inventory_settler").Logger(),
	}
}

// SettleItems applies the per-item decrements. The first failing item aborts
// the rest; stock never goes negative and the failing item is never partially
// decremented.
func (s *InventorySettler) SettleItems(ctx context.Context, o *order.Order) error {
	for _, item := range o.Items {
		remaining, err := s.productRepo.DecrementStock(ctx, item.ProductID, item.Quantity)
		if err != nil {
			if s.metrics != nil {
				s.metrics.StockDecrements.WithLabelValues("failed").Inc()
			}
			return fmt.Errorf("settle product %s: %w", item.ProductID, err)
		}
		if s.metrics != nil {
			s.metrics.StockDecrements.WithLabelValues("ok").Inc()
		}

		if remaining == 0 {
			if s.metrics != nil {
				s.metrics.OutOfStockEvents.WithLabelValues(item.ProductID.String()).Inc()
			}
			s.sink.Emit(ctx, monitoring.Event{
				Type:     monitoring.EventStockDepletion,
				Severity: monitoring.SeverityWarning,
				Message:  "product out of stock after settlement",
				OrderID:  o.ID.String(),
				UserID:   o.UserID,
				Details: map[string]any{
					"product_id": item.ProductID.String(),
					"remaining":  remaining,
				},
			})
		} else if remaining <= product.LowStockThreshold {
			if s.metrics != nil {
				s.metrics.LowStockAlerts.WithLabelValues(item.ProductID.String()).Inc()
			}
			s.sink.Emit(ctx, monitoring.Event{
				Type:     monitoring.EventStockDepletion,
				Severity: monitoring.SeverityInfo,
				Message:  "product stock running low",
				OrderID:  o.ID.String(),
				UserID:   o.UserID,
				Details: map[string]any{
					"product_id": item.ProductID.String(),
					"remaining":  remaining,
				},
			})
		}

		s.logger.Debug().
			Str("product_id", item.ProductID.String()).
			Int("quantity", item.Quantity).
			Int("remaining", remaining).
			Msg("Stock decremented")
	}
	return nil
}
