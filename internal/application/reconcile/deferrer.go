package reconcile

import (
	"context"
	"fmt"
	"time"

	"github.com/cassiomorais/checkout/internal/domain/dlq"
	domainErrors "github.com/cassiomorais/checkout/internal/domain/errors"
	"github.com/cassiomorais/checkout/internal/domain/order"
	"github.com/cassiomorais/checkout/internal/infrastructure/observability"
	"github.com/cassiomorais/checkout/internal/monitoring"
	"github.com/rs/zerolog"
)

// Deferrer converts a failed settlement attempt into a durable DLQ record.
// The payment is verified real by the time a deferral happens; the record
// guarantees the fulfillment is retried rather than dropped.
type Deferrer struct {
	dlqRepo      dlq.Repository
	sink         monitoring.Sink
	metrics      *observability.Metrics
	maxRetries   int
	backoffTiers []time.Duration
	logger       zerolog.Logger
}

func NewDeferrer(
	dlqRepo dlq.Repository,
	sink monitoring.Sink,
	metrics *observability.Metrics,
	maxRetries int,
	backoffTiers []time.Duration,
	logger zerolog.Logger,
) *Deferrer {
	if maxRetries <= 0 {
		maxRetries = dlq.DefaultMaxRetries
	}
	if len(backoffTiers) == 0 {
		backoffTiers = dlq.DefaultBackoffTiers
	}
	return &Deferrer{
		dlqRepo:      dlqRepo,
		sink:         sink,
		metrics:      metrics,
		maxRetries:   maxRetries,
		backoffTiers: backoffTiers,
		logger:       logger.With().Str("component", "deferrer").Logger(),
	}
}

// Defer enqueues (or overwrites) the record for this transaction and returns
// the deferral error the controller maps to a 500, prompting the gateway's
// own redelivery as well.
func (d *Deferrer) Defer(ctx context.Context, o *order.Order, reportedStatus string, amountCents int64, txnCode, signature *string, cause error) error {
	now := time.Now()
	f := dlq.NewFailedPayment(
		o.ID,
		o.UserID,
		o.TransactionUUID,
		amountCents,
		reportedStatus,
		cause.Error(),
		txnCode,
		signature,
		now,
		d.backoffTiers,
	)
	f.MaxRetries = d.maxRetries

	if err := d.dlqRepo.Upsert(ctx, f); err != nil {
		// The DLQ itself is down: nothing durable left, surface loudly and
		// rely on the gateway redelivery.
		d.logger.Error().Err(err).
			Str("transaction_uuid", o.TransactionUUID).
			Msg("Failed to enqueue deferred settlement")
		return fmt.Errorf("%w: %v", domainErrors.ErrSettlementDeferred, cause)
	}

	if d.metrics != nil {
		d.metrics.DLQEnqueued.Inc()
	}
	d.sink.Emit(ctx, monitoring.Event{
		Type:     monitoring.EventPaymentFailure,
		Severity: monitoring.SeverityWarning,
		Message:  "settlement deferred to retry queue",
		OrderID:  o.ID.String(),
		UserID:   o.UserID,
		Details: map[string]any{
			"transaction_uuid": o.TransactionUUID,
			"cause":            cause.Error(),
			"next_retry_at":    f.NextRetryAt,
		},
	})
	d.logger.Error().Err(cause).
		Str("transaction_uuid", o.TransactionUUID).
		Time("next_retry_at", f.NextRetryAt).
		Msg("Settlement deferred")

	return fmt.Errorf("%w: %v", domainErrors.ErrSettlementDeferred, cause)
}
