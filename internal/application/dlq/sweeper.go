package dlq

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/cassiomorais/checkout/internal/application/reconcile"
	"github.com/cassiomorais/checkout/internal/domain/dlq"
	"github.com/cassiomorais/checkout/internal/domain/order"
	"github.com/cassiomorais/checkout/internal/gateway"
	"github.com/cassiomorais/checkout/internal/infrastructure/observability"
	"github.com/cassiomorais/checkout/internal/monitoring"
	"github.com/rs/zerolog"
)

// Clock abstracts time for deterministic scheduling tests.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock is the production clock.
var SystemClock Clock = systemClock{}

// Lease is the cross-instance mutual exclusion for sweep cycles. A nil lease
// means single-instance deployment; the process-local guard still applies.
type Lease interface {
	Acquire(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}

// Sweeper re-drives failed settlements on a fixed interval. Each cycle takes
// a bounded batch of due records, re-verifies each with the gateway's
// status-check API and runs the normal settlement sequence on confirmed
// completions.
type Sweeper struct {
	dlqRepo    dlq.Repository
	orderRepo  order.Repository
	checker    gateway.StatusChecker
	settlement *reconcile.Settlement
	sink       monitoring.Sink
	metrics    *observability.Metrics
	clock      Clock
	lease      Lease
	logger     zerolog.Logger

	batchSize    int
	backoffTiers []time.Duration

	// sweeping is the process-local single-flight guard: a slow batch must
	// not overlap the next tick.
	sweeping atomic.Bool
}

func NewSweeper(
	dlqRepo dlq.Repository,
	orderRepo order.Repository,
	checker gateway.StatusChecker,
	settlement *reconcile.Settlement,
	sink monitoring.Sink,
	metrics *observability.Metrics,
	clock Clock,
	lease Lease,
	batchSize int,
	backoffTiers []time.Duration,
	logger zerolog.Logger,
) *Sweeper {
	if clock == nil {
		clock = SystemClock
	}
	if batchSize <= 0 {
		batchSize = 10
	}
	if len(backoffTiers) == 0 {
		backoffTiers = dlq.DefaultBackoffTiers
	}
	return &Sweeper{
		dlqRepo:      dlqRepo,
		orderRepo:    orderRepo,
		checker:      checker,
		settlement:   settlement,
		sink:         sink,
		metrics:      metrics,
		clock:        clock,
		lease:        lease,
		batchSize:    batchSize,
		backoffTiers: backoffTiers,
		logger:       logger.With().Str("component", "dlq_sweeper").Logger(),
	}
}

// Run sweeps on the given interval until the context is cancelled.
func (s *Sweeper) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info().Dur("interval", interval).Msg("DLQ sweeper started")
	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("DLQ sweeper stopped")
			return ctx.Err()
		case <-ticker.C:
			if err := s.Sweep(ctx); err != nil {
				s.logger.Error().Err(err).Msg("Sweep cycle failed")
			}
		}
	}
}

// Sweep runs one cycle. Overlapping calls and cycles lost to another
// instance's lease are skipped, not queued.
func (s *Sweeper) Sweep(ctx context.Context) error {
	if !s.sweeping.CompareAndSwap(false, true) {
		s.countSweep("overlap_skipped")
		return nil
	}
	defer s.sweeping.Store(false)

	if s.lease != nil {
		acquired, err := s.lease.Acquire(ctx)
		if err != nil {
			s.countSweep("lease_error")
			return fmt.Errorf("acquire sweep lease: %w", err)
		}
		if !acquired {
			s.countSweep("lease_held")
			return nil
		}
		defer func() {
			if err := s.lease.Release(ctx); err != nil {
				s.logger.Warn().Err(err).Msg("Failed to release sweep lease")
			}
		}()
	}

	now := s.clock.Now()
	due, err := s.dlqRepo.GetDue(ctx, now, s.batchSize)
	if err != nil {
		s.countSweep("error")
		return fmt.Errorf("load due records: %w", err)
	}

	for _, f := range due {
		s.retry(ctx, f)
	}

	if stats, err := s.dlqRepo.Stats(ctx, now); err == nil && s.metrics != nil {
		s.metrics.DLQDepth.Set(float64(stats.Total))
	}

	s.countSweep("ok")
	if len(due) > 0 {
		s.logger.Info().Int("batch", len(due)).Msg("Sweep cycle finished")
	}
	return nil
}

// retry re-attempts one record.
func (s *Sweeper) retry(ctx context.Context, f *dlq.FailedPayment) {
	logger := s.logger.With().
		Str("transaction_uuid", f.TransactionUUID).
		Int("retry_count", f.RetryCount).
		Logger()

	o, err := s.orderRepo.GetByTransactionUUID(ctx, f.TransactionUUID)
	if err != nil {
		s.recordFailure(ctx, f, fmt.Errorf("load order: %w", err))
		return
	}

	// Another path settled the order while this record waited.
	if o.IsCompleted() {
		if err := s.dlqRepo.Delete(ctx, f.TransactionUUID); err != nil {
			logger.Warn().Err(err).Msg("Failed to delete stale DLQ record")
			return
		}
		s.countRetry("already_completed")
		logger.Info().Msg("Order settled elsewhere, DLQ record dropped")
		return
	}

	status, err := s.checker.Check(ctx, f.TransactionUUID, o.TotalCents)
	if err != nil {
		s.recordFailure(ctx, f, fmt.Errorf("gateway status check: %w", err))
		return
	}
	if status.Status != gateway.StatusComplete {
		s.recordFailure(ctx, f, fmt.Errorf("gateway reports status %q", status.Status))
		return
	}

	won, err := s.settlement.Settle(ctx, o, status.RefID, "sweeper")
	if err != nil {
		s.recordFailure(ctx, f, err)
		return
	}
	if err := s.dlqRepo.Delete(ctx, f.TransactionUUID); err != nil {
		logger.Warn().Err(err).Msg("Settled but failed to delete DLQ record")
		return
	}
	if won {
		s.countRetry("recovered")
		logger.Info().Msg("Deferred settlement recovered")
	} else {
		s.countRetry("already_completed")
	}
}

// recordFailure advances the record along the backoff tiers, raising a
// critical alert when it hits the ceiling. Exhausted records are retained for
// operator inspection, never deleted automatically.
func (s *Sweeper) recordFailure(ctx context.Context, f *dlq.FailedPayment, cause error) {
	now := s.clock.Now()
	f.RecordFailure(cause.Error(), now, s.backoffTiers)

	if err := s.dlqRepo.Update(ctx, f); err != nil {
		s.logger.Error().Err(err).
			Str("transaction_uuid", f.TransactionUUID).
			Msg("Failed to persist retry failure")
		return
	}
	s.countRetry("failed")

	if f.Exhausted() {
		if s.metrics != nil {
			s.metrics.DLQExhausted.Inc()
		}
		s.sink.Emit(ctx, monitoring.Event{
			Type:     monitoring.EventPaymentFailure,
			Severity: monitoring.SeverityCritical,
			Message:  "settlement retries exhausted, operator action required",
			OrderID:  f.OrderID.String(),
			UserID:   f.UserID,
			Details: map[string]any{
				"transaction_uuid": f.TransactionUUID,
				"retry_count":      f.RetryCount,
				"last_error":       f.LastError,
			},
		})
		s.logger.Error().
			Str("transaction_uuid", f.TransactionUUID).
			Str("last_error", f.LastError).
			Msg("DLQ record exhausted")
		return
	}

	s.logger.Warn().Err(cause).
		Str("transaction_uuid", f.TransactionUUID).
		Time("next_retry_at", f.NextRetryAt).
		Msg("Retry failed, rescheduled")
}

// ManualRetry rearms a record for the next sweep. Exhausted records need the
// operator override.
func (s *Sweeper) ManualRetry(ctx context.Context, transactionUUID string, force bool) (*dlq.FailedPayment, error) {
	f, err := s.dlqRepo.GetByTransactionUUID(ctx, transactionUUID)
	if err != nil {
		return nil, err
	}
	if err := f.Reset(s.clock.Now(), force); err != nil {
		return nil, err
	}
	if err := s.dlqRepo.Update(ctx, f); err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.DLQRetries.WithLabelValues("manual").Inc()
	}
	s.logger.Info().
		Str("transaction_uuid", transactionUUID).
		Bool("force", force).
		Msg("DLQ record rearmed for retry")
	return f, nil
}

// Stats exposes queue statistics for the admin endpoint.
func (s *Sweeper) Stats(ctx context.Context) (*dlq.Stats, error) {
	return s.dlqRepo.Stats(ctx, s.clock.Now())
}

func (s *Sweeper) countSweep(result string) {
	if s.metrics != nil {
		s.metrics.SweepRuns.WithLabelValues(result).Inc()
	}
}

func (s *Sweeper) countRetry(result string) {
	if s.metrics != nil {
		s.metrics.DLQRetries.WithLabelValues(result).Inc()
	}
}
