package reconcile

import (
	"context"
	"fmt"
	"strings"
	"time"

	domainErrors "github.com/cassiomorais/checkout/internal/domain/errors"
	"github.com/cassiomorais/checkout/internal/domain/money"
	"github.com/cassiomorais/checkout/internal/domain/order"
	"github.com/cassiomorais/checkout/internal/gateway"
	"github.com/cassiomorais/checkout/internal/infrastructure/observability"
	"github.com/cassiomorais/checkout/internal/monitoring"
	"github.com/rs/zerolog"
)

// WebhookPayload is the parsed gateway callback.
type WebhookPayload struct {
	TransactionUUID string
	TransactionCode string
	Status          string
	TotalAmount     string
	Signature       string
	Timestamp       string
}

// Request pairs the payload with transport facts the guards need.
type Request struct {
	Payload WebhookPayload
	// RemoteIP is the caller address after proxy-header resolution.
	RemoteIP string
	// HeaderTimestamp is the X-Gateway-Timestamp header; the body timestamp
	// is the fallback.
	HeaderTimestamp string
}

// Outcome labels the terminal result of a reconciliation.
type Outcome string

const (
	// OutcomeSettled means this delivery won the transition and fulfilled
	// the order.
	OutcomeSettled Outcome = "settled"
	// OutcomeAlreadySettled acknowledges a redelivery for a completed order.
	OutcomeAlreadySettled Outcome = "already_settled"
	// OutcomeNonTerminal acknowledges a callback whose reported status is
	// not COMPLETE; no mutation happens.
	OutcomeNonTerminal Outcome = "non_terminal"
	// OutcomeFailed means the gateway reported a terminal failure and the
	// order was marked FAILED.
	OutcomeFailed Outcome = "failed"
)

// Result is the success response of a reconciliation.
type Result struct {
	Outcome Outcome
	Order   *order.Order
}

// Reconciler drives one webhook delivery through origin, freshness,
// authentication and amount verification, then settlement.
type Reconciler struct {
	guard      *Guard
	signer     *gateway.Signer
	orderRepo  order.Repository
	settlement *Settlement
	deferrer   *Deferrer
	sink       monitoring.Sink
	metrics    *observability.Metrics
	strict     bool
	logger     zerolog.Logger
}

func NewReconciler(
	guard *Guard,
	signer *gateway.Signer,
	orderRepo order.Repository,
	settlement *Settlement,
	deferrer *Deferrer,
	sink monitoring.Sink,
	metrics *observability.Metrics,
	strict bool,
	logger zerolog.Logger,
) *Reconciler {
	return &Reconciler{
		guard:      guard,
		signer:     signer,
		orderRepo:  orderRepo,
		settlement: settlement,
		deferrer:   deferrer,
		sink:       sink,
		metrics:    metrics,
		strict:     strict,
		logger:     logger.With().Str("component", "reconciler").Logger(),
	}
}

// Execute reconciles one webhook delivery. Rejections before authentication
// surface directly and never reach the DLQ; failures after the order is
// known and verified are durably deferred.
func (r *Reconciler) Execute(ctx context.Context, req Request) (*Result, error) {
	p := req.Payload
	if p.TransactionUUID == "" {
		return nil, domainErrors.NewValidationError("transaction_uuid", "cannot be empty")
	}

	if err := r.guard.CheckOrigin(req.RemoteIP); err != nil {
		r.countOutcome("rejected_origin")
		return nil, err
	}

	timestamp := req.HeaderTimestamp
	if timestamp == "" {
		timestamp = p.Timestamp
	}
	if err := r.guard.CheckFreshness(timestamp, time.Now()); err != nil {
		r.countOutcome("rejected_stale")
		return nil, err
	}

	return r.reconcile(ctx, p)
}

func (r *Reconciler) reconcile(ctx context.Context, p WebhookPayload) (res *Result, err error) {
	o, err := r.orderRepo.GetByTransactionUUID(ctx, p.TransactionUUID)
	if err != nil {
		r.countOutcome("rejected_unknown")
		return nil, err
	}

	// Origin and freshness passed and the order is known: from here any
	// unexpected panic is converted into a durable deferral instead of
	// losing the payment.
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error().
				Interface("panic", rec).
				Str("transaction_uuid", p.TransactionUUID).
				Msg("Panic during reconciliation")
			res = nil
			err = r.deferWebhook(ctx, o, p, o.TotalCents, fmt.Errorf("panic: %v", rec))
		}
	}()

	// A non-terminal gateway status is not an error, just not actionable yet.
	if !strings.EqualFold(p.Status, gateway.StatusComplete) {
		r.countOutcome("non_terminal")
		return &Result{Outcome: OutcomeNonTerminal, Order: o}, nil
	}

	// Idempotency short-circuit: redeliveries for a settled order ACK
	// without touching stock.
	if o.IsCompleted() {
		r.countOutcome("already_settled")
		return &Result{Outcome: OutcomeAlreadySettled, Order: o}, nil
	}

	if !r.signer.Verify(p.TotalAmount, p.TransactionUUID, p.Signature) {
		if r.strict {
			r.countOutcome("rejected_signature")
			if p.Signature == "" {
				return nil, domainErrors.ErrSignatureRequired
			}
			return nil, domainErrors.ErrInvalidSignature
		}
		r.logger.Warn().
			Str("transaction_uuid", p.TransactionUUID).
			Msg("Accepting webhook with missing or invalid signature (strict mode off)")
	}

	reported, err := money.ParseAmount(p.TotalAmount)
	if err != nil {
		r.countOutcome("rejected_malformed")
		return nil, domainErrors.NewValidationError("total_amount", "not a valid amount")
	}
	if reported != o.TotalCents {
		r.countOutcome("rejected_amount")
		if r.metrics != nil {
			r.metrics.AmountMismatches.Inc()
		}
		r.sink.Emit(ctx, monitoring.Event{
			Type:     monitoring.EventPaymentFailure,
			Severity: monitoring.SeverityWarning,
			Message:  "webhook amount does not match stored order total",
			OrderID:  o.ID.String(),
			UserID:   o.UserID,
			Details: map[string]any{
				"transaction_uuid": p.TransactionUUID,
				"reported_cents":   reported,
				"stored_cents":     o.TotalCents,
			},
		})
		return nil, domainErrors.ErrAmountMismatch
	}

	won, err := r.settlement.Settle(ctx, o, p.TransactionCode, "webhook")
	if err != nil {
		// Whether the transition was won or the write itself hiccuped, the
		// payment is verified real: defer, never drop.
		return nil, r.deferWebhook(ctx, o, p, reported, err)
	}
	if !won {
		r.countOutcome("already_settled")
		return &Result{Outcome: OutcomeAlreadySettled, Order: o}, nil
	}

	r.countOutcome("settled")
	return &Result{Outcome: OutcomeSettled, Order: o}, nil
}

func (r *Reconciler) deferWebhook(ctx context.Context, o *order.Order, p WebhookPayload, amountCents int64, cause error) error {
	r.countOutcome("deferred")
	return r.deferrer.Defer(ctx, o, p.Status, amountCents, nilIfEmpty(p.TransactionCode), nilIfEmpty(p.Signature), cause)
}

func (r *Reconciler) countOutcome(outcome string) {
	if r.metrics != nil {
		r.metrics.WebhookOutcomes.WithLabelValues(outcome).Inc()
	}
}

func nilIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
