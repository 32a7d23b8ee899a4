package reconcile

import (
	"context"
	"errors"

	"github.com/cassiomorais/checkout/internal/domain/dlq"
	domainErrors "github.com/cassiomorais/checkout/internal/domain/errors"
	"github.com/cassiomorais/checkout/internal/domain/order"
	"github.com/cassiomorais/checkout/internal/gateway"
	"github.com/rs/zerolog"
)

// StatusCheckUseCase reconciles through the gateway's status-check API rather
// than a signed callback. It serves clients returning from the payment
// redirect: the gateway's answer is authoritative, so no signature or origin
// guard applies, but the settlement path and its idempotency are identical to
// the webhook's.
type StatusCheckUseCase struct {
	orderRepo  order.Repository
	dlqRepo    dlq.Repository
	checker    gateway.StatusChecker
	settlement *Settlement
	deferrer   *Deferrer
	tx         TransactionManager
	logger     zerolog.Logger
}

func NewStatusCheckUseCase(
	orderRepo order.Repository,
	dlqRepo dlq.Repository,
	checker gateway.StatusChecker,
	settlement *Settlement,
	deferrer *Deferrer,
	tx TransactionManager,
	logger zerolog.Logger,
) *StatusCheckUseCase {
	return &StatusCheckUseCase{
		orderRepo:  orderRepo,
		dlqRepo:    dlqRepo,
		checker:    checker,
		settlement: settlement,
		deferrer:   deferrer,
		tx:         tx,
		logger:     logger.With().Str("component", "status_check").Logger(),
	}
}

// Execute verifies one transaction against the gateway and settles it when
// the gateway confirms completion. A terminally failed transaction marks the
// order FAILED instead.
func (uc *StatusCheckUseCase) Execute(ctx context.Context, transactionUUID string) (*Result, error) {
	o, err := uc.orderRepo.GetByTransactionUUID(ctx, transactionUUID)
	if err != nil {
		return nil, err
	}

	if o.IsCompleted() {
		return &Result{Outcome: OutcomeAlreadySettled, Order: o}, nil
	}

	status, err := uc.checker.Check(ctx, transactionUUID, o.TotalCents)
	if err != nil {
		return nil, err
	}

	if gateway.IsTerminalFailure(status.Status) {
		return uc.fail(ctx, o, status.Status)
	}

	if status.Status != gateway.StatusComplete {
		uc.logger.Info().
			Str("transaction_uuid", transactionUUID).
			Str("gateway_status", status.Status).
			Msg("Gateway reports non-terminal status")
		return &Result{Outcome: OutcomeNonTerminal, Order: o}, nil
	}

	won, err := uc.settlement.Settle(ctx, o, status.RefID, "status_check")
	if err != nil {
		return nil, uc.deferrer.Defer(ctx, o, status.Status, o.TotalCents, nilIfEmpty(status.RefID), nil, err)
	}
	if !won {
		return &Result{Outcome: OutcomeAlreadySettled, Order: o}, nil
	}
	return &Result{Outcome: OutcomeSettled, Order: o}, nil
}

// fail marks the order FAILED and drops any queued retry record for it in one
// transaction: the sweeper must never re-drive a transaction the gateway has
// terminally canceled.
func (uc *StatusCheckUseCase) fail(ctx context.Context, o *order.Order, gatewayStatus string) (*Result, error) {
	err := uc.tx.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := uc.orderRepo.MarkFailed(txCtx, o.TransactionUUID); err != nil {
			return err
		}
		if err := uc.dlqRepo.Delete(txCtx, o.TransactionUUID); err != nil &&
			!errors.Is(err, domainErrors.ErrFailedPaymentNotFound) {
			return err
		}
		return nil
	})
	if err != nil {
		// The conditional write loses when a concurrent delivery completed
		// the order between the gateway answer and this write; the store is
		// authoritative.
		if errors.Is(err, domainErrors.ErrOptimisticLockFailed) {
			fresh, lookupErr := uc.orderRepo.GetByTransactionUUID(ctx, o.TransactionUUID)
			if lookupErr == nil && fresh.IsCompleted() {
				return &Result{Outcome: OutcomeAlreadySettled, Order: fresh}, nil
			}
		}
		return nil, err
	}

	if err := o.MarkFailed(); err != nil {
		uc.logger.Warn().Err(err).
			Str("order_id", o.ID.String()).
			Msg("Snapshot out of step with stored transition")
	}

	uc.logger.Info().
		Str("transaction_uuid", o.TransactionUUID).
		Str("gateway_status", gatewayStatus).
		Msg("Order marked failed after terminal gateway status")
	return &Result{Outcome: OutcomeFailed, Order: o}, nil
}
