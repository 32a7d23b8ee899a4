package order

import (
	"context"

	"github.com/google/uuid"
)

// Repository persists orders. The backing store must enforce uniqueness of
// TransactionUUID and provide per-row atomic conditional writes; no
// cross-document transaction is assumed.
type Repository interface {
	// Create inserts a new order. A second insert with the same transaction
	// UUID fails with ErrDuplicateTransaction.
	Create(ctx context.Context, o *Order) error

	GetByID(ctx context.Context, id uuid.UUID) (*Order, error)

	// GetByTransactionUUID resolves the webhook join key.
	GetByTransactionUUID(ctx context.Context, txnUUID string) (*Order, error)

	// CompleteIfPending atomically flips the order to COMPLETED and records
	// the gateway reference, but only if it is still PENDING. It reports
	// whether this caller won the transition; false with a nil error means
	// another delivery already completed the order.
	CompleteIfPending(ctx context.Context, txnUUID string, gatewayRefID string) (bool, error)

	// MarkFailed flips a PENDING order to FAILED.
	MarkFailed(ctx context.Context, txnUUID string) error

	UpdateDeliveryStatus(ctx context.Context, id uuid.UUID, status DeliveryStatus) error
}
