package dlq

import (
	"context"
	"time"
)

// Stats summarizes the queue for operators.
type Stats struct {
	Total     int64 `json:"total"`
	Pending   int64 `json:"pending"`
	Exhausted int64 `json:"exhausted"`
	Due       int64 `json:"due"`
}

// Repository is the durable store of failed settlement attempts.
type Repository interface {
	// Upsert creates the record for its transaction UUID, or overwrites the
	// existing one (a redelivered webhook failing again replaces the
	// previous error and schedule). The uniqueness constraint on the
	// transaction UUID is enforced by the store.
	Upsert(ctx context.Context, f *FailedPayment) error

	GetByTransactionUUID(ctx context.Context, txnUUID string) (*FailedPayment, error)

	// GetDue returns up to limit records whose next retry time has passed
	// and whose retry count is below the ceiling.
	GetDue(ctx context.Context, now time.Time, limit int) ([]*FailedPayment, error)

	// Update persists retry-count / schedule / error mutations.
	Update(ctx context.Context, f *FailedPayment) error

	// Delete removes the record once the underlying order is COMPLETED.
	Delete(ctx context.Context, txnUUID string) error

	Stats(ctx context.Context, now time.Time) (*Stats, error)
}
