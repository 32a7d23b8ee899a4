package reconcile

import "context"

// TransactionManager defines the interface for transaction management.
type TransactionManager interface {
	// WithTransaction executes the given function within a database
	// transaction. If fn returns an error, the transaction is rolled back.
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
