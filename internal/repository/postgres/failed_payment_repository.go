package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cassiomorais/checkout/internal/domain/dlq"
	domainErrors "github.com/cassiomorais/checkout/internal/domain/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// FailedPaymentRepository implements dlq.Repository using PostgreSQL.
type FailedPaymentRepository struct {
	pool *pgxpool.Pool
}

// NewFailedPaymentRepository creates a new FailedPaymentRepository.
func NewFailedPaymentRepository(pool *pgxpool.Pool) *FailedPaymentRepository {
	return &FailedPaymentRepository{pool: pool}
}

func (r *FailedPaymentRepository) db(ctx context.Context) DBTX {
	return ConnFromCtx(ctx, r.pool)
}

// Upsert inserts the record, or overwrites the existing one for the same
// transaction UUID. A redelivered webhook that fails again replaces the prior
// error and schedule rather than growing the queue.
func (r *FailedPaymentRepository) Upsert(ctx context.Context, f *dlq.FailedPayment) error {
	_, err := r.db(ctx).Exec(ctx,
		`INSERT INTO failed_payments
		 (id, order_id, user_id, transaction_uuid, transaction_code,
		  amount_cents, reported_status, signature, last_error,
		  retry_count, max_retries, next_retry_at, created_at, updated_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
		 ON CONFLICT (transaction_uuid) DO UPDATE SET
		  transaction_code = EXCLUDED.transaction_code,
		  amount_cents = EXCLUDED.amount_cents,
		  reported_status = EXCLUDED.reported_status,
		  signature = EXCLUDED.signature,
		  last_error = EXCLUDED.last_error,
		  retry_count = EXCLUDED.retry_count,
		  max_retries = EXCLUDED.max_retries,
		  next_retry_at = EXCLUDED.next_retry_at,
		  updated_at = EXCLUDED.updated_at`,
		f.ID, f.OrderID, f.UserID, f.TransactionUUID, f.TransactionCode,
		f.AmountCents, f.ReportedStatus, f.Signature, f.LastError,
		f.RetryCount, f.MaxRetries, f.NextRetryAt, f.CreatedAt, f.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert failed payment: %w", err)
	}
	return nil
}

// GetByTransactionUUID retrieves a DLQ record by transaction UUID.
func (r *FailedPaymentRepository) GetByTransactionUUID(ctx context.Context, txnUUID string) (*dlq.FailedPayment, error) {
	return r.scanFailedPayment(r.db(ctx).QueryRow(ctx,
		selectFailedPaymentColumns+` FROM failed_payments WHERE transaction_uuid = $1`, txnUUID))
}

// GetDue returns up to limit records eligible for an automatic retry, oldest
// schedule first.
func (r *FailedPaymentRepository) GetDue(ctx context.Context, now time.Time, limit int) ([]*dlq.FailedPayment, error) {
	rows, err := r.db(ctx).Query(ctx,
		selectFailedPaymentColumns+`
		 FROM failed_payments
		 WHERE next_retry_at <= $1 AND retry_count < max_retries
		 ORDER BY next_retry_at ASC
		 LIMIT $2`,
		now, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query due failed payments: %w", err)
	}
	defer rows.Close()

	var result []*dlq.FailedPayment
	for rows.Next() {
		f, err := r.scanFailedPayment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, f)
	}
	return result, rows.Err()
}

// Update persists retry-count / schedule / error mutations.
func (r *FailedPaymentRepository) Update(ctx context.Context, f *dlq.FailedPayment) error {
	tag, err := r.db(ctx).Exec(ctx,
		`UPDATE failed_payments SET
		  last_error = $1, retry_count = $2, next_retry_at = $3, updated_at = $4
		 WHERE transaction_uuid = $5`,
		f.LastError, f.RetryCount, f.NextRetryAt, f.UpdatedAt, f.TransactionUUID,
	)
	if err != nil {
		return fmt.Errorf("update failed payment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domainErrors.ErrFailedPaymentNotFound
	}
	return nil
}

// Delete removes the record for a settled order.
func (r *FailedPaymentRepository) Delete(ctx context.Context, txnUUID string) error {
	tag, err := r.db(ctx).Exec(ctx,
		`DELETE FROM failed_payments WHERE transaction_uuid = $1`, txnUUID)
	if err != nil {
		return fmt.Errorf("delete failed payment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domainErrors.ErrFailedPaymentNotFound
	}
	return nil
}

// Stats summarizes the queue for the admin endpoint.
func (r *FailedPaymentRepository) Stats(ctx context.Context, now time.Time) (*dlq.Stats, error) {
	var s dlq.Stats
	err := r.db(ctx).QueryRow(ctx,
		`SELECT COUNT(*),
		        COUNT(*) FILTER (WHERE retry_count < max_retries),
		        COUNT(*) FILTER (WHERE retry_count >= max_retries),
		        COUNT(*) FILTER (WHERE retry_count < max_retries AND next_retry_at <= $1)
		 FROM failed_payments`,
		now,
	).Scan(&s.Total, &s.Pending, &s.Exhausted, &s.Due)
	if err != nil {
		return nil, fmt.Errorf("query dlq stats: %w", err)
	}
	return &s, nil
}

const selectFailedPaymentColumns = `SELECT id, order_id, user_id, transaction_uuid, transaction_code,
       amount_cents, reported_status, signature, last_error,
       retry_count, max_retries, next_retry_at, created_at, updated_at`

func (r *FailedPaymentRepository) scanFailedPayment(row scanner) (*dlq.FailedPayment, error) {
	var f dlq.FailedPayment
	err := row.Scan(
		&f.ID, &f.OrderID, &f.UserID, &f.TransactionUUID, &f.TransactionCode,
		&f.AmountCents, &f.ReportedStatus, &f.Signature, &f.LastError,
		&f.RetryCount, &f.MaxRetries, &f.NextRetryAt, &f.CreatedAt, &f.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrFailedPaymentNotFound
		}
		return nil, fmt.Errorf("scan failed payment: %w", err)
	}
	return &f, nil
}
