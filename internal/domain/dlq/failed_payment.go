package dlq

import (
	"time"

	"github.com/cassiomorais/checkout/internal/domain/errors"
	"github.com/google/uuid"
)

// DefaultMaxRetries is the retry ceiling fixed at record creation.
const DefaultMaxRetries = 3

// DefaultBackoffTiers is the wait schedule between sweeper retries. After the
// last tier is reached the schedule holds there.
var DefaultBackoffTiers = []time.Duration{
	5 * time.Minute,
	15 * time.Minute,
	60 * time.Minute,
}

// FailedPayment is one reconciliation attempt that could not complete. At
// most one live record exists per transaction UUID.
type FailedPayment struct {
	ID              uuid.UUID
	OrderID         uuid.UUID
	UserID          string
	TransactionUUID string
	TransactionCode *string
	AmountCents     int64
	ReportedStatus  string
	Signature       *string
	LastError       string
	RetryCount      int
	MaxRetries      int
	NextRetryAt     time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// NewFailedPayment builds a fresh DLQ record scheduled for the first backoff
// tier.
func NewFailedPayment(
	orderID uuid.UUID,
	userID string,
	txnUUID string,
	amountCents int64,
	reportedStatus string,
	cause string,
	txnCode *string,
	signature *string,
	now time.Time,
	tiers []time.Duration,
) *FailedPayment {
	if len(tiers) == 0 {
		tiers = DefaultBackoffTiers
	}
	return &FailedPayment{
		ID:              uuid.New(),
		OrderID:         orderID,
		UserID:          userID,
		TransactionUUID: txnUUID,
		TransactionCode: txnCode,
		AmountCents:     amountCents,
		ReportedStatus:  reportedStatus,
		Signature:       signature,
		LastError:       cause,
		RetryCount:      0,
		MaxRetries:      DefaultMaxRetries,
		NextRetryAt:     now.Add(tiers[0]),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// Exhausted reports whether the record has hit the retry ceiling and must not
// be auto-retried again.
func (f *FailedPayment) Exhausted() bool {
	return f.RetryCount >= f.MaxRetries
}

// Due reports whether the record is eligible for an automatic retry at now.
func (f *FailedPayment) Due(now time.Time) bool {
	return !f.Exhausted() && !f.NextRetryAt.After(now)
}

// RecordFailure increments the retry counter and reschedules along the
// backoff tiers, holding at the last tier.
func (f *FailedPayment) RecordFailure(cause string, now time.Time, tiers []time.Duration) {
	if len(tiers) == 0 {
		tiers = DefaultBackoffTiers
	}
	tier := f.RetryCount
	if tier > len(tiers)-1 {
		tier = len(tiers) - 1
	}
	f.RetryCount++
	f.LastError = cause
	f.NextRetryAt = now.Add(tiers[tier])
	f.UpdatedAt = now
}

// Reset rearms the record for an immediate retry. Records past the ceiling
// are rejected unless the operator forces the re-drive.
func (f *FailedPayment) Reset(now time.Time, force bool) error {
	if f.Exhausted() && !force {
		return errors.ErrRetryExhausted
	}
	f.RetryCount = 0
	f.NextRetryAt = now
	f.UpdatedAt = now
	return nil
}
