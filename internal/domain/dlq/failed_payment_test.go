package dlq

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var tiers = []time.Duration{5 * time.Minute, 15 * time.Minute, 60 * time.Minute}

func newRecord(now time.Time) *FailedPayment {
	return NewFailedPayment(
		uuid.New(), "user-1", "txn-1", 100000, "COMPLETE",
		"insufficient stock", nil, nil, now, tiers,
	)
}

func TestNewFailedPayment_FirstTier(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	f := newRecord(now)

	assert.Equal(t, 0, f.RetryCount)
	assert.Equal(t, DefaultMaxRetries, f.MaxRetries)
	assert.Equal(t, now.Add(5*time.Minute), f.NextRetryAt)
	assert.False(t, f.Due(now), "not eligible before the first tier elapses")
	assert.True(t, f.Due(now.Add(5*time.Minute)))
}

func TestRecordFailure_BackoffSchedule(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	f := newRecord(now)

	// Nth failed retry schedules no sooner than the Nth tier, holding at
	// the last tier.
	wantDelays := []time.Duration{5 * time.Minute, 15 * time.Minute, 60 * time.Minute, 60 * time.Minute}
	for i, want := range wantDelays {
		f.RecordFailure("still failing", now, tiers)
		assert.Equal(t, now.Add(want), f.NextRetryAt, "after failure %d", i+1)
		assert.Equal(t, i+1, f.RetryCount)
	}
	assert.Equal(t, "still failing", f.LastError)
}

func TestExhausted(t *testing.T) {
	now := time.Now()
	f := newRecord(now)

	for i := 0; i < DefaultMaxRetries; i++ {
		assert.False(t, f.Exhausted())
		f.RecordFailure("err", now, tiers)
	}
	assert.True(t, f.Exhausted())
	assert.False(t, f.Due(now.Add(24*time.Hour)), "exhausted records are never due")
}

func TestReset(t *testing.T) {
	now := time.Now()
	f := newRecord(now)
	f.RecordFailure("err", now, tiers)

	require.NoError(t, f.Reset(now, false))
	assert.Equal(t, 0, f.RetryCount)
	assert.True(t, f.Due(now))
}

func TestReset_ExhaustedRequiresForce(t *testing.T) {
	now := time.Now()
	f := newRecord(now)
	for i := 0; i < DefaultMaxRetries; i++ {
		f.RecordFailure("err", now, tiers)
	}

	err := f.Reset(now, false)
	require.Error(t, err)

	require.NoError(t, f.Reset(now, true))
	assert.True(t, f.Due(now))
}
