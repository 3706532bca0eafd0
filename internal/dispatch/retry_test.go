package dispatch

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/cedcast/dispatch/internal/database"
)

func TestRetryPolicyApply(t *testing.T) {
	policy := RetryPolicy{MaxRetries: 3}
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	sendErr := errors.New("gateway timeout")

	t.Run("first failure goes back to pending", func(t *testing.T) {
		rec := &database.Recipient{RetryCount: 0, Status: database.RecipientStatusPending}
		out := policy.Apply(rec, sendErr, now)
		assert.Equal(t, database.RecipientStatusPending, out.Status)
		assert.Equal(t, int32(1), out.RetryCount)
		assert.Equal(t, now, out.LastRetryAt)
		assert.Equal(t, "gateway timeout", out.ErrorMessage)
	})

	t.Run("failure at the cap is terminal", func(t *testing.T) {
		rec := &database.Recipient{RetryCount: 2, Status: database.RecipientStatusPending}
		out := policy.Apply(rec, sendErr, now)
		assert.Equal(t, database.RecipientStatusFailed, out.Status)
		assert.Equal(t, int32(3), out.RetryCount)
	})

	t.Run("counter past the cap stays failed", func(t *testing.T) {
		rec := &database.Recipient{RetryCount: 7, Status: database.RecipientStatusPending}
		out := policy.Apply(rec, sendErr, now)
		assert.Equal(t, database.RecipientStatusFailed, out.Status)
	})
}

func TestRetryPolicyEligible(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("fresh pending recipient", func(t *testing.T) {
		policy := RetryPolicy{MaxRetries: 3, MinDelay: 5 * time.Minute}
		rec := &database.Recipient{Status: database.RecipientStatusPending}
		assert.True(t, policy.Eligible(rec, now))
	})

	t.Run("recent failure waits out the delay", func(t *testing.T) {
		policy := RetryPolicy{MaxRetries: 3, MinDelay: 5 * time.Minute}
		recent := now.Add(-time.Minute)
		rec := &database.Recipient{Status: database.RecipientStatusPending, LastRetryAt: &recent, RetryCount: 1}
		assert.False(t, policy.Eligible(rec, now))

		old := now.Add(-10 * time.Minute)
		rec.LastRetryAt = &old
		assert.True(t, policy.Eligible(rec, now))
	})

	t.Run("zero delay retries immediately", func(t *testing.T) {
		policy := RetryPolicy{MaxRetries: 3}
		moment := now
		rec := &database.Recipient{Status: database.RecipientStatusPending, LastRetryAt: &moment, RetryCount: 1}
		assert.True(t, policy.Eligible(rec, now))
	})

	t.Run("non-pending recipients are skipped", func(t *testing.T) {
		policy := RetryPolicy{MaxRetries: 3}
		rec := &database.Recipient{Status: database.RecipientStatusSent}
		assert.False(t, policy.Eligible(rec, now))
	})
}
