package dispatch

import (
	"time"

	"github.com/cedcast/dispatch/internal/database"
)

// RetryPolicy controls how many times a failed recipient is re-attempted
// and how long a recipient sits out after a failed attempt.
type RetryPolicy struct {
	MaxRetries int32
	MinDelay   time.Duration
}

// RetryOutcome is the state a recipient should be moved to after a failed
// send attempt.
type RetryOutcome struct {
	Status       string
	RetryCount   int32
	LastRetryAt  time.Time
	ErrorMessage string
}

// Eligible reports whether a pending recipient may be attempted now. A
// recipient that has never been tried is always eligible; one that failed
// recently waits out MinDelay.
func (p RetryPolicy) Eligible(rec *database.Recipient, now time.Time) bool {
	if rec.Status != database.RecipientStatusPending {
		return false
	}
	if rec.LastRetryAt == nil || p.MinDelay <= 0 {
		return true
	}
	return now.Sub(*rec.LastRetryAt) >= p.MinDelay
}

// Apply computes the recipient's next state after a failed attempt: the
// retry counter advances and the attempt is timestamped; once the counter
// reaches MaxRetries the recipient is failed terminally, otherwise it goes
// back to pending for the next cycle.
func (p RetryPolicy) Apply(rec *database.Recipient, sendErr error, now time.Time) RetryOutcome {
	out := RetryOutcome{
		RetryCount:  rec.RetryCount + 1,
		LastRetryAt: now,
		Status:      database.RecipientStatusPending,
	}
	if sendErr != nil {
		out.ErrorMessage = sendErr.Error()
	}
	if out.RetryCount >= p.MaxRetries {
		out.Status = database.RecipientStatusFailed
	}
	return out
}
