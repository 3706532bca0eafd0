package workers

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cedcast/dispatch/internal/database"
	"github.com/cedcast/dispatch/internal/dispatch"
	"github.com/cedcast/dispatch/internal/logging"
	"github.com/cedcast/dispatch/internal/notification"
)

// Config holds worker intervals and batch sizes.
type Config struct {
	DispatchInterval  time.Duration
	DispatchBatchSize int
	LowCreditInterval time.Duration
	LowCreditHeadroom int64
	TickTimeout       time.Duration
	OrgFilter         string
}

// MessageDispatcher runs one dispatch cycle over a due message.
type MessageDispatcher interface {
	DispatchMessage(ctx context.Context, msg *database.Message) (*dispatch.Result, error)
}

// Manager orchestrates the background worker loops.
type Manager struct {
	dbQueries    database.Querier
	dispatcher   MessageDispatcher
	notifier     notification.Notifier
	location     *time.Location
	workerConfig Config
	now          func() time.Time
	wg           sync.WaitGroup
}

func NewManager(queries database.Querier, dispatcher MessageDispatcher, notifier notification.Notifier, loc *time.Location, cfg Config) *Manager {
	return &Manager{
		dbQueries:    queries,
		dispatcher:   dispatcher,
		notifier:     notifier,
		location:     loc,
		workerConfig: cfg,
		now:          time.Now,
	}
}

// StartDispatcher launches the worker loop that scans for due messages.
func (m *Manager) StartDispatcher(ctx context.Context) {
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		runWorkerLoop(ctx, "MessageDispatcher",
			m.workerConfig.DispatchInterval, m.workerConfig.TickTimeout,
			m.workerConfig.DispatchBatchSize, m.dispatchDue)
	}()
}

// StartLowCreditNotifier launches the worker loop that warns tenants whose
// credit no longer covers a comfortable number of messages.
func (m *Manager) StartLowCreditNotifier(ctx context.Context) {
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		runWorkerLoop(ctx, "LowCreditNotifier",
			m.workerConfig.LowCreditInterval, m.workerConfig.TickTimeout,
			100, m.checkLowCredit)
	}()
}

// Wait blocks until every started worker loop has returned. An in-flight
// tick runs to completion first, so callers can close shared resources
// (the database pool) without cutting a dispatch batch off mid-settlement.
func (m *Manager) Wait() {
	m.wg.Wait()
}

// dispatchDue is the WorkerFunc for the dispatch loop: it loads unsent
// messages, normalizes zone-less schedules, and dispatches the ones whose
// scheduled time has passed. A failing message never blocks the rest of the
// batch.
func (m *Manager) dispatchDue(ctx context.Context, batchSize int) (int, error) {
	params := database.GetUnsentMessagesParams{Limit: int32(batchSize)}
	if m.workerConfig.OrgFilter != "" {
		params.OrgSlug = &m.workerConfig.OrgFilter
	}
	messages, err := m.dbQueries.GetUnsentMessages(ctx, params)
	if err != nil {
		return 0, fmt.Errorf("loading unsent messages: %w", err)
	}

	now := m.now()
	processed := 0
	for i := range messages {
		msg := &messages[i]
		msgCtx := logging.ContextWithMessageID(ctx, msg.ID)

		scheduled := NormalizeScheduled(msg.ScheduledAt, m.location)
		if !scheduled.Equal(msg.ScheduledAt) {
			err := m.dbQueries.UpdateMessageSchedule(msgCtx, database.UpdateMessageScheduleParams{
				ScheduledAt: scheduled,
				ID:          msg.ID,
			})
			if err != nil {
				slog.ErrorContext(msgCtx, "Failed to persist normalized schedule", slog.Any("error", err))
				continue
			}
			msg.ScheduledAt = scheduled
		}
		if scheduled.After(now) {
			continue
		}

		if _, err := m.dispatcher.DispatchMessage(msgCtx, msg); err != nil {
			slog.ErrorContext(msgCtx, "Dispatch failed",
				slog.Any("error", err),
				slog.Bool("permanent", dispatch.IsPermanent(err)),
			)
			continue
		}
		processed++
	}
	return processed, nil
}

// NormalizeScheduled reinterprets a zone-less scheduled time in the
// platform timezone. Timestamps stored without zone information scan as
// UTC; taking their wall-clock fields in the configured zone recovers the
// intended local schedule. Times already carrying a real zone pass through.
func NormalizeScheduled(t time.Time, loc *time.Location) time.Time {
	if t.Location() != time.UTC {
		return t
	}
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), loc)
}

// checkLowCredit is the WorkerFunc for the low credit notifier.
func (m *Manager) checkLowCredit(ctx context.Context, _ int) (int, error) {
	orgs, err := m.dbQueries.GetOrganizationsBelowCreditHeadroom(ctx, m.workerConfig.LowCreditHeadroom)
	if err != nil {
		return 0, fmt.Errorf("loading low credit organizations: %w", err)
	}

	notified := 0
	for i := range orgs {
		org := &orgs[i]
		orgCtx := logging.ContextWithOrgID(ctx, org.ID)

		subject := fmt.Sprintf("Low SMS credit - %s", org.Name)
		body := fmt.Sprintf("Credit balance %s no longer covers %d messages at your current rate of %s. Please top up.",
			org.CreditBalance.String(), m.workerConfig.LowCreditHeadroom, org.SmsRate.String())

		if err := m.notifier.Send(orgCtx, org.Slug, subject, body); err != nil {
			slog.ErrorContext(orgCtx, "Failed to send low credit notification", slog.Any("error", err))
			continue
		}
		if err := m.dbQueries.UpdateLowBalanceNotifiedAt(orgCtx, org.ID); err != nil {
			slog.ErrorContext(orgCtx, "Failed to stamp low credit notification", slog.Any("error", err))
			continue
		}
		notified++
	}
	return notified, nil
}
