package workers

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cedcast/dispatch/internal/database"
	"github.com/cedcast/dispatch/internal/database/databasetest"
	"github.com/cedcast/dispatch/internal/dispatch"
)

type fakeDispatcher struct {
	dispatched []int64
	failWith   error
}

func (f *fakeDispatcher) DispatchMessage(_ context.Context, msg *database.Message) (*dispatch.Result, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	f.dispatched = append(f.dispatched, msg.ID)
	return &dispatch.Result{}, nil
}

type recordingNotifier struct {
	sent []string
	err  error
}

func (n *recordingNotifier) Send(_ context.Context, recipient, _, _ string) error {
	if n.err != nil {
		return n.err
	}
	n.sent = append(n.sent, recipient)
	return nil
}

func accra(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Africa/Accra")
	require.NoError(t, err)
	return loc
}

func newTestManager(q database.Querier, d MessageDispatcher, n *recordingNotifier, loc *time.Location, now time.Time) *Manager {
	m := NewManager(q, d, n, loc, Config{
		DispatchBatchSize: 50,
		LowCreditHeadroom: 10,
	})
	m.now = func() time.Time { return now }
	return m
}

func TestNormalizeScheduled(t *testing.T) {
	lagos, err := time.LoadLocation("Africa/Lagos")
	require.NoError(t, err)

	t.Run("zone-less time is reinterpreted in the platform zone", func(t *testing.T) {
		naive := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
		got := NormalizeScheduled(naive, lagos)
		assert.Equal(t, lagos, got.Location())
		assert.Equal(t, 9, got.Hour(), "wall clock must be preserved")
		assert.False(t, got.Equal(naive), "Lagos 09:30 is not UTC 09:30")
	})

	t.Run("zoned time passes through", func(t *testing.T) {
		zoned := time.Date(2026, 3, 1, 9, 30, 0, 0, lagos)
		assert.Equal(t, zoned, NormalizeScheduled(zoned, lagos))
	})

	t.Run("accra is wall-clock equal to utc", func(t *testing.T) {
		// Ghana runs on UTC, so normalization must be a no-op in effect.
		naive := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
		got := NormalizeScheduled(naive, accra(t))
		assert.True(t, got.Equal(naive))
	})
}

func TestDispatchDueOnlyDueMessages(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	messages := []database.Message{
		{ID: 1, ScheduledAt: now.Add(-time.Hour)},
		{ID: 2, ScheduledAt: now.Add(time.Hour)},
		{ID: 3, ScheduledAt: now},
	}
	fake := &databasetest.Querier{
		GetUnsentMessagesFn: func(_ context.Context, arg database.GetUnsentMessagesParams) ([]database.Message, error) {
			assert.Equal(t, int32(50), arg.Limit)
			return messages, nil
		},
	}
	d := &fakeDispatcher{}
	m := newTestManager(fake, d, &recordingNotifier{}, accra(t), now)

	processed, err := m.dispatchDue(context.Background(), 50)
	require.NoError(t, err)
	assert.Equal(t, 2, processed)
	assert.Equal(t, []int64{1, 3}, d.dispatched, "future message must wait")
}

func TestDispatchDueNormalizesAndPersistsSchedule(t *testing.T) {
	lagos, err := time.LoadLocation("Africa/Lagos")
	require.NoError(t, err)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	var persisted []database.UpdateMessageScheduleParams
	fake := &databasetest.Querier{
		GetUnsentMessagesFn: func(context.Context, database.GetUnsentMessagesParams) ([]database.Message, error) {
			// Stored naive as 11:30; in Lagos that is 10:30 UTC, so due.
			return []database.Message{{ID: 1, ScheduledAt: time.Date(2026, 3, 1, 11, 30, 0, 0, time.UTC)}}, nil
		},
		UpdateMessageScheduleFn: func(_ context.Context, arg database.UpdateMessageScheduleParams) error {
			persisted = append(persisted, arg)
			return nil
		},
	}
	d := &fakeDispatcher{}
	m := newTestManager(fake, d, &recordingNotifier{}, lagos, now)

	processed, err := m.dispatchDue(context.Background(), 50)
	require.NoError(t, err)
	assert.Equal(t, 1, processed)
	require.Len(t, persisted, 1)
	assert.Equal(t, lagos, persisted[0].ScheduledAt.Location())
}

func TestDispatchDueFailureDoesNotBlockBatch(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	// First message errors, second must still be attempted.
	var seen []int64
	d := dispatcherFunc(func(_ context.Context, msg *database.Message) (*dispatch.Result, error) {
		seen = append(seen, msg.ID)
		if msg.ID == 1 {
			return nil, errors.New("boom")
		}
		return &dispatch.Result{}, nil
	})

	fake := &databasetest.Querier{
		GetUnsentMessagesFn: func(context.Context, database.GetUnsentMessagesParams) ([]database.Message, error) {
			return []database.Message{
				{ID: 1, ScheduledAt: now.Add(-time.Minute)},
				{ID: 2, ScheduledAt: now.Add(-time.Minute)},
			}, nil
		},
	}
	m := newTestManager(fake, d, &recordingNotifier{}, accra(t), now)

	processed, err := m.dispatchDue(context.Background(), 50)
	require.NoError(t, err)
	assert.Equal(t, 1, processed)
	assert.Equal(t, []int64{1, 2}, seen)
}

type dispatcherFunc func(ctx context.Context, msg *database.Message) (*dispatch.Result, error)

func (f dispatcherFunc) DispatchMessage(ctx context.Context, msg *database.Message) (*dispatch.Result, error) {
	return f(ctx, msg)
}

func TestDispatchDueOrgFilter(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	var gotParams database.GetUnsentMessagesParams
	fake := &databasetest.Querier{
		GetUnsentMessagesFn: func(_ context.Context, arg database.GetUnsentMessagesParams) ([]database.Message, error) {
			gotParams = arg
			return nil, nil
		},
	}
	m := newTestManager(fake, &fakeDispatcher{}, &recordingNotifier{}, accra(t), now)
	m.workerConfig.OrgFilter = "crestview"

	_, err := m.dispatchDue(context.Background(), 50)
	require.NoError(t, err)
	require.NotNil(t, gotParams.OrgSlug)
	assert.Equal(t, "crestview", *gotParams.OrgSlug)
}

func TestWaitBlocksUntilInFlightTickFinishes(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	started := make(chan struct{})
	release := make(chan struct{})
	var startOnce sync.Once
	d := dispatcherFunc(func(context.Context, *database.Message) (*dispatch.Result, error) {
		startOnce.Do(func() { close(started) })
		<-release
		return &dispatch.Result{}, nil
	})
	fake := &databasetest.Querier{
		GetUnsentMessagesFn: func(context.Context, database.GetUnsentMessagesParams) ([]database.Message, error) {
			return []database.Message{{ID: 1, ScheduledAt: now.Add(-time.Minute)}}, nil
		},
	}
	m := newTestManager(fake, d, &recordingNotifier{}, accra(t), now)
	m.workerConfig.DispatchInterval = 5 * time.Millisecond
	m.workerConfig.TickTimeout = time.Second

	ctx, cancel := context.WithCancel(context.Background())
	m.StartDispatcher(ctx)
	<-started
	cancel()

	waited := make(chan struct{})
	go func() {
		m.Wait()
		close(waited)
	}()

	select {
	case <-waited:
		t.Fatal("Wait returned while a dispatch was still in flight")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	select {
	case <-waited:
	case <-time.After(2 * time.Second):
		t.Fatal("Wait did not return after the tick finished")
	}
}

func TestCheckLowCredit(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	orgs := []database.Organization{
		{ID: 1, Name: "Crestview Academy", Slug: "crestview",
			CreditBalance: decimal.RequireFromString("1.00"),
			SmsRate:       decimal.RequireFromString("0.25")},
		{ID: 2, Name: "Hillcrest School", Slug: "hillcrest",
			CreditBalance: decimal.RequireFromString("0.50"),
			SmsRate:       decimal.RequireFromString("0.22")},
	}

	var stamped []int32
	fake := &databasetest.Querier{
		GetOrganizationsBelowCreditHeadroomFn: func(_ context.Context, headroom int64) ([]database.Organization, error) {
			assert.Equal(t, int64(10), headroom)
			return orgs, nil
		},
		UpdateLowBalanceNotifiedAtFn: func(_ context.Context, id int32) error {
			stamped = append(stamped, id)
			return nil
		},
	}
	n := &recordingNotifier{}
	m := newTestManager(fake, &fakeDispatcher{}, n, accra(t), now)

	notified, err := m.checkLowCredit(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, 2, notified)
	assert.Equal(t, []string{"crestview", "hillcrest"}, n.sent)
	assert.Equal(t, []int32{1, 2}, stamped)
}

func TestCheckLowCreditNotifyFailureSkipsStamp(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	var stamped []int32
	fake := &databasetest.Querier{
		GetOrganizationsBelowCreditHeadroomFn: func(context.Context, int64) ([]database.Organization, error) {
			return []database.Organization{{ID: 1, Slug: "crestview",
				CreditBalance: decimal.Zero, SmsRate: decimal.RequireFromString("0.25")}}, nil
		},
		UpdateLowBalanceNotifiedAtFn: func(_ context.Context, id int32) error {
			stamped = append(stamped, id)
			return nil
		},
	}
	n := &recordingNotifier{err: errors.New("smtp down")}
	m := newTestManager(fake, &fakeDispatcher{}, n, accra(t), now)

	notified, err := m.checkLowCredit(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, 0, notified)
	assert.Empty(t, stamped, "a failed notification must not be stamped as delivered")
}
