package workers

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/cedcast/dispatch/internal/logging"
)

// WorkerFunc defines the function signature for work performed by a worker loop.
// It returns the number of items processed and any critical error encountered.
type WorkerFunc func(ctx context.Context, batchSize int) (int, error)

// runWorkerLoop runs a generic worker function periodically. Shutdown lands
// between ticks: a tick that has started runs to completion (bounded by
// tickTimeout) so a dispatch batch is never cut off mid-settlement.
func runWorkerLoop(ctx context.Context, name string, interval, tickTimeout time.Duration, batchSize int, workerFunc WorkerFunc) {
	slog.Info("Worker starting",
		slog.String("worker", name),
		slog.Duration("interval", interval),
		slog.Int("batch_size", batchSize),
	)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("Worker stopping", slog.String("worker", name))
			return
		case <-ticker.C:
			runTick(ctx, name, tickTimeout, batchSize, workerFunc)
		}
	}
}

// runTick executes a single batch of work. The tick context is detached
// from the loop's cancellation so an in-flight batch finishes cleanly; only
// the timeout bounds it.
func runTick(ctx context.Context, name string, tickTimeout time.Duration, batchSize int, workerFunc WorkerFunc) {
	tickCtx := logging.ContextWithWorkerID(context.WithoutCancel(ctx), name)
	tickCtx, cancel := context.WithTimeout(tickCtx, tickTimeout)
	defer cancel()

	processedCount, err := workerFunc(tickCtx, batchSize)

	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			slog.ErrorContext(tickCtx, "Worker tick failed", slog.Any("error", err))
		}
	} else if processedCount > 0 {
		slog.InfoContext(tickCtx, "Worker tick complete", slog.Int("processed", processedCount))
	}
}
