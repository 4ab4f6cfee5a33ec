package worker

import (
	"context"
	"time"

	"github.com/farhanzaki/apotekgo/internal/domain"
	"github.com/farhanzaki/apotekgo/pkg/logger"
)

// SyncWorker periodically drains the operation queue as a safety net for
// missed connectivity transitions. Callers should manage lifecycle by
// controlling the provided context (cancel on shutdown).
type SyncWorker struct {
	queue    domain.OperationQueue
	monitor  domain.ConnectivityMonitor
	interval time.Duration
}

// SyncWorkerConfig defines runtime options for the worker.
type SyncWorkerConfig struct {
	Interval time.Duration
}

// NewSyncWorker builds a new sync worker instance.
func NewSyncWorker(queue domain.OperationQueue, monitor domain.ConnectivityMonitor, cfg SyncWorkerConfig) *SyncWorker {
	interval := cfg.Interval
	if interval <= 0 {
		interval = 5 * time.Minute
	}

	return &SyncWorker{
		queue:    queue,
		monitor:  monitor,
		interval: interval,
	}
}

// Start launches the worker loop. It blocks until context cancellation.
func (w *SyncWorker) Start(ctx context.Context) {
	logger.Info("Sync worker started")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("Sync worker stopping", logger.ErrorField(ctx.Err()))
			return
		case <-ticker.C:
			w.syncOnce(ctx)
		}
	}
}

func (w *SyncWorker) syncOnce(ctx context.Context) {
	if w.monitor.Current() != domain.ConnOnline {
		return
	}
	if w.queue.PendingCount() == 0 {
		return
	}

	start := time.Now()
	err := w.queue.Drain(ctx)
	if err != nil {
		if err == domain.ErrDrainInProgress {
			return
		}
		logger.Error("Periodic drain failed",
			logger.Duration("duration", time.Since(start)),
			logger.ErrorField(err),
		)
		return
	}

	logger.Debug("Periodic drain finished",
		logger.Duration("duration", time.Since(start)),
		logger.Int("pending", w.queue.PendingCount()),
	)
}
