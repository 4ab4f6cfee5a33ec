package worker

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/farhanzaki/apotekgo/internal/connectivity"
	"github.com/farhanzaki/apotekgo/internal/domain"
)

type stubQueue struct {
	pending int32
	drains  int32
}

func (s *stubQueue) Enqueue(context.Context, domain.OperationKind, any) (domain.QueuedOperation, error) {
	return domain.QueuedOperation{}, nil
}

func (s *stubQueue) Drain(context.Context) error {
	atomic.AddInt32(&s.drains, 1)
	atomic.StoreInt32(&s.pending, 0)
	return nil
}

func (s *stubQueue) PendingCount() int {
	return int(atomic.LoadInt32(&s.pending))
}

func (s *stubQueue) FailedOperations() []domain.QueuedOperation { return nil }

func (s *stubQueue) RetryFailed(context.Context) error { return nil }

func TestSyncWorker_DrainsWhenOnlineWithBacklog(t *testing.T) {
	q := &stubQueue{pending: 2}
	monitor := connectivity.NewMonitor(connectivity.MonitorConfig{
		InitialState: domain.ConnOnline,
	})

	w := NewSyncWorker(q, monitor, SyncWorkerConfig{Interval: 10 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Start(ctx)

	assert.Eventually(t, func() bool { return atomic.LoadInt32(&q.drains) > 0 },
		time.Second, 5*time.Millisecond)
}

func TestSyncWorker_SkipsWhileOffline(t *testing.T) {
	q := &stubQueue{pending: 2}
	monitor := connectivity.NewMonitor(connectivity.MonitorConfig{
		InitialState: domain.ConnOffline,
	})

	w := NewSyncWorker(q, monitor, SyncWorkerConfig{Interval: 10 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Start(ctx)

	time.Sleep(60 * time.Millisecond)
	assert.Zero(t, atomic.LoadInt32(&q.drains), "no drain attempts while offline")
}

func TestSyncWorker_SkipsWhenQueueEmpty(t *testing.T) {
	q := &stubQueue{}
	monitor := connectivity.NewMonitor(connectivity.MonitorConfig{
		InitialState: domain.ConnOnline,
	})

	w := NewSyncWorker(q, monitor, SyncWorkerConfig{Interval: 10 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Start(ctx)

	time.Sleep(60 * time.Millisecond)
	assert.Zero(t, atomic.LoadInt32(&q.drains), "nothing to drain")
}
