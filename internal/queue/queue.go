package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/farhanzaki/apotekgo/internal/domain"
	"github.com/farhanzaki/apotekgo/pkg/logger"
	"github.com/farhanzaki/apotekgo/pkg/metrics"
)

const snapshotKey = "sync/queue"

// Config defines retry and timeout behavior for the queue.
type Config struct {
	MaxAttempts    int           // retry budget per operation
	RetryBackoff   time.Duration // linear: delay = RetryBackoff * attemptCount
	HandlerTimeout time.Duration // per-attempt handler deadline, 0 = none
}

// DefaultConfig returns the default queue configuration.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:    3,
		RetryBackoff:   2 * time.Second,
		HandlerTimeout: 30 * time.Second,
	}
}

// snapshot is the durable representation of the queue. The whole list is
// rewritten on every mutation; with tens of entries that cost is noise.
type snapshot struct {
	Operations []domain.QueuedOperation `json:"operations"`
}

// PersistentQueue is the durable mutating-operation queue. Operations
// are accepted while offline, survive process restarts, and are applied
// to the remote store strictly in enqueue order once connectivity
// returns. Failed operations are retained for inspection.
type PersistentQueue struct {
	mu       sync.Mutex
	kv       domain.KVStore
	monitor  domain.ConnectivityMonitor
	handlers map[domain.OperationKind]domain.OperationHandler
	ops      []domain.QueuedOperation
	draining bool
	cfg      Config
}

var _ domain.OperationQueue = (*PersistentQueue)(nil)

// New creates a queue over the given persistence API. Handlers must be
// registered before Drain runs.
func New(kv domain.KVStore, monitor domain.ConnectivityMonitor, cfg Config) *PersistentQueue {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 3
	}
	return &PersistentQueue{
		kv:       kv,
		monitor:  monitor,
		handlers: make(map[domain.OperationKind]domain.OperationHandler),
		cfg:      cfg,
	}
}

// Register installs the handler invoked for one operation kind.
func (q *PersistentQueue) Register(kind domain.OperationKind, handler domain.OperationHandler) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.handlers[kind] = handler
}

// Load restores the durable snapshot. A snapshot that fails to
// deserialize is unrecoverable: the queue resets to empty rather than
// crashing, accepting the data loss. Operations left InProgress by a
// crash mid-drain revert to Pending.
func (q *PersistentQueue) Load(ctx context.Context) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	blob, err := q.kv.Read(ctx, snapshotKey)
	if err != nil {
		if err == domain.ErrKeyNotFound {
			q.ops = nil
			return nil
		}
		return fmt.Errorf("failed to read queue snapshot: %w", err)
	}

	var snap snapshot
	if err := json.Unmarshal(blob, &snap); err != nil {
		logger.Warn("Queue snapshot corrupt, resetting to empty", logger.ErrorField(err))
		q.ops = nil
		return q.persistLocked(ctx)
	}

	for i := range snap.Operations {
		if snap.Operations[i].Status == domain.StatusInProgress {
			snap.Operations[i].Status = domain.StatusPending
		}
	}
	q.ops = snap.Operations

	metrics.SetQueueDepth(q.pendingLocked())
	logger.Info("Queue snapshot restored",
		logger.Int("operations", len(q.ops)),
		logger.Int("pending", q.pendingLocked()),
	)
	return nil
}

// Enqueue validates the payload against its kind's schema, appends the
// operation, and rewrites the durable snapshot. It does not wait for a
// drain; the operation is delivered on the next pass.
func (q *PersistentQueue) Enqueue(ctx context.Context, kind domain.OperationKind, payload any) (domain.QueuedOperation, error) {
	raw, err := domain.EncodePayload(kind, payload)
	if err != nil {
		return domain.QueuedOperation{}, err
	}

	op := domain.QueuedOperation{
		ID:         uuid.NewString(),
		Kind:       kind,
		Payload:    raw,
		EnqueuedAt: time.Now().UTC(),
		Status:     domain.StatusPending,
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	q.ops = append(q.ops, op)
	if err := q.persistLocked(ctx); err != nil {
		// Keep the in-memory entry: the next successful persist will
		// include it, and dropping an accepted write is worse.
		logger.Error("Failed to persist queue snapshot after enqueue",
			logger.String("op_id", op.ID),
			logger.ErrorField(err),
		)
	}

	metrics.RecordOperation(string(kind), "enqueued")
	metrics.SetQueueDepth(q.pendingLocked())
	logger.Debug("Operation enqueued",
		logger.String("op_id", op.ID),
		logger.String("kind", string(kind)),
	)

	return op, nil
}

// Drain processes every operation that was pending when the drain
// started, in FIFO order. Only one drain runs at a time; a concurrent
// call returns domain.ErrDrainInProgress. Operations enqueued while a
// drain is running are picked up by the next pass. Per-operation errors
// never propagate out of Drain; they become state transitions.
func (q *PersistentQueue) Drain(ctx context.Context) error {
	q.mu.Lock()
	if q.draining {
		q.mu.Unlock()
		return domain.ErrDrainInProgress
	}
	q.draining = true

	batch := make([]string, 0, len(q.ops))
	for _, op := range q.ops {
		if op.Status == domain.StatusPending {
			batch = append(batch, op.ID)
		}
	}
	q.mu.Unlock()

	defer func() {
		q.mu.Lock()
		q.draining = false
		q.mu.Unlock()
	}()

	if len(batch) == 0 {
		return nil
	}

	logger.Info("Drain started", logger.Int("operations", len(batch)))
	start := time.Now()

	for _, id := range batch {
		if ctx.Err() != nil {
			logger.Warn("Drain interrupted", logger.ErrorField(ctx.Err()))
			break
		}
		q.processOne(ctx, id)
	}

	metrics.RecordDrainDuration(time.Since(start))
	metrics.SetQueueDepth(q.PendingCount())
	logger.Info("Drain finished",
		logger.Duration("duration", time.Since(start)),
		logger.Int("pending", q.PendingCount()),
	)
	return nil
}

// processOne runs a single attempt of one operation.
func (q *PersistentQueue) processOne(ctx context.Context, id string) {
	q.mu.Lock()
	idx := q.indexLocked(id)
	if idx < 0 || q.ops[idx].Status != domain.StatusPending {
		q.mu.Unlock()
		return
	}
	op := q.ops[idx]
	handler, ok := q.handlers[op.Kind]
	q.ops[idx].Status = domain.StatusInProgress
	if err := q.persistLocked(ctx); err != nil {
		logger.Error("Failed to persist queue snapshot", logger.ErrorField(err))
	}
	q.mu.Unlock()

	var err error
	if !ok {
		err = fmt.Errorf("%w: %s", domain.ErrUnknownKind, op.Kind)
	} else {
		// Previously failed operations back off linearly with their
		// attempt count before the next try.
		if op.AttemptCount > 0 && q.cfg.RetryBackoff > 0 {
			if !sleepCtx(ctx, time.Duration(op.AttemptCount)*q.cfg.RetryBackoff) {
				q.revertToPending(ctx, id)
				return
			}
		}
		err = q.invoke(ctx, handler, op)
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	idx = q.indexLocked(id)
	if idx < 0 {
		return
	}

	if err == nil {
		logger.Info("Operation synced",
			logger.String("op_id", op.ID),
			logger.String("kind", string(op.Kind)),
			logger.Int("attempt_count", q.ops[idx].AttemptCount),
		)
		q.ops = append(q.ops[:idx], q.ops[idx+1:]...)
		metrics.RecordOperation(string(op.Kind), "succeeded")
	} else {
		q.ops[idx].AttemptCount++
		q.ops[idx].LastError = err.Error()
		// Transient and validation failures share the retry budget;
		// the queue does not classify errors.
		if q.ops[idx].AttemptCount < q.cfg.MaxAttempts {
			q.ops[idx].Status = domain.StatusPending
			metrics.RecordOperation(string(op.Kind), "retried")
			logger.Warn("Operation failed, will retry",
				logger.String("op_id", op.ID),
				logger.String("kind", string(op.Kind)),
				logger.Int("attempt_count", q.ops[idx].AttemptCount),
				logger.ErrorField(err),
			)
		} else {
			q.ops[idx].Status = domain.StatusFailed
			metrics.RecordOperation(string(op.Kind), "failed")
			logger.Error("Operation failed permanently",
				logger.String("op_id", op.ID),
				logger.String("kind", string(op.Kind)),
				logger.Int("attempt_count", q.ops[idx].AttemptCount),
				logger.ErrorField(err),
			)
		}
	}

	if err := q.persistLocked(ctx); err != nil {
		logger.Error("Failed to persist queue snapshot", logger.ErrorField(err))
	}
}

// invoke runs the handler under the per-attempt timeout. A timeout is
// treated like any other failure for retry-counting purposes.
func (q *PersistentQueue) invoke(ctx context.Context, handler domain.OperationHandler, op domain.QueuedOperation) error {
	if q.cfg.HandlerTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, q.cfg.HandlerTimeout)
		defer cancel()
	}
	return handler(ctx, op)
}

func (q *PersistentQueue) revertToPending(ctx context.Context, id string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if idx := q.indexLocked(id); idx >= 0 && q.ops[idx].Status == domain.StatusInProgress {
		q.ops[idx].Status = domain.StatusPending
		if err := q.persistLocked(ctx); err != nil {
			logger.Error("Failed to persist queue snapshot", logger.ErrorField(err))
		}
	}
}

// PendingCount returns the number of operations still awaiting delivery.
// Safe to call from UI polling code.
func (q *PersistentQueue) PendingCount() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.pendingLocked()
}

// Operations returns a copy of the durable list in enqueue order.
func (q *PersistentQueue) Operations() []domain.QueuedOperation {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]domain.QueuedOperation, len(q.ops))
	copy(out, q.ops)
	return out
}

// FailedOperations returns a copy of the operations that exhausted their
// retry budget. They stay in the snapshot until retried or the queue is
// reset.
func (q *PersistentQueue) FailedOperations() []domain.QueuedOperation {
	q.mu.Lock()
	defer q.mu.Unlock()
	var failed []domain.QueuedOperation
	for _, op := range q.ops {
		if op.Status == domain.StatusFailed {
			failed = append(failed, op)
		}
	}
	return failed
}

// RetryFailed resets every Failed operation to Pending with a fresh
// attempt budget. Delivery happens on the next drain.
func (q *PersistentQueue) RetryFailed(ctx context.Context) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	changed := false
	for i := range q.ops {
		if q.ops[i].Status == domain.StatusFailed {
			q.ops[i].Status = domain.StatusPending
			q.ops[i].AttemptCount = 0
			q.ops[i].LastError = ""
			changed = true
		}
	}
	if !changed {
		return nil
	}
	metrics.SetQueueDepth(q.pendingLocked())
	return q.persistLocked(ctx)
}

// Start subscribes to connectivity transitions and drains automatically
// whenever the client comes back online. It blocks until context
// cancellation; run it in its own goroutine.
func (q *PersistentQueue) Start(ctx context.Context) {
	states := q.monitor.Subscribe()

	// Catch up immediately if we restarted while online with a backlog.
	if q.monitor.Current() == domain.ConnOnline && q.PendingCount() > 0 {
		q.drainAuto(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			logger.Info("Queue auto-drain stopping", logger.ErrorField(ctx.Err()))
			return
		case state := <-states:
			if state == domain.ConnOnline {
				q.drainAuto(ctx)
			}
		}
	}
}

func (q *PersistentQueue) drainAuto(ctx context.Context) {
	if err := q.Drain(ctx); err != nil && err != domain.ErrDrainInProgress {
		logger.Error("Auto drain failed", logger.ErrorField(err))
	}
}

func (q *PersistentQueue) indexLocked(id string) int {
	for i, op := range q.ops {
		if op.ID == id {
			return i
		}
	}
	return -1
}

func (q *PersistentQueue) pendingLocked() int {
	n := 0
	for _, op := range q.ops {
		if op.Status == domain.StatusPending || op.Status == domain.StatusInProgress {
			n++
		}
	}
	return n
}

// persistLocked rewrites the entire durable snapshot. Callers hold q.mu.
func (q *PersistentQueue) persistLocked(ctx context.Context) error {
	blob, err := json.Marshal(snapshot{Operations: q.ops})
	if err != nil {
		return fmt.Errorf("failed to marshal queue snapshot: %w", err)
	}
	if err := q.kv.Write(ctx, snapshotKey, blob); err != nil {
		return fmt.Errorf("failed to write queue snapshot: %w", err)
	}
	return nil
}

// sleepCtx sleeps for d unless the context is cancelled first.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
