package usecase

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/farhanzaki/apotekgo/internal/domain"
	"github.com/farhanzaki/apotekgo/internal/queue"
	"github.com/farhanzaki/apotekgo/pkg/logger"
)

// Collection names used as cache partitions.
const (
	CollectionOrders        = "orders"
	CollectionPrescriptions = "prescriptions"
	CollectionPharmacies    = "pharmacies"
)

// SharedTenant keys collections shared across accounts, such as the
// pharmacy catalogue.
const SharedTenant = "shared"

// WriteOutcome tells the caller whether a write reached the remote store
// synchronously or was queued for a later drain.
type WriteOutcome string

const (
	ExecutedImmediately WriteOutcome = "executed_immediately"
	Queued              WriteOutcome = "queued"
)

// SyncUsecase is the offline-aware facade the UI layer talks to. It
// wires per-kind handlers into the queue, routes writes by current
// reachability, and serves reads through the cache coordinator with the
// remote store as the source of truth.
type syncUsecase struct {
	monitor domain.ConnectivityMonitor
	queue   *queue.PersistentQueue
	cache   domain.CacheCoordinator
	remote  domain.RemoteStore
}

// NewSyncUsecase creates the facade and registers one queue handler per
// operation kind.
func NewSyncUsecase(
	monitor domain.ConnectivityMonitor,
	q *queue.PersistentQueue,
	cache domain.CacheCoordinator,
	remote domain.RemoteStore,
) *syncUsecase {
	uc := &syncUsecase{
		monitor: monitor,
		queue:   q,
		cache:   cache,
		remote:  remote,
	}

	for _, kind := range []domain.OperationKind{
		domain.KindCreateOrder,
		domain.KindCancelOrder,
		domain.KindUpdateOrderStatus,
		domain.KindCreatePrescription,
		domain.KindUpdatePrescriptionStatus,
	} {
		q.Register(kind, uc.handleOperation)
	}

	return uc
}

// handleOperation is the queue-side entry point: decode the payload and
// replay it against the remote store.
func (uc *syncUsecase) handleOperation(ctx context.Context, op domain.QueuedOperation) error {
	payload, err := domain.DecodePayload(op)
	if err != nil {
		return err
	}
	return uc.dispatch(ctx, payload)
}

// dispatch routes a typed payload to its remote store call.
func (uc *syncUsecase) dispatch(ctx context.Context, payload any) error {
	switch p := payload.(type) {
	case *domain.CreateOrderPayload:
		return uc.remote.CreateOrder(ctx, *p)
	case domain.CreateOrderPayload:
		return uc.remote.CreateOrder(ctx, p)
	case *domain.CancelOrderPayload:
		return uc.remote.CancelOrder(ctx, *p)
	case domain.CancelOrderPayload:
		return uc.remote.CancelOrder(ctx, p)
	case *domain.UpdateOrderStatusPayload:
		return uc.remote.UpdateOrderStatus(ctx, *p)
	case domain.UpdateOrderStatusPayload:
		return uc.remote.UpdateOrderStatus(ctx, p)
	case *domain.CreatePrescriptionPayload:
		return uc.remote.CreatePrescription(ctx, *p)
	case domain.CreatePrescriptionPayload:
		return uc.remote.CreatePrescription(ctx, p)
	case *domain.UpdatePrescriptionStatusPayload:
		return uc.remote.UpdatePrescriptionStatus(ctx, *p)
	case domain.UpdatePrescriptionStatusPayload:
		return uc.remote.UpdatePrescriptionStatus(ctx, p)
	default:
		return fmt.Errorf("%w: %T", domain.ErrUnknownKind, payload)
	}
}

// EnqueueIfOffline performs a write now when online, otherwise queues it
// for the next drain. The caller gets the intent synchronously even
// though a queued write completes later.
func (uc *syncUsecase) EnqueueIfOffline(ctx context.Context, kind domain.OperationKind, payload any) (WriteOutcome, error) {
	if uc.monitor.Current() == domain.ConnOnline {
		// Validate the same way enqueue would; an invalid payload must
		// not reach the remote store either.
		if _, err := domain.EncodePayload(kind, payload); err != nil {
			return "", err
		}
		if err := uc.dispatch(ctx, payload); err != nil {
			return "", err
		}
		return ExecutedImmediately, nil
	}

	op, err := uc.queue.Enqueue(ctx, kind, payload)
	if err != nil {
		return "", err
	}
	logger.Info("Write queued for later sync",
		logger.String("op_id", op.ID),
		logger.String("kind", string(kind)),
	)
	return Queued, nil
}

// CreateOrder places a delivery order, offline-aware.
func (uc *syncUsecase) CreateOrder(ctx context.Context, p domain.CreateOrderPayload) (WriteOutcome, error) {
	return uc.EnqueueIfOffline(ctx, domain.KindCreateOrder, p)
}

// CancelOrder cancels an order, offline-aware.
func (uc *syncUsecase) CancelOrder(ctx context.Context, p domain.CancelOrderPayload) (WriteOutcome, error) {
	return uc.EnqueueIfOffline(ctx, domain.KindCancelOrder, p)
}

// UpdateOrderStatus moves an order through its delivery states, offline-aware.
func (uc *syncUsecase) UpdateOrderStatus(ctx context.Context, p domain.UpdateOrderStatusPayload) (WriteOutcome, error) {
	return uc.EnqueueIfOffline(ctx, domain.KindUpdateOrderStatus, p)
}

// CreatePrescription registers a scanned prescription, offline-aware.
func (uc *syncUsecase) CreatePrescription(ctx context.Context, p domain.CreatePrescriptionPayload) (WriteOutcome, error) {
	return uc.EnqueueIfOffline(ctx, domain.KindCreatePrescription, p)
}

// UpdatePrescriptionStatus updates a prescription's review state, offline-aware.
func (uc *syncUsecase) UpdatePrescriptionStatus(ctx context.Context, p domain.UpdatePrescriptionStatusPayload) (WriteOutcome, error) {
	return uc.EnqueueIfOffline(ctx, domain.KindUpdatePrescriptionStatus, p)
}

// GetOrders serves a tenant's orders cache-first. On a full cache miss
// it fetches from the remote store and feeds the coordinator; offline
// with a cold cache it reports domain.ErrNotAvailable.
func (uc *syncUsecase) GetOrders(ctx context.Context, tenantID string) ([]domain.Order, error) {
	raw, err := uc.cache.Read(ctx, tenantID, CollectionOrders)
	if err == nil {
		return decodeEntities[domain.Order](raw)
	}
	if err != domain.ErrNotAvailable {
		return nil, err
	}
	if uc.monitor.Current() != domain.ConnOnline {
		return nil, domain.ErrNotAvailable
	}

	orders, err := uc.remote.ListOrders(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	uc.refreshCache(ctx, tenantID, CollectionOrders, encodeEntities(orders))
	return orders, nil
}

// GetPrescriptions serves a tenant's prescriptions cache-first.
func (uc *syncUsecase) GetPrescriptions(ctx context.Context, tenantID string) ([]domain.Prescription, error) {
	raw, err := uc.cache.Read(ctx, tenantID, CollectionPrescriptions)
	if err == nil {
		return decodeEntities[domain.Prescription](raw)
	}
	if err != domain.ErrNotAvailable {
		return nil, err
	}
	if uc.monitor.Current() != domain.ConnOnline {
		return nil, domain.ErrNotAvailable
	}

	prescriptions, err := uc.remote.ListPrescriptions(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	uc.refreshCache(ctx, tenantID, CollectionPrescriptions, encodeEntities(prescriptions))
	return prescriptions, nil
}

// GetPharmacies serves the shared pharmacy catalogue cache-first.
func (uc *syncUsecase) GetPharmacies(ctx context.Context) ([]domain.Pharmacy, error) {
	raw, err := uc.cache.Read(ctx, SharedTenant, CollectionPharmacies)
	if err == nil {
		return decodeEntities[domain.Pharmacy](raw)
	}
	if err != domain.ErrNotAvailable {
		return nil, err
	}
	if uc.monitor.Current() != domain.ConnOnline {
		return nil, domain.ErrNotAvailable
	}

	pharmacies, err := uc.remote.ListPharmacies(ctx)
	if err != nil {
		return nil, err
	}
	uc.refreshCache(ctx, SharedTenant, CollectionPharmacies, encodeEntities(pharmacies))
	return pharmacies, nil
}

func (uc *syncUsecase) refreshCache(ctx context.Context, tenantID, collection string, entities []json.RawMessage) {
	if err := uc.cache.Write(ctx, tenantID, collection, entities); err != nil {
		logger.Error("Failed to refresh cache",
			logger.String("tenant_id", tenantID),
			logger.String("collection", collection),
			logger.ErrorField(err),
		)
	}
}

// ForceSync manually triggers a drain, e.g. from a "sync now" button.
func (uc *syncUsecase) ForceSync(ctx context.Context) error {
	return uc.queue.Drain(ctx)
}

// PendingOperationsCount reports how many writes still await delivery.
func (uc *syncUsecase) PendingOperationsCount() int {
	return uc.queue.PendingCount()
}

// FailedOperations exposes operations that exhausted their retry budget.
func (uc *syncUsecase) FailedOperations() []domain.QueuedOperation {
	return uc.queue.FailedOperations()
}

// RetryFailed requeues failed operations with a fresh attempt budget.
func (uc *syncUsecase) RetryFailed(ctx context.Context) error {
	return uc.queue.RetryFailed(ctx)
}

// SwitchAccount clears one tenant's cached data, e.g. on account switch.
func (uc *syncUsecase) SwitchAccount(ctx context.Context, tenantID string) error {
	return uc.cache.Invalidate(ctx, tenantID)
}

// Logout wipes every cache layer.
func (uc *syncUsecase) Logout(ctx context.Context) error {
	return uc.cache.InvalidateAll(ctx)
}

func encodeEntities[T any](items []T) []json.RawMessage {
	raw := make([]json.RawMessage, 0, len(items))
	for _, item := range items {
		blob, err := json.Marshal(item)
		if err != nil {
			logger.Error("Failed to marshal entity for cache", logger.ErrorField(err))
			continue
		}
		raw = append(raw, blob)
	}
	return raw
}

func decodeEntities[T any](raw []json.RawMessage) ([]T, error) {
	items := make([]T, 0, len(raw))
	for _, blob := range raw {
		var item T
		if err := json.Unmarshal(blob, &item); err != nil {
			return nil, fmt.Errorf("failed to unmarshal cached entity: %w", err)
		}
		items = append(items, item)
	}
	return items, nil
}
