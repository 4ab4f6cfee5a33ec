package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/farhanzaki/apotekgo/internal/cache"
	"github.com/farhanzaki/apotekgo/internal/connectivity"
	"github.com/farhanzaki/apotekgo/internal/domain"
	"github.com/farhanzaki/apotekgo/internal/queue"
	"github.com/farhanzaki/apotekgo/internal/repository/kv"
)

// fakeRemote records every call in order and can be told to fail.
type fakeRemote struct {
	calls      []string
	failing    bool
	orders     []domain.Order
	rxs        []domain.Prescription
	pharmacies []domain.Pharmacy
	listCalls  int
}

func (f *fakeRemote) record(name string) error {
	if f.failing {
		return errors.New("remote unreachable")
	}
	f.calls = append(f.calls, name)
	return nil
}

func (f *fakeRemote) CreateOrder(_ context.Context, p domain.CreateOrderPayload) error {
	return f.record("create_order:" + p.OrderID)
}

func (f *fakeRemote) CancelOrder(_ context.Context, p domain.CancelOrderPayload) error {
	return f.record("cancel_order:" + p.OrderID)
}

func (f *fakeRemote) UpdateOrderStatus(_ context.Context, p domain.UpdateOrderStatusPayload) error {
	return f.record("update_order_status:" + p.OrderID)
}

func (f *fakeRemote) CreatePrescription(_ context.Context, p domain.CreatePrescriptionPayload) error {
	return f.record("create_prescription:" + p.PrescriptionID)
}

func (f *fakeRemote) UpdatePrescriptionStatus(_ context.Context, p domain.UpdatePrescriptionStatusPayload) error {
	return f.record("update_prescription_status:" + p.PrescriptionID)
}

func (f *fakeRemote) ListOrders(context.Context, string) ([]domain.Order, error) {
	f.listCalls++
	if f.failing {
		return nil, errors.New("remote unreachable")
	}
	return f.orders, nil
}

func (f *fakeRemote) ListPrescriptions(context.Context, string) ([]domain.Prescription, error) {
	f.listCalls++
	if f.failing {
		return nil, errors.New("remote unreachable")
	}
	return f.rxs, nil
}

func (f *fakeRemote) ListPharmacies(context.Context) ([]domain.Pharmacy, error) {
	f.listCalls++
	if f.failing {
		return nil, errors.New("remote unreachable")
	}
	return f.pharmacies, nil
}

type fixture struct {
	uc      *syncUsecase
	monitor *connectivity.Monitor
	queue   *queue.PersistentQueue
	remote  *fakeRemote
}

func newFixture(t *testing.T, initial domain.ConnState) *fixture {
	t.Helper()

	store := kv.NewMemoryStore()
	monitor := connectivity.NewMonitor(connectivity.MonitorConfig{InitialState: initial})
	coordinator := cache.NewCoordinator(store, cache.Config{
		LRUCapacity: 10,
		TTL:         24 * time.Hour,
		Shapes:      map[string]cache.Shape{CollectionPharmacies: cache.ShapeShared},
	})
	q := queue.New(store, monitor, queue.Config{MaxAttempts: 3})
	require.NoError(t, q.Load(context.Background()))
	remote := &fakeRemote{}

	return &fixture{
		uc:      NewSyncUsecase(monitor, q, coordinator, remote),
		monitor: monitor,
		queue:   q,
		remote:  remote,
	}
}

func testOrder(orderID string) domain.CreateOrderPayload {
	return domain.CreateOrderPayload{
		OrderID:    orderID,
		TenantID:   "tenant-a",
		PharmacyID: "ph-1",
		Items: []domain.Item{
			{MedicineID: "med-1", Name: "Amoxicillin 500mg", Quantity: 1, UnitPrice: 4.25},
		},
		TotalPrice: 4.25,
		Address:    "Jl. Sudirman 10",
	}
}

func TestSync_OfflineWritesDrainInOrder(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, domain.ConnOffline)

	// Offline: both writes are queued, never executed.
	outcome, err := f.uc.CreateOrder(ctx, testOrder("order-A"))
	require.NoError(t, err)
	assert.Equal(t, Queued, outcome)
	assert.Equal(t, 1, f.uc.PendingOperationsCount())

	outcome, err = f.uc.UpdatePrescriptionStatus(ctx, domain.UpdatePrescriptionStatusPayload{
		PrescriptionID: "rx-A", TenantID: "tenant-a", Status: "verified",
	})
	require.NoError(t, err)
	assert.Equal(t, Queued, outcome)
	assert.Equal(t, 2, f.uc.PendingOperationsCount())
	assert.Empty(t, f.remote.calls)

	// Connectivity restored: the drain replays both, in enqueue order.
	f.monitor.SetState(domain.ConnOnline)
	require.NoError(t, f.uc.ForceSync(ctx))

	assert.Equal(t, []string{
		"create_order:order-A",
		"update_prescription_status:rx-A",
	}, f.remote.calls)
	assert.Equal(t, 0, f.uc.PendingOperationsCount())
	assert.Empty(t, f.queue.Operations(), "queue is empty after a clean drain")
}

func TestSync_OnlineWriteExecutesImmediately(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, domain.ConnOnline)

	outcome, err := f.uc.CreateOrder(ctx, testOrder("order-A"))
	require.NoError(t, err)
	assert.Equal(t, ExecutedImmediately, outcome)
	assert.Equal(t, []string{"create_order:order-A"}, f.remote.calls)
	assert.Equal(t, 0, f.uc.PendingOperationsCount())
}

func TestSync_OnlineWriteFailureSurfacesToCaller(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, domain.ConnOnline)
	f.remote.failing = true

	_, err := f.uc.CreateOrder(ctx, testOrder("order-A"))
	assert.Error(t, err)
	assert.Equal(t, 0, f.uc.PendingOperationsCount(), "online failures are not auto-queued")
}

func TestSync_InvalidPayloadRejectedOnlineAndOffline(t *testing.T) {
	ctx := context.Background()
	bad := domain.CreateOrderPayload{OrderID: "order-A"}

	online := newFixture(t, domain.ConnOnline)
	_, err := online.uc.CreateOrder(ctx, bad)
	assert.ErrorIs(t, err, domain.ErrInvalidPayload)
	assert.Empty(t, online.remote.calls)

	offline := newFixture(t, domain.ConnOffline)
	_, err = offline.uc.CreateOrder(ctx, bad)
	assert.ErrorIs(t, err, domain.ErrInvalidPayload)
	assert.Equal(t, 0, offline.uc.PendingOperationsCount())
}

func TestSync_ReadThroughCachesRemoteFetch(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, domain.ConnOnline)
	f.remote.orders = []domain.Order{
		{ID: "order-1", TenantID: "tenant-a", Status: "placed"},
	}

	// Cold cache: fetched from the remote store.
	orders, err := f.uc.GetOrders(ctx, "tenant-a")
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, 1, f.remote.listCalls)

	// Warm cache: served locally.
	orders, err = f.uc.GetOrders(ctx, "tenant-a")
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, "order-1", orders[0].ID)
	assert.Equal(t, 1, f.remote.listCalls, "second read must not hit the remote store")
}

func TestSync_OfflineColdReadReportsNotAvailable(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, domain.ConnOffline)

	_, err := f.uc.GetOrders(ctx, "tenant-a")
	assert.ErrorIs(t, err, domain.ErrNotAvailable)
	assert.Equal(t, 0, f.remote.listCalls, "no remote call while offline")
}

func TestSync_OfflineWarmReadServedFromCache(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, domain.ConnOnline)
	f.remote.pharmacies = []domain.Pharmacy{
		{ID: "ph-1", Name: "Apotek Sehat", IsOpen: true},
	}

	_, err := f.uc.GetPharmacies(ctx)
	require.NoError(t, err)

	// Losing connectivity does not lose the cached catalogue.
	f.monitor.SetState(domain.ConnOffline)
	pharmacies, err := f.uc.GetPharmacies(ctx)
	require.NoError(t, err)
	require.Len(t, pharmacies, 1)
	assert.Equal(t, "Apotek Sehat", pharmacies[0].Name)
}

func TestSync_LogoutClearsCache(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, domain.ConnOnline)
	f.remote.orders = []domain.Order{{ID: "order-1", TenantID: "tenant-a"}}

	_, err := f.uc.GetOrders(ctx, "tenant-a")
	require.NoError(t, err)
	require.NoError(t, f.uc.Logout(ctx))

	f.monitor.SetState(domain.ConnOffline)
	_, err = f.uc.GetOrders(ctx, "tenant-a")
	assert.ErrorIs(t, err, domain.ErrNotAvailable)
}

func TestSync_SwitchAccountClearsOnlyThatTenant(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, domain.ConnOnline)
	f.remote.rxs = []domain.Prescription{{ID: "rx-1", TenantID: "tenant-a"}}

	_, err := f.uc.GetPrescriptions(ctx, "tenant-a")
	require.NoError(t, err)

	f.remote.pharmacies = []domain.Pharmacy{{ID: "ph-1", Name: "Apotek Kita"}}
	_, err = f.uc.GetPharmacies(ctx)
	require.NoError(t, err)

	require.NoError(t, f.uc.SwitchAccount(ctx, "tenant-a"))
	f.monitor.SetState(domain.ConnOffline)

	_, err = f.uc.GetPrescriptions(ctx, "tenant-a")
	assert.ErrorIs(t, err, domain.ErrNotAvailable)

	pharmacies, err := f.uc.GetPharmacies(ctx)
	require.NoError(t, err, "shared catalogue survives an account switch")
	assert.Len(t, pharmacies, 1)
}

func TestSync_RetryBudgetSharedAcrossErrorClasses(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, domain.ConnOffline)

	_, err := f.uc.CreateOrder(ctx, testOrder("order-A"))
	require.NoError(t, err)

	// The remote keeps rejecting; the queue does not classify errors, so
	// the write burns its whole budget before landing in Failed.
	f.remote.failing = true
	f.monitor.SetState(domain.ConnOnline)
	for i := 0; i < 3; i++ {
		require.NoError(t, f.uc.ForceSync(ctx))
	}

	assert.Equal(t, 0, f.uc.PendingOperationsCount())
	failed := f.uc.FailedOperations()
	require.Len(t, failed, 1)
	assert.Equal(t, 3, failed[0].AttemptCount)

	// A manual retry after the remote recovers delivers it.
	f.remote.failing = false
	require.NoError(t, f.uc.RetryFailed(ctx))
	require.NoError(t, f.uc.ForceSync(ctx))
	assert.Empty(t, f.uc.FailedOperations())
	assert.Equal(t, []string{"create_order:order-A"}, f.remote.calls)
}
