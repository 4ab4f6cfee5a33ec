package domain

import (
	"context"
	"encoding/json"
	"time"
)

// ConnState is the reachability state reported by a ConnectivityMonitor.
type ConnState string

const (
	ConnOnline  ConnState = "online"
	ConnOffline ConnState = "offline"
)

// ConnectivityMonitor observes network reachability. It is purely
// observational: no retries, no side effects on other components.
type ConnectivityMonitor interface {
	// Current returns the last observed state.
	Current() ConnState
	// Subscribe returns a channel delivering state transitions. Each
	// subscriber gets its own channel; slow subscribers may miss
	// intermediate transitions but always receive the latest one.
	Subscribe() <-chan ConnState
}

// KVStore is the key-value persistence API backing the queue snapshot
// and the per-tenant cache records. Writes are atomic per key.
type KVStore interface {
	Read(ctx context.Context, key string) ([]byte, error)
	Write(ctx context.Context, key string, blob []byte) error
	Delete(ctx context.Context, key string) error
	DeletePrefix(ctx context.Context, prefix string) error
	Close() error
}

// CacheRecord is the persisted per-tenant collection snapshot.
type CacheRecord struct {
	Entities []json.RawMessage `json:"entities"`
	CachedAt time.Time         `json:"cached_at"`
}

// RemoteStore is the hosted document store the client synchronizes with.
type RemoteStore interface {
	CreateOrder(ctx context.Context, p CreateOrderPayload) error
	CancelOrder(ctx context.Context, p CancelOrderPayload) error
	UpdateOrderStatus(ctx context.Context, p UpdateOrderStatusPayload) error
	CreatePrescription(ctx context.Context, p CreatePrescriptionPayload) error
	UpdatePrescriptionStatus(ctx context.Context, p UpdatePrescriptionStatusPayload) error

	ListOrders(ctx context.Context, tenantID string) ([]Order, error)
	ListPrescriptions(ctx context.Context, tenantID string) ([]Prescription, error)
	ListPharmacies(ctx context.Context) ([]Pharmacy, error)
}

// OperationQueue is the durable mutation queue consumed by the facade.
type OperationQueue interface {
	Enqueue(ctx context.Context, kind OperationKind, payload any) (QueuedOperation, error)
	Drain(ctx context.Context) error
	PendingCount() int
	FailedOperations() []QueuedOperation
	RetryFailed(ctx context.Context) error
}

// CacheCoordinator orchestrates the multi-layer read cache.
type CacheCoordinator interface {
	Read(ctx context.Context, tenantID, collection string) ([]json.RawMessage, error)
	Write(ctx context.Context, tenantID, collection string, entities []json.RawMessage) error
	Invalidate(ctx context.Context, tenantID string) error
	InvalidateAll(ctx context.Context) error
}
