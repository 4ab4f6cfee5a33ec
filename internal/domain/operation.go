package domain

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// OperationKind identifies the type of a queued mutation. The set is
// closed per build: adding a kind requires a payload type, a validation
// schema and a registered handler.
type OperationKind string

const (
	KindCreateOrder              OperationKind = "create_order"
	KindCancelOrder              OperationKind = "cancel_order"
	KindUpdateOrderStatus        OperationKind = "update_order_status"
	KindCreatePrescription       OperationKind = "create_prescription"
	KindUpdatePrescriptionStatus OperationKind = "update_prescription_status"
)

// OperationStatus represents the lifecycle state of a queued operation.
type OperationStatus string

const (
	StatusPending    OperationStatus = "pending"
	StatusInProgress OperationStatus = "in_progress"
	StatusSucceeded  OperationStatus = "succeeded"
	StatusFailed     OperationStatus = "failed"
)

// QueuedOperation is a single durable mutation awaiting delivery to the
// remote store. Status only moves Pending -> InProgress -> removed on
// success, back to Pending on a retryable failure, or Failed once the
// attempt budget is exhausted. Failed operations stay in the snapshot
// for inspection.
type QueuedOperation struct {
	ID           string          `json:"id"`
	Kind         OperationKind   `json:"kind"`
	Payload      json.RawMessage `json:"payload"`
	EnqueuedAt   time.Time       `json:"enqueued_at"`
	AttemptCount int             `json:"attempt_count"`
	Status       OperationStatus `json:"status"`
	LastError    string          `json:"last_error,omitempty"`
}

// OperationHandler executes one operation kind against the remote store.
// The queue only inspects the returned error: nil removes the operation,
// non-nil consumes one retry attempt.
type OperationHandler func(ctx context.Context, op QueuedOperation) error

// CreateOrderPayload carries a new delivery order.
type CreateOrderPayload struct {
	OrderID        string  `json:"order_id" validate:"required"`
	TenantID       string  `json:"tenant_id" validate:"required"`
	PrescriptionID string  `json:"prescription_id,omitempty"`
	PharmacyID     string  `json:"pharmacy_id" validate:"required"`
	Items          []Item  `json:"items" validate:"required,min=1,dive"`
	TotalPrice     float64 `json:"total_price" validate:"gte=0"`
	Address        string  `json:"address" validate:"required"`
}

// Item is a single order line.
type Item struct {
	MedicineID string  `json:"medicine_id" validate:"required"`
	Name       string  `json:"name" validate:"required"`
	Quantity   int     `json:"quantity" validate:"gt=0"`
	UnitPrice  float64 `json:"unit_price" validate:"gte=0"`
}

// CancelOrderPayload cancels a previously created order.
type CancelOrderPayload struct {
	OrderID  string `json:"order_id" validate:"required"`
	TenantID string `json:"tenant_id" validate:"required"`
	Reason   string `json:"reason,omitempty"`
}

// UpdateOrderStatusPayload moves an order through its delivery states.
type UpdateOrderStatusPayload struct {
	OrderID  string `json:"order_id" validate:"required"`
	TenantID string `json:"tenant_id" validate:"required"`
	Status   string `json:"status" validate:"required,oneof=placed accepted picked_up delivered cancelled"`
}

// CreatePrescriptionPayload registers a scanned prescription.
type CreatePrescriptionPayload struct {
	PrescriptionID string `json:"prescription_id" validate:"required"`
	TenantID       string `json:"tenant_id" validate:"required"`
	DoctorName     string `json:"doctor_name,omitempty"`
	IssuedAt       string `json:"issued_at,omitempty"`
	Items          []Item `json:"items" validate:"required,min=1,dive"`
}

// UpdatePrescriptionStatusPayload updates the review state of a prescription.
type UpdatePrescriptionStatusPayload struct {
	PrescriptionID string `json:"prescription_id" validate:"required"`
	TenantID       string `json:"tenant_id" validate:"required"`
	Status         string `json:"status" validate:"required,oneof=submitted verified rejected dispensed"`
}

var validate = validator.New()

// payloadPrototypes maps each kind to a freshly decodable payload value.
func payloadPrototype(kind OperationKind) (any, error) {
	switch kind {
	case KindCreateOrder:
		return &CreateOrderPayload{}, nil
	case KindCancelOrder:
		return &CancelOrderPayload{}, nil
	case KindUpdateOrderStatus:
		return &UpdateOrderStatusPayload{}, nil
	case KindCreatePrescription:
		return &CreatePrescriptionPayload{}, nil
	case KindUpdatePrescriptionStatus:
		return &UpdatePrescriptionStatusPayload{}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownKind, kind)
	}
}

// EncodePayload validates a typed payload against its kind's schema and
// serializes it for queueing. Validation happens here, at enqueue time,
// never at handler-invocation time.
func EncodePayload(kind OperationKind, payload any) (json.RawMessage, error) {
	if _, err := payloadPrototype(kind); err != nil {
		return nil, err
	}
	if err := validate.Struct(payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}
	return raw, nil
}

// DecodePayload deserializes an operation's payload into its typed form.
func DecodePayload(op QueuedOperation) (any, error) {
	target, err := payloadPrototype(op.Kind)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(op.Payload, target); err != nil {
		return nil, fmt.Errorf("failed to unmarshal %s payload: %w", op.Kind, err)
	}
	return target, nil
}
