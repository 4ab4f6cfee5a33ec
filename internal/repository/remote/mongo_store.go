package remote

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/farhanzaki/apotekgo/internal/domain"
	"github.com/farhanzaki/apotekgo/pkg/metrics"
)

const (
	ordersCollection        = "orders"
	prescriptionsCollection = "prescriptions"
	pharmaciesCollection    = "pharmacies"
)

// MongoStore is the hosted document store the client synchronizes with.
type MongoStore struct {
	db *mongo.Database
}

var _ domain.RemoteStore = (*MongoStore)(nil)

// NewMongoStore creates a remote store over an established client.
func NewMongoStore(client *mongo.Client, database string) *MongoStore {
	return &MongoStore{db: client.Database(database)}
}

func replaceUpsert() *options.ReplaceOptions {
	return options.Replace().SetUpsert(true)
}

func (s *MongoStore) CreateOrder(ctx context.Context, p domain.CreateOrderPayload) error {
	start := time.Now()
	now := time.Now().UTC()
	order := domain.Order{
		ID:             p.OrderID,
		TenantID:       p.TenantID,
		PrescriptionID: p.PrescriptionID,
		PharmacyID:     p.PharmacyID,
		Items:          p.Items,
		TotalPrice:     p.TotalPrice,
		Address:        p.Address,
		Status:         "placed",
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	// Upsert keyed by the client-assigned ID so a retried operation
	// that already reached the server does not duplicate the order.
	_, err := s.db.Collection(ordersCollection).ReplaceOne(ctx,
		bson.M{"_id": p.OrderID}, order, replaceUpsert())
	metrics.RecordRemoteRequest("create_order", err, time.Since(start))
	if err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}
	return nil
}

func (s *MongoStore) CancelOrder(ctx context.Context, p domain.CancelOrderPayload) error {
	start := time.Now()
	_, err := s.db.Collection(ordersCollection).UpdateOne(ctx,
		bson.M{"_id": p.OrderID, "tenant_id": p.TenantID},
		bson.M{"$set": bson.M{"status": "cancelled", "updated_at": time.Now().UTC()}},
	)
	metrics.RecordRemoteRequest("cancel_order", err, time.Since(start))
	if err != nil {
		return fmt.Errorf("failed to cancel order: %w", err)
	}
	return nil
}

func (s *MongoStore) UpdateOrderStatus(ctx context.Context, p domain.UpdateOrderStatusPayload) error {
	start := time.Now()
	_, err := s.db.Collection(ordersCollection).UpdateOne(ctx,
		bson.M{"_id": p.OrderID, "tenant_id": p.TenantID},
		bson.M{"$set": bson.M{"status": p.Status, "updated_at": time.Now().UTC()}},
	)
	metrics.RecordRemoteRequest("update_order_status", err, time.Since(start))
	if err != nil {
		return fmt.Errorf("failed to update order status: %w", err)
	}
	return nil
}

func (s *MongoStore) CreatePrescription(ctx context.Context, p domain.CreatePrescriptionPayload) error {
	start := time.Now()
	now := time.Now().UTC()
	prescription := domain.Prescription{
		ID:         p.PrescriptionID,
		TenantID:   p.TenantID,
		DoctorName: p.DoctorName,
		IssuedAt:   p.IssuedAt,
		Items:      p.Items,
		Status:     "submitted",
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	_, err := s.db.Collection(prescriptionsCollection).ReplaceOne(ctx,
		bson.M{"_id": p.PrescriptionID}, prescription, replaceUpsert())
	metrics.RecordRemoteRequest("create_prescription", err, time.Since(start))
	if err != nil {
		return fmt.Errorf("failed to create prescription: %w", err)
	}
	return nil
}

func (s *MongoStore) UpdatePrescriptionStatus(ctx context.Context, p domain.UpdatePrescriptionStatusPayload) error {
	start := time.Now()
	_, err := s.db.Collection(prescriptionsCollection).UpdateOne(ctx,
		bson.M{"_id": p.PrescriptionID, "tenant_id": p.TenantID},
		bson.M{"$set": bson.M{"status": p.Status, "updated_at": time.Now().UTC()}},
	)
	metrics.RecordRemoteRequest("update_prescription_status", err, time.Since(start))
	if err != nil {
		return fmt.Errorf("failed to update prescription status: %w", err)
	}
	return nil
}

func (s *MongoStore) ListOrders(ctx context.Context, tenantID string) ([]domain.Order, error) {
	start := time.Now()
	cursor, err := s.db.Collection(ordersCollection).Find(ctx, bson.M{"tenant_id": tenantID})
	if err != nil {
		metrics.RecordRemoteRequest("list_orders", err, time.Since(start))
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	var orders []domain.Order
	err = cursor.All(ctx, &orders)
	metrics.RecordRemoteRequest("list_orders", err, time.Since(start))
	if err != nil {
		return nil, fmt.Errorf("failed to decode orders: %w", err)
	}
	return orders, nil
}

func (s *MongoStore) ListPrescriptions(ctx context.Context, tenantID string) ([]domain.Prescription, error) {
	start := time.Now()
	cursor, err := s.db.Collection(prescriptionsCollection).Find(ctx, bson.M{"tenant_id": tenantID})
	if err != nil {
		metrics.RecordRemoteRequest("list_prescriptions", err, time.Since(start))
		return nil, fmt.Errorf("failed to list prescriptions: %w", err)
	}
	var prescriptions []domain.Prescription
	err = cursor.All(ctx, &prescriptions)
	metrics.RecordRemoteRequest("list_prescriptions", err, time.Since(start))
	if err != nil {
		return nil, fmt.Errorf("failed to decode prescriptions: %w", err)
	}
	return prescriptions, nil
}

func (s *MongoStore) ListPharmacies(ctx context.Context) ([]domain.Pharmacy, error) {
	start := time.Now()
	cursor, err := s.db.Collection(pharmaciesCollection).Find(ctx, bson.M{})
	if err != nil {
		metrics.RecordRemoteRequest("list_pharmacies", err, time.Since(start))
		return nil, fmt.Errorf("failed to list pharmacies: %w", err)
	}
	var pharmacies []domain.Pharmacy
	err = cursor.All(ctx, &pharmacies)
	metrics.RecordRemoteRequest("list_pharmacies", err, time.Since(start))
	if err != nil {
		return nil, fmt.Errorf("failed to decode pharmacies: %w", err)
	}
	return pharmacies, nil
}
