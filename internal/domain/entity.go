package domain

import (
	"time"
)

// Order represents a delivery order as stored in the remote document store.
type Order struct {
	ID             string  `json:"id" bson:"_id"`
	TenantID       string  `json:"tenant_id" bson:"tenant_id"`
	PrescriptionID string  `json:"prescription_id,omitempty" bson:"prescription_id,omitempty"`
	PharmacyID     string  `json:"pharmacy_id" bson:"pharmacy_id"`
	Items          []Item  `json:"items" bson:"items"`
	TotalPrice     float64 `json:"total_price" bson:"total_price"`
	Address        string  `json:"address" bson:"address"`
	Status         string  `json:"status" bson:"status"`

	CreatedAt time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"`
}

// Prescription represents an ingested prescription document.
type Prescription struct {
	ID         string `json:"id" bson:"_id"`
	TenantID   string `json:"tenant_id" bson:"tenant_id"`
	DoctorName string `json:"doctor_name,omitempty" bson:"doctor_name,omitempty"`
	IssuedAt   string `json:"issued_at,omitempty" bson:"issued_at,omitempty"`
	Items      []Item `json:"items" bson:"items"`
	Status     string `json:"status" bson:"status"`

	CreatedAt time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"`
}

// Pharmacy represents a pharmacy in the shared lookup catalogue.
type Pharmacy struct {
	ID        string  `json:"id" bson:"_id"`
	Name      string  `json:"name" bson:"name"`
	Address   string  `json:"address" bson:"address"`
	Latitude  float64 `json:"latitude" bson:"latitude"`
	Longitude float64 `json:"longitude" bson:"longitude"`
	IsOpen    bool    `json:"is_open" bson:"is_open"`
}
