package types

import (
	"time"

	"github.com/google/uuid"
)

// Vehicle belongs to exactly one customer. License plates are unique
// across the whole shop.
type Vehicle struct {
	ID           uuid.UUID  `json:"id"`
	CustomerID   uuid.UUID  `json:"customer_id"`
	LicensePlate string     `json:"license_plate"`
	Make         string     `json:"make"`
	Model        string     `json:"model"`
	Year         *int       `json:"year,omitempty"`
	Color        *string    `json:"color,omitempty"`
	VIN          *string    `json:"vin,omitempty"`
	Notes        *string    `json:"notes,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	DeletedAt    *time.Time `json:"-"`
}

type CreateVehicleParams struct {
	CustomerID   string  `json:"customer_id"`
	LicensePlate string  `json:"license_plate"`
	Make         string  `json:"make"`
	Model        string  `json:"model"`
	Year         *int    `json:"year,omitempty"`
	Color        *string `json:"color,omitempty"`
	VIN          *string `json:"vin,omitempty"`
	Notes        *string `json:"notes,omitempty"`
}

type UpdateVehicleParams struct {
	LicensePlate *string `json:"license_plate,omitempty"`
	Make         *string `json:"make,omitempty"`
	Model        *string `json:"model,omitempty"`
	Year         *int    `json:"year,omitempty"`
	Color        *string `json:"color,omitempty"`
	VIN          *string `json:"vin,omitempty"`
	Notes        *string `json:"notes,omitempty"`
}
