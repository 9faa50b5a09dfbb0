package repository

import (
	"time"

	"framerelay/internal/model"
)

// DeliveryRepository defines the interface for relay delivery records.
type DeliveryRepository interface {
	// Create operations
	Insert(d *model.Delivery) (int64, error)

	// Read operations
	GetRecent(limit int) ([]model.Delivery, error)
	CountByOutcome() (map[model.Outcome]int, error)

	// Delete operations
	DeleteOlderThan(cutoff time.Time) (int64, error)
}
