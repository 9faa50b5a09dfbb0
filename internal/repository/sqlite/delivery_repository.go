package sqlite

import (
	"fmt"
	"time"

	"framerelay/internal/model"
)

// DeliveryRepository implements repository.DeliveryRepository for SQLite.
type DeliveryRepository struct {
	db *DB
}

// NewDeliveryRepository creates a new SQLite delivery repository.
func NewDeliveryRepository(db *DB) *DeliveryRepository {
	return &DeliveryRepository{db: db}
}

// Insert adds a delivery record and returns its id.
func (r *DeliveryRepository) Insert(d *model.Delivery) (int64, error) {
	r.db.Lock()
	defer r.db.Unlock()

	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now()
	}

	result, err := r.db.Conn().Exec(`
		INSERT INTO deliveries (filename, size, status, outcome, sink_error, duration_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, d.Filename, d.Size, d.Status, string(d.Outcome), d.SinkError, d.DurationMS, d.CreatedAt.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to insert delivery: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read delivery id: %w", err)
	}
	d.ID = id
	return id, nil
}

// GetRecent returns up to limit deliveries, newest first.
func (r *DeliveryRepository) GetRecent(limit int) ([]model.Delivery, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	if limit <= 0 {
		limit = 50
	}

	rows, err := r.db.Conn().Query(`
		SELECT id, filename, size, status, outcome, sink_error, duration_ms, created_at
		FROM deliveries
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query deliveries: %w", err)
	}
	defer rows.Close()

	var deliveries []model.Delivery
	for rows.Next() {
		var d model.Delivery
		var outcome string
		if err := rows.Scan(&d.ID, &d.Filename, &d.Size, &d.Status, &outcome, &d.SinkError, &d.DurationMS, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan delivery: %w", err)
		}
		d.Outcome = model.Outcome(outcome)
		deliveries = append(deliveries, d)
	}
	return deliveries, rows.Err()
}

// CountByOutcome returns the number of deliveries per outcome.
func (r *DeliveryRepository) CountByOutcome() (map[model.Outcome]int, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	rows, err := r.db.Conn().Query(`SELECT outcome, COUNT(*) FROM deliveries GROUP BY outcome`)
	if err != nil {
		return nil, fmt.Errorf("failed to count deliveries: %w", err)
	}
	defer rows.Close()

	counts := make(map[model.Outcome]int)
	for rows.Next() {
		var outcome string
		var count int
		if err := rows.Scan(&outcome, &count); err != nil {
			return nil, fmt.Errorf("failed to scan count: %w", err)
		}
		counts[model.Outcome(outcome)] = count
	}
	return counts, rows.Err()
}

// DeleteOlderThan removes deliveries created before cutoff and returns how many were removed.
func (r *DeliveryRepository) DeleteOlderThan(cutoff time.Time) (int64, error) {
	r.db.Lock()
	defer r.db.Unlock()

	result, err := r.db.Conn().Exec(`DELETE FROM deliveries WHERE created_at < ?`, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to prune deliveries: %w", err)
	}
	return result.RowsAffected()
}
