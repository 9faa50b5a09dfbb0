package storage

import (
	"errors"
	"io"
	"testing"
	"time"

	"framerelay/internal/logger"
	"framerelay/internal/model"
)

type fakeDeliveryRepo struct {
	cutoffs []time.Time
	removed int64
	err     error
}

func (r *fakeDeliveryRepo) Insert(d *model.Delivery) (int64, error) { return 1, nil }
func (r *fakeDeliveryRepo) GetRecent(limit int) ([]model.Delivery, error) { return nil, nil }
func (r *fakeDeliveryRepo) CountByOutcome() (map[model.Outcome]int, error) { return nil, nil }
func (r *fakeDeliveryRepo) DeleteOlderThan(cutoff time.Time) (int64, error) {
	r.cutoffs = append(r.cutoffs, cutoff)
	return r.removed, r.err
}

func TestRetentionService_PruneUsesWindow(t *testing.T) {
	repo := &fakeDeliveryRepo{removed: 3}
	svc := NewRetentionService(repo, 24*time.Hour, logger.NewWriter(io.Discard, false))
	now := time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	if got := svc.Prune(); got != 3 {
		t.Errorf("Expected 3 removed, got %d", got)
	}
	if len(repo.cutoffs) != 1 || !repo.cutoffs[0].Equal(now.Add(-24*time.Hour)) {
		t.Errorf("Unexpected cutoffs %v", repo.cutoffs)
	}
}

func TestRetentionService_PruneError(t *testing.T) {
	repo := &fakeDeliveryRepo{err: errors.New("database is locked")}
	svc := NewRetentionService(repo, time.Hour, logger.NewWriter(io.Discard, false))

	if got := svc.Prune(); got != 0 {
		t.Errorf("Expected 0 on error, got %d", got)
	}
}
