package storage

import (
	"context"
	"time"

	"framerelay/internal/logger"
	"framerelay/internal/repository"
)

// RetentionService periodically prunes delivery records older than the retention window.
type RetentionService struct {
	repo      repository.DeliveryRepository
	retention time.Duration
	logger    *logger.Logger
	now       func() time.Time
}

// NewRetentionService creates a RetentionService keeping records for retention.
func NewRetentionService(repo repository.DeliveryRepository, retention time.Duration, logger *logger.Logger) *RetentionService {
	return &RetentionService{
		repo:      repo,
		retention: retention,
		logger:    logger,
		now:       time.Now,
	}
}

// Run prunes once immediately and then on every interval until ctx is cancelled.
func (s *RetentionService) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.Prune()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Prune()
		}
	}
}

// Prune deletes expired records and returns how many were removed.
func (s *RetentionService) Prune() int64 {
	cutoff := s.now().Add(-s.retention)

	removed, err := s.repo.DeleteOlderThan(cutoff)
	if err != nil {
		s.logger.Error("Failed to prune delivery log: %v", err)
		return 0
	}
	if removed > 0 {
		s.logger.Info("Pruned %d delivery records older than %s", removed, cutoff.Format(time.RFC3339))
	}
	return removed
}
