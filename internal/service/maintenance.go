package service

import (
	"context"
	"fmt"
	"time"
)

// Pruner deletes finished journal rows older than a cutoff.
type Pruner interface {
	Prune(ctx context.Context, cutoff time.Time) (int64, error)
}

// MaintenanceService houses housekeeping run at startup.
type MaintenanceService struct {
	Journal   Pruner
	Retention time.Duration
	Now       func() time.Time
}

// PruneJournal drops finished payment attempts past the retention window.
// A zero retention keeps everything.
func (s *MaintenanceService) PruneJournal(ctx context.Context) (int64, error) {
	if s.Journal == nil {
		return 0, fmt.Errorf("maintenance: journal not configured")
	}
	if s.Retention <= 0 {
		return 0, nil
	}
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	n, err := s.Journal.Prune(ctx, now().Add(-s.Retention))
	if err != nil {
		return 0, fmt.Errorf("maintenance: %w", err)
	}
	return n, nil
}
