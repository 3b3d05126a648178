package usecase

import (
	"context"
	"fmt"

	"github.com/semmidev/custos/internal/domain"
)

// Monitor reports remote storage usage and warns operators when it crosses
// the configured threshold.
type Monitor struct {
	storage   domain.ObjectStorage
	notifier  domain.Notifier
	logger    Logger
	threshold float64
}

func NewMonitor(storage domain.ObjectStorage, notifier domain.Notifier, logger Logger, threshold float64) *Monitor {
	if threshold <= 0 {
		threshold = 80
	}
	return &Monitor{
		storage:   storage,
		notifier:  notifier,
		logger:    logger,
		threshold: threshold,
	}
}

func (m *Monitor) CheckUsage(ctx context.Context) (domain.StorageUsage, error) {
	usage, err := m.storage.Usage(ctx)
	if err != nil {
		return domain.StorageUsage{}, fmt.Errorf("storage usage: %w", domain.NewAdapterError("usage", err))
	}

	pct := usage.Percentage()
	if pct >= m.threshold {
		m.logger.Warnf("remote storage at %.1f%% of capacity", pct)
		if err := m.notifier.NotifyStorageWarning(ctx, pct); err != nil {
			m.logger.Errorf("storage warning notification failed: %v", err)
		}
	}

	return usage, nil
}
