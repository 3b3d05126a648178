package domain

import "context"

// Notifier delivers backup outcomes and storage warnings to operators.
type Notifier interface {
	NotifySuccess(ctx context.Context, job Job, backup Backup) error
	NotifyFailure(ctx context.Context, job Job, backup Backup) error
	NotifyStorageWarning(ctx context.Context, usedPercent float64) error
}
