package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/semmidev/custos/internal/domain"
)

// Retention reclaims a job's expired completed backups after a successful
// run. The newest completed backup is always kept regardless of age, so a
// job that stopped producing backups never loses its last good artifact.
type Retention struct {
	store     domain.Store
	storage   domain.ObjectStorage
	artifacts ArtifactDir
	logger    Logger
	clock     func() time.Time
}

func NewRetention(
	store domain.Store,
	storage domain.ObjectStorage,
	artifacts ArtifactDir,
	logger Logger,
	clock func() time.Time,
) *Retention {
	if clock == nil {
		clock = time.Now
	}
	return &Retention{
		store:     store,
		storage:   storage,
		artifacts: artifacts,
		logger:    logger,
		clock:     clock,
	}
}

// Sweep deletes remote and local artifacts of completed backups older than
// the job's retention window and marks their records purged. The sweep is
// best-effort: a failed deletion is logged, the record stays completed, and
// the next sweep retries it.
func (r *Retention) Sweep(ctx context.Context, job domain.Job) (int, error) {
	backups, err := r.store.ListCompletedBackups(ctx, job.ID)
	if err != nil {
		return 0, fmt.Errorf("list completed backups: %w", err)
	}

	cutoff := r.clock().Add(-job.Retention())
	purged := 0

	for i, backup := range backups {
		if i == 0 {
			// Newest first; the most recent completed backup is untouchable.
			continue
		}
		if !backup.CreatedAt.Before(cutoff) {
			continue
		}

		if backup.RemotePath != "" {
			if err := r.storage.Delete(ctx, backup.RemotePath); err != nil {
				r.logger.Errorf("[%s] failed to delete remote artifact of %s: %v",
					job.Database, backup.ID, err)
				continue
			}
		}

		if backup.FilePath != "" {
			if err := r.artifacts.Remove(backup.FilePath); err != nil {
				r.logger.Warnf("[%s] failed to delete local artifact of %s: %v",
					job.Database, backup.ID, err)
			}
		}

		backup.Status = domain.StatusPurged
		if err := r.store.UpdateBackup(ctx, &backup); err != nil {
			r.logger.Errorf("[%s] failed to mark %s purged: %v", job.Database, backup.ID, err)
			continue
		}

		r.logger.Infof("[%s] purged expired backup %s", job.Database, backup.ID)
		purged++
	}

	if purged > 0 {
		r.logger.Infof("[%s] retention sweep purged %d backup(s)", job.Database, purged)
	}

	return purged, nil
}
