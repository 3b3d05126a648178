package domain

import (
	"context"
	"time"
)

// Store is the durable record of jobs and backup attempts. Implementations
// must reject backup status changes that the state machine forbids, so a
// terminal record can never be reopened through the persistence layer.
type Store interface {
	CreateJob(ctx context.Context, job *Job) error
	GetJob(ctx context.Context, id string) (Job, error)
	ListJobs(ctx context.Context) ([]Job, error)

	// ListDueJobs returns active jobs whose next run is unset or has passed.
	ListDueJobs(ctx context.Context, now time.Time) ([]Job, error)

	UpdateJob(ctx context.Context, job *Job) error

	// SetJobRuns overwrites the schedule bookkeeping columns; nil clears.
	SetJobRuns(ctx context.Context, id string, lastRun, nextRun *time.Time) error

	DeleteJob(ctx context.Context, id string) error

	CreateBackup(ctx context.Context, backup *Backup) error
	GetBackup(ctx context.Context, id string) (Backup, error)
	UpdateBackup(ctx context.Context, backup *Backup) error
	ListBackups(ctx context.Context) ([]Backup, error)
	ListBackupsByJob(ctx context.Context, jobID string) ([]Backup, error)

	// ListCompletedBackups returns a job's completed backups newest first.
	ListCompletedBackups(ctx context.Context, jobID string) ([]Backup, error)
}
