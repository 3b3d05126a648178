package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/semmidev/custos/internal/domain"
)

// ErrValidation wraps rejected job parameters so the transport layer can
// report them as a client error.
var ErrValidation = errors.New("invalid job parameters")

// SchedulerControl is the slice of the scheduler the admin surface drives.
type SchedulerControl interface {
	Reschedule(ctx context.Context, jobID string) error
	Pause(ctx context.Context, jobID string) error
	Resume(ctx context.Context, jobID string) error
	RunNow(ctx context.Context, jobID string) (domain.Backup, error)
	Forget(jobID string)
}

// JobService implements the synchronous administrative operations over jobs
// and backup history.
type JobService struct {
	store     domain.Store
	control   SchedulerControl
	storage   domain.ObjectStorage
	databases map[string]domain.Database
	logger    Logger
	clock     func() time.Time
}

func NewJobService(
	store domain.Store,
	control SchedulerControl,
	storage domain.ObjectStorage,
	databases map[string]domain.Database,
	logger Logger,
	clock func() time.Time,
) *JobService {
	if clock == nil {
		clock = time.Now
	}
	return &JobService{
		store:     store,
		control:   control,
		storage:   storage,
		databases: databases,
		logger:    logger,
		clock:     clock,
	}
}

type CreateJobParams struct {
	Database      string            `json:"database"`
	Kind          domain.BackupKind `json:"kind"`
	Frequency     domain.Frequency  `json:"frequency"`
	RetentionDays int               `json:"retention_days"`
}

type UpdateJobParams struct {
	Kind          *domain.BackupKind `json:"kind,omitempty"`
	Frequency     *domain.Frequency  `json:"frequency,omitempty"`
	RetentionDays *int               `json:"retention_days,omitempty"`
	Active        *bool              `json:"active,omitempty"`
}

func (s *JobService) CreateJob(ctx context.Context, params CreateJobParams) (domain.Job, error) {
	if params.RetentionDays == 0 {
		params.RetentionDays = 30
	}

	job := domain.Job{
		ID:            uuid.NewString(),
		Database:      params.Database,
		Kind:          params.Kind,
		Frequency:     params.Frequency,
		RetentionDays: params.RetentionDays,
		Active:        true,
		CreatedAt:     s.clock(),
	}
	if err := s.validate(job); err != nil {
		return domain.Job{}, err
	}

	if err := s.store.CreateJob(ctx, &job); err != nil {
		return domain.Job{}, fmt.Errorf("create job: %w", err)
	}

	if err := s.control.Reschedule(ctx, job.ID); err != nil {
		s.logger.Warnf("failed to schedule new job %s: %v", job.ID, err)
	}

	s.logger.Infof("created %s backup job %s for %s", job.Frequency, job.ID, job.Database)
	return s.store.GetJob(ctx, job.ID)
}

func (s *JobService) GetJob(ctx context.Context, id string) (domain.Job, error) {
	return s.store.GetJob(ctx, id)
}

func (s *JobService) ListJobs(ctx context.Context) ([]domain.Job, error) {
	return s.store.ListJobs(ctx)
}

func (s *JobService) UpdateJob(ctx context.Context, id string, params UpdateJobParams) (domain.Job, error) {
	job, err := s.store.GetJob(ctx, id)
	if err != nil {
		return domain.Job{}, err
	}

	wasActive := job.Active
	if params.Kind != nil {
		job.Kind = *params.Kind
	}
	if params.Frequency != nil {
		job.Frequency = *params.Frequency
	}
	if params.RetentionDays != nil {
		job.RetentionDays = *params.RetentionDays
	}
	if params.Active != nil {
		job.Active = *params.Active
	}
	if err := s.validate(job); err != nil {
		return domain.Job{}, err
	}

	if wasActive && !job.Active {
		s.control.Forget(job.ID)
	}

	if err := s.store.UpdateJob(ctx, &job); err != nil {
		return domain.Job{}, fmt.Errorf("update job: %w", err)
	}

	if job.Active {
		if err := s.control.Reschedule(ctx, job.ID); err != nil {
			s.logger.Warnf("failed to reschedule job %s: %v", job.ID, err)
		}
	}

	return s.store.GetJob(ctx, job.ID)
}

// DeleteJob cancels any in-flight attempt and removes the job. Its backup
// history is kept for audit.
func (s *JobService) DeleteJob(ctx context.Context, id string) error {
	if _, err := s.store.GetJob(ctx, id); err != nil {
		return err
	}
	s.control.Forget(id)
	return s.store.DeleteJob(ctx, id)
}

func (s *JobService) RunNow(ctx context.Context, id string) (domain.Backup, error) {
	return s.control.RunNow(ctx, id)
}

func (s *JobService) Pause(ctx context.Context, id string) error {
	return s.control.Pause(ctx, id)
}

func (s *JobService) Resume(ctx context.Context, id string) error {
	return s.control.Resume(ctx, id)
}

// ListBackups returns backup history newest first, purged records included.
// An empty jobID lists across all jobs.
func (s *JobService) ListBackups(ctx context.Context, jobID string) ([]domain.Backup, error) {
	if jobID == "" {
		return s.store.ListBackups(ctx)
	}
	if _, err := s.store.GetJob(ctx, jobID); err != nil {
		return nil, err
	}
	return s.store.ListBackupsByJob(ctx, jobID)
}

func (s *JobService) GetBackup(ctx context.Context, id string) (domain.Backup, error) {
	return s.store.GetBackup(ctx, id)
}

// BackupLink issues a temporary download link for a completed backup's
// remote artifact.
func (s *JobService) BackupLink(ctx context.Context, id string, ttl time.Duration) (string, error) {
	backup, err := s.store.GetBackup(ctx, id)
	if err != nil {
		return "", err
	}
	if backup.Status != domain.StatusCompleted || backup.RemotePath == "" {
		return "", fmt.Errorf("backup %s has no remote artifact: %w", id, domain.ErrInvalidTransition)
	}
	link, err := s.storage.Link(ctx, backup.RemotePath, ttl)
	if err != nil {
		return "", domain.NewAdapterError("link", err)
	}
	return link, nil
}

func (s *JobService) validate(job domain.Job) error {
	if _, ok := s.databases[job.Database]; !ok {
		return fmt.Errorf("database %q: %w", job.Database, domain.ErrNotFound)
	}
	if !job.Kind.Valid() {
		return fmt.Errorf("%w: unknown backup kind %q", ErrValidation, job.Kind)
	}
	if !job.Frequency.Valid() {
		return fmt.Errorf("%w: unknown frequency %q", ErrValidation, job.Frequency)
	}
	if job.RetentionDays < 1 {
		return fmt.Errorf("%w: retention_days must be at least 1", ErrValidation)
	}
	return nil
}
