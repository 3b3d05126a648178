package usecase

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/semmidev/custos/internal/domain"
)

type Logger interface {
	Infof(template string, args ...interface{})
	Errorf(template string, args ...interface{})
	Warnf(template string, args ...interface{})
}

// ArtifactDir keeps a local copy of each uploaded artifact.
type ArtifactDir interface {
	Store(localPath, name string) (string, error)
	Remove(path string) error
}

// ExecutorConfig carries the knobs the executor does not own.
type ExecutorConfig struct {
	Compress     bool
	CatchUpDelay time.Duration
	Clock        func() time.Time
}

// Executor runs exactly one backup attempt end-to-end, driving the backup
// record through its state machine. Adapter failures are absorbed here:
// every attempt ends in a terminal record, and Perform never returns an
// error to the scheduler.
type Executor struct {
	store      domain.Store
	databases  map[string]domain.Database
	storage    domain.ObjectStorage
	artifacts  ArtifactDir
	compressor domain.Compressor
	retention  *Retention
	notifier   domain.Notifier
	logger     Logger
	compress   bool
	catchUp    time.Duration
	clock      func() time.Time
}

func NewExecutor(
	store domain.Store,
	databases map[string]domain.Database,
	storage domain.ObjectStorage,
	artifacts ArtifactDir,
	compressor domain.Compressor,
	retention *Retention,
	notifier domain.Notifier,
	logger Logger,
	cfg ExecutorConfig,
) *Executor {
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if cfg.CatchUpDelay <= 0 {
		cfg.CatchUpDelay = 5 * time.Minute
	}
	return &Executor{
		store:      store,
		databases:  databases,
		storage:    storage,
		artifacts:  artifacts,
		compressor: compressor,
		retention:  retention,
		notifier:   notifier,
		logger:     logger,
		compress:   cfg.Compress,
		catchUp:    cfg.CatchUpDelay,
		clock:      cfg.Clock,
	}
}

// Begin creates the attempt's Pending record. It is the only step whose
// failure surfaces to the caller, so manual triggers get a synchronous
// typed error when the store is unavailable.
func (e *Executor) Begin(ctx context.Context, job domain.Job) (domain.Backup, error) {
	now := e.clock()
	backup := domain.Backup{
		ID:        uuid.NewString(),
		JobID:     job.ID,
		Status:    domain.StatusPending,
		StartedAt: now,
		CreatedAt: now,
	}
	if err := e.store.CreateBackup(ctx, &backup); err != nil {
		return domain.Backup{}, fmt.Errorf("create backup record: %w", err)
	}
	return backup, nil
}

// Perform drives the attempt begun by Begin to a terminal status and
// returns the terminal record. Cancellation of ctx ends the attempt in
// Failed with the canceled error code.
func (e *Executor) Perform(ctx context.Context, job domain.Job, backup domain.Backup) domain.Backup {
	start := e.clock()
	e.logger.Infof("[%s] starting %s backup (attempt %s)", job.Database, job.Kind, backup.ID)

	if err := e.transition(ctx, &backup, domain.StatusInProgress); err != nil {
		return e.fail(ctx, job, backup, domain.CodeStore, err)
	}

	db, ok := e.databases[job.Database]
	if !ok {
		return e.fail(ctx, job, backup,
			domain.CodeDump, fmt.Errorf("no configured database named %q", job.Database))
	}

	if err := ctx.Err(); err != nil {
		return e.fail(ctx, job, backup, domain.CodeDump, err)
	}

	filename := e.filename(job, db)
	tempPath := filepath.Join(os.TempDir(), filename)

	if err := db.Dump(ctx, job.Kind, tempPath); err != nil {
		return e.fail(ctx, job, backup, domain.CodeDump, domain.NewAdapterError("dump", err))
	}
	defer os.Remove(tempPath)

	info, err := os.Stat(tempPath)
	if err != nil {
		return e.fail(ctx, job, backup, domain.CodeDump, fmt.Errorf("stat backup file: %w", err))
	}
	e.logger.Infof("[%s] dump created, size: %.2f MB",
		job.Database, float64(info.Size())/(1024*1024))

	finalPath, finalName := tempPath, filename
	if e.compress {
		finalPath, finalName, err = e.compressArtifact(job, tempPath, filename)
		if err != nil {
			return e.fail(ctx, job, backup, domain.CodeArtifact, err)
		}
		defer os.Remove(finalPath)
	}

	localPath, err := e.artifacts.Store(finalPath, finalName)
	if err != nil {
		return e.fail(ctx, job, backup, domain.CodeArtifact, domain.NewAdapterError("artifact", err))
	}

	if err := ctx.Err(); err != nil {
		return e.fail(ctx, job, backup, domain.CodeUpload, err)
	}

	remotePath, err := e.storage.Upload(ctx, localPath, finalName)
	if err != nil {
		return e.fail(ctx, job, backup, domain.CodeUpload, domain.NewAdapterError("upload", err))
	}

	// The attempt did its work; terminal bookkeeping must not be lost to a
	// late cancellation signal.
	commitCtx := context.WithoutCancel(ctx)

	size := finalSize(localPath, info.Size())
	completed := e.clock()
	backup.Status = domain.StatusCompleted
	backup.FilePath = localPath
	backup.RemotePath = remotePath
	backup.Size = size
	backup.CompletedAt = &completed

	if err := e.store.UpdateBackup(commitCtx, &backup); err != nil {
		// The artifact exists locally and remotely; the record must still
		// end terminal. Listing the remote prefix reconciles the orphan.
		backup.Status = domain.StatusInProgress
		return e.fail(ctx, job, backup, domain.CodeStore, fmt.Errorf("commit completed status: %w", err))
	}

	e.recordRun(commitCtx, job, completed)

	if _, err := e.retention.Sweep(commitCtx, job); err != nil {
		e.logger.Errorf("[%s] retention sweep failed: %v", job.Database, err)
	}

	if err := e.notifier.NotifySuccess(commitCtx, job, backup); err != nil {
		e.logger.Errorf("[%s] success notification failed: %v", job.Database, err)
	}

	e.logger.Infof("[%s] backup completed in %s: %s",
		job.Database, completed.Sub(start).Round(time.Second), finalName)

	return backup
}

// fail commits the terminal Failed status, distinguishing cooperative
// cancellation from genuine failure by the recorded error code.
func (e *Executor) fail(ctx context.Context, job domain.Job, backup domain.Backup, code string, cause error) domain.Backup {
	if ctx.Err() != nil {
		code = domain.CodeCanceled
	}

	completed := e.clock()
	backup.Status = domain.StatusFailed
	backup.ErrorCode = code
	backup.ErrorMessage = cause.Error()
	backup.CompletedAt = &completed

	commitCtx := context.WithoutCancel(ctx)
	if err := e.store.UpdateBackup(commitCtx, &backup); err != nil {
		e.logger.Errorf("[%s] failed to record terminal status for %s: %v",
			job.Database, backup.ID, err)
	}

	if code == domain.CodeCanceled {
		e.logger.Infof("[%s] backup %s canceled", job.Database, backup.ID)
	} else {
		e.logger.Errorf("[%s] backup %s failed (%s): %v", job.Database, backup.ID, code, cause)
	}

	if err := e.notifier.NotifyFailure(commitCtx, job, backup); err != nil {
		e.logger.Errorf("[%s] failure notification failed: %v", job.Database, err)
	}

	return backup
}

func (e *Executor) transition(ctx context.Context, backup *domain.Backup, to domain.Status) error {
	if !backup.Status.CanTransition(to) {
		return fmt.Errorf("%s -> %s: %w", backup.Status, to, domain.ErrInvalidTransition)
	}
	backup.Status = to
	return e.store.UpdateBackup(ctx, backup)
}

// recordRun advances the job's schedule bookkeeping after a successful
// attempt: last_run becomes the completion time and next_run is recomputed
// from it.
func (e *Executor) recordRun(ctx context.Context, job domain.Job, completed time.Time) {
	job.LastRun = &completed
	next := domain.NextRunAfter(job, completed, e.catchUp)
	if err := e.store.SetJobRuns(ctx, job.ID, &completed, &next); err != nil {
		e.logger.Errorf("[%s] failed to record run times: %v", job.Database, err)
	}
}

func (e *Executor) compressArtifact(job domain.Job, tempPath, filename string) (string, string, error) {
	compressedName := filename + ".gz"
	compressedPath := filepath.Join(os.TempDir(), compressedName)

	e.logger.Infof("[%s] compressing backup...", job.Database)
	if err := e.compressor.Compress(tempPath, compressedPath); err != nil {
		return "", "", fmt.Errorf("compression: %w", err)
	}

	return compressedPath, compressedName, nil
}

func (e *Executor) filename(job domain.Job, db domain.Database) string {
	timestamp := e.clock().Format("20060102_150405")

	ext := map[string]string{
		"mysql":      ".sql",
		"postgresql": ".dump",
		"mongodb":    ".archive",
		"sqlserver":  ".bak",
	}[db.Engine()]
	if ext == "" {
		ext = ".backup"
	}

	return fmt.Sprintf("%s_%s_%s_%s%s", job.Database, db.Engine(), job.Kind, timestamp, ext)
}

func finalSize(path string, fallback int64) int64 {
	if info, err := os.Stat(path); err == nil {
		return info.Size()
	}
	return fallback
}
