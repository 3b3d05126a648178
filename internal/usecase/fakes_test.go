package usecase

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/semmidev/custos/internal/domain"
)

// memStore is an in-memory domain.Store that enforces the same status state
// machine as the sqlite implementation.
type memStore struct {
	mu       sync.Mutex
	jobs     map[string]domain.Job
	backups  map[string]domain.Backup
	order    []string
	failWith map[string]error

	// failStatus makes UpdateBackup fail only when committing this status.
	failStatus    domain.Status
	failStatusErr error
}

func newMemStore() *memStore {
	return &memStore{
		jobs:     make(map[string]domain.Job),
		backups:  make(map[string]domain.Backup),
		failWith: make(map[string]error),
	}
}

// failOn makes the named store operation return err on every call.
func (m *memStore) failOn(op string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failWith[op] = err
}

func (m *memStore) fail(op string) error {
	return m.failWith[op]
}

func (m *memStore) CreateJob(_ context.Context, job *domain.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("CreateJob"); err != nil {
		return err
	}
	m.jobs[job.ID] = *job
	return nil
}

func (m *memStore) GetJob(_ context.Context, id string) (domain.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("GetJob"); err != nil {
		return domain.Job{}, err
	}
	job, ok := m.jobs[id]
	if !ok {
		return domain.Job{}, fmt.Errorf("job %s: %w", id, domain.ErrNotFound)
	}
	return job, nil
}

func (m *memStore) ListJobs(_ context.Context) ([]domain.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	jobs := make([]domain.Job, 0, len(m.jobs))
	for _, job := range m.jobs {
		jobs = append(jobs, job)
	}
	return jobs, nil
}

func (m *memStore) ListDueJobs(_ context.Context, now time.Time) ([]domain.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("ListDueJobs"); err != nil {
		return nil, err
	}
	var due []domain.Job
	for _, job := range m.jobs {
		if !job.Active {
			continue
		}
		if job.NextRun == nil || !job.NextRun.After(now) {
			due = append(due, job)
		}
	}
	return due, nil
}

func (m *memStore) UpdateJob(_ context.Context, job *domain.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.jobs[job.ID]; !ok {
		return fmt.Errorf("job %s: %w", job.ID, domain.ErrNotFound)
	}
	m.jobs[job.ID] = *job
	return nil
}

func (m *memStore) SetJobRuns(_ context.Context, id string, lastRun, nextRun *time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("SetJobRuns"); err != nil {
		return err
	}
	job, ok := m.jobs[id]
	if !ok {
		return fmt.Errorf("job %s: %w", id, domain.ErrNotFound)
	}
	job.LastRun = lastRun
	job.NextRun = nextRun
	m.jobs[id] = job
	return nil
}

func (m *memStore) DeleteJob(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.jobs[id]; !ok {
		return fmt.Errorf("job %s: %w", id, domain.ErrNotFound)
	}
	delete(m.jobs, id)
	return nil
}

func (m *memStore) CreateBackup(_ context.Context, backup *domain.Backup) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("CreateBackup"); err != nil {
		return err
	}
	m.backups[backup.ID] = *backup
	m.order = append(m.order, backup.ID)
	return nil
}

func (m *memStore) GetBackup(_ context.Context, id string) (domain.Backup, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.backups[id]
	if !ok {
		return domain.Backup{}, fmt.Errorf("backup %s: %w", id, domain.ErrNotFound)
	}
	return b, nil
}

func (m *memStore) UpdateBackup(_ context.Context, backup *domain.Backup) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("UpdateBackup"); err != nil {
		return err
	}
	if m.failStatus != "" && backup.Status == m.failStatus {
		return m.failStatusErr
	}
	current, ok := m.backups[backup.ID]
	if !ok {
		return fmt.Errorf("backup %s: %w", backup.ID, domain.ErrNotFound)
	}
	if current.Status != backup.Status && !current.Status.CanTransition(backup.Status) {
		return fmt.Errorf("backup %s: %s -> %s: %w",
			backup.ID, current.Status, backup.Status, domain.ErrInvalidTransition)
	}
	m.backups[backup.ID] = *backup
	return nil
}

func (m *memStore) ListBackups(_ context.Context) ([]domain.Backup, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	backups := make([]domain.Backup, 0, len(m.order))
	for i := len(m.order) - 1; i >= 0; i-- {
		backups = append(backups, m.backups[m.order[i]])
	}
	return backups, nil
}

func (m *memStore) ListBackupsByJob(_ context.Context, jobID string) ([]domain.Backup, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var backups []domain.Backup
	for i := len(m.order) - 1; i >= 0; i-- {
		if b := m.backups[m.order[i]]; b.JobID == jobID {
			backups = append(backups, b)
		}
	}
	return backups, nil
}

func (m *memStore) ListCompletedBackups(_ context.Context, jobID string) ([]domain.Backup, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("ListCompletedBackups"); err != nil {
		return nil, err
	}
	var backups []domain.Backup
	for i := len(m.order) - 1; i >= 0; i-- {
		if b := m.backups[m.order[i]]; b.JobID == jobID && b.Status == domain.StatusCompleted {
			backups = append(backups, b)
		}
	}
	return backups, nil
}

func (m *memStore) backup(id string) domain.Backup {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.backups[id]
}

func (m *memStore) job(id string) domain.Job {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.jobs[id]
}

// fakeDatabase writes a small dump file unless told to fail.
type fakeDatabase struct {
	name    string
	engine  string
	dumpErr error
}

func (f *fakeDatabase) Dump(_ context.Context, _ domain.BackupKind, outputPath string) error {
	if f.dumpErr != nil {
		return f.dumpErr
	}
	return os.WriteFile(outputPath, []byte("-- dump contents\n"), 0o644)
}

func (f *fakeDatabase) Name() string                 { return f.name }
func (f *fakeDatabase) Engine() string               { return f.engine }
func (f *fakeDatabase) Ping(_ context.Context) error { return nil }

// fakeStorage records uploads and deletions in memory.
type fakeStorage struct {
	mu        sync.Mutex
	uploadErr error
	deleteErr error
	usage     domain.StorageUsage
	usageErr  error
	uploads   []string
	deleted   []string
}

func (f *fakeStorage) Upload(_ context.Context, _, remoteName string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.uploadErr != nil {
		return "", f.uploadErr
	}
	remote := "custos/" + remoteName
	f.uploads = append(f.uploads, remote)
	return remote, nil
}

func (f *fakeStorage) Delete(_ context.Context, remotePath string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, remotePath)
	return nil
}

func (f *fakeStorage) List(_ context.Context, _ string) ([]domain.StorageEntry, error) {
	return nil, nil
}

func (f *fakeStorage) Link(_ context.Context, remotePath string, _ time.Duration) (string, error) {
	return "https://storage.example/" + remotePath, nil
}

func (f *fakeStorage) Usage(_ context.Context) (domain.StorageUsage, error) {
	if f.usageErr != nil {
		return domain.StorageUsage{}, f.usageErr
	}
	return f.usage, nil
}

func (f *fakeStorage) deletedPaths() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.deleted...)
}

// fakeNotifier counts deliveries.
type fakeNotifier struct {
	mu        sync.Mutex
	successes []domain.Backup
	failures  []domain.Backup
	warnings  []float64
}

func (f *fakeNotifier) NotifySuccess(_ context.Context, _ domain.Job, backup domain.Backup) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.successes = append(f.successes, backup)
	return nil
}

func (f *fakeNotifier) NotifyFailure(_ context.Context, _ domain.Job, backup domain.Backup) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures = append(f.failures, backup)
	return nil
}

func (f *fakeNotifier) NotifyStorageWarning(_ context.Context, usedPercent float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.warnings = append(f.warnings, usedPercent)
	return nil
}

func (f *fakeNotifier) counts() (successes, failures, warnings int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.successes), len(f.failures), len(f.warnings)
}

// fakeArtifacts copies staged files into a temp dir like the local adapter.
type fakeArtifacts struct {
	mu        sync.Mutex
	dir       string
	storeErr  error
	removeErr error
	removed   []string
}

func newFakeArtifacts(dir string) *fakeArtifacts {
	return &fakeArtifacts{dir: dir}
}

func (f *fakeArtifacts) Store(localPath, name string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.storeErr != nil {
		return "", f.storeErr
	}
	data, err := os.ReadFile(localPath)
	if err != nil {
		return "", err
	}
	dest := filepath.Join(f.dir, name)
	if err := os.WriteFile(dest, data, 0o644); err != nil {
		return "", err
	}
	return dest, nil
}

func (f *fakeArtifacts) Remove(path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.removeErr != nil {
		return f.removeErr
	}
	f.removed = append(f.removed, path)
	return nil
}

// fakeCompressor copies the source so size bookkeeping stays observable.
type fakeCompressor struct{}

func (fakeCompressor) Compress(sourcePath, destPath string) error {
	data, err := os.ReadFile(sourcePath)
	if err != nil {
		return err
	}
	return os.WriteFile(destPath, data, 0o644)
}

type nopLogger struct{}

func (nopLogger) Infof(string, ...interface{})  {}
func (nopLogger) Errorf(string, ...interface{}) {}
func (nopLogger) Warnf(string, ...interface{})  {}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}
