package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/semmidev/custos/internal/domain"
)

// SQLite persists jobs and backups through database/sql. Timestamps are
// stored as unix nanoseconds so due-job comparisons stay plain integer
// comparisons in SQL.
type SQLite struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and applies the schema.
// Use ":memory:" for an ephemeral store.
func Open(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	s := &SQLite{db: db}
	if err := s.migrate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

func (s *SQLite) migrate() error {
	const stmt = `
	CREATE TABLE IF NOT EXISTS jobs (
		id TEXT NOT NULL PRIMARY KEY,
		database_name TEXT NOT NULL,
		kind TEXT NOT NULL,
		frequency TEXT NOT NULL,
		retention_days INTEGER NOT NULL,
		last_run INTEGER,
		next_run INTEGER,
		active INTEGER NOT NULL DEFAULT 1,
		created_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS backups (
		id TEXT NOT NULL PRIMARY KEY,
		job_id TEXT NOT NULL,
		status TEXT NOT NULL,
		file_path TEXT NOT NULL DEFAULT '',
		remote_path TEXT NOT NULL DEFAULT '',
		size INTEGER NOT NULL DEFAULT 0,
		started_at INTEGER NOT NULL,
		completed_at INTEGER,
		error_code TEXT NOT NULL DEFAULT '',
		error_message TEXT NOT NULL DEFAULT '',
		created_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_jobs_due ON jobs (active, next_run);
	CREATE INDEX IF NOT EXISTS idx_backups_job ON backups (job_id, created_at);
	`
	if _, err := s.db.Exec(stmt); err != nil {
		return fmt.Errorf("migrate schema: %w", err)
	}
	return nil
}

func toNano(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UnixNano()
}

func fromNano(ns sql.NullInt64) *time.Time {
	if !ns.Valid {
		return nil
	}
	t := time.Unix(0, ns.Int64).UTC()
	return &t
}

const jobColumns = `id, database_name, kind, frequency, retention_days, last_run, next_run, active, created_at`

func scanJob(row interface{ Scan(...any) error }) (domain.Job, error) {
	var (
		job              domain.Job
		lastRun, nextRun sql.NullInt64
		createdAt        int64
	)
	err := row.Scan(&job.ID, &job.Database, &job.Kind, &job.Frequency,
		&job.RetentionDays, &lastRun, &nextRun, &job.Active, &createdAt)
	if err != nil {
		return domain.Job{}, err
	}
	job.LastRun = fromNano(lastRun)
	job.NextRun = fromNano(nextRun)
	job.CreatedAt = time.Unix(0, createdAt).UTC()
	return job, nil
}

func (s *SQLite) CreateJob(ctx context.Context, job *domain.Job) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO jobs (`+jobColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		job.ID, job.Database, job.Kind, job.Frequency, job.RetentionDays,
		toNano(job.LastRun), toNano(job.NextRun), job.Active, job.CreatedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("insert job: %w", err)
	}
	return nil
}

func (s *SQLite) GetJob(ctx context.Context, id string) (domain.Job, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Job{}, fmt.Errorf("job %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return domain.Job{}, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

func (s *SQLite) ListJobs(ctx context.Context) ([]domain.Job, error) {
	return s.queryJobs(ctx, `SELECT `+jobColumns+` FROM jobs ORDER BY created_at`)
}

func (s *SQLite) ListDueJobs(ctx context.Context, now time.Time) ([]domain.Job, error) {
	return s.queryJobs(ctx,
		`SELECT `+jobColumns+` FROM jobs
		 WHERE active = 1 AND (next_run IS NULL OR next_run <= ?)
		 ORDER BY created_at`, now.UnixNano())
}

func (s *SQLite) queryJobs(ctx context.Context, query string, args ...any) ([]domain.Job, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query jobs: %w", err)
	}
	defer rows.Close()

	var jobs []domain.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

func (s *SQLite) UpdateJob(ctx context.Context, job *domain.Job) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE jobs SET database_name = ?, kind = ?, frequency = ?,
		 retention_days = ?, last_run = ?, next_run = ?, active = ?
		 WHERE id = ?`,
		job.Database, job.Kind, job.Frequency, job.RetentionDays,
		toNano(job.LastRun), toNano(job.NextRun), job.Active, job.ID)
	if err != nil {
		return fmt.Errorf("update job: %w", err)
	}
	return requireRow(res, "job "+job.ID)
}

func (s *SQLite) SetJobRuns(ctx context.Context, id string, lastRun, nextRun *time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE jobs SET last_run = ?, next_run = ? WHERE id = ?`,
		toNano(lastRun), toNano(nextRun), id)
	if err != nil {
		return fmt.Errorf("set job runs: %w", err)
	}
	return requireRow(res, "job "+id)
}

func (s *SQLite) DeleteJob(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM jobs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete job: %w", err)
	}
	return requireRow(res, "job "+id)
}

func requireRow(res sql.Result, subject string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", subject, domain.ErrNotFound)
	}
	return nil
}

const backupColumns = `id, job_id, status, file_path, remote_path, size, started_at, completed_at, error_code, error_message, created_at`

func scanBackup(row interface{ Scan(...any) error }) (domain.Backup, error) {
	var (
		b                    domain.Backup
		startedAt, createdAt int64
		completedAt          sql.NullInt64
	)
	err := row.Scan(&b.ID, &b.JobID, &b.Status, &b.FilePath, &b.RemotePath,
		&b.Size, &startedAt, &completedAt, &b.ErrorCode, &b.ErrorMessage, &createdAt)
	if err != nil {
		return domain.Backup{}, err
	}
	b.StartedAt = time.Unix(0, startedAt).UTC()
	b.CompletedAt = fromNano(completedAt)
	b.CreatedAt = time.Unix(0, createdAt).UTC()
	return b, nil
}

func (s *SQLite) CreateBackup(ctx context.Context, backup *domain.Backup) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO backups (`+backupColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		backup.ID, backup.JobID, backup.Status, backup.FilePath, backup.RemotePath,
		backup.Size, backup.StartedAt.UnixNano(), toNano(backup.CompletedAt),
		backup.ErrorCode, backup.ErrorMessage, backup.CreatedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("insert backup: %w", err)
	}
	return nil
}

func (s *SQLite) GetBackup(ctx context.Context, id string) (domain.Backup, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+backupColumns+` FROM backups WHERE id = ?`, id)
	b, err := scanBackup(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Backup{}, fmt.Errorf("backup %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return domain.Backup{}, fmt.Errorf("get backup: %w", err)
	}
	return b, nil
}

// UpdateBackup rewrites the record, enforcing the status state machine
// against the currently stored status. Terminal statuses are absorbing here
// regardless of what the caller holds in memory.
func (s *SQLite) UpdateBackup(ctx context.Context, backup *domain.Backup) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var current domain.Status
	err = tx.QueryRowContext(ctx, `SELECT status FROM backups WHERE id = ?`, backup.ID).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("backup %s: %w", backup.ID, domain.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("read backup status: %w", err)
	}

	if current != backup.Status && !current.CanTransition(backup.Status) {
		return fmt.Errorf("backup %s: %s -> %s: %w",
			backup.ID, current, backup.Status, domain.ErrInvalidTransition)
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE backups SET status = ?, file_path = ?, remote_path = ?, size = ?,
		 completed_at = ?, error_code = ?, error_message = ? WHERE id = ?`,
		backup.Status, backup.FilePath, backup.RemotePath, backup.Size,
		toNano(backup.CompletedAt), backup.ErrorCode, backup.ErrorMessage, backup.ID)
	if err != nil {
		return fmt.Errorf("update backup: %w", err)
	}

	return tx.Commit()
}

func (s *SQLite) ListBackups(ctx context.Context) ([]domain.Backup, error) {
	return s.queryBackups(ctx,
		`SELECT `+backupColumns+` FROM backups ORDER BY created_at DESC`)
}

func (s *SQLite) ListBackupsByJob(ctx context.Context, jobID string) ([]domain.Backup, error) {
	return s.queryBackups(ctx,
		`SELECT `+backupColumns+` FROM backups WHERE job_id = ? ORDER BY created_at DESC`, jobID)
}

func (s *SQLite) ListCompletedBackups(ctx context.Context, jobID string) ([]domain.Backup, error) {
	return s.queryBackups(ctx,
		`SELECT `+backupColumns+` FROM backups
		 WHERE job_id = ? AND status = ? ORDER BY created_at DESC`,
		jobID, domain.StatusCompleted)
}

func (s *SQLite) queryBackups(ctx context.Context, query string, args ...any) ([]domain.Backup, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query backups: %w", err)
	}
	defer rows.Close()

	var backups []domain.Backup
	for rows.Next() {
		b, err := scanBackup(rows)
		if err != nil {
			return nil, fmt.Errorf("scan backup: %w", err)
		}
		backups = append(backups, b)
	}
	return backups, rows.Err()
}
