package domain

import "time"

type BackupKind string

const (
	KindFull         BackupKind = "full"
	KindDifferential BackupKind = "differential"
)

func (k BackupKind) Valid() bool {
	return k == KindFull || k == KindDifferential
}

type Frequency string

const (
	FrequencyDaily   Frequency = "daily"
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"
)

func (f Frequency) Valid() bool {
	switch f {
	case FrequencyDaily, FrequencyWeekly, FrequencyMonthly:
		return true
	}
	return false
}

// Interval returns the nominal gap between two runs of a job.
func (f Frequency) Interval() time.Duration {
	switch f {
	case FrequencyWeekly:
		return 7 * 24 * time.Hour
	case FrequencyMonthly:
		return 30 * 24 * time.Hour
	default:
		return 24 * time.Hour
	}
}

// Job is a configured, recurring backup target. LastRun and NextRun are
// owned by the scheduler; Active is toggled through the admin surface.
type Job struct {
	ID            string     `json:"id"`
	Database      string     `json:"database"`
	Kind          BackupKind `json:"kind"`
	Frequency     Frequency  `json:"frequency"`
	RetentionDays int        `json:"retention_days"`
	LastRun       *time.Time `json:"last_run,omitempty"`
	NextRun       *time.Time `json:"next_run,omitempty"`
	Active        bool       `json:"active"`
	CreatedAt     time.Time  `json:"created_at"`
}

// Retention returns the job's retention window as a duration.
func (j Job) Retention() time.Duration {
	return time.Duration(j.RetentionDays) * 24 * time.Hour
}

// NextRunAfter computes when the job should run next. An overdue job (its
// candidate slot already passed while the loop was down) and a job that has
// never run are both pushed a short fixed delay into the future instead of
// being dispatched immediately, so a backlog never bursts at once.
func NextRunAfter(job Job, now time.Time, catchUp time.Duration) time.Time {
	if job.LastRun != nil {
		next := job.LastRun.Add(job.Frequency.Interval())
		if next.After(now) {
			return next
		}
	}
	return now.Add(catchUp)
}
