package domain

import "time"

type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"

	// StatusPurged marks a completed backup whose artifacts were removed
	// by the retention sweep. The record stays queryable for audit.
	StatusPurged Status = "purged"
)

// Terminal reports whether no further transition may leave the status.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusPurged
}

// CanTransition encodes the backup state machine:
// pending -> in_progress -> {completed, failed}, completed -> purged.
// A pending attempt may fail directly when it is cancelled before work starts.
func (s Status) CanTransition(to Status) bool {
	switch s {
	case StatusPending:
		return to == StatusInProgress || to == StatusFailed
	case StatusInProgress:
		return to == StatusCompleted || to == StatusFailed
	case StatusCompleted:
		return to == StatusPurged
	}
	return false
}

// Error codes recorded on a failed backup. CodeCanceled marks cooperative
// cancellation (pause or shutdown) and is not a genuine failure.
const (
	CodeCanceled = "canceled"
	CodeDump     = "dump"
	CodeArtifact = "artifact"
	CodeUpload   = "upload"
	CodeStore    = "store"
)

// Backup is one execution attempt of a Job.
type Backup struct {
	ID           string     `json:"id"`
	JobID        string     `json:"job_id"`
	Status       Status     `json:"status"`
	FilePath     string     `json:"file_path,omitempty"`
	RemotePath   string     `json:"remote_path,omitempty"`
	Size         int64      `json:"size"`
	StartedAt    time.Time  `json:"started_at"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
	ErrorCode    string     `json:"error_code,omitempty"`
	ErrorMessage string     `json:"error_message,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

// Canceled reports whether the attempt ended due to cooperative cancellation.
func (b Backup) Canceled() bool {
	return b.Status == StatusFailed && b.ErrorCode == CodeCanceled
}
