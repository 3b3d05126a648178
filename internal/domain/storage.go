package domain

import (
	"context"
	"time"
)

// StorageEntry describes one remote artifact.
type StorageEntry struct {
	Path     string    `json:"path"`
	Size     int64     `json:"size"`
	Modified time.Time `json:"modified"`
}

// StorageUsage is the remote backend's capacity report.
type StorageUsage struct {
	UsedBytes  int64 `json:"used_bytes"`
	TotalBytes int64 `json:"total_bytes"`
}

// Percentage returns used capacity in percent, 0 when capacity is unknown.
func (u StorageUsage) Percentage() float64 {
	if u.TotalBytes <= 0 {
		return 0
	}
	return float64(u.UsedBytes) / float64(u.TotalBytes) * 100
}

// ObjectStorage stores backup artifacts remotely. Upload returns the remote
// path later used for Delete and Link.
type ObjectStorage interface {
	Upload(ctx context.Context, localPath, remoteName string) (string, error)
	Delete(ctx context.Context, remotePath string) error
	List(ctx context.Context, prefix string) ([]StorageEntry, error)
	Link(ctx context.Context, remotePath string, ttl time.Duration) (string, error)
	Usage(ctx context.Context) (StorageUsage, error)
}
