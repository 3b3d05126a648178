package storage

import (
	"context"
	"fmt"
	"os"
	"time"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"

	"github.com/semmidev/custos/internal/config"
	"github.com/semmidev/custos/internal/domain"
)

// GDriveStorage keeps backup artifacts in a Google Drive folder. Remote
// paths are Drive file ids; the Drive quota backs Usage directly.
type GDriveStorage struct {
	service  *drive.Service
	folderID string
}

func NewGDrive(cfg *config.StorageConfig) (*GDriveStorage, error) {
	service, err := drive.NewService(context.Background(),
		option.WithCredentialsFile(cfg.CredentialsFile))
	if err != nil {
		return nil, fmt.Errorf("failed to create drive service: %w", err)
	}

	return &GDriveStorage{
		service:  service,
		folderID: cfg.FolderID,
	}, nil
}

// Upload stores the local file in the configured folder and returns the
// created file id.
func (g *GDriveStorage) Upload(ctx context.Context, localPath, remoteName string) (string, error) {
	file, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	created, err := g.service.Files.Create(&drive.File{
		Name:    remoteName,
		Parents: []string{g.folderID},
	}).Media(file).Fields("id").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to upload to gdrive: %w", err)
	}

	return created.Id, nil
}

func (g *GDriveStorage) Delete(ctx context.Context, remotePath string) error {
	if err := g.service.Files.Delete(remotePath).Context(ctx).Do(); err != nil {
		return fmt.Errorf("failed to delete from gdrive: %w", err)
	}
	return nil
}

func (g *GDriveStorage) List(ctx context.Context, prefix string) ([]domain.StorageEntry, error) {
	query := fmt.Sprintf("'%s' in parents and trashed=false", g.folderID)
	if prefix != "" {
		query += fmt.Sprintf(" and name contains '%s'", prefix)
	}

	fileList, err := g.service.Files.List().
		Q(query).
		Fields("files(id, name, size, modifiedTime)").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("failed to list gdrive files: %w", err)
	}

	var entries []domain.StorageEntry
	for _, f := range fileList.Files {
		modified, _ := time.Parse(time.RFC3339, f.ModifiedTime)
		entries = append(entries, domain.StorageEntry{
			Path:     f.Id,
			Size:     f.Size,
			Modified: modified,
		})
	}

	return entries, nil
}

// Link returns the file's download link. Drive links do not expire per
// request; access is governed by the file's sharing settings, so ttl is
// accepted for interface parity and ignored.
func (g *GDriveStorage) Link(ctx context.Context, remotePath string, _ time.Duration) (string, error) {
	f, err := g.service.Files.Get(remotePath).
		Fields("webContentLink").
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("failed to get gdrive file: %w", err)
	}
	return f.WebContentLink, nil
}

func (g *GDriveStorage) Usage(ctx context.Context) (domain.StorageUsage, error) {
	about, err := g.service.About.Get().
		Fields("storageQuota").
		Context(ctx).
		Do()
	if err != nil {
		return domain.StorageUsage{}, fmt.Errorf("failed to get gdrive quota: %w", err)
	}

	return domain.StorageUsage{
		UsedBytes:  about.StorageQuota.Usage,
		TotalBytes: about.StorageQuota.Limit,
	}, nil
}
