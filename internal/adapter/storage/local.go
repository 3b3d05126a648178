package storage

import (
	"fmt"
	"os"
	"path/filepath"
)

// LocalStorage is the on-disk artifact directory. Every attempt keeps a
// local copy there; retention removes it alongside the remote artifact.
type LocalStorage struct {
	basePath string
}

func NewLocal(basePath string) (*LocalStorage, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create backup directory: %w", err)
	}
	return &LocalStorage{basePath: basePath}, nil
}

// Store copies the staged file into the artifact directory and returns the
// kept path.
func (l *LocalStorage) Store(localPath, name string) (string, error) {
	destPath := filepath.Join(l.basePath, name)

	source, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("failed to open source: %w", err)
	}
	defer source.Close()

	dest, err := os.Create(destPath)
	if err != nil {
		return "", fmt.Errorf("failed to create dest: %w", err)
	}
	defer dest.Close()

	if _, err := dest.ReadFrom(source); err != nil {
		return "", fmt.Errorf("failed to copy: %w", err)
	}

	return destPath, nil
}

// Remove deletes a kept artifact. A file already gone is not an error.
func (l *LocalStorage) Remove(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

func (l *LocalStorage) Path(name string) string {
	return filepath.Join(l.basePath, name)
}
