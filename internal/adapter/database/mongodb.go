package database

import (
	"context"
	"fmt"
	"os/exec"

	"github.com/semmidev/custos/internal/config"
	"github.com/semmidev/custos/internal/domain"
)

type MongoDBDatabase struct {
	config *config.DatabaseConfig
}

func NewMongoDB(cfg *config.DatabaseConfig) *MongoDBDatabase {
	return &MongoDBDatabase{config: cfg}
}

func (m *MongoDBDatabase) uri() string {
	uri := fmt.Sprintf("mongodb://%s:%s@%s:%d/%s",
		m.config.Username,
		m.config.Password,
		m.config.Host,
		m.config.Port,
		m.config.Database,
	)
	if m.config.AuthDatabase != "" {
		uri += fmt.Sprintf("?authSource=%s", m.config.AuthDatabase)
	}
	return uri
}

// Dump runs mongodump into a gzipped archive. mongodump has no differential
// mode, so the kind is advisory and every dump is a full one.
func (m *MongoDBDatabase) Dump(ctx context.Context, _ domain.BackupKind, outputPath string) error {
	args := []string{
		fmt.Sprintf("--uri=%s", m.uri()),
		fmt.Sprintf("--archive=%s", outputPath),
		"--gzip",
	}

	cmd := exec.CommandContext(ctx, "mongodump", args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("mongodump failed: %w, output: %s", err, string(output))
	}

	return nil
}

func (m *MongoDBDatabase) Name() string {
	return m.config.Name
}

func (m *MongoDBDatabase) Engine() string {
	return "mongodb"
}

func (m *MongoDBDatabase) Ping(ctx context.Context) error {
	cmd := exec.CommandContext(ctx, "mongosh",
		m.uri(),
		"--quiet",
		"--eval", "db.runCommand({ ping: 1 })",
	)

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("mongodb ping failed: %w", err)
	}

	return nil
}
