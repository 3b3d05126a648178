package database

import (
	"context"
	"fmt"
	"os/exec"

	"github.com/semmidev/custos/internal/config"
	"github.com/semmidev/custos/internal/domain"
)

type MySQLDatabase struct {
	config *config.DatabaseConfig
}

func NewMySQL(cfg *config.DatabaseConfig) *MySQLDatabase {
	return &MySQLDatabase{config: cfg}
}

// Dump runs mysqldump. mysqldump cannot produce differential dumps, so the
// kind is advisory and every dump is a full one.
func (m *MySQLDatabase) Dump(ctx context.Context, _ domain.BackupKind, outputPath string) error {
	args := []string{
		fmt.Sprintf("--host=%s", m.config.Host),
		fmt.Sprintf("--port=%d", m.config.Port),
		fmt.Sprintf("--user=%s", m.config.Username),
		fmt.Sprintf("--password=%s", m.config.Password),
		"--single-transaction",
		"--quick",
		"--lock-tables=false",
		"--routines",
		"--triggers",
		"--events",
		fmt.Sprintf("--result-file=%s", outputPath),
		m.config.Database,
	}

	cmd := exec.CommandContext(ctx, "mysqldump", args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("mysqldump failed: %w, output: %s", err, string(output))
	}

	return nil
}

func (m *MySQLDatabase) Name() string {
	return m.config.Name
}

func (m *MySQLDatabase) Engine() string {
	return "mysql"
}

func (m *MySQLDatabase) Ping(ctx context.Context) error {
	cmd := exec.CommandContext(ctx, "mysqladmin",
		fmt.Sprintf("--host=%s", m.config.Host),
		fmt.Sprintf("--port=%d", m.config.Port),
		fmt.Sprintf("--user=%s", m.config.Username),
		fmt.Sprintf("--password=%s", m.config.Password),
		"ping",
	)

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("mysql ping failed: %w", err)
	}

	return nil
}
