package database

import (
	"context"
	"fmt"
	"os"
	"os/exec"

	"github.com/semmidev/custos/internal/config"
	"github.com/semmidev/custos/internal/domain"
)

type PostgreSQLDatabase struct {
	config *config.DatabaseConfig
}

func NewPostgreSQL(cfg *config.DatabaseConfig) *PostgreSQLDatabase {
	return &PostgreSQLDatabase{config: cfg}
}

// Dump runs pg_dump in custom format. PostgreSQL has no differential dump,
// so the kind is advisory and every dump is a full one.
func (p *PostgreSQLDatabase) Dump(ctx context.Context, _ domain.BackupKind, outputPath string) error {
	cmd := exec.CommandContext(ctx, "pg_dump",
		fmt.Sprintf("--host=%s", p.config.Host),
		fmt.Sprintf("--port=%d", p.config.Port),
		fmt.Sprintf("--username=%s", p.config.Username),
		"--format=custom",
		"--compress=9",
		fmt.Sprintf("--file=%s", outputPath),
		p.config.Database,
	)

	cmd.Env = append(os.Environ(), fmt.Sprintf("PGPASSWORD=%s", p.config.Password))

	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("pg_dump failed: %w, output: %s", err, string(output))
	}

	return nil
}

func (p *PostgreSQLDatabase) Name() string {
	return p.config.Name
}

func (p *PostgreSQLDatabase) Engine() string {
	return "postgresql"
}

func (p *PostgreSQLDatabase) Ping(ctx context.Context) error {
	cmd := exec.CommandContext(ctx, "psql",
		fmt.Sprintf("--host=%s", p.config.Host),
		fmt.Sprintf("--port=%d", p.config.Port),
		fmt.Sprintf("--username=%s", p.config.Username),
		"--dbname=postgres",
		"-c", "SELECT 1",
	)

	cmd.Env = append(os.Environ(), fmt.Sprintf("PGPASSWORD=%s", p.config.Password))

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("postgresql ping failed: %w", err)
	}

	return nil
}
