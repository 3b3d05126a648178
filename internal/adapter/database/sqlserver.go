package database

import (
	"context"
	"fmt"
	"os/exec"

	"github.com/semmidev/custos/internal/config"
	"github.com/semmidev/custos/internal/domain"
)

type SQLServerDatabase struct {
	config *config.DatabaseConfig
}

func NewSQLServer(cfg *config.DatabaseConfig) *SQLServerDatabase {
	return &SQLServerDatabase{config: cfg}
}

// Dump runs a native BACKUP DATABASE through sqlcmd. SQL Server is the one
// supported engine with a real differential backup, so the kind selects the
// WITH DIFFERENTIAL clause.
func (s *SQLServerDatabase) Dump(ctx context.Context, kind domain.BackupKind, outputPath string) error {
	stmt := fmt.Sprintf("BACKUP DATABASE [%s] TO DISK = '%s' WITH COMPRESSION, INIT",
		s.config.Database, outputPath)
	if kind == domain.KindDifferential {
		stmt = fmt.Sprintf("BACKUP DATABASE [%s] TO DISK = '%s' WITH DIFFERENTIAL, COMPRESSION, INIT",
			s.config.Database, outputPath)
	}

	cmd := exec.CommandContext(ctx, "sqlcmd",
		"-S", fmt.Sprintf("%s,%d", s.config.Host, s.config.Port),
		"-U", s.config.Username,
		"-P", s.config.Password,
		"-b",
		"-Q", stmt,
	)

	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("sqlcmd backup failed: %w, output: %s", err, string(output))
	}

	return nil
}

func (s *SQLServerDatabase) Name() string {
	return s.config.Name
}

func (s *SQLServerDatabase) Engine() string {
	return "sqlserver"
}

func (s *SQLServerDatabase) Ping(ctx context.Context) error {
	cmd := exec.CommandContext(ctx, "sqlcmd",
		"-S", fmt.Sprintf("%s,%d", s.config.Host, s.config.Port),
		"-U", s.config.Username,
		"-P", s.config.Password,
		"-b",
		"-Q", "SELECT 1",
	)

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("sqlserver ping failed: %w", err)
	}

	return nil
}
