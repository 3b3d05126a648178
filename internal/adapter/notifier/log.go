package notifier

import (
	"context"

	"github.com/semmidev/custos/internal/domain"
)

type Logger interface {
	Infof(template string, args ...interface{})
	Warnf(template string, args ...interface{})
}

// LogNotifier writes outcomes to the application log. It is the fallback
// when no delivery channel is configured.
type LogNotifier struct {
	logger Logger
}

func NewLog(logger Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) NotifySuccess(_ context.Context, job domain.Job, backup domain.Backup) error {
	n.logger.Infof("[%s] backup %s completed, size %s",
		job.Database, backup.ID, FormatSize(backup.Size))
	return nil
}

func (n *LogNotifier) NotifyFailure(_ context.Context, job domain.Job, backup domain.Backup) error {
	n.logger.Warnf("[%s] backup %s failed (%s): %s",
		job.Database, backup.ID, backup.ErrorCode, backup.ErrorMessage)
	return nil
}

func (n *LogNotifier) NotifyStorageWarning(_ context.Context, usedPercent float64) error {
	n.logger.Warnf("remote backup storage is %.1f%% full", usedPercent)
	return nil
}
