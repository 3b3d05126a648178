package notifier

import (
	"context"
	"fmt"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/semmidev/custos/internal/config"
	"github.com/semmidev/custos/internal/domain"
)

// TelegramNotifier delivers backup outcomes to a Telegram chat.
type TelegramNotifier struct {
	bot    *tgbotapi.BotAPI
	chatID int64
}

func NewTelegram(cfg *config.TelegramConfig) (*TelegramNotifier, error) {
	bot, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}

	var chatID int64
	fmt.Sscanf(cfg.ChatID, "%d", &chatID)

	return &TelegramNotifier{
		bot:    bot,
		chatID: chatID,
	}, nil
}

func (t *TelegramNotifier) send(message string) error {
	msg := tgbotapi.NewMessage(t.chatID, message)
	if _, err := t.bot.Send(msg); err != nil {
		return fmt.Errorf("failed to send telegram notification: %w", err)
	}
	return nil
}

func (t *TelegramNotifier) NotifySuccess(_ context.Context, job domain.Job, backup domain.Backup) error {
	duration := time.Duration(0)
	if backup.CompletedAt != nil {
		duration = backup.CompletedAt.Sub(backup.StartedAt).Round(time.Second)
	}

	return t.send(fmt.Sprintf(
		"✅ Backup Completed\n\n"+
			"🗄 Database: %s\n"+
			"📦 Kind: %s\n"+
			"📊 Size: %s\n"+
			"⏱ Duration: %s",
		job.Database,
		job.Kind,
		FormatSize(backup.Size),
		duration,
	))
}

func (t *TelegramNotifier) NotifyFailure(_ context.Context, job domain.Job, backup domain.Backup) error {
	return t.send(fmt.Sprintf(
		"❌ Backup Failed\n\n"+
			"🗄 Database: %s\n"+
			"📦 Kind: %s\n"+
			"⚠️ Error: %s",
		job.Database,
		job.Kind,
		backup.ErrorMessage,
	))
}

func (t *TelegramNotifier) NotifyStorageWarning(_ context.Context, usedPercent float64) error {
	return t.send(fmt.Sprintf(
		"⚠️ Storage Warning\n\n"+
			"Remote backup storage is %.1f%% full. "+
			"Consider lowering retention or expanding capacity.",
		usedPercent,
	))
}

// FormatSize renders a byte count in a human-readable unit.
func FormatSize(size int64) string {
	value := float64(size)
	for _, unit := range []string{"B", "KB", "MB", "GB"} {
		if value < 1024 {
			return fmt.Sprintf("%.2f %s", value, unit)
		}
		value /= 1024
	}
	return fmt.Sprintf("%.2f TB", value)
}
