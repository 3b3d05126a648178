package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App       AppConfig        `mapstructure:"app"`
	API       APIConfig        `mapstructure:"api"`
	Store     StoreConfig      `mapstructure:"store"`
	Databases []DatabaseConfig `mapstructure:"databases"`
	Backup    BackupConfig     `mapstructure:"backup"`
	Scheduler SchedulerConfig  `mapstructure:"scheduler"`
	Storage   StorageConfig    `mapstructure:"storage"`
	Notifier  NotifierConfig   `mapstructure:"notifier"`
	Monitor   MonitorConfig    `mapstructure:"monitor"`
}

type AppConfig struct {
	Name     string `mapstructure:"name"`
	LogLevel string `mapstructure:"log_level"`
	LogFile  string `mapstructure:"log_file"`
}

type APIConfig struct {
	Addr string `mapstructure:"addr"`
}

type StoreConfig struct {
	Path string `mapstructure:"path"`
}

type DatabaseConfig struct {
	Name     string `mapstructure:"name"`
	Type     string `mapstructure:"type"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`

	// PostgreSQL specific
	SSLMode string `mapstructure:"ssl_mode"`

	// MongoDB specific
	AuthDatabase string `mapstructure:"auth_database"`
}

type BackupConfig struct {
	LocalPath    string        `mapstructure:"local_path"`
	Compress     bool          `mapstructure:"compress"`
	CatchUpDelay time.Duration `mapstructure:"catch_up_delay"`
}

type SchedulerConfig struct {
	PollInterval time.Duration `mapstructure:"poll_interval"`
}

type StorageConfig struct {
	Type string `mapstructure:"type"`

	// AWS S3
	Region        string `mapstructure:"region"`
	Bucket        string `mapstructure:"bucket"`
	AccessKey     string `mapstructure:"access_key"`
	SecretKey     string `mapstructure:"secret_key"`
	Prefix        string `mapstructure:"prefix"`
	CapacityBytes int64  `mapstructure:"capacity_bytes"`

	// Google Drive
	CredentialsFile string `mapstructure:"credentials_file"`
	FolderID        string `mapstructure:"folder_id"`
}

type NotifierConfig struct {
	Telegram TelegramConfig `mapstructure:"telegram"`
}

type TelegramConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	BotToken string `mapstructure:"bot_token"`
	ChatID   string `mapstructure:"chat_id"`
}

type MonitorConfig struct {
	WarnThreshold float64 `mapstructure:"warn_threshold"`
	Schedule      string  `mapstructure:"schedule"`
}

func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.SetDefault("app.name", "custos")
	v.SetDefault("app.log_level", "info")
	v.SetDefault("api.addr", ":8080")
	v.SetDefault("store.path", "custos.db")
	v.SetDefault("backup.compress", true)
	v.SetDefault("backup.catch_up_delay", "5m")
	v.SetDefault("scheduler.poll_interval", "60s")
	v.SetDefault("monitor.warn_threshold", 80.0)
	v.SetDefault("monitor.schedule", "0 0 3 * * *")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	if len(c.Databases) == 0 {
		return fmt.Errorf("at least one database configuration is required")
	}

	for i, db := range c.Databases {
		if db.Name == "" {
			return fmt.Errorf("database[%d]: name is required", i)
		}
		if db.Type == "" {
			return fmt.Errorf("database[%d]: type is required", i)
		}
		if db.Host == "" {
			return fmt.Errorf("database[%d]: host is required", i)
		}
	}

	if c.Backup.LocalPath == "" {
		return fmt.Errorf("backup.local_path is required")
	}
	if c.Backup.CatchUpDelay <= 0 {
		return fmt.Errorf("backup.catch_up_delay must be positive")
	}
	if c.Scheduler.PollInterval <= 0 {
		return fmt.Errorf("scheduler.poll_interval must be positive")
	}

	switch c.Storage.Type {
	case "s3":
		if c.Storage.Bucket == "" {
			return fmt.Errorf("storage.bucket is required for s3")
		}
	case "gdrive":
		if c.Storage.CredentialsFile == "" {
			return fmt.Errorf("storage.credentials_file is required for gdrive")
		}
	default:
		return fmt.Errorf("unsupported storage type: %q", c.Storage.Type)
	}

	if c.Notifier.Telegram.Enabled && c.Notifier.Telegram.BotToken == "" {
		return fmt.Errorf("notifier.telegram.bot_token is required when enabled")
	}

	return nil
}

// FindDatabase returns the configured database with the given name.
func (c *Config) FindDatabase(name string) (DatabaseConfig, bool) {
	for _, db := range c.Databases {
		if db.Name == name {
			return db, true
		}
	}
	return DatabaseConfig{}, false
}
