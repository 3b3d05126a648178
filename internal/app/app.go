package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/semmidev/custos/internal/adapter/compressor"
	"github.com/semmidev/custos/internal/adapter/database"
	"github.com/semmidev/custos/internal/adapter/notifier"
	"github.com/semmidev/custos/internal/adapter/storage"
	"github.com/semmidev/custos/internal/api"
	"github.com/semmidev/custos/internal/config"
	"github.com/semmidev/custos/internal/domain"
	"github.com/semmidev/custos/internal/infrastructure/logger"
	"github.com/semmidev/custos/internal/scheduler"
	"github.com/semmidev/custos/internal/store"
	"github.com/semmidev/custos/internal/usecase"
)

type App struct {
	config      *config.Config
	logger      *logger.Logger
	store       *store.SQLite
	scheduler   *scheduler.Scheduler
	monitor     *usecase.Monitor
	maintenance *cron.Cron
	server      *http.Server
}

func New(cfg *config.Config) (*App, error) {
	log, err := logger.New(cfg.App.LogLevel, cfg.App.LogFile)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	log.Infof("Starting %s", cfg.App.Name)

	st, err := store.Open(cfg.Store.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	artifacts, err := storage.NewLocal(cfg.Backup.LocalPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize local storage: %w", err)
	}

	remote, err := initializeStorage(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize remote storage: %w", err)
	}
	log.Infof("✓ Remote storage enabled (%s)", cfg.Storage.Type)

	notify := initializeNotifier(cfg, log)
	databases := initializeDatabases(cfg, log)
	if len(databases) == 0 {
		return nil, fmt.Errorf("no usable databases configured")
	}

	retention := usecase.NewRetention(st, remote, artifacts, log, nil)
	executor := usecase.NewExecutor(
		st,
		databases,
		remote,
		artifacts,
		compressor.NewGzip(),
		retention,
		notify,
		log,
		usecase.ExecutorConfig{
			Compress:     cfg.Backup.Compress,
			CatchUpDelay: cfg.Backup.CatchUpDelay,
		},
	)

	sched := scheduler.New(st, executor, log, scheduler.Config{
		PollInterval: cfg.Scheduler.PollInterval,
		CatchUpDelay: cfg.Backup.CatchUpDelay,
	})

	jobService := usecase.NewJobService(st, sched, remote, databases, log, nil)
	monitor := usecase.NewMonitor(remote, notify, log, cfg.Monitor.WarnThreshold)

	server := &http.Server{
		Addr:              cfg.API.Addr,
		Handler:           api.NewRouter(jobService, monitor),
		ReadHeaderTimeout: 5 * time.Second,
	}

	return &App{
		config:      cfg,
		logger:      log,
		store:       st,
		scheduler:   sched,
		monitor:     monitor,
		maintenance: cron.New(cron.WithSeconds()),
		server:      server,
	}, nil
}

func initializeStorage(cfg *config.Config) (domain.ObjectStorage, error) {
	switch cfg.Storage.Type {
	case "s3":
		return storage.NewS3(&cfg.Storage)
	case "gdrive":
		return storage.NewGDrive(&cfg.Storage)
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", cfg.Storage.Type)
	}
}

func initializeNotifier(cfg *config.Config, log *logger.Logger) domain.Notifier {
	if cfg.Notifier.Telegram.Enabled {
		tg, err := notifier.NewTelegram(&cfg.Notifier.Telegram)
		if err != nil {
			log.Errorf("Failed to initialize Telegram notifier: %v", err)
		} else {
			log.Infof("✓ Telegram notifications enabled")
			return tg
		}
	}
	return notifier.NewLog(log)
}

func initializeDatabases(cfg *config.Config, log *logger.Logger) map[string]domain.Database {
	databases := make(map[string]domain.Database)

	for i := range cfg.Databases {
		dbCfg := &cfg.Databases[i]

		var db domain.Database
		switch dbCfg.Type {
		case "mysql":
			db = database.NewMySQL(dbCfg)
		case "postgresql":
			db = database.NewPostgreSQL(dbCfg)
		case "mongodb":
			db = database.NewMongoDB(dbCfg)
		case "sqlserver":
			db = database.NewSQLServer(dbCfg)
		default:
			log.Warnf("Unsupported database type: %s for %s", dbCfg.Type, dbCfg.Name)
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		err := db.Ping(ctx)
		cancel()
		if err != nil {
			log.Errorf("Failed to connect to %s: %v", dbCfg.Name, err)
			continue
		}

		log.Infof("✓ Connected to %s (%s)", dbCfg.Name, dbCfg.Type)
		databases[dbCfg.Name] = db
	}

	return databases
}

func (a *App) Run(ctx context.Context) error {
	a.scheduler.Start()

	if _, err := a.maintenance.AddFunc(a.config.Monitor.Schedule, func() {
		checkCtx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if _, err := a.monitor.CheckUsage(checkCtx); err != nil {
			a.logger.Errorf("storage usage check failed: %v", err)
		}
	}); err != nil {
		return fmt.Errorf("failed to schedule storage check: %w", err)
	}
	a.maintenance.Start()

	go func() {
		a.logger.Infof("Admin API listening on %s", a.server.Addr)
		if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.logger.Errorf("API server error: %v", err)
		}
	}()

	<-ctx.Done()
	return nil
}

func (a *App) Shutdown() {
	a.logger.Infof("Shutting down application...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		a.logger.Errorf("API server shutdown: %v", err)
	}

	<-a.maintenance.Stop().Done()
	a.scheduler.Shutdown()

	if err := a.store.Close(); err != nil {
		a.logger.Errorf("store close: %v", err)
	}

	a.logger.Close()
}
