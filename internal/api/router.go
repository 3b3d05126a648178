package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/semmidev/custos/internal/api/handlers"
)

// JobService is the full administrative surface the router mounts.
type JobService interface {
	handlers.JobServiceProvider
	handlers.BackupHistoryProvider
}

// NewRouter creates and configures a new Chi router for the admin API.
func NewRouter(jobs JobService, monitor handlers.StorageMonitorProvider) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	jobHandler := handlers.NewJobHandler(jobs)
	backupHandler := handlers.NewBackupHandler(jobs)
	storageHandler := handlers.NewStorageHandler(monitor)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/jobs", func(r chi.Router) {
			r.Get("/", jobHandler.List)
			r.Post("/", jobHandler.Create)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", jobHandler.Get)
				r.Put("/", jobHandler.Update)
				r.Delete("/", jobHandler.Delete)
				r.Post("/run", jobHandler.Run)
				r.Post("/pause", jobHandler.Pause)
				r.Post("/resume", jobHandler.Resume)
				r.Get("/backups", backupHandler.ListForJob)
			})
		})

		r.Route("/backups", func(r chi.Router) {
			r.Get("/", backupHandler.List)
			r.Route("/{backupId}", func(r chi.Router) {
				r.Get("/", backupHandler.Get)
				r.Get("/link", backupHandler.Link)
			})
		})

		r.Get("/storage/usage", storageHandler.Usage)
	})

	return r
}
