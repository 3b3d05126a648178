package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/semmidev/custos/internal/domain"
)

// BackupHistoryProvider exposes backup history and artifact links.
type BackupHistoryProvider interface {
	ListBackups(ctx context.Context, jobID string) ([]domain.Backup, error)
	GetBackup(ctx context.Context, id string) (domain.Backup, error)
	BackupLink(ctx context.Context, id string, ttl time.Duration) (string, error)
}

// BackupHandler handles HTTP requests for backup history.
type BackupHandler struct {
	service BackupHistoryProvider
}

func NewBackupHandler(service BackupHistoryProvider) *BackupHandler {
	return &BackupHandler{service: service}
}

const defaultLinkTTL = time.Hour

func (h *BackupHandler) List(w http.ResponseWriter, r *http.Request) {
	backups, err := h.service.ListBackups(r.Context(), "")
	if err != nil {
		writeError(w, err)
		return
	}
	if backups == nil {
		backups = []domain.Backup{}
	}
	writeJSON(w, http.StatusOK, backups)
}

func (h *BackupHandler) ListForJob(w http.ResponseWriter, r *http.Request) {
	backups, err := h.service.ListBackups(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	if backups == nil {
		backups = []domain.Backup{}
	}
	writeJSON(w, http.StatusOK, backups)
}

func (h *BackupHandler) Get(w http.ResponseWriter, r *http.Request) {
	backup, err := h.service.GetBackup(r.Context(), chi.URLParam(r, "backupId"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, backup)
}

// Link issues a temporary download URL for a completed backup.
func (h *BackupHandler) Link(w http.ResponseWriter, r *http.Request) {
	link, err := h.service.BackupLink(r.Context(), chi.URLParam(r, "backupId"), defaultLinkTTL)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"url": link})
}
