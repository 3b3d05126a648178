package handlers

import (
	"context"
	"net/http"

	"github.com/semmidev/custos/internal/domain"
)

// StorageMonitorProvider reports remote storage usage.
type StorageMonitorProvider interface {
	CheckUsage(ctx context.Context) (domain.StorageUsage, error)
}

// StorageHandler handles HTTP requests for storage monitoring.
type StorageHandler struct {
	monitor StorageMonitorProvider
}

func NewStorageHandler(monitor StorageMonitorProvider) *StorageHandler {
	return &StorageHandler{monitor: monitor}
}

type usageResponse struct {
	UsedBytes      int64   `json:"used_bytes"`
	TotalBytes     int64   `json:"total_bytes"`
	UsedPercentage float64 `json:"used_percentage"`
}

func (h *StorageHandler) Usage(w http.ResponseWriter, r *http.Request) {
	usage, err := h.monitor.CheckUsage(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, usageResponse{
		UsedBytes:      usage.UsedBytes,
		TotalBytes:     usage.TotalBytes,
		UsedPercentage: usage.Percentage(),
	})
}
