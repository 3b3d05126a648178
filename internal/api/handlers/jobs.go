package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/semmidev/custos/internal/domain"
	"github.com/semmidev/custos/internal/usecase"
)

// JobServiceProvider defines the administrative operations the handlers
// expose.
type JobServiceProvider interface {
	CreateJob(ctx context.Context, params usecase.CreateJobParams) (domain.Job, error)
	GetJob(ctx context.Context, id string) (domain.Job, error)
	ListJobs(ctx context.Context) ([]domain.Job, error)
	UpdateJob(ctx context.Context, id string, params usecase.UpdateJobParams) (domain.Job, error)
	DeleteJob(ctx context.Context, id string) error
	RunNow(ctx context.Context, id string) (domain.Backup, error)
	Pause(ctx context.Context, id string) error
	Resume(ctx context.Context, id string) error
}

// JobHandler handles HTTP requests for backup jobs.
type JobHandler struct {
	service JobServiceProvider
}

func NewJobHandler(service JobServiceProvider) *JobHandler {
	return &JobHandler{service: service}
}

func (h *JobHandler) Create(w http.ResponseWriter, r *http.Request) {
	var params usecase.CreateJobParams
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	job, err := h.service.CreateJob(r.Context(), params)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, job)
}

func (h *JobHandler) List(w http.ResponseWriter, r *http.Request) {
	jobs, err := h.service.ListJobs(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if jobs == nil {
		jobs = []domain.Job{}
	}
	writeJSON(w, http.StatusOK, jobs)
}

func (h *JobHandler) Get(w http.ResponseWriter, r *http.Request) {
	job, err := h.service.GetJob(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (h *JobHandler) Update(w http.ResponseWriter, r *http.Request) {
	var params usecase.UpdateJobParams
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	job, err := h.service.UpdateJob(r.Context(), chi.URLParam(r, "id"), params)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (h *JobHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteJob(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Run triggers a manual backup attempt. It returns the pending record; a
// second trigger while one is in flight gets a conflict.
func (h *JobHandler) Run(w http.ResponseWriter, r *http.Request) {
	backup, err := h.service.RunNow(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, backup)
}

func (h *JobHandler) Pause(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Pause(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *JobHandler) Resume(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Resume(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
