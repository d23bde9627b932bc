package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/podushkina/notifyqueue/internal/auth"
	"github.com/podushkina/notifyqueue/internal/queue"
)

const defaultRecentJobs = 10

type Handler struct {
	queue *queue.Queue
}

func NewHandler(q *queue.Queue) *Handler {
	return &Handler{queue: q}
}

type ErrorResponse struct {
	Error string `json:"error"`
}

// Stats serves the monitoring summary of the job store.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	recent := defaultRecentJobs
	if v := r.URL.Query().Get("recent"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			respondError(w, http.StatusBadRequest, "recent must be a non-negative integer")
			return
		}
		recent = n
	}

	st, err := h.queue.Stats(r.Context(), recent)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, st)
}

func (h *Handler) GetJob(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	j, err := h.queue.Get(r.Context(), id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if j == nil {
		respondError(w, http.StatusNotFound, "job not found")
		return
	}

	respondJSON(w, http.StatusOK, j)
}

func (h *Handler) ListJobs(w http.ResponseWriter, r *http.Request) {
	jobs, err := h.queue.List(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, jobs)
}

func (h *Handler) DeleteJob(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.queue.Delete(r.Context(), id); err != nil {
		respondQueueError(w, err)
		return
	}
	log.Printf("api: job %s pruned by %s", id, operator(r))

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) RetryJob(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	j, err := h.queue.Retry(r.Context(), id)
	if err != nil {
		respondQueueError(w, err)
		return
	}
	log.Printf("api: job %s requeued by %s", id, operator(r))

	respondJSON(w, http.StatusAccepted, j)
}

func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// operator names the caller of an operator route; routes are open when no
// JWT secret is configured.
func operator(r *http.Request) string {
	if sub, ok := auth.OperatorFromContext(r.Context()); ok {
		return sub
	}
	return "anonymous"
}

func respondQueueError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, queue.ErrNotFound):
		respondError(w, http.StatusNotFound, "job not found")
	case errors.Is(err, queue.ErrNotTerminal), errors.Is(err, queue.ErrNotFailed):
		respondError(w, http.StatusConflict, err.Error())
	default:
		respondError(w, http.StatusInternalServerError, err.Error())
	}
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, ErrorResponse{Error: message})
}
