package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

// --- Job Handlers ---

func (h *HTTPHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	list, err := h.jobs.List(r.Context(), userOf(r), r.URL.Query().Get("status"), limit)
	if err != nil {
		h.respondWithServiceError(w, r, "list jobs", err)
		return
	}
	respondWithJSON(w, http.StatusOK, list)
}

func (h *HTTPHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	job, err := h.jobs.Get(r.Context(), userOf(r), chi.URLParam(r, "jobId"))
	if err != nil {
		h.respondWithServiceError(w, r, "get job", err)
		return
	}
	respondWithJSON(w, http.StatusOK, job)
}

func (h *HTTPHandler) CancelJob(w http.ResponseWriter, r *http.Request) {
	job, err := h.jobs.Cancel(r.Context(), userOf(r), chi.URLParam(r, "jobId"))
	if err != nil {
		h.respondWithServiceError(w, r, "cancel job", err)
		return
	}
	respondWrite(w, http.StatusOK, job)
}

func (h *HTTPHandler) RetryJob(w http.ResponseWriter, r *http.Request) {
	job, err := h.jobs.Retry(r.Context(), userOf(r), chi.URLParam(r, "jobId"))
	if err != nil {
		h.respondWithServiceError(w, r, "retry job", err)
		return
	}
	respondWrite(w, http.StatusOK, job)
}

func (h *HTTPHandler) DeleteCompletedJobs(w http.ResponseWriter, r *http.Request) {
	n, err := h.jobs.DeleteCompleted(r.Context(), userOf(r))
	if err != nil {
		h.respondWithServiceError(w, r, "delete completed jobs", err)
		return
	}
	respondWrite(w, http.StatusOK, map[string]int64{"deleted": n})
}
