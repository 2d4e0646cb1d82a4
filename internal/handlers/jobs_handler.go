package handlers

import (
	"net/http"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/ZeyuShao-uOttawa/SentimentDelta/internal/interfaces"
	"github.com/ZeyuShao-uOttawa/SentimentDelta/internal/services/scheduler"
)

// JobsHandler exposes scheduler state and recent run history, plus manual
// job triggering for operators.
type JobsHandler struct {
	scheduler  *scheduler.Scheduler
	runStorage interfaces.JobRunStorage
	logger     arbor.ILogger
}

func NewJobsHandler(sched *scheduler.Scheduler, runStorage interfaces.JobRunStorage, logger arbor.ILogger) *JobsHandler {
	return &JobsHandler{
		scheduler:  sched,
		runStorage: runStorage,
		logger:     logger,
	}
}

// StatusHandler returns every registered job with its schedule and next run.
// GET /api/jobs
func (h *JobsHandler) StatusHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"jobs": h.scheduler.JobStatuses(),
	})
}

// RunsHandler returns recent run records, optionally filtered by job name.
// GET /api/jobs/runs?job=stock_prices&limit=20
func (h *JobsHandler) RunsHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	opts, err := GetQueryOptions(r)
	if err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	jobName := r.URL.Query().Get("job")
	limit := opts.Limit
	if limit > 100 {
		limit = 100
	}

	var runs interface{}
	if jobName != "" {
		runs, err = h.runStorage.RecentByJob(r.Context(), jobName, limit)
	} else {
		runs, err = h.runStorage.Recent(r.Context(), limit)
	}
	if err != nil {
		h.logger.Error().Err(err).Msg("Job run query failed")
		WriteError(w, http.StatusInternalServerError, "failed to query job runs")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"runs": runs,
	})
}

// TriggerHandler fires a registered job immediately.
// POST /api/jobs/{name}/trigger
func (h *JobsHandler) TriggerHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/api/jobs/")
	name := strings.TrimSuffix(path, "/trigger")
	if name == "" || name == path {
		WriteError(w, http.StatusBadRequest, "expected /api/jobs/{name}/trigger")
		return
	}

	if err := h.scheduler.TriggerJob(name); err != nil {
		WriteError(w, http.StatusConflict, err.Error())
		return
	}

	h.logger.Info().Str("job", name).Msg("Job triggered via API")
	WriteJSON(w, http.StatusOK, map[string]string{
		"status": "started",
		"job":    name,
	})
}
