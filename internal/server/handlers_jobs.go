package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/invoice-extractor/constants"
	"github.com/joseph-ayodele/invoice-extractor/internal/async"
	"github.com/joseph-ayodele/invoice-extractor/internal/common"
	"github.com/joseph-ayodele/invoice-extractor/internal/entity"
	"github.com/joseph-ayodele/invoice-extractor/internal/pipeline"
	"github.com/joseph-ayodele/invoice-extractor/internal/schema"
)

type submitJobResponse struct {
	JobID  uuid.UUID           `json:"job_id"`
	Status constants.JobStatus `json:"status"`
}

type listJobsResponse struct {
	Jobs []*entity.ExtractJob `json:"jobs"`
}

// handleSubmitJob records an upload and hands it to the worker pool. The optional
// "schema" form field carries an API schema as JSON; the default schema is used
// without it.
func (s *Server) handleSubmitJob(w http.ResponseWriter, r *http.Request) {
	if s.queue == nil {
		writeError(w, http.StatusServiceUnavailable, "Job queue is disabled")
		return
	}
	up, err := s.readUpload(w, r)
	if err != nil {
		writeAppError(w, err, "")
		return
	}

	api := schema.DefaultAPI()
	if raw := strings.TrimSpace(r.FormValue("schema")); raw != "" {
		api = entity.APISchema{}
		if err := json.Unmarshal([]byte(raw), &api); err != nil {
			writeError(w, http.StatusBadRequest, "invalid schema JSON: "+err.Error())
			return
		}
	}

	ctx := r.Context()
	in := pipeline.Input{FileName: up.name, Data: up.data, Schema: api}
	job, err := s.proc.CreateJob(ctx, in)
	if err != nil {
		writeAppError(w, err, "")
		return
	}

	err = s.queue.Enqueue(ctx, async.Job{
		JobID:       job.ID,
		FileName:    up.name,
		Data:        up.data,
		Schema:      api,
		SubmittedAt: time.Now(),
		TraceID:     common.RequestIDFromContext(ctx),
	})
	if err != nil {
		if s.proc.Jobs != nil {
			_ = s.proc.Jobs.FinishFailure(ctx, job.ID, err.Error())
		}
		if errors.Is(err, async.ErrQueueFull) || errors.Is(err, async.ErrQueueClosed) {
			writeError(w, http.StatusServiceUnavailable, err.Error())
			return
		}
		writeAppError(w, err, "")
		return
	}

	writeJSON(w, http.StatusAccepted, submitJobResponse{JobID: job.ID, Status: constants.JobStatusQueued})
}

func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	if s.jobs == nil {
		writeError(w, http.StatusNotFound, "Job history is disabled")
		return
	}
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	jobs, err := s.jobs.List(r.Context(), limit)
	if err != nil {
		writeAppError(w, err, "Failed to list jobs")
		return
	}
	// Summaries only; text and documents come from the single-job route.
	for _, j := range jobs {
		j.Text = ""
		j.Document = nil
		j.Schema = nil
	}
	if jobs == nil {
		jobs = []*entity.ExtractJob{}
	}
	writeJSON(w, http.StatusOK, listJobsResponse{Jobs: jobs})
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	id, ok := jobIDParam(w, r)
	if !ok {
		return
	}
	if s.jobs == nil {
		writeError(w, http.StatusNotFound, "Job history is disabled")
		return
	}
	job, err := s.jobs.GetByID(r.Context(), id)
	if err != nil {
		writeAppError(w, err, "Failed to load job")
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (s *Server) handleExportJob(w http.ResponseWriter, r *http.Request) {
	id, ok := jobIDParam(w, r)
	if !ok {
		return
	}
	data, name, err := s.exporter.ExportJobXLSX(r.Context(), id)
	if err != nil {
		s.logger.Error("api.jobs.export.failed", "job_id", id, "error", err)
		writeAppError(w, err, "Failed to generate Excel file")
		return
	}
	writeAttachment(w, name, constants.ContentTypeXLSX, data)
}

func jobIDParam(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "job id must be a UUID")
		return uuid.Nil, false
	}
	return id, true
}
