package server

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/invoice-extractor/constants"
	"github.com/joseph-ayodele/invoice-extractor/internal/async"
	"github.com/joseph-ayodele/invoice-extractor/internal/entity"
	"github.com/joseph-ayodele/invoice-extractor/internal/export"
	"github.com/joseph-ayodele/invoice-extractor/internal/pipeline"
)

// JobStore reads the job history.
type JobStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*entity.ExtractJob, error)
	List(ctx context.Context, limit int) ([]*entity.ExtractJob, error)
}

// Deps are the collaborators the HTTP layer needs. Jobs, Queue and Health may be nil.
type Deps struct {
	Processor      *pipeline.Processor
	Exporter       *export.Service
	Jobs           JobStore
	Queue          async.Queue
	Health         func(ctx context.Context) error
	MaxUploadBytes int64
	Logger         *slog.Logger
}

type Server struct {
	proc     *pipeline.Processor
	exporter *export.Service
	jobs     JobStore
	queue    async.Queue
	health   func(ctx context.Context) error
	maxBytes int64
	logger   *slog.Logger
}

func New(d Deps) *Server {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.MaxUploadBytes <= 0 {
		d.MaxUploadBytes = constants.MaxUploadMBDefault << 20
	}
	if d.Exporter == nil {
		d.Exporter = export.NewService(nil, d.Logger)
	}
	return &Server{
		proc:     d.Processor,
		exporter: d.Exporter,
		jobs:     d.Jobs,
		queue:    d.Queue,
		health:   d.Health,
		maxBytes: d.MaxUploadBytes,
		logger:   d.Logger,
	}
}

// Routes builds the HTTP handler.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.logger))
	r.Use(middleware.Recoverer)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "Not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	r.Get("/health", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Post("/process", s.handleProcess)
		r.Post("/extract", s.handleExtract)
		r.Post("/download", s.handleDownload)
		r.Post("/preview", s.handlePreview)

		r.Route("/schema", func(r chi.Router) {
			r.Get("/default", s.handleDefaultSchema)
			r.Post("/to-api", s.handleToAPI)
			r.Post("/from-api", s.handleFromAPI)
		})

		r.Route("/jobs", func(r chi.Router) {
			r.Post("/", s.handleSubmitJob)
			r.Get("/", s.handleListJobs)
			r.Get("/{id}", s.handleGetJob)
			r.Get("/{id}/export", s.handleExportJob)
		})
	})
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.health != nil {
		if err := s.health(r.Context()); err != nil {
			s.logger.Warn("health.failed", "error", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{"ok": false, "error": err.Error()})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "service": "invoice-extractor"})
}
