package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/windshadow-calendar/internal/domain"
	"github.com/couchcryptid/windshadow-calendar/internal/jobs"
	"github.com/couchcryptid/windshadow-calendar/internal/observability"
	"github.com/couchcryptid/windshadow-calendar/internal/render"
)

const maxBodyBytes = 10 << 20

// JobService is the part of the job manager the API depends on.
type JobService interface {
	sharedobs.ReadinessChecker
	Submit(ctx context.Context, req domain.RunRequest) (domain.Job, error)
	Get(id string) (domain.Job, error)
	List() []domain.Job
	Inputs(id string) (jobs.Inputs, bool)
}

// Server exposes the calendar API alongside health, readiness, and metrics endpoints.
type Server struct {
	httpServer *http.Server
	jobs       JobService
	frames     *render.FrameCache
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewServer creates the HTTP server and registers every route.
func NewServer(addr string, svc JobService, frames *render.FrameCache, metrics *observability.Metrics, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		jobs:    svc,
		frames:  frames,
		metrics: metrics,
		logger:  logger,
	}

	mux.HandleFunc("GET /health", handleHealth)
	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(svc))
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("POST /calendar/run", s.handleRun)
	mux.HandleFunc("GET /calendar/jobs", s.handleListJobs)
	mux.HandleFunc("GET /calendar/jobs/{id}", s.handleGetJob)
	mux.HandleFunc("GET /files/{id}/frame", s.handleFrame)
	mux.HandleFunc("GET /files/{id}/{kind}", s.handleFile)
	mux.HandleFunc("POST /turbines/parse", s.handleParseTurbines)
	mux.HandleFunc("GET /export/frame.png", handleExportPlaceholder)

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	sharedobs.WriteJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"time":   domain.Now().UTC().Format(time.RFC3339),
	})
}

type errorBody struct {
	Detail string `json:"detail"`
}

func writeError(w http.ResponseWriter, status int, detail string) {
	sharedobs.WriteJSON(w, status, errorBody{Detail: detail})
}
