package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/order-geomap/internal/domain"
	"github.com/couchcryptid/order-geomap/internal/pipeline"
)

// Mapper runs the order map pipeline. *pipeline.Pipeline satisfies it.
type Mapper interface {
	sharedobs.ReadinessChecker
	Run(ctx context.Context, rows []domain.RawRow, progress pipeline.ProgressFunc) (domain.PipelineResult, error)
	References() []domain.ReferencePoint
}

// Server exposes the map API alongside health, readiness, and metrics endpoints.
type Server struct {
	httpServer     *http.Server
	mapper         Mapper
	maxUploadBytes int64
	logger         *slog.Logger
}

// NewServer creates an HTTP server with /v1/maps, /v1/references, /healthz,
// /readyz, and /metrics routes.
func NewServer(addr string, mapper Mapper, maxUploadBytes int64, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		mapper:         mapper,
		maxUploadBytes: maxUploadBytes,
		logger:         logger,
	}

	mux.HandleFunc("POST /v1/maps", s.handleCreateMap)
	mux.HandleFunc("GET /v1/references", s.handleReferences)
	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(mapper))
	mux.Handle("GET /metrics", promhttp.Handler())

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

func (s *Server) handleReferences(w http.ResponseWriter, _ *http.Request) {
	sharedobs.WriteJSON(w, http.StatusOK, map[string]any{"reference_points": s.mapper.References()})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	sharedobs.WriteJSON(w, status, map[string]string{"error": msg})
}
