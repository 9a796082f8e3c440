package http

import (
	"context"
	"iter"
	"log/slog"
	"net/http"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/storm-guidance-service/internal/answer"
	"github.com/couchcryptid/storm-guidance-service/internal/domain"
	"github.com/couchcryptid/storm-guidance-service/internal/observability"
)

// Assistant answers questions whole or as a stream and manages the
// conversation session.
type Assistant interface {
	IsPreferredAvailable() bool
	Exchange(ctx context.Context, question string, ac domain.AskContext) (domain.Message, domain.Message, error)
	StreamRespond(ctx context.Context, question string, ac domain.AskContext) iter.Seq2[answer.Chunk, error]
	NewConversation(ctx context.Context) error
	EndConversation()
}

// TipsSource returns contextual tips for a region and month.
type TipsSource interface {
	Tips(region *domain.Region, month string) []string
}

// Recorder receives every question and answer exchanged.
type Recorder interface {
	Record(messages ...domain.Message)
}

// Deps are the collaborators behind the API routes. Locator and Journal
// may be nil.
type Deps struct {
	Regions   domain.HazardCatalog
	Tips      TipsSource
	Assistant Assistant
	Locator   domain.RegionLocator
	Journal   Recorder
	Ready     sharedobs.ReadinessChecker
	Metrics   *observability.Metrics
}

// Server exposes the guidance API alongside health, readiness, and metrics
// endpoints.
type Server struct {
	httpServer *http.Server
	deps       Deps
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /healthz, /readyz, /metrics, and the
// /v1 API routes.
func NewServer(addr string, deps Deps, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 60 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		deps:   deps,
		logger: logger,
	}

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(deps.Ready))
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("GET /v1/regions", s.handleRegions)
	mux.HandleFunc("GET /v1/tips", s.handleTips)
	mux.HandleFunc("GET /v1/assistant", s.handleAssistant)
	mux.HandleFunc("POST /v1/ask", s.handleAsk)
	mux.HandleFunc("POST /v1/ask/stream", s.handleAskStream)
	mux.HandleFunc("POST /v1/conversation", s.handleNewConversation)
	mux.HandleFunc("DELETE /v1/conversation", s.handleEndConversation)

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
