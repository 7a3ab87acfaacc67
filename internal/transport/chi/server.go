// Package chi is the ops HTTP server of the exporter: health, metrics, export
// progress and shard discovery.
package chi

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	logpkg "github.com/kailas-cloud/solrstream/internal/logger"
	"github.com/kailas-cloud/solrstream/internal/metrics"
	"github.com/kailas-cloud/solrstream/internal/transport/solr"
	exportuc "github.com/kailas-cloud/solrstream/internal/usecase/export"
	healthuc "github.com/kailas-cloud/solrstream/internal/usecase/health"
)

// ProgressSource reports the state of the running export.
type ProgressSource interface {
	Progress() exportuc.Progress
}

// ShardLister resolves a collection to its shards.
type ShardLister interface {
	Shards(ctx context.Context, collection string) ([]solr.Shard, error)
}

// Server serves the ops endpoints.
type Server struct {
	health   *healthuc.Service
	progress ProgressSource
	shards   ShardLister
	apiKeys  []string
	logger   *zap.Logger
}

// NewServer creates an ops server. shards can be nil, which disables /shards.
func NewServer(
	health *healthuc.Service,
	progress ProgressSource,
	shards ShardLister,
	apiKeys []string,
	logger *zap.Logger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		health:   health,
		progress: progress,
		shards:   shards,
		apiKeys:  apiKeys,
		logger:   logger,
	}
}

// Router builds the chi router with the full middleware chain.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(jsonRecoverer(s.logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(s.logger))
	r.Use(BearerAuthMiddleware(s.apiKeys))
	r.Use(metrics.Middleware())

	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
	r.Get("/status", s.Status)
	r.Get("/shards/{collection}", s.ListShards)
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, CodeBadRequest, "route not found")
	})
	return r
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status healthuc.Status                 `json:"status"`
	Checks map[string]healthuc.CheckResult `json:"checks"`
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}
	writeJSON(w, httpStatus, HealthResponse{Status: report.Status, Checks: report.Checks})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

// Status handles GET /status.
func (s *Server) Status(w http.ResponseWriter, _ *http.Request) {
	if s.progress == nil {
		writeJSON(w, http.StatusOK, exportuc.Progress{State: exportuc.StateIdle})
		return
	}
	writeJSON(w, http.StatusOK, s.progress.Progress())
}

// ShardResponse describes one shard in GET /shards/{collection}.
type ShardResponse struct {
	Name     string `json:"name"`
	State    string `json:"state"`
	Endpoint string `json:"endpoint,omitempty"`
	Replicas int    `json:"replicas"`
	Error    string `json:"error,omitempty"`
}

// ListShards handles GET /shards/{collection}.
func (s *Server) ListShards(w http.ResponseWriter, r *http.Request) {
	if s.shards == nil {
		writeError(w, http.StatusNotImplemented, CodeNotImplemented, "shard discovery is disabled")
		return
	}
	collection := chi.URLParam(r, "collection")

	shards, err := s.shards.Shards(r.Context(), collection)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	items := make([]ShardResponse, 0, len(shards))
	for _, sh := range shards {
		item := ShardResponse{Name: sh.Name, State: sh.State, Replicas: len(sh.Replicas)}
		if endpoint, err := sh.Endpoint(); err != nil {
			item.Error = err.Error()
		} else {
			item.Endpoint = endpoint
		}
		items = append(items, item)
	}
	logpkg.AddFields(r.Context(),
		zap.String("collection", collection), zap.Int("shard_count", len(items)))
	writeJSON(w, http.StatusOK, map[string]any{
		"collection": collection,
		"shards":     items,
	})
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	logpkg.FromContext(r.Context()).Warn("domain error", zap.Error(err))
	for _, h := range errorHandlers {
		if h(w, err) {
			return
		}
	}
	writeError(w, http.StatusBadGateway, CodeUnavailable, "cluster request failed")
}
