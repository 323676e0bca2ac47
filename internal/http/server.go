// Package http exposes the clip service over HTTP.
package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"trackclip/internal/clip"
	"trackclip/internal/core"
	"trackclip/internal/flood"
	"trackclip/internal/store"
)

const shutdownTimeout = 10 * time.Second

// ClipService is the orchestration API the handlers call.
type ClipService interface {
	GetOrCreateMetadata(ctx context.Context, input string, opts core.Options) (*core.Metadata, error)
	GetOrCreateClip(ctx context.Context, fp string) (string, error)
	Preview(ctx context.Context, input string, opts core.Options) (*core.Metadata, string, error)
	ClearCache() error
	CacheStats() (store.Stats, error)
	Debug(ctx context.Context, input string, opts core.Options) *clip.Trace
}

// Server serves the clip API, health probes and metrics.
type Server struct {
	config  *core.ServerConfig
	logger  *zap.Logger
	server  *http.Server
	metrics *Metrics
}

// NewServer wires the routes. Metrics must be registered on gatherer.
func NewServer(
	config *core.ServerConfig,
	service ClipService,
	gate *flood.Floodgate,
	metrics *Metrics,
	gatherer prometheus.Gatherer,
	logger *zap.Logger,
) *Server {
	h := &handlers{
		service: service,
		gate:    gate,
		metrics: metrics,
		logger:  logger,
	}

	mux := setupRoutes(h, gatherer)

	return &Server{
		config:  config,
		logger:  logger,
		server:  createHTTPServer(config, mux),
		metrics: metrics,
	}
}

func createHTTPServer(config *core.ServerConfig, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              fmt.Sprintf("%s:%d", config.Host, config.Port),
		Handler:           handler,
		ReadTimeout:       config.ReadTimeout,
		ReadHeaderTimeout: config.ReadTimeout,
		WriteTimeout:      config.WriteTimeout,
	}
}

func setupRoutes(h *handlers, gatherer prometheus.Gatherer) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "service": core.ServiceName})
	})

	mux.HandleFunc("GET /readyz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready", "service": core.ServiceName})
	})

	mux.Handle("GET /metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	metadata := h.instrument("metadata", h.metadata)
	mux.Handle("GET /api/fetch/metadata", metadata)
	mux.Handle("GET /api/metadata", metadata)
	mux.Handle("GET /api/fetch/preview/{fingerprint}", h.instrument("fetch_preview", h.limited(h.fetchPreview)))
	mux.Handle("GET /api/preview/{input...}", h.instrument("preview", h.limited(h.preview)))
	mux.Handle("GET /api/debug/{input...}", h.instrument("debug", h.limited(h.debug)))
	mux.Handle("DELETE /api/cache", h.instrument("clear_cache", h.clearCache))
	mux.Handle("GET /api/info", h.instrument("info", h.info))

	return mux
}

// Handler returns the root handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Start listens until ctx is done, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	s.logger.Info("Starting HTTP server",
		zap.String("addr", s.server.Addr))

	go func() {
		<-ctx.Done()
		s.logger.Info("Shutting down HTTP server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := s.server.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("Failed to shutdown HTTP server gracefully", zap.Error(err))
		}
	}()

	if err := s.server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("HTTP server failed: %w", err)
	}

	return nil
}

// GetMetrics returns the collectors the server records into.
func (s *Server) GetMetrics() *Metrics {
	return s.metrics
}
