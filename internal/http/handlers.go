package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strconv"
	"time"

	"go.uber.org/zap"

	"trackclip/internal/core"
	"trackclip/internal/flood"
)

const (
	clipContentType  = "video/mp4"
	clipCacheControl = "public, max-age=3600"
)

type handlers struct {
	service ClipService
	gate    *flood.Floodgate
	metrics *Metrics
	logger  *zap.Logger
}

type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Class   string `json:"class"`
}

type metadataResponse struct {
	Success         bool           `json:"success"`
	Metadata        *core.Metadata `json:"metadata"`
	VideoPreviewURL string         `json:"video_preview_url"`
}

// statusWriter captures the response status for metrics.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

func (h *handlers) instrument(route string, next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		began := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}

		next(sw, r)

		took := time.Since(began)
		h.metrics.RequestsTotal.WithLabelValues(route, strconv.Itoa(sw.status)).Inc()
		h.metrics.RequestDuration.WithLabelValues(route).Observe(took.Seconds())

		h.logger.Debug("Request served",
			zap.String("route", route),
			zap.String("path", r.URL.Path),
			zap.Int("status", sw.status),
			zap.Duration("took", took))
	})
}

// limited rejects clients that exceeded their per-minute budget.
func (h *handlers) limited(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		client := clientKey(r)
		if h.gate != nil && !h.gate.Allow(client) {
			h.metrics.RateLimitedTotal.Inc()
			retry := int(h.gate.RetryAfter(client).Round(time.Second).Seconds())
			w.Header().Set("Retry-After", strconv.Itoa(max(1, retry)))
			writeJSON(w, http.StatusTooManyRequests, errorResponse{
				Error: "too many preview requests, slow down",
				Class: "rate_limited",
			})
			return
		}
		next(w, r)
	}
}

func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func (h *handlers) metadata(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var input string
	switch {
	case q.Get("input") != "":
		input = q.Get("input")
	case q.Get("spotifyid") != "":
		input = core.CatalogSpotify + ":" + q.Get("spotifyid")
	case q.Get("youtubeid") != "":
		input = core.CatalogYouTube + ":" + q.Get("youtubeid")
	default:
		h.writeError(w, fmt.Errorf("%w: one of input, spotifyid or youtubeid is required", core.ErrInvalidIdentifier))
		return
	}

	meta, err := h.service.GetOrCreateMetadata(r.Context(), input, core.OptionsFromQuery(q))
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, metadataResponse{
		Success:         true,
		Metadata:        meta,
		VideoPreviewURL: "/api/fetch/preview/" + meta.Fingerprint,
	})
}

func (h *handlers) fetchPreview(w http.ResponseWriter, r *http.Request) {
	path, err := h.service.GetOrCreateClip(r.Context(), r.PathValue("fingerprint"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.serveClip(w, r, path)
}

func (h *handlers) preview(w http.ResponseWriter, r *http.Request) {
	_, path, err := h.service.Preview(r.Context(), r.PathValue("input"), core.OptionsFromQuery(r.URL.Query()))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.serveClip(w, r, path)
}

func (h *handlers) debug(w http.ResponseWriter, r *http.Request) {
	trace := h.service.Debug(r.Context(), r.PathValue("input"), core.OptionsFromQuery(r.URL.Query()))
	writeJSON(w, http.StatusOK, trace)
}

func (h *handlers) clearCache(w http.ResponseWriter, _ *http.Request) {
	if err := h.service.ClearCache(); err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Cache cleared"})
}

func (h *handlers) info(w http.ResponseWriter, _ *http.Request) {
	stats, err := h.service.CacheStats()
	if err != nil {
		h.logger.Warn("Failed to collect cache stats", zap.Error(err))
	}

	body := map[string]any{
		"service": core.ServiceName,
		"version": core.Version,
		"cache":   stats,
		"options": map[string]any{
			"quality":  []core.Quality{core.QualityLow, core.QualityMedium, core.QualityMax},
			"duration": map[string]int{"min": core.MinClipSeconds, "max": core.MaxClipSeconds, "default": core.DefaultClipSeconds},
			"width":    map[string]int{"min": core.MinWidth, "max": core.MaxWidth, "default": core.DefaultWidth},
			"height":   map[string]int{"min": core.MinHeight, "max": core.MaxHeight, "default": core.DefaultHeight},
		},
		"endpoints": []string{
			"GET /api/fetch/metadata?input=|spotifyid=|youtubeid=",
			"GET /api/fetch/preview/{fingerprint}",
			"GET /api/preview/{input}",
			"GET /api/debug/{input}",
			"DELETE /api/cache",
			"GET /api/info",
		},
	}
	if h.gate != nil {
		body["rate_limit"] = h.gate.GetStats()
	}

	writeJSON(w, http.StatusOK, body)
}

func (h *handlers) serveClip(w http.ResponseWriter, r *http.Request, path string) {
	f, err := os.Open(path) //nolint:gosec // path comes from the cache
	if err != nil {
		h.writeError(w, fmt.Errorf("failed to open clip: %w", err))
		return
	}
	defer func() {
		_ = f.Close()
	}()

	info, err := f.Stat()
	if err != nil {
		h.writeError(w, fmt.Errorf("failed to stat clip: %w", err))
		return
	}

	w.Header().Set("Content-Type", clipContentType)
	w.Header().Set("Cache-Control", clipCacheControl)
	http.ServeContent(w, r, info.Name(), info.ModTime(), f)
}

func (h *handlers) writeError(w http.ResponseWriter, err error) {
	class := core.Classify(err)
	status := statusForClass(class)
	if errors.Is(err, context.Canceled) {
		// The client went away; nobody reads this response.
		status = http.StatusServiceUnavailable
	}

	if status >= http.StatusInternalServerError {
		h.logger.Error("Request failed", zap.Stringer("class", class), zap.Error(err))
	} else {
		h.logger.Info("Request rejected", zap.Stringer("class", class), zap.Error(err))
	}

	writeJSON(w, status, errorResponse{Error: err.Error(), Class: class.String()})
}

func statusForClass(class core.ErrorClass) int {
	switch class {
	case core.ClassBadInput:
		return http.StatusBadRequest
	case core.ClassNotFound:
		return http.StatusNotFound
	case core.ClassTransient:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
