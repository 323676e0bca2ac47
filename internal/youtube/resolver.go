// Package youtube resolves YouTube videos to playable sources and searches for
// the official video of a track.
package youtube

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"trackclip/internal/core"
	"trackclip/pkg/musiclink"
)

const (
	strategyInnerTube  = "innertube"
	strategyYtDlpBest  = "yt-dlp"
	strategyYtDlpMP4   = "yt-dlp-mp4"
	streamHeaderWait   = 15 * time.Second
	streamUserAgent    = ytAndroidUA
	searchResultsURL   = "https://www.youtube.com/results?search_query="
	maxResultsPageSize = 4 << 20
)

// Resolution is the outcome of resolving a video. Exactly one of Direct and
// Formats is set.
type Resolution struct {
	Info     core.VideoInfo
	Strategy string
	Direct   *core.DirectURL
	Formats  []Format
}

// PlayerAPI returns video details and stream formats.
type PlayerAPI interface {
	Player(ctx context.Context, videoID string) (*Resolution, error)
}

// URLLookup resolves a direct media URL for a format selector.
type URLLookup interface {
	Lookup(ctx context.Context, videoID, format string) (*Resolution, error)
}

// StreamOpener opens a live byte stream of a format.
type StreamOpener interface {
	OpenStream(ctx context.Context, f Format) (io.ReadCloser, error)
}

// ResultsFetcher fetches the HTML of a search results page.
type ResultsFetcher interface {
	FetchResults(ctx context.Context, query string) (string, error)
}

// Backends are the platform collaborators of a Resolver.
type Backends struct {
	Player  PlayerAPI
	URLs    URLLookup
	Streams StreamOpener
	Search  ResultsFetcher
}

// Resolver runs the extraction strategy chain and the search loop.
type Resolver struct {
	logger   *zap.Logger
	config   core.YouTubeConfig
	backends Backends
}

// NewResolver creates a resolver talking to YouTube and the yt-dlp binary.
func NewResolver(config core.YouTubeConfig, logger *zap.Logger) *Resolver {
	apiClient := &http.Client{}
	streamClient := &http.Client{
		Transport: &http.Transport{
			Proxy:                 http.ProxyFromEnvironment,
			ResponseHeaderTimeout: streamHeaderWait,
		},
	}

	return NewResolverWithBackends(config, logger, Backends{
		Player:  NewInnerTube(apiClient, ""),
		URLs:    NewYtDlp(config.YtDlpPath, ExecRunner{}),
		Streams: &httpStreams{client: streamClient},
		Search:  &resultsPage{client: apiClient},
	})
}

// NewResolverWithBackends creates a resolver over custom collaborators.
func NewResolverWithBackends(config core.YouTubeConfig, logger *zap.Logger, backends Backends) *Resolver {
	return &Resolver{
		logger:   logger,
		config:   config,
		backends: backends,
	}
}

// Resolve runs the strategy chain for videoID: the player API first, then a
// yt-dlp lookup. Each strategy has its own timeout.
func (r *Resolver) Resolve(ctx context.Context, videoID string) (*Resolution, error) {
	if !musiclink.ValidYouTubeID(videoID) {
		return nil, fmt.Errorf("%w: video ID %q", core.ErrInvalidIdentifier, videoID)
	}

	steps := []Step[*Resolution]{
		{
			Name:    strategyInnerTube,
			Timeout: r.config.InfoTimeout,
			Run: func(ctx context.Context) (*Resolution, error) {
				return r.backends.Player.Player(ctx, videoID)
			},
		},
		{
			Name:    strategyYtDlpBest,
			Timeout: r.config.FallbackTimeout,
			Run: func(ctx context.Context) (*Resolution, error) {
				return r.backends.URLs.Lookup(ctx, videoID, bestFormat)
			},
		},
	}

	res, strategy, err := FirstSuccess(ctx, r.logger, steps)
	if err != nil {
		r.logger.Warn("All extraction strategies failed", zap.String("video_id", videoID), zap.Error(err))
		return nil, fmt.Errorf("%w: %w", core.ErrSourceUnavailable, err)
	}

	res.Strategy = strategy
	r.logger.Debug("Video resolved",
		zap.String("video_id", videoID),
		zap.String("strategy", strategy),
		zap.String("title", res.Info.Title),
		zap.Duration("duration", res.Info.Duration))
	return res, nil
}

// Info returns the video details of videoID.
func (r *Resolver) Info(ctx context.Context, videoID string) (*core.VideoInfo, error) {
	res, err := r.Resolve(ctx, videoID)
	if err != nil {
		return nil, err
	}
	return &res.Info, nil
}

// Open turns a resolution into a playable source. A direct URL is returned as
// is. A format list is opened as a live stream; when that fails a direct mp4
// URL is looked up instead.
func (r *Resolver) Open(ctx context.Context, res *Resolution) (core.Source, error) {
	if res.Direct != nil {
		return *res.Direct, nil
	}

	stream, err := r.openStream(ctx, res)
	if err == nil {
		return core.StreamHandle{ReadCloser: stream}, nil
	}

	r.logger.Info("Stream creation failed, trying direct URL fallback",
		zap.String("video_id", res.Info.ID), zap.Error(err))

	steps := []Step[*Resolution]{{
		Name:    strategyYtDlpMP4,
		Timeout: r.config.FallbackTimeout,
		Run: func(ctx context.Context) (*Resolution, error) {
			return r.backends.URLs.Lookup(ctx, res.Info.ID, directFormat)
		},
	}}

	direct, _, fallbackErr := FirstSuccess(ctx, r.logger, steps)
	if fallbackErr != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrSourceUnavailable, errors.Join(err, fallbackErr))
	}
	return *direct.Direct, nil
}

func (r *Resolver) openStream(ctx context.Context, res *Resolution) (io.ReadCloser, error) {
	formats := streamableFormats(res.Formats)
	if len(formats) == 0 {
		return nil, errors.New("no muxed mp4 format at 480p or above")
	}

	var errs []error
	for _, f := range formats {
		stream, err := r.backends.Streams.OpenStream(ctx, f)
		if err == nil {
			r.logger.Debug("Opened stream", zap.String("video_id", res.Info.ID), zap.String("quality", f.QualityLabel))
			return stream, nil
		}
		errs = append(errs, fmt.Errorf("%s: %w", f.QualityLabel, err))
	}
	return nil, errors.Join(errs...)
}

// httpStreams opens format URLs with a plain GET.
type httpStreams struct {
	client *http.Client
}

func (s *httpStreams) OpenStream(ctx context.Context, f Format) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.URL, http.NoBody)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", streamUserAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusPartialContent {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("stream returned status %d", resp.StatusCode)
	}
	return resp.Body, nil
}
