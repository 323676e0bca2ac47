// Package clip orchestrates metadata resolution, source acquisition, rendering
// and caching of track preview clips.
package clip

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"trackclip/internal/core"
	"trackclip/internal/render"
	"trackclip/internal/store"
	"trackclip/internal/youtube"
	"trackclip/pkg/musiclink"
)

const thumbnailURLFormat = "https://img.youtube.com/vi/%s/maxresdefault.jpg"

// InputResolver classifies raw user input as a catalog reference.
type InputResolver interface {
	Resolve(ctx context.Context, raw string) (musiclink.Ref, error)
}

// VideoFinder searches and resolves platform videos.
type VideoFinder interface {
	SearchVideo(ctx context.Context, query string) (*youtube.Resolution, error)
	Resolve(ctx context.Context, videoID string) (*youtube.Resolution, error)
	Open(ctx context.Context, res *youtube.Resolution) (core.Source, error)
}

// Renderer cuts a clip out of a source into outPath.
type Renderer interface {
	Render(ctx context.Context, src core.Source, start time.Duration, opts core.Options, outPath string) error
}

// Service drives a request from input to cached clip.
type Service struct {
	logger   *zap.Logger
	inputs   InputResolver
	catalogs map[string]core.Catalog
	finder   VideoFinder
	renderer Renderer
	cache    *store.Cache
	tempDir  string
	recorder Recorder
	inflight singleflight.Group
}

// NewService creates a service. catalogs is keyed by catalog name; inputs of a
// catalog missing from it fail as catalog unavailable.
func NewService(
	inputs InputResolver,
	catalogs map[string]core.Catalog,
	finder VideoFinder,
	renderer Renderer,
	cache *store.Cache,
	tempDir string,
	logger *zap.Logger,
) *Service {
	return &Service{
		logger:   logger,
		inputs:   inputs,
		catalogs: catalogs,
		finder:   finder,
		renderer: renderer,
		cache:    cache,
		tempDir:  tempDir,
		recorder: nopRecorder{},
	}
}

// SetRecorder installs the metrics recorder.
func (s *Service) SetRecorder(r Recorder) {
	s.recorder = r
}

// Fingerprint classifies input and returns the fingerprint it maps to under opts.
func (s *Service) Fingerprint(ctx context.Context, input string, opts core.Options) (musiclink.Ref, store.Fingerprint, error) {
	ref, err := s.inputs.Resolve(ctx, input)
	if err != nil {
		if errors.Is(err, musiclink.ErrUnsupportedInput) {
			return musiclink.Ref{}, "", fmt.Errorf("%w: %w", core.ErrInvalidIdentifier, err)
		}
		return musiclink.Ref{}, "", fmt.Errorf("%w: %w", core.ErrCatalogUnavailable, err)
	}
	return ref, store.Compute(ref.String(), opts.Fields()), nil
}

// GetOrCreateMetadata returns the cached record for input and opts, resolving
// and caching it first when absent. Nothing is cached on failure.
func (s *Service) GetOrCreateMetadata(ctx context.Context, input string, opts core.Options) (*core.Metadata, error) {
	ref, fp, err := s.Fingerprint(ctx, input, opts)
	if err != nil {
		return nil, s.fail(err)
	}

	if m, ok := s.cache.GetMetadata(fp); ok {
		s.recorder.CacheLookup(lookupMetadata, resultHit)
		s.logger.Debug("Metadata cache hit", zap.String("fingerprint", fp))
		return m, nil
	}
	s.recorder.CacheLookup(lookupMetadata, resultMiss)

	v, err := s.await(ctx, "metadata:"+fp, func(ctx context.Context) (any, error) {
		return s.resolveMetadata(ctx, ref, fp, opts)
	})
	if err != nil {
		return nil, s.fail(err)
	}
	return v.(*core.Metadata), nil
}

// GetOrCreateClip returns the durable clip path of fp, rendering it first when
// absent. The metadata record of fp must already exist.
func (s *Service) GetOrCreateClip(ctx context.Context, fp store.Fingerprint) (string, error) {
	if !store.ValidFingerprint(fp) {
		return "", s.fail(fmt.Errorf("%w: fingerprint %q", core.ErrInvalidIdentifier, fp))
	}

	if path, ok := s.cache.ClipPath(fp); ok {
		s.recorder.CacheLookup(lookupClip, resultHit)
		s.logger.Debug("Clip cache hit", zap.String("fingerprint", fp))
		return path, nil
	}
	s.recorder.CacheLookup(lookupClip, resultMiss)

	meta, ok := s.cache.GetMetadata(fp)
	if !ok {
		return "", s.fail(fmt.Errorf("%w: %s", core.ErrUnknownFingerprint, fp))
	}

	v, err := s.await(ctx, "clip:"+fp, func(ctx context.Context) (any, error) {
		return s.createClip(ctx, fp, meta)
	})
	if err != nil {
		return "", s.fail(err)
	}
	return v.(string), nil
}

// Preview returns the metadata record and clip path of input in one call.
func (s *Service) Preview(ctx context.Context, input string, opts core.Options) (*core.Metadata, string, error) {
	meta, err := s.GetOrCreateMetadata(ctx, input, opts)
	if err != nil {
		return nil, "", err
	}

	path, err := s.GetOrCreateClip(ctx, meta.Fingerprint)
	if err != nil {
		return nil, "", err
	}
	return meta, path, nil
}

// ClearCache empties both cache tiers.
func (s *Service) ClearCache() error {
	return s.cache.Clear()
}

// CacheHas reports whether a rendered clip exists for fp.
func (s *Service) CacheHas(fp store.Fingerprint) bool {
	return s.cache.Has(fp)
}

// CacheStats describes the cache content.
func (s *Service) CacheStats() (store.Stats, error) {
	return s.cache.Stats()
}

// await runs fn once per key and detaches it from the caller's cancellation.
// A caller that gives up stops waiting while the work runs to completion.
func (s *Service) await(ctx context.Context, key string, fn func(context.Context) (any, error)) (any, error) {
	detached := context.WithoutCancel(ctx)
	ch := s.inflight.DoChan(key, func() (any, error) {
		return fn(detached)
	})

	select {
	case res := <-ch:
		if res.Shared {
			s.logger.Debug("Joined in-flight request", zap.String("key", key))
		}
		return res.Val, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *Service) resolveMetadata(ctx context.Context, ref musiclink.Ref, fp store.Fingerprint, opts core.Options) (*core.Metadata, error) {
	var (
		meta *core.Metadata
		err  error
	)

	if ref.Catalog == core.CatalogYouTube {
		meta, err = s.videoMetadata(ctx, ref)
	} else {
		meta, err = s.trackMetadata(ctx, ref)
	}
	if err != nil {
		return nil, err
	}

	clipLength := opts.Duration()
	meta.Input = ref.String()
	meta.ClipStartMs = render.StartOffset(time.Duration(meta.YouTube.DurationSeconds)*time.Second, clipLength).Milliseconds()
	meta.ClipDurationMs = clipLength.Milliseconds()
	meta.Options = opts
	meta.Fingerprint = fp
	meta.CreatedAt = time.Now().UTC()

	if err := s.cache.PutMetadata(fp, meta); err != nil {
		s.logger.Warn("Metadata kept in memory only", zap.String("fingerprint", fp), zap.Error(err))
	}

	s.logger.Info("Metadata created",
		zap.String("fingerprint", fp),
		zap.String("input", meta.Input),
		zap.String("video_id", meta.YouTubeVideoID),
		zap.Int64("clip_start_ms", meta.ClipStartMs))
	return meta, nil
}

func (s *Service) trackMetadata(ctx context.Context, ref musiclink.Ref) (*core.Metadata, error) {
	catalog, ok := s.catalogs[ref.Catalog]
	if !ok {
		return nil, fmt.Errorf("%w: no %s catalog configured", core.ErrCatalogUnavailable, ref.Catalog)
	}

	track, err := catalog.GetTrack(ctx, ref.ID)
	if err != nil {
		return nil, err
	}

	res, err := s.finder.SearchVideo(ctx, track.SearchQuery())
	if err != nil {
		return nil, err
	}

	album := track.Album
	if album == "" {
		album = core.UnknownField
	}
	thumbnail := track.CoverArtURL
	if thumbnail == "" {
		thumbnail = fmt.Sprintf(thumbnailURLFormat, res.Info.ID)
	}

	meta := videoFields(res)
	meta.Catalog = ref.Catalog
	meta.CatalogID = ref.ID
	meta.Title = track.Title
	meta.Artist = track.ArtistLine()
	meta.Album = album
	meta.DurationMs = track.Duration.Milliseconds()
	meta.Thumbnail = thumbnail
	return meta, nil
}

func (s *Service) videoMetadata(ctx context.Context, ref musiclink.Ref) (*core.Metadata, error) {
	res, err := s.finder.Resolve(ctx, ref.ID)
	if err != nil {
		return nil, err
	}

	meta := videoFields(res)
	meta.Catalog = core.CatalogYouTube
	meta.CatalogID = ref.ID
	meta.Title = res.Info.Title
	meta.Artist = core.UnknownField
	meta.Album = core.UnknownField
	meta.DurationMs = res.Info.Duration.Milliseconds()
	meta.Thumbnail = fmt.Sprintf(thumbnailURLFormat, ref.ID)
	return meta, nil
}

func videoFields(res *youtube.Resolution) *core.Metadata {
	return &core.Metadata{
		YouTubeVideoID: res.Info.ID,
		YouTube: core.YouTubeMetadata{
			Title:           res.Info.Title,
			DurationSeconds: int64(res.Info.Duration / time.Second),
			Channel:         res.Info.Channel,
		},
	}
}

func (s *Service) createClip(ctx context.Context, fp store.Fingerprint, meta *core.Metadata) (string, error) {
	res, err := s.finder.Resolve(ctx, meta.YouTubeVideoID)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(s.tempDir, 0o750); err != nil {
		return "", fmt.Errorf("%w: %w", core.ErrRenderFailed, err)
	}

	src, err := s.finder.Open(ctx, res)
	if err != nil {
		return "", err
	}

	outPath := filepath.Join(s.tempDir, "clip-"+uuid.NewString()+".mp4")
	defer func() {
		if err := os.Remove(outPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
			s.logger.Warn("Failed to remove rendered clip", zap.String("path", outPath), zap.Error(err))
		}
	}()

	s.logger.Info("Rendering clip",
		zap.String("fingerprint", fp),
		zap.String("video_id", meta.YouTubeVideoID),
		zap.String("strategy", res.Strategy),
		zap.String("source", core.SourceKind(src)))

	began := time.Now()
	err = s.renderer.Render(ctx, src, meta.ClipStart(), meta.Options, outPath)
	s.recorder.RenderObserved(renderStatus(err), time.Since(began))
	if err != nil {
		return "", err
	}

	path, err := s.cache.PutClip(fp, outPath)
	if err != nil {
		return "", err
	}

	s.logger.Info("Clip cached", zap.String("fingerprint", fp), zap.Duration("took", time.Since(began)))
	return path, nil
}

func (s *Service) fail(err error) error {
	class := core.Classify(err)
	s.recorder.FailureObserved(class)
	s.logger.Debug("Request failed", zap.Stringer("class", class), zap.Error(err))
	return err
}
