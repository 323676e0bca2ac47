package clip

import (
	"context"
	"time"

	"go.uber.org/zap"

	"trackclip/internal/core"
	"trackclip/internal/render"
	"trackclip/internal/youtube"
)

// Trace reports how far Debug got through the pipeline.
type Trace struct {
	Input          string       `json:"input"`
	Options        core.Options `json:"options"`
	Catalog        string       `json:"catalog,omitempty"`
	CatalogID      string       `json:"catalog_id,omitempty"`
	Fingerprint    string       `json:"fingerprint,omitempty"`
	MetadataCached bool         `json:"metadata_cached"`
	ClipCached     bool         `json:"clip_cached"`
	SearchQuery    string       `json:"search_query,omitempty"`
	YouTubeID      string       `json:"youtube_id,omitempty"`
	Video          *TraceVideo  `json:"video_info,omitempty"`
	ClipStartMs    int64        `json:"clip_start_ms,omitempty"`
	Steps          []string     `json:"steps"`
	Error          string       `json:"error,omitempty"`
	Class          string       `json:"class,omitempty"`
}

// TraceVideo describes the resolved video of a Trace.
type TraceVideo struct {
	VideoID         string `json:"video_id"`
	Title           string `json:"title"`
	DurationSeconds int64  `json:"duration"`
	Strategy        string `json:"strategy"`
}

// Debug runs metadata resolution for input without caching or rendering and
// records each step. The first failing step ends the trace; its error is
// reported in the trace rather than returned.
func (s *Service) Debug(ctx context.Context, input string, opts core.Options) *Trace {
	trace := &Trace{Input: input, Options: opts, Steps: []string{}}

	ref, fp, err := s.Fingerprint(ctx, input, opts)
	if err != nil {
		return trace.failed(err)
	}
	trace.Catalog = ref.Catalog
	trace.CatalogID = ref.ID
	trace.Fingerprint = fp
	trace.step("Classified input as " + ref.Catalog)

	_, trace.MetadataCached = s.cache.GetMetadata(fp)
	trace.ClipCached = s.cache.Has(fp)

	var res *youtube.Resolution
	if ref.Catalog == core.CatalogYouTube {
		res, err = s.finder.Resolve(ctx, ref.ID)
		if err != nil {
			return trace.failed(err)
		}
		trace.YouTubeID = ref.ID
	} else {
		catalog, ok := s.catalogs[ref.Catalog]
		if !ok {
			return trace.failed(core.ErrCatalogUnavailable)
		}

		track, err := catalog.GetTrack(ctx, ref.ID)
		if err != nil {
			return trace.failed(err)
		}
		trace.SearchQuery = track.SearchQuery()
		trace.step("Got search query from " + ref.Catalog)

		res, err = s.finder.SearchVideo(ctx, trace.SearchQuery)
		if err != nil {
			return trace.failed(err)
		}
		trace.YouTubeID = res.Info.ID
		trace.step("Found YouTube video")
	}

	trace.Video = &TraceVideo{
		VideoID:         res.Info.ID,
		Title:           res.Info.Title,
		DurationSeconds: int64(res.Info.Duration / time.Second),
		Strategy:        res.Strategy,
	}
	trace.ClipStartMs = render.StartOffset(res.Info.Duration, opts.Duration()).Milliseconds()
	trace.step("Got video info")

	s.logger.Debug("Debug trace complete",
		zap.String("fingerprint", fp),
		zap.String("video_id", res.Info.ID))
	return trace
}

func (t *Trace) step(msg string) {
	t.Steps = append(t.Steps, msg)
}

func (t *Trace) failed(err error) *Trace {
	t.Error = err.Error()
	t.Class = core.Classify(err).String()
	t.step("Error: " + err.Error())
	return t
}
