package clip

import (
	"context"
	"testing"

	"trackclip/internal/core"
)

func TestService_DebugCatalogInput(t *testing.T) {
	f := newFixture(t)

	trace := f.service.Debug(context.Background(), testSpotifyID, core.DefaultOptions())

	if trace.Error != "" {
		t.Fatalf("Unexpected trace error: %s", trace.Error)
	}
	if trace.Catalog != core.CatalogSpotify || trace.CatalogID != testSpotifyID {
		t.Errorf("Catalog = %s:%s", trace.Catalog, trace.CatalogID)
	}
	if trace.SearchQuery != "Artist Song" {
		t.Errorf("SearchQuery = %q", trace.SearchQuery)
	}
	if trace.YouTubeID != testVideoID || trace.Video == nil || trace.Video.DurationSeconds != 200 {
		t.Errorf("Video = %s, %+v", trace.YouTubeID, trace.Video)
	}
	if trace.ClipStartMs != 96500 {
		t.Errorf("ClipStartMs = %d, expected 96500", trace.ClipStartMs)
	}
	if len(trace.Steps) != 4 {
		t.Errorf("Expected 4 steps, got %v", trace.Steps)
	}
	if trace.MetadataCached || trace.ClipCached {
		t.Error("Nothing should be cached yet")
	}

	if n := countFiles(t, f.cacheCfg.MetadataDir); n != 0 {
		t.Errorf("Debug must not cache metadata, found %d files", n)
	}
	if f.renderer.calls.Load() != 0 || f.finder.opens.Load() != 0 {
		t.Error("Debug must not open sources or render")
	}
}

func TestService_DebugYouTubeInput(t *testing.T) {
	f := newFixture(t)

	trace := f.service.Debug(context.Background(), "https://youtu.be/"+testVideoID, core.DefaultOptions())

	if trace.Error != "" {
		t.Fatalf("Unexpected trace error: %s", trace.Error)
	}
	if trace.SearchQuery != "" || f.finder.searches.Load() != 0 {
		t.Error("YouTube input should not search")
	}
	if trace.Video == nil || trace.Video.VideoID != testVideoID {
		t.Errorf("Video = %+v", trace.Video)
	}
}

func TestService_DebugStopsAtFailingStep(t *testing.T) {
	tests := []struct {
		name  string
		input string
		setup func(f *fixture)
		class core.ErrorClass
		steps int
	}{
		{"unsupported input", "not a track", nil, core.ClassBadInput, 1},
		{"track not found", testSpotifyID, func(f *fixture) { f.catalog.err = core.ErrTrackNotFound }, core.ClassNotFound, 2},
		{"no match", testSpotifyID, func(f *fixture) { f.finder.searchErr = core.ErrNoMatchFound }, core.ClassNotFound, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			if tt.setup != nil {
				tt.setup(f)
			}

			trace := f.service.Debug(context.Background(), tt.input, core.DefaultOptions())

			if trace.Error == "" || trace.Class != tt.class.String() {
				t.Errorf("Error = %q, class = %q, expected class %s", trace.Error, trace.Class, tt.class)
			}
			if len(trace.Steps) != tt.steps {
				t.Errorf("Expected %d steps, got %v", tt.steps, trace.Steps)
			}
			if trace.Video != nil {
				t.Error("Failed trace should carry no video")
			}
		})
	}
}
