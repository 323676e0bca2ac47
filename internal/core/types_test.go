package core

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"
	"testing"
	"time"
)

func TestNewOptions_Clamping(t *testing.T) {
	tests := []struct {
		name     string
		quality  Quality
		duration int
		width    int
		height   int
		expected Options
	}{
		{
			name:     "Defaults pass through",
			quality:  QualityMedium,
			duration: 7,
			width:    640,
			height:   360,
			expected: Options{Quality: QualityMedium, DurationSeconds: 7, Audio: true, Width: 640, Height: 360},
		},
		{
			name:     "Duration above range",
			quality:  QualityLow,
			duration: 25,
			width:    640,
			height:   360,
			expected: Options{Quality: QualityLow, DurationSeconds: 10, Audio: true, Width: 640, Height: 360},
		},
		{
			name:     "Duration below range",
			quality:  QualityMax,
			duration: 1,
			width:    640,
			height:   360,
			expected: Options{Quality: QualityMax, DurationSeconds: 3, Audio: true, Width: 640, Height: 360},
		},
		{
			name:     "Odd width rounds up",
			quality:  QualityMedium,
			duration: 7,
			width:    641,
			height:   360,
			expected: Options{Quality: QualityMedium, DurationSeconds: 7, Audio: true, Width: 642, Height: 360},
		},
		{
			name:     "Dimensions clamped",
			quality:  QualityMedium,
			duration: 7,
			width:    100,
			height:   5000,
			expected: Options{Quality: QualityMedium, DurationSeconds: 7, Audio: true, Width: 240, Height: 1080},
		},
		{
			name:     "Unknown quality",
			quality:  Quality("ultra"),
			duration: 7,
			width:    640,
			height:   361,
			expected: Options{Quality: QualityMedium, DurationSeconds: 7, Audio: true, Width: 640, Height: 362},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewOptions(tt.quality, tt.duration, true, tt.width, tt.height)
			if got != tt.expected {
				t.Errorf("NewOptions() = %+v, expected %+v", got, tt.expected)
			}
		})
	}
}

func TestOptionsFromQuery(t *testing.T) {
	got := OptionsFromQuery(url.Values{})
	if got != DefaultOptions() {
		t.Errorf("Empty query should yield defaults, got %+v", got)
	}

	q := url.Values{}
	q.Set("quality", "max")
	q.Set("duration", "abc")
	q.Set("audio", "false")
	q.Set("width", "1921")
	got = OptionsFromQuery(q)

	expected := Options{Quality: QualityMax, DurationSeconds: 7, Audio: false, Width: 1920, Height: 360}
	if got != expected {
		t.Errorf("OptionsFromQuery() = %+v, expected %+v", got, expected)
	}
}

func TestOptions_Fields(t *testing.T) {
	fields := DefaultOptions().Fields()

	expected := map[string]string{
		"quality":  "medium",
		"duration": "7",
		"audio":    "true",
		"width":    "640",
		"height":   "360",
	}
	for k, v := range expected {
		if fields[k] != v {
			t.Errorf("Field %s = %q, expected %q", k, fields[k], v)
		}
	}
	if len(fields) != len(expected) {
		t.Errorf("Expected %d fields, got %d", len(expected), len(fields))
	}
}

func TestTrack_SearchQuery(t *testing.T) {
	track := Track{Title: "One More Time", Artists: []string{"Daft Punk", "Romanthony"}}
	if got := track.SearchQuery(); got != "Daft Punk Romanthony One More Time" {
		t.Errorf("SearchQuery() = %q", got)
	}
	if got := track.ArtistLine(); got != "Daft Punk, Romanthony" {
		t.Errorf("ArtistLine() = %q", got)
	}
	if got := (Track{}).ArtistLine(); got != UnknownField {
		t.Errorf("ArtistLine() of empty track = %q", got)
	}
}

func TestSourceKind(t *testing.T) {
	if SourceKind(DirectURL{URL: "https://example.com/v.mp4"}) != "direct_url" {
		t.Error("DirectURL should report direct_url")
	}
	if SourceKind(StreamHandle{ReadCloser: io.NopCloser(strings.NewReader(""))}) != "stream" {
		t.Error("StreamHandle should report stream")
	}
	if SourceKind(nil) != "none" {
		t.Error("nil source should report none")
	}
}

func TestMetadata_ClipStart(t *testing.T) {
	m := Metadata{ClipStartMs: 96500}
	if m.ClipStart() != 96500*time.Millisecond {
		t.Errorf("ClipStart() = %v", m.ClipStart())
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		err      error
		expected ErrorClass
	}{
		{fmt.Errorf("parse: %w", ErrInvalidIdentifier), ClassBadInput},
		{ErrTrackNotFound, ClassNotFound},
		{ErrNoMatchFound, ClassNotFound},
		{ErrUnknownFingerprint, ClassNotFound},
		{fmt.Errorf("spotify: %w", ErrCatalogUnavailable), ClassTransient},
		{ErrSourceUnavailable, ClassTransient},
		{fmt.Errorf("%w: %w", ErrRenderTimeout, errDeadline()), ClassInternal},
		{ErrRenderFailed, ClassInternal},
		{ErrOutputMoveFailed, ClassInternal},
		{fmt.Errorf("boom"), ClassInternal},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			if got := Classify(tt.err); got != tt.expected {
				t.Errorf("Classify(%v) = %s, expected %s", tt.err, got, tt.expected)
			}
		})
	}
}

func errDeadline() error {
	ctx, cancel := context.WithDeadline(context.Background(), time.Now())
	defer cancel()
	<-ctx.Done()
	return ctx.Err()
}
