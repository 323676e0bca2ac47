package core

import (
	"context"
	"io"
	"strings"
	"time"
)

const (
	// CatalogSpotify names the Spotify catalog.
	CatalogSpotify = "spotify"
	// CatalogAppleMusic names the Apple Music catalog.
	CatalogAppleMusic = "applemusic"
	// CatalogYouTube marks inputs that already are a video id.
	CatalogYouTube = "youtube"
	// UnknownField fills metadata fields a source cannot provide.
	UnknownField = "Unknown"
)

// Track is a catalog entry.
type Track struct {
	ID          string
	Title       string
	Artists     []string
	Album       string
	Duration    time.Duration
	CoverArtURL string
}

// SearchQuery builds the platform search query for the track.
func (t Track) SearchQuery() string {
	return strings.TrimSpace(strings.Join(t.Artists, " ") + " " + t.Title)
}

// ArtistLine joins the artists for display.
func (t Track) ArtistLine() string {
	if len(t.Artists) == 0 {
		return UnknownField
	}
	return strings.Join(t.Artists, ", ")
}

// VideoInfo is basic information about a platform video.
type VideoInfo struct {
	ID       string
	Title    string
	Channel  string
	Duration time.Duration
}

// YouTubeMetadata is the matched video part of a metadata record.
type YouTubeMetadata struct {
	Title           string `json:"title"`
	DurationSeconds int64  `json:"duration_seconds"`
	Channel         string `json:"channel"`
}

// Metadata is the immutable record cached per fingerprint.
type Metadata struct {
	Input          string          `json:"input"`
	Catalog        string          `json:"catalog"`
	CatalogID      string          `json:"catalog_id"`
	Title          string          `json:"title"`
	Artist         string          `json:"artist"`
	Album          string          `json:"album"`
	DurationMs     int64           `json:"duration_ms"`
	Thumbnail      string          `json:"thumbnail,omitempty"`
	YouTubeVideoID string          `json:"youtube_video_id"`
	YouTube        YouTubeMetadata `json:"youtube_metadata"`
	ClipStartMs    int64           `json:"clip_start_ms"`
	ClipDurationMs int64           `json:"clip_duration_ms"`
	Options        Options         `json:"options"`
	Fingerprint    string          `json:"fingerprint"`
	CreatedAt      time.Time       `json:"created_at"`
}

// ClipStart returns the clip offset as a duration.
func (m *Metadata) ClipStart() time.Duration {
	return time.Duration(m.ClipStartMs) * time.Millisecond
}

// Source is a resolved handle to playable media. It is either a DirectURL or a
// StreamHandle and is consumed exactly once.
type Source interface {
	sourceKind() string
}

// DirectURL is a remote media URL the transcoder reads itself.
type DirectURL struct {
	URL                 string
	RequiresAuthHeaders bool
	Headers             map[string]string
}

func (DirectURL) sourceKind() string { return "direct_url" }

// StreamHandle is an open byte stream piped into the transcoder.
type StreamHandle struct {
	io.ReadCloser
}

func (StreamHandle) sourceKind() string { return "stream" }

// SourceKind reports which variant src is, for logging.
func SourceKind(src Source) string {
	if src == nil {
		return "none"
	}
	return src.sourceKind()
}

// Catalog looks up track metadata by catalog id.
type Catalog interface {
	GetTrack(ctx context.Context, id string) (*Track, error)
}
