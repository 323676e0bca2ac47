package musiclink

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"
)

const (
	// iTunesLookupURL is the iTunes/Apple Music API lookup endpoint.
	iTunesLookupURL = "https://itunes.apple.com/lookup"
	// AppleMusicRequestTimeout is the timeout for Apple Music API requests.
	AppleMusicRequestTimeout = 10 * time.Second
	// artworkSize replaces the 100x100 thumbnail size in artwork URLs.
	artworkSize = "600x600bb"
)

var (
	// ErrTrackNotFound is returned when the lookup has no song for the id.
	ErrTrackNotFound = errors.New("track not found")
	// ErrLookupFailed is returned when the lookup API could not be queried.
	ErrLookupFailed = errors.New("lookup failed")

	appleMusicIDRegex = regexp.MustCompile(`^[0-9]+$`)
	artworkSizeRegex  = regexp.MustCompile(`\d+x\d+bb`)
)

// iTunesLookupResponse represents the response from iTunes lookup API.
type iTunesLookupResponse struct {
	ResultCount int                 `json:"resultCount"`
	Results     []iTunesTrackResult `json:"results"`
}

// iTunesTrackResult represents a track result from iTunes API.
type iTunesTrackResult struct {
	WrapperType     string `json:"wrapperType"`
	Kind            string `json:"kind"`
	TrackID         int64  `json:"trackId"`
	TrackName       string `json:"trackName"`
	ArtistName      string `json:"artistName"`
	CollectionName  string `json:"collectionName"`
	TrackTimeMillis int64  `json:"trackTimeMillis"`
	ArtworkURL100   string `json:"artworkUrl100"`
}

// TrackInfo holds the catalog data of an Apple Music song.
type TrackInfo struct {
	ID         string
	Title      string
	Artist     string
	Album      string
	Duration   time.Duration
	ArtworkURL string
}

// AppleMusicClient looks up songs through the public iTunes lookup API.
type AppleMusicClient struct {
	client    *http.Client
	lookupURL string
}

// NewAppleMusicClient creates a client against the public lookup endpoint.
func NewAppleMusicClient() *AppleMusicClient {
	return NewAppleMusicClientWithURL(&http.Client{Timeout: AppleMusicRequestTimeout}, iTunesLookupURL)
}

// NewAppleMusicClientWithURL creates a client against a custom lookup endpoint.
func NewAppleMusicClientWithURL(client *http.Client, lookupURL string) *AppleMusicClient {
	return &AppleMusicClient{client: client, lookupURL: lookupURL}
}

func isAppleMusicHost(hostname string) bool {
	hostname = strings.ToLower(hostname)
	// Support both music.apple.com and legacy itunes.apple.com.
	return hostname == "music.apple.com" || hostname == "itunes.apple.com"
}

func validAppleMusicID(id string) bool {
	return appleMusicIDRegex.MatchString(id)
}

// extractAppleMusicTrackID extracts the track ID from an Apple Music URL.
func extractAppleMusicTrackID(u *url.URL) (string, error) {
	// Album links carry the track in ?i=<trackId>.
	if trackID := u.Query().Get("i"); trackID != "" {
		if !validAppleMusicID(trackID) {
			return "", errors.New("malformed Apple Music track ID")
		}
		return trackID, nil
	}

	// Path format: /us/song/<song-name>/<song-id>
	if strings.Contains(u.Path, "/song/") {
		parts := strings.Split(strings.Trim(u.Path, "/"), "/")
		songID := strings.TrimPrefix(parts[len(parts)-1], "id")
		if validAppleMusicID(songID) {
			return songID, nil
		}
	}

	return "", errors.New("no track ID found in Apple Music URL (album links without ?i= are not supported)")
}

// LookupTrack fetches song metadata for trackID.
func (c *AppleMusicClient) LookupTrack(ctx context.Context, trackID string) (*TrackInfo, error) {
	if !validAppleMusicID(trackID) {
		return nil, fmt.Errorf("%w: malformed track ID %q", ErrTrackNotFound, trackID)
	}

	reqURL := fmt.Sprintf("%s?id=%s&entity=song", c.lookupURL, url.QueryEscape(trackID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLookupFailed, err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLookupFailed, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: iTunes API returned status %d", ErrLookupFailed, resp.StatusCode)
	}

	var lookupResp iTunesLookupResponse
	if err := json.NewDecoder(resp.Body).Decode(&lookupResp); err != nil {
		return nil, fmt.Errorf("%w: failed to decode iTunes API response: %w", ErrLookupFailed, err)
	}

	for i := range lookupResp.Results {
		result := &lookupResp.Results[i]
		if result.WrapperType != "" && result.WrapperType != "track" {
			continue
		}
		return &TrackInfo{
			ID:         trackID,
			Title:      result.TrackName,
			Artist:     result.ArtistName,
			Album:      result.CollectionName,
			Duration:   time.Duration(result.TrackTimeMillis) * time.Millisecond,
			ArtworkURL: artworkSizeRegex.ReplaceAllString(result.ArtworkURL100, artworkSize),
		}, nil
	}

	return nil, fmt.Errorf("%w: no song %s in iTunes API response", ErrTrackNotFound, trackID)
}
