// Package spotify provides the Spotify Web API track catalog.
package spotify

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"go.uber.org/zap"
	"golang.org/x/oauth2/clientcredentials"

	"trackclip/internal/core"
)

// errNotConfigured is returned when no client credentials are set.
var errNotConfigured = errors.New("spotify credentials not configured")

// Client looks up tracks with an app token from the client credentials flow.
type Client struct {
	logger *zap.Logger
	client *spotify.Client
}

// NewClient creates a catalog client against the public Spotify endpoints.
func NewClient(ctx context.Context, config *core.SpotifyConfig, logger *zap.Logger) *Client {
	return NewClientWithEndpoints(ctx, config, logger, spotifyauth.TokenURL, "")
}

// NewClientWithEndpoints creates a catalog client against custom token and API
// endpoints. An empty apiURL keeps the library default.
func NewClientWithEndpoints(ctx context.Context, config *core.SpotifyConfig, logger *zap.Logger, tokenURL, apiURL string) *Client {
	c := &Client{logger: logger}

	if config.ClientID == "" || config.ClientSecret == "" {
		logger.Warn("Spotify credentials not configured, Spotify inputs will fail")
		return c
	}

	creds := &clientcredentials.Config{
		ClientID:     config.ClientID,
		ClientSecret: config.ClientSecret,
		TokenURL:     tokenURL,
	}

	var opts []spotify.ClientOption
	if apiURL != "" {
		opts = append(opts, spotify.WithBaseURL(apiURL))
	}

	// The token source refreshes the app token on expiry.
	c.client = spotify.New(creds.Client(ctx), opts...)
	return c
}

// Configured reports whether credentials were provided.
func (c *Client) Configured() bool {
	return c.client != nil
}

// GetTrack fetches the track with the given id.
func (c *Client) GetTrack(ctx context.Context, trackID string) (*core.Track, error) {
	if c.client == nil {
		return nil, fmt.Errorf("%w: %w", core.ErrCatalogUnavailable, errNotConfigured)
	}

	track, err := c.client.GetTrack(ctx, spotify.ID(trackID))
	if err != nil {
		var apiErr spotify.Error
		if errors.As(err, &apiErr) && (apiErr.Status == http.StatusNotFound || apiErr.Status == http.StatusBadRequest) {
			return nil, fmt.Errorf("%w: %s", core.ErrTrackNotFound, apiErr.Message)
		}
		c.logger.Warn("Spotify track lookup failed", zap.String("track_id", trackID), zap.Error(err))
		return nil, fmt.Errorf("%w: %w", core.ErrCatalogUnavailable, err)
	}

	coreTrack := convertSpotifyTrack(track)
	return &coreTrack, nil
}

func convertSpotifyTrack(track *spotify.FullTrack) core.Track {
	artists := make([]string, 0, len(track.Artists))
	for _, artist := range track.Artists {
		artists = append(artists, artist.Name)
	}

	var coverArt string
	if len(track.Album.Images) > 0 {
		coverArt = track.Album.Images[0].URL
	}

	return core.Track{
		ID:          string(track.ID),
		Title:       track.Name,
		Artists:     artists,
		Album:       track.Album.Name,
		Duration:    time.Duration(track.Duration) * time.Millisecond,
		CoverArtURL: coverArt,
	}
}
