package core

import (
	"context"
	"errors"
	"fmt"

	"trackclip/pkg/musiclink"
)

// appleMusicCatalog adapts pkg/musiclink.AppleMusicClient to Catalog.
type appleMusicCatalog struct {
	client *musiclink.AppleMusicClient
}

// NewAppleMusicCatalog creates a Catalog backed by the iTunes lookup API.
func NewAppleMusicCatalog(client *musiclink.AppleMusicClient) Catalog {
	return &appleMusicCatalog{client: client}
}

// GetTrack looks up an Apple Music song id.
func (a *appleMusicCatalog) GetTrack(ctx context.Context, id string) (*Track, error) {
	info, err := a.client.LookupTrack(ctx, id)
	switch {
	case errors.Is(err, musiclink.ErrTrackNotFound):
		return nil, fmt.Errorf("%w: %w", ErrTrackNotFound, err)
	case err != nil:
		return nil, fmt.Errorf("%w: %w", ErrCatalogUnavailable, err)
	}

	var artists []string
	if info.Artist != "" {
		artists = []string{info.Artist}
	}

	return &Track{
		ID:          info.ID,
		Title:       info.Title,
		Artists:     artists,
		Album:       info.Album,
		Duration:    info.Duration,
		CoverArtURL: info.ArtworkURL,
	}, nil
}
