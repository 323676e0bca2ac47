// Package musiclink classifies track identifiers and links from the supported
// catalogs and looks up Apple Music tracks.
package musiclink

import (
	"errors"
	"fmt"
)

const (
	// CatalogSpotify names Spotify references.
	CatalogSpotify = "spotify"
	// CatalogYouTube names YouTube references.
	CatalogYouTube = "youtube"
	// CatalogAppleMusic names Apple Music references.
	CatalogAppleMusic = "applemusic"
)

var (
	// ErrUnsupportedInput is returned for inputs no catalog recognizes.
	ErrUnsupportedInput = errors.New("unsupported input")
	// ErrShortLinkUnavailable is returned when a short link could not be
	// followed because the link service failed or was unreachable.
	ErrShortLinkUnavailable = errors.New("short link unavailable")
)

// Ref identifies a track or video within a catalog.
type Ref struct {
	Catalog string
	ID      string
}

// String returns the canonical "<catalog>:<id>" form, which Parse accepts back.
func (r Ref) String() string {
	return fmt.Sprintf("%s:%s", r.Catalog, r.ID)
}
