package musiclink

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// Parse classifies raw as a catalog reference. It accepts links, URIs, the
// canonical "<catalog>:<id>" form and bare ids. Bare 22 character ids are
// Spotify tracks, bare 11 character ids are YouTube videos.
func Parse(raw string) (Ref, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Ref{}, fmt.Errorf("%w: empty input", ErrUnsupportedInput)
	}

	if id, ok := extractSpotifyTrackID(raw); ok {
		return spotifyRef(id)
	}

	if ref, ok, err := parseCanonical(raw); ok {
		return ref, err
	}

	if u, err := url.Parse(raw); err == nil && u.Host != "" {
		return parseURL(u)
	}

	switch {
	case ValidSpotifyID(raw):
		return Ref{Catalog: CatalogSpotify, ID: raw}, nil
	case ValidYouTubeID(raw):
		return Ref{Catalog: CatalogYouTube, ID: raw}, nil
	}

	return Ref{}, fmt.Errorf("%w: %q", ErrUnsupportedInput, raw)
}

func parseCanonical(raw string) (Ref, bool, error) {
	catalog, id, found := strings.Cut(raw, ":")
	if !found {
		return Ref{}, false, nil
	}

	switch catalog {
	case CatalogSpotify:
		ref, err := spotifyRef(id)
		return ref, true, err
	case CatalogYouTube:
		if !ValidYouTubeID(id) {
			return Ref{}, true, fmt.Errorf("%w: malformed YouTube video ID %q", ErrUnsupportedInput, id)
		}
		return Ref{Catalog: CatalogYouTube, ID: id}, true, nil
	case CatalogAppleMusic:
		if !validAppleMusicID(id) {
			return Ref{}, true, fmt.Errorf("%w: malformed Apple Music track ID %q", ErrUnsupportedInput, id)
		}
		return Ref{Catalog: CatalogAppleMusic, ID: id}, true, nil
	}
	return Ref{}, false, nil
}

func parseURL(u *url.URL) (Ref, error) {
	switch {
	case isYouTubeHost(u.Hostname()):
		id, err := extractVideoID(u)
		if err != nil {
			return Ref{}, fmt.Errorf("%w: %w", ErrUnsupportedInput, err)
		}
		return Ref{Catalog: CatalogYouTube, ID: id}, nil
	case isAppleMusicHost(u.Hostname()):
		id, err := extractAppleMusicTrackID(u)
		if err != nil {
			return Ref{}, fmt.Errorf("%w: %w", ErrUnsupportedInput, err)
		}
		return Ref{Catalog: CatalogAppleMusic, ID: id}, nil
	case isSpotifyHost(u):
		return Ref{}, fmt.Errorf("%w: Spotify link is not a track", ErrUnsupportedInput)
	}
	return Ref{}, fmt.Errorf("%w: unknown host %q", ErrUnsupportedInput, u.Hostname())
}

func spotifyRef(id string) (Ref, error) {
	if !ValidSpotifyID(id) {
		return Ref{}, fmt.Errorf("%w: malformed Spotify track ID %q", ErrUnsupportedInput, id)
	}
	return Ref{Catalog: CatalogSpotify, ID: id}, nil
}

// Manager classifies inputs and expands Spotify short links over the network
// before classifying them.
type Manager struct {
	client *http.Client
}

// NewManager creates a manager using the default HTTP settings.
func NewManager() *Manager {
	return &Manager{client: newHTTPClient()}
}

// NewManagerWithClient creates a manager using client for short link expansion.
func NewManagerWithClient(client *http.Client) *Manager {
	return &Manager{client: client}
}

// Resolve classifies raw, following spotify.link redirects first. A link that
// cannot be followed yields ErrShortLinkUnavailable, one that leads nowhere
// useful yields ErrUnsupportedInput.
func (m *Manager) Resolve(ctx context.Context, raw string) (Ref, error) {
	raw = strings.TrimSpace(raw)

	u, err := url.Parse(raw)
	if err != nil || !isSpotifyShortHost(u.Hostname()) {
		return Parse(raw)
	}

	expanded, err := m.expandShortLink(ctx, raw)
	if errors.Is(err, ErrUnsupportedInput) {
		return Ref{}, err
	}
	if err != nil {
		return Ref{}, fmt.Errorf("%w: failed to expand %s: %w", ErrShortLinkUnavailable, raw, err)
	}
	return Parse(expanded)
}

// expandShortLink follows redirects and returns the final URL, falling back to
// the first track link in the page body.
func (m *Manager) expandShortLink(ctx context.Context, shortURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, shortURL, http.NoBody)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", commonUserAgent)
	req.Header.Set("Accept", commonAcceptHeader)

	resp, err := m.client.Do(req)
	if err != nil {
		return "", err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= http.StatusInternalServerError {
		return "", fmt.Errorf("link service returned status %d", resp.StatusCode)
	}

	finalURL := resp.Request.URL.String()
	if _, ok := extractSpotifyTrackID(finalURL); ok {
		return finalURL, nil
	}

	body, err := readLimited(resp.Body, maxPageReadSize)
	if err != nil {
		return "", err
	}
	if match := spotifyTrackRegex.FindString(body); match != "" {
		return match, nil
	}

	return "", fmt.Errorf("%w: no Spotify track link behind %s", ErrUnsupportedInput, shortURL)
}
