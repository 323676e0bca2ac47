package musiclink

import (
	"net/url"
	"regexp"
	"strings"
)

// SpotifyIDLength is the length of a Spotify track id.
const SpotifyIDLength = 22

var (
	spotifyTrackRegex = regexp.MustCompile(`(?:https?://)?(?:open\.)?spotify\.com/(?:intl-[a-z]+/)?track/([a-zA-Z0-9]+)`)
	spotifyURIRegex   = regexp.MustCompile(`^spotify:track:([a-zA-Z0-9]+)$`)
	spotifyIDRegex    = regexp.MustCompile(`^[a-zA-Z0-9]{22}$`)
)

// ValidSpotifyID reports whether id has the shape of a Spotify track id.
func ValidSpotifyID(id string) bool {
	return spotifyIDRegex.MatchString(id)
}

func isSpotifyShortHost(hostname string) bool {
	switch strings.ToLower(hostname) {
	case "spotify.link", "spotify.app.link":
		return true
	}
	return false
}

// extractSpotifyTrackID handles spotify:track: URIs and open.spotify.com links.
func extractSpotifyTrackID(raw string) (string, bool) {
	if matches := spotifyURIRegex.FindStringSubmatch(raw); len(matches) > 1 {
		return matches[1], true
	}

	if matches := spotifyTrackRegex.FindStringSubmatch(raw); len(matches) > 1 {
		return matches[1], true
	}

	return "", false
}

func isSpotifyHost(u *url.URL) bool {
	hostname := strings.ToLower(u.Hostname())
	return hostname == "open.spotify.com" || hostname == "spotify.com"
}
