package musiclink

import (
	"errors"
	"net/url"
	"regexp"
	"strings"
)

// YouTubeIDLength is the length of a YouTube video id.
const YouTubeIDLength = 11

var youtubeIDRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]{11}$`)

// ValidYouTubeID reports whether id has the shape of a YouTube video id.
func ValidYouTubeID(id string) bool {
	return youtubeIDRegex.MatchString(id)
}

func isYouTubeHost(hostname string) bool {
	switch strings.ToLower(hostname) {
	case "youtube.com", "www.youtube.com", "m.youtube.com", "music.youtube.com", "youtu.be":
		return true
	}
	return false
}

// extractVideoID extracts the video id from watch, short, embed and shorts links.
func extractVideoID(u *url.URL) (string, error) {
	hostname := strings.ToLower(u.Hostname())

	var videoID string
	switch {
	case hostname == "youtu.be":
		videoID = strings.Trim(u.Path, "/")
	case strings.HasPrefix(u.Path, "/embed/"), strings.HasPrefix(u.Path, "/shorts/"), strings.HasPrefix(u.Path, "/live/"):
		parts := strings.Split(strings.Trim(u.Path, "/"), "/")
		if len(parts) >= 2 {
			videoID = parts[1]
		}
	default:
		videoID = u.Query().Get("v")
	}

	if videoID == "" {
		return "", errors.New("no video ID in YouTube URL")
	}
	if !ValidYouTubeID(videoID) {
		return "", errors.New("malformed YouTube video ID")
	}
	return videoID, nil
}
