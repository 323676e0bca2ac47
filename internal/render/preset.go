// Package render transcodes a window of a source video into a short MP4 clip.
package render

import (
	"time"

	"trackclip/internal/core"
)

// Preset holds the encoder settings of one quality level.
type Preset struct {
	VideoBitrate string
	AudioBitrate string
	CRF          int
	Speed        string
	Profile      string
	Level        string
	MaxRate      string
	BufSize      string
}

var presets = map[core.Quality]Preset{
	core.QualityLow: {
		VideoBitrate: "800k", AudioBitrate: "96k", CRF: 28, Speed: "fast",
		Profile: "baseline", Level: "3.0", MaxRate: "1200k", BufSize: "1600k",
	},
	core.QualityMedium: {
		VideoBitrate: "2500k", AudioBitrate: "192k", CRF: 23, Speed: "fast",
		Profile: "high", Level: "4.0", MaxRate: "3500k", BufSize: "5000k",
	},
	core.QualityMax: {
		VideoBitrate: "6000k", AudioBitrate: "320k", CRF: 18, Speed: "medium",
		Profile: "high", Level: "4.2", MaxRate: "8000k", BufSize: "12000k",
	},
}

// PresetFor returns the preset of q. Unknown levels get the medium preset.
func PresetFor(q core.Quality) Preset {
	if p, ok := presets[q]; ok {
		return p
	}
	return presets[core.QualityMedium]
}

// StartOffset centres a clip of length clip inside a video of length total.
// The offset never goes negative and is truncated to the millisecond.
func StartOffset(total, clip time.Duration) time.Duration {
	return max(0, total/2-clip/2).Truncate(time.Millisecond)
}
