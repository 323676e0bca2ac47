package core

import (
	"net/url"
	"strconv"
	"time"
)

// Quality selects one of the fixed encoding presets.
type Quality string

const (
	QualityLow    Quality = "low"
	QualityMedium Quality = "medium"
	QualityMax    Quality = "max"
)

const (
	DefaultClipSeconds = 7
	MinClipSeconds     = 3
	MaxClipSeconds     = 10
	DefaultWidth       = 640
	MinWidth           = 240
	MaxWidth           = 1920
	DefaultHeight      = 360
	MinHeight          = 180
	MaxHeight          = 1080
)

// Options is the clip option set. Construct it with NewOptions or
// OptionsFromQuery so every field is clamped.
type Options struct {
	Quality         Quality `json:"quality"`
	DurationSeconds int     `json:"duration"`
	Audio           bool    `json:"audio"`
	Width           int     `json:"width"`
	Height          int     `json:"height"`
}

// DefaultOptions returns medium quality, 7 seconds, audio, 640x360.
func DefaultOptions() Options {
	return Options{
		Quality:         QualityMedium,
		DurationSeconds: DefaultClipSeconds,
		Audio:           true,
		Width:           DefaultWidth,
		Height:          DefaultHeight,
	}
}

// NewOptions clamps every value into range. Out-of-range values are never rejected.
func NewOptions(quality Quality, durationSeconds int, audio bool, width, height int) Options {
	switch quality {
	case QualityLow, QualityMedium, QualityMax:
	default:
		quality = QualityMedium
	}

	return Options{
		Quality:         quality,
		DurationSeconds: clamp(durationSeconds, MinClipSeconds, MaxClipSeconds),
		Audio:           audio,
		Width:           roundUpEven(clamp(width, MinWidth, MaxWidth)),
		Height:          roundUpEven(clamp(height, MinHeight, MaxHeight)),
	}
}

// OptionsFromQuery reads quality, duration, audio, width and height. Missing or
// unparsable numbers fall back to the defaults before clamping.
func OptionsFromQuery(q url.Values) Options {
	return NewOptions(
		Quality(q.Get("quality")),
		intOr(q.Get("duration"), DefaultClipSeconds),
		q.Get("audio") != "false",
		intOr(q.Get("width"), DefaultWidth),
		intOr(q.Get("height"), DefaultHeight),
	)
}

// Duration returns the clip length.
func (o Options) Duration() time.Duration {
	return time.Duration(o.DurationSeconds) * time.Second
}

// Fields returns the option set as flat key/value pairs for fingerprinting.
func (o Options) Fields() map[string]string {
	return map[string]string{
		"quality":  string(o.Quality),
		"duration": strconv.Itoa(o.DurationSeconds),
		"audio":    strconv.FormatBool(o.Audio),
		"width":    strconv.Itoa(o.Width),
		"height":   strconv.Itoa(o.Height),
	}
}

func intOr(s string, fallback int) int {
	n, err := strconv.Atoi(s)
	if err != nil || n == 0 {
		return fallback
	}
	return n
}

func clamp(v, lo, hi int) int {
	return min(max(v, lo), hi)
}

// roundUpEven increments odd values. The upper bounds are even, so the
// result never leaves its range.
func roundUpEven(v int) int {
	if v%2 != 0 {
		return v + 1
	}
	return v
}
