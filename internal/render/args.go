package render

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"trackclip/internal/core"
)

const (
	stdinInput       = "pipe:0"
	defaultUserAgent = "Mozilla/5.0 (compatible; bot)"
	audioChannels    = "2"
	audioSampleRate  = "48000"
	gopSize          = "25"
)

// BuildArgs returns the ffmpeg arguments that cut opts.Duration() of input
// starting at start and encode it to outPath. input is a URL or stdinInput.
func BuildArgs(input string, headers map[string]string, start time.Duration, opts core.Options, outPath string) []string {
	preset := PresetFor(opts.Quality)

	args := []string{"-hide_banner", "-loglevel", "error", "-y"}

	if input != stdinInput {
		args = append(args, "-user_agent", userAgent(headers))
		if extra := headerBlock(headers); extra != "" {
			args = append(args, "-headers", extra)
		}
	}

	args = append(args,
		"-analyzeduration", "10M",
		"-probesize", "25M",
		"-fflags", "+fastseek",
		"-ss", formatSeconds(start),
		"-i", input,
		"-t", formatSeconds(opts.Duration()),
		"-c:v", "libx264",
		"-vf", fmt.Sprintf("scale=%d:%d:flags=lanczos", opts.Width, opts.Height),
		"-b:v", preset.VideoBitrate,
		"-crf", strconv.Itoa(preset.CRF),
		"-preset", preset.Speed,
		"-profile:v", preset.Profile,
		"-level:v", preset.Level,
		"-maxrate", preset.MaxRate,
		"-bufsize", preset.BufSize,
		"-pix_fmt", "yuv420p",
		"-g", gopSize,
	)

	if opts.Audio {
		args = append(args,
			"-c:a", "aac",
			"-b:a", preset.AudioBitrate,
			"-ac", audioChannels,
			"-ar", audioSampleRate,
		)
	} else {
		args = append(args, "-an")
	}

	return append(args,
		"-movflags", "+faststart",
		"-avoid_negative_ts", "make_zero",
		"-f", "mp4",
		outPath,
	)
}

func formatSeconds(d time.Duration) string {
	return strconv.FormatFloat(d.Seconds(), 'f', 3, 64)
}

func userAgent(headers map[string]string) string {
	for k, v := range headers {
		if strings.EqualFold(k, "User-Agent") && v != "" {
			return v
		}
	}
	return defaultUserAgent
}

// headerBlock renders every header except the user agent as CRLF terminated
// lines, sorted by name.
func headerBlock(headers map[string]string) string {
	names := make([]string, 0, len(headers))
	for k := range headers {
		if !strings.EqualFold(k, "User-Agent") {
			names = append(names, k)
		}
	}
	sort.Strings(names)

	var b strings.Builder
	for _, k := range names {
		b.WriteString(k)
		b.WriteString(": ")
		b.WriteString(headers[k])
		b.WriteString("\r\n")
	}
	return b.String()
}
