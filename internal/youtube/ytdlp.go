package youtube

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"trackclip/internal/core"
)

const (
	// bestFormat prefers 720p and above, then 480p, then anything.
	bestFormat = "best[height>=720]/best[height>=480]/best"
	// directFormat prefers 720p mp4 for the renderer to read directly.
	directFormat = "best[height>=720][ext=mp4]/best[height>=720]/best[ext=mp4]/best"
	// maxStderrTail bounds the stderr excerpt carried in errors.
	maxStderrTail = 512
)

// CommandRunner runs an external program and returns its standard output.
type CommandRunner interface {
	Output(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

// Output runs name and returns stdout. A failing command reports the tail of stderr.
func (ExecRunner) Output(ctx context.Context, name string, args ...string) ([]byte, error) {
	var stdout, stderr bytes.Buffer

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%s: %w: %s", name, err, tail(stderr.String(), maxStderrTail))
	}
	return stdout.Bytes(), nil
}

// YtDlp resolves direct media URLs with the yt-dlp program.
type YtDlp struct {
	path   string
	runner CommandRunner
}

// NewYtDlp creates a resolver running the yt-dlp binary at path.
func NewYtDlp(path string, runner CommandRunner) *YtDlp {
	return &YtDlp{path: path, runner: runner}
}

// Lookup dumps the metadata of videoID for the given format selector.
func (y *YtDlp) Lookup(ctx context.Context, videoID, format string) (*Resolution, error) {
	out, err := y.runner.Output(ctx, y.path,
		"--dump-single-json",
		"--no-check-certificates",
		"--no-warnings",
		"--no-playlist",
		"--format", format,
		watchURL(videoID),
	)
	if err != nil {
		return nil, err
	}

	return parseYtDlpOutput(videoID, out)
}

func parseYtDlpOutput(videoID string, out []byte) (*Resolution, error) {
	if !gjson.ValidBytes(out) {
		return nil, errors.New("yt-dlp output is not JSON")
	}

	doc := gjson.ParseBytes(out)
	mediaURL := doc.Get("url").String()
	if mediaURL == "" {
		return nil, errors.New("no valid video URL found")
	}

	title := doc.Get("title").String()
	if title == "" {
		title = "Unknown Title"
	}

	channel := doc.Get("channel").String()
	if channel == "" {
		channel = doc.Get("uploader").String()
	}

	headers := make(map[string]string)
	doc.Get("http_headers").ForEach(func(k, v gjson.Result) bool {
		headers[k.String()] = v.String()
		return true
	})

	return &Resolution{
		Info: core.VideoInfo{
			ID:       videoID,
			Title:    title,
			Channel:  channel,
			Duration: time.Duration(doc.Get("duration").Float() * float64(time.Second)).Truncate(time.Second),
		},
		Direct: &core.DirectURL{
			URL:                 mediaURL,
			RequiresAuthHeaders: len(headers) > 0,
			Headers:             headers,
		},
	}, nil
}

func watchURL(videoID string) string {
	return "https://www.youtube.com/watch?v=" + videoID
}

func tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
