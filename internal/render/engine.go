package render

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"time"
)

const (
	// waitDelay bounds how long Run waits for pipes after the process is killed.
	waitDelay     = 5 * time.Second
	maxStderrTail = 512
)

// Engine runs one transcode with the given arguments. stdin is nil unless the
// input is piped.
type Engine interface {
	Run(ctx context.Context, args []string, stdin io.Reader) error
}

// FFmpeg runs the ffmpeg binary in its own process group so that cancellation
// kills every child it spawned.
type FFmpeg struct {
	path string
}

// NewFFmpeg creates an engine for the ffmpeg binary at path.
func NewFFmpeg(path string) *FFmpeg {
	return &FFmpeg{path: path}
}

// Run executes ffmpeg. A failing process reports the tail of its stderr.
func (f *FFmpeg) Run(ctx context.Context, args []string, stdin io.Reader) error {
	var stderr bytes.Buffer

	cmd := exec.CommandContext(ctx, f.path, args...) //nolint:gosec // arguments are built by BuildArgs
	cmd.Stdin = stdin
	cmd.Stderr = &stderr
	cmd.WaitDelay = waitDelay
	configureProcessGroup(cmd)

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("ffmpeg: %w: %s", err, stderrTail(stderr.String()))
	}
	return nil
}

func stderrTail(s string) string {
	s = strings.TrimSpace(s)
	if len(s) <= maxStderrTail {
		return s
	}
	return s[len(s)-maxStderrTail:]
}
