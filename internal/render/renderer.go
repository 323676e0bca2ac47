package render

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"trackclip/internal/core"
)

// Renderer cuts clips out of resolved sources.
type Renderer struct {
	logger *zap.Logger
	config core.RenderConfig
	engine Engine
}

// New creates a renderer running the configured ffmpeg binary.
func New(config core.RenderConfig, logger *zap.Logger) *Renderer {
	return NewWithEngine(config, logger, NewFFmpeg(config.FFmpegPath))
}

// NewWithEngine creates a renderer over a custom engine.
func NewWithEngine(config core.RenderConfig, logger *zap.Logger, engine Engine) *Renderer {
	return &Renderer{
		logger: logger,
		config: config,
		engine: engine,
	}
}

// Render encodes opts.Duration() of src starting at start and moves the result
// to outPath. The transcode runs under the configured deadline and its private
// temp file is removed on every path. A stream source is closed.
func (r *Renderer) Render(ctx context.Context, src core.Source, start time.Duration, opts core.Options, outPath string) error {
	var (
		input   string
		headers map[string]string
		stdin   io.Reader
	)

	switch s := src.(type) {
	case core.DirectURL:
		input = s.URL
		if s.RequiresAuthHeaders {
			headers = s.Headers
		}
	case core.StreamHandle:
		defer func() {
			_ = s.Close()
		}()
		input = stdinInput
		stdin = s
	default:
		return fmt.Errorf("%w: unsupported source %s", core.ErrRenderFailed, core.SourceKind(src))
	}

	if err := os.MkdirAll(r.config.TempDir, 0o750); err != nil {
		return fmt.Errorf("%w: %w", core.ErrRenderFailed, err)
	}

	tmpPath := filepath.Join(r.config.TempDir, "render-"+uuid.NewString()+".mp4")
	defer func() {
		if err := os.Remove(tmpPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
			r.logger.Warn("Failed to remove temp render", zap.String("path", tmpPath), zap.Error(err))
		}
	}()

	renderCtx, cancel := context.WithTimeout(ctx, r.config.Timeout)
	defer cancel()

	args := BuildArgs(input, headers, start, opts, tmpPath)

	r.logger.Debug("Starting transcode",
		zap.String("source", core.SourceKind(src)),
		zap.Duration("start", start),
		zap.Duration("duration", opts.Duration()),
		zap.String("quality", string(opts.Quality)))

	began := time.Now()
	if err := r.engine.Run(renderCtx, args, stdin); err != nil {
		if errors.Is(renderCtx.Err(), context.DeadlineExceeded) {
			r.logger.Warn("Transcode timed out", zap.Duration("timeout", r.config.Timeout))
			return fmt.Errorf("%w: after %s", core.ErrRenderTimeout, r.config.Timeout)
		}
		return fmt.Errorf("%w: %w", core.ErrRenderFailed, err)
	}

	info, err := os.Stat(tmpPath)
	if err != nil || info.Size() == 0 {
		return fmt.Errorf("%w: output file was not created", core.ErrRenderFailed)
	}

	if err := os.Rename(tmpPath, outPath); err != nil {
		return fmt.Errorf("%w: %w", core.ErrOutputMoveFailed, err)
	}

	r.logger.Info("Transcode finished",
		zap.String("output", outPath),
		zap.Int64("bytes", info.Size()),
		zap.Duration("took", time.Since(began)))
	return nil
}
