package clip

import (
	"errors"
	"time"

	"trackclip/internal/core"
)

const (
	lookupMetadata = "metadata"
	lookupClip     = "clip"
	resultHit      = "hit"
	resultMiss     = "miss"
)

// Recorder receives orchestration events for metrics.
type Recorder interface {
	CacheLookup(kind, result string)
	RenderObserved(status string, took time.Duration)
	FailureObserved(class core.ErrorClass)
}

type nopRecorder struct{}

func (nopRecorder) CacheLookup(string, string)           {}
func (nopRecorder) RenderObserved(string, time.Duration) {}
func (nopRecorder) FailureObserved(core.ErrorClass)      {}

func renderStatus(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, core.ErrRenderTimeout):
		return "timeout"
	default:
		return "failed"
	}
}
