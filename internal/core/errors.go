package core

import (
	"context"
	"errors"
)

var (
	// ErrCatalogUnavailable is returned when the music catalog cannot be reached.
	ErrCatalogUnavailable = errors.New("catalog unavailable")
	// ErrTrackNotFound is returned when the catalog has no track for the id.
	ErrTrackNotFound = errors.New("track not found")
	// ErrSourceUnavailable is returned when every extraction strategy failed.
	ErrSourceUnavailable = errors.New("source unavailable")
	// ErrNoMatchFound is returned when search exhausted all phrasings and candidates.
	ErrNoMatchFound = errors.New("no suitable music video found")
	// ErrInvalidIdentifier is returned for malformed inputs and fingerprints.
	ErrInvalidIdentifier = errors.New("invalid identifier")
	// ErrUnknownFingerprint is returned when a clip is requested before its metadata exists.
	ErrUnknownFingerprint = errors.New("unknown fingerprint, generate metadata first")
	// ErrRenderTimeout is returned when the transcode exceeded its deadline.
	ErrRenderTimeout = errors.New("render timeout")
	// ErrRenderFailed is returned when the transcoding engine reported an error.
	ErrRenderFailed = errors.New("render failed")
	// ErrOutputMoveFailed is returned when the rendered clip could not be relocated.
	ErrOutputMoveFailed = errors.New("failed to move output file")
	// ErrCacheWriteFailed is returned when durable persistence failed.
	ErrCacheWriteFailed = errors.New("cache write failed")
	// ErrCacheCorrupt marks a durable record that could not be parsed.
	ErrCacheCorrupt = errors.New("cache entry corrupt")
)

// ErrorClass groups errors the way callers have to react to them.
type ErrorClass int

const (
	// ClassInternal covers render failures and anything unrecognized.
	ClassInternal ErrorClass = iota
	// ClassBadInput covers malformed identifiers.
	ClassBadInput
	// ClassNotFound covers lookups that completed but found nothing usable.
	ClassNotFound
	// ClassTransient covers upstream failures that may succeed later.
	ClassTransient
)

func (c ErrorClass) String() string {
	switch c {
	case ClassBadInput:
		return "bad_input"
	case ClassNotFound:
		return "not_found"
	case ClassTransient:
		return "transient"
	default:
		return "internal"
	}
}

// Classify maps an error onto the class a caller should report.
func Classify(err error) ErrorClass {
	switch {
	case errors.Is(err, ErrRenderTimeout),
		errors.Is(err, ErrRenderFailed),
		errors.Is(err, ErrOutputMoveFailed):
		return ClassInternal
	case errors.Is(err, ErrInvalidIdentifier):
		return ClassBadInput
	case errors.Is(err, ErrTrackNotFound),
		errors.Is(err, ErrNoMatchFound),
		errors.Is(err, ErrUnknownFingerprint):
		return ClassNotFound
	case errors.Is(err, ErrCatalogUnavailable),
		errors.Is(err, ErrSourceUnavailable),
		errors.Is(err, context.DeadlineExceeded):
		return ClassTransient
	default:
		return ClassInternal
	}
}
