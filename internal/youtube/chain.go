package youtube

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Step is one strategy of an ordered fallback chain.
type Step[T any] struct {
	Name    string
	Timeout time.Duration
	Run     func(ctx context.Context) (T, error)
}

// FirstSuccess runs steps in order, each under its own timeout, and returns the
// first successful result with the name of the step that produced it. When
// every step fails the step errors are joined.
func FirstSuccess[T any](ctx context.Context, logger *zap.Logger, steps []Step[T]) (T, string, error) {
	var zero T
	errs := make([]error, 0, len(steps))

	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}

		result, err := runStep(ctx, step)
		if err == nil {
			return result, step.Name, nil
		}

		logger.Debug("Strategy failed, trying next",
			zap.String("strategy", step.Name),
			zap.Duration("timeout", step.Timeout),
			zap.Error(err))
		errs = append(errs, fmt.Errorf("%s: %w", step.Name, err))
	}

	if len(errs) == 0 {
		return zero, "", errors.New("no strategies configured")
	}
	return zero, "", errors.Join(errs...)
}

func runStep[T any](ctx context.Context, step Step[T]) (T, error) {
	if step.Timeout <= 0 {
		return step.Run(ctx)
	}

	stepCtx, cancel := context.WithTimeout(ctx, step.Timeout)
	defer cancel()
	return step.Run(stepCtx)
}
