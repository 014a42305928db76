package pypeline

import (
	"context"
	"time"
)

// StageRunnerFunc is the core function type for executing a stage.
type StageRunnerFunc func(ctx context.Context, stage StageInfo, logger Logger) error

// StageMiddleware represents a function that wraps stage execution.
// It allows performing operations before and after a stage executes,
// or skipping the stage entirely by not calling next.
type StageMiddleware func(next StageRunnerFunc) StageRunnerFunc

// chain applies middleware so that the first element is the outermost.
func chain(handler StageRunnerFunc, middleware []StageMiddleware) StageRunnerFunc {
	for i := len(middleware) - 1; i >= 0; i-- {
		handler = middleware[i](handler)
	}
	return handler
}

// LoggingMiddleware creates a middleware that logs stage timings at debug
// level and failures at error level.
func LoggingMiddleware() StageMiddleware {
	return func(next StageRunnerFunc) StageRunnerFunc {
		return func(ctx context.Context, stage StageInfo, logger Logger) error {
			logger.Debug("Stage %d/%d of %s: %s (order %d)",
				stage.Index+1, stage.Total, stage.Pipeline, stage.Name, stage.Order)

			start := time.Now()
			err := next(ctx, stage, logger)
			duration := time.Since(start)

			if err != nil {
				logger.Error("Stage %s failed after %v: %v", stage.Name, duration.Round(time.Millisecond), err)
			} else {
				logger.Debug("Stage %s completed in %v", stage.Name, duration.Round(time.Millisecond))
			}

			return err
		}
	}
}
