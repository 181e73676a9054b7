package utils

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// SleepResult is the outcome of a context-aware sleep.
type SleepResult int

const (
	// SleepCompleted means the full duration elapsed.
	SleepCompleted SleepResult = iota
	// SleepCancelled means the context ended first.
	SleepCancelled
)

// ContextSleep waits for duration or until ctx is done.
func ContextSleep(ctx context.Context, duration time.Duration) SleepResult {
	if duration <= 0 {
		if ctx.Err() != nil {
			return SleepCancelled
		}

		return SleepCompleted
	}

	timer := time.NewTimer(duration)
	defer timer.Stop()

	select {
	case <-timer.C:
		return SleepCompleted
	case <-ctx.Done():
		return SleepCancelled
	}
}

// ContextGuard reports whether ctx has already been cancelled.
func ContextGuard(ctx context.Context) bool {
	return ctx.Err() != nil
}

// IntervalSleep pauses between units of work. It returns false when the
// caller should stop because ctx was cancelled.
func IntervalSleep(ctx context.Context, duration time.Duration, logger *zap.Logger, workerName string) bool {
	if ContextSleep(ctx, duration) == SleepCancelled {
		if logger != nil {
			logger.Info("Context cancelled during pause, stopping " + workerName)
		}

		return false
	}

	return true
}

// ErrorSleep backs off after a failure. It returns false when the caller
// should stop because ctx was cancelled.
func ErrorSleep(ctx context.Context, duration time.Duration, logger *zap.Logger, workerName string) bool {
	if ContextSleep(ctx, duration) == SleepCancelled {
		if logger != nil {
			logger.Info("Context cancelled during error wait, stopping " + workerName)
		}

		return false
	}

	return true
}
