package capability

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// ErrEmptyResult is returned by backends that produced nothing usable.
var ErrEmptyResult = errors.New("capability returned an empty result")

// DefaultTimeout bounds a capability call when no timeout is configured.
const DefaultTimeout = 60 * time.Second

// Invoker carries the policy shared by every best-effort call.
type Invoker struct {
	Logger  *zap.Logger
	Timeout time.Duration
}

type outcome[T any] struct {
	value T
	err   error
}

// BestEffort runs fn and returns its value, or fallback when fn fails, panics
// or outlives the invoker's timeout. Failures are logged, never returned.
// A call that overruns is abandoned; its result is discarded when it ends.
func BestEffort[T any](ctx context.Context, inv Invoker, name string, fallback T, fn func(context.Context) (T, error)) T {
	logger := inv.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	if inv.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, inv.Timeout)
		defer cancel()
	}

	done := make(chan outcome[T], 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome[T]{err: fmt.Errorf("panic: %v", r)}
			}
		}()
		v, err := fn(ctx)
		done <- outcome[T]{value: v, err: err}
	}()

	select {
	case out := <-done:
		if out.err != nil {
			logger.Warn("capability call failed", zap.String("capability", name), zap.Error(out.err))
			return fallback
		}
		return out.value
	case <-ctx.Done():
		logger.Warn("capability call abandoned", zap.String("capability", name), zap.Error(ctx.Err()))
		return fallback
	}
}
