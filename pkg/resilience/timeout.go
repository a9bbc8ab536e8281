// Copyright 2026 © The CEO Bot Authors
// SPDX-License-Identifier: Apache-2.0

package resilience

import (
	"context"
	"time"

	"github.com/qsrceo/ceobot/pkg/errors"
)

// TimeoutConfig controls timeout behavior.
type TimeoutConfig struct {
	// Duration is the maximum time allowed for one attempt. Zero disables the bound.
	Duration time.Duration
}

// WithTimeout executes fn with a timeout boundary.
// Returns errors.CodeTimeout if the deadline is exceeded. fn receives the
// derived context and should return promptly once it is done.
func WithTimeout[T any](ctx context.Context, config TimeoutConfig, fn func(ctx context.Context) (T, error)) (T, error) {
	if config.Duration == 0 {
		return fn(ctx)
	}

	ctx, cancel := context.WithTimeout(ctx, config.Duration)
	defer cancel()

	type result struct {
		value T
		err   error
	}

	done := make(chan result, 1)
	go func() {
		value, err := fn(ctx)
		done <- result{value, err}
	}()

	select {
	case <-ctx.Done():
		var zero T
		return zero, deadlineError(ctx, config)
	case res := <-done:
		// fn may observe the deadline and return before ctx.Done is selected.
		if res.err != nil && ctx.Err() != nil {
			return res.value, deadlineError(ctx, config)
		}
		return res.value, res.err
	}
}

func deadlineError(ctx context.Context, config TimeoutConfig) error {
	if ctx.Err() == context.DeadlineExceeded {
		return errors.New(errors.CodeTimeout, "operation exceeded timeout", ctx.Err()).
			WithContext("timeout", config.Duration.String()).
			WithRecoverable(true)
	}
	return errors.New(errors.CodeContextLost, "operation canceled", ctx.Err())
}

// Call bounds each attempt of fn with timeout and retries per rc.
func Call[T any](ctx context.Context, timeout TimeoutConfig, rc RetryConfig, fn func(ctx context.Context) (T, error)) (T, error) {
	return Retry(ctx, rc, func(ctx context.Context) (T, error) {
		return WithTimeout(ctx, timeout, fn)
	})
}
