// Copyright 2026 © The CEO Bot Authors
// SPDX-License-Identifier: Apache-2.0

package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	boterrors "github.com/qsrceo/ceobot/pkg/errors"
)

func fastRetry() RetryConfig {
	return DefaultRetryConfig().WithInitialDelay(time.Millisecond).WithMaxDelay(5 * time.Millisecond)
}

func TestRetrySuccessAfterOneFailure(t *testing.T) {
	attempts := 0
	err := fastRetry().Do(context.Background(), func(context.Context) error {
		attempts++
		if attempts < 2 {
			return errors.New("transient error")
		}
		return nil
	})

	if err != nil {
		t.Errorf("expected success, got error: %v", err)
	}
	if attempts != 2 {
		t.Errorf("expected 2 attempts, got %d", attempts)
	}
}

func TestRetryDefaultIsSingleRetry(t *testing.T) {
	attempts := 0
	err := fastRetry().Do(context.Background(), func(context.Context) error {
		attempts++
		return errors.New("always fails")
	})

	if err == nil {
		t.Errorf("expected error after max attempts")
	}
	if attempts != 2 {
		t.Errorf("expected 2 attempts, got %d", attempts)
	}
}

func TestRetryNonRecoverable(t *testing.T) {
	attempts := 0
	err := fastRetry().Do(context.Background(), func(context.Context) error {
		attempts++
		return boterrors.New(boterrors.CodeExecution, "bad program", nil)
	})

	if err == nil {
		t.Errorf("expected error")
	}
	if attempts != 1 {
		t.Errorf("expected 1 attempt, got %d", attempts)
	}
}

func TestRetryContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	config := DefaultRetryConfig().WithMaxAttempts(3).WithInitialDelay(200 * time.Millisecond)

	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	attempts := 0
	err := config.Do(ctx, func(context.Context) error {
		attempts++
		return errors.New("transient error")
	})

	if !boterrors.HasCode(err, boterrors.CodeContextLost) {
		t.Errorf("expected CONTEXT_LOST, got %v", err)
	}
	if attempts != 1 {
		t.Errorf("expected 1 attempt, got %d", attempts)
	}
}

func TestRetryWithResult(t *testing.T) {
	attempts := 0
	result, err := Retry(context.Background(), fastRetry(), func(context.Context) (string, error) {
		attempts++
		if attempts < 2 {
			return "", errors.New("transient")
		}
		return "success", nil
	})

	if err != nil {
		t.Errorf("expected success, got error: %v", err)
	}
	if result != "success" {
		t.Errorf("expected 'success', got %v", result)
	}
}

func TestWithTimeoutExceeded(t *testing.T) {
	_, err := WithTimeout(context.Background(), TimeoutConfig{Duration: 10 * time.Millisecond}, func(ctx context.Context) (int, error) {
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-time.After(time.Second):
			return 1, nil
		}
	})

	if !boterrors.HasCode(err, boterrors.CodeTimeout) {
		t.Fatalf("expected TIMEOUT, got %v", err)
	}
	if !boterrors.AsBotError(err).Recoverable {
		t.Errorf("expected timeout to be recoverable")
	}
}

func TestWithTimeoutCompletes(t *testing.T) {
	v, err := WithTimeout(context.Background(), TimeoutConfig{Duration: time.Second}, func(context.Context) (int, error) {
		return 42, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != 42 {
		t.Errorf("expected 42, got %d", v)
	}
}

func TestCallRetriesTimeoutOnce(t *testing.T) {
	attempts := 0
	v, err := Call(context.Background(), TimeoutConfig{Duration: 10 * time.Millisecond}, fastRetry(), func(ctx context.Context) (string, error) {
		attempts++
		if attempts == 1 {
			<-ctx.Done()
			return "", ctx.Err()
		}
		return "ok", nil
	})

	if err != nil {
		t.Fatalf("expected success on retry, got %v", err)
	}
	if v != "ok" || attempts != 2 {
		t.Errorf("expected ok after 2 attempts, got %q after %d", v, attempts)
	}
}

func TestCalculateBackoffCapped(t *testing.T) {
	rc := RetryConfig{InitialDelay: time.Second, MaxDelay: 2 * time.Second, Multiplier: 10}
	if d := calculateBackoff(1, rc); d != time.Second {
		t.Errorf("expected first backoff 1s, got %v", d)
	}
	if d := calculateBackoff(3, rc); d != 2*time.Second {
		t.Errorf("expected capped backoff 2s, got %v", d)
	}
}
