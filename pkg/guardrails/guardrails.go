// Copyright 2026 © The CEO Bot Authors
// SPDX-License-Identifier: Apache-2.0

// Package guardrails screens questions before they reach a language model
// and scrubs model answers before they reach the user.
//
//	guard := guardrails.New(
//	    guardrails.WithInjectionDetector(),
//	    guardrails.WithRedactor(),
//	)
//	if err := guard.Check(ctx, question); err != nil {
//	    return err // BLOCKED
//	}
//	answer = guard.Filter(ctx, answer)
package guardrails

import (
	"context"

	"github.com/qsrceo/ceobot/pkg/errors"
)

// CheckResult is the outcome of one input check.
type CheckResult struct {
	Blocked     bool
	Reason      string
	GuardrailID string
	// Confidence is in [0, 1].
	Confidence float64
	Matches    []string
}

// Redaction describes one masked span of an answer.
type Redaction struct {
	Kind     string
	Position int
}

// InputChecker inspects a question before any model sees it.
type InputChecker interface {
	CheckInput(ctx context.Context, input string) CheckResult
	ID() string
}

// OutputFilter rewrites a model answer.
type OutputFilter interface {
	FilterOutput(ctx context.Context, output string) (string, []Redaction)
	ID() string
}

// Guard runs input checkers in order and output filters in sequence.
// It is immutable after New and safe for concurrent use.
type Guard struct {
	checkers []InputChecker
	filters  []OutputFilter
	failOpen bool
}

// Option configures a Guard.
type Option func(*Guard)

// New creates a Guard.
func New(opts ...Option) *Guard {
	g := &Guard{}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Default is the guard used when none is configured: injection detection
// on input and secret redaction on output.
func Default() *Guard {
	return New(WithInjectionDetector(), WithRedactor())
}

// WithInputChecker adds an input checker.
func WithInputChecker(c InputChecker) Option {
	return func(g *Guard) { g.checkers = append(g.checkers, c) }
}

// WithOutputFilter adds an output filter.
func WithOutputFilter(f OutputFilter) Option {
	return func(g *Guard) { g.filters = append(g.filters, f) }
}

// WithFailOpen lets questions through when the context ends mid-check.
// The default is to block.
func WithFailOpen(failOpen bool) Option {
	return func(g *Guard) { g.failOpen = failOpen }
}

// Inspect runs the checkers and returns the first blocking result.
func (g *Guard) Inspect(ctx context.Context, input string) CheckResult {
	if g == nil {
		return CheckResult{}
	}
	for _, c := range g.checkers {
		if ctx.Err() != nil {
			if g.failOpen {
				return CheckResult{}
			}
			return CheckResult{Blocked: true, Reason: "guardrail check cancelled", GuardrailID: "system"}
		}
		res := c.CheckInput(ctx, input)
		if res.Blocked {
			res.GuardrailID = c.ID()
			return res
		}
	}
	return CheckResult{}
}

// Check returns a BLOCKED error if any checker rejects input.
func (g *Guard) Check(ctx context.Context, input string) error {
	res := g.Inspect(ctx, input)
	if !res.Blocked {
		return nil
	}
	return errors.New(errors.CodeBlocked, res.Reason, nil).
		WithContext("guardrail", res.GuardrailID).
		WithContext("confidence", res.Confidence)
}

// Filter passes output through every filter in order.
func (g *Guard) Filter(ctx context.Context, output string) string {
	out, _ := g.FilterWithRedactions(ctx, output)
	return out
}

// FilterWithRedactions is Filter that also reports what was masked.
func (g *Guard) FilterWithRedactions(ctx context.Context, output string) (string, []Redaction) {
	if g == nil {
		return output, nil
	}
	var all []Redaction
	for _, f := range g.filters {
		if ctx.Err() != nil {
			break
		}
		var r []Redaction
		output, r = f.FilterOutput(ctx, output)
		all = append(all, r...)
	}
	return output, all
}
