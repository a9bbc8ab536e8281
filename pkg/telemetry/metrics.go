// Copyright 2026 © The CEO Bot Authors
// SPDX-License-Identifier: Apache-2.0

package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/qsrceo/ceobot/pkg/errors"
)

// Outcomes recorded on ceobot.questions.total.
const (
	OutcomeResolved = "resolved"
	OutcomeFallback = "fallback"
	OutcomeCached   = "cached"
	OutcomeIndexed  = "indexed"
	OutcomeError    = "error"
)

// Metrics counts questions, errors and fallback latency.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	questions metric.Int64Counter
	errors    metric.Int64Counter
	fallback  metric.Float64Histogram
	reloads   metric.Int64Counter
}

// NewMetrics registers the instruments on the global meter provider.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter("ceobot")

	questions, err := meter.Int64Counter(
		"ceobot.questions.total",
		metric.WithDescription("Questions answered by intent and outcome"),
	)
	if err != nil {
		return nil, err
	}

	errCounter, err := meter.Int64Counter(
		"ceobot.errors.total",
		metric.WithDescription("Errors by code and component"),
	)
	if err != nil {
		return nil, err
	}

	fallback, err := meter.Float64Histogram(
		"ceobot.fallback.duration",
		metric.WithDescription("Fallback answer latency by mode"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	reloads, err := meter.Int64Counter(
		"ceobot.dataset.reloads",
		metric.WithDescription("Dataset reloads by result"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		questions: questions,
		errors:    errCounter,
		fallback:  fallback,
		reloads:   reloads,
	}, nil
}

// RecordQuestion counts one answered question.
func (m *Metrics) RecordQuestion(ctx context.Context, intent, outcome string) {
	if m == nil {
		return
	}
	m.questions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("intent", intent),
		attribute.String("outcome", outcome),
	))
}

// RecordError counts err under its error code. Plain errors count as INTERNAL.
func (m *Metrics) RecordError(ctx context.Context, err error, component string) {
	if m == nil || err == nil {
		return
	}
	recoverable := "false"
	if be := errors.AsBotError(err); be != nil && be.Recoverable {
		recoverable = "true"
	}
	m.errors.Add(ctx, 1, metric.WithAttributes(
		attribute.String("error.code", string(errors.CodeOf(err))),
		attribute.String("component", component),
		attribute.String("recoverable", recoverable),
	))
}

// RecordFallback records how long a fallback answer took.
func (m *Metrics) RecordFallback(ctx context.Context, mode string, d time.Duration) {
	if m == nil {
		return
	}
	m.fallback.Record(ctx, float64(d.Microseconds())/1000, metric.WithAttributes(
		attribute.String("mode", mode),
	))
}

// RecordReload counts a dataset reload attempt.
func (m *Metrics) RecordReload(ctx context.Context, ok bool) {
	if m == nil {
		return
	}
	result := "ok"
	if !ok {
		result = "failed"
	}
	m.reloads.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
}
