// Copyright 2026 © The CEO Bot Authors
// SPDX-License-Identifier: Apache-2.0

package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func TestConfigureSlogJSONIncludesTraceIDs(t *testing.T) {
	prev := slog.Default()
	defer slog.SetDefault(prev)

	var buf bytes.Buffer
	logger := ConfigureSlog(&buf, "debug", "json")

	tp := sdktrace.NewTracerProvider()
	defer tp.Shutdown(context.Background())
	ctx, span := tp.Tracer("test").Start(context.Background(), "bot.ask")
	logger.InfoContext(ctx, "question answered", "intent", "TREND")
	span.End()

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("expected JSON log line, got %q: %v", buf.String(), err)
	}
	if record["trace_id"] != span.SpanContext().TraceID().String() {
		t.Errorf("expected trace_id %s, got %v", span.SpanContext().TraceID(), record["trace_id"])
	}
	if record["span_id"] == nil {
		t.Errorf("expected span_id to be set")
	}
	if record["intent"] != "TREND" {
		t.Errorf("expected intent TREND, got %v", record["intent"])
	}
}

func TestConfigureSlogLevel(t *testing.T) {
	prev := slog.Default()
	defer slog.SetDefault(prev)

	var buf bytes.Buffer
	logger := ConfigureSlog(&buf, "warn", "text")
	logger.Info("dropped")
	logger.Warn("kept")

	out := buf.String()
	if strings.Contains(out, "dropped") {
		t.Errorf("expected info to be filtered, got %q", out)
	}
	if !strings.Contains(out, "kept") {
		t.Errorf("expected warn to be logged, got %q", out)
	}
	if strings.Contains(out, "trace_id") {
		t.Errorf("expected no trace_id without a span, got %q", out)
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"WARNING": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range tests {
		if got := parseLogLevel(in); got != want {
			t.Errorf("parseLogLevel(%q): expected %v, got %v", in, want, got)
		}
	}
}

func TestConfigureSlogSessionID(t *testing.T) {
	prev := slog.Default()
	defer slog.SetDefault(prev)

	var buf bytes.Buffer
	logger := ConfigureSlog(&buf, "info", "json")
	ctx := WithSession(context.Background(), "s-42")
	logger.InfoContext(ctx, "bot.ask.done")
	logger.InfoContext(WithSession(context.Background(), ""), "no session")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 log lines, got %q", buf.String())
	}
	var first, second map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &first); err != nil {
		t.Fatal(err)
	}
	if err := json.Unmarshal([]byte(lines[1]), &second); err != nil {
		t.Fatal(err)
	}
	if first["session_id"] != "s-42" {
		t.Errorf("expected session_id s-42, got %v", first["session_id"])
	}
	if _, ok := second["session_id"]; ok {
		t.Errorf("expected no session_id, got %v", second["session_id"])
	}
	if SessionFrom(ctx) != "s-42" {
		t.Errorf("expected SessionFrom to return s-42, got %q", SessionFrom(ctx))
	}
}
