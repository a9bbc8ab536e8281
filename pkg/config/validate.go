// Copyright 2026 © The CEO Bot Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/qsrceo/ceobot/pkg/dataset"
	"github.com/qsrceo/ceobot/pkg/errors"
)

func oneOf(field, value string, allowed ...string) error {
	for _, a := range allowed {
		if value == a {
			return nil
		}
	}
	return fmt.Errorf("%s: %q is not one of %s", field, value, strings.Join(allowed, ", "))
}

// Validate reports every invalid setting as one INVALID_INPUT error.
func (c *Config) Validate() error {
	var problems []string
	check := func(err error) {
		if err != nil {
			problems = append(problems, err.Error())
		}
	}

	check(oneOf("log.level", strings.ToLower(c.Log.Level), "debug", "info", "warn", "warning", "error"))
	check(oneOf("log.format", c.Log.Format, "text", "json"))
	check(oneOf("telemetry.exporter", c.Telemetry.Exporter, "none", "stdout", "otlp"))
	if c.Telemetry.Exporter == "otlp" && c.Telemetry.OTLPEndpoint == "" {
		problems = append(problems, "telemetry.otlp_endpoint is required for the otlp exporter")
	}
	check(oneOf("llm.provider", c.LLM.Provider, "ollama", "openai", "gemini", "anthropic", "mock"))
	if c.LLM.Timeout < 0 {
		problems = append(problems, "llm.timeout must not be negative")
	}
	if c.LLM.Retries < 0 {
		problems = append(problems, "llm.retries must not be negative")
	}
	check(oneOf("fallback.mode", c.Fallback.Mode, "context", "retrieval", "program"))
	if c.Fallback.SampleRows <= 0 {
		problems = append(problems, "fallback.sample_rows must be positive")
	}
	if c.Fallback.TopK <= 0 {
		problems = append(problems, "fallback.top_k must be positive")
	}
	if c.Cache.Enabled && c.Cache.Size <= 0 {
		problems = append(problems, "cache.size must be positive")
	}
	if c.Index.Enabled || c.Fallback.Mode == "retrieval" {
		check(oneOf("index.provider", c.Index.Provider, "inmemory", "qdrant"))
		check(oneOf("index.embedder", c.Index.Embedder, "ollama", "hash"))
		if c.Index.Threshold <= 0 || c.Index.Threshold > 1 {
			problems = append(problems, "index.threshold must be in (0, 1]")
		}
	}
	if c.History.MaxMessages < 0 || c.History.MaxSessions < 0 || c.History.IdleTimeout < 0 {
		problems = append(problems, "history limits must not be negative")
	}
	if c.Dataset.WatchInterval < 0 {
		problems = append(problems, "dataset.watch_interval must not be negative")
	}
	if _, err := c.Dataset.Reference(); err != nil {
		problems = append(problems, err.Error())
	}

	if len(problems) == 0 {
		return nil
	}
	return errors.New(errors.CodeInvalidInput, "invalid configuration: "+strings.Join(problems, "; "), nil).
		WithContext("problems", problems)
}

// Reference parses ReferenceDate. The zero time means "use the clock".
func (d DatasetConfig) Reference() (time.Time, error) {
	s := strings.TrimSpace(d.ReferenceDate)
	if s == "" {
		return time.Time{}, nil
	}
	for _, layout := range []string{"2006-01-02", "2006-01"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	if p, err := dataset.ParsePeriod(s); err == nil {
		return time.Date(p.Year, p.Month, 1, 0, 0, 0, 0, time.UTC), nil
	}
	return time.Time{}, fmt.Errorf("dataset.reference_date: cannot parse %q", s)
}
