// Copyright 2026 © The CEO Bot Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestLoadWithCLIOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "settings.json")
	content := []byte(`{
  "llm": {"provider": "ollama", "model": "model-a"},
  "telemetry": {"exporter": "stdout"}
}`)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("CEOBOT_LLM_PROVIDER", "openai")

	cfg, err := LoadWithCLI([]string{
		"ask", "Which store had the highest Net Sales?",
		"--config", path,
		"--set", "llm.provider=anthropic",
		"--set", "cache.enabled=false",
		"--set=fallback.top_k=12",
		"--set", "llm.timeout=5s",
	})
	if err != nil {
		t.Fatalf("LoadWithCLI failed: %v", err)
	}
	if cfg.LLM.Provider != "anthropic" {
		t.Errorf("expected cli override provider, got %s", cfg.LLM.Provider)
	}
	if cfg.LLM.Model != "model-a" {
		t.Errorf("expected model from file, got %s", cfg.LLM.Model)
	}
	if cfg.Telemetry.Exporter != "stdout" {
		t.Errorf("expected exporter from file, got %s", cfg.Telemetry.Exporter)
	}
	if cfg.Cache.Enabled {
		t.Error("expected cache.enabled=false")
	}
	if cfg.Fallback.TopK != 12 {
		t.Errorf("expected top_k 12, got %d", cfg.Fallback.TopK)
	}
	if cfg.LLM.Timeout != 5*time.Second {
		t.Errorf("expected timeout 5s, got %s", cfg.LLM.Timeout)
	}
}

func TestLoadWithOverrides(t *testing.T) {
	cfg, err := LoadWithOverrides("", []string{"fallback.mode=retrieval", "index.embedder=hash"})
	if err != nil {
		t.Fatalf("LoadWithOverrides failed: %v", err)
	}
	if cfg.Fallback.Mode != "retrieval" || cfg.Index.Embedder != "hash" {
		t.Errorf("unexpected overrides: %+v %+v", cfg.Fallback, cfg.Index)
	}

	if _, err := LoadWithOverrides("", []string{"novalue"}); err == nil {
		t.Error("expected error for override without '='")
	}
}

func TestParseCLIOverridesErrors(t *testing.T) {
	tests := [][]string{
		{"--set"},
		{"--config"},
		{"--set", "missing-equals"},
		{"--set", "=value"},
	}
	for _, args := range tests {
		if _, _, err := parseCLIOverrides(args); err == nil {
			t.Errorf("%v: expected error", args)
		}
	}
}

func TestParseSetValues(t *testing.T) {
	tests := map[string]any{
		"a=1":         1.0,
		"a=true":      true,
		"a=hello":     "hello",
		"a=":          "",
		`a=["x","y"]`: []any{"x", "y"},
		"a=b=c":       "b=c",
		"a=Apr-23":    "Apr-23",
		`a={"k":"v"}`: map[string]any{"k": "v"},
	}
	for in, want := range tests {
		_, got, err := parseSet(in)
		if err != nil {
			t.Errorf("%q: unexpected error: %v", in, err)
			continue
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("%q mismatch (-want +got):\n%s", in, diff)
		}
	}
}

func TestEnvKey(t *testing.T) {
	tests := map[string]string{
		"CEOBOT_LLM_API_KEY":        "llm.api_key",
		"CEOBOT_DATASET_SQLITE_DSN": "dataset.sqlite_dsn",
		"CEOBOT_SERVER_ADDR":        "server.addr",
	}
	for in, want := range tests {
		if got := envKey(in); got != want {
			t.Errorf("%s: expected %s, got %s", in, want, got)
		}
	}
}
