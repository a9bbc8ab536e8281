// Copyright 2026 © The CEO Bot Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"github.com/qsrceo/ceobot/pkg/config"
	"github.com/qsrceo/ceobot/pkg/errors"
	"github.com/qsrceo/ceobot/pkg/llm"
	"github.com/qsrceo/ceobot/pkg/llm/anthropic"
	"github.com/qsrceo/ceobot/pkg/llm/openai"
)

func loadTestConfig() (*config.Config, error) {
	return config.LoadWithOverrides("", nil)
}

func TestNewProvider(t *testing.T) {
	tests := []struct {
		provider string
		check    func(llm.Provider) bool
	}{
		{"ollama", func(p llm.Provider) bool { _, ok := p.(*llm.OllamaProvider); return ok }},
		{"openai", func(p llm.Provider) bool { _, ok := p.(*openai.Provider); return ok }},
		{"anthropic", func(p llm.Provider) bool { _, ok := p.(*anthropic.Provider); return ok }},
		{"mock", func(p llm.Provider) bool { _, ok := p.(*llm.MockProvider); return ok }},
	}
	for _, tt := range tests {
		t.Run(tt.provider, func(t *testing.T) {
			p, err := newProvider(context.Background(), config.LLMConfig{Provider: tt.provider, Model: "m", APIKey: "k"})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !tt.check(p) {
				t.Errorf("unexpected provider type %T", p)
			}
		})
	}

	_, err := newProvider(context.Background(), config.LLMConfig{Provider: "bogus"})
	if !errors.HasCode(err, errors.CodeInvalidInput) {
		t.Errorf("expected INVALID_INPUT, got %v", err)
	}
}

func TestNewAppRetrievalBuildsRowIndex(t *testing.T) {
	c, err := loadTestConfig()
	if err != nil {
		t.Fatal(err)
	}
	c.Dataset.Path = writeSales(t)
	c.LLM.Provider = "mock"
	c.Fallback.Mode = "retrieval"
	c.Index.Embedder = "hash"

	a, err := newApp(context.Background(), c, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("newApp failed: %v", err)
	}
	defer a.Close()
	if a.rows == nil {
		t.Fatal("expected a row index in retrieval mode")
	}
	matches, err := a.rows.Search(context.Background(), "BBB Apr-23", 1)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(matches) != 1 || !strings.Contains(matches[0].Text, "BBB") {
		t.Errorf("expected a BBB row, got %+v", matches)
	}
}

func TestChatLoop(t *testing.T) {
	c, err := loadTestConfig()
	if err != nil {
		t.Fatal(err)
	}
	c.Dataset.Path = writeSales(t)
	c.LLM.Provider = "mock"
	a, err := newApp(context.Background(), c, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("newApp failed: %v", err)
	}
	defer a.Close()

	in := strings.NewReader("\n" + maxQuestion + "\nquit\nnever asked\n")
	var out bytes.Buffer
	if err := chatLoop(&cobra.Command{}, a.bot, in, &out); err != nil {
		t.Fatalf("chat failed: %v", err)
	}
	got := out.String()
	if !strings.HasPrefix(got, "2 stores, 1 metrics, latest month May-23.") {
		t.Errorf("unexpected banner: %q", got)
	}
	if !strings.Contains(got, "BBB") {
		t.Errorf("expected BBB in answers, got %q", got)
	}
	if strings.Count(got, "> ") != 3 {
		t.Errorf("expected 3 prompts, got %q", got)
	}
}

func TestWrapCLIError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode errors.ErrorCode
		wantHint string
	}{
		{
			name:     "dataset with source",
			err:      errors.New(errors.CodeDatasetLoad, "boom", nil).WithContext("source", "x.csv"),
			wantCode: errors.CodeDatasetLoad,
			wantHint: "check that x.csv exists",
		},
		{
			name:     "generation",
			err:      errors.New(errors.CodeGeneration, "model down", nil),
			wantCode: errors.CodeGeneration,
			wantHint: "llm.provider",
		},
		{
			name:     "plain error",
			err:      io.ErrUnexpectedEOF,
			wantCode: errors.CodeInternal,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ce := WrapCLIError(tt.err)
			if ce.Code != tt.wantCode {
				t.Errorf("expected code %s, got %s", tt.wantCode, ce.Code)
			}
			if !strings.Contains(ce.Hint, tt.wantHint) {
				t.Errorf("expected hint containing %q, got %q", tt.wantHint, ce.Hint)
			}
		})
	}

	if WrapCLIError(nil) != nil {
		t.Error("expected nil for nil error")
	}
	plain := WrapCLIError(io.ErrUnexpectedEOF)
	if plain.Message != io.ErrUnexpectedEOF.Error() {
		t.Errorf("expected plain message, got %q", plain.Message)
	}
}

func TestPrintErrorJSON(t *testing.T) {
	ce := NewInvalidArgumentError("--out", `bad "path"`)
	var buf bytes.Buffer
	ce.PrintError(&buf, true)
	want := `{"error":{"code":"INVALID_INPUT","hint":"run 'ceobot help' for usage information","message":"invalid argument: bad \"path\""}}` + "\n"
	if buf.String() != want {
		t.Errorf("expected %s, got %s", want, buf.String())
	}

	buf.Reset()
	ce.PrintError(&buf, false)
	if !strings.HasPrefix(buf.String(), "Error [INVALID_INPUT]: invalid argument") {
		t.Errorf("unexpected text output: %q", buf.String())
	}
}
