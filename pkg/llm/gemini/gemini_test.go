// Copyright 2026 © The CEO Bot Authors
// SPDX-License-Identifier: Apache-2.0

package gemini

import (
	"testing"

	"google.golang.org/genai"

	"github.com/qsrceo/ceobot/pkg/llm"
)

func TestConvertMessages(t *testing.T) {
	contents, system := convertMessages([]llm.Message{
		{Role: llm.RoleSystem, Content: "Answer from the data only."},
		{Role: llm.RoleUser, Content: "Top stores?"},
		{Role: llm.RoleAssistant, ToolCalls: []llm.ToolCall{
			{Function: llm.FunctionCall{Name: "run_program", Arguments: `{"bindings":[]}`}},
		}},
		{Role: llm.RoleTool, Content: "not json", ToolCallID: "run_program"},
	})

	if system != "Answer from the data only." {
		t.Errorf("expected system instruction, got %q", system)
	}
	if len(contents) != 3 {
		t.Fatalf("expected 3 contents, got %d", len(contents))
	}
	if contents[1].Role != "model" || contents[1].Parts[0].FunctionCall == nil {
		t.Errorf("expected a model function call, got %+v", contents[1])
	}
	resp := contents[2].Parts[0].FunctionResponse
	if resp == nil || resp.Response["result"] != "not json" {
		t.Errorf("expected wrapped non-JSON tool result, got %+v", resp)
	}
}

func TestConvertTools(t *testing.T) {
	decls := convertTools([]llm.Tool{llm.FunctionTool("run_program", "Run a program", map[string]interface{}{
		"type":       "object",
		"properties": map[string]interface{}{"bindings": map[string]interface{}{"type": "array"}},
	})})
	if len(decls) != 1 || decls[0].Name != "run_program" || decls[0].Parameters == nil {
		t.Errorf("expected one declaration with parameters, got %+v", decls)
	}
}

func TestConvertResponse(t *testing.T) {
	resp := convertResponse(&genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{Content: &genai.Content{Parts: []*genai.Part{
			{Text: "BBB leads."},
			{FunctionCall: &genai.FunctionCall{Name: "run_program", Args: map[string]any{"bindings": []any{}}}},
		}}}},
		UsageMetadata: &genai.GenerateContentResponseUsageMetadata{PromptTokenCount: 3, CandidatesTokenCount: 2, TotalTokenCount: 5},
	})
	if resp.Content != "BBB leads." {
		t.Errorf("expected text content, got %q", resp.Content)
	}
	if len(resp.ToolCalls) != 1 || resp.ToolCalls[0].Function.Arguments != `{"bindings":[]}` {
		t.Errorf("expected one tool call, got %+v", resp.ToolCalls)
	}
	if resp.Usage.TotalTokens != 5 {
		t.Errorf("expected 5 tokens, got %d", resp.Usage.TotalTokens)
	}
}
