// Copyright 2026 © The CEO Bot Authors
// SPDX-License-Identifier: Apache-2.0

package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/qsrceo/ceobot/pkg/llm"
)

func TestNewProvider(t *testing.T) {
	if p := New(); p.model != DefaultModel {
		t.Errorf("expected model %s, got %s", DefaultModel, p.model)
	}
	if p := New(WithModel("gpt-4.1")); p.model != "gpt-4.1" {
		t.Errorf("expected model gpt-4.1, got %s", p.model)
	}
	if p := New(WithModel("")); p.model != DefaultModel {
		t.Errorf("expected empty model to keep the default, got %s", p.model)
	}
}

func TestConvertMessages(t *testing.T) {
	tests := []struct {
		name string
		msg  llm.Message
	}{
		{name: "system", msg: llm.Message{Role: llm.RoleSystem, Content: "Answer from the data only"}},
		{name: "user", msg: llm.Message{Role: llm.RoleUser, Content: "Top stores?"}},
		{name: "assistant", msg: llm.Message{Role: llm.RoleAssistant, Content: "BBB"}},
		{name: "assistant tool call", msg: llm.Message{Role: llm.RoleAssistant, ToolCalls: []llm.ToolCall{
			{ID: "call_1", Type: llm.ToolTypeFunction, Function: llm.FunctionCall{Name: "run_program", Arguments: "{}"}},
		}}},
		{name: "tool", msg: llm.Message{Role: llm.RoleTool, Content: "[]", ToolCallID: "call_1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_ = convertMessage(tt.msg)
		})
	}
}

func TestChat(t *testing.T) {
	var body map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"id": "chatcmpl-1", "object": "chat.completion", "created": 1, "model": "gpt-4o-mini",
			"choices": [{"index": 0, "finish_reason": "tool_calls", "message": {
				"role": "assistant", "content": "",
				"tool_calls": [{"id": "call_1", "type": "function",
					"function": {"name": "run_program", "arguments": "{\"bindings\":[]}"}}]}}],
			"usage": {"prompt_tokens": 3, "completion_tokens": 2, "total_tokens": 5}}`))
	}))
	defer srv.Close()

	p := New(WithBaseURL(srv.URL), WithAPIKey("test"))
	resp, err := p.Chat(context.Background(), llm.ChatRequest{
		Messages: []llm.Message{{Role: llm.RoleUser, Content: "Top stores?"}},
		Tools:    []llm.Tool{llm.FunctionTool("run_program", "Run a program", map[string]interface{}{"type": "object"})},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if body["model"] != DefaultModel {
		t.Errorf("expected default model in request, got %v", body["model"])
	}
	if len(resp.ToolCalls) != 1 || resp.ToolCalls[0].Function.Arguments != `{"bindings":[]}` {
		t.Errorf("expected one run_program call, got %+v", resp.ToolCalls)
	}
	if resp.Usage.TotalTokens != 5 {
		t.Errorf("expected 5 tokens, got %d", resp.Usage.TotalTokens)
	}
}
