// Copyright 2026 © The CEO Bot Authors
// SPDX-License-Identifier: Apache-2.0

package llm

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/qsrceo/ceobot/pkg/errors"
)

func TestMockProvider(t *testing.T) {
	mock := &MockProvider{Response: "Hello world"}
	resp, err := mock.Chat(context.Background(), ChatRequest{
		Messages: []Message{{Role: RoleUser, Content: "Hi"}},
	})
	if err != nil {
		t.Fatalf("Chat failed: %v", err)
	}
	if resp.Content != "Hello world" {
		t.Errorf("expected 'Hello world', got %q", resp.Content)
	}
	if mock.Calls() != 1 || mock.Requests()[0].Messages[0].Content != "Hi" {
		t.Errorf("expected the request to be recorded, got %+v", mock.Requests())
	}
}

func TestScriptedMockProvider(t *testing.T) {
	boom := stderrors.New("boom")
	mock := NewScriptedMockProvider(Fail(boom), Call("run_program", `{"bindings":[]}`), Reply("done"))
	ctx := context.Background()

	if _, err := mock.Chat(ctx, ChatRequest{}); !stderrors.Is(err, boom) {
		t.Errorf("expected scripted error, got %v", err)
	}
	resp, err := mock.Chat(ctx, ChatRequest{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(resp.ToolCalls) != 1 || resp.ToolCalls[0].Function.Name != "run_program" {
		t.Errorf("expected a run_program call, got %+v", resp.ToolCalls)
	}
	resp, _ = mock.Chat(ctx, ChatRequest{})
	if resp.Content != "done" {
		t.Errorf("expected 'done', got %q", resp.Content)
	}
	if _, err := mock.Chat(ctx, ChatRequest{}); err == nil {
		t.Errorf("expected an error once the script is exhausted")
	}
	if mock.CallCount != 4 || mock.Remaining() != 0 {
		t.Errorf("expected 4 calls and an empty script, got %d and %d", mock.CallCount, mock.Remaining())
	}
}

func TestFunctionCallDecode(t *testing.T) {
	var args struct {
		Question string `json:"question"`
	}
	call := FunctionCall{Name: "ask", Arguments: `{"question":"top stores"}`}
	if err := call.Decode(&args); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if args.Question != "top stores" {
		t.Errorf("expected 'top stores', got %q", args.Question)
	}
	if err := (FunctionCall{Name: "ask"}).Decode(&args); err == nil {
		t.Errorf("expected an error for empty arguments")
	}
}

func TestFailure(t *testing.T) {
	err := Failure("ollama", stderrors.New("connection refused"))
	be := errors.AsBotError(err)
	if be.Code != errors.CodeGeneration || !be.Recoverable {
		t.Errorf("expected recoverable GENERATION_ERROR, got %+v", be)
	}
	be = errors.AsBotError(Failure("ollama", context.DeadlineExceeded))
	if be.Recoverable {
		t.Errorf("expected deadline errors not to be recoverable")
	}
	if Failure("ollama", nil) != nil {
		t.Errorf("expected nil for nil error")
	}
}

func TestOllamaChat(t *testing.T) {
	var got ollamaRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			t.Errorf("expected /api/chat, got %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("bad request body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"message": {"role": "assistant", "content": "",
				"tool_calls": [{"function": {"name": "run_program", "arguments": {"bindings": []}}}]},
			"done": true, "prompt_eval_count": 7, "eval_count": 3}`))
	}))
	defer srv.Close()

	p := NewOllama(srv.URL+"/", WithOllamaModel("qwen2.5"))
	resp, err := p.Chat(context.Background(), ChatRequest{
		Messages:    []Message{{Role: RoleUser, Content: "hi"}},
		Temperature: 0.2,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Model != "qwen2.5" || got.Stream {
		t.Errorf("expected default model and no streaming, got %+v", got)
	}
	want := []ToolCall{{ID: "call_0", Type: ToolTypeFunction, Function: FunctionCall{Name: "run_program", Arguments: `{"bindings": []}`}}}
	if diff := cmp.Diff(want, resp.ToolCalls); diff != "" {
		t.Errorf("tool calls mismatch (-want +got):\n%s", diff)
	}
	if resp.Usage.TotalTokens != 10 {
		t.Errorf("expected 10 tokens, got %d", resp.Usage.TotalTokens)
	}
}

func TestOllamaChatError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := NewOllama(srv.URL).Chat(context.Background(), ChatRequest{})
	if !errors.HasCode(err, errors.CodeGeneration) {
		t.Errorf("expected GENERATION_ERROR, got %v", err)
	}
}
