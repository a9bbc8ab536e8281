// Copyright 2026 © The CEO Bot Authors
// SPDX-License-Identifier: Apache-2.0

// Package llm defines the chat model interface used by the generative
// fallback, with an Ollama implementation and test doubles. Hosted
// providers live in subpackages.
package llm

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"

	"github.com/qsrceo/ceobot/pkg/errors"
)

// Role represents the role of a message sender.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// ToolType represents the type of tool.
type ToolType string

const (
	ToolTypeFunction ToolType = "function"
)

// FunctionDef defines a function tool.
type FunctionDef struct {
	Name        string      `json:"name"`
	Description string      `json:"description,omitempty"`
	Parameters  interface{} `json:"parameters"` // JSON Schema
}

// Tool represents a tool available to the model.
type Tool struct {
	Type     ToolType    `json:"type"`
	Function FunctionDef `json:"function"`
}

// FunctionTool builds a function tool.
func FunctionTool(name, description string, parameters interface{}) Tool {
	return Tool{
		Type:     ToolTypeFunction,
		Function: FunctionDef{Name: name, Description: description, Parameters: parameters},
	}
}

// FunctionCall represents a call to a function tool.
type FunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"` // JSON object
}

// Decode unmarshals the call arguments into v.
func (f FunctionCall) Decode(v interface{}) error {
	if f.Arguments == "" {
		return fmt.Errorf("call to %s has no arguments", f.Name)
	}
	return json.Unmarshal([]byte(f.Arguments), v)
}

// ToolCall represents a request from the model to call a tool.
type ToolCall struct {
	ID       string       `json:"id,omitempty"`
	Type     ToolType     `json:"type"`
	Function FunctionCall `json:"function"`
}

// Message is a single unit of communication.
type Message struct {
	Role       Role       `json:"role"`
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"` // tool role only
}

// ChatRequest encapsulates the input for the model.
type ChatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Tools       []Tool    `json:"tools,omitempty"`
	Temperature float64   `json:"temperature,omitempty"`
}

// ChatResponse encapsulates the output from the model.
type ChatResponse struct {
	Content   string     `json:"content"`
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
	Usage     Usage      `json:"usage"`
}

// Usage tracks token consumption.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Provider defines the interface for interacting with model backends.
type Provider interface {
	// Chat sends a chat request and returns the response.
	Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error)
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func(ctx context.Context, req ChatRequest) (*ChatResponse, error)

// Chat calls f.
func (f ProviderFunc) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	return f(ctx, req)
}

// Failure wraps a provider error as a GENERATION_ERROR. Cancellation and
// deadline errors are not recoverable; anything else may be retried.
func Failure(provider string, err error) error {
	if err == nil {
		return nil
	}
	recoverable := !stderrors.Is(err, context.Canceled) && !stderrors.Is(err, context.DeadlineExceeded)
	return errors.New(errors.CodeGeneration, provider+" chat failed", err).
		WithContext("provider", provider).
		WithRecoverable(recoverable)
}
