// Copyright 2026 © The CEO Bot Authors
// SPDX-License-Identifier: Apache-2.0

package llm

import (
	"context"
	"errors"
	"sync"
)

// Step is one scripted outcome: a response, or an error.
type Step struct {
	Response *ChatResponse
	Err      error
}

// Reply scripts a plain text response.
func Reply(content string) Step {
	return Step{Response: &ChatResponse{Content: content}}
}

// Call scripts a single tool call with JSON arguments.
func Call(name, arguments string) Step {
	return Step{Response: &ChatResponse{ToolCalls: []ToolCall{{
		ID:       "call_0",
		Type:     ToolTypeFunction,
		Function: FunctionCall{Name: name, Arguments: arguments},
	}}}}
}

// Fail scripts an error.
func Fail(err error) Step {
	return Step{Err: err}
}

// ScriptedMockProvider returns a pre-defined sequence of outcomes, one per
// Chat call. Useful for retry and tool-calling paths.
type ScriptedMockProvider struct {
	mu    sync.Mutex
	steps []Step
	// CallCount tracks how many times Chat has been called
	CallCount int
}

// NewScriptedMockProvider creates a new ScriptedMockProvider.
func NewScriptedMockProvider(steps ...Step) *ScriptedMockProvider {
	return &ScriptedMockProvider{steps: steps}
}

// Chat pops the next scripted outcome.
func (s *ScriptedMockProvider) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.CallCount++
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(s.steps) == 0 {
		return nil, errors.New("scripted mock: no more responses available")
	}

	next := s.steps[0]
	s.steps = s.steps[1:]
	if next.Err != nil {
		return nil, next.Err
	}
	return next.Response, nil
}

// Remaining is the number of unused steps.
func (s *ScriptedMockProvider) Remaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.steps)
}
