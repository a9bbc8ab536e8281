// Copyright 2026 © The CEO Bot Authors
// SPDX-License-Identifier: Apache-2.0

// Package telemetry wires slog and OpenTelemetry for the query engine:
// span attributes, trace-aware logging, exporters and counters.
package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

// Attribute keys. Model call keys follow the gen_ai conventions.
const (
	// Question attributes
	AttrSessionID  = "ceobot.session.id"
	AttrQuestion   = "ceobot.question"
	AttrIntent     = "ceobot.intent"
	AttrOutcome    = "ceobot.outcome"
	AttrSlotCount  = "ceobot.slots.count"
	AttrErrorCode  = "ceobot.error.code"
	AttrCacheHit   = "ceobot.cache.hit"
	AttrHistoryLen = "ceobot.session.history_length"

	// Dataset attributes
	AttrDatasetSource = "ceobot.dataset.source"
	AttrDatasetRows   = "ceobot.dataset.rows"
	AttrDatasetStores = "ceobot.dataset.stores"

	// Fallback attributes
	AttrFallbackMode     = "ceobot.fallback.mode"
	AttrFallbackRows     = "ceobot.fallback.context_rows"
	AttrFallbackPassages = "ceobot.fallback.passages"
	AttrProgramBindings  = "ceobot.program.bindings"
	AttrProgramRows      = "ceobot.program.result_rows"

	// Index attributes
	AttrIndexHit   = "ceobot.index.hit"
	AttrIndexScore = "ceobot.index.score"
	AttrIndexKind  = "ceobot.index.kind"

	// Model attributes
	AttrLLMModel        = "gen_ai.request.model"
	AttrLLMProvider     = "gen_ai.system"
	AttrLLMMessages     = "gen_ai.request.messages"
	AttrLLMTokensInput  = "gen_ai.usage.input_tokens"
	AttrLLMTokensOutput = "gen_ai.usage.output_tokens"
	AttrLLMTokensTotal  = "gen_ai.usage.total_tokens"
	AttrLLMDurationMs   = "gen_ai.duration_ms"
	AttrLLMToolCalls    = "gen_ai.tool_calls"
)

const maxQuestionLen = 200

// QuestionAttributes returns the attributes of a bot.ask span.
func QuestionAttributes(sessionID, question string) []attribute.KeyValue {
	if len(question) > maxQuestionLen {
		question = question[:maxQuestionLen] + "..."
	}
	attrs := []attribute.KeyValue{attribute.String(AttrQuestion, question)}
	if sessionID != "" {
		attrs = append(attrs, attribute.String(AttrSessionID, sessionID))
	}
	return attrs
}

// OutcomeAttributes describes how a question was answered.
func OutcomeAttributes(intent, outcome string, slots int) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String(AttrIntent, intent),
		attribute.String(AttrOutcome, outcome),
	}
	if slots > 0 {
		attrs = append(attrs, attribute.Int(AttrSlotCount, slots))
	}
	return attrs
}

// DatasetAttributes describes the dataset snapshot a question ran against.
func DatasetAttributes(source string, rows, stores int) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.Int(AttrDatasetRows, rows),
		attribute.Int(AttrDatasetStores, stores),
	}
	if source != "" {
		attrs = append(attrs, attribute.String(AttrDatasetSource, source))
	}
	return attrs
}

// FallbackAttributes returns attributes of a fallback.answer span.
func FallbackAttributes(mode string, contextRows, passages int) []attribute.KeyValue {
	attrs := []attribute.KeyValue{attribute.String(AttrFallbackMode, mode)}
	if contextRows > 0 {
		attrs = append(attrs, attribute.Int(AttrFallbackRows, contextRows))
	}
	if passages > 0 {
		attrs = append(attrs, attribute.Int(AttrFallbackPassages, passages))
	}
	return attrs
}

// ProgramAttributes describes an evaluated program.
func ProgramAttributes(bindings, resultRows int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Int(AttrProgramBindings, bindings),
		attribute.Int(AttrProgramRows, resultRows),
	}
}

// IndexAttributes returns attributes of an index.lookup span.
func IndexAttributes(kind string, hit bool, score float64) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.Bool(AttrIndexHit, hit),
	}
	if kind != "" {
		attrs = append(attrs, attribute.String(AttrIndexKind, kind))
	}
	if hit {
		attrs = append(attrs, attribute.Float64(AttrIndexScore, score))
	}
	return attrs
}

// LLMAttributes returns attributes for model call spans.
func LLMAttributes(model, provider string, msgCount int, toolCallCount int) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String(AttrLLMModel, model),
		attribute.Int(AttrLLMMessages, msgCount),
	}
	if provider != "" {
		attrs = append(attrs, attribute.String(AttrLLMProvider, provider))
	}
	if toolCallCount > 0 {
		attrs = append(attrs, attribute.Int(AttrLLMToolCalls, toolCallCount))
	}
	return attrs
}

// LLMUsageAttributes returns token usage attributes.
func LLMUsageAttributes(inputTokens, outputTokens int, durationMs float64) []attribute.KeyValue {
	attrs := []attribute.KeyValue{}
	if inputTokens > 0 {
		attrs = append(attrs, attribute.Int(AttrLLMTokensInput, inputTokens))
	}
	if outputTokens > 0 {
		attrs = append(attrs, attribute.Int(AttrLLMTokensOutput, outputTokens))
	}
	if inputTokens > 0 || outputTokens > 0 {
		attrs = append(attrs, attribute.Int(AttrLLMTokensTotal, inputTokens+outputTokens))
	}
	if durationMs > 0 {
		attrs = append(attrs, attribute.Float64(AttrLLMDurationMs, durationMs))
	}
	return attrs
}
