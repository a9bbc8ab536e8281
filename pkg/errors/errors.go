// Copyright 2026 © The CEO Bot Authors
// SPDX-License-Identifier: Apache-2.0

// Package errors provides the typed error taxonomy of the query engine.
//
// Resolver-level codes (metric miss, missing slot, empty filter, undefined
// ratio) never reach the user: they are converted to an unresolved outcome
// that triggers the generative fallback. Generation and execution codes are
// shown to the user as text; the conversation continues.
package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
)

// ErrorCode classifies engine errors for monitoring and recovery.
type ErrorCode string

const (
	// CodeInternal indicates an internal system error.
	CodeInternal ErrorCode = "INTERNAL_ERROR"

	// CodeInvalidInput indicates the input was invalid.
	CodeInvalidInput ErrorCode = "INVALID_INPUT"

	// CodeMetricNotFound indicates a metric phrase matched no vocabulary entry.
	CodeMetricNotFound ErrorCode = "METRIC_NOT_FOUND"

	// CodeSlotMissing indicates a slot required by the intent handler is absent.
	CodeSlotMissing ErrorCode = "SLOT_MISSING"

	// CodeEmptyResult indicates a filter produced no rows.
	CodeEmptyResult ErrorCode = "EMPTY_RESULT"

	// CodeDivisionUndefined indicates a ratio or growth base of zero.
	CodeDivisionUndefined ErrorCode = "DIVISION_UNDEFINED"

	// CodeMissingMetric indicates a metric column needed for a derived KPI is absent.
	CodeMissingMetric ErrorCode = "MISSING_METRIC"

	// CodeGeneration indicates the external model call failed.
	CodeGeneration ErrorCode = "GENERATION_ERROR"

	// CodeExecution indicates a generated program faulted or produced no output.
	CodeExecution ErrorCode = "EXECUTION_ERROR"

	// CodeDatasetLoad indicates the dataset could not be loaded.
	CodeDatasetLoad ErrorCode = "DATASET_LOAD"

	// CodeTimeout indicates an operation exceeded its time limit.
	CodeTimeout ErrorCode = "TIMEOUT"

	// CodeContextLost indicates the request context was canceled.
	CodeContextLost ErrorCode = "CONTEXT_LOST"

	// CodeBlocked indicates a guardrail refused the input.
	CodeBlocked ErrorCode = "BLOCKED"
)

// BotError is a typed error with context for logging and metrics.
// It implements the error interface and can be unwrapped with errors.As().
type BotError struct {
	Code        ErrorCode
	Message     string
	Err         error
	Context     map[string]interface{}
	Recoverable bool
	StatusCode  int
}

// Error implements the error interface.
func (e *BotError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap implements errors.Unwrap for error chain traversal.
func (e *BotError) Unwrap() error {
	return e.Err
}

// MarshalJSON implements json.Marshaler for structured logging.
func (e *BotError) MarshalJSON() ([]byte, error) {
	out := struct {
		Message     string                 `json:"message"`
		Code        string                 `json:"code"`
		Err         string                 `json:"error,omitempty"`
		Context     map[string]interface{} `json:"context,omitempty"`
		Recoverable bool                   `json:"recoverable"`
	}{
		Message:     e.Error(),
		Code:        string(e.Code),
		Context:     e.Context,
		Recoverable: e.Recoverable,
	}
	if e.Err != nil {
		out.Err = e.Err.Error()
	}
	return json.Marshal(out)
}

// New creates a new BotError with the given code, message, and cause.
func New(code ErrorCode, msg string, cause error) *BotError {
	return &BotError{
		Code:       code,
		Message:    msg,
		Err:        cause,
		Context:    make(map[string]interface{}),
		StatusCode: codeToStatusCode(code),
	}
}

// Newf is New with a formatted message and no cause.
func Newf(code ErrorCode, format string, args ...interface{}) *BotError {
	return New(code, fmt.Sprintf(format, args...), nil)
}

// WithContext adds a key-value pair to the error context.
// Returns the error for method chaining.
func (e *BotError) WithContext(key string, value interface{}) *BotError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// WithRecoverable sets whether the error can be retried.
// Returns the error for method chaining.
func (e *BotError) WithRecoverable(recoverable bool) *BotError {
	e.Recoverable = recoverable
	return e
}

// AsBotError converts an error to a BotError.
// A BotError anywhere in the chain is returned as is; other errors are wrapped as internal.
func AsBotError(err error) *BotError {
	if err == nil {
		return nil
	}
	var be *BotError
	if stderrors.As(err, &be) {
		return be
	}
	return New(CodeInternal, "wrapped error", err)
}

// HasCode reports whether any BotError in err's chain carries code.
func HasCode(err error, code ErrorCode) bool {
	for err != nil {
		var be *BotError
		if !stderrors.As(err, &be) {
			return false
		}
		if be.Code == code {
			return true
		}
		err = be.Err
	}
	return false
}

// CodeOf returns the code of the outermost BotError in err's chain, or CodeInternal.
func CodeOf(err error) ErrorCode {
	var be *BotError
	if stderrors.As(err, &be) {
		return be.Code
	}
	return CodeInternal
}

// codeToStatusCode maps error codes to HTTP status codes.
func codeToStatusCode(code ErrorCode) int {
	switch code {
	case CodeInvalidInput, CodeBlocked:
		return 400
	case CodeMetricNotFound, CodeEmptyResult:
		return 404
	case CodeTimeout:
		return 408
	case CodeSlotMissing, CodeDivisionUndefined, CodeMissingMetric, CodeExecution:
		return 422
	case CodeGeneration:
		return 502
	default:
		return 500
	}
}
