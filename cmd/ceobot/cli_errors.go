// Copyright 2026 © The CEO Bot Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/qsrceo/ceobot/pkg/errors"
)

// CLIError wraps BotError with CLI-specific formatting and hints.
type CLIError struct {
	*errors.BotError
	Hint string
}

// NewCLIError creates a new CLI error.
func NewCLIError(be *errors.BotError, hint string) *CLIError {
	return &CLIError{
		BotError: be,
		Hint:     hint,
	}
}

// Error returns the formatted error message with hints.
func (e *CLIError) Error() string {
	if e.BotError == nil {
		return "unknown error"
	}

	msg := e.BotError.Error()
	if e.Hint != "" {
		msg += "\n  Hint: " + e.Hint
	}
	return msg
}

// PrintError writes the error to w, as a JSON object when asJSON is set.
func (e *CLIError) PrintError(w io.Writer, asJSON bool) {
	if asJSON {
		payload := map[string]map[string]string{"error": {
			"code":    string(e.Code),
			"message": e.Message,
			"hint":    e.Hint,
		}}
		if e.Err != nil {
			payload["error"]["cause"] = e.Err.Error()
		}
		_ = json.NewEncoder(w).Encode(payload)
		return
	}

	fmt.Fprintf(w, "Error [%s]: %s\n", e.Code, e.Message)
	if e.Err != nil {
		fmt.Fprintf(w, "  Cause: %s\n", e.Err.Error())
	}
	if e.Hint != "" {
		fmt.Fprintf(w, "  Hint: %s\n", e.Hint)
	}
}

// WrapCLIError converts any error into a CLIError with a hint for its code.
func WrapCLIError(err error) *CLIError {
	if err == nil {
		return nil
	}
	if ce, ok := err.(*CLIError); ok {
		return ce
	}
	be := errors.AsBotError(err)
	if be.Code == errors.CodeInternal && be.Message == "wrapped error" && be.Err != nil {
		be.Message = be.Err.Error()
		be.Err = nil
	}
	return NewCLIError(be, hintFor(be))
}

// NewInvalidArgumentError creates an invalid argument error with CLI hints.
func NewInvalidArgumentError(arg, reason string) *CLIError {
	be := errors.New(errors.CodeInvalidInput, fmt.Sprintf("invalid argument: %s", reason), nil).
		WithContext("argument", arg).
		WithContext("reason", reason).
		WithRecoverable(false)
	return NewCLIError(be, "run 'ceobot help' for usage information")
}

// NewConfigError creates a configuration error with CLI hints.
func NewConfigError(err error, configPath string) *CLIError {
	be := errors.New(errors.CodeInvalidInput, "configuration error", err).
		WithContext("config_path", configPath).
		WithRecoverable(false)

	hint := "check your configuration file syntax"
	if configPath != "" {
		hint = fmt.Sprintf("check %s for syntax errors", configPath)
	}
	return NewCLIError(be, hint)
}

func hintFor(be *errors.BotError) string {
	switch be.Code {
	case errors.CodeDatasetLoad:
		if h, ok := be.Context["hint"].(string); ok {
			return h
		}
		if src, ok := be.Context["source"].(string); ok {
			return fmt.Sprintf("check that %s exists and has Store, Metric and month columns", src)
		}
		return "check the dataset path or sqlite table"
	case errors.CodeGeneration:
		return "check llm.provider, llm.base_url and the API key, or set fallback.mode"
	case errors.CodeTimeout:
		return "try increasing llm.timeout"
	case errors.CodeInvalidInput:
		if _, ok := be.Context["problems"]; ok {
			return "fix the listed configuration keys"
		}
		return "run 'ceobot help' for usage information"
	case errors.CodeContextLost:
		return "the request was interrupted"
	}
	return ""
}

// FormatErrorCode returns a user-friendly name for error codes.
func FormatErrorCode(code errors.ErrorCode) string {
	switch code {
	case errors.CodeInternal:
		return "Internal Error"
	case errors.CodeInvalidInput:
		return "Invalid Input"
	case errors.CodeMetricNotFound:
		return "Metric Not Found"
	case errors.CodeSlotMissing:
		return "Missing Detail"
	case errors.CodeEmptyResult:
		return "No Matching Data"
	case errors.CodeDivisionUndefined:
		return "Undefined Ratio"
	case errors.CodeMissingMetric:
		return "Missing Metric"
	case errors.CodeGeneration:
		return "Model Error"
	case errors.CodeExecution:
		return "Program Error"
	case errors.CodeDatasetLoad:
		return "Dataset Error"
	case errors.CodeTimeout:
		return "Timeout"
	case errors.CodeContextLost:
		return "Context Lost"
	case errors.CodeBlocked:
		return "Blocked"
	default:
		return string(code)
	}
}
