// Copyright 2026 © The CEO Bot Authors
// SPDX-License-Identifier: Apache-2.0

package resolver

import (
	stderrors "errors"
	"fmt"
	"math"

	"github.com/qsrceo/ceobot/pkg/nlu"
)

// ErrUnresolved marks a question the deterministic path could not answer.
// Test for it with errors.Is; the concrete error is *UnresolvedError.
var ErrUnresolved = stderrors.New("unresolved")

// UnresolvedError carries the intent and the reason resolution failed.
type UnresolvedError struct {
	Intent nlu.Intent
	Reason error
}

func (e *UnresolvedError) Error() string {
	if e.Reason == nil {
		return fmt.Sprintf("unresolved %s", e.Intent)
	}
	return fmt.Sprintf("unresolved %s: %v", e.Intent, e.Reason)
}

// Is makes errors.Is(err, ErrUnresolved) true.
func (e *UnresolvedError) Is(target error) bool {
	return target == ErrUnresolved
}

func (e *UnresolvedError) Unwrap() error {
	return e.Reason
}

func unresolved(intent nlu.Intent, reason error) error {
	return &UnresolvedError{Intent: intent, Reason: reason}
}

// Table is a named, rectangular result. Cells are string, float64, int or
// nil for an absent value.
type Table struct {
	Name    string   `json:"name,omitempty"`
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
}

// NewTable returns an empty table with the given columns.
func NewTable(name string, columns ...string) *Table {
	return &Table{Name: name, Columns: columns, Rows: [][]any{}}
}

// Append adds a row. It panics if the arity does not match the columns.
func (t *Table) Append(cells ...any) {
	if len(cells) != len(t.Columns) {
		panic(fmt.Sprintf("table %q: row has %d cells, want %d", t.Name, len(cells), len(t.Columns)))
	}
	t.Rows = append(t.Rows, cells)
}

// Len is the number of rows.
func (t *Table) Len() int { return len(t.Rows) }

// Result is the answer to a resolved question: either a scalar with a label
// and an optional entity, or one or more tables.
type Result struct {
	Intent  nlu.Intent `json:"intent"`
	Summary string     `json:"summary"`
	Label   string     `json:"label,omitempty"`
	Entity  string     `json:"entity,omitempty"`
	Scalar  *float64   `json:"scalar,omitempty"`
	Tables  []*Table   `json:"tables,omitempty"`
}

// IsScalar reports whether r is a scalar answer.
func (r *Result) IsScalar() bool { return r.Scalar != nil }

// Table returns the first table, or nil.
func (r *Result) Table() *Table {
	if len(r.Tables) == 0 {
		return nil
	}
	return r.Tables[0]
}

func scalar(label, entity string, v float64, summary string) *Result {
	return &Result{Label: label, Entity: entity, Scalar: &v, Summary: summary}
}

func tables(summary string, ts ...*Table) *Result {
	return &Result{Summary: summary, Tables: ts}
}

// round2 rounds half away from zero to two decimals.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// optional converts a possibly absent float into a table cell.
func optional(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}

func ptr(v float64) *float64 { return &v }
