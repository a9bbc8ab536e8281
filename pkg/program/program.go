// Copyright 2026 © The CEO Bot Authors
// SPDX-License-Identifier: Apache-2.0

// Package program evaluates model-generated analysis programs over a
// read-only view of a Dataset.
//
// A program is data, not code: an ordered list of bindings, each a pipeline
// of whitelisted steps (filter, group, aggregate, sort, limit, select) over a
// base frame or an earlier binding. The binding named "result" is the output.
// Nothing here touches the filesystem, the network or the dataset itself.
package program

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/qsrceo/ceobot/pkg/errors"
)

// Output is the binding a program must define.
const Output = "result"

// Base frames a binding can start from.
const (
	// FromLong has one row per observation: Month, Store, FY, Metric, Amount.
	FromLong = "data"
	// FromWide has one row per (Month, Store) and one column per metric.
	FromWide = "wide"
)

// Limits on program size.
const (
	MaxBindings = 8
	MaxSteps    = 32
)

// Op names a step operation.
type Op string

const (
	OpFilter    Op = "filter"
	OpGroup     Op = "group"
	OpAggregate Op = "aggregate"
	OpSort      Op = "sort"
	OpLimit     Op = "limit"
	OpSelect    Op = "select"
)

// Step is one operation. Only the fields of its Op are read.
type Step struct {
	Op Op `json:"op"`

	// filter: keep rows whose Column is in In, or compares to Value by Cmp.
	// sort: order by Column. aggregate: the column to reduce.
	Column string   `json:"column,omitempty"`
	In     []string `json:"in,omitempty"`
	Cmp    string   `json:"cmp,omitempty"`
	Value  *float64 `json:"value,omitempty"`

	// group
	By []string `json:"by,omitempty"`

	// aggregate: sum, avg, min, max or count, written to As.
	Func string `json:"func,omitempty"`
	As   string `json:"as,omitempty"`

	// sort
	Desc bool `json:"desc,omitempty"`

	// limit
	N int `json:"n,omitempty"`

	// select
	Columns []string `json:"columns,omitempty"`
}

// Binding names the frame produced by running Steps over From.
type Binding struct {
	Name  string `json:"name"`
	From  string `json:"from"`
	Steps []Step `json:"steps"`
}

// Program is an ordered list of bindings.
type Program struct {
	Bindings []Binding `json:"bindings"`
}

// Parse decodes a program from JSON. Markdown code fences are tolerated.
func Parse(raw string) (*Program, error) {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")
	raw = strings.TrimSpace(raw)

	dec := json.NewDecoder(strings.NewReader(raw))
	dec.DisallowUnknownFields()
	var p Program
	if err := dec.Decode(&p); err != nil {
		return nil, errors.New(errors.CodeExecution, "program is not valid JSON", err)
	}
	return &p, nil
}

// Validate checks the program shape without running it.
func (p *Program) Validate() error {
	if len(p.Bindings) == 0 {
		return fail("program has no bindings")
	}
	if len(p.Bindings) > MaxBindings {
		return fail("program has %d bindings, limit is %d", len(p.Bindings), MaxBindings)
	}
	seen := map[string]bool{FromLong: true, FromWide: true}
	steps := 0
	hasOutput := false
	for _, b := range p.Bindings {
		if b.Name == "" || b.Name == FromLong || b.Name == FromWide {
			return fail("invalid binding name %q", b.Name)
		}
		from := b.From
		if from == "" {
			from = FromLong
		}
		if !seen[from] {
			return fail("binding %q reads unknown frame %q", b.Name, b.From)
		}
		for _, s := range b.Steps {
			if !validOp(s.Op) {
				return fail("binding %q: op %q is not allowed", b.Name, s.Op)
			}
		}
		steps += len(b.Steps)
		seen[b.Name] = true
		if b.Name == Output {
			hasOutput = true
		}
	}
	if steps > MaxSteps {
		return fail("program has %d steps, limit is %d", steps, MaxSteps)
	}
	if !hasOutput {
		return fail("program defines no %q binding", Output)
	}
	return nil
}

func validOp(op Op) bool {
	switch op {
	case OpFilter, OpGroup, OpAggregate, OpSort, OpLimit, OpSelect:
		return true
	}
	return false
}

func fail(format string, args ...any) error {
	return errors.Newf(errors.CodeExecution, format, args...)
}

// Schema is the JSON schema of Program, offered to the model as tool
// parameters.
func Schema() map[string]any {
	str := map[string]any{"type": "string"}
	strs := map[string]any{"type": "array", "items": str}
	step := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"op":      map[string]any{"type": "string", "enum": []string{"filter", "group", "aggregate", "sort", "limit", "select"}},
			"column":  str,
			"in":      strs,
			"cmp":     map[string]any{"type": "string", "enum": []string{"eq", "ne", "gt", "gte", "lt", "lte"}},
			"value":   map[string]any{"type": "number"},
			"by":      strs,
			"func":    map[string]any{"type": "string", "enum": []string{"sum", "avg", "min", "max", "count"}},
			"as":      str,
			"desc":    map[string]any{"type": "boolean"},
			"n":       map[string]any{"type": "integer", "minimum": 0},
			"columns": strs,
		},
		"required": []string{"op"},
	}
	binding := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"name":  str,
			"from":  map[string]any{"type": "string", "description": fmt.Sprintf("%q, %q or an earlier binding", FromLong, FromWide)},
			"steps": map[string]any{"type": "array", "items": step},
		},
		"required": []string{"name", "steps"},
	}
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"bindings": map[string]any{"type": "array", "items": binding, "maxItems": MaxBindings},
		},
		"required": []string{"bindings"},
	}
}
