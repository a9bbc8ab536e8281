// Copyright 2026 © The CEO Bot Authors
// SPDX-License-Identifier: Apache-2.0

package program

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/qsrceo/ceobot/pkg/dataset"
	"github.com/qsrceo/ceobot/pkg/errors"
	"github.com/qsrceo/ceobot/pkg/metric"
)

// Run validates p and evaluates it against ds. It returns the frame bound to
// "result". Any fault is an EXECUTION_ERROR.
func Run(ds *dataset.Dataset, p *Program) (out *Frame, err error) {
	defer func() {
		if r := recover(); r != nil {
			out = nil
			err = fail("program faulted: %v", r)
		}
	}()

	if ds == nil {
		return nil, fail("no dataset loaded")
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}

	env := make(map[string]*Frame)
	base := func(name string) *Frame {
		if f, ok := env[name]; ok {
			return f
		}
		switch name {
		case FromLong:
			env[name] = longFrame(ds)
		case FromWide:
			env[name] = wideFrame(ds)
		}
		return env[name]
	}

	for _, b := range p.Bindings {
		from := b.From
		if from == "" {
			from = FromLong
		}
		f := base(from).clone()
		for i, s := range b.Steps {
			if f, err = apply(f, s); err != nil {
				return nil, errors.New(errors.CodeExecution,
					fmt.Sprintf("binding %q step %d (%s)", b.Name, i+1, s.Op), err)
			}
		}
		if f.grouping != nil {
			return nil, fail("binding %q groups without aggregating", b.Name)
		}
		env[b.Name] = f
	}
	return env[Output], nil
}

func apply(f *Frame, s Step) (*Frame, error) {
	switch s.Op {
	case OpFilter:
		return filter(f, s)
	case OpGroup:
		return group(f, s)
	case OpAggregate:
		return aggregate(f, s)
	case OpSort:
		return sortFrame(f, s)
	case OpLimit:
		return limit(f, s)
	case OpSelect:
		return project(f, s)
	}
	return nil, fail("op %q is not allowed", s.Op)
}

func column(f *Frame, name string) (int, error) {
	i := f.Column(name)
	if i < 0 {
		return -1, fail("unknown column %q (have %s)", name, strings.Join(f.Columns, ", "))
	}
	return i, nil
}

// normalize maps a user value to the canonical cell text of column.
func normalize(column, v string) string {
	switch column {
	case "Month":
		if p, err := dataset.ParsePeriod(v); err == nil {
			return p.String()
		}
	case "FY":
		if fy, err := dataset.ParseFiscalYear(v); err == nil {
			return fy.String()
		}
	case "Metric":
		return metric.Canonicalize(v)
	}
	return v
}

func filter(f *Frame, s Step) (*Frame, error) {
	i, err := column(f, s.Column)
	if err != nil {
		return nil, err
	}

	var keep func(cell any) bool
	switch {
	case len(s.In) > 0:
		want := make([]string, len(s.In))
		for k, v := range s.In {
			want[k] = normalize(s.Column, strings.TrimSpace(v))
		}
		keep = func(cell any) bool {
			if cell == nil {
				return false
			}
			text := fmt.Sprint(cell)
			for _, w := range want {
				if strings.EqualFold(text, w) {
					return true
				}
			}
			return false
		}
	case s.Cmp != "" && s.Value != nil:
		cmp, err := comparator(s.Cmp)
		if err != nil {
			return nil, err
		}
		keep = func(cell any) bool {
			v, ok := cell.(float64)
			return ok && cmp(v, *s.Value)
		}
	default:
		return nil, fail("filter on %q needs in, or cmp and value", s.Column)
	}

	out := &Frame{Columns: f.Columns, Rows: [][]any{}, grouping: f.grouping}
	for _, row := range f.Rows {
		if keep(row[i]) {
			out.Rows = append(out.Rows, row)
		}
	}
	return out, nil
}

func comparator(op string) (func(a, b float64) bool, error) {
	switch op {
	case "eq":
		return func(a, b float64) bool { return a == b }, nil
	case "ne":
		return func(a, b float64) bool { return a != b }, nil
	case "gt":
		return func(a, b float64) bool { return a > b }, nil
	case "gte":
		return func(a, b float64) bool { return a >= b }, nil
	case "lt":
		return func(a, b float64) bool { return a < b }, nil
	case "lte":
		return func(a, b float64) bool { return a <= b }, nil
	}
	return nil, fail("unknown comparison %q", op)
}

func group(f *Frame, s Step) (*Frame, error) {
	if len(s.By) == 0 {
		return nil, fail("group needs by")
	}
	for _, c := range s.By {
		if _, err := column(f, c); err != nil {
			return nil, err
		}
	}
	out := &Frame{Columns: f.Columns, Rows: f.Rows, grouping: append([]string(nil), s.By...)}
	return out, nil
}

type reducer struct {
	sum      float64
	min, max float64
	n, rows  int
}

func (r *reducer) add(cell any) {
	r.rows++
	v, ok := cell.(float64)
	if !ok {
		return
	}
	if r.n == 0 || v < r.min {
		r.min = v
	}
	if r.n == 0 || v > r.max {
		r.max = v
	}
	r.sum += v
	r.n++
}

func (r *reducer) result(fn string) any {
	if fn == "count" {
		return float64(r.rows)
	}
	if r.n == 0 {
		return nil
	}
	switch fn {
	case "sum":
		return r.sum
	case "avg":
		return r.sum / float64(r.n)
	case "min":
		return r.min
	default:
		return r.max
	}
}

func aggregate(f *Frame, s Step) (*Frame, error) {
	switch s.Func {
	case "sum", "avg", "min", "max", "count":
	default:
		return nil, fail("unknown aggregate %q", s.Func)
	}
	vi := -1
	if s.Func != "count" || s.Column != "" {
		var err error
		if vi, err = column(f, s.Column); err != nil {
			return nil, err
		}
	}
	name := s.As
	if name == "" {
		name = s.Column
		if s.Func == "count" {
			name = "count"
		}
	}

	keys := make([]int, len(f.grouping))
	for k, c := range f.grouping {
		keys[k], _ = column(f, c)
	}

	type bucket struct {
		key []any
		r   reducer
	}
	var buckets []*bucket
	index := make(map[string]*bucket)
	for _, row := range f.Rows {
		key := make([]any, len(keys))
		parts := make([]string, len(keys))
		for k, i := range keys {
			key[k] = row[i]
			parts[k] = fmt.Sprint(row[i])
		}
		id := strings.Join(parts, "\x00")
		b, ok := index[id]
		if !ok {
			b = &bucket{key: key}
			index[id] = b
			buckets = append(buckets, b)
		}
		if vi >= 0 {
			b.r.add(row[vi])
		} else {
			b.r.add(nil)
		}
	}
	if len(keys) == 0 && len(buckets) == 0 {
		buckets = append(buckets, &bucket{})
	}

	out := &Frame{Columns: append(append([]string(nil), f.grouping...), name), Rows: [][]any{}}
	for _, b := range buckets {
		out.Rows = append(out.Rows, append(append([]any(nil), b.key...), b.r.result(s.Func)))
	}
	return out, nil
}

func sortFrame(f *Frame, s Step) (*Frame, error) {
	i, err := column(f, s.Column)
	if err != nil {
		return nil, err
	}
	out := f.clone()
	out.grouping = f.grouping
	sort.SliceStable(out.Rows, func(a, b int) bool {
		x, y := out.Rows[a][i], out.Rows[b][i]
		if x == nil || y == nil {
			return y == nil && x != nil
		}
		if s.Desc {
			return less(s.Column, y, x)
		}
		return less(s.Column, x, y)
	})
	return out, nil
}

func less(column string, a, b any) bool {
	if x, ok := a.(float64); ok {
		if y, ok := b.(float64); ok {
			return x < y
		}
	}
	as, bs := fmt.Sprint(a), fmt.Sprint(b)
	if column == "Month" {
		pa, errA := dataset.ParsePeriod(as)
		pb, errB := dataset.ParsePeriod(bs)
		if errA == nil && errB == nil {
			return pa.Before(pb)
		}
	}
	return as < bs
}

func limit(f *Frame, s Step) (*Frame, error) {
	if s.N < 0 {
		return nil, fail("limit must not be negative")
	}
	out := &Frame{Columns: f.Columns, Rows: f.Rows, grouping: f.grouping}
	if s.N > 0 && s.N < len(f.Rows) {
		out.Rows = f.Rows[:s.N]
	}
	return out, nil
}

func project(f *Frame, s Step) (*Frame, error) {
	if len(s.Columns) == 0 {
		return nil, fail("select needs columns")
	}
	idx := make([]int, len(s.Columns))
	for k, c := range s.Columns {
		i, err := column(f, c)
		if err != nil {
			return nil, err
		}
		idx[k] = i
	}
	out := &Frame{Columns: append([]string(nil), s.Columns...), Rows: make([][]any, 0, len(f.Rows))}
	for _, row := range f.Rows {
		r := make([]any, len(idx))
		for k, i := range idx {
			r[k] = row[i]
		}
		out.Rows = append(out.Rows, r)
	}
	return out, nil
}

// Round rounds every float cell of f to two decimals in place.
func (f *Frame) Round() *Frame {
	for _, row := range f.Rows {
		for i, c := range row {
			if v, ok := c.(float64); ok {
				row[i] = math.Round(v*100) / 100
			}
		}
	}
	return f
}
