// Copyright 2026 © The CEO Bot Authors
// SPDX-License-Identifier: Apache-2.0

package program

import (
	"github.com/qsrceo/ceobot/pkg/dataset"
)

// Frame is a rectangular intermediate or final value. Cells are string,
// float64 or nil.
type Frame struct {
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`

	grouping []string
}

// Len is the number of rows.
func (f *Frame) Len() int { return len(f.Rows) }

// Column returns the index of name, or -1.
func (f *Frame) Column(name string) int {
	for i, c := range f.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

func (f *Frame) clone() *Frame {
	rows := make([][]any, len(f.Rows))
	copy(rows, f.Rows)
	return &Frame{Columns: append([]string(nil), f.Columns...), Rows: rows}
}

// longFrame has one row per observation, derived KPIs included.
func longFrame(ds *dataset.Dataset) *Frame {
	f := &Frame{Columns: []string{"Month", "Store", "FY", "Metric", "Amount"}}
	for _, o := range ds.Select(dataset.Filter{}) {
		f.Rows = append(f.Rows, []any{o.Period.String(), o.Store, o.FY.String(), o.Metric, o.Amount})
	}
	return f
}

// wideFrame has one row per (Month, Store) with a column per metric.
func wideFrame(ds *dataset.Dataset) *Frame {
	metrics := ds.Metrics()
	f := &Frame{Columns: append([]string{"Month", "Store", "FY"}, metrics...)}
	w := ds.Wide()
	if w == nil {
		return f
	}
	for _, r := range w.Rows {
		row := []any{r.Period.String(), r.Store, r.Period.FiscalYear().String()}
		for _, m := range metrics {
			if v, ok := r.Value(m); ok {
				row = append(row, v)
			} else {
				row = append(row, nil)
			}
		}
		f.Rows = append(f.Rows, row)
	}
	return f
}
