// Copyright 2026 © The CEO Bot Authors
// SPDX-License-Identifier: Apache-2.0

package dataset

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/qsrceo/ceobot/pkg/errors"
	"github.com/qsrceo/ceobot/pkg/metric"
)

// WideRow holds every metric value of one (Period, Store).
type WideRow struct {
	Period Period
	Store  string
	Values map[string]float64
}

// Value returns the value of m in the row.
func (r WideRow) Value(m string) (float64, bool) {
	v, ok := r.Values[m]
	return v, ok
}

// String renders the row as a retrieval document:
// "Store: AAA; Month: Apr-23; FY: FY 2023-24; Net Sales: 150; ...".
func (r WideRow) String() string {
	names := make([]string, 0, len(r.Values))
	for m := range r.Values {
		names = append(names, m)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Store: %s; Month: %s; FY: %s", r.Store, r.Period, r.Period.FiscalYear())
	for _, m := range metric.Order(names) {
		fmt.Fprintf(&b, "; %s: %s", m, strconv.FormatFloat(r.Values[m], 'f', -1, 64))
	}
	return b.String()
}

// Wide is the pivoted view of a dataset: one row per (Period, Store), one
// column per metric. Rows are ordered by period, then store.
type Wide struct {
	Columns []string
	Rows    []WideRow
	index   map[rowKey]int
}

type rowKey struct {
	period Period
	store  string
}

// Value looks up a single cell.
func (w *Wide) Value(p Period, store, m string) (float64, bool) {
	if w == nil {
		return 0, false
	}
	i, ok := w.index[rowKey{p, store}]
	if !ok {
		return 0, false
	}
	return w.Rows[i].Value(m)
}

// HasColumn reports whether m is a column of the view.
func (w *Wide) HasColumn(m string) bool {
	if w == nil {
		return false
	}
	for _, c := range w.Columns {
		if c == m {
			return true
		}
	}
	return false
}

// Pivot builds the wide view of obs and derives Gross Margin and Outlet EBITDA.
//
// A derived column is only computed when the metric was not observed directly.
// If a component needed for a derived column is absent from the whole pivot,
// a MISSING_METRIC error is returned along with the view, which then lacks
// that column. Rows missing a component for their (Period, Store) get no
// derived value.
func Pivot(obs []Observation) (*Wide, error) {
	w := &Wide{index: make(map[rowKey]int)}
	observed := make(map[string]bool)

	for _, o := range obs {
		key := rowKey{o.Period, o.Store}
		i, ok := w.index[key]
		if !ok {
			i = len(w.Rows)
			w.index[key] = i
			w.Rows = append(w.Rows, WideRow{Period: o.Period, Store: o.Store, Values: make(map[string]float64)})
		}
		w.Rows[i].Values[o.Metric] += o.Amount
		observed[o.Metric] = true
	}

	sort.SliceStable(w.Rows, func(i, j int) bool {
		a, b := w.Rows[i], w.Rows[j]
		if a.Period != b.Period {
			return a.Period.Before(b.Period)
		}
		return a.Store < b.Store
	})
	for i, r := range w.Rows {
		w.index[rowKey{r.Period, r.Store}] = i
	}

	var missing []string
	columns := make(map[string]bool, len(observed)+2)
	for m := range observed {
		columns[m] = true
	}

	if !observed[metric.GrossMargin] {
		if absent := absentFrom(columns, metric.NetSales, metric.COGS); len(absent) > 0 {
			missing = append(missing, absent...)
		} else {
			for _, r := range w.Rows {
				sales, ok1 := r.Values[metric.NetSales]
				cogs, ok2 := r.Values[metric.COGS]
				if ok1 && ok2 {
					r.Values[metric.GrossMargin] = sales - cogs
				}
			}
			columns[metric.GrossMargin] = true
		}
	}

	if !observed[metric.OutletEBITDA] {
		need := append([]string{metric.GrossMargin}, metric.OpexComponents...)
		if absent := absentFrom(columns, need...); len(absent) > 0 {
			for _, a := range absent {
				// An underivable Gross Margin has already reported its own components.
				if a != metric.GrossMargin {
					missing = appendUnique(missing, a)
				}
			}
		} else {
			for _, r := range w.Rows {
				gm, ok := r.Values[metric.GrossMargin]
				if !ok {
					continue
				}
				opex, complete := 0.0, true
				for _, c := range metric.OpexComponents {
					v, ok := r.Values[c]
					if !ok {
						complete = false
						break
					}
					opex += v
				}
				if complete {
					r.Values[metric.OutletEBITDA] = gm - opex
				}
			}
			columns[metric.OutletEBITDA] = true
		}
	}

	names := make([]string, 0, len(columns))
	for c := range columns {
		names = append(names, c)
	}
	w.Columns = metric.Order(names)

	if len(missing) > 0 {
		return w, errors.New(errors.CodeMissingMetric,
			"cannot derive KPIs, missing metrics: "+strings.Join(missing, ", "), nil).
			WithContext("missing", missing)
	}
	return w, nil
}

func absentFrom(columns map[string]bool, names ...string) []string {
	var out []string
	for _, n := range names {
		if !columns[n] {
			out = append(out, n)
		}
	}
	return out
}

func appendUnique(dst []string, name string) []string {
	for _, d := range dst {
		if d == name {
			return dst
		}
	}
	return append(dst, name)
}
