// Copyright 2026 © The CEO Bot Authors
// SPDX-License-Identifier: Apache-2.0

package resolver

import (
	"fmt"
	"sort"
	"strings"

	"github.com/qsrceo/ceobot/pkg/dataset"
	"github.com/qsrceo/ceobot/pkg/errors"
	"github.com/qsrceo/ceobot/pkg/nlu"
)

// maxMetric finds the store with the highest (or, for ascending cues, the
// lowest) value of a metric in a month, or summed over a fiscal year. The
// summary says "total" when stores are compared on sums.
func maxMetric(q query) (*Result, error) {
	m, err := q.metric("")
	if err != nil {
		return nil, err
	}
	s, err := q.scope()
	if err != nil {
		return nil, err
	}
	if !s.timed() {
		return nil, missing(nlu.SlotPeriod)
	}

	stores, sums := storeTotals(q.ds.Select(s.filter(m)))
	if len(stores) == 0 {
		return nil, emptyResult(m, s)
	}

	best := stores[0]
	for _, st := range stores[1:] {
		if q.ascending() && sums[st] < sums[best] || !q.ascending() && sums[st] > sums[best] {
			best = st
		}
	}

	word := "highest"
	if q.ascending() {
		word = "lowest"
	}
	// Anything but a single month compares per-store totals, not rows.
	if len(s.periods) != 1 || len(s.fys) > 0 {
		word += " total"
	}
	return scalar(m, best, sums[best],
		fmt.Sprintf("%s had the %s %s in %s: %s", best, word, m, s, format(sums[best]))), nil
}

// trend returns a store's series ordered by fiscal year, then fiscal month.
func trend(q query) (*Result, error) {
	m, err := q.metric("")
	if err != nil {
		return nil, err
	}
	s, err := q.scope()
	if err != nil {
		return nil, err
	}
	if len(s.stores) == 0 {
		return nil, missing(nlu.SlotStore)
	}
	s.periods = nil

	obs := q.ds.Select(s.filter(m))
	if len(obs) == 0 {
		return nil, emptyResult(m, s)
	}
	sort.SliceStable(obs, func(i, j int) bool {
		a, b := obs[i], obs[j]
		if a.Store != b.Store {
			return a.Store < b.Store
		}
		if a.FY != b.FY {
			return a.FY < b.FY
		}
		return a.Period.FiscalIndex() < b.Period.FiscalIndex()
	})

	t := NewTable(m+" trend", "Store", "FY", "Month", m)
	for _, o := range obs {
		t.Append(o.Store, o.FY.String(), o.Period.String(), o.Amount)
	}
	return tables(fmt.Sprintf("%s trend for %s (%d months)", m, strings.Join(s.stores, ", "), t.Len()), t), nil
}

// compare puts exactly two stores side by side for one metric, or one
// store's two metrics side by side.
func compare(q query) (*Result, error) {
	s, err := q.scope()
	if err != nil {
		return nil, err
	}
	ms, err := q.metrics()
	if err != nil {
		return nil, err
	}

	switch {
	case len(s.stores) == 2:
		if len(ms) == 0 {
			return nil, missing(nlu.SlotMetric)
		}
		m := ms[0]
		_, sums := storeTotals(q.ds.Select(s.filter(m)))
		t := NewTable("Comparison", "Store", m)
		for _, st := range s.stores {
			v, ok := sums[st]
			if !ok {
				return nil, emptyResult(m+" for "+st, s)
			}
			t.Append(st, v)
		}
		a, b := sums[s.stores[0]], sums[s.stores[1]]
		return tables(fmt.Sprintf("%s in %s: %s %s vs %s %s", m, s, s.stores[0], format(a), s.stores[1], format(b)), t), nil

	case len(s.stores) == 1 && len(ms) == 2:
		t := NewTable("Comparison", "Metric", "Value")
		var parts []string
		for _, m := range ms {
			obs := q.ds.Select(s.filter(m))
			if len(obs) == 0 {
				return nil, emptyResult(m+" for "+s.stores[0], s)
			}
			sum := 0.0
			for _, o := range obs {
				sum += o.Amount
			}
			t.Append(m, sum)
			parts = append(parts, m+" "+format(sum))
		}
		return tables(fmt.Sprintf("%s in %s: %s", s.stores[0], s, strings.Join(parts, " vs ")), t), nil
	}

	return nil, errors.Newf(errors.CodeSlotMissing,
		"compare needs exactly two stores, or one store and two metrics (got %d stores, %d metrics)", len(s.stores), len(ms)).
		WithContext("slot", string(nlu.SlotStore))
}

// rank orders every store by a metric.
func rank(q query) (*Result, error) {
	m, err := q.metric("")
	if err != nil {
		return nil, err
	}
	s, err := q.scope()
	if err != nil {
		return nil, err
	}
	stores, sums := storeTotals(q.ds.Select(s.filter(m)))
	if len(stores) == 0 {
		return nil, emptyResult(m, s)
	}
	sortStores(stores, sums, q.ascending())

	t := NewTable(m+" ranking", "Rank", "Store", m)
	for i, st := range stores {
		t.Append(i+1, st, sums[st])
	}
	dir := "descending"
	if q.ascending() {
		dir = "ascending"
	}
	return tables(fmt.Sprintf("%d stores ranked by %s in %s (%s)", len(stores), m, s, dir), t), nil
}

// sortStores sorts by value, ties broken by store code.
func sortStores(stores []string, sums map[string]float64, ascending bool) {
	sort.SliceStable(stores, func(i, j int) bool {
		a, b := sums[stores[i]], sums[stores[j]]
		if a == b {
			return stores[i] < stores[j]
		}
		if ascending {
			return a < b
		}
		return a > b
	})
}

// yearsOrLatest returns the requested fiscal years, or the latest one.
func yearsOrLatest(q query, s scope) ([]dataset.FiscalYear, error) {
	if len(s.fys) > 0 {
		return s.fys, nil
	}
	latest, ok := q.ds.LatestFiscalYear()
	if !ok {
		return nil, errors.Newf(errors.CodeEmptyResult, "dataset is empty")
	}
	return []dataset.FiscalYear{latest}, nil
}
