// Copyright 2026 © The CEO Bot Authors
// SPDX-License-Identifier: Apache-2.0

package resolver

import (
	"fmt"
	"math"
	"sort"

	"github.com/qsrceo/ceobot/pkg/dataset"
	"github.com/qsrceo/ceobot/pkg/metric"
)

const defaultTopN = 5

// topN lists the N best (or worst, with an ascending cue) stores by a metric
// in the requested fiscal years, or the latest one.
func topN(q query) (*Result, error) {
	m, err := q.metric(metric.NetSales)
	if err != nil {
		return nil, err
	}
	s, err := q.scope()
	if err != nil {
		return nil, err
	}
	if len(s.periods) == 0 {
		if s.fys, err = yearsOrLatest(q, s); err != nil {
			return nil, err
		}
	}
	stores, sums := storeTotals(q.ds.Select(s.filter(m)))
	if len(stores) == 0 {
		return nil, emptyResult(m, s)
	}
	sortStores(stores, sums, q.ascending())
	n := q.limit(defaultTopN)
	if n > len(stores) {
		n = len(stores)
	}

	side := "Top"
	if q.ascending() {
		side = "Bottom"
	}
	t := NewTable(fmt.Sprintf("%s %d by %s", side, n, m), "Rank", "Store", m)
	for i, st := range stores[:n] {
		t.Append(i+1, st, sums[st])
	}
	return tables(fmt.Sprintf("%s %d stores by %s in %s: %s leads with %s",
		side, n, m, s, stores[0], format(sums[stores[0]])), t), nil
}

// total sums a metric per store. One store yields a scalar.
func total(q query) (*Result, error) {
	m, err := q.metric(metric.NetSales)
	if err != nil {
		return nil, err
	}
	s, err := q.scope()
	if err != nil {
		return nil, err
	}
	stores, sums := storeTotals(q.ds.Select(s.filter(m)))
	switch len(stores) {
	case 0:
		return nil, emptyResult(m, s)
	case 1:
		st := stores[0]
		v := round2(sums[st])
		return scalar("Total "+m, st, v, fmt.Sprintf("Total %s for %s in %s: %s", m, st, s, format(v))), nil
	}

	t := NewTable("Total "+m, "Store", m)
	var all float64
	for _, st := range stores {
		t.Append(st, round2(sums[st]))
		all += sums[st]
	}
	return tables(fmt.Sprintf("Total %s across %d stores in %s: %s", m, len(stores), s, format(all)), t), nil
}

// average is the mean monthly value of a metric per store, over the months in
// which the store reported it.
func average(q query) (*Result, error) {
	m, err := q.metric(metric.NetSales)
	if err != nil {
		return nil, err
	}
	s, err := q.scope()
	if err != nil {
		return nil, err
	}
	obs := q.ds.Select(s.filter(m))
	stores, sums := storeTotals(obs)
	months := make(map[string]int)
	for _, o := range obs {
		months[o.Store]++
	}
	switch len(stores) {
	case 0:
		return nil, emptyResult(m, s)
	case 1:
		st := stores[0]
		v := round2(sums[st] / float64(months[st]))
		return scalar("Average monthly "+m, st, v,
			fmt.Sprintf("Average monthly %s for %s in %s: %s", m, st, s, format(v))), nil
	}

	t := NewTable("Average monthly "+m, "Store", "Months", "Average "+m)
	for _, st := range stores {
		t.Append(st, months[st], round2(sums[st]/float64(months[st])))
	}
	return tables(fmt.Sprintf("Average monthly %s for %d stores in %s", m, len(stores), s), t), nil
}

// ScenarioRow is the effect of capping a cost head for one store.
type ScenarioRow struct {
	Store    string
	Original float64
	Capped   float64
	Savings  float64
}

// CapCost caps every monthly value of cost at limit and totals the result per
// store. Stores come back in code order.
func CapCost(obs []dataset.Observation, limit float64) []ScenarioRow {
	var rows []ScenarioRow
	index := make(map[string]int)
	for _, o := range obs {
		i, ok := index[o.Store]
		if !ok {
			i = len(rows)
			index[o.Store] = i
			rows = append(rows, ScenarioRow{Store: o.Store})
		}
		rows[i].Original += o.Amount
		rows[i].Capped += math.Min(o.Amount, limit)
	}
	for i := range rows {
		rows[i].Original = round2(rows[i].Original)
		rows[i].Capped = round2(rows[i].Capped)
		rows[i].Savings = round2(rows[i].Original - rows[i].Capped)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Store < rows[j].Store })
	return rows
}

// scenario answers "what if <cost> were capped at AMOUNT per month".
func scenario(q query) (*Result, error) {
	m, err := q.costMetric(metric.CAM)
	if err != nil {
		return nil, err
	}
	limit, err := q.amount()
	if err != nil {
		return nil, err
	}
	s, err := q.scope()
	if err != nil {
		return nil, err
	}
	rows := CapCost(q.ds.Select(s.filter(m)), limit)
	if len(rows) == 0 {
		return nil, emptyResult(m, s)
	}

	t := NewTable(fmt.Sprintf("%s capped at %s", m, format(limit)),
		"Store", "Original "+m, "Capped "+m, "Savings")
	var savings float64
	for _, r := range rows {
		t.Append(r.Store, r.Original, r.Capped, r.Savings)
		savings += r.Savings
	}
	return tables(fmt.Sprintf("Capping %s at %s per month in %s saves %s across %d stores",
		m, format(limit), s, format(savings), len(rows)), t), nil
}
