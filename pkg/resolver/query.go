// Copyright 2026 © The CEO Bot Authors
// SPDX-License-Identifier: Apache-2.0

package resolver

import (
	"sort"
	"strconv"
	"strings"

	"github.com/qsrceo/ceobot/pkg/dataset"
	"github.com/qsrceo/ceobot/pkg/errors"
	"github.com/qsrceo/ceobot/pkg/metric"
	"github.com/qsrceo/ceobot/pkg/nlu"
)

// query gives handlers typed access to the slots of one question.
type query struct {
	slots nlu.Slots
	ds    *dataset.Dataset
}

func missing(slot nlu.Slot) error {
	return errors.Newf(errors.CodeSlotMissing, "%s slot required", slot).WithContext("slot", string(slot))
}

// metrics resolves every METRIC item against the dataset vocabulary.
func (q query) metrics() ([]string, error) {
	var out []string
	for _, phrase := range q.slots.List(nlu.SlotMetric) {
		m, err := metric.Resolve(q.ds.Metrics(), phrase)
		if err != nil {
			return nil, err
		}
		if !contains(out, m) {
			out = append(out, m)
		}
	}
	return out, nil
}

// metric returns the first METRIC, or def when the slot is empty.
// An empty def makes the slot required.
func (q query) metric(def string) (string, error) {
	ms, err := q.metrics()
	if err != nil {
		return "", err
	}
	if len(ms) > 0 {
		return ms[0], nil
	}
	if def == "" {
		return "", missing(nlu.SlotMetric)
	}
	if !q.ds.HasMetric(def) {
		return "", errors.Newf(errors.CodeMetricNotFound, "dataset has no %s", def).
			WithContext("vocabulary", q.ds.Metrics())
	}
	return def, nil
}

// costMetric returns the first METRIC other than Net Sales, or def.
func (q query) costMetric(def string) (string, error) {
	ms, err := q.metrics()
	if err != nil {
		return "", err
	}
	for _, m := range ms {
		if m != metric.NetSales {
			return m, nil
		}
	}
	if !q.ds.HasMetric(def) {
		return "", errors.Newf(errors.CodeMetricNotFound, "dataset has no %s", def).
			WithContext("vocabulary", q.ds.Metrics())
	}
	return def, nil
}

func (q query) stores() []string {
	return q.slots.List(nlu.SlotStore)
}

func (q query) periods() ([]dataset.Period, error) {
	var out []dataset.Period
	for _, raw := range q.slots.List(nlu.SlotPeriod) {
		p, err := dataset.ParsePeriod(raw)
		if err != nil {
			return nil, errors.New(errors.CodeInvalidInput, "bad PERIOD "+raw, err)
		}
		out = append(out, p)
	}
	return out, nil
}

func (q query) fiscalYears() ([]dataset.FiscalYear, error) {
	var out []dataset.FiscalYear
	for _, raw := range q.slots.List(nlu.SlotFY) {
		fy, err := dataset.ParseFiscalYear(raw)
		if err != nil {
			return nil, errors.New(errors.CodeInvalidInput, "bad FY "+raw, err)
		}
		out = append(out, fy)
	}
	return out, nil
}

func (q query) ascending() bool {
	return q.slots[nlu.SlotOrder] == nlu.OrderAsc
}

func (q query) limit(def int) int {
	if n, err := strconv.Atoi(q.slots[nlu.SlotLimit]); err == nil && n > 0 {
		return n
	}
	return def
}

func (q query) amount() (float64, error) {
	raw, ok := q.slots.Get(nlu.SlotAmount)
	if !ok {
		return 0, missing(nlu.SlotAmount)
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(raw, ",", ""), 64)
	if err != nil {
		return 0, errors.New(errors.CodeInvalidInput, "bad AMOUNT "+raw, err)
	}
	return v, nil
}

// scope is the store/time restriction of a question.
type scope struct {
	stores  []string
	periods []dataset.Period
	fys     []dataset.FiscalYear
}

func (q query) scope() (scope, error) {
	periods, err := q.periods()
	if err != nil {
		return scope{}, err
	}
	fys, err := q.fiscalYears()
	if err != nil {
		return scope{}, err
	}
	return scope{stores: q.stores(), periods: periods, fys: fys}, nil
}

func (s scope) filter(metrics ...string) dataset.Filter {
	return dataset.Filter{Stores: s.stores, Metrics: metrics, Periods: s.periods, FiscalYears: s.fys}
}

// timed reports whether the scope restricts time at all.
func (s scope) timed() bool {
	return len(s.periods) > 0 || len(s.fys) > 0
}

func (s scope) String() string {
	var parts []string
	for _, p := range s.periods {
		parts = append(parts, p.String())
	}
	for _, fy := range s.fys {
		parts = append(parts, fy.String())
	}
	if len(parts) == 0 {
		return "all periods"
	}
	return strings.Join(parts, ", ")
}

// storeTotals sums obs per store and returns the stores in code order.
func storeTotals(obs []dataset.Observation) ([]string, map[string]float64) {
	sums := make(map[string]float64)
	for _, o := range obs {
		sums[o.Store] += o.Amount
	}
	stores := make([]string, 0, len(sums))
	for s := range sums {
		stores = append(stores, s)
	}
	sort.Strings(stores)
	return stores, sums
}

func emptyResult(what string, s scope) error {
	return errors.Newf(errors.CodeEmptyResult, "no %s data for %s", what, s).WithContext("scope", s.String())
}

func contains(xs []string, x string) bool {
	for _, v := range xs {
		if v == x {
			return true
		}
	}
	return false
}
