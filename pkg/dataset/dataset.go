// Copyright 2026 © The CEO Bot Authors
// SPDX-License-Identifier: Apache-2.0

// Package dataset holds the normalized long-format sales dataset, its wide
// pivot with derived KPIs and the store vintage table.
//
// A Dataset is immutable once built and safe for concurrent reads. Reloading
// produces a new Dataset; derived state (vintage, wide view) is never carried
// across.
package dataset

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/qsrceo/ceobot/pkg/metric"
)

const netSales = metric.NetSales

// Observation is one numeric fact: the amount of Metric for Store in Period.
type Observation struct {
	Period Period     `json:"period"`
	Store  string     `json:"store"`
	FY     FiscalYear `json:"fy"`
	Metric string     `json:"metric"`
	Amount float64    `json:"amount"`
}

// String renders o as one pipe-separated line: "Apr-23 | AAA | FY 2023-24 | Net Sales | 150".
func (o Observation) String() string {
	return fmt.Sprintf("%s | %s | %s | %s | %g", o.Period, o.Store, o.FY, o.Metric, o.Amount)
}

// LoadReport summarizes what a loader kept and dropped.
type LoadReport struct {
	Source     string `json:"source"`
	Rows       int    `json:"rows"`
	Kept       int    `json:"kept"`
	BadPeriod  int    `json:"bad_period"`
	BadAmount  int    `json:"bad_amount"`
	Incomplete int    `json:"incomplete"`
	FYMismatch int    `json:"fy_mismatch"`
	Duplicates int    `json:"duplicates"`
}

// Dropped is the number of source rows that did not become observations.
func (r LoadReport) Dropped() int {
	return r.BadPeriod + r.BadAmount + r.Incomplete
}

// Dataset is the immutable, loaded sales dataset.
type Dataset struct {
	obs      []Observation
	derived  []Observation
	metrics  []string
	stores   []string
	fys      []FiscalYear
	periods  []Period
	wide     *Wide
	wideErr  error
	vintages map[string]Vintage
	refDate  time.Time
	report   LoadReport
	logger   *slog.Logger
	digest   string
}

// Option configures a Dataset.
type Option func(*Dataset)

// WithReferenceDate sets the "now" used for vintage ages. Defaults to time.Now.
func WithReferenceDate(t time.Time) Option {
	return func(d *Dataset) {
		if !t.IsZero() {
			d.refDate = t
		}
	}
}

// WithSource records where the observations came from.
func WithSource(src string) Option {
	return func(d *Dataset) {
		d.report.Source = src
	}
}

// WithLogger sets the logger used for load warnings.
func WithLogger(l *slog.Logger) Option {
	return func(d *Dataset) {
		if l != nil {
			d.logger = l
		}
	}
}

func withReport(r LoadReport) Option {
	return func(d *Dataset) {
		src := d.report.Source
		d.report = r
		if r.Source == "" {
			d.report.Source = src
		}
	}
}

// New builds a Dataset from obs. Duplicate (Period, Store, Metric) keys are
// summed. FY is always recomputed from Period.
func New(obs []Observation, opts ...Option) *Dataset {
	d := &Dataset{
		refDate: time.Now(),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}

	type key struct {
		period Period
		store  string
		metric string
	}
	index := make(map[key]int, len(obs))
	d.obs = make([]Observation, 0, len(obs))
	dups := 0
	for _, o := range obs {
		o.FY = o.Period.FiscalYear()
		k := key{o.Period, o.Store, o.Metric}
		if i, ok := index[k]; ok {
			d.obs[i].Amount += o.Amount
			dups++
			continue
		}
		index[k] = len(d.obs)
		d.obs = append(d.obs, o)
	}
	d.report.Duplicates += dups
	if d.report.Kept == 0 {
		d.report.Kept = len(d.obs)
	}
	if dups > 0 {
		d.logger.Warn("duplicate observations summed", "source", d.report.Source, "duplicates", dups)
	}
	if n := d.report.Dropped(); n > 0 {
		d.logger.Warn("dataset rows dropped",
			"source", d.report.Source,
			"bad_period", d.report.BadPeriod,
			"bad_amount", d.report.BadAmount,
			"incomplete", d.report.Incomplete)
	}

	storeSet := make(map[string]bool)
	fySet := make(map[FiscalYear]bool)
	periodSet := make(map[Period]bool)
	var metricNames []string
	for _, o := range d.obs {
		storeSet[o.Store] = true
		fySet[o.FY] = true
		periodSet[o.Period] = true
		metricNames = append(metricNames, o.Metric)
	}
	for s := range storeSet {
		d.stores = append(d.stores, s)
	}
	sort.Strings(d.stores)
	for f := range fySet {
		d.fys = append(d.fys, f)
	}
	sort.Slice(d.fys, func(i, j int) bool { return d.fys[i] < d.fys[j] })
	for p := range periodSet {
		d.periods = append(d.periods, p)
	}
	sort.Slice(d.periods, func(i, j int) bool { return d.periods[i].Before(d.periods[j]) })

	d.wide, d.wideErr = Pivot(d.obs)
	if d.wideErr != nil {
		d.logger.Warn("derived KPIs unavailable", "source", d.report.Source, "error", d.wideErr)
	}
	observed := make(map[string]bool)
	for _, m := range metricNames {
		observed[m] = true
	}
	for _, c := range d.wide.Columns {
		if observed[c] {
			continue
		}
		metricNames = append(metricNames, c)
		for _, r := range d.wide.Rows {
			if v, ok := r.Values[c]; ok {
				d.derived = append(d.derived, Observation{
					Period: r.Period, Store: r.Store, FY: r.Period.FiscalYear(), Metric: c, Amount: v,
				})
			}
		}
	}
	d.metrics = metric.Order(metricNames)
	d.vintages = computeVintages(d.obs, d.stores, PeriodOf(d.refDate))
	d.digest = fingerprint(d.obs, PeriodOf(d.refDate))
	return d
}

func fingerprint(obs []Observation, ref Period) string {
	h := sha256.New()
	fmt.Fprintf(h, "ref %s\n", ref)
	for _, o := range obs {
		fmt.Fprintln(h, o.String())
	}
	return hex.EncodeToString(h.Sum(nil)[:12])
}

// Observations returns a copy of the loaded observations in load order.
func (d *Dataset) Observations() []Observation {
	return append([]Observation(nil), d.obs...)
}

// Len is the number of loaded observations.
func (d *Dataset) Len() int { return len(d.obs) }

// Metrics is the resolution vocabulary: observed and derived metrics in
// canonical order.
func (d *Dataset) Metrics() []string { return append([]string(nil), d.metrics...) }

// HasMetric reports whether m is observed or derived.
func (d *Dataset) HasMetric(m string) bool {
	for _, x := range d.metrics {
		if x == m {
			return true
		}
	}
	return false
}

// Stores returns the sorted store codes.
func (d *Dataset) Stores() []string { return append([]string(nil), d.stores...) }

// HasStore reports whether s is a known store code.
func (d *Dataset) HasStore(s string) bool {
	i := sort.SearchStrings(d.stores, s)
	return i < len(d.stores) && d.stores[i] == s
}

// FiscalYears returns the fiscal years present, ascending.
func (d *Dataset) FiscalYears() []FiscalYear { return append([]FiscalYear(nil), d.fys...) }

// LatestFiscalYear returns the most recent fiscal year present.
func (d *Dataset) LatestFiscalYear() (FiscalYear, bool) {
	if len(d.fys) == 0 {
		return 0, false
	}
	return d.fys[len(d.fys)-1], true
}

// Periods returns the periods present, chronologically.
func (d *Dataset) Periods() []Period { return append([]Period(nil), d.periods...) }

// Wide returns the pivoted view. It may lack derived columns, see WideErr.
func (d *Dataset) Wide() *Wide { return d.wide }

// WideErr is the MISSING_METRIC error produced while deriving KPIs, if any.
func (d *Dataset) WideErr() error { return d.wideErr }

// Vintage returns the vintage of store.
func (d *Dataset) Vintage(store string) (Vintage, bool) {
	v, ok := d.vintages[store]
	return v, ok
}

// Vintages returns every store's vintage ordered by store code.
func (d *Dataset) Vintages() []Vintage {
	out := make([]Vintage, 0, len(d.stores))
	for _, s := range d.stores {
		out = append(out, d.vintages[s])
	}
	return out
}

// ReferenceDate is the "now" vintages were computed against.
func (d *Dataset) ReferenceDate() time.Time { return d.refDate }

// Fingerprint identifies the contents of d: two datasets with the same
// observations and reference month share it, across reloads and restarts.
func (d *Dataset) Fingerprint() string { return d.digest }

// Report describes the load that produced d.
func (d *Dataset) Report() LoadReport { return d.report }

// Filter selects observations. Empty fields match everything.
type Filter struct {
	Stores      []string
	Metrics     []string
	Periods     []Period
	FiscalYears []FiscalYear
}

// Select returns observed and derived observations matching f, ordered by
// period, then store, then metric.
func (d *Dataset) Select(f Filter) []Observation {
	stores := toSet(f.Stores)
	metrics := toSet(f.Metrics)
	periods := make(map[Period]bool, len(f.Periods))
	for _, p := range f.Periods {
		periods[p] = true
	}
	fys := make(map[FiscalYear]bool, len(f.FiscalYears))
	for _, y := range f.FiscalYears {
		fys[y] = true
	}

	var out []Observation
	for _, set := range [][]Observation{d.obs, d.derived} {
		for _, o := range set {
			if len(stores) > 0 && !stores[o.Store] {
				continue
			}
			if len(metrics) > 0 && !metrics[o.Metric] {
				continue
			}
			if len(periods) > 0 && !periods[o.Period] {
				continue
			}
			if len(fys) > 0 && !fys[o.FY] {
				continue
			}
			out = append(out, o)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Period != b.Period {
			return a.Period.Before(b.Period)
		}
		if a.Store != b.Store {
			return a.Store < b.Store
		}
		return a.Metric < b.Metric
	})
	return out
}

func toSet(xs []string) map[string]bool {
	m := make(map[string]bool, len(xs))
	for _, x := range xs {
		m[x] = true
	}
	return m
}
