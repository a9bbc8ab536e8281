// Copyright 2026 © The CEO Bot Authors
// SPDX-License-Identifier: Apache-2.0

package resolver

import (
	"fmt"
	"sort"

	"github.com/qsrceo/ceobot/pkg/dataset"
	"github.com/qsrceo/ceobot/pkg/errors"
	"github.com/qsrceo/ceobot/pkg/metric"
)

// ebitdaMargin joins Net Sales with Outlet EBITDA on (Period, Store).
// Rows without both values, or with zero sales, are dropped.
func ebitdaMargin(q query) (*Result, error) {
	s, err := q.scope()
	if err != nil {
		return nil, err
	}
	w := q.ds.Wide()
	if !w.HasColumn(metric.OutletEBITDA) {
		if werr := q.ds.WideErr(); werr != nil {
			return nil, werr
		}
		return nil, errors.Newf(errors.CodeMissingMetric, "dataset has no %s", metric.OutletEBITDA)
	}

	stores := toSet(s.stores)
	periods := make(map[dataset.Period]bool)
	for _, p := range s.periods {
		periods[p] = true
	}
	fys := make(map[dataset.FiscalYear]bool)
	for _, fy := range s.fys {
		fys[fy] = true
	}

	t := NewTable("EBITDA margin", "Month", "Store", metric.NetSales, metric.OutletEBITDA, "EBITDA Margin %")
	var sales, ebitda float64
	for _, r := range w.Rows {
		if len(stores) > 0 && !stores[r.Store] ||
			len(periods) > 0 && !periods[r.Period] ||
			len(fys) > 0 && !fys[r.Period.FiscalYear()] {
			continue
		}
		ns, ok1 := r.Value(metric.NetSales)
		e, ok2 := r.Value(metric.OutletEBITDA)
		if !ok1 || !ok2 || ns == 0 {
			continue
		}
		t.Append(r.Period.String(), r.Store, ns, e, round2(e/ns*100))
		sales += ns
		ebitda += e
	}
	if t.Len() == 0 {
		return nil, emptyResult("EBITDA margin", s)
	}
	return tables(fmt.Sprintf("Outlet EBITDA margin in %s: %s%% over %d store-months",
		s, format(ebitda/sales*100), t.Len()), t), nil
}

// SegmentStats is one row of the vintage report.
type SegmentStats struct {
	Segment           dataset.Segment
	Stores            int
	TotalSales        float64
	AvgMonthlyRevenue *float64
	AvgMargin         *float64
	MedianSSSG        *float64
}

// VintageReport summarizes each vintage segment for fy. Store counts include
// only segment members with Net Sales in fy.
func VintageReport(ds *dataset.Dataset, fy dataset.FiscalYear) []SegmentStats {
	growth := ComputeSSSG(ds, nil)
	hasEBITDA := ds.Wide().HasColumn(metric.OutletEBITDA)

	out := make([]SegmentStats, 0, len(dataset.Segments))
	for _, seg := range dataset.Segments {
		var members []string
		for _, v := range ds.Vintages() {
			if v.Segment == seg {
				members = append(members, v.Store)
			}
		}
		st := SegmentStats{Segment: seg}
		if len(members) > 0 {
			active, sums := storeTotals(ds.Select(dataset.Filter{
				Stores: members, Metrics: []string{metric.NetSales}, FiscalYears: []dataset.FiscalYear{fy},
			}))
			st.Stores = len(active)
			for _, a := range active {
				st.TotalSales += sums[a]
			}
			if st.Stores > 0 {
				st.AvgMonthlyRevenue = ptr(round2(st.TotalSales / float64(st.Stores*12)))
				if hasEBITDA {
					var margin float64
					for _, o := range ds.Select(dataset.Filter{
						Stores: active, Metrics: []string{metric.OutletEBITDA}, FiscalYears: []dataset.FiscalYear{fy},
					}) {
						margin += o.Amount
					}
					st.AvgMargin = ptr(round2(margin / float64(st.Stores)))
				}
			}
			var gs []float64
			for _, m := range members {
				if g, ok := growth.GrowthFor(m, fy); ok && g != nil {
					gs = append(gs, *g)
				}
			}
			st.MedianSSSG = median(gs)
		}
		out = append(out, st)
	}
	return out
}

func median(xs []float64) *float64 {
	if len(xs) == 0 {
		return nil
	}
	s := append([]float64(nil), xs...)
	sort.Float64s(s)
	n := len(s)
	if n%2 == 1 {
		return ptr(s[n/2])
	}
	return ptr(round2((s[n/2-1] + s[n/2]) / 2))
}

func vintageReport(q query) (*Result, error) {
	s, err := q.scope()
	if err != nil {
		return nil, err
	}
	years, err := yearsOrLatest(q, s)
	if err != nil {
		return nil, err
	}
	fy := years[0]

	stats := VintageReport(q.ds, fy)
	t := NewTable("Vintage report "+fy.String(), "Segment", "Stores", "Total Sales",
		"Avg Monthly Revenue / Store", "Avg Contribution Margin / Store", "Median SSSG %")
	active := 0
	for _, st := range stats {
		t.Append(string(st.Segment), st.Stores, st.TotalSales,
			optional(st.AvgMonthlyRevenue), optional(st.AvgMargin), optional(st.MedianSSSG))
		active += st.Stores
	}
	if active == 0 {
		return nil, emptyResult(metric.NetSales, scope{fys: years})
	}
	return tables(fmt.Sprintf("Vintage report for %s across %d stores", fy, active), t), nil
}

// SplitOnlineOffline allocates net sales between channels assuming all GST
// comes from offline sales at a flat 5%: offline = gst / 1.05. Both values
// are rounded to two decimals.
func SplitOnlineOffline(netSales, gst float64) (online, offline float64) {
	offline = gst / 1.05
	return round2(netSales - offline), round2(offline)
}

func onlineOffline(q query) (*Result, error) {
	s, err := q.scope()
	if err != nil {
		return nil, err
	}
	for _, m := range []string{metric.NetSales, metric.GST} {
		if !q.ds.HasMetric(m) {
			return nil, errors.Newf(errors.CodeMissingMetric, "dataset has no %s", m).WithContext("missing", []string{m})
		}
	}
	stores, sales := storeTotals(q.ds.Select(s.filter(metric.NetSales)))
	_, gst := storeTotals(q.ds.Select(s.filter(metric.GST)))
	if len(stores) == 0 {
		return nil, emptyResult(metric.NetSales, s)
	}

	t := NewTable("Online / offline split", "Store", metric.NetSales, metric.GST, "Offline Sales", "Online Sales")
	var totalOnline, totalOffline float64
	for _, st := range stores {
		online, offline := SplitOnlineOffline(sales[st], gst[st])
		t.Append(st, sales[st], gst[st], offline, online)
		totalOnline += online
		totalOffline += offline
	}
	return tables(fmt.Sprintf("Estimated split in %s: offline %s, online %s",
		s, format(totalOffline), format(totalOnline)), t), nil
}

// cohortRevenue totals Net Sales per vintage cohort per fiscal year.
func cohortRevenue(q query) (*Result, error) {
	s, err := q.scope()
	if err != nil {
		return nil, err
	}
	segmentOf := make(map[string]dataset.Segment)
	for _, v := range q.ds.Vintages() {
		segmentOf[v.Store] = v.Segment
	}
	segments := append(append([]dataset.Segment(nil), dataset.Segments...), dataset.SegmentUnknown)

	type key struct {
		fy  dataset.FiscalYear
		seg dataset.Segment
	}
	totals := make(map[key]float64)
	years := make(map[dataset.FiscalYear]bool)
	for _, o := range q.ds.Select(s.filter(metric.NetSales)) {
		totals[key{o.FY, segmentOf[o.Store]}] += o.Amount
		years[o.FY] = true
	}
	if len(years) == 0 {
		return nil, emptyResult(metric.NetSales, s)
	}
	fys := make([]dataset.FiscalYear, 0, len(years))
	for fy := range years {
		fys = append(fys, fy)
	}
	sort.Slice(fys, func(i, j int) bool { return fys[i] < fys[j] })

	columns := []string{"FY"}
	for _, seg := range segments {
		columns = append(columns, string(seg))
	}
	t := NewTable("Revenue by cohort", columns...)
	for _, fy := range fys {
		row := []any{fy.String()}
		for _, seg := range segments {
			row = append(row, round2(totals[key{fy, seg}]))
		}
		t.Append(row...)
	}
	return tables(fmt.Sprintf("Net Sales by vintage cohort for %d fiscal years", len(fys)), t), nil
}

// costRatio expresses a cost head as a percentage of Net Sales per store.
func costRatio(q query) (*Result, error) {
	m, err := q.costMetric(metric.Rent)
	if err != nil {
		return nil, err
	}
	s, err := q.scope()
	if err != nil {
		return nil, err
	}
	stores, costs := storeTotals(q.ds.Select(s.filter(m)))
	_, sales := storeTotals(q.ds.Select(s.filter(metric.NetSales)))
	if len(stores) == 0 {
		return nil, emptyResult(m, s)
	}

	col := m + " % of Sales"
	t := NewTable(col, "Store", m, metric.NetSales, col)
	for _, st := range stores {
		if sales[st] == 0 {
			if len(stores) == 1 {
				return nil, errors.Newf(errors.CodeDivisionUndefined, "%s has no %s in %s", st, metric.NetSales, s)
			}
			t.Append(st, costs[st], sales[st], nil)
			continue
		}
		t.Append(st, costs[st], sales[st], round2(costs[st]/sales[st]*100))
	}
	if len(stores) == 1 {
		st := stores[0]
		v := round2(costs[st] / sales[st] * 100)
		return scalar(col, st, v, fmt.Sprintf("%s %s in %s: %s%%", st, col, s, format(v))), nil
	}
	return tables(fmt.Sprintf("%s for %d stores in %s", col, len(stores), s), t), nil
}

func toSet(xs []string) map[string]bool {
	m := make(map[string]bool, len(xs))
	for _, x := range xs {
		m[x] = true
	}
	return m
}
