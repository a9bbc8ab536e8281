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

// GrowthRow is one same-store sales growth figure. Growth is nil for the
// first eligible period of a series and when the previous value is zero.
// Store is empty for company-level rows; Quarter is zero for yearly rows.
type GrowthRow struct {
	Store   string
	FY      dataset.FiscalYear
	Quarter int
	Sales   float64
	Growth  *float64
}

// SSSGReport holds every view of same-store sales growth.
type SSSGReport struct {
	Stores    []GrowthRow
	Company   []GrowthRow
	Quarterly []GrowthRow
	LatestFY  dataset.FiscalYear
	HasLatest bool
	Top       []GrowthRow
	Bottom    []GrowthRow
}

// GrowthFor returns store's yearly growth in fy.
func (r *SSSGReport) GrowthFor(store string, fy dataset.FiscalYear) (*float64, bool) {
	for _, row := range r.Stores {
		if row.Store == store && row.FY == fy {
			return row.Growth, true
		}
	}
	return nil, false
}

// OpenYears returns the fiscal year of each store's first positive sale.
func OpenYears(ds *dataset.Dataset) map[string]dataset.FiscalYear {
	first := make(map[string]dataset.Period)
	for _, o := range ds.Select(dataset.Filter{Metrics: []string{metric.NetSales}}) {
		if o.Amount <= 0 {
			continue
		}
		if p, ok := first[o.Store]; !ok || o.Period.Before(p) {
			first[o.Store] = o.Period
		}
	}
	out := make(map[string]dataset.FiscalYear, len(first))
	for s, p := range first {
		out[s] = p.FiscalYear()
	}
	return out
}

// ComputeSSSG computes same-store sales growth on Net Sales.
//
// A store's observations count only in fiscal years strictly after the year
// it opened, so an opening year never serves as a growth base. Growth is
// current over previous eligible period, in percent. When stores is not
// empty only those stores are included.
func ComputeSSSG(ds *dataset.Dataset, stores []string) *SSSGReport {
	open := OpenYears(ds)

	type yearKey struct {
		store string
		fy    dataset.FiscalYear
	}
	type quarterKey struct {
		store   string
		fy      dataset.FiscalYear
		quarter int
	}
	yearly := make(map[yearKey]float64)
	quarterly := make(map[quarterKey]float64)
	company := make(map[dataset.FiscalYear]float64)

	for _, o := range ds.Select(dataset.Filter{Stores: stores, Metrics: []string{metric.NetSales}}) {
		opened, ok := open[o.Store]
		if !ok || o.FY <= opened {
			continue
		}
		yearly[yearKey{o.Store, o.FY}] += o.Amount
		quarterly[quarterKey{o.Store, o.FY, o.Period.Quarter()}] += o.Amount
		company[o.FY] += o.Amount
	}

	r := &SSSGReport{}
	for k, v := range yearly {
		r.Stores = append(r.Stores, GrowthRow{Store: k.store, FY: k.fy, Sales: v})
	}
	for k, v := range quarterly {
		r.Quarterly = append(r.Quarterly, GrowthRow{Store: k.store, FY: k.fy, Quarter: k.quarter, Sales: v})
	}
	for fy, v := range company {
		r.Company = append(r.Company, GrowthRow{FY: fy, Sales: v})
	}
	chainGrowth(r.Stores)
	chainGrowth(r.Quarterly)
	chainGrowth(r.Company)

	for _, row := range r.Stores {
		if row.Growth != nil && (!r.HasLatest || row.FY > r.LatestFY) {
			r.LatestFY, r.HasLatest = row.FY, true
		}
	}
	if r.HasLatest {
		var latest []GrowthRow
		for _, row := range r.Stores {
			if row.FY == r.LatestFY && row.Growth != nil {
				latest = append(latest, row)
			}
		}
		sort.SliceStable(latest, func(i, j int) bool {
			if *latest[i].Growth == *latest[j].Growth {
				return latest[i].Store < latest[j].Store
			}
			return *latest[i].Growth > *latest[j].Growth
		})
		r.Top = head(latest, 5)
		reversed := make([]GrowthRow, len(latest))
		for i, row := range latest {
			reversed[len(latest)-1-i] = row
		}
		r.Bottom = head(reversed, 5)
	}
	return r
}

// chainGrowth sorts rows by store, FY and quarter, then sets each row's
// growth against the previous row of the same store.
func chainGrowth(rows []GrowthRow) {
	sort.Slice(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.Store != b.Store {
			return a.Store < b.Store
		}
		if a.FY != b.FY {
			return a.FY < b.FY
		}
		return a.Quarter < b.Quarter
	})
	for i := 1; i < len(rows); i++ {
		prev, cur := rows[i-1], &rows[i]
		if prev.Store != cur.Store || prev.Sales == 0 {
			continue
		}
		cur.Growth = ptr(round2((cur.Sales - prev.Sales) / prev.Sales * 100))
	}
}

func head(rows []GrowthRow, n int) []GrowthRow {
	if len(rows) > n {
		rows = rows[:n]
	}
	return append([]GrowthRow(nil), rows...)
}

func sssg(q query) (*Result, error) {
	s, err := q.scope()
	if err != nil {
		return nil, err
	}
	if !q.ds.HasMetric(metric.NetSales) {
		return nil, errors.Newf(errors.CodeMetricNotFound, "dataset has no %s", metric.NetSales)
	}
	r := ComputeSSSG(q.ds, s.stores)
	if len(r.Stores) == 0 {
		return nil, errors.Newf(errors.CodeEmptyResult, "no store has sales after its opening year").
			WithContext("scope", s.String())
	}

	inYears := func(fy dataset.FiscalYear) bool {
		if len(s.fys) == 0 {
			return true
		}
		for _, y := range s.fys {
			if y == fy {
				return true
			}
		}
		return false
	}

	stores := NewTable("Store SSSG", "Store", "FY", metric.NetSales, "SSSG %")
	for _, row := range r.Stores {
		if inYears(row.FY) {
			stores.Append(row.Store, row.FY.String(), row.Sales, optional(row.Growth))
		}
	}
	if stores.Len() == 0 {
		return nil, errors.Newf(errors.CodeEmptyResult, "no eligible sales in %s", s).WithContext("scope", s.String())
	}

	company := NewTable("Company SSSG", "FY", metric.NetSales, "SSSG %")
	for _, row := range r.Company {
		if inYears(row.FY) {
			company.Append(row.FY.String(), row.Sales, optional(row.Growth))
		}
	}

	quarters := NewTable("Quarterly SSSG", "Store", "FY", "Quarter", metric.NetSales, "SSSG %")
	for _, row := range r.Quarterly {
		if inYears(row.FY) {
			quarters.Append(row.Store, row.FY.String(), fmt.Sprintf("Q%d", row.Quarter), row.Sales, optional(row.Growth))
		}
	}

	out := []*Table{stores, company, quarters}
	summary := fmt.Sprintf("Same-store sales growth for %d store-years", stores.Len())
	if r.HasLatest {
		top := NewTable("Top 5 SSSG "+r.LatestFY.Short(), "Store", "SSSG %")
		for _, row := range r.Top {
			top.Append(row.Store, *row.Growth)
		}
		bottom := NewTable("Bottom 5 SSSG "+r.LatestFY.Short(), "Store", "SSSG %")
		for _, row := range r.Bottom {
			bottom.Append(row.Store, *row.Growth)
		}
		out = append(out, top, bottom)
		if len(s.stores) == 1 && len(s.fys) == 1 {
			if g, ok := r.GrowthFor(s.stores[0], s.fys[0]); ok && g != nil {
				summary = fmt.Sprintf("%s SSSG in %s: %s%%", s.stores[0], s.fys[0], format(*g))
			}
		}
	}
	return tables(summary, out...), nil
}
