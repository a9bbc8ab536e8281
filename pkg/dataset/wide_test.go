// Copyright 2026 © The CEO Bot Authors
// SPDX-License-Identifier: Apache-2.0

package dataset

import (
	"testing"
	"time"

	"github.com/qsrceo/ceobot/pkg/errors"
	"github.com/qsrceo/ceobot/pkg/metric"
)

func fullRow(p Period, store string, sales float64) []Observation {
	obs := []Observation{
		{Period: p, Store: store, Metric: metric.NetSales, Amount: sales},
		{Period: p, Store: store, Metric: metric.COGS, Amount: 30},
	}
	for _, c := range metric.OpexComponents {
		obs = append(obs, Observation{Period: p, Store: store, Metric: c, Amount: 5})
	}
	return obs
}

func TestPivotDerivesKPIs(t *testing.T) {
	apr := NewPeriod(2023, time.April)
	w, err := Pivot(fullRow(apr, "AAA", 100))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	gm, ok := w.Value(apr, "AAA", metric.GrossMargin)
	if !ok || gm != 70 {
		t.Errorf("expected gross margin 70, got %v (present=%v)", gm, ok)
	}
	ebitda, ok := w.Value(apr, "AAA", metric.OutletEBITDA)
	if !ok || ebitda != 35 {
		t.Errorf("expected outlet EBITDA 35, got %v (present=%v)", ebitda, ok)
	}
	if w.Columns[0] != metric.NetSales {
		t.Errorf("expected Net Sales first, got %q", w.Columns[0])
	}
}

func TestPivotMissingComponent(t *testing.T) {
	apr := NewPeriod(2023, time.April)
	obs := []Observation{
		{Period: apr, Store: "AAA", Metric: metric.NetSales, Amount: 100},
		{Period: apr, Store: "AAA", Metric: metric.Rent, Amount: 10},
	}

	w, err := Pivot(obs)
	if !errors.HasCode(err, errors.CodeMissingMetric) {
		t.Fatalf("expected MISSING_METRIC, got %v", err)
	}
	if w == nil {
		t.Fatal("expected partial wide view")
	}
	if w.HasColumn(metric.GrossMargin) || w.HasColumn(metric.OutletEBITDA) {
		t.Errorf("expected derived columns to be omitted, got %v", w.Columns)
	}
	if v, ok := w.Value(apr, "AAA", metric.Rent); !ok || v != 10 {
		t.Errorf("expected observed Rent 10 to be kept, got %v", v)
	}
	missing, _ := errors.AsBotError(err).Context["missing"].([]string)
	found := false
	for _, m := range missing {
		if m == metric.COGS {
			found = true
		}
		if m == metric.GrossMargin {
			t.Errorf("expected Gross Margin not to be reported as missing")
		}
	}
	if !found {
		t.Errorf("expected COGS among missing metrics, got %v", missing)
	}
}

func TestPivotRowWithoutComponent(t *testing.T) {
	apr := NewPeriod(2023, time.April)
	may := NewPeriod(2023, time.May)
	obs := fullRow(apr, "AAA", 100)
	obs = append(obs, Observation{Period: may, Store: "AAA", Metric: metric.NetSales, Amount: 80})

	w, err := Pivot(obs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := w.Value(may, "AAA", metric.GrossMargin); ok {
		t.Errorf("expected no gross margin for a row without COGS")
	}
	if len(w.Rows) != 2 || w.Rows[0].Period != apr {
		t.Errorf("expected rows ordered Apr, May; got %d rows", len(w.Rows))
	}
}

func TestPivotKeepsObservedDerived(t *testing.T) {
	apr := NewPeriod(2023, time.April)
	obs := []Observation{
		{Period: apr, Store: "AAA", Metric: metric.NetSales, Amount: 100},
		{Period: apr, Store: "AAA", Metric: metric.GrossMargin, Amount: 60},
		{Period: apr, Store: "AAA", Metric: metric.OutletEBITDA, Amount: 12},
	}
	w, err := Pivot(obs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v, _ := w.Value(apr, "AAA", metric.OutletEBITDA); v != 12 {
		t.Errorf("expected observed EBITDA 12, got %v", v)
	}
}

func TestWideRowDocument(t *testing.T) {
	apr := NewPeriod(2023, time.April)
	w, _ := Pivot([]Observation{
		{Period: apr, Store: "AAA", Metric: metric.Rent, Amount: 12.5},
		{Period: apr, Store: "AAA", Metric: metric.NetSales, Amount: 150},
	})
	want := "Store: AAA; Month: Apr-23; FY: FY 2023-24; Net Sales: 150; Rent: 12.5"
	if got := w.Rows[0].String(); got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
	o := Observation{Period: apr, Store: "AAA", FY: apr.FiscalYear(), Metric: metric.NetSales, Amount: 150}
	if got := o.String(); got != "Apr-23 | AAA | FY 2023-24 | Net Sales | 150" {
		t.Errorf("unexpected observation line %q", got)
	}
}
