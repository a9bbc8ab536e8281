// Copyright 2026 © The CEO Bot Authors
// SPDX-License-Identifier: Apache-2.0

package resolver

import (
	stderrors "errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/qsrceo/ceobot/pkg/dataset"
	"github.com/qsrceo/ceobot/pkg/errors"
	"github.com/qsrceo/ceobot/pkg/metric"
	"github.com/qsrceo/ceobot/pkg/nlu"
)

func obs(year int, month time.Month, store, m string, amount float64) dataset.Observation {
	return dataset.Observation{Period: dataset.NewPeriod(year, month), Store: store, Metric: m, Amount: amount}
}

// fixture: AAA opens Apr-22, BBB opens Apr-23, reference date Apr-24.
func fixture() *dataset.Dataset {
	return dataset.New([]dataset.Observation{
		obs(2022, time.April, "AAA", metric.NetSales, 80),
		obs(2023, time.April, "AAA", metric.NetSales, 100),
		obs(2023, time.April, "BBB", metric.NetSales, 150),
		obs(2023, time.May, "AAA", metric.NetSales, 120),
		obs(2023, time.May, "BBB", metric.NetSales, 90),
		obs(2024, time.April, "AAA", metric.NetSales, 110),
		obs(2024, time.April, "BBB", metric.NetSales, 160),
		obs(2023, time.April, "AAA", metric.GST, 5.25),
		obs(2023, time.April, "BBB", metric.GST, 10.5),
		obs(2023, time.April, "AAA", metric.Rent, 10),
		obs(2023, time.April, "BBB", metric.Rent, 30),
		obs(2023, time.April, "AAA", metric.CAM, 12),
		obs(2023, time.May, "AAA", metric.CAM, 6),
		obs(2023, time.April, "BBB", metric.CAM, 9),
		obs(2023, time.April, "AAA", metric.OutletEBITDA, 20),
		obs(2023, time.April, "BBB", metric.OutletEBITDA, 15),
	}, dataset.WithReferenceDate(time.Date(2024, time.April, 1, 0, 0, 0, 0, time.UTC)))
}

func TestEndToEndMaxMetric(t *testing.T) {
	ds := dataset.New([]dataset.Observation{
		obs(2023, time.April, "AAA", metric.NetSales, 100),
		obs(2023, time.April, "BBB", metric.NetSales, 150),
	})

	p := nlu.Extract("which store had max net sales in Apr 2023")
	res, err := ResolveParse(p, ds)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Intent != nlu.IntentMaxMetric {
		t.Errorf("expected MAX_METRIC, got %s", res.Intent)
	}
	if !res.IsScalar() || *res.Scalar != 150 {
		t.Fatalf("expected scalar 150, got %+v", res)
	}
	if res.Entity != "BBB" {
		t.Errorf("expected BBB, got %q", res.Entity)
	}
	if res.Label != metric.NetSales {
		t.Errorf("expected label Net Sales, got %q", res.Label)
	}
}

func TestMaxMetricBoundsEveryRow(t *testing.T) {
	ds := fixture()
	for _, order := range []string{nlu.OrderDesc, nlu.OrderAsc} {
		res, err := Resolve(nlu.IntentMaxMetric, nlu.Slots{
			nlu.SlotMetric: "net sales", nlu.SlotPeriod: "May-23", nlu.SlotOrder: order,
		}, ds)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		for _, o := range ds.Select(dataset.Filter{
			Metrics: []string{metric.NetSales}, Periods: []dataset.Period{dataset.NewPeriod(2023, time.May)},
		}) {
			if order == nlu.OrderDesc && *res.Scalar < o.Amount {
				t.Errorf("max %v below row %v", *res.Scalar, o.Amount)
			}
			if order == nlu.OrderAsc && *res.Scalar > o.Amount {
				t.Errorf("min %v above row %v", *res.Scalar, o.Amount)
			}
		}
	}
}

func TestMaxMetricSummaryNamesAggregation(t *testing.T) {
	ds := dataset.New([]dataset.Observation{
		obs(2023, time.April, "AAA", metric.OutletEBITDA, -10),
		obs(2023, time.May, "AAA", metric.OutletEBITDA, 30),
		obs(2023, time.April, "BBB", metric.OutletEBITDA, 15),
	})
	tests := []struct {
		slots   nlu.Slots
		entity  string
		summary string
	}{
		{
			slots:   nlu.Slots{nlu.SlotMetric: "Outlet EBITDA", nlu.SlotFY: "FY24"},
			entity:  "AAA",
			summary: "AAA had the highest total Outlet EBITDA in",
		},
		{
			slots:   nlu.Slots{nlu.SlotMetric: "Outlet EBITDA", nlu.SlotPeriod: "Apr-23"},
			entity:  "BBB",
			summary: "BBB had the highest Outlet EBITDA in Apr-23",
		},
		{
			slots:   nlu.Slots{nlu.SlotMetric: "Outlet EBITDA", nlu.SlotFY: "FY24", nlu.SlotOrder: nlu.OrderAsc},
			entity:  "BBB",
			summary: "BBB had the lowest total Outlet EBITDA in",
		},
	}
	for _, tt := range tests {
		res, err := Resolve(nlu.IntentMaxMetric, tt.slots, ds)
		if err != nil {
			t.Fatalf("%v: unexpected error: %v", tt.slots, err)
		}
		if res.Entity != tt.entity {
			t.Errorf("%v: expected %s, got %s", tt.slots, tt.entity, res.Entity)
		}
		if !strings.HasPrefix(res.Summary, tt.summary) {
			t.Errorf("%v: expected summary to start with %q, got %q", tt.slots, tt.summary, res.Summary)
		}
	}
}

func TestMaxMetricNeedsPeriod(t *testing.T) {
	_, err := Resolve(nlu.IntentMaxMetric, nlu.Slots{nlu.SlotMetric: "Net Sales"}, fixture())
	if !stderrors.Is(err, ErrUnresolved) {
		t.Fatalf("expected unresolved, got %v", err)
	}
	if !errors.HasCode(err, errors.CodeSlotMissing) {
		t.Errorf("expected SLOT_MISSING, got %v", err)
	}
}

func TestTrendFiscalOrder(t *testing.T) {
	ds := dataset.New([]dataset.Observation{
		obs(2024, time.January, "AAA", metric.Rent, 3),
		obs(2023, time.December, "AAA", metric.Rent, 2),
		obs(2023, time.April, "AAA", metric.Rent, 1),
		obs(2024, time.April, "AAA", metric.Rent, 4),
	})
	res, err := Resolve(nlu.IntentTrend, nlu.Slots{nlu.SlotMetric: "rent", nlu.SlotStore: "AAA"}, ds)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var months []string
	for _, row := range res.Table().Rows {
		months = append(months, row[2].(string))
	}
	want := []string{"Apr-23", "Dec-23", "Jan-24", "Apr-24"}
	if diff := cmp.Diff(want, months); diff != "" {
		t.Errorf("trend order mismatch (-want +got):\n%s", diff)
	}
}

func TestCompare(t *testing.T) {
	ds := fixture()

	res, err := Resolve(nlu.IntentCompare, nlu.Slots{
		nlu.SlotStore: "AAA, BBB", nlu.SlotMetric: "Net Sales", nlu.SlotPeriod: "Apr-23",
	}, ds)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := [][]any{{"AAA", 100.0}, {"BBB", 150.0}}
	if diff := cmp.Diff(want, res.Table().Rows); diff != "" {
		t.Errorf("compare rows mismatch (-want +got):\n%s", diff)
	}

	res, err = Resolve(nlu.IntentCompare, nlu.Slots{
		nlu.SlotStore: "AAA", nlu.SlotMetric: "Net Sales, Rent", nlu.SlotPeriod: "Apr-23",
	}, ds)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want = [][]any{{metric.NetSales, 100.0}, {metric.Rent, 10.0}}
	if diff := cmp.Diff(want, res.Table().Rows); diff != "" {
		t.Errorf("metric compare rows mismatch (-want +got):\n%s", diff)
	}
}

func TestCompareErrors(t *testing.T) {
	tests := []struct {
		name  string
		slots nlu.Slots
		code  errors.ErrorCode
	}{
		{name: "one store one metric", slots: nlu.Slots{nlu.SlotStore: "AAA", nlu.SlotMetric: "Net Sales"}, code: errors.CodeSlotMissing},
		{name: "three stores", slots: nlu.Slots{nlu.SlotStore: "AAA, BBB, CCC", nlu.SlotMetric: "Net Sales"}, code: errors.CodeSlotMissing},
		{name: "unknown store", slots: nlu.Slots{nlu.SlotStore: "AAA, ZZZ", nlu.SlotMetric: "Net Sales"}, code: errors.CodeEmptyResult},
		{name: "unknown metric", slots: nlu.Slots{nlu.SlotStore: "AAA, BBB", nlu.SlotMetric: "footfall"}, code: errors.CodeMetricNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Resolve(nlu.IntentCompare, tt.slots, fixture())
			if !stderrors.Is(err, ErrUnresolved) {
				t.Fatalf("expected unresolved, got %v", err)
			}
			if !errors.HasCode(err, tt.code) {
				t.Errorf("expected %s, got %v", tt.code, err)
			}
			var ue *UnresolvedError
			if !stderrors.As(err, &ue) || ue.Intent != nlu.IntentCompare {
				t.Errorf("expected UnresolvedError for COMPARE, got %v", err)
			}
		})
	}
}

func TestRank(t *testing.T) {
	res, err := Resolve(nlu.IntentRank, nlu.Slots{
		nlu.SlotMetric: "Net Sales", nlu.SlotFY: "FY24", nlu.SlotOrder: nlu.OrderAsc,
	}, fixture())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := [][]any{{1, "AAA", 220.0}, {2, "BBB", 240.0}}
	if diff := cmp.Diff(want, res.Table().Rows); diff != "" {
		t.Errorf("rank rows mismatch (-want +got):\n%s", diff)
	}
}

func TestSSSG(t *testing.T) {
	r := ComputeSSSG(fixture(), nil)

	if _, ok := r.GrowthFor("AAA", 2022); ok {
		t.Errorf("expected opening year of AAA to be excluded")
	}
	g, ok := r.GrowthFor("AAA", 2024)
	if !ok || g == nil || *g != -50 {
		t.Errorf("expected AAA FY24-25 growth -50, got %v", g)
	}
	g, ok = r.GrowthFor("BBB", 2024)
	if !ok || g != nil {
		t.Errorf("expected BBB first eligible year without growth, got %v (%v)", g, ok)
	}
	if _, ok := r.GrowthFor("BBB", 2023); ok {
		t.Errorf("expected opening year of BBB to be excluded")
	}
	if !r.HasLatest || r.LatestFY != 2024 {
		t.Errorf("expected latest FY 2024, got %v", r.LatestFY)
	}
	if len(r.Top) != 1 || r.Top[0].Store != "AAA" {
		t.Errorf("expected AAA as the only ranked store, got %+v", r.Top)
	}
}

func TestSSSGZeroBase(t *testing.T) {
	ds := dataset.New([]dataset.Observation{
		obs(2022, time.April, "CCC", metric.NetSales, 10),
		obs(2023, time.April, "CCC", metric.NetSales, 0),
		obs(2024, time.April, "CCC", metric.NetSales, 50),
	})
	r := ComputeSSSG(ds, nil)
	g, ok := r.GrowthFor("CCC", 2024)
	if !ok {
		t.Fatalf("expected a CCC row for FY 2024-25")
	}
	if g != nil {
		t.Errorf("expected absent growth on zero base, got %v", *g)
	}
}

func TestSSSGHandler(t *testing.T) {
	res, err := Resolve(nlu.IntentSSSG, nlu.Slots{nlu.SlotStore: "AAA", nlu.SlotFY: "FY25"}, fixture())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Tables) == 0 {
		t.Fatalf("expected tables, got %+v", res)
	}
	rows := res.Table().Rows
	if len(rows) != 1 || rows[0][3] != -50.0 {
		t.Errorf("expected one AAA row with -50, got %v", rows)
	}
}

func TestSplitOnlineOffline(t *testing.T) {
	online, offline := SplitOnlineOffline(100, 5.25)
	if offline != 5.0 {
		t.Errorf("expected offline 5.0, got %v", offline)
	}
	if online != 95.0 {
		t.Errorf("expected online 95.0, got %v", online)
	}
}

func TestOnlineOfflineHandler(t *testing.T) {
	res, err := Resolve(nlu.IntentOnlineOffline, nlu.Slots{nlu.SlotStore: "AAA", nlu.SlotPeriod: "Apr-23"}, fixture())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := [][]any{{"AAA", 100.0, 5.25, 5.0, 95.0}}
	if diff := cmp.Diff(want, res.Table().Rows); diff != "" {
		t.Errorf("split rows mismatch (-want +got):\n%s", diff)
	}

	noGST := dataset.New([]dataset.Observation{obs(2023, time.April, "AAA", metric.NetSales, 100)})
	_, err = Resolve(nlu.IntentOnlineOffline, nil, noGST)
	if !errors.HasCode(err, errors.CodeMissingMetric) {
		t.Errorf("expected MISSING_METRIC without GST, got %v", err)
	}
}

func TestEBITDAMargin(t *testing.T) {
	res, err := Resolve(nlu.IntentEBITDAMargin, nlu.Slots{nlu.SlotStore: "AAA"}, fixture())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := [][]any{{"Apr-23", "AAA", 100.0, 20.0, 20.0}}
	if diff := cmp.Diff(want, res.Table().Rows); diff != "" {
		t.Errorf("margin rows mismatch (-want +got):\n%s", diff)
	}
}

func TestVintageReport(t *testing.T) {
	stats := VintageReport(fixture(), 2024)
	if len(stats) != len(dataset.Segments) {
		t.Fatalf("expected %d segments, got %d", len(dataset.Segments), len(stats))
	}

	byName := make(map[dataset.Segment]SegmentStats)
	for _, st := range stats {
		byName[st.Segment] = st
	}
	if n := byName[dataset.SegmentNew].Stores; n != 1 {
		t.Errorf("expected BBB alone in New, got %d stores", n)
	}
	emerging := byName[dataset.SegmentEmerging]
	if emerging.Stores != 1 || emerging.TotalSales != 110 {
		t.Errorf("expected AAA alone in Emerging with 110, got %+v", emerging)
	}
	if emerging.MedianSSSG == nil || *emerging.MedianSSSG != -50 {
		t.Errorf("expected Emerging median SSSG -50, got %v", emerging.MedianSSSG)
	}
	if byName[dataset.SegmentNew].MedianSSSG != nil {
		t.Errorf("expected no SSSG for a store in its first comparable year")
	}
	if byName[dataset.SegmentEstablished].Stores != 0 {
		t.Errorf("expected no Established stores")
	}
}

func TestCostRatio(t *testing.T) {
	res, err := Resolve(nlu.IntentCostRatio, nlu.Slots{
		nlu.SlotMetric: "Rent, Net Sales", nlu.SlotStore: "BBB", nlu.SlotPeriod: "Apr-23",
	}, fixture())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.IsScalar() || *res.Scalar != 20 {
		t.Errorf("expected 20%%, got %+v", res)
	}

	ds := dataset.New([]dataset.Observation{obs(2023, time.April, "DDD", metric.Rent, 5)})
	_, err = Resolve(nlu.IntentCostRatio, nlu.Slots{nlu.SlotStore: "DDD"}, ds)
	if !errors.HasCode(err, errors.CodeDivisionUndefined) {
		t.Errorf("expected DIVISION_UNDEFINED, got %v", err)
	}
}

func TestTopN(t *testing.T) {
	res, err := Resolve(nlu.IntentTopN, nlu.Slots{nlu.SlotLimit: "1", nlu.SlotFY: "FY24"}, fixture())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := [][]any{{1, "BBB", 240.0}}
	if diff := cmp.Diff(want, res.Table().Rows); diff != "" {
		t.Errorf("top rows mismatch (-want +got):\n%s", diff)
	}

	res, err = Resolve(nlu.IntentTopN, nlu.Slots{nlu.SlotOrder: nlu.OrderAsc}, fixture())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := res.Table().Rows[0][1]; got != "AAA" {
		t.Errorf("expected AAA at the bottom of the latest year, got %v", got)
	}
}

func TestTotalAndAverage(t *testing.T) {
	ds := fixture()

	res, err := Resolve(nlu.IntentTotal, nlu.Slots{nlu.SlotStore: "AAA", nlu.SlotFY: "FY24"}, ds)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.IsScalar() || *res.Scalar != 220 {
		t.Errorf("expected total 220, got %+v", res)
	}

	res, err = Resolve(nlu.IntentAverage, nlu.Slots{nlu.SlotStore: "AAA", nlu.SlotFY: "FY24"}, ds)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.IsScalar() || *res.Scalar != 110 {
		t.Errorf("expected average 110, got %+v", res)
	}

	res, err = Resolve(nlu.IntentTotal, nlu.Slots{nlu.SlotFY: "FY24"}, ds)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.IsScalar() || res.Table().Len() != 2 {
		t.Errorf("expected a two-store table, got %+v", res)
	}
}

func TestScenario(t *testing.T) {
	res, err := Resolve(nlu.IntentScenario, nlu.Slots{nlu.SlotMetric: "CAM", nlu.SlotAmount: "10"}, fixture())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := [][]any{
		{"AAA", 18.0, 16.0, 2.0},
		{"BBB", 9.0, 9.0, 0.0},
	}
	if diff := cmp.Diff(want, res.Table().Rows); diff != "" {
		t.Errorf("scenario rows mismatch (-want +got):\n%s", diff)
	}

	_, err = Resolve(nlu.IntentScenario, nlu.Slots{nlu.SlotMetric: "CAM"}, fixture())
	if !errors.HasCode(err, errors.CodeSlotMissing) {
		t.Errorf("expected SLOT_MISSING without AMOUNT, got %v", err)
	}
}

func TestCohortRevenue(t *testing.T) {
	res, err := Resolve(nlu.IntentCohortRevenue, nil, fixture())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"FY", "New", "Emerging", "Established", "Unknown"}
	if diff := cmp.Diff(want, res.Table().Columns); diff != "" {
		t.Errorf("cohort columns mismatch (-want +got):\n%s", diff)
	}
	// FY 2024-25: BBB (New) 160, AAA (Emerging) 110.
	last := res.Table().Rows[len(res.Table().Rows)-1]
	if diff := cmp.Diff([]any{"FY 2024-25", 160.0, 110.0, 0.0, 0.0}, last); diff != "" {
		t.Errorf("cohort row mismatch (-want +got):\n%s", diff)
	}
}

func TestUnresolved(t *testing.T) {
	tests := []struct {
		name   string
		intent nlu.Intent
		slots  nlu.Slots
		code   errors.ErrorCode
	}{
		{name: "unknown intent", intent: nlu.IntentUnknown, code: errors.CodeInvalidInput},
		{name: "metric not found", intent: nlu.IntentMaxMetric, slots: nlu.Slots{nlu.SlotMetric: "footfall", nlu.SlotPeriod: "Apr-23"}, code: errors.CodeMetricNotFound},
		{name: "empty filter", intent: nlu.IntentMaxMetric, slots: nlu.Slots{nlu.SlotMetric: "Net Sales", nlu.SlotPeriod: "Jan-20"}, code: errors.CodeEmptyResult},
		{name: "trend without store", intent: nlu.IntentTrend, slots: nlu.Slots{nlu.SlotMetric: "Rent"}, code: errors.CodeSlotMissing},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Resolve(tt.intent, tt.slots, fixture())
			if res != nil {
				t.Errorf("expected no result, got %+v", res)
			}
			if !stderrors.Is(err, ErrUnresolved) {
				t.Fatalf("expected unresolved, got %v", err)
			}
			if !errors.HasCode(err, tt.code) {
				t.Errorf("expected %s, got %v", tt.code, err)
			}
		})
	}
}

func TestWeatherQuestionUnresolved(t *testing.T) {
	p := nlu.Extract("What's the weather in Paris?")
	_, err := ResolveParse(p, fixture())
	if !stderrors.Is(err, ErrUnresolved) {
		t.Errorf("expected unresolved, got %v", err)
	}
}

func TestResolveNilDataset(t *testing.T) {
	_, err := Resolve(nlu.IntentTotal, nil, nil)
	if !errors.HasCode(err, errors.CodeInvalidInput) {
		t.Errorf("expected INVALID_INPUT, got %v", err)
	}
}

func TestIntentsCoverRules(t *testing.T) {
	have := make(map[nlu.Intent]bool)
	for _, i := range Intents() {
		have[i] = true
	}
	for _, r := range nlu.Rules() {
		if !have[r.Intent] {
			t.Errorf("no handler for %s", r.Intent)
		}
	}
}
