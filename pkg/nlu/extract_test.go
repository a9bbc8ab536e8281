// Copyright 2026 © The CEO Bot Authors
// SPDX-License-Identifier: Apache-2.0

package nlu

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestExtract(t *testing.T) {
	tests := []struct {
		text   string
		intent Intent
		slots  Slots
	}{
		{
			text:   "Which store had the highest Net Sales in Apr-23?",
			intent: IntentMaxMetric,
			slots:  Slots{SlotMetric: "Net Sales", SlotPeriod: "Apr-23", SlotOrder: OrderDesc},
		},
		{
			text:   "Compare AAA vs BBB Net Sales for FY24",
			intent: IntentCompare,
			slots:  Slots{SlotStore: "AAA, BBB", SlotMetric: "Net Sales", SlotFY: "FY24", SlotOrder: OrderDesc},
		},
		{
			text:   "Show the trend of Rent for HSR in FY 2023-24",
			intent: IntentTrend,
			slots:  Slots{SlotMetric: "Rent", SlotStore: "HSR", SlotFY: "FY24", SlotOrder: OrderDesc},
		},
		{
			text:   "Rank stores by EBITDA ascending",
			intent: IntentRank,
			slots:  Slots{SlotMetric: "Outlet EBITDA", SlotOrder: OrderAsc},
		},
		{
			text:   "What is the SSSG for KOR in FY 24-25?",
			intent: IntentSSSG,
			slots:  Slots{SlotStore: "KOR", SlotFY: "FY25", SlotOrder: OrderDesc},
		},
		{
			text:   "lowest COGS in Nov 2024",
			intent: IntentMaxMetric,
			slots:  Slots{SlotMetric: "COGS", SlotPeriod: "Nov-24", SlotOrder: OrderAsc},
		},
		{
			text:   "Top 5 stores by net sales in FY25",
			intent: IntentTopN,
			slots:  Slots{SlotMetric: "Net Sales", SlotLimit: "5", SlotFY: "FY25", SlotOrder: OrderDesc},
		},
		{
			text:   "What if CAM is capped at 2,00,000 per month?",
			intent: IntentScenario,
			slots:  Slots{SlotMetric: "CAM", SlotAmount: "200000", SlotOrder: OrderDesc},
		},
		{
			text:   "Split online vs offline sales for AAA",
			intent: IntentOnlineOffline,
			slots:  Slots{SlotMetric: "Net Sales", SlotStore: "AAA", SlotOrder: OrderDesc},
		},
		{
			text:   "Rent as % of sales for AAA in FY24",
			intent: IntentCostRatio,
			slots:  Slots{SlotMetric: "Rent, Net Sales", SlotStore: "AAA", SlotFY: "FY24", SlotOrder: OrderDesc},
		},
		{
			text:   "EBITDA margin for AAA",
			intent: IntentEBITDAMargin,
			slots:  Slots{SlotMetric: "Outlet EBITDA", SlotStore: "AAA", SlotOrder: OrderDesc},
		},
		{
			text:   "Vintage report FY 24-25",
			intent: IntentVintageReport,
			slots:  Slots{SlotFY: "FY25", SlotOrder: OrderDesc},
		},
		{
			text:   "net sales in 2024-11 and sales in 2021-Apr",
			intent: IntentUnknown,
			slots:  Slots{SlotMetric: "Net Sales", SlotPeriod: "Nov-24, Apr-21", SlotOrder: OrderDesc},
		},
		{
			text:   "What's the weather in Paris?",
			intent: IntentUnknown,
			slots:  Slots{SlotOrder: OrderDesc},
		},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			p := Extract(tt.text)
			if p.Intent != tt.intent {
				t.Errorf("expected intent %s, got %s", tt.intent, p.Intent)
			}
			if diff := cmp.Diff(tt.slots, p.Slots); diff != "" {
				t.Errorf("slots mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestExtractReservedWordsAreNotStores(t *testing.T) {
	p := Extract("GST and CAM for AAA under SSSG rules")
	if got := p.Slots[SlotStore]; got != "AAA" {
		t.Errorf("expected store AAA, got %q", got)
	}
	if got := p.Slots[SlotMetric]; got != "GST, CAM" {
		t.Errorf("expected metrics 'GST, CAM', got %q", got)
	}
}

func TestSlotsKey(t *testing.T) {
	apr := Extract("Which store had the highest Net Sales in Apr-23?").Slots
	may := Extract("Which store had the highest Net Sales in May-23?").Slots
	if apr.Key() == may.Key() {
		t.Errorf("expected different keys for different periods, got %q", apr.Key())
	}

	s := Slots{SlotPeriod: "Apr-23", SlotMetric: "Net Sales", SlotStore: ""}
	if got, want := s.Key(), "METRIC=Net Sales;PERIOD=Apr-23"; got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestExtractKnownStores(t *testing.T) {
	e := New(WithStores([]string{"AAA"}))
	p := e.Extract("Compare AAA and ZZZ")
	if got := p.Slots[SlotStore]; got != "AAA" {
		t.Errorf("expected only known store AAA, got %q", got)
	}
}

func TestExtractMatchesAreOrderedSpans(t *testing.T) {
	p := Extract("Compare AAA vs BBB")
	if len(p.Matches) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(p.Matches))
	}
	if p.Matches[0].Text != "AAA" || p.Matches[0].Start != 8 || p.Matches[1].Text != "BBB" {
		t.Errorf("unexpected matches: %+v", p.Matches)
	}
}

func TestRulesFirstMatchWins(t *testing.T) {
	tests := map[string]Intent{
		"compare the trend of sales":      IntentCompare,
		"trend of highest sales":          IntentTrend,
		"highest SSSG store":              IntentMaxMetric,
		"same-store sales growth for AAA": IntentSSSG,
		"ssg FY25":                        IntentSSSG,
		"total rent for AAA":              IntentTotal,
		"average net sales":               IntentAverage,
		"cohort revenue":                  IntentCohortRevenue,
	}
	for text, want := range tests {
		if got := Classify(Rules(), text); got != want {
			t.Errorf("%q: expected %s, got %s", text, want, got)
		}
	}
}

func TestRulesOrder(t *testing.T) {
	rules := Rules()
	want := []Intent{IntentCompare, IntentTrend, IntentRank, IntentMaxMetric, IntentSSSG}
	for i, intent := range want {
		if rules[i].Intent != intent {
			t.Errorf("rule %d: expected %s, got %s", i, intent, rules[i].Intent)
		}
	}
	rules[0] = Rule{}
	if Rules()[0].Intent != IntentCompare {
		t.Errorf("expected Rules to return a copy")
	}
}

func TestSplitList(t *testing.T) {
	tests := map[string][]string{
		"AAA vs BBB":       {"AAA", "BBB"},
		"AAA vs. BBB":      {"AAA", "BBB"},
		"AAA, BBB and CCC": {"AAA", "BBB", "CCC"},
		"Rent & CAM":       {"Rent", "CAM"},
		"Net Sales":        {"Net Sales"},
		"":                 nil,
	}
	for in, want := range tests {
		if diff := cmp.Diff(want, SplitList(in)); diff != "" {
			t.Errorf("SplitList(%q) mismatch (-want +got):\n%s", in, diff)
		}
	}
}
