// Copyright 2026 © The CEO Bot Authors
// SPDX-License-Identifier: Apache-2.0

package metric

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/qsrceo/ceobot/pkg/errors"
)

func TestResolve(t *testing.T) {
	vocab := Canonical()
	tests := []struct {
		phrase   string
		expected string
	}{
		{"net sales", NetSales},
		{`net\s*sales`, NetSales},
		{"NET SALES", NetSales},
		{"labor", LaborCost},
		{"ebitda", OutletEBITDA},
		{"margin", GrossMargin},
		{"cost", COGS},
		{"rent", Rent},
		{"gst", GST},
		{"aggregator (", AggregatorCommission},
	}

	for _, tt := range tests {
		t.Run(tt.phrase, func(t *testing.T) {
			got, err := Resolve(vocab, tt.phrase)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestResolveDeterministic(t *testing.T) {
	vocab := Canonical()
	first, err := Resolve(vocab, "cost")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := 0; i < 50; i++ {
		got, _ := Resolve(vocab, "cost")
		if got != first {
			t.Fatalf("expected stable %q, got %q on call %d", first, got, i)
		}
	}
}

func TestResolveNotFound(t *testing.T) {
	vocab := []string{NetSales, Rent}
	for _, phrase := range []string{"footfall", "", "   ", "()"} {
		_, err := Resolve(vocab, phrase)
		if !errors.HasCode(err, errors.CodeMetricNotFound) {
			t.Errorf("phrase %q: expected METRIC_NOT_FOUND, got %v", phrase, err)
			continue
		}
		got, _ := errors.AsBotError(err).Context["vocabulary"].([]string)
		if diff := cmp.Diff(vocab, got); diff != "" {
			t.Errorf("vocabulary mismatch (-want +got):\n%s", diff)
		}
	}
}

func TestCanonicalize(t *testing.T) {
	tests := map[string]string{
		"Net Sales":                 NetSales,
		"net  sales":                NetSales,
		"COGS (food +packaging)":    COGS,
		"store Labor Cost":          LaborCost,
		"Labor Cost":                LaborCost,
		"Utility Cost":              UtilityCost,
		"Aggregator commission":     AggregatorCommission,
		"Marketing & advertisement": Marketing,
		"Other opex expenses":       OtherOpex,
		"EBITDA":                    OutletEBITDA,
		"Contribution Margin":       OutletEBITDA,
		"Footfall":                  "Footfall",
	}
	for raw, want := range tests {
		if got := Canonicalize(raw); got != want {
			t.Errorf("Canonicalize(%q): expected %q, got %q", raw, want, got)
		}
	}
}

func TestOrder(t *testing.T) {
	got := Order([]string{"Footfall", Rent, NetSales, "Delivery Fees", Rent, GST})
	want := []string{NetSales, Rent, GST, "Delivery Fees", "Footfall"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}
}
