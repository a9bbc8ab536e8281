// Copyright 2026 © The CEO Bot Authors
// SPDX-License-Identifier: Apache-2.0

// Package metric holds the canonical metric vocabulary of the sales dataset
// and resolves fuzzy user phrases to exact metric labels.
package metric

import (
	"regexp"
	"sort"
	"strings"
)

// Canonical metric labels.
const (
	NetSales             = "Net Sales"
	COGS                 = "COGS"
	LaborCost            = "Labor Cost"
	UtilityCost          = "Utility Cost"
	Rent                 = "Rent"
	CAM                  = "CAM"
	AggregatorCommission = "Aggregator Commission"
	Marketing            = "Marketing"
	OtherOpex            = "Other Opex"
	GST                  = "GST"
	GrossMargin          = "Gross Margin"
	OutletEBITDA         = "Outlet EBITDA"
)

// canonical is the fixed resolution order. Resolution is first-match, so
// this order is part of the contract.
var canonical = []string{
	NetSales,
	COGS,
	LaborCost,
	UtilityCost,
	Rent,
	CAM,
	AggregatorCommission,
	Marketing,
	OtherOpex,
	GST,
	GrossMargin,
	OutletEBITDA,
}

// OpexComponents are subtracted from Gross Margin to obtain Outlet EBITDA.
var OpexComponents = []string{
	LaborCost,
	UtilityCost,
	Rent,
	CAM,
	AggregatorCommission,
	Marketing,
	OtherOpex,
}

// Canonical returns the canonical vocabulary in resolution order.
func Canonical() []string {
	return append([]string(nil), canonical...)
}

// IsDerived reports whether m is computed from other metrics.
func IsDerived(m string) bool {
	return m == GrossMargin || m == OutletEBITDA
}

type alias struct {
	metric  string
	pattern *regexp.Regexp
}

// aliases maps raw dataset labels onto canonical ones. Evaluated in order.
var aliases = []alias{
	{NetSales, regexp.MustCompile(`(?i)^net\s*(sales?|revenue)$`)},
	{NetSales, regexp.MustCompile(`(?i)^(sales|revenue)$`)},
	{COGS, regexp.MustCompile(`(?i)^cogs\b`)},
	{COGS, regexp.MustCompile(`(?i)^(cost of goods( sold)?|food cost)$`)},
	{LaborCost, regexp.MustCompile(`(?i)^(store\s+)?labou?r(\s+cost)?$`)},
	{LaborCost, regexp.MustCompile(`(?i)^staff\s+cost$`)},
	{UtilityCost, regexp.MustCompile(`(?i)^utilit(y|ies)(\s+cost)?$`)},
	{Rent, regexp.MustCompile(`(?i)^rent(al)?$`)},
	{CAM, regexp.MustCompile(`(?i)^(cam|common area maintenance)$`)},
	{AggregatorCommission, regexp.MustCompile(`(?i)^aggregator\s+comm(ission)?\.?$`)},
	{Marketing, regexp.MustCompile(`(?i)^(marketing|advertis)`)},
	{OtherOpex, regexp.MustCompile(`(?i)^other\s+(opex|operating expenses|expenses)`)},
	{GST, regexp.MustCompile(`(?i)^gst$`)},
	{GrossMargin, regexp.MustCompile(`(?i)^gross\s+margin$`)},
	{OutletEBITDA, regexp.MustCompile(`(?i)^(outlet\s+)?ebitda$`)},
	{OutletEBITDA, regexp.MustCompile(`(?i)^contribution\s+margin$`)},
}

// Canonicalize maps a raw dataset label to its canonical form.
// Labels with no alias are returned trimmed but otherwise unchanged.
func Canonicalize(raw string) string {
	label := strings.Join(strings.Fields(raw), " ")
	for _, c := range canonical {
		if strings.EqualFold(label, c) {
			return c
		}
	}
	for _, a := range aliases {
		if a.pattern.MatchString(label) {
			return a.metric
		}
	}
	return label
}

// Order sorts labels into vocabulary order: canonical labels first in their
// fixed order, then any other labels alphabetically. Duplicates are removed.
func Order(labels []string) []string {
	rank := make(map[string]int, len(canonical))
	for i, c := range canonical {
		rank[c] = i
	}
	seen := make(map[string]bool, len(labels))
	out := make([]string, 0, len(labels))
	for _, l := range labels {
		if l == "" || seen[l] {
			continue
		}
		seen[l] = true
		out = append(out, l)
	}
	sort.SliceStable(out, func(i, j int) bool {
		ri, iok := rank[out[i]]
		rj, jok := rank[out[j]]
		switch {
		case iok && jok:
			return ri < rj
		case iok != jok:
			return iok
		default:
			return out[i] < out[j]
		}
	})
	return out
}
