// Copyright 2026 © The CEO Bot Authors
// SPDX-License-Identifier: Apache-2.0

// Package nlu turns a free-text business question into an intent and a set
// of slots using an ordered table of patterns.
//
// Patterns claim non-overlapping spans in table order: metrics first, then
// fiscal years, calendar periods and store codes, so a span taken by an
// earlier pattern is never reinterpreted by a later one.
package nlu

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/qsrceo/ceobot/pkg/dataset"
	"github.com/qsrceo/ceobot/pkg/metric"
)

// Match is one extracted span.
type Match struct {
	Slot  Slot   `json:"slot"`
	Text  string `json:"text"`
	Value string `json:"value"`
	Start int    `json:"start"`
	End   int    `json:"end"`
}

// Parse is the result of extracting a question.
type Parse struct {
	Text    string  `json:"text"`
	Intent  Intent  `json:"intent"`
	Slots   Slots   `json:"slots"`
	Matches []Match `json:"matches,omitempty"`
}

// pattern is one row of the extraction table. normalize returns the slot
// value for a match, or false to reject it. group selects the submatch whose
// span is claimed; 0 claims the whole match.
type pattern struct {
	slot      Slot
	re        *regexp.Regexp
	group     int
	normalize func(text string, groups []string) (string, bool)
}

const months = `jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec`

// reservedWords are upper-case tokens that are never store codes.
var reservedWords = map[string]bool{
	"SSSG": true, "SSG": true, "GST": true, "CAM": true, "COGS": true,
	"FY": true, "TOP": true, "AND": true, "THE": true, "FOR": true,
	"MAX": true, "MIN": true, "QSR": true, "CEO": true, "YOY": true,
	"MOM": true, "KPI": true, "KPIS": true, "WHAT": true, "WHO": true,
	"HOW": true, "SHOW": true, "LIST": true, "ALL": true, "VS": true,
}

func metricPattern(canonical string, alternatives ...string) pattern {
	return pattern{
		slot: SlotMetric,
		re:   regexp.MustCompile(`(?i)\b(?:` + strings.Join(alternatives, "|") + `)\b`),
		normalize: func(string, []string) (string, bool) {
			return canonical, true
		},
	}
}

func periodValue(text string, _ []string) (string, bool) {
	p, err := dataset.ParsePeriod(text)
	if err != nil {
		return "", false
	}
	return p.String(), true
}

func fyValue(text string, _ []string) (string, bool) {
	fy, err := dataset.ParseFiscalYear(text)
	if err != nil {
		return "", false
	}
	return fy.Short(), true
}

func numberValue(text string, _ []string) (string, bool) {
	n := strings.ReplaceAll(text, ",", "")
	if _, err := strconv.ParseFloat(n, 64); err != nil {
		return "", false
	}
	return n, true
}

// metricPatterns cover canonical labels and the aliases seen in source sheets.
var metricPatterns = []pattern{
	metricPattern(metric.OutletEBITDA, `outlet\s+ebitda`, `contribution\s+margin`, `ebitda`),
	metricPattern(metric.GrossMargin, `gross\s+margin`),
	metricPattern(metric.NetSales, `net\s+sales`, `net\s+revenue`, `revenue`, `sales`),
	metricPattern(metric.COGS, `cogs`, `cost\s+of\s+goods(?:\s+sold)?`, `food\s+cost`),
	metricPattern(metric.LaborCost, `(?:store\s+)?labou?r(?:\s+cost)?`, `staff\s+cost`),
	metricPattern(metric.UtilityCost, `utilit(?:y|ies)(?:\s+cost)?`),
	metricPattern(metric.AggregatorCommission, `aggregator\s+commission`, `aggregator`),
	metricPattern(metric.Marketing, `marketing(?:\s*&\s*advertisement)?`, `advertising`),
	metricPattern(metric.OtherOpex, `other\s+opex(?:\s+expenses)?`),
	metricPattern(metric.Rent, `rent`),
	metricPattern(metric.CAM, `cam`, `common\s+area\s+maintenance`),
	metricPattern(metric.GST, `gst`),
}

var periodPatterns = []pattern{
	{slot: SlotPeriod, re: regexp.MustCompile(`(?i)\b(?:` + months + `)[a-z]*[\s-]+\d{4}\b`), normalize: periodValue},
	{slot: SlotPeriod, re: regexp.MustCompile(`\b\d{4}-(?:0?[1-9]|1[0-2])\b`), normalize: periodValue},
	{slot: SlotPeriod, re: regexp.MustCompile(`(?i)\b\d{4}-(?:` + months + `)[a-z]*\b`), normalize: periodValue},
	{slot: SlotPeriod, re: regexp.MustCompile(`(?i)\b(?:` + months + `)[a-z]*[-']\d{2}\b`), normalize: periodValue},
}

var fyPatterns = []pattern{
	{slot: SlotFY, re: regexp.MustCompile(`(?i)\bFY\s*\d{4}\s*-\s*\d{2}\b`), normalize: fyValue},
	{slot: SlotFY, re: regexp.MustCompile(`(?i)\bFY\s*\d{2}\s*-\s*\d{2}\b`), normalize: fyValue},
	{slot: SlotFY, re: regexp.MustCompile(`(?i)\bFY\s*'?\d{4}\b`), normalize: fyValue},
	{slot: SlotFY, re: regexp.MustCompile(`(?i)\bFY\s*'?\d{2}\b`), normalize: fyValue},
}

var (
	limitPattern  = regexp.MustCompile(`(?i)\b(?:top|bottom|best|worst|first|last)\s+(\d{1,3})\b`)
	amountPattern = regexp.MustCompile(`(?i)\b(?:cap(?:ped)?|limit(?:ed)?|at\s+most|max(?:imum)?\s+of)\b\D{0,16}?(\d[\d,]*(?:\.\d+)?)`)
	storePattern  = regexp.MustCompile(`\b[A-Z]{3,4}\b`)
	ascCue        = regexp.MustCompile(`(?i)\b(ascending|ascend|lowest|min|minimum|bottom|least|worst)\b`)
)

// Extractor extracts intents and slots. The zero value is not usable; use New.
type Extractor struct {
	rules  []Rule
	stores map[string]bool
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithStores restricts store matches to the given codes.
func WithStores(stores []string) Option {
	return func(e *Extractor) {
		if len(stores) == 0 {
			return
		}
		e.stores = make(map[string]bool, len(stores))
		for _, s := range stores {
			e.stores[s] = true
		}
	}
}

// WithRules replaces the intent rule list.
func WithRules(rules []Rule) Option {
	return func(e *Extractor) {
		if len(rules) > 0 {
			e.rules = rules
		}
	}
}

// New returns an Extractor with the default rules.
func New(opts ...Option) *Extractor {
	e := &Extractor{rules: Rules()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Rules returns the rules used by e.
func (e *Extractor) Rules() []Rule {
	return append([]Rule(nil), e.rules...)
}

var defaultExtractor = New()

// Extract runs the default extractor.
func Extract(text string) Parse {
	return defaultExtractor.Extract(text)
}

type span struct{ start, end int }

type claims []span

func (c claims) free(start, end int) bool {
	for _, s := range c {
		if start < s.end && s.start < end {
			return false
		}
	}
	return true
}

// Extract classifies text and extracts its slots.
func (e *Extractor) Extract(text string) Parse {
	p := Parse{
		Text:   text,
		Intent: Classify(e.rules, text),
		Slots:  make(Slots),
	}

	var taken claims
	claim := func(pt pattern) {
		for _, loc := range pt.re.FindAllStringSubmatchIndex(text, -1) {
			start, end := loc[2*pt.group], loc[2*pt.group+1]
			if !taken.free(start, end) {
				continue
			}
			groups := make([]string, len(loc)/2)
			for i := range groups {
				if loc[2*i] >= 0 {
					groups[i] = text[loc[2*i]:loc[2*i+1]]
				}
			}
			value, ok := pt.normalize(groups[pt.group], groups)
			if !ok {
				continue
			}
			taken = append(taken, span{start, end})
			p.Matches = append(p.Matches, Match{Slot: pt.slot, Text: text[start:end], Value: value, Start: start, End: end})
		}
	}

	for _, table := range [][]pattern{metricPatterns, fyPatterns, periodPatterns} {
		for _, pt := range table {
			claim(pt)
		}
	}
	claim(pattern{slot: SlotStore, re: storePattern, normalize: e.storeValue})
	claim(pattern{slot: SlotLimit, re: limitPattern, group: 1, normalize: numberValue})
	claim(pattern{slot: SlotAmount, re: amountPattern, group: 1, normalize: numberValue})

	sort.SliceStable(p.Matches, func(i, j int) bool { return p.Matches[i].Start < p.Matches[j].Start })

	values := make(map[Slot][]string)
	for _, m := range p.Matches {
		if !contains(values[m.Slot], m.Value) {
			values[m.Slot] = append(values[m.Slot], m.Value)
		}
	}
	for slot, vs := range values {
		p.Slots[slot] = strings.Join(vs, ", ")
	}

	if ascCue.MatchString(text) {
		p.Slots[SlotOrder] = OrderAsc
	} else {
		p.Slots[SlotOrder] = OrderDesc
	}
	return p
}

func (e *Extractor) storeValue(text string, _ []string) (string, bool) {
	if reservedWords[text] {
		return "", false
	}
	if e.stores != nil && !e.stores[text] {
		return "", false
	}
	return text, true
}

func contains(xs []string, x string) bool {
	for _, v := range xs {
		if v == x {
			return true
		}
	}
	return false
}
