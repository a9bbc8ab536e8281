// Copyright 2026 © The CEO Bot Authors
// SPDX-License-Identifier: Apache-2.0

package nlu

import "regexp"

// Intent is the class of computation a question asks for.
type Intent string

const (
	IntentMaxMetric     Intent = "MAX_METRIC"
	IntentTrend         Intent = "TREND"
	IntentCompare       Intent = "COMPARE"
	IntentRank          Intent = "RANK"
	IntentSSSG          Intent = "SSSG"
	IntentEBITDAMargin  Intent = "EBITDA_MARGIN"
	IntentOnlineOffline Intent = "ONLINE_OFFLINE_SPLIT"
	IntentVintageReport Intent = "VINTAGE_REPORT"
	IntentCohortRevenue Intent = "COHORT_REVENUE"
	IntentCostRatio     Intent = "COST_RATIO"
	IntentScenario      Intent = "SCENARIO"
	IntentTopN          Intent = "TOP_N"
	IntentTotal         Intent = "TOTAL"
	IntentAverage       Intent = "AVERAGE"
	IntentUnknown       Intent = "UNKNOWN"
)

// Rule pairs a keyword predicate with the intent it selects.
type Rule struct {
	Intent  Intent
	Pattern *regexp.Regexp
}

// Matches reports whether the rule fires for text.
func (r Rule) Matches(text string) bool {
	return r.Pattern.MatchString(text)
}

func rule(intent Intent, pattern string) Rule {
	return Rule{Intent: intent, Pattern: regexp.MustCompile(`(?i)` + pattern)}
}

// defaultRules is evaluated top to bottom; the first rule that fires wins.
var defaultRules = []Rule{
	rule(IntentCompare, `\bcompar(e|es|ed|ing|ison)\b`),
	rule(IntentTrend, `\btrends?\b`),
	rule(IntentRank, `\b(ascend|ascending|descend|descending|rank|ranks|ranking|ranked)\b`),
	rule(IntentMaxMetric, `\b(max|maximum|highest|min|minimum|lowest)\b`),
	rule(IntentSSSG, `\b(sssg|ssg)\b|\bsame[\s-]+store[\s-]+sales(?:[\s-]+growth)?\b`),
	rule(IntentEBITDAMargin, `\bebitda\s*(margin|%)|\bcontribution\s+margin\s*%`),
	rule(IntentOnlineOffline, `\bonline\b.*\boffline\b|\boffline\b.*\bonline\b|\bchannel\s+split\b`),
	rule(IntentVintageReport, `\bvintage\b|\bsegments?\b`),
	rule(IntentCohortRevenue, `\bcohorts?\b`),
	rule(IntentCostRatio, `(%|\bpercent(age)?\b|\bratio\b|\bshare\b)\s*(of|to)\s+(net\s+)?(sales|revenue)\b|\bto[\s-]+sales\s+ratio\b`),
	rule(IntentScenario, `\b(cap|capped|what\s+if|scenario|simulate)\b`),
	rule(IntentTopN, `\b(top|bottom|best|worst)\b`),
	rule(IntentTotal, `\b(total|sum|overall)\b`),
	rule(IntentAverage, `\b(average|avg|mean)\b`),
}

// Rules returns the default intent rules in evaluation order.
func Rules() []Rule {
	return append([]Rule(nil), defaultRules...)
}

// Classify returns the intent of the first rule that fires, or IntentUnknown.
func Classify(rules []Rule, text string) Intent {
	for _, r := range rules {
		if r.Matches(text) {
			return r.Intent
		}
	}
	return IntentUnknown
}
