// Copyright 2026 © The CEO Bot Authors
// SPDX-License-Identifier: Apache-2.0

// Package resolver executes the deterministic computation behind each
// intent against a Dataset.
//
// Resolution is pure and never panics. Any handler failure (missing slot,
// unknown metric, empty filter, zero base) is returned as an
// *UnresolvedError wrapping the typed cause, which callers route to the
// generative fallback.
package resolver

import (
	"fmt"
	"sort"

	"github.com/qsrceo/ceobot/pkg/dataset"
	"github.com/qsrceo/ceobot/pkg/errors"
	"github.com/qsrceo/ceobot/pkg/nlu"
)

type handler func(q query) (*Result, error)

var handlers = map[nlu.Intent]handler{
	nlu.IntentMaxMetric:     maxMetric,
	nlu.IntentTrend:         trend,
	nlu.IntentCompare:       compare,
	nlu.IntentRank:          rank,
	nlu.IntentSSSG:          sssg,
	nlu.IntentEBITDAMargin:  ebitdaMargin,
	nlu.IntentVintageReport: vintageReport,
	nlu.IntentOnlineOffline: onlineOffline,
	nlu.IntentCohortRevenue: cohortRevenue,
	nlu.IntentCostRatio:     costRatio,
	nlu.IntentTopN:          topN,
	nlu.IntentTotal:         total,
	nlu.IntentAverage:       average,
	nlu.IntentScenario:      scenario,
}

// Intents lists the intents with a deterministic handler.
func Intents() []nlu.Intent {
	out := make([]nlu.Intent, 0, len(handlers))
	for i := range handlers {
		out = append(out, i)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Resolve answers intent with slots over ds.
func Resolve(intent nlu.Intent, slots nlu.Slots, ds *dataset.Dataset) (res *Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			res = nil
			err = unresolved(intent, errors.Newf(errors.CodeInternal, "handler panic: %v", r))
		}
	}()

	if ds == nil {
		return nil, unresolved(intent, errors.Newf(errors.CodeInvalidInput, "no dataset loaded"))
	}
	h, ok := handlers[intent]
	if !ok {
		return nil, unresolved(intent, errors.Newf(errors.CodeInvalidInput, "no deterministic handler for %s", intent))
	}
	if slots == nil {
		slots = nlu.Slots{}
	}

	res, err = h(query{slots: slots, ds: ds})
	if err != nil {
		return nil, unresolved(intent, err)
	}
	res.Intent = intent
	return res, nil
}

// ResolveParse is Resolve for an extractor parse.
func ResolveParse(p nlu.Parse, ds *dataset.Dataset) (*Result, error) {
	return Resolve(p.Intent, p.Slots, ds)
}

func format(v float64) string {
	return fmt.Sprintf("%.2f", v)
}
