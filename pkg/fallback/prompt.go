// Copyright 2026 © The CEO Bot Authors
// SPDX-License-Identifier: Apache-2.0

package fallback

import (
	"fmt"
	"strings"

	"github.com/qsrceo/ceobot/pkg/dataset"
	"github.com/qsrceo/ceobot/pkg/program"
)

var groundedSystemPrompt = "You are a QSR performance analyst. Answer only from the sales data you are given. " +
	"Amounts are monthly. Fiscal years run April to March. " +
	"If the data does not contain the answer, reply exactly: " + NotEnoughData + "."

func contextPrompt(question string, ds *dataset.Dataset, n int) (string, int) {
	obs := ds.Observations()
	if len(obs) > n {
		obs = obs[:n]
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Sales data (%d of %d rows):\n", len(obs), ds.Len())
	b.WriteString("Month | Store | FY | Metric | Amount\n")
	for _, o := range obs {
		b.WriteString(o.String())
		b.WriteByte('\n')
	}
	fmt.Fprintf(&b, "\nQuestion: %s", question)
	return b.String(), len(obs)
}

func retrievalPrompt(question string, passages []Passage) string {
	texts := make([]string, len(passages))
	for i, p := range passages {
		texts[i] = p.Text
	}
	return "Given the following context from sales data:\n" +
		strings.Join(texts, "\n---\n") +
		"\n\nQuestion: " + question
}

func programSystemPrompt(ds *dataset.Dataset) string {
	var b strings.Builder
	b.WriteString("You are a QSR performance analyst. You cannot see the data; answer by calling ")
	fmt.Fprintf(&b, "%s with a program. The program's bindings run in order; each starts from ", ProgramTool)
	fmt.Fprintf(&b, "%q, %q or an earlier binding, and the binding named %q is the answer.\n", program.FromLong, program.FromWide, program.Output)
	fmt.Fprintf(&b, "%q columns: Month, Store, FY, Metric, Amount.\n", program.FromLong)
	fmt.Fprintf(&b, "%q columns: Month, Store, FY, then one column per metric.\n", program.FromWide)
	fmt.Fprintf(&b, "Metrics: %s.\n", strings.Join(ds.Metrics(), ", "))
	fmt.Fprintf(&b, "Stores: %s.\n", strings.Join(ds.Stores(), ", "))
	var fys []string
	for _, fy := range ds.FiscalYears() {
		fys = append(fys, fy.String())
	}
	fmt.Fprintf(&b, "Fiscal years: %s. Months are written like Apr-23.\n", strings.Join(fys, ", "))
	b.WriteString("If the question cannot be answered from this data, reply exactly: " + NotEnoughData + ".")
	return b.String()
}
