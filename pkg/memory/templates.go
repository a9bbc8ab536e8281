// Copyright 2026 © The CEO Bot Authors
// SPDX-License-Identifier: Apache-2.0

package memory

import (
	_ "embed"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/qsrceo/ceobot/pkg/dataset"
)

//go:embed templates.yaml
var defaultTemplates []byte

// TemplateBank is a set of question templates expanded over a dataset's
// stores, metrics, fiscal years and months.
type TemplateBank struct {
	Templates []string `yaml:"templates"`
	// Metrics restricts {metric}; empty means every dataset metric.
	Metrics []string `yaml:"metrics,omitempty"`
	// Months is "latest" (the most recent month only) or "all".
	Months string `yaml:"months,omitempty"`
}

// LoadTemplates decodes a bank from YAML.
func LoadTemplates(r io.Reader) (*TemplateBank, error) {
	var b TemplateBank
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&b); err != nil {
		return nil, fmt.Errorf("failed to parse question templates: %w", err)
	}
	if len(b.Templates) == 0 {
		return nil, fmt.Errorf("question templates: no templates defined")
	}
	switch b.Months {
	case "", "latest", "all":
	default:
		return nil, fmt.Errorf("question templates: months must be latest or all, got %q", b.Months)
	}
	return &b, nil
}

// DefaultTemplates returns the built-in bank.
func DefaultTemplates() *TemplateBank {
	b, err := LoadTemplates(strings.NewReader(string(defaultTemplates)))
	if err != nil {
		panic(err)
	}
	return b
}

// Expand renders every template over the values in ds. A template only
// multiplies by the placeholders it contains. Results are deduplicated and
// keep template order.
func (b *TemplateBank) Expand(ds *dataset.Dataset) []string {
	values := map[string][]string{
		"metric": b.Metrics,
		"store":  ds.Stores(),
	}
	if len(values["metric"]) == 0 {
		values["metric"] = ds.Metrics()
	}
	for _, fy := range ds.FiscalYears() {
		values["fy"] = append(values["fy"], fy.Short())
	}
	periods := ds.Periods()
	if b.Months != "all" && len(periods) > 0 {
		periods = periods[len(periods)-1:]
	}
	for _, p := range periods {
		values["month"] = append(values["month"], p.String())
	}

	seen := make(map[string]bool)
	var out []string
	for _, tmpl := range b.Templates {
		for _, q := range expand(tmpl, []string{"metric", "store", "fy", "month"}, values) {
			if !seen[q] {
				seen[q] = true
				out = append(out, q)
			}
		}
	}
	return out
}

func expand(tmpl string, keys []string, values map[string][]string) []string {
	if len(keys) == 0 {
		return []string{tmpl}
	}
	key, rest := keys[0], keys[1:]
	placeholder := "{" + key + "}"
	if !strings.Contains(tmpl, placeholder) {
		return expand(tmpl, rest, values)
	}
	var out []string
	for _, v := range values[key] {
		out = append(out, expand(strings.ReplaceAll(tmpl, placeholder, v), rest, values)...)
	}
	return out
}
