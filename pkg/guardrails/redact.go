// Copyright 2026 © The CEO Bot Authors
// SPDX-License-Identifier: Apache-2.0

package guardrails

import (
	"context"
	"regexp"
	"sort"
)

type redactPattern struct {
	kind    string
	pattern *regexp.Regexp
	mask    string
}

// Redactor masks secrets and contact details a model might echo back from
// its prompt or training data. Order matters: earlier patterns win overlaps.
type Redactor struct {
	patterns []redactPattern
}

var defaultRedactions = []struct {
	kind, pattern, mask string
}{
	{"api_key", `\b(sk|pk|rk)-[A-Za-z0-9_-]{16,}\b`, "[API_KEY]"},
	{"api_key", `\bAIza[0-9A-Za-z_-]{35}\b`, "[API_KEY]"},
	{"bearer", `(?i)\bbearer\s+[A-Za-z0-9._~+/-]{16,}=*`, "[TOKEN]"},
	{"email", `[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`, "[EMAIL]"},
	{"phone", `\+[0-9]{1,3}[-.\s]?[0-9]{6,12}\b`, "[PHONE]"},
	{"phone", `\b[6-9][0-9]{4}[-\s]?[0-9]{5}\b`, "[PHONE]"},
}

// NewRedactor creates a Redactor with the built-in patterns.
func NewRedactor() *Redactor {
	r := &Redactor{}
	for _, p := range defaultRedactions {
		r.patterns = append(r.patterns, redactPattern{p.kind, regexp.MustCompile(p.pattern), p.mask})
	}
	return r
}

// ID implements OutputFilter.
func (r *Redactor) ID() string { return "redactor" }

// FilterOutput implements OutputFilter.
func (r *Redactor) FilterOutput(_ context.Context, output string) (string, []Redaction) {
	type span struct {
		start, end int
		kind, mask string
	}
	var spans []span
	taken := func(s, e int) bool {
		for _, x := range spans {
			if s < x.end && e > x.start {
				return true
			}
		}
		return false
	}
	for _, p := range r.patterns {
		for _, loc := range p.pattern.FindAllStringIndex(output, -1) {
			if !taken(loc[0], loc[1]) {
				spans = append(spans, span{loc[0], loc[1], p.kind, p.mask})
			}
		}
	}
	if len(spans) == 0 {
		return output, nil
	}
	sort.Slice(spans, func(i, j int) bool { return spans[i].start < spans[j].start })

	var out []byte
	redactions := make([]Redaction, 0, len(spans))
	last := 0
	for _, s := range spans {
		out = append(out, output[last:s.start]...)
		out = append(out, s.mask...)
		redactions = append(redactions, Redaction{Kind: s.kind, Position: s.start})
		last = s.end
	}
	out = append(out, output[last:]...)
	return string(out), redactions
}

// WithRedactor adds a Redactor to the guard.
func WithRedactor() Option {
	return WithOutputFilter(NewRedactor())
}
