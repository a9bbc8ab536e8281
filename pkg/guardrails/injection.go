// Copyright 2026 © The CEO Bot Authors
// SPDX-License-Identifier: Apache-2.0

package guardrails

import (
	"context"
	"regexp"
)

// InjectionDetector flags questions that try to override the model's
// instructions, extract its prompt, or smuggle code or commands.
type InjectionDetector struct {
	patterns  []*regexp.Regexp
	threshold float64
}

// InjectionOption configures an InjectionDetector.
type InjectionOption func(*InjectionDetector)

var injectionPatterns = []string{
	// Instruction override
	`(?i)\b(ignore|disregard|forget|override)\s+(all\s+|any\s+|the\s+)?(previous|prior|above|earlier)\s+(instructions?|prompts?|rules?|context)`,
	`(?i)\bnew\s+instructions?\s*:`,

	// Persona switching
	`(?i)\byou\s+are\s+now\s+(a|an|the)\s+`,
	`(?i)\bpretend\s+(you\s+are|to\s+be)\s+`,
	`(?i)\bact\s+as\s+(a|an|if)\s+`,
	`(?i)\b(developer|debug|sudo|admin|god|dan)\s+mode\b`,
	`(?i)\bjailbreak`,

	// Prompt extraction
	`(?i)\b(show|reveal|print|display|repeat|what\s+(is|are))\s+(me\s+)?your\s+(system\s+)?(prompt|instructions?)`,

	// Code and command smuggling
	`(?i)\b__import__\b|\bimport\s+(os|sys|subprocess|socket|shutil)\b`,
	`(?i)\b(exec|eval|compile|open)\s*\(`,
	`(?i)\b(rm\s+-rf|curl\s+https?://|wget\s+https?://)`,
	`(?i)\b(drop|truncate|delete\s+from|alter)\s+table\b`,
	`(?i)\bexecute\s+(this\s+)?(code|command|script)`,

	// Chat template delimiters
	`(?i)<\|[a-z_]+\|>`,
	`(?i)\[/?INST\]`,
	`(?i)<</?SYS>>`,
	`(?i)^\s*system\s*:`,
}

// NewInjectionDetector compiles the built-in patterns plus any added by opts.
func NewInjectionDetector(opts ...InjectionOption) *InjectionDetector {
	d := &InjectionDetector{}
	for _, p := range injectionPatterns {
		d.patterns = append(d.patterns, regexp.MustCompile(p))
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// WithPatterns adds patterns. Invalid expressions are skipped.
func WithPatterns(patterns ...string) InjectionOption {
	return func(d *InjectionDetector) {
		for _, p := range patterns {
			if re, err := regexp.Compile(p); err == nil {
				d.patterns = append(d.patterns, re)
			}
		}
	}
}

// WithThreshold sets the confidence needed to block. A single match scores
// 0.7 and each further match adds 0.1.
func WithThreshold(threshold float64) InjectionOption {
	return func(d *InjectionDetector) {
		if threshold >= 0 && threshold <= 1 {
			d.threshold = threshold
		}
	}
}

// ID implements InputChecker.
func (d *InjectionDetector) ID() string { return "prompt-injection" }

// CheckInput implements InputChecker.
func (d *InjectionDetector) CheckInput(ctx context.Context, input string) CheckResult {
	if input == "" {
		return CheckResult{}
	}
	var matches []string
	for _, re := range d.patterns {
		if ctx.Err() != nil {
			return CheckResult{}
		}
		if m := re.FindString(input); m != "" {
			matches = append(matches, m)
		}
	}
	if len(matches) == 0 {
		return CheckResult{}
	}
	confidence := 0.7 + float64(len(matches)-1)*0.1
	if confidence > 1 {
		confidence = 1
	}
	if confidence < d.threshold {
		return CheckResult{Confidence: confidence, Matches: matches}
	}
	return CheckResult{
		Blocked:    true,
		Reason:     "question looks like a prompt injection attempt",
		Confidence: confidence,
		Matches:    matches,
	}
}

// WithInjectionDetector adds an InjectionDetector to the guard.
func WithInjectionDetector(opts ...InjectionOption) Option {
	return WithInputChecker(NewInjectionDetector(opts...))
}
