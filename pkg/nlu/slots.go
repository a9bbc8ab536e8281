// Copyright 2026 © The CEO Bot Authors
// SPDX-License-Identifier: Apache-2.0

package nlu

import (
	"regexp"
	"sort"
	"strings"
)

// Slot names a parameter extracted from a question.
type Slot string

const (
	SlotMetric Slot = "METRIC"
	SlotStore  Slot = "STORE"
	SlotPeriod Slot = "PERIOD"
	SlotFY     Slot = "FY"
	SlotOrder  Slot = "ORDER"
	SlotLimit  Slot = "LIMIT"
	SlotAmount Slot = "AMOUNT"
)

// Order values.
const (
	OrderAsc  = "asc"
	OrderDesc = "desc"
)

// Slots maps slot names to normalized text. Repeated matches of one slot
// are joined with ", ".
type Slots map[Slot]string

// Get returns the value of s.
func (s Slots) Get(slot Slot) (string, bool) {
	v, ok := s[slot]
	return v, ok && v != ""
}

// Key renders s canonically as sorted NAME=value pairs, so two parses
// with the same slots share a key.
func (s Slots) Key() string {
	names := make([]string, 0, len(s))
	for k, v := range s {
		if v != "" {
			names = append(names, string(k))
		}
	}
	sort.Strings(names)
	var b strings.Builder
	for i, n := range names {
		if i > 0 {
			b.WriteByte(';')
		}
		b.WriteString(n)
		b.WriteByte('=')
		b.WriteString(s[Slot(n)])
	}
	return b.String()
}

// List returns the value of slot split into its items.
func (s Slots) List(slot Slot) []string {
	return SplitList(s[slot])
}

// Clone returns a copy of s.
func (s Slots) Clone() Slots {
	out := make(Slots, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

var listSeparator = regexp.MustCompile(`(?i)\s*(?:,|&|\bvs\.?(?:\s|$)|\bversus\b|\band\b)\s*`)

// SplitList splits a slot value on "vs", "versus", "and", "&" and commas.
func SplitList(value string) []string {
	var out []string
	for _, part := range listSeparator.Split(value, -1) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
