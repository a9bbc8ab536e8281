// Copyright 2026 © The CEO Bot Authors
// SPDX-License-Identifier: Apache-2.0

package dataset

// Segment is a store's vintage bucket.
type Segment string

const (
	SegmentNew         Segment = "New"
	SegmentEmerging    Segment = "Emerging"
	SegmentEstablished Segment = "Established"
	SegmentUnknown     Segment = "Unknown"
)

// Segments lists the known buckets from youngest to oldest.
var Segments = []Segment{SegmentNew, SegmentEmerging, SegmentEstablished}

// Vintage describes how long a store has been trading.
type Vintage struct {
	Store     string
	Opened    Period // zero when the store never recorded a positive sale
	AgeMonths int
	Segment   Segment
}

// Bucket maps an age in whole months to a segment: up to 12 months is New,
// 13 to 24 is Emerging, older is Established.
func Bucket(ageMonths int) Segment {
	switch {
	case ageMonths <= 12:
		return SegmentNew
	case ageMonths <= 24:
		return SegmentEmerging
	default:
		return SegmentEstablished
	}
}

// computeVintages derives the opening month of every store from its first
// positive Net Sales and buckets it against ref.
func computeVintages(obs []Observation, stores []string, ref Period) map[string]Vintage {
	opened := make(map[string]Period, len(stores))
	for _, o := range obs {
		if o.Metric != netSales || o.Amount <= 0 {
			continue
		}
		if p, ok := opened[o.Store]; !ok || o.Period.Before(p) {
			opened[o.Store] = o.Period
		}
	}

	out := make(map[string]Vintage, len(stores))
	for _, s := range stores {
		p, ok := opened[s]
		if !ok {
			out[s] = Vintage{Store: s, Segment: SegmentUnknown}
			continue
		}
		age := MonthsBetween(p, ref)
		out[s] = Vintage{Store: s, Opened: p, AgeMonths: age, Segment: Bucket(age)}
	}
	return out
}
