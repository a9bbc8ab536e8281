// Copyright 2026 © The CEO Bot Authors
// SPDX-License-Identifier: Apache-2.0

package dataset

import (
	stderrors "errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Period is a calendar month. Its canonical text form is Mon-YY (Apr-23).
type Period struct {
	Year  int
	Month time.Month
}

// NewPeriod returns the period for year and month.
func NewPeriod(year int, month time.Month) Period {
	return Period{Year: year, Month: month}
}

// PeriodOf returns the period containing t.
func PeriodOf(t time.Time) Period {
	return Period{Year: t.Year(), Month: t.Month()}
}

// IsZero reports whether p is the zero period.
func (p Period) IsZero() bool {
	return p.Year == 0 && p.Month == 0
}

func (p Period) String() string {
	if p.IsZero() {
		return ""
	}
	return fmt.Sprintf("%s-%02d", p.Month.String()[:3], p.Year%100)
}

// Index is a monotonically increasing month number, usable for ordering
// and month arithmetic.
func (p Period) Index() int {
	return p.Year*12 + int(p.Month) - 1
}

// Before reports whether p is earlier than q.
func (p Period) Before(q Period) bool {
	return p.Index() < q.Index()
}

// AddMonths returns p shifted by n months.
func (p Period) AddMonths(n int) Period {
	idx := p.Index() + n
	return Period{Year: idx / 12, Month: time.Month(idx%12 + 1)}
}

// FiscalYear returns the April-March fiscal year containing p.
func (p Period) FiscalYear() FiscalYear {
	if p.Month >= time.April {
		return FiscalYear(p.Year)
	}
	return FiscalYear(p.Year - 1)
}

// FiscalIndex is the position of the month in the fiscal year, Apr=0 … Mar=11.
func (p Period) FiscalIndex() int {
	return (int(p.Month) - int(time.April) + 12) % 12
}

// Quarter is the fiscal quarter, Q1 = Apr-Jun.
func (p Period) Quarter() int {
	return p.FiscalIndex()/3 + 1
}

// MarshalText encodes p in its canonical form.
func (p Period) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText parses any accepted period spelling.
func (p *Period) UnmarshalText(b []byte) error {
	v, err := ParsePeriod(string(b))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// MonthsBetween returns the whole months from a to b. Negative if b is before a.
func MonthsBetween(a, b Period) int {
	return b.Index() - a.Index()
}

// FiscalMonths is the fixed fiscal ordering of months.
var FiscalMonths = []time.Month{
	time.April, time.May, time.June, time.July, time.August, time.September,
	time.October, time.November, time.December, time.January, time.February, time.March,
}

// ParseMonth parses a month name or three-letter abbreviation, case-insensitively.
func ParseMonth(s string) (time.Month, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if len(s) < 3 {
		return 0, false
	}
	for m := time.January; m <= time.December; m++ {
		name := strings.ToLower(m.String())
		if s == name || s == name[:3] || (len(s) > 3 && strings.HasPrefix(name, s)) {
			return m, true
		}
	}
	return 0, false
}

var (
	monYY      = regexp.MustCompile(`^([A-Za-z]{3,9})[-\s'/]+(\d{2})$`)
	monYYYY    = regexp.MustCompile(`^([A-Za-z]{3,9})[-\s/]+(\d{4})$`)
	yyyyMM     = regexp.MustCompile(`^(\d{4})[-/](\d{1,2})$`)
	yyyyMon    = regexp.MustCompile(`^(\d{4})[-\s/]+([A-Za-z]{3,9})$`)
	yyMonAmbig = regexp.MustCompile(`^\d{2}[-\s/]+[A-Za-z]{3,9}$`)
)

// ErrAmbiguousPeriod is returned for the YY-Mon spelling (21-Apr), which
// cannot be told apart from day-month dates.
var ErrAmbiguousPeriod = stderrors.New("ambiguous period: YY-Mon is not accepted, use Mon-YY")

// ParsePeriod parses Mon-YY, Mon YYYY, YYYY-MM and YYYY-Mon spellings.
// Two-digit years are taken to be in the 2000s.
func ParsePeriod(s string) (Period, error) {
	s = strings.TrimSpace(s)
	if m := monYY.FindStringSubmatch(s); m != nil {
		month, ok := ParseMonth(m[1])
		if !ok {
			return Period{}, fmt.Errorf("unknown month %q", m[1])
		}
		yy, _ := strconv.Atoi(m[2])
		return Period{Year: 2000 + yy, Month: month}, nil
	}
	if m := monYYYY.FindStringSubmatch(s); m != nil {
		month, ok := ParseMonth(m[1])
		if !ok {
			return Period{}, fmt.Errorf("unknown month %q", m[1])
		}
		year, _ := strconv.Atoi(m[2])
		return Period{Year: year, Month: month}, nil
	}
	if m := yyyyMM.FindStringSubmatch(s); m != nil {
		year, _ := strconv.Atoi(m[1])
		mm, _ := strconv.Atoi(m[2])
		if mm < 1 || mm > 12 {
			return Period{}, fmt.Errorf("month out of range in %q", s)
		}
		return Period{Year: year, Month: time.Month(mm)}, nil
	}
	if m := yyyyMon.FindStringSubmatch(s); m != nil {
		month, ok := ParseMonth(m[2])
		if !ok {
			return Period{}, fmt.Errorf("unknown month %q", m[2])
		}
		year, _ := strconv.Atoi(m[1])
		return Period{Year: year, Month: month}, nil
	}
	if yyMonAmbig.MatchString(s) {
		return Period{}, fmt.Errorf("%w: %q", ErrAmbiguousPeriod, s)
	}
	return Period{}, fmt.Errorf("unrecognized period %q", s)
}

// FiscalYear is an April-March fiscal year identified by its start year.
// FiscalYear(2023) runs Apr 2023 - Mar 2024 and is labelled FY 2023-24 or FY24.
type FiscalYear int

func (f FiscalYear) String() string {
	return fmt.Sprintf("FY %d-%02d", int(f), (int(f)+1)%100)
}

// Short returns the FYyy label, where yy is the ending year.
func (f FiscalYear) Short() string {
	return fmt.Sprintf("FY%02d", (int(f)+1)%100)
}

// Start returns April of the start year.
func (f FiscalYear) Start() Period {
	return Period{Year: int(f), Month: time.April}
}

// End returns March of the ending year.
func (f FiscalYear) End() Period {
	return Period{Year: int(f) + 1, Month: time.March}
}

// Contains reports whether p falls in f.
func (f FiscalYear) Contains(p Period) bool {
	return p.FiscalYear() == f
}

// Period returns the period of month m within f.
func (f FiscalYear) Period(m time.Month) Period {
	if m >= time.April {
		return Period{Year: int(f), Month: m}
	}
	return Period{Year: int(f) + 1, Month: m}
}

// Periods returns the twelve periods of f in fiscal order.
func (f FiscalYear) Periods() []Period {
	out := make([]Period, 0, 12)
	for _, m := range FiscalMonths {
		out = append(out, f.Period(m))
	}
	return out
}

// MarshalText encodes f as FY 2023-24.
func (f FiscalYear) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

// UnmarshalText parses any accepted fiscal year spelling.
func (f *FiscalYear) UnmarshalText(b []byte) error {
	v, err := ParseFiscalYear(string(b))
	if err != nil {
		return err
	}
	*f = v
	return nil
}

var fyPattern = regexp.MustCompile(`(?i)^\s*(?:FY)?\s*'?(\d{2}|\d{4})(?:\s*[-/]\s*(\d{2}|\d{4}))?\s*$`)

// ParseFiscalYear parses FY 2023-24, FY 23-24, 2023-24, FY24 and FY2024.
// A single year is read as the ending year.
func ParseFiscalYear(s string) (FiscalYear, error) {
	m := fyPattern.FindStringSubmatch(s)
	if m == nil {
		return 0, fmt.Errorf("unrecognized fiscal year %q", s)
	}
	first := expandYear(m[1])
	if m[2] == "" {
		return FiscalYear(first - 1), nil
	}
	second := expandYear(m[2])
	if second%100 != (first+1)%100 {
		return 0, fmt.Errorf("fiscal year %q does not span consecutive years", s)
	}
	return FiscalYear(first), nil
}

func expandYear(s string) int {
	n, _ := strconv.Atoi(s)
	if len(s) == 2 {
		return 2000 + n
	}
	return n
}
