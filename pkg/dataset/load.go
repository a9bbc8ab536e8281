// Copyright 2026 © The CEO Bot Authors
// SPDX-License-Identifier: Apache-2.0

package dataset

import (
	"encoding/csv"
	stderrors "errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/qsrceo/ceobot/pkg/errors"
	"github.com/qsrceo/ceobot/pkg/metric"
)

type column int

const (
	colMonth column = iota
	colMonthYear
	colStore
	colFY
	colMetric
	colAmount
)

// headerAliases maps lower-cased header names onto columns.
var headerAliases = map[string]column{
	"month":             colMonth,
	"month-year":        colMonthYear,
	"month_year":        colMonthYear,
	"month year":        colMonthYear,
	"period":            colMonthYear,
	"store":             colStore,
	"store code":        colStore,
	"outlet":            colStore,
	"fy":                colFY,
	"fiscal year":       colFY,
	"metric":            colMetric,
	"particulars":       colMetric,
	"amount":            colAmount,
	"amount (in lakhs)": colAmount,
	"value":             colAmount,
}

// rowReader turns raw string records into observations using a header map.
type rowReader struct {
	cols   map[column]int
	report LoadReport
}

func newRowReader(header []string, source string) (*rowReader, error) {
	r := &rowReader{cols: make(map[column]int), report: LoadReport{Source: source}}
	for i, h := range header {
		name := strings.ToLower(strings.Join(strings.Fields(strings.TrimPrefix(h, "\ufeff")), " "))
		if c, ok := headerAliases[name]; ok {
			if _, dup := r.cols[c]; !dup {
				r.cols[c] = i
			}
		}
	}

	var missing []string
	for _, need := range []struct {
		col  column
		name string
	}{{colStore, "Store"}, {colMetric, "Metric"}, {colAmount, "Amount"}} {
		if _, ok := r.cols[need.col]; !ok {
			missing = append(missing, need.name)
		}
	}
	_, hasMonth := r.cols[colMonth]
	_, hasMonthYear := r.cols[colMonthYear]
	if !hasMonth && !hasMonthYear {
		missing = append(missing, "Month")
	}
	if len(missing) > 0 {
		return nil, errors.New(errors.CodeDatasetLoad,
			fmt.Sprintf("%s: missing columns %s", source, strings.Join(missing, ", ")), nil).
			WithContext("source", source)
	}
	return r, nil
}

func (r *rowReader) field(rec []string, c column) string {
	i, ok := r.cols[c]
	if !ok || i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}

// read converts one record. ok is false when the row is dropped.
func (r *rowReader) read(rec []string) (Observation, bool) {
	r.report.Rows++

	store := r.field(rec, colStore)
	label := r.field(rec, colMetric)
	if store == "" || label == "" {
		r.report.Incomplete++
		return Observation{}, false
	}

	var fy FiscalYear
	hasFY := false
	if raw := r.field(rec, colFY); raw != "" {
		if f, err := ParseFiscalYear(raw); err == nil {
			fy, hasFY = f, true
		}
	}

	period, ok := r.period(rec, fy, hasFY)
	if !ok {
		r.report.BadPeriod++
		return Observation{}, false
	}
	if hasFY && period.FiscalYear() != fy {
		r.report.FYMismatch++
	}

	amount, err := parseAmount(r.field(rec, colAmount))
	if err != nil {
		r.report.BadAmount++
		return Observation{}, false
	}

	r.report.Kept++
	return Observation{
		Period: period,
		Store:  store,
		FY:     period.FiscalYear(),
		Metric: metric.Canonicalize(label),
		Amount: amount,
	}, true
}

func (r *rowReader) period(rec []string, fy FiscalYear, hasFY bool) (Period, bool) {
	for _, c := range []column{colMonthYear, colMonth} {
		raw := r.field(rec, c)
		if raw == "" {
			continue
		}
		p, err := ParsePeriod(raw)
		if err == nil {
			return p, true
		}
		if stderrors.Is(err, ErrAmbiguousPeriod) {
			return Period{}, false
		}
		if m, ok := ParseMonth(raw); ok && hasFY {
			return fy.Period(m), true
		}
	}
	return Period{}, false
}

func parseAmount(s string) (float64, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" {
		return 0, fmt.Errorf("empty amount")
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("non-finite amount %q", s)
	}
	return v, nil
}

// ReadCSV reads a long-format CSV (Month, Store, Metric, Amount and optional
// FY / Month-Year columns; header names are case-insensitive).
func ReadCSV(r io.Reader, opts ...Option) (*Dataset, error) {
	return readCSV(r, "csv", opts...)
}

// LoadCSV reads the CSV file at path.
func LoadCSV(path string, opts ...Option) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.New(errors.CodeDatasetLoad, "cannot open dataset "+path, err).
			WithContext("source", path)
	}
	defer f.Close()
	return readCSV(f, path, opts...)
}

func readCSV(r io.Reader, source string, opts ...Option) (*Dataset, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, errors.New(errors.CodeDatasetLoad, source+": cannot read header", err).
			WithContext("source", source)
	}
	rr, err := newRowReader(header, source)
	if err != nil {
		return nil, err
	}

	var obs []Observation
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.New(errors.CodeDatasetLoad, source+": malformed CSV", err).
				WithContext("source", source)
		}
		if o, ok := rr.read(rec); ok {
			obs = append(obs, o)
		}
	}

	opts = append([]Option{WithSource(source), withReport(rr.report)}, opts...)
	return New(obs, opts...), nil
}
