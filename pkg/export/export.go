// Copyright 2026 © The CEO Bot Authors
// SPDX-License-Identifier: Apache-2.0

// Package export writes answers as aligned text, CSV, XLSX or JSON.
package export

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/qsrceo/ceobot/pkg/errors"
	"github.com/qsrceo/ceobot/pkg/resolver"
)

// Format names an output encoding.
type Format string

const (
	FormatText Format = "text"
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
	FormatJSON Format = "json"
)

// Absent is how a missing value is shown in text and CSV.
const Absent = "n/a"

// ParseFormat accepts a format name; "" is text.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "", "txt":
		return FormatText, nil
	case FormatText, FormatCSV, FormatXLSX, FormatJSON:
		return f, nil
	}
	return "", errors.Newf(errors.CodeInvalidInput, "unknown export format %q (text, csv, xlsx, json)", s)
}

// FormatForPath picks the format from a file extension, defaulting to text.
func FormatForPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return FormatCSV
	case ".xlsx":
		return FormatXLSX
	case ".json":
		return FormatJSON
	}
	return FormatText
}

// Document is what gets exported: the question, the answer text and any
// result tables.
type Document struct {
	Question string            `json:"question,omitempty"`
	Text     string            `json:"text"`
	Tables   []*resolver.Table `json:"tables,omitempty"`
}

// Write encodes doc to w in format.
func Write(w io.Writer, format Format, doc Document) error {
	switch format {
	case FormatText:
		return Text(w, doc)
	case FormatCSV:
		return CSV(w, doc)
	case FormatXLSX:
		return XLSX(w, doc)
	case FormatJSON:
		return JSON(w, doc)
	}
	return errors.Newf(errors.CodeInvalidInput, "unknown export format %q", format)
}

// JSON writes doc as indented JSON. Absent values are null.
func JSON(w io.Writer, doc Document) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}

// Cell renders one table cell for text output.
func Cell(v any) string {
	switch x := v.(type) {
	case nil:
		return Absent
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case int:
		return strconv.Itoa(x)
	case *float64:
		if x == nil {
			return Absent
		}
		return strconv.FormatFloat(*x, 'f', -1, 64)
	case fmt.Stringer:
		return x.String()
	}
	return fmt.Sprint(v)
}
