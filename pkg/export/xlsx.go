// Copyright 2026 © The CEO Bot Authors
// SPDX-License-Identifier: Apache-2.0

package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

const (
	summarySheet  = "Answer"
	maxSheetName  = 31
	headerFill    = "#E2E8F0"
	defaultColumn = 16
)

// XLSX writes a workbook with an Answer sheet (question and text) and one
// sheet per table. Absent values are left blank.
func XLSX(w io.Writer, doc Document) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return err
	}
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{headerFill}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return err
	}

	if err := f.SetSheetRow(summarySheet, "A1", &[]any{"Question", doc.Question}); err != nil {
		return err
	}
	if err := f.SetSheetRow(summarySheet, "A2", &[]any{"Answer", doc.Text}); err != nil {
		return err
	}
	if err := f.SetColWidth(summarySheet, "A", "A", 12); err != nil {
		return err
	}
	if err := f.SetColWidth(summarySheet, "B", "B", 80); err != nil {
		return err
	}

	used := map[string]bool{strings.ToLower(summarySheet): true}
	for i, t := range doc.Tables {
		if t == nil {
			continue
		}
		name := sheetName(t.Name, i+1, used)
		if _, err := f.NewSheet(name); err != nil {
			return err
		}
		header := make([]any, len(t.Columns))
		for j, c := range t.Columns {
			header[j] = c
		}
		if err := f.SetSheetRow(name, "A1", &header); err != nil {
			return err
		}
		if err := f.SetRowStyle(name, 1, 1, headerStyle); err != nil {
			return err
		}
		for r, row := range t.Rows {
			cell, err := excelize.CoordinatesToCellName(1, r+2)
			if err != nil {
				return err
			}
			values := append([]any(nil), row...)
			if err := f.SetSheetRow(name, cell, &values); err != nil {
				return err
			}
		}
		if len(t.Columns) > 0 {
			last, err := excelize.ColumnNumberToName(len(t.Columns))
			if err != nil {
				return err
			}
			if err := f.SetColWidth(name, "A", last, defaultColumn); err != nil {
				return err
			}
		}
	}

	_, err = f.WriteTo(w)
	return err
}

// sheetName returns a unique sheet name within Excel's rules. Names are
// compared case-insensitively, as Excel does.
func sheetName(name string, n int, used map[string]bool) string {
	name = strings.Map(func(r rune) rune {
		if strings.ContainsRune(`[]:*?/\`, r) {
			return '-'
		}
		return r
	}, strings.TrimSpace(name))
	if name == "" {
		name = fmt.Sprintf("Table %d", n)
	}
	if len([]rune(name)) > maxSheetName {
		name = string([]rune(name)[:maxSheetName])
	}
	base := name
	for i := 2; used[strings.ToLower(name)]; i++ {
		suffix := fmt.Sprintf(" (%d)", i)
		r := []rune(base)
		if len(r)+len(suffix) > maxSheetName {
			r = r[:maxSheetName-len(suffix)]
		}
		name = string(r) + suffix
	}
	used[strings.ToLower(name)] = true
	return name
}
