// Copyright 2026 © The CEO Bot Authors
// SPDX-License-Identifier: Apache-2.0

package export

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/xuri/excelize/v2"

	"github.com/qsrceo/ceobot/pkg/errors"
	"github.com/qsrceo/ceobot/pkg/resolver"
)

func testDocument() Document {
	growth := resolver.NewTable("SSSG", "Store", "FY", "Growth %")
	growth.Append("AAA", "FY 2023-24", 12.5)
	growth.Append("BBB", "FY 2023-24", nil)
	sales := resolver.NewTable("Net Sales", "Store", "Net Sales")
	sales.Append("AAA", 220.0)
	return Document{
		Question: "What is the SSSG for FY24?",
		Text:     "SSSG for FY 2023-24",
		Tables:   []*resolver.Table{growth, sales},
	}
}

func TestText(t *testing.T) {
	var buf bytes.Buffer
	if err := Text(&buf, testDocument()); err != nil {
		t.Fatalf("Text failed: %v", err)
	}
	want := `SSSG for FY 2023-24

SSSG
Store  FY          Growth %
-----  --          --------
AAA    FY 2023-24  12.5
BBB    FY 2023-24  n/a

Net Sales
Store  Net Sales
-----  ---------
AAA    220
`
	if diff := cmp.Diff(want, buf.String()); diff != "" {
		t.Errorf("text mismatch (-want +got):\n%s", diff)
	}
}

func TestCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := CSV(&buf, testDocument()); err != nil {
		t.Fatalf("CSV failed: %v", err)
	}
	want := "Store,FY,Growth %\nAAA,FY 2023-24,12.5\nBBB,FY 2023-24,n/a\n\nStore,Net Sales\nAAA,220\n"
	if diff := cmp.Diff(want, buf.String()); diff != "" {
		t.Errorf("csv mismatch (-want +got):\n%s", diff)
	}
}

func TestCSVWithoutTables(t *testing.T) {
	var buf bytes.Buffer
	if err := CSV(&buf, Document{Text: "Not enough data to answer"}); err != nil {
		t.Fatalf("CSV failed: %v", err)
	}
	if got := buf.String(); got != "Answer\nNot enough data to answer\n" {
		t.Errorf("unexpected csv %q", got)
	}
}

func TestXLSX(t *testing.T) {
	var buf bytes.Buffer
	if err := XLSX(&buf, testDocument()); err != nil {
		t.Fatalf("XLSX failed: %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer f.Close()

	if diff := cmp.Diff([]string{"Answer", "SSSG", "Net Sales"}, f.GetSheetList()); diff != "" {
		t.Errorf("sheets mismatch (-want +got):\n%s", diff)
	}
	if v, _ := f.GetCellValue("Answer", "B1"); v != "What is the SSSG for FY24?" {
		t.Errorf("expected question in B1, got %q", v)
	}
	rows, err := f.GetRows("SSSG")
	if err != nil {
		t.Fatalf("GetRows failed: %v", err)
	}
	want := [][]string{
		{"Store", "FY", "Growth %"},
		{"AAA", "FY 2023-24", "12.5"},
		{"BBB", "FY 2023-24"},
	}
	if diff := cmp.Diff(want, rows); diff != "" {
		t.Errorf("rows mismatch (-want +got):\n%s", diff)
	}
}

func TestJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := JSON(&buf, testDocument()); err != nil {
		t.Fatalf("JSON failed: %v", err)
	}
	var got struct {
		Text   string `json:"text"`
		Tables []struct {
			Rows [][]any `json:"rows"`
		} `json:"tables"`
	}
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Text != "SSSG for FY 2023-24" || len(got.Tables) != 2 {
		t.Fatalf("unexpected document: %+v", got)
	}
	if got.Tables[0].Rows[1][2] != nil {
		t.Errorf("expected absent growth as null, got %v", got.Tables[0].Rows[1][2])
	}
}

func TestParseFormat(t *testing.T) {
	tests := map[string]Format{"": FormatText, "TXT": FormatText, "csv": FormatCSV, " xlsx ": FormatXLSX, "json": FormatJSON}
	for in, want := range tests {
		got, err := ParseFormat(in)
		if err != nil || got != want {
			t.Errorf("%q: expected %s, got %s (%v)", in, want, got, err)
		}
	}
	if _, err := ParseFormat("pdf"); !errors.HasCode(err, errors.CodeInvalidInput) {
		t.Errorf("expected INVALID_INPUT, got %v", err)
	}
}

func TestFormatForPath(t *testing.T) {
	tests := map[string]Format{"out.CSV": FormatCSV, "a/b.xlsx": FormatXLSX, "r.json": FormatJSON, "answer": FormatText}
	for in, want := range tests {
		if got := FormatForPath(in); got != want {
			t.Errorf("%q: expected %s, got %s", in, want, got)
		}
	}
}

func TestSheetName(t *testing.T) {
	used := map[string]bool{"answer": true}
	got := []string{
		sheetName("answer", 1, used),
		sheetName("Rent/Sales [FY24]", 2, used),
		sheetName("", 3, used),
		sheetName(strings.Repeat("x", 40), 4, used),
		sheetName(strings.Repeat("x", 40), 5, used),
	}
	want := []string{
		"answer (2)",
		"Rent-Sales -FY24-",
		"Table 3",
		strings.Repeat("x", 31),
		strings.Repeat("x", 27) + " (2)",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("sheet names mismatch (-want +got):\n%s", diff)
	}
}
