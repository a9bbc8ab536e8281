// Copyright 2026 © The CEO Bot Authors
// SPDX-License-Identifier: Apache-2.0

package export

import (
	"encoding/csv"
	"io"
)

// CSV writes every table with its header, separated by an empty record.
// An answer without tables becomes a single "Answer" column.
func CSV(w io.Writer, doc Document) error {
	cw := csv.NewWriter(w)
	wrote := false
	for _, t := range doc.Tables {
		if t == nil {
			continue
		}
		if wrote {
			if err := cw.Write(nil); err != nil {
				return err
			}
		}
		if err := cw.Write(t.Columns); err != nil {
			return err
		}
		for _, row := range t.Rows {
			rec := make([]string, len(row))
			for i, v := range row {
				rec[i] = Cell(v)
			}
			if err := cw.Write(rec); err != nil {
				return err
			}
		}
		wrote = true
	}
	if !wrote {
		if err := cw.WriteAll([][]string{{"Answer"}, {doc.Text}}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
