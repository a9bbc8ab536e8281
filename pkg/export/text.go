// Copyright 2026 © The CEO Bot Authors
// SPDX-License-Identifier: Apache-2.0

package export

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
)

// Text writes the answer line followed by each table, columns aligned.
func Text(w io.Writer, doc Document) error {
	if _, err := fmt.Fprintln(w, doc.Text); err != nil {
		return err
	}
	for _, t := range doc.Tables {
		if t == nil {
			continue
		}
		fmt.Fprintln(w)
		if t.Name != "" {
			fmt.Fprintln(w, t.Name)
		}
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, strings.Join(t.Columns, "\t"))
		fmt.Fprintln(tw, strings.Join(rule(t.Columns), "\t"))
		for _, row := range t.Rows {
			cells := make([]string, len(row))
			for i, v := range row {
				cells[i] = Cell(v)
			}
			fmt.Fprintln(tw, strings.Join(cells, "\t"))
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}
	return nil
}

func rule(columns []string) []string {
	out := make([]string, len(columns))
	for i, c := range columns {
		out[i] = strings.Repeat("-", len(c))
	}
	return out
}
