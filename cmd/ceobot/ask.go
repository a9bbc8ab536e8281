// Copyright 2026 © The CEO Bot Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/qsrceo/ceobot/pkg/bot"
	"github.com/qsrceo/ceobot/pkg/export"
)

var (
	askFormat  string
	askOut     string
	askSession string
)

// askCmd answers one question and exits.
var askCmd = &cobra.Command{
	Use:   "ask QUESTION",
	Short: "Answer a single question",
	Long: `Answer a single question about the dataset.

The answer is printed as text by default. Use --format or --out to export
the result tables as CSV, XLSX or JSON.

  ceobot ask --data sales.csv "net sales for BBB in Jan-24"
  ceobot ask --data sales.csv --out top.xlsx "top 10 stores by net sales FY24"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().StringVarP(&askFormat, "format", "f", "", "Output format: text, csv, xlsx, json (default from --out, else text)")
	askCmd.Flags().StringVarP(&askOut, "out", "o", "", "Write the answer to a file instead of stdout")
	askCmd.Flags().StringVar(&askSession, "session", "", "Session ID to record the exchange under")
}

func runAsk(cmd *cobra.Command, args []string) error {
	format, err := outputFormat(askFormat, askOut)
	if err != nil {
		return err
	}
	if format == export.FormatXLSX && askOut == "" {
		return NewInvalidArgumentError("--out", "xlsx output needs a file; pass --out FILE.xlsx")
	}

	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	question := strings.Join(args, " ")
	ans, err := a.bot.Ask(commandContext(cmd), askSession, question)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	if askOut != "" {
		f, err := os.Create(askOut)
		if err != nil {
			return NewInvalidArgumentError("--out", err.Error())
		}
		defer f.Close()
		w = f
	}
	if err := writeAnswer(w, format, ans); err != nil {
		return err
	}
	if askOut != "" {
		fmt.Fprintf(cmd.ErrOrStderr(), "wrote %s (%s)\n", askOut, ans.Source)
	}
	return nil
}

func outputFormat(flag, out string) (export.Format, error) {
	if flag == "" && out != "" {
		return export.FormatForPath(out), nil
	}
	return export.ParseFormat(flag)
}

func writeAnswer(w io.Writer, format export.Format, ans *bot.Answer) error {
	return export.Write(w, format, export.Document{
		Question: ans.Question,
		Text:     ans.Text,
		Tables:   ans.Tables(),
	})
}
