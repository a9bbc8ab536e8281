// Copyright 2026 © The CEO Bot Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/qsrceo/ceobot/pkg/memory"
)

var (
	indexTemplates string
	indexJSON      bool
	indexReset     bool
)

// indexCmd seeds the Q&A index from question templates.
var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Seed the question index from templates",
	Long: `Expand question templates over the dataset's stores, metrics and fiscal
years, answer each one with the resolver and store the answers in the
question index. The model is never called.

Templates come from --templates, index.templates, or the built-in bank.
Entries answered against an older dataset never match new questions;
--reset drops them first.`,
	Args: cobra.NoArgs,
	RunE: runIndex,
}

func init() {
	indexCmd.Flags().StringVarP(&indexTemplates, "templates", "t", "", "YAML template bank (default index.templates or built-in)")
	indexCmd.Flags().BoolVar(&indexJSON, "json", false, "Print the report as JSON")
	indexCmd.Flags().BoolVar(&indexReset, "reset", false, "Drop every indexed question before seeding")
}

func runIndex(cmd *cobra.Command, args []string) error {
	path := indexTemplates
	if path == "" {
		path = cfg.Index.Templates
	}
	bank, err := loadTemplateBank(path)
	if err != nil {
		return err
	}

	cfg.Index.Enabled = true
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := commandContext(cmd)
	if indexReset {
		if err := a.qa.Clear(ctx); err != nil {
			return err
		}
		logger.Info("index.cleared", slog.String("collection", cfg.Index.Collection))
	}
	report, err := a.bot.IndexTemplates(ctx, bank)
	if err != nil {
		return err
	}
	logger.Info("index.seeded",
		slog.Int("questions", report.Questions),
		slog.Int("indexed", report.Indexed),
		slog.Int("unresolved", report.Unresolved))

	out := cmd.OutOrStdout()
	if indexJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}
	fmt.Fprintf(out, "%d questions, %d indexed, %d unresolved\n", report.Questions, report.Indexed, report.Unresolved)
	return nil
}

func loadTemplateBank(path string) (*memory.TemplateBank, error) {
	if path == "" {
		return memory.DefaultTemplates(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, NewInvalidArgumentError("--templates", err.Error())
	}
	defer f.Close()
	bank, err := memory.LoadTemplates(f)
	if err != nil {
		return nil, NewConfigError(err, path)
	}
	return bank, nil
}
