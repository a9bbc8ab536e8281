// Copyright 2026 © The CEO Bot Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/qsrceo/ceobot/pkg/dataset"
)

var importTable string

// importCmd copies a CSV dataset into a SQLite table.
var importCmd = &cobra.Command{
	Use:   "import-sqlite CSV DB",
	Short: "Import a CSV dataset into SQLite",
	Long: `Import a long-format CSV dataset into a SQLite table, replacing the table
if it exists. The database can then be served with --data DB.`,
	Args: cobra.ExactArgs(2),
	RunE: runImport,
}

func init() {
	importCmd.Flags().StringVar(&importTable, "table", "", "Table name (default dataset.table)")
}

func runImport(cmd *cobra.Command, args []string) error {
	table := importTable
	if table == "" {
		table = cfg.Dataset.Table
	}
	n, err := dataset.ImportCSVToSQLite(commandContext(cmd), args[0], args[1], table)
	if err != nil {
		return loadError(args[0], err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "imported %d rows into %s (table %s)\n", n, args[1], table)
	return nil
}
