// Copyright 2026 © The CEO Bot Authors
// SPDX-License-Identifier: Apache-2.0

// Package main implements the ceobot CLI.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/qsrceo/ceobot/pkg/config"
	"github.com/qsrceo/ceobot/pkg/telemetry"
)

// Version is set at build time with -ldflags "-X main.Version=...".
var Version = "dev"

var (
	// Global flags
	configPath string
	setFlags   []string
	dataPath   string
	jsonErrors bool

	cfg      *config.Config
	logger   *slog.Logger
	shutdown telemetry.ShutdownFunc
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "ceobot",
	Short: "Answer questions about QSR store performance",
	Long: `ceobot answers natural-language questions about a restaurant chain's
monthly store metrics. Questions the rule-based resolver understands are
computed directly from the dataset; the rest go to a language model with
the dataset as context.

  ceobot ask --data sales.csv "top 5 stores by net sales FY24"
  ceobot chat --data sales.csv
  ceobot serve --data sales.db --set dataset.table=monthly`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if shutdown != nil {
			_ = shutdown(context.Background())
			shutdown = nil
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML config file")
	rootCmd.PersistentFlags().StringArrayVar(&setFlags, "set", nil, "Override a config key (key=value, repeatable)")
	rootCmd.PersistentFlags().StringVarP(&dataPath, "data", "d", "", "Dataset CSV file or SQLite database (.db, .sqlite)")
	rootCmd.PersistentFlags().BoolVar(&jsonErrors, "json-errors", false, "Print errors as JSON")

	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(mcpCmd)
	rootCmd.AddCommand(indexCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		WrapCLIError(err).PrintError(os.Stderr, jsonErrors)
		stop()
		os.Exit(1)
	}
}

// setup loads and validates configuration, then starts logging and
// telemetry. Commands that need no dataset still get a config.
func setup(cmd *cobra.Command, args []string) error {
	c, err := config.LoadWithOverrides(configPath, setFlags)
	if err != nil {
		return NewConfigError(err, configPath)
	}
	applyDataFlag(c, dataPath)
	if err := c.Validate(); err != nil {
		return err
	}
	cfg = c
	logger = newLogger(cfg.Log)

	if cmd == versionCmd {
		return nil
	}
	shutdown, err = telemetry.InitWithConfig("ceobot", Version, telemetry.Config{
		Exporter:     cfg.Telemetry.Exporter,
		OTLPEndpoint: cfg.Telemetry.OTLPEndpoint,
		OTLPInsecure: cfg.Telemetry.OTLPInsecure,
		Writer:       os.Stderr,
	})
	if err != nil {
		return NewConfigError(err, configPath)
	}
	return nil
}

// applyDataFlag points the dataset at path: a SQLite DSN for .db and .sqlite
// files, a CSV path otherwise.
func applyDataFlag(c *config.Config, path string) {
	if path == "" {
		return
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".db", ".sqlite", ".sqlite3":
		c.Dataset.SQLiteDSN = path
		c.Dataset.Path = ""
	default:
		c.Dataset.Path = path
		c.Dataset.SQLiteDSN = ""
	}
}

// openApp wires the bot for commands that answer questions.
func openApp(cmd *cobra.Command) (*app, error) {
	return newApp(commandContext(cmd), cfg, logger)
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
