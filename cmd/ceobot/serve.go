// Copyright 2026 © The CEO Bot Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/qsrceo/ceobot/pkg/server"
)

var serveAddr string

// serveCmd exposes the bot over HTTP.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the question API over HTTP",
	Long: `Serve POST /query, GET /sessions/{id}/history, DELETE /sessions/{id}
and GET /healthz until interrupted.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (default server.addr)")
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	addr := serveAddr
	if addr == "" {
		addr = cfg.Server.Addr
	}
	srv := server.New(a.bot, server.WithVersion(Version), server.WithLogger(logger))
	logger.Info("server.start", slog.String("addr", addr))
	return srv.Run(commandContext(cmd), addr)
}
