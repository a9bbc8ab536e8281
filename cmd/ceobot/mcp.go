// Copyright 2026 © The CEO Bot Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"github.com/spf13/cobra"

	botmcp "github.com/qsrceo/ceobot/pkg/mcp"
)

// mcpCmd serves the bot as MCP tools on stdio.
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve MCP tools on stdin and stdout",
	Long: `Expose ask_qsr_question and describe_dataset to an MCP client over stdio.
Logs go to stderr so they never mix with the protocol stream.`,
	Args: cobra.NoArgs,
	RunE: runMCP,
}

func runMCP(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()
	return botmcp.NewServer("ceobot", Version, a.bot).ServeStdio()
}
