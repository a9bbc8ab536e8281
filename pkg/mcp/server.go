// Copyright 2026 © The CEO Bot Authors
// SPDX-License-Identifier: Apache-2.0

// Package mcp exposes the bot as Model Context Protocol tools, so other
// assistants can ask it questions over stdio.
package mcp

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/qsrceo/ceobot/pkg/bot"
	"github.com/qsrceo/ceobot/pkg/dataset"
	"github.com/qsrceo/ceobot/pkg/export"
)

// Tool names.
const (
	AskTool      = "ask_qsr_question"
	DescribeTool = "describe_dataset"
)

// Bot is what the tools need from the bot.
type Bot interface {
	Ask(ctx context.Context, sessionID, question string) (*bot.Answer, error)
	Dataset() *dataset.Dataset
}

// Server wraps the mcp-go server with the bot's tools registered.
type Server struct {
	mcpServer *server.MCPServer
	bot       Bot
}

// NewServer creates an MCP server named name.
func NewServer(name, version string, b Bot) *Server {
	s := &Server{
		mcpServer: server.NewMCPServer(name, version, server.WithToolCapabilities(false)),
		bot:       b,
	}

	s.mcpServer.AddTool(mcp.NewTool(AskTool,
		mcp.WithDescription("Answer a business question about QSR store sales: highest/lowest metric, trends, "+
			"comparisons, rankings, SSSG, EBITDA margin, vintage and cost ratios. Months are written Mon-YY (Apr-23) "+
			"and fiscal years FY24 or FY 2023-24."),
		mcp.WithString("question", mcp.Required(), mcp.Description("The question in plain English")),
		mcp.WithString("session_id", mcp.Description("Conversation to continue; omit to start a new one")),
	), s.handleAsk)

	s.mcpServer.AddTool(mcp.NewTool(DescribeTool,
		mcp.WithDescription("List the stores, metrics, fiscal years and months available in the sales data."),
	), s.handleDescribe)

	return s
}

// MCPServer returns the underlying server.
func (s *Server) MCPServer() *server.MCPServer { return s.mcpServer }

// ServeStdio serves on stdin and stdout until the input closes.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

func (s *Server) handleAsk(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, _ := request.Params.Arguments.(map[string]interface{})
	question, _ := args["question"].(string)
	sessionID, _ := args["session_id"].(string)
	if strings.TrimSpace(question) == "" {
		return mcp.NewToolResultError("question is required"), nil
	}

	ans, err := s.bot.Ask(ctx, sessionID, question)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var buf bytes.Buffer
	if err := export.Text(&buf, export.Document{Text: ans.Text, Tables: ans.Tables()}); err != nil {
		return nil, err
	}
	fmt.Fprintf(&buf, "\n(session %s, %s)", ans.SessionID, ans.Source)
	return mcp.NewToolResultText(buf.String()), nil
}

func (s *Server) handleDescribe(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ds := s.bot.Dataset()
	if ds == nil {
		return mcp.NewToolResultError("no dataset loaded"), nil
	}
	return mcp.NewToolResultText(Describe(ds)), nil
}

// Describe summarizes what a dataset covers.
func Describe(ds *dataset.Dataset) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Stores: %s\n", strings.Join(ds.Stores(), ", "))
	fmt.Fprintf(&b, "Metrics: %s\n", strings.Join(ds.Metrics(), ", "))
	fys := ds.FiscalYears()
	names := make([]string, len(fys))
	for i, fy := range fys {
		names[i] = fy.String()
	}
	fmt.Fprintf(&b, "Fiscal years: %s\n", strings.Join(names, ", "))
	if periods := ds.Periods(); len(periods) > 0 {
		fmt.Fprintf(&b, "Months: %s to %s (%d)\n", periods[0], periods[len(periods)-1], len(periods))
	}
	fmt.Fprintf(&b, "Rows: %d", ds.Len())
	return b.String()
}
