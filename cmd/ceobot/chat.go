// Copyright 2026 © The CEO Bot Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/qsrceo/ceobot/pkg/bot"
	"github.com/qsrceo/ceobot/pkg/errors"
	"github.com/qsrceo/ceobot/pkg/export"
)

// chatCmd runs an interactive question loop on stdin.
var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Ask questions interactively",
	Long: `Read questions from standard input, one per line, and print each answer.
All questions share one session. Type "exit" or "quit" to leave, "clear"
to start a new session.`,
	Args: cobra.NoArgs,
	RunE: runChat,
}

func runChat(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()
	return chatLoop(cmd, a.bot, cmd.InOrStdin(), cmd.OutOrStdout())
}

func chatLoop(cmd *cobra.Command, b *bot.Bot, in io.Reader, out io.Writer) error {
	ctx := commandContext(cmd)
	session := uuid.NewString()
	ds := b.Dataset()
	latest := "n/a"
	if periods := ds.Periods(); len(periods) > 0 {
		latest = periods[len(periods)-1].String()
	}
	fmt.Fprintf(out, "%d stores, %d metrics, latest month %s. Ask a question, or \"exit\".\n",
		len(ds.Stores()), len(ds.Metrics()), latest)

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		switch strings.ToLower(line) {
		case "":
			continue
		case "exit", "quit":
			return nil
		case "clear":
			_ = b.ClearHistory(ctx, session)
			session = uuid.NewString()
			fmt.Fprintln(out, "new session")
			continue
		}

		ans, err := b.Ask(ctx, session, line)
		if err != nil {
			if errors.HasCode(err, errors.CodeContextLost) || ctx.Err() != nil {
				return err
			}
			WrapCLIError(err).PrintError(out, false)
			continue
		}
		if err := export.Text(out, export.Document{Text: ans.Text, Tables: ans.Tables()}); err != nil {
			return err
		}
		fmt.Fprintln(out)
	}
}
