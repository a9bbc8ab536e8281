// Copyright 2026 © The CEO Bot Authors
// SPDX-License-Identifier: Apache-2.0

package bot

import (
	"context"
	"log/slog"

	"github.com/qsrceo/ceobot/pkg/errors"
	"github.com/qsrceo/ceobot/pkg/fallback"
	"github.com/qsrceo/ceobot/pkg/memory"
	"github.com/qsrceo/ceobot/pkg/resolver"
)

// seedBatch bounds one upsert into the Q&A index.
const seedBatch = 64

// SeedReport counts what IndexTemplates did.
type SeedReport struct {
	Questions  int `json:"questions"`
	Indexed    int `json:"indexed"`
	Unresolved int `json:"unresolved"`
}

// IndexTemplates expands bank over the current dataset, answers every
// question with the resolver and stores the answered ones in the Q&A
// index. Questions the resolver cannot answer are skipped; the model is
// never called.
func (b *Bot) IndexTemplates(ctx context.Context, bank *memory.TemplateBank) (SeedReport, error) {
	var rep SeedReport
	if b.qa == nil {
		return rep, errors.New(errors.CodeInvalidInput, "no Q&A index configured", nil)
	}
	if bank == nil {
		bank = memory.DefaultTemplates()
	}

	ctx, span := b.tracer.Start(ctx, "bot.index_templates")
	defer span.End()

	snap := b.current.Load()
	questions := bank.Expand(snap.ds)
	rep.Questions = len(questions)

	batch := make([]memory.QAEntry, 0, seedBatch)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := b.qa.Put(ctx, batch...); err != nil {
			return err
		}
		rep.Indexed += len(batch)
		batch = batch[:0]
		return nil
	}

	for _, q := range questions {
		if err := ctx.Err(); err != nil {
			return rep, errors.New(errors.CodeContextLost, "indexing canceled", err)
		}
		p := snap.ext.Extract(q)
		res, err := resolver.ResolveParse(p, snap.ds)
		if err != nil {
			rep.Unresolved++
			continue
		}
		batch = append(batch, memory.QAEntry{Question: q, Answer: res.Summary, Intent: string(p.Intent), Scope: snap.scope(p)})
		if len(batch) == seedBatch {
			if err := flush(); err != nil {
				span.RecordError(err)
				return rep, err
			}
		}
	}
	if err := flush(); err != nil {
		span.RecordError(err)
		return rep, err
	}

	b.logger.InfoContext(ctx, "bot.index.seeded",
		slog.Int("questions", rep.Questions),
		slog.Int("indexed", rep.Indexed),
		slog.Int("unresolved", rep.Unresolved),
	)
	return rep, nil
}

// RowRetriever serves retrieval-mode fallback from a row index.
type RowRetriever struct {
	Index *memory.RowIndex
}

// Retrieve implements fallback.Retriever.
func (r RowRetriever) Retrieve(ctx context.Context, query string, k int) ([]fallback.Passage, error) {
	matches, err := r.Index.Search(ctx, query, k)
	if err != nil {
		return nil, err
	}
	out := make([]fallback.Passage, len(matches))
	for i, m := range matches {
		out[i] = fallback.Passage{ID: m.ID, Text: m.Text, Score: float64(m.Score)}
	}
	return out, nil
}
