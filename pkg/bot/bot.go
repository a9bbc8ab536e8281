// Copyright 2026 © The CEO Bot Authors
// SPDX-License-Identifier: Apache-2.0

// Package bot routes a question through the answer cache, the Q&A index,
// the extractor and resolver, and finally the generative fallback.
package bot

import (
	"context"
	"log/slog"
	"sync/atomic"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/qsrceo/ceobot/pkg/cache"
	"github.com/qsrceo/ceobot/pkg/dataset"
	"github.com/qsrceo/ceobot/pkg/errors"
	"github.com/qsrceo/ceobot/pkg/fallback"
	"github.com/qsrceo/ceobot/pkg/memory"
	"github.com/qsrceo/ceobot/pkg/nlu"
	"github.com/qsrceo/ceobot/pkg/telemetry"
)

// DefaultHistory is the number of messages kept per session.
const DefaultHistory = 50

// snapshot pairs a dataset with an extractor that knows its stores and
// the cache generation answers computed against it belong to.
type snapshot struct {
	ds  *dataset.Dataset
	ext *nlu.Extractor
	gen uint64
}

// scope keys a Q&A index entry to the dataset and the parsed question, so
// a similar question about another period, store or metric never reuses
// the answer.
func (s *snapshot) scope(p nlu.Parse) string {
	return s.ds.Fingerprint() + "|" + string(p.Intent) + "|" + p.Slots.Key()
}

// Bot answers questions about one dataset at a time. It is safe for
// concurrent use; each question sees a single dataset snapshot.
type Bot struct {
	current  atomic.Pointer[snapshot]
	rules    []nlu.Rule
	fallback *fallback.Adapter
	cache    *cache.Cache[*Answer]
	qa       *memory.QAIndex
	rows     *memory.RowIndex
	history  memory.ConversationMemory
	metrics  *telemetry.Metrics
	logger   *slog.Logger
	tracer   trace.Tracer
}

// Option configures a Bot.
type Option func(*Bot) error

// WithFallback sets the adapter used when the resolver cannot answer.
// Without one, unresolved questions get the not-enough-data reply.
func WithFallback(a *fallback.Adapter) Option {
	return func(b *Bot) error {
		b.fallback = a
		return nil
	}
}

// WithCache enables the exact-match answer cache.
func WithCache(c *cache.Cache[*Answer]) Option {
	return func(b *Bot) error {
		b.cache = c
		return nil
	}
}

// WithQAIndex enables the similarity pre-check.
func WithQAIndex(x *memory.QAIndex) Option {
	return func(b *Bot) error {
		b.qa = x
		return nil
	}
}

// WithRowIndex rebuilds rows from every dataset passed to Reload, keeping
// retrieval-mode passages in step with the data.
func WithRowIndex(r *memory.RowIndex) Option {
	return func(b *Bot) error {
		b.rows = r
		return nil
	}
}

// WithHistory sets the conversation store.
func WithHistory(h memory.ConversationMemory) Option {
	return func(b *Bot) error {
		if h == nil {
			return errors.New(errors.CodeInvalidInput, "conversation memory is nil", nil)
		}
		b.history = h
		return nil
	}
}

// WithRules replaces the intent rules.
func WithRules(rules []nlu.Rule) Option {
	return func(b *Bot) error {
		if len(rules) == 0 {
			return errors.New(errors.CodeInvalidInput, "at least one intent rule is required", nil)
		}
		b.rules = append([]nlu.Rule(nil), rules...)
		return nil
	}
}

// WithMetrics records question and error counters.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(b *Bot) error {
		b.metrics = m
		return nil
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(b *Bot) error {
		if l != nil {
			b.logger = l
		}
		return nil
	}
}

// New returns a Bot over ds.
func New(ds *dataset.Dataset, opts ...Option) (*Bot, error) {
	if ds == nil {
		return nil, errors.New(errors.CodeDatasetLoad, "no dataset", nil)
	}
	b := &Bot{
		rules:   nlu.Rules(),
		history: memory.NewInMemoryConversation(memory.ConversationConfig{TruncationStrategy: memory.NewWindowStrategy(DefaultHistory)}),
		logger:  slog.Default(),
		tracer:  otel.Tracer("ceobot/bot"),
	}
	for _, opt := range opts {
		if err := opt(b); err != nil {
			return nil, err
		}
	}
	b.SetDataset(ds)
	return b, nil
}

// Dataset returns the current dataset.
func (b *Bot) Dataset() *dataset.Dataset {
	return b.current.Load().ds
}

// SetDataset swaps in ds for later questions and drops cached answers.
// A nil ds is ignored.
func (b *Bot) SetDataset(ds *dataset.Dataset) {
	if ds == nil {
		return
	}
	ext := nlu.New(nlu.WithStores(ds.Stores()), nlu.WithRules(b.rules))
	gen := b.cache.Invalidate()
	b.current.Store(&snapshot{ds: ds, ext: ext, gen: gen})
	b.logger.Info("bot.dataset.ready",
		slog.String("source", ds.Report().Source),
		slog.Int("rows", ds.Len()),
		slog.Int("stores", len(ds.Stores())),
	)
}

// Reload swaps in ds and rebuilds the row index, if any. Q&A index entries
// of the previous dataset stop matching since they are scoped to its
// fingerprint.
func (b *Bot) Reload(ctx context.Context, ds *dataset.Dataset) error {
	if ds == nil {
		return errors.New(errors.CodeDatasetLoad, "no dataset", nil)
	}
	b.SetDataset(ds)
	if b.rows == nil {
		return nil
	}
	n, err := b.rows.Rebuild(ctx, ds)
	if err != nil {
		return errors.New(errors.CodeDatasetLoad, "cannot rebuild row index", err)
	}
	b.logger.InfoContext(ctx, "bot.rows.rebuilt", slog.Int("rows", n))
	return nil
}

// Watch follows w: every successful reload replaces the dataset and every
// failed one is counted.
func (b *Bot) Watch(w *dataset.Watcher) {
	w.OnChange(func(ds *dataset.Dataset) {
		ctx := context.Background()
		err := b.Reload(ctx, ds)
		if err != nil {
			b.metrics.RecordError(ctx, err, "reload")
			b.logger.Warn("bot.reload.error", slog.String("error", err.Error()))
		}
		b.metrics.RecordReload(ctx, err == nil)
	})
	w.OnError(func(err error) {
		b.metrics.RecordReload(context.Background(), false)
		b.logger.Warn("bot.reload.failed", slog.String("error", err.Error()))
	})
}

// History returns the messages of a session, oldest first.
func (b *Bot) History(ctx context.Context, sessionID string) ([]memory.ConversationMessage, error) {
	if sessionID == "" {
		return nil, errors.New(errors.CodeInvalidInput, "session id is required", nil)
	}
	return b.history.GetMessages(ctx, sessionID)
}

// ClearHistory forgets a session.
func (b *Bot) ClearHistory(ctx context.Context, sessionID string) error {
	return b.history.Clear(ctx, sessionID)
}
