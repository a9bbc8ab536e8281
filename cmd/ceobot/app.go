// Copyright 2026 © The CEO Bot Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/qsrceo/ceobot/pkg/bot"
	"github.com/qsrceo/ceobot/pkg/cache"
	"github.com/qsrceo/ceobot/pkg/config"
	"github.com/qsrceo/ceobot/pkg/dataset"
	"github.com/qsrceo/ceobot/pkg/errors"
	"github.com/qsrceo/ceobot/pkg/fallback"
	"github.com/qsrceo/ceobot/pkg/guardrails"
	"github.com/qsrceo/ceobot/pkg/llm"
	"github.com/qsrceo/ceobot/pkg/llm/anthropic"
	"github.com/qsrceo/ceobot/pkg/llm/gemini"
	"github.com/qsrceo/ceobot/pkg/llm/openai"
	"github.com/qsrceo/ceobot/pkg/memory"
	ollamaembed "github.com/qsrceo/ceobot/pkg/memory/ollama"
	"github.com/qsrceo/ceobot/pkg/memory/qdrant"
	"github.com/qsrceo/ceobot/pkg/resilience"
	"github.com/qsrceo/ceobot/pkg/telemetry"
)

// hashDimensions is the vector size of the offline hash embedder.
const hashDimensions = 256

// app holds everything a command needs, built from one Config.
type app struct {
	cfg     *config.Config
	bot     *bot.Bot
	qa      *memory.QAIndex
	rows    *memory.RowIndex
	watcher *dataset.Watcher
	closers []func() error
	logger  *slog.Logger
}

// newApp loads the dataset and wires the bot. A dataset that cannot be
// loaded is a DATASET_LOAD error naming the file or table.
func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: logger}

	metrics, err := telemetry.NewMetrics()
	if err != nil {
		logger.Warn("metrics disabled", slog.String("error", err.Error()))
	}

	ds, err := a.loadDataset(ctx)
	if err != nil {
		return nil, err
	}

	opts := []bot.Option{bot.WithLogger(logger), bot.WithMetrics(metrics)}
	if cfg.Cache.Enabled {
		opts = append(opts, bot.WithCache(cache.New[*bot.Answer](cfg.Cache.Size, cfg.Cache.TTL)))
	}
	opts = append(opts, bot.WithHistory(memory.NewInMemoryConversation(memory.ConversationConfig{
		TruncationStrategy: memory.NewWindowStrategy(cfg.History.MaxMessages),
		IdleTimeout:        cfg.History.IdleTimeout,
		MaxSessions:        cfg.History.MaxSessions,
	})))

	mode, err := fallback.ParseMode(cfg.Fallback.Mode)
	if err != nil {
		return nil, err
	}
	if cfg.Index.Enabled || mode == fallback.ModeRetrieval {
		if err := a.openIndex(ctx, ds, mode); err != nil {
			a.Close()
			return nil, err
		}
	}
	if a.qa != nil && cfg.Index.Enabled {
		opts = append(opts, bot.WithQAIndex(a.qa))
	}

	provider, err := newProvider(ctx, cfg.LLM)
	if err != nil {
		a.Close()
		return nil, err
	}
	fbOpts := []fallback.Option{
		fallback.WithMode(mode),
		fallback.WithModel(cfg.LLM.Model),
		fallback.WithProviderName(cfg.LLM.Provider),
		fallback.WithTemperature(cfg.LLM.Temperature),
		fallback.WithSampleRows(cfg.Fallback.SampleRows),
		fallback.WithTopK(cfg.Fallback.TopK),
		fallback.WithTimeout(cfg.LLM.Timeout),
		fallback.WithRetry(resilience.DefaultRetryConfig().WithMaxAttempts(cfg.LLM.Retries + 1)),
		fallback.WithMetrics(metrics),
		fallback.WithLogger(logger),
	}
	if cfg.Fallback.Guard {
		fbOpts = append(fbOpts, fallback.WithGuard(guardrails.Default()))
	}
	if a.rows != nil {
		fbOpts = append(fbOpts, fallback.WithRetriever(bot.RowRetriever{Index: a.rows}))
		opts = append(opts, bot.WithRowIndex(a.rows))
	}
	opts = append(opts, bot.WithFallback(fallback.New(provider, fbOpts...)))

	a.bot, err = bot.New(ds, opts...)
	if err != nil {
		a.Close()
		return nil, err
	}
	if a.watcher != nil {
		a.bot.Watch(a.watcher)
		a.watcher.Start(ctx)
	}
	return a, nil
}

func (a *app) datasetOptions() ([]dataset.Option, error) {
	opts := []dataset.Option{dataset.WithLogger(a.logger)}
	ref, err := a.cfg.Dataset.Reference()
	if err != nil {
		return nil, errors.New(errors.CodeInvalidInput, "invalid dataset.reference_date", err)
	}
	if !ref.IsZero() {
		opts = append(opts, dataset.WithReferenceDate(ref))
	}
	return opts, nil
}

func (a *app) loadDataset(ctx context.Context) (*dataset.Dataset, error) {
	dc := a.cfg.Dataset
	opts, err := a.datasetOptions()
	if err != nil {
		return nil, err
	}

	var (
		source string
		load   dataset.LoaderFunc
	)
	switch {
	case dc.SQLiteDSN != "":
		source = dc.SQLiteDSN + " (table " + dc.Table + ")"
		load = func(ctx context.Context) (*dataset.Dataset, error) {
			return dataset.LoadSQLite(ctx, dc.SQLiteDSN, dc.Table, opts...)
		}
	case dc.Path != "":
		source = dc.Path
		load = func(context.Context) (*dataset.Dataset, error) {
			return dataset.LoadCSV(dc.Path, opts...)
		}
	default:
		return nil, errors.New(errors.CodeDatasetLoad, "no dataset configured", nil).
			WithContext("hint", "pass --data FILE or set dataset.path")
	}

	if dc.WatchInterval > 0 {
		w, err := dataset.NewWatcher(ctx, watchPath(dc), load,
			dataset.WithWatchInterval(dc.WatchInterval), dataset.WithWatchLogger(a.logger))
		if err != nil {
			return nil, loadError(source, err)
		}
		a.watcher = w
		a.closers = append(a.closers, func() error { w.Stop(); return nil })
		return w.Dataset(), nil
	}

	ds, err := load(ctx)
	if err != nil {
		return nil, loadError(source, err)
	}
	return ds, nil
}

func watchPath(dc config.DatasetConfig) string {
	if dc.SQLiteDSN != "" {
		return strings.TrimPrefix(strings.SplitN(dc.SQLiteDSN, "?", 2)[0], "file:")
	}
	return dc.Path
}

func loadError(source string, err error) error {
	switch errors.CodeOf(err) {
	case errors.CodeDatasetLoad:
		be := errors.AsBotError(err)
		if _, ok := be.Context["source"]; !ok {
			be.WithContext("source", source)
		}
		return be
	case errors.CodeInvalidInput:
		return err
	}
	return errors.New(errors.CodeDatasetLoad, "cannot load dataset "+source, err).WithContext("source", source)
}

// openIndex connects the vector store and embedder. The row index is built
// only for retrieval mode.
func (a *app) openIndex(ctx context.Context, ds *dataset.Dataset, mode fallback.Mode) error {
	ic := a.cfg.Index

	var store memory.VectorStore
	switch ic.Provider {
	case "qdrant":
		qs, err := qdrant.New(ic.QdrantAddr, grpc.WithTransportCredentials(insecure.NewCredentials()))
		if err != nil {
			return fmt.Errorf("connect qdrant at %s: %w", ic.QdrantAddr, err)
		}
		a.closers = append(a.closers, qs.Close)
		store = qs
	default:
		store = memory.NewInMemoryStore()
	}

	var emb memory.Embedder
	switch ic.Embedder {
	case "hash":
		emb = memory.NewHashEmbedder(hashDimensions)
	default:
		emb = ollamaembed.NewEmbedder(ic.EmbedderBaseURL, ic.EmbedderModel)
	}

	a.qa = memory.NewQAIndex(store, emb, ic.Collection,
		memory.WithThreshold(float32(ic.Threshold)), memory.WithStoreKind(ic.Provider))

	if mode == fallback.ModeRetrieval {
		a.rows = memory.NewRowIndex(store, emb, ic.RowsCollection)
		n, err := a.rows.Rebuild(ctx, ds)
		if err != nil {
			a.logger.Warn("row index unavailable, retrieval falls back to context",
				slog.String("error", err.Error()))
			a.rows = nil
			return nil
		}
		a.logger.Info("row index built", slog.Int("documents", n))
	}
	return nil
}

// Close releases connections and stops the watcher.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn("close failed", slog.String("error", err.Error()))
		}
	}
	a.closers = nil
}

// newProvider builds the chat model client named by cfg.Provider.
func newProvider(ctx context.Context, cfg config.LLMConfig) (llm.Provider, error) {
	key := cfg.ResolvedAPIKey()
	switch cfg.Provider {
	case "ollama", "":
		return llm.NewOllama(cfg.BaseURL, llm.WithOllamaModel(cfg.Model)), nil
	case "openai":
		opts := []openai.Option{openai.WithModel(cfg.Model), openai.WithAPIKey(key)}
		if cfg.BaseURL != "" && !isOllamaURL(cfg.BaseURL) {
			opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
		}
		return openai.New(opts...), nil
	case "anthropic":
		opts := []anthropic.Option{anthropic.WithModel(cfg.Model), anthropic.WithAPIKey(key)}
		if cfg.BaseURL != "" && !isOllamaURL(cfg.BaseURL) {
			opts = append(opts, anthropic.WithBaseURL(cfg.BaseURL))
		}
		return anthropic.New(opts...), nil
	case "gemini":
		p, err := gemini.New(ctx, key, gemini.WithModel(cfg.Model))
		if err != nil {
			return nil, errors.New(errors.CodeGeneration, "cannot create gemini client", err)
		}
		return p, nil
	case "mock":
		return &llm.MockProvider{Response: fallback.NotEnoughData}, nil
	}
	return nil, errors.Newf(errors.CodeInvalidInput, "unknown llm provider %q", cfg.Provider)
}

// isOllamaURL reports whether url is the default Ollama endpoint, which the
// hosted providers must not inherit from the defaults.
func isOllamaURL(url string) bool {
	return strings.Contains(url, ":11434")
}

func newLogger(cfg config.LogConfig) *slog.Logger {
	return telemetry.ConfigureSlog(os.Stderr, cfg.Level, cfg.Format)
}
