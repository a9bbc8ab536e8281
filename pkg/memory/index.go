// Copyright 2026 © The CEO Bot Authors
// SPDX-License-Identifier: Apache-2.0

package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/qsrceo/ceobot/pkg/dataset"
	"github.com/qsrceo/ceobot/pkg/telemetry"
)

// Collection names used when none are configured.
const (
	DefaultQACollection   = "qsr_ceo_questions"
	DefaultRowsCollection = "qsr_ceo_rows"
)

// DefaultThreshold is the similarity a cached question needs to be reused.
const DefaultThreshold = 0.92

// lookupCandidates bounds how many similar questions Lookup checks for a
// matching scope.
const lookupCandidates = 8

var pointNamespace = uuid.MustParse("6f1c1f8e-5b8e-4c53-9b0e-8f3c2a7d4e10")

// pointID derives a stable UUID so re-indexing the same text replaces its point.
func pointID(kind, text string) string {
	return uuid.NewSHA1(pointNamespace, []byte(kind+"\x00"+text)).String()
}

// collection binds a store, an embedder and a collection name, creating the
// collection on first use with the embedder's dimension.
type collection struct {
	store    VectorStore
	embedder Embedder
	name     string

	mu    sync.Mutex
	ready bool
}

func (c *collection) ensure(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ready {
		return nil
	}
	vec, err := c.embedder.Embed(ctx, "dimension")
	if err != nil {
		return fmt.Errorf("failed to get embedding dimension: %w", err)
	}
	if err := c.store.EnsureCollection(ctx, c.name, uint64(len(vec))); err != nil {
		return err
	}
	c.ready = true
	return nil
}

// reset drops the collection; the next use recreates it empty.
func (c *collection) reset(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.store.DeleteCollection(ctx, c.name); err != nil {
		return err
	}
	c.ready = false
	return nil
}

func (c *collection) upsert(ctx context.Context, kind string, texts []string, payloads []map[string]any) error {
	if err := c.ensure(ctx); err != nil {
		return err
	}
	points := make([]Point, 0, len(texts))
	for i, text := range texts {
		vec, err := c.embedder.Embed(ctx, text)
		if err != nil {
			return fmt.Errorf("failed to embed %q: %w", text, err)
		}
		points = append(points, Point{ID: pointID(kind, text), Vector: vec, Payload: payloads[i]})
	}
	return c.store.Upsert(ctx, c.name, points)
}

func (c *collection) search(ctx context.Context, text string, limit int, threshold float32) ([]SearchResult, error) {
	if err := c.ensure(ctx); err != nil {
		return nil, err
	}
	vec, err := c.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	return c.store.Search(ctx, c.name, vec, limit, threshold)
}

// QAEntry is a question with its precomputed answer. Scope names what the
// answer depends on (the dataset and the parsed question); a lookup only
// returns entries of the scope it asks for.
type QAEntry struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
	Intent   string `json:"intent,omitempty"`
	Scope    string `json:"scope,omitempty"`
}

// QAHit is a cached entry similar enough to a new question.
type QAHit struct {
	QAEntry
	Score float32 `json:"score"`
}

// QAIndex caches answered questions so near-identical questions can be
// answered without the resolver or the model.
type QAIndex struct {
	c         collection
	kind      string
	threshold float32
	tracer    trace.Tracer
}

// QAOption configures a QAIndex.
type QAOption func(*QAIndex)

// WithThreshold sets the similarity a hit needs.
func WithThreshold(t float32) QAOption {
	return func(x *QAIndex) {
		if t > 0 && t <= 1 {
			x.threshold = t
		}
	}
}

// WithStoreKind labels index.lookup spans with the backing store.
func WithStoreKind(kind string) QAOption {
	return func(x *QAIndex) { x.kind = kind }
}

// NewQAIndex creates a Q&A index over collection name.
func NewQAIndex(store VectorStore, embedder Embedder, name string, opts ...QAOption) *QAIndex {
	if name == "" {
		name = DefaultQACollection
	}
	x := &QAIndex{
		c:         collection{store: store, embedder: embedder, name: name},
		threshold: DefaultThreshold,
		tracer:    otel.Tracer("ceobot/memory"),
	}
	for _, opt := range opts {
		opt(x)
	}
	return x
}

// Put stores entries, replacing any with the same question text.
func (x *QAIndex) Put(ctx context.Context, entries ...QAEntry) error {
	texts := make([]string, len(entries))
	payloads := make([]map[string]any, len(entries))
	for i, e := range entries {
		texts[i] = normalizeQuestion(e.Question)
		payloads[i] = map[string]any{"question": e.Question, "answer": e.Answer, "intent": e.Intent, "scope": e.Scope}
	}
	return x.c.upsert(ctx, "qa", texts, payloads)
}

// Lookup returns the closest entry of scope at or above the threshold, or
// nil when there is none. Similar questions of another scope never match.
func (x *QAIndex) Lookup(ctx context.Context, question, scope string) (*QAHit, error) {
	ctx, span := x.tracer.Start(ctx, "index.lookup")
	defer span.End()

	results, err := x.c.search(ctx, normalizeQuestion(question), lookupCandidates, x.threshold)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	for _, r := range results {
		if s, _ := r.Point.Payload["scope"].(string); s != scope {
			continue
		}
		span.SetAttributes(telemetry.IndexAttributes(x.kind, true, float64(r.Score))...)
		hit := &QAHit{Score: r.Score}
		hit.Question, _ = r.Point.Payload["question"].(string)
		hit.Answer, _ = r.Point.Payload["answer"].(string)
		hit.Intent, _ = r.Point.Payload["intent"].(string)
		hit.Scope = scope
		return hit, nil
	}
	span.SetAttributes(telemetry.IndexAttributes(x.kind, false, 0)...)
	return nil, nil
}

// Clear drops every entry.
func (x *QAIndex) Clear(ctx context.Context) error {
	return x.c.reset(ctx)
}

func normalizeQuestion(q string) string {
	return strings.Join(strings.Fields(strings.ToLower(q)), " ")
}

// Match is one retrieved row document.
type Match struct {
	ID    string
	Text  string
	Score float32
}

// RowIndex embeds one document per (store, month) row of a dataset for
// retrieval-mode fallback.
type RowIndex struct {
	c collection
}

// NewRowIndex creates a row index over collection name.
func NewRowIndex(store VectorStore, embedder Embedder, name string) *RowIndex {
	if name == "" {
		name = DefaultRowsCollection
	}
	return &RowIndex{c: collection{store: store, embedder: embedder, name: name}}
}

// Build indexes every wide row of ds and returns how many were written.
func (r *RowIndex) Build(ctx context.Context, ds *dataset.Dataset) (int, error) {
	w := ds.Wide()
	if w == nil || len(w.Rows) == 0 {
		return 0, nil
	}
	texts := make([]string, len(w.Rows))
	payloads := make([]map[string]any, len(w.Rows))
	for i, row := range w.Rows {
		texts[i] = row.String()
		payloads[i] = map[string]any{"text": texts[i], "store": row.Store, "month": row.Period.String()}
	}
	if err := r.c.upsert(ctx, "row", texts, payloads); err != nil {
		return 0, err
	}
	return len(texts), nil
}

// Rebuild replaces the indexed rows with those of ds, dropping documents of
// rows that no longer exist.
func (r *RowIndex) Rebuild(ctx context.Context, ds *dataset.Dataset) (int, error) {
	if err := r.c.reset(ctx); err != nil {
		return 0, err
	}
	return r.Build(ctx, ds)
}

// Search returns the k row documents most similar to query.
func (r *RowIndex) Search(ctx context.Context, query string, k int) ([]Match, error) {
	results, err := r.c.search(ctx, query, k, 0)
	if err != nil {
		return nil, err
	}
	out := make([]Match, 0, len(results))
	for _, res := range results {
		text, _ := res.Point.Payload["text"].(string)
		out = append(out, Match{ID: res.ID, Text: text, Score: res.Score})
	}
	return out, nil
}
