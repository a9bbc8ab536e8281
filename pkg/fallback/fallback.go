// Copyright 2026 © The CEO Bot Authors
// SPDX-License-Identifier: Apache-2.0

// Package fallback answers questions the deterministic resolver could not,
// by asking a language model grounded in the dataset.
//
// Three modes pick what the model sees: the first rows of the dataset
// (context), the row documents most similar to the question (retrieval),
// or only the dataset schema plus a run_program tool whose arguments are
// evaluated by package program (program).
package fallback

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/qsrceo/ceobot/pkg/dataset"
	"github.com/qsrceo/ceobot/pkg/errors"
	"github.com/qsrceo/ceobot/pkg/llm"
	"github.com/qsrceo/ceobot/pkg/program"
	"github.com/qsrceo/ceobot/pkg/resilience"
	"github.com/qsrceo/ceobot/pkg/resolver"
	"github.com/qsrceo/ceobot/pkg/telemetry"
)

// Mode selects what the model is given to answer from.
type Mode string

const (
	ModeContext   Mode = "context"
	ModeRetrieval Mode = "retrieval"
	ModeProgram   Mode = "program"
)

// ParseMode validates a configured mode name.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case ModeContext, ModeRetrieval, ModeProgram:
		return m, nil
	case "":
		return ModeContext, nil
	default:
		return "", errors.Newf(errors.CodeInvalidInput, "unknown fallback mode %q", s)
	}
}

// NotEnoughData is the reply the model is told to give when the supplied
// data cannot answer the question.
const NotEnoughData = "Not enough data to answer"

// ProgramTool is the tool offered in program mode.
const ProgramTool = "run_program"

// Defaults.
const (
	DefaultSampleRows  = 100
	DefaultTopK        = 5
	DefaultTemperature = 0.2
	DefaultTimeout     = 60 * time.Second
)

// Passage is one retrieved row document.
type Passage struct {
	ID    string  `json:"id"`
	Text  string  `json:"text"`
	Score float64 `json:"score"`
}

// Retriever finds the k row documents most similar to query.
type Retriever interface {
	Retrieve(ctx context.Context, query string, k int) ([]Passage, error)
}

// Guard screens questions before they reach the model.
type Guard interface {
	Check(ctx context.Context, text string) error
}

// outputFilter is optionally implemented by a Guard to scrub answers.
type outputFilter interface {
	Filter(ctx context.Context, text string) string
}

// Answer is a fallback reply. Table is set when a program produced one.
type Answer struct {
	Text    string           `json:"text"`
	Mode    Mode             `json:"mode"`
	Table   *resolver.Table  `json:"table,omitempty"`
	Sources []Passage        `json:"sources,omitempty"`
	Program *program.Program `json:"program,omitempty"`
	Usage   llm.Usage        `json:"usage"`
}

// Adapter turns a question and a dataset into a model answer.
type Adapter struct {
	provider     llm.Provider
	providerName string
	mode         Mode
	model        string
	temperature  float64
	sampleRows   int
	topK         int
	retriever    Retriever
	guard        Guard
	timeout      resilience.TimeoutConfig
	retry        resilience.RetryConfig
	metrics      *telemetry.Metrics
	logger       *slog.Logger
	tracer       trace.Tracer
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithMode sets the fallback mode.
func WithMode(m Mode) Option {
	return func(a *Adapter) {
		if m != "" {
			a.mode = m
		}
	}
}

// WithModel sets the model name sent with each request. Empty lets the
// provider choose.
func WithModel(model string) Option {
	return func(a *Adapter) { a.model = model }
}

// WithProviderName labels spans with the backend name.
func WithProviderName(name string) Option {
	return func(a *Adapter) { a.providerName = name }
}

// WithTemperature sets the sampling temperature.
func WithTemperature(t float64) Option {
	return func(a *Adapter) { a.temperature = t }
}

// WithSampleRows sets how many observations context mode includes.
func WithSampleRows(n int) Option {
	return func(a *Adapter) {
		if n > 0 {
			a.sampleRows = n
		}
	}
}

// WithTopK sets how many passages retrieval mode includes.
func WithTopK(k int) Option {
	return func(a *Adapter) {
		if k > 0 {
			a.topK = k
		}
	}
}

// WithRetriever sets the passage source for retrieval mode. Without one,
// retrieval mode behaves like context mode.
func WithRetriever(r Retriever) Option {
	return func(a *Adapter) { a.retriever = r }
}

// WithGuard screens questions, and answers when g also filters output.
func WithGuard(g Guard) Option {
	return func(a *Adapter) { a.guard = g }
}

// WithTimeout bounds each model attempt.
func WithTimeout(d time.Duration) Option {
	return func(a *Adapter) { a.timeout = resilience.TimeoutConfig{Duration: d} }
}

// WithRetry sets the retry policy for model calls.
func WithRetry(rc resilience.RetryConfig) Option {
	return func(a *Adapter) { a.retry = rc }
}

// WithMetrics records fallback latency.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(a *Adapter) { a.metrics = m }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(a *Adapter) {
		if l != nil {
			a.logger = l
		}
	}
}

// New creates an Adapter over provider.
func New(provider llm.Provider, opts ...Option) *Adapter {
	a := &Adapter{
		provider:    provider,
		mode:        ModeContext,
		temperature: DefaultTemperature,
		sampleRows:  DefaultSampleRows,
		topK:        DefaultTopK,
		timeout:     resilience.TimeoutConfig{Duration: DefaultTimeout},
		retry:       resilience.DefaultRetryConfig(),
		logger:      slog.Default(),
		tracer:      otel.Tracer("ceobot/fallback"),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Mode is the configured mode.
func (a *Adapter) Mode() Mode { return a.mode }

// Answer asks the model about question. GENERATION_ERROR, EXECUTION_ERROR
// and BLOCKED failures return both an error and an Answer whose Text
// explains the failure, so callers can show it and carry on.
func (a *Adapter) Answer(ctx context.Context, question string, ds *dataset.Dataset) (*Answer, error) {
	start := time.Now()
	ctx, span := a.tracer.Start(ctx, "fallback.answer",
		trace.WithAttributes(attribute.String(telemetry.AttrFallbackMode, string(a.mode))))
	defer span.End()

	ans, err := a.answer(ctx, span, question, ds)
	a.metrics.RecordFallback(ctx, string(a.mode), time.Since(start))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(attribute.String(telemetry.AttrErrorCode, string(errors.CodeOf(err))))
		a.logger.WarnContext(ctx, "fallback failed", "mode", a.mode, "error", err)
	}
	return ans, err
}

func (a *Adapter) answer(ctx context.Context, span trace.Span, question string, ds *dataset.Dataset) (*Answer, error) {
	if a.guard != nil {
		if err := a.guard.Check(ctx, question); err != nil {
			return &Answer{Text: "I can only answer questions about the sales data.", Mode: a.mode}, err
		}
	}
	if ds == nil || ds.Len() == 0 {
		return &Answer{Text: NotEnoughData, Mode: a.mode}, nil
	}

	mode := a.mode
	if mode == ModeRetrieval && a.retriever == nil {
		a.logger.DebugContext(ctx, "no retriever configured, using context mode")
		mode = ModeContext
	}

	switch mode {
	case ModeRetrieval:
		passages, err := a.retriever.Retrieve(ctx, question, a.topK)
		if err != nil {
			a.logger.WarnContext(ctx, "retrieval failed, using context mode", "error", err)
			return a.answerFromRows(ctx, span, question, ds)
		}
		span.SetAttributes(telemetry.FallbackAttributes(string(mode), 0, len(passages))...)
		msgs := []llm.Message{
			{Role: llm.RoleSystem, Content: groundedSystemPrompt},
			{Role: llm.RoleUser, Content: retrievalPrompt(question, passages)},
		}
		resp, err := a.chat(ctx, span, msgs, nil)
		if err != nil {
			return a.generationFailure(mode, err)
		}
		return &Answer{Text: a.text(ctx, resp.Content), Mode: mode, Sources: passages, Usage: resp.Usage}, nil
	case ModeProgram:
		return a.answerWithProgram(ctx, span, question, ds)
	default:
		return a.answerFromRows(ctx, span, question, ds)
	}
}

func (a *Adapter) answerFromRows(ctx context.Context, span trace.Span, question string, ds *dataset.Dataset) (*Answer, error) {
	prompt, rows := contextPrompt(question, ds, a.sampleRows)
	span.SetAttributes(telemetry.FallbackAttributes(string(ModeContext), rows, 0)...)
	msgs := []llm.Message{
		{Role: llm.RoleSystem, Content: groundedSystemPrompt},
		{Role: llm.RoleUser, Content: prompt},
	}
	resp, err := a.chat(ctx, span, msgs, nil)
	if err != nil {
		return a.generationFailure(ModeContext, err)
	}
	return &Answer{Text: a.text(ctx, resp.Content), Mode: ModeContext, Usage: resp.Usage}, nil
}

func (a *Adapter) answerWithProgram(ctx context.Context, span trace.Span, question string, ds *dataset.Dataset) (*Answer, error) {
	tool := llm.FunctionTool(ProgramTool,
		"Evaluate an analysis program over the sales data and return the "+program.Output+" binding as a table.",
		program.Schema())
	msgs := []llm.Message{
		{Role: llm.RoleSystem, Content: programSystemPrompt(ds)},
		{Role: llm.RoleUser, Content: question},
	}
	resp, err := a.chat(ctx, span, msgs, []llm.Tool{tool})
	if err != nil {
		return a.generationFailure(ModeProgram, err)
	}

	var call *llm.ToolCall
	for i := range resp.ToolCalls {
		if resp.ToolCalls[i].Function.Name == ProgramTool {
			call = &resp.ToolCalls[i]
			break
		}
	}
	if call == nil {
		return &Answer{Text: a.text(ctx, resp.Content), Mode: ModeProgram, Usage: resp.Usage}, nil
	}

	p, err := program.Parse(call.Function.Arguments)
	if err != nil {
		return executionFailure(nil, resp.Usage, err)
	}
	frame, err := program.Run(ds, p)
	if err != nil {
		return executionFailure(p, resp.Usage, err)
	}
	frame = frame.Round()
	span.SetAttributes(telemetry.ProgramAttributes(len(p.Bindings), frame.Len())...)

	table := &resolver.Table{Name: program.Output, Columns: frame.Columns, Rows: frame.Rows}
	text := strings.TrimSpace(resp.Content)
	if text == "" {
		text = describeFrame(frame)
	}
	return &Answer{Text: a.text(ctx, text), Mode: ModeProgram, Table: table, Program: p, Usage: resp.Usage}, nil
}

func (a *Adapter) chat(ctx context.Context, span trace.Span, msgs []llm.Message, tools []llm.Tool) (*llm.ChatResponse, error) {
	req := llm.ChatRequest{
		Model:       a.model,
		Messages:    msgs,
		Tools:       tools,
		Temperature: a.temperature,
	}
	start := time.Now()
	resp, err := resilience.Call(ctx, a.timeout, a.retry, func(ctx context.Context) (*llm.ChatResponse, error) {
		return a.provider.Chat(ctx, req)
	})
	if err != nil {
		return nil, err
	}
	if resp == nil {
		return nil, errors.New(errors.CodeGeneration, "model returned no response", nil)
	}
	span.SetAttributes(telemetry.LLMAttributes(a.model, a.providerName, len(msgs), len(resp.ToolCalls))...)
	span.SetAttributes(telemetry.LLMUsageAttributes(resp.Usage.PromptTokens, resp.Usage.CompletionTokens,
		float64(time.Since(start).Milliseconds()))...)
	return resp, nil
}

func (a *Adapter) text(ctx context.Context, s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return NotEnoughData
	}
	if f, ok := a.guard.(outputFilter); ok {
		s = f.Filter(ctx, s)
	}
	return s
}

func (a *Adapter) generationFailure(mode Mode, err error) (*Answer, error) {
	if !errors.HasCode(err, errors.CodeGeneration) {
		err = errors.New(errors.CodeGeneration, "model call failed", err)
	}
	return &Answer{Text: "Could not generate an answer: " + rootMessage(err), Mode: mode}, err
}

func executionFailure(p *program.Program, usage llm.Usage, err error) (*Answer, error) {
	return &Answer{
		Text:    "Could not run the analysis: " + rootMessage(err),
		Mode:    ModeProgram,
		Program: p,
		Usage:   usage,
	}, err
}

func rootMessage(err error) string {
	if be := errors.AsBotError(err); be != nil && be.Code != errors.CodeInternal {
		return be.Message
	}
	return err.Error()
}

func describeFrame(f *program.Frame) string {
	switch {
	case f.Len() == 0:
		return NotEnoughData
	case f.Len() == 1 && len(f.Columns) == 1:
		return fmt.Sprintf("%s: %v", f.Columns[0], f.Rows[0][0])
	default:
		return fmt.Sprintf("Computed %d rows.", f.Len())
	}
}
