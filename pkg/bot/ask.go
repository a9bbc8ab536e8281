// Copyright 2026 © The CEO Bot Authors
// SPDX-License-Identifier: Apache-2.0

package bot

import (
	"context"
	stderrors "errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/qsrceo/ceobot/pkg/dataset"
	"github.com/qsrceo/ceobot/pkg/errors"
	"github.com/qsrceo/ceobot/pkg/fallback"
	"github.com/qsrceo/ceobot/pkg/memory"
	"github.com/qsrceo/ceobot/pkg/nlu"
	"github.com/qsrceo/ceobot/pkg/resolver"
	"github.com/qsrceo/ceobot/pkg/telemetry"
)

// Source says which stage produced an answer.
type Source string

const (
	SourceCache    Source = "cache"
	SourceIndex    Source = "index"
	SourceResolver Source = "resolver"
	SourceFallback Source = "fallback"
)

// Answer is the reply to one question. Result is set when the resolver
// answered and Fallback when the model did; index hits carry only Text.
type Answer struct {
	SessionID string           `json:"session_id"`
	Question  string           `json:"question"`
	Intent    nlu.Intent       `json:"intent"`
	Slots     nlu.Slots        `json:"slots,omitempty"`
	Source    Source           `json:"source"`
	Text      string           `json:"text"`
	Result    *resolver.Result `json:"result,omitempty"`
	Fallback  *fallback.Answer `json:"fallback,omitempty"`
	// Unresolved is why the resolver could not answer, when it could not.
	Unresolved string           `json:"unresolved,omitempty"`
	ErrorCode  errors.ErrorCode `json:"error_code,omitempty"`
	Score      float32          `json:"score,omitempty"`
	Elapsed    time.Duration    `json:"elapsed"`
}

// Tables returns the tables of the answer, if any.
func (a *Answer) Tables() []*resolver.Table {
	switch {
	case a.Result != nil:
		return a.Result.Tables
	case a.Fallback != nil && a.Fallback.Table != nil:
		return []*resolver.Table{a.Fallback.Table}
	}
	return nil
}

// Ask answers question within sessionID. An empty sessionID starts a new
// session, returned in Answer.SessionID.
//
// Generation and execution failures of the fallback are not returned as
// errors: the answer text explains them and ErrorCode is set. Ask fails
// only on invalid input or a canceled context.
func (b *Bot) Ask(ctx context.Context, sessionID, question string) (*Answer, error) {
	start := time.Now()
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, errors.New(errors.CodeInvalidInput, "question is empty", nil)
	}
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	ctx = telemetry.WithSession(ctx, sessionID)
	ctx, span := b.tracer.Start(ctx, "bot.ask",
		trace.WithAttributes(telemetry.QuestionAttributes(sessionID, question)...))
	defer span.End()

	snap := b.current.Load()
	b.remember(ctx, sessionID, memory.RoleUser, question, nil)

	ans, outcome, err := b.answer(ctx, span, snap, question)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		b.metrics.RecordError(ctx, err, "bot")
		b.metrics.RecordQuestion(ctx, string(nlu.IntentUnknown), telemetry.OutcomeError)
		b.logger.ErrorContext(ctx, "bot.ask.error", slog.String("error", err.Error()))
		return nil, err
	}

	ans.SessionID = sessionID
	ans.Question = question
	ans.Elapsed = time.Since(start)
	span.SetAttributes(telemetry.OutcomeAttributes(string(ans.Intent), outcome, len(ans.Slots))...)
	b.metrics.RecordQuestion(ctx, string(ans.Intent), outcome)

	b.remember(ctx, sessionID, memory.RoleAssistant, ans.Text, map[string]string{
		"intent": string(ans.Intent),
		"source": string(ans.Source),
	})
	b.logger.InfoContext(ctx, "bot.ask.done",
		slog.String("intent", string(ans.Intent)),
		slog.String("source", string(ans.Source)),
		slog.Duration("elapsed", ans.Elapsed),
	)
	return ans, nil
}

func (b *Bot) answer(ctx context.Context, span trace.Span, snap *snapshot, question string) (*Answer, string, error) {
	if cached, ok := b.cache.GetAt(snap.gen, question); ok {
		span.SetAttributes(attribute.Bool(telemetry.AttrCacheHit, true))
		ans := *cached
		ans.Source = SourceCache
		return &ans, telemetry.OutcomeCached, nil
	}

	p := b.extract(ctx, snap, question)
	ans := &Answer{Intent: p.Intent, Slots: p.Slots}

	if b.qa != nil {
		hit, err := b.qa.Lookup(ctx, question, snap.scope(p))
		if err != nil {
			b.metrics.RecordError(ctx, err, "index")
			b.logger.WarnContext(ctx, "bot.index.lookup_error", slog.String("error", err.Error()))
		} else if hit != nil {
			ans.Source = SourceIndex
			ans.Text = hit.Answer
			ans.Score = hit.Score
			b.store(snap, question, ans)
			return ans, telemetry.OutcomeIndexed, nil
		}
	}

	res, err := b.resolve(ctx, p, snap.ds)
	if err == nil {
		ans.Source = SourceResolver
		ans.Result = res
		ans.Text = res.Summary
		b.store(snap, question, ans)
		return ans, telemetry.OutcomeResolved, nil
	}
	ans.Unresolved = unresolvedReason(err)

	ans.Source = SourceFallback
	if b.fallback == nil {
		ans.Text = fallback.NotEnoughData
		return ans, telemetry.OutcomeFallback, nil
	}

	fa, err := b.fallback.Answer(ctx, question, snap.ds)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, "", errors.New(errors.CodeContextLost, "request canceled", ctxErr)
	}
	if fa == nil {
		fa = &fallback.Answer{Text: fallback.NotEnoughData, Mode: b.fallback.Mode()}
	}
	ans.Fallback = fa
	ans.Text = fa.Text
	if err != nil {
		b.metrics.RecordError(ctx, err, "fallback")
		ans.ErrorCode = errors.CodeOf(err)
		return ans, telemetry.OutcomeFallback, nil
	}
	b.store(snap, question, ans)
	return ans, telemetry.OutcomeFallback, nil
}

func (b *Bot) extract(ctx context.Context, snap *snapshot, question string) nlu.Parse {
	_, span := b.tracer.Start(ctx, "nlu.extract")
	defer span.End()
	p := snap.ext.Extract(question)
	span.SetAttributes(attribute.String(telemetry.AttrIntent, string(p.Intent)),
		attribute.Int(telemetry.AttrSlotCount, len(p.Slots)))
	return p
}

func (b *Bot) resolve(ctx context.Context, p nlu.Parse, ds *dataset.Dataset) (*resolver.Result, error) {
	_, span := b.tracer.Start(ctx, "resolver.resolve",
		trace.WithAttributes(attribute.String(telemetry.AttrIntent, string(p.Intent))))
	defer span.End()

	res, err := resolver.ResolveParse(p, ds)
	if err != nil {
		span.SetAttributes(attribute.String(telemetry.AttrErrorCode, string(errors.CodeOf(err))))
		b.logger.DebugContext(ctx, "bot.resolve.unresolved",
			slog.String("intent", string(p.Intent)),
			slog.String("reason", err.Error()),
		)
	}
	return res, err
}

// store caches a copy of ans, since Ask still fills in per-request fields.
// Answers computed against a dataset that has since been replaced are not
// cached.
func (b *Bot) store(snap *snapshot, question string, ans *Answer) {
	c := *ans
	b.cache.PutAt(snap.gen, question, &c)
}

func unresolvedReason(err error) string {
	var ue *resolver.UnresolvedError
	if stderrors.As(err, &ue) && ue.Reason != nil {
		return ue.Reason.Error()
	}
	return err.Error()
}

func (b *Bot) remember(ctx context.Context, sessionID, role, content string, meta map[string]string) {
	msg := memory.ConversationMessage{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Role:      role,
		Content:   content,
		Metadata:  meta,
		CreatedAt: time.Now(),
	}
	if err := b.history.AppendMessage(ctx, sessionID, msg); err != nil {
		b.logger.WarnContext(ctx, "bot.history.store_error", slog.String("error", err.Error()))
	}
}
