// Copyright 2026 © The CEO Bot Authors
// SPDX-License-Identifier: Apache-2.0

package server

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/qsrceo/ceobot/pkg/bot"
	"github.com/qsrceo/ceobot/pkg/errors"
	"github.com/qsrceo/ceobot/pkg/export"
	"github.com/qsrceo/ceobot/pkg/fallback"
	"github.com/qsrceo/ceobot/pkg/memory"
	"github.com/qsrceo/ceobot/pkg/nlu"
	"github.com/qsrceo/ceobot/pkg/resolver"
)

type queryRequest struct {
	Question  string `json:"question"`
	SessionID string `json:"session_id"`
}

type queryResponse struct {
	SessionID  string             `json:"session_id"`
	Question   string             `json:"question"`
	Answer     string             `json:"answer"`
	Intent     nlu.Intent         `json:"intent"`
	Slots      nlu.Slots          `json:"slots,omitempty"`
	Source     bot.Source         `json:"source"`
	Result     *resolver.Result   `json:"result,omitempty"`
	Tables     []*resolver.Table  `json:"tables,omitempty"`
	Sources    []fallback.Passage `json:"sources,omitempty"`
	Mode       fallback.Mode      `json:"mode,omitempty"`
	Unresolved string             `json:"unresolved,omitempty"`
	ErrorCode  errors.ErrorCode   `json:"error_code,omitempty"`
	ElapsedMs  int64              `json:"elapsed_ms"`
}

type errorResponse struct {
	Error string           `json:"error"`
	Code  errors.ErrorCode `json:"code"`
}

type historyResponse struct {
	SessionID string                       `json:"session_id"`
	Messages  []memory.ConversationMessage `json:"messages"`
}

type healthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
	Source  string `json:"source,omitempty"`
	Rows    int    `json:"rows"`
	Stores  int    `json:"stores"`
	Latest  string `json:"latest_month,omitempty"`
}

func (s *Server) health(c *gin.Context) {
	resp := healthResponse{Status: "ok", Version: s.version}
	if ds := s.bot.Dataset(); ds != nil {
		resp.Source = ds.Report().Source
		resp.Rows = ds.Len()
		resp.Stores = len(ds.Stores())
		if periods := ds.Periods(); len(periods) > 0 {
			resp.Latest = periods[len(periods)-1].String()
		}
	}
	c.JSON(http.StatusOK, resp)
}

// query answers a question. ?format=csv|xlsx|text returns the answer as a
// download instead of JSON.
func (s *Server) query(c *gin.Context) {
	var req queryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, errors.New(errors.CodeInvalidInput, "invalid json", err))
		return
	}

	format := export.FormatJSON
	if f := c.Query("format"); f != "" {
		parsed, err := export.ParseFormat(f)
		if err != nil {
			writeError(c, err)
			return
		}
		format = parsed
	}

	ans, err := s.bot.Ask(c.Request.Context(), req.SessionID, req.Question)
	if err != nil {
		writeError(c, err)
		return
	}

	if format != export.FormatJSON {
		s.download(c, format, ans)
		return
	}
	c.JSON(http.StatusOK, toResponse(ans))
}

func toResponse(ans *bot.Answer) queryResponse {
	resp := queryResponse{
		SessionID:  ans.SessionID,
		Question:   ans.Question,
		Answer:     ans.Text,
		Intent:     ans.Intent,
		Slots:      ans.Slots,
		Source:     ans.Source,
		Result:     ans.Result,
		Tables:     ans.Tables(),
		Unresolved: ans.Unresolved,
		ErrorCode:  ans.ErrorCode,
		ElapsedMs:  ans.Elapsed.Milliseconds(),
	}
	if ans.Fallback != nil {
		resp.Sources = ans.Fallback.Sources
		resp.Mode = ans.Fallback.Mode
	}
	return resp
}

var contentTypes = map[export.Format]string{
	export.FormatText: "text/plain; charset=utf-8",
	export.FormatCSV:  "text/csv; charset=utf-8",
	export.FormatXLSX: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
}

var extensions = map[export.Format]string{
	export.FormatText: "txt",
	export.FormatCSV:  "csv",
	export.FormatXLSX: "xlsx",
}

func (s *Server) download(c *gin.Context, format export.Format, ans *bot.Answer) {
	var buf bytes.Buffer
	doc := export.Document{Question: ans.Question, Text: ans.Text, Tables: ans.Tables()}
	if err := export.Write(&buf, format, doc); err != nil {
		writeError(c, errors.New(errors.CodeInternal, "export failed", err))
		return
	}
	name := fmt.Sprintf("answer-%s.%s", time.Now().UTC().Format("20060102-150405"), extensions[format])
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	c.Header("X-Session-ID", ans.SessionID)
	c.Data(http.StatusOK, contentTypes[format], buf.Bytes())
}

func (s *Server) history(c *gin.Context) {
	id := c.Param("id")
	msgs, err := s.bot.History(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	if msgs == nil {
		msgs = []memory.ConversationMessage{}
	}
	c.JSON(http.StatusOK, historyResponse{SessionID: id, Messages: msgs})
}

func (s *Server) clearSession(c *gin.Context) {
	if err := s.bot.ClearHistory(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func writeError(c *gin.Context, err error) {
	be := errors.AsBotError(err)
	msg := be.Message
	if be.Code == errors.CodeInternal && be.Err != nil {
		msg = be.Err.Error()
	}
	status := be.StatusCode
	if status == 0 {
		status = http.StatusInternalServerError
	}
	c.JSON(status, errorResponse{Error: msg, Code: be.Code})
}
