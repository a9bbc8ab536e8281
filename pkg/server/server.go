// Copyright 2026 © The CEO Bot Authors
// SPDX-License-Identifier: Apache-2.0

// Package server exposes the bot over HTTP.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/qsrceo/ceobot/pkg/bot"
	"github.com/qsrceo/ceobot/pkg/dataset"
	"github.com/qsrceo/ceobot/pkg/memory"
)

// Bot is what the HTTP API needs from the bot.
type Bot interface {
	Ask(ctx context.Context, sessionID, question string) (*bot.Answer, error)
	History(ctx context.Context, sessionID string) ([]memory.ConversationMessage, error)
	ClearHistory(ctx context.Context, sessionID string) error
	Dataset() *dataset.Dataset
}

// Server routes HTTP requests to a Bot.
type Server struct {
	router  *gin.Engine
	bot     Bot
	version string
	logger  *slog.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithVersion is reported by /healthz.
func WithVersion(v string) Option {
	return func(s *Server) { s.version = v }
}

// WithLogger sets the request logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// New builds the router. Call gin.SetMode before New to change gin's mode.
func New(b Bot, opts ...Option) *Server {
	s := &Server{
		router: gin.New(),
		bot:    b,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.router.Use(gin.Recovery(), s.logRequests())
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.GET("/healthz", s.health)
	s.router.POST("/query", s.query)

	sessions := s.router.Group("/sessions")
	{
		sessions.GET("/:id/history", s.history)
		sessions.DELETE("/:id", s.clearSession)
	}
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

// Run serves on addr until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
	}()

	s.logger.Info("server.listening", slog.String("addr", addr))
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) logRequests() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.InfoContext(c.Request.Context(), "http.request",
			slog.String("method", c.Request.Method),
			slog.String("path", c.FullPath()),
			slog.Int("status", c.Writer.Status()),
			slog.Duration("elapsed", time.Since(start)),
		)
	}
}
