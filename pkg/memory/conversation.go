// Copyright 2026 © The CEO Bot Authors
// SPDX-License-Identifier: Apache-2.0

package memory

import (
	"context"
	"time"
)

// Message roles in a session history.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ConversationMessage is one turn of a session.
type ConversationMessage struct {
	ID        string            `json:"id"`
	SessionID string            `json:"session_id"`
	Role      string            `json:"role"`
	Content   string            `json:"content"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

// ConversationMemory is an append-only, per-session message log.
type ConversationMemory interface {
	// AppendMessage adds a message to the session.
	AppendMessage(ctx context.Context, sessionID string, msg ConversationMessage) error

	// GetMessages returns the session's messages oldest first, after any
	// truncation strategy.
	GetMessages(ctx context.Context, sessionID string) ([]ConversationMessage, error)

	// GetRecentMessages returns the last limit messages.
	GetRecentMessages(ctx context.Context, sessionID string, limit int) ([]ConversationMessage, error)

	// Clear drops a session.
	Clear(ctx context.Context, sessionID string) error
}

// TruncationStrategy bounds what GetMessages returns.
type TruncationStrategy interface {
	Truncate(ctx context.Context, messages []ConversationMessage) ([]ConversationMessage, error)
}

// WindowStrategy keeps only the last MaxMessages messages.
type WindowStrategy struct {
	MaxMessages int
}

// NewWindowStrategy creates a window-based truncation strategy.
func NewWindowStrategy(maxMessages int) *WindowStrategy {
	return &WindowStrategy{MaxMessages: maxMessages}
}

// Truncate implements TruncationStrategy.
func (w *WindowStrategy) Truncate(_ context.Context, messages []ConversationMessage) ([]ConversationMessage, error) {
	if w.MaxMessages <= 0 || len(messages) <= w.MaxMessages {
		return messages, nil
	}
	return messages[len(messages)-w.MaxMessages:], nil
}

// ConversationConfig configures a conversation store.
type ConversationConfig struct {
	// TruncationStrategy applies when loading messages. Optional.
	TruncationStrategy TruncationStrategy
	// IdleTimeout drops sessions with no new message for this long.
	// Zero keeps them until cleared.
	IdleTimeout time.Duration
	// MaxSessions bounds how many sessions are kept; the least recently
	// active one is dropped first. Zero means no bound.
	MaxSessions int
}
