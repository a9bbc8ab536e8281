// Copyright 2026 © The CEO Bot Authors
// SPDX-License-Identifier: Apache-2.0

package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

type session struct {
	messages []ConversationMessage
	active   time.Time
}

// InMemoryConversation keeps session histories in process, dropping idle
// sessions and the least recently active ones beyond MaxSessions. Data is
// lost on restart.
type InMemoryConversation struct {
	mu       sync.RWMutex
	sessions map[string]*session
	config   ConversationConfig
	now      func() time.Time
}

// NewInMemoryConversation creates a new in-memory conversation store.
func NewInMemoryConversation(config ConversationConfig) *InMemoryConversation {
	return &InMemoryConversation{
		sessions: make(map[string]*session),
		config:   config,
		now:      time.Now,
	}
}

// AppendMessage adds msg to the session, filling its ID, session and time
// when unset.
func (m *InMemoryConversation) AppendMessage(_ context.Context, sessionID string, msg ConversationMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.SessionID == "" {
		msg.SessionID = sessionID
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = now
	}

	s, ok := m.sessions[sessionID]
	if !ok {
		m.evict(now)
		s = &session{}
		m.sessions[sessionID] = s
	}
	s.messages = append(s.messages, msg)
	s.active = now
	return nil
}

// evict drops idle sessions, then the least recently active ones until a
// new session fits. Callers hold the write lock.
func (m *InMemoryConversation) evict(now time.Time) {
	if m.config.IdleTimeout > 0 {
		for id, s := range m.sessions {
			if now.Sub(s.active) > m.config.IdleTimeout {
				delete(m.sessions, id)
			}
		}
	}
	for m.config.MaxSessions > 0 && len(m.sessions) >= m.config.MaxSessions {
		var oldest string
		for id, s := range m.sessions {
			if oldest == "" || s.active.Before(m.sessions[oldest].active) {
				oldest = id
			}
		}
		delete(m.sessions, oldest)
	}
}

func (m *InMemoryConversation) snapshot(sessionID string) []ConversationMessage {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[sessionID]
	if !ok || (m.config.IdleTimeout > 0 && m.now().Sub(s.active) > m.config.IdleTimeout) {
		return nil
	}
	return append([]ConversationMessage(nil), s.messages...)
}

// GetMessages returns the session's history after truncation.
func (m *InMemoryConversation) GetMessages(ctx context.Context, sessionID string) ([]ConversationMessage, error) {
	messages := m.snapshot(sessionID)
	if m.config.TruncationStrategy != nil && len(messages) > 0 {
		return m.config.TruncationStrategy.Truncate(ctx, messages)
	}
	return messages, nil
}

// GetRecentMessages returns the last limit messages; limit <= 0 returns all.
func (m *InMemoryConversation) GetRecentMessages(_ context.Context, sessionID string, limit int) ([]ConversationMessage, error) {
	messages := m.snapshot(sessionID)
	if limit > 0 && len(messages) > limit {
		messages = messages[len(messages)-limit:]
	}
	return messages, nil
}

// Clear removes a session.
func (m *InMemoryConversation) Clear(_ context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, sessionID)
	return nil
}

// ListSessions returns the session IDs with history, sorted.
func (m *InMemoryConversation) ListSessions() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// MessageCount returns the number of stored messages in a session.
func (m *InMemoryConversation) MessageCount(sessionID string) int {
	return len(m.snapshot(sessionID))
}
