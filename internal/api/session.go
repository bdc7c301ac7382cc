// Package api exposes a running session over loopback HTTP and MCP.
package api

import (
	"context"

	"golang.org/x/sync/semaphore"

	"github.com/kalambet/memoraxx/internal/dispatch"
	"github.com/kalambet/memoraxx/internal/memory"
	"github.com/kalambet/memoraxx/internal/storage"
)

// MemoryView is the part of the conversation memory the surfaces read and clear.
type MemoryView interface {
	History() []memory.Interaction
	TotalTokens() int
	MaxTokens() int
	Len() int
	Clear()
}

// InteractionStore is the read side of the archive.
type InteractionStore interface {
	GetInteraction(id string) (storage.Interaction, error)
	ListInteractions(limit, offset int) ([]storage.Interaction, error)
	SearchInteractions(query string, limit, offset int) ([]storage.Interaction, error)
	CountInteractions() (int, error)
}

// Session serializes access to one dispatcher and its memory. Every caller,
// whether HTTP or MCP, waits its turn so at most one completion is in flight.
type Session struct {
	dispatcher *dispatch.Dispatcher
	memory     MemoryView
	sem        *semaphore.Weighted
}

// NewSession wraps a dispatcher and the memory it writes to.
func NewSession(d *dispatch.Dispatcher, m MemoryView) *Session {
	return &Session{dispatcher: d, memory: m, sem: semaphore.NewWeighted(1)}
}

// Dispatch routes line through the dispatcher once the session is free.
func (s *Session) Dispatch(ctx context.Context, line string) (dispatch.Outcome, error) {
	if err := s.sem.Acquire(ctx, 1); err != nil {
		return dispatch.Outcome{}, err
	}
	defer s.sem.Release(1)
	return s.dispatcher.Dispatch(ctx, line), nil
}

// ClearMemory empties the memory once no completion is running.
func (s *Session) ClearMemory(ctx context.Context) error {
	if err := s.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer s.sem.Release(1)
	s.memory.Clear()
	return nil
}

// Memory returns the session's memory.
func (s *Session) Memory() MemoryView { return s.memory }

// MemorySnapshot is the JSON view of the conversation memory.
type MemorySnapshot struct {
	MaxTokens    int                  `json:"max_tokens"`
	TotalTokens  int                  `json:"total_tokens"`
	Interactions []memory.Interaction `json:"interactions"`
}

func snapshot(m MemoryView) MemorySnapshot {
	history := m.History()
	if history == nil {
		history = []memory.Interaction{}
	}
	return MemorySnapshot{MaxTokens: m.MaxTokens(), TotalTokens: m.TotalTokens(), Interactions: history}
}
