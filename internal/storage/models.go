package storage

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// Interaction statuses.
const (
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Interaction is one archived exchange. Unlike the in-memory history the
// archive is never trimmed to a token budget.
type Interaction struct {
	ID         string    `json:"id" yaml:"id"`
	SessionID  string    `json:"session_id" yaml:"session_id"`
	CreatedAt  time.Time `json:"created_at" yaml:"created_at"`
	Prompt     string    `json:"prompt" yaml:"prompt"`
	Response   string    `json:"response" yaml:"response"`
	TokenCount int       `json:"token_count" yaml:"token_count"`
	Model      string    `json:"model" yaml:"model"`
	Status     string    `json:"status" yaml:"status"`
	ToolName   string    `json:"tool_name,omitempty" yaml:"tool_name,omitempty"`
	Attempts   int       `json:"attempts" yaml:"attempts"`
	DurationMS int64     `json:"duration_ms" yaml:"duration_ms"`
}

// Session is one run of the interactive loop or server.
type Session struct {
	ID        string
	StartedAt time.Time
	Model     string
	EndedAt   *time.Time
}
