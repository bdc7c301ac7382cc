// Package memory holds the token-bounded conversation history and its
// file-backed persistence.
package memory

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/kalambet/memoraxx/internal/textmetrics"
)

// DefaultMaxTokens is the token budget used when none is configured.
const DefaultMaxTokens = 4000

// Interaction is one prompt/response exchange. TokenCount is fixed when the
// interaction enters the store.
type Interaction struct {
	Prompt     string `json:"prompt"`
	Response   string `json:"response"`
	TokenCount int    `json:"token_count"`
}

// record is the on-disk shape. TokenCount is a pointer so files written
// before token accounting existed can be detected and recomputed.
type record struct {
	Prompt     string `json:"prompt"`
	Response   string `json:"response"`
	TokenCount *int   `json:"token_count,omitempty"`
}

// Store is an ordered, token-budgeted history of interactions, oldest first.
// After every Append the total token count is at most the budget, unless
// the only remaining interaction is larger than the budget on its own.
type Store struct {
	mu           sync.RWMutex
	interactions []Interaction
	totalTokens  int
	maxTokens    int
	path         string
	count        textmetrics.Counter
}

// New creates an empty Store. A maxTokens <= 0 selects DefaultMaxTokens,
// a nil counter selects textmetrics.ApproximateTokenCount, and an empty
// path disables persistence.
func New(maxTokens int, path string, counter textmetrics.Counter) *Store {
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	if counter == nil {
		counter = textmetrics.ApproximateTokenCount
	}
	return &Store{maxTokens: maxTokens, path: path, count: counter}
}

// Append records an exchange and evicts the oldest interactions until the
// store fits the budget again. It returns the token count assigned to the
// new interaction.
func (s *Store) Append(prompt, response string) int {
	tokens := s.count(prompt + " " + response)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.interactions = append(s.interactions, Interaction{
		Prompt:     prompt,
		Response:   response,
		TokenCount: tokens,
	})
	s.totalTokens += tokens

	evicted := 0
	for s.totalTokens > s.maxTokens && len(s.interactions) > 1 {
		s.totalTokens -= s.interactions[0].TokenCount
		s.interactions = s.interactions[1:]
		evicted++
	}
	if evicted > 0 {
		slog.Debug("memory evicted interactions", "count", evicted, "total_tokens", s.totalTokens)
	}
	return tokens
}

// History returns a copy of the current interactions, oldest first.
func (s *Store) History() []Interaction {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Interaction, len(s.interactions))
	copy(out, s.interactions)
	return out
}

// TotalTokens returns the sum of the held interactions' token counts.
func (s *Store) TotalTokens() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.totalTokens
}

// MaxTokens returns the configured budget.
func (s *Store) MaxTokens() int { return s.maxTokens }

// Len returns the number of held interactions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.interactions)
}

// Path returns the persistence file path, or "" when persistence is off.
func (s *Store) Path() string { return s.path }

// Clear empties the store and persists the empty state. A persistence
// failure is logged and does not undo the clear.
func (s *Store) Clear() {
	s.mu.Lock()
	s.interactions = nil
	s.totalTokens = 0
	s.mu.Unlock()

	if err := s.Persist(); err != nil {
		slog.Warn("persisting cleared memory", "path", s.path, "error", err)
	}
}

// Persist writes the interactions to the store's file as an indented JSON
// array. The file is replaced atomically.
func (s *Store) Persist() error {
	if s.path == "" {
		return nil
	}

	s.mu.RLock()
	records := make([]record, len(s.interactions))
	for i, in := range s.interactions {
		tc := in.TokenCount
		records[i] = record{Prompt: in.Prompt, Response: in.Response, TokenCount: &tc}
	}
	s.mu.RUnlock()

	data, err := json.MarshalIndent(records, "", "    ")
	if err != nil {
		return fmt.Errorf("encoding memory: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("creating memory directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".memory-*.json")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing memory: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing memory file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replacing memory file: %w", err)
	}
	return nil
}

// Hydrate replaces the store's contents with the records in its file.
// Records are admitted oldest first and loading stops at the first record
// that would push the total past the budget. A missing file leaves the
// store empty and is not an error. Records without a token count get one
// computed from their text.
func (s *Store) Hydrate() error {
	if s.path == "" {
		return nil
	}

	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading memory file: %w", err)
	}

	var records []record
	if err := json.Unmarshal(data, &records); err != nil {
		return fmt.Errorf("decoding memory file: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.interactions = nil
	s.totalTokens = 0
	for _, r := range records {
		var tokens int
		if r.TokenCount != nil {
			tokens = *r.TokenCount
		} else {
			tokens = s.count(r.Prompt + " " + r.Response)
		}
		if s.totalTokens+tokens > s.maxTokens {
			slog.Debug("memory hydrate stopped at budget",
				"loaded", len(s.interactions), "skipped", len(records)-len(s.interactions))
			break
		}
		s.interactions = append(s.interactions, Interaction{
			Prompt:     r.Prompt,
			Response:   r.Response,
			TokenCount: tokens,
		})
		s.totalTokens += tokens
	}
	return nil
}
