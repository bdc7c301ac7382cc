package memory

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// words returns n space-separated words.
func words(n int) string {
	return strings.TrimSpace(strings.Repeat("w ", n))
}

func TestAppend_EvictsOldestFirst(t *testing.T) {
	s := New(10, "", nil)

	// "a b c" → 3 words → 4 tokens each.
	s.Append("first", "b c")
	s.Append("second", "b c")
	s.Append("third", "b c")

	h := s.History()
	if len(h) != 2 {
		t.Fatalf("len(History()) = %d, want 2", len(h))
	}
	if h[0].Prompt != "second" || h[1].Prompt != "third" {
		t.Errorf("History() prompts = %q, %q; want second, third", h[0].Prompt, h[1].Prompt)
	}
	if s.TotalTokens() != 8 {
		t.Errorf("TotalTokens() = %d, want 8", s.TotalTokens())
	}
}

func TestAppend_TokenCountIncludesSeparator(t *testing.T) {
	s := New(100, "", nil)
	got := s.Append("hello", "world")
	if got != 3 {
		t.Errorf("Append returned %d tokens, want 3", got)
	}
	if s.History()[0].TokenCount != 3 {
		t.Errorf("stored TokenCount = %d, want 3", s.History()[0].TokenCount)
	}
}

func TestAppend_BudgetInvariant(t *testing.T) {
	s := New(20, "", nil)
	for i := 1; i <= 30; i++ {
		s.Append(words(i%7+1), words(i%5))

		h := s.History()
		sum := 0
		for _, in := range h {
			sum += in.TokenCount
		}
		if sum != s.TotalTokens() {
			t.Fatalf("after append %d: sum %d != TotalTokens %d", i, sum, s.TotalTokens())
		}
		if s.TotalTokens() > s.MaxTokens() && len(h) != 1 {
			t.Fatalf("after append %d: total %d exceeds budget with %d interactions", i, s.TotalTokens(), len(h))
		}
	}
}

func TestAppend_OversizeEntryKept(t *testing.T) {
	s := New(5, "", nil)
	s.Append("small", "")
	s.Append(words(10), words(10))

	if s.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", s.Len())
	}
	if s.TotalTokens() <= s.MaxTokens() {
		t.Errorf("TotalTokens() = %d, want > %d", s.TotalTokens(), s.MaxTokens())
	}

	s.Append("next", "")
	h := s.History()
	if len(h) != 1 || h[0].Prompt != "next" {
		t.Errorf("after next append History() = %+v, want only 'next'", h)
	}
}

func TestHistory_ReturnsCopy(t *testing.T) {
	s := New(100, "", nil)
	s.Append("p", "r")
	h := s.History()
	h[0].Prompt = "mutated"
	if s.History()[0].Prompt != "p" {
		t.Error("History() exposed internal slice")
	}
}

func TestClear_PersistsEmptyState(t *testing.T) {
	path := filepath.Join(t.TempDir(), "memory.json")
	s := New(100, path, nil)
	s.Append("p", "r")
	if err := s.Persist(); err != nil {
		t.Fatalf("Persist: %v", err)
	}

	s.Clear()
	if s.Len() != 0 || s.TotalTokens() != 0 {
		t.Errorf("after Clear Len=%d Total=%d, want 0, 0", s.Len(), s.TotalTokens())
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading file: %v", err)
	}
	var records []record
	if err := json.Unmarshal(data, &records); err != nil {
		t.Fatalf("decoding file: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("persisted %d records after Clear, want 0", len(records))
	}
}

func TestPersistHydrate_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "memory.json")
	s := New(100, path, nil)
	s.Append("what is go", "a language")
	s.Append("who made it", "google")
	if err := s.Persist(); err != nil {
		t.Fatalf("Persist: %v", err)
	}

	data, _ := os.ReadFile(path)
	if !strings.Contains(string(data), "\n    {") {
		t.Errorf("memory file is not indented:\n%s", data)
	}

	loaded := New(100, path, nil)
	if err := loaded.Hydrate(); err != nil {
		t.Fatalf("Hydrate: %v", err)
	}
	got, want := loaded.History(), s.History()
	if len(got) != len(want) {
		t.Fatalf("hydrated %d interactions, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("interaction %d = %+v, want %+v", i, got[i], want[i])
		}
	}
	if loaded.TotalTokens() != s.TotalTokens() {
		t.Errorf("TotalTokens() = %d, want %d", loaded.TotalTokens(), s.TotalTokens())
	}
}

func TestHydrate_MissingFile(t *testing.T) {
	s := New(100, filepath.Join(t.TempDir(), "absent.json"), nil)
	if err := s.Hydrate(); err != nil {
		t.Fatalf("Hydrate on missing file: %v", err)
	}
	if s.Len() != 0 {
		t.Errorf("Len() = %d, want 0", s.Len())
	}
}

func TestHydrate_StopsAtBudget(t *testing.T) {
	path := filepath.Join(t.TempDir(), "memory.json")
	content := `[
		{"prompt": "a", "response": "1", "token_count": 4},
		{"prompt": "b", "response": "2", "token_count": 4},
		{"prompt": "c", "response": "3", "token_count": 4},
		{"prompt": "d", "response": "4", "token_count": 1}
	]`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	s := New(10, path, nil)
	if err := s.Hydrate(); err != nil {
		t.Fatalf("Hydrate: %v", err)
	}
	h := s.History()
	if len(h) != 2 {
		t.Fatalf("hydrated %d interactions, want 2", len(h))
	}
	if h[0].Prompt != "a" || h[1].Prompt != "b" {
		t.Errorf("hydrated prompts %q, %q; want a, b", h[0].Prompt, h[1].Prompt)
	}
	if s.TotalTokens() != 8 {
		t.Errorf("TotalTokens() = %d, want 8", s.TotalTokens())
	}
}

func TestHydrate_RecomputesMissingTokenCount(t *testing.T) {
	path := filepath.Join(t.TempDir(), "memory.json")
	content := `[{"prompt": "hello there", "response": "general kenobi"}]`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	s := New(100, path, nil)
	if err := s.Hydrate(); err != nil {
		t.Fatalf("Hydrate: %v", err)
	}
	// 4 words → round(5.2) = 5.
	if got := s.History()[0].TokenCount; got != 5 {
		t.Errorf("TokenCount = %d, want 5", got)
	}
}

func TestHydrate_Corrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "memory.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}
	s := New(100, path, nil)
	if err := s.Hydrate(); err == nil {
		t.Error("Hydrate on corrupt file returned nil error")
	}
	if s.Len() != 0 {
		t.Errorf("Len() = %d, want 0", s.Len())
	}
}

func TestPersist_Unwritable(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	if err := os.WriteFile(blocker, nil, 0o600); err != nil {
		t.Fatal(err)
	}
	s := New(100, filepath.Join(blocker, "memory.json"), nil)
	s.Append("p", "r")
	if err := s.Persist(); err == nil {
		t.Error("Persist under a regular file returned nil error")
	}
	// Clear must still succeed in memory.
	s.Clear()
	if s.Len() != 0 {
		t.Errorf("Len() = %d after Clear, want 0", s.Len())
	}
}

func TestNew_Defaults(t *testing.T) {
	s := New(0, "", nil)
	if s.MaxTokens() != DefaultMaxTokens {
		t.Errorf("MaxTokens() = %d, want %d", s.MaxTokens(), DefaultMaxTokens)
	}
	if err := s.Persist(); err != nil {
		t.Errorf("Persist with no path: %v", err)
	}
	if err := s.Hydrate(); err != nil {
		t.Errorf("Hydrate with no path: %v", err)
	}
}
