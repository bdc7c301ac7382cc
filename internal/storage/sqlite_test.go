package storage

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open(:memory:) failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// TestMigrationsIdempotent runs Open twice on the same directory and verifies
// the migration count stays the same.
func TestMigrationsIdempotent(t *testing.T) {
	dir := t.TempDir()

	s1, err := Open(dir)
	if err != nil {
		t.Fatalf("first Open failed: %v", err)
	}
	v1, err := s1.appliedVersions()
	if err != nil {
		t.Fatalf("appliedVersions: %v", err)
	}
	s1.Close()

	s2, err := Open(dir)
	if err != nil {
		t.Fatalf("second Open failed: %v", err)
	}
	defer s2.Close()

	v2, err := s2.appliedVersions()
	if err != nil {
		t.Fatalf("appliedVersions: %v", err)
	}
	if len(v1) != len(v2) {
		t.Errorf("migration count changed: %d -> %d", len(v1), len(v2))
	}
}

func TestOpenAppliesPragmas(t *testing.T) {
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer s.Close()

	var mode string
	if err := s.db.QueryRow("PRAGMA journal_mode").Scan(&mode); err != nil {
		t.Fatalf("journal_mode: %v", err)
	}
	if mode != "wal" {
		t.Errorf("journal_mode = %q, want wal", mode)
	}
	var timeout int
	if err := s.db.QueryRow("PRAGMA busy_timeout").Scan(&timeout); err != nil {
		t.Fatalf("busy_timeout: %v", err)
	}
	if timeout != 5000 {
		t.Errorf("busy_timeout = %d, want 5000", timeout)
	}
}

func TestMigrationsOrdered(t *testing.T) {
	s := openTestStore(t)

	versions, err := s.appliedVersions()
	if err != nil {
		t.Fatalf("appliedVersions: %v", err)
	}
	if len(versions) != 2 {
		t.Fatalf("applied %d migrations, want 2", len(versions))
	}
	for i := 1; i < len(versions); i++ {
		if versions[i] <= versions[i-1] {
			t.Errorf("migrations not in ascending order: %v", versions)
		}
	}
}

func TestIndexesExist(t *testing.T) {
	s := openTestStore(t)

	for _, idx := range []string{"idx_interactions_created", "idx_interactions_session"} {
		var count int
		err := s.db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='index' AND name=?", idx).Scan(&count)
		if err != nil {
			t.Fatalf("querying sqlite_master for %q: %v", idx, err)
		}
		if count != 1 {
			t.Errorf("index %q not found in sqlite_master", idx)
		}
	}
}

func TestSaveAndGetInteraction(t *testing.T) {
	s := openTestStore(t)

	now := time.Now().UTC().Truncate(time.Millisecond)
	want := Interaction{
		SessionID:  "sess-1",
		CreatedAt:  now,
		Prompt:     "What is Go?",
		Response:   "A programming language.",
		TokenCount: 8,
		Model:      "llama3.2",
		ToolName:   "run_command",
		Attempts:   2,
		DurationMS: 1500,
	}
	saved, err := s.SaveInteraction(want)
	if err != nil {
		t.Fatalf("SaveInteraction: %v", err)
	}
	if saved.ID == "" {
		t.Fatal("SaveInteraction did not assign an ID")
	}
	if saved.Status != StatusCompleted {
		t.Errorf("Status = %q, want %q", saved.Status, StatusCompleted)
	}

	got, err := s.GetInteraction(saved.ID)
	if err != nil {
		t.Fatalf("GetInteraction: %v", err)
	}
	if !got.CreatedAt.Equal(now) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, now)
	}
	if got.Prompt != want.Prompt || got.Response != want.Response {
		t.Errorf("text mismatch: got %q/%q", got.Prompt, got.Response)
	}
	if got.TokenCount != 8 || got.Attempts != 2 || got.DurationMS != 1500 {
		t.Errorf("counters mismatch: %+v", got)
	}
	if got.ToolName != "run_command" || got.Model != "llama3.2" || got.SessionID != "sess-1" {
		t.Errorf("metadata mismatch: %+v", got)
	}
}

func TestGetInteractionNotFound(t *testing.T) {
	s := openTestStore(t)

	_, err := s.GetInteraction("missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("GetInteraction(missing) error = %v, want ErrNotFound", err)
	}
}

func TestListInteractions_NewestFirst(t *testing.T) {
	s := openTestStore(t)

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := range 5 {
		_, err := s.SaveInteraction(Interaction{
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
			Prompt:    fmt.Sprintf("p%d", i),
			Response:  "r",
		})
		if err != nil {
			t.Fatalf("SaveInteraction %d: %v", i, err)
		}
	}

	page, err := s.ListInteractions(2, 0)
	if err != nil {
		t.Fatalf("ListInteractions: %v", err)
	}
	if len(page) != 2 || page[0].Prompt != "p4" || page[1].Prompt != "p3" {
		t.Errorf("first page = %+v, want p4, p3", page)
	}

	page, err = s.ListInteractions(2, 4)
	if err != nil {
		t.Fatalf("ListInteractions: %v", err)
	}
	if len(page) != 1 || page[0].Prompt != "p0" {
		t.Errorf("last page = %+v, want p0", page)
	}

	n, err := s.CountInteractions()
	if err != nil {
		t.Fatalf("CountInteractions: %v", err)
	}
	if n != 5 {
		t.Errorf("CountInteractions() = %d, want 5", n)
	}
}

func TestSearchInteractions(t *testing.T) {
	s := openTestStore(t)

	for _, in := range []Interaction{
		{Prompt: "How do goroutines work?", Response: "They are lightweight threads."},
		{Prompt: "What is a channel?", Response: "A typed conduit between goroutines."},
		{Prompt: "Weather today", Response: "Sunny, 100% chance of fun."},
	} {
		if _, err := s.SaveInteraction(in); err != nil {
			t.Fatalf("SaveInteraction: %v", err)
		}
	}

	got, err := s.SearchInteractions("GOROUTINES", 10, 0)
	if err != nil {
		t.Fatalf("SearchInteractions: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("search goroutines returned %d rows, want 2", len(got))
	}

	got, err = s.SearchInteractions("channel goroutines", 10, 0)
	if err != nil {
		t.Fatalf("SearchInteractions: %v", err)
	}
	if len(got) != 1 || got[0].Prompt != "What is a channel?" {
		t.Errorf("search with two terms = %+v, want the channel row", got)
	}

	got, err = s.SearchInteractions("100%", 10, 0)
	if err != nil {
		t.Fatalf("SearchInteractions: %v", err)
	}
	if len(got) != 1 {
		t.Errorf("search for literal %% returned %d rows, want 1", len(got))
	}

	got, err = s.SearchInteractions("   ", 10, 0)
	if err != nil || got != nil {
		t.Errorf("blank search = %v, %v; want nil, nil", got, err)
	}
}

func TestSearchInteractionsPages(t *testing.T) {
	s := openTestStore(t)

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := range 5 {
		in := Interaction{Prompt: fmt.Sprintf("note %d", i), Response: "r", CreatedAt: base.Add(time.Duration(i) * time.Second)}
		if _, err := s.SaveInteraction(in); err != nil {
			t.Fatalf("SaveInteraction: %v", err)
		}
	}

	page, err := s.SearchInteractions("note", 2, 2)
	if err != nil {
		t.Fatalf("SearchInteractions: %v", err)
	}
	if len(page) != 2 || page[0].Prompt != "note 2" || page[1].Prompt != "note 1" {
		t.Errorf("page at offset 2 = %+v, want note 2, note 1", page)
	}
}

func TestDeleteAllInteractions(t *testing.T) {
	s := openTestStore(t)

	for range 3 {
		if _, err := s.SaveInteraction(Interaction{Prompt: "p", Response: "r"}); err != nil {
			t.Fatalf("SaveInteraction: %v", err)
		}
	}
	n, err := s.DeleteAllInteractions()
	if err != nil {
		t.Fatalf("DeleteAllInteractions: %v", err)
	}
	if n != 3 {
		t.Errorf("deleted %d rows, want 3", n)
	}
	count, _ := s.CountInteractions()
	if count != 0 {
		t.Errorf("CountInteractions() = %d after purge, want 0", count)
	}
}

func TestSessions(t *testing.T) {
	s := openTestStore(t)

	sess, err := s.StartSession("llama3.2")
	if err != nil {
		t.Fatalf("StartSession: %v", err)
	}
	if sess.ID == "" {
		t.Fatal("StartSession returned empty ID")
	}

	got, err := s.GetSession(sess.ID)
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if got.Model != "llama3.2" || got.EndedAt != nil {
		t.Errorf("GetSession = %+v, want open llama3.2 session", got)
	}

	if err := s.EndSession(sess.ID); err != nil {
		t.Fatalf("EndSession: %v", err)
	}
	got, _ = s.GetSession(sess.ID)
	if got.EndedAt == nil {
		t.Error("EndedAt not set after EndSession")
	}

	if err := s.EndSession("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("EndSession(missing) error = %v, want ErrNotFound", err)
	}
}
