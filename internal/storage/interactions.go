package storage

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

// timeLayout is fixed-width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

const interactionColumns = `id, session_id, created_at, prompt, response, token_count, model, status, tool_name, attempts, duration_ms`

// NewID returns a time-sortable identifier for an archive row.
func NewID() string {
	return ulid.Make().String()
}

// SaveInteraction inserts i. Empty ID, CreatedAt and Status are filled in.
func (s *Store) SaveInteraction(i Interaction) (Interaction, error) {
	if i.ID == "" {
		i.ID = NewID()
	}
	if i.CreatedAt.IsZero() {
		i.CreatedAt = time.Now()
	}
	if i.Status == "" {
		i.Status = StatusCompleted
	}
	if i.Attempts == 0 {
		i.Attempts = 1
	}
	_, err := s.db.Exec(`
		INSERT INTO interactions (`+interactionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		i.ID, i.SessionID, i.CreatedAt.UTC().Format(timeLayout), i.Prompt, i.Response,
		i.TokenCount, i.Model, i.Status, i.ToolName, i.Attempts, i.DurationMS,
	)
	if err != nil {
		return Interaction{}, fmt.Errorf("saving interaction: %w", err)
	}
	return i, nil
}

// GetInteraction returns the interaction with the given ID or ErrNotFound.
func (s *Store) GetInteraction(id string) (Interaction, error) {
	row := s.db.QueryRow(`SELECT `+interactionColumns+` FROM interactions WHERE id = ?`, id)
	i, err := scanInteraction(row)
	if err == sql.ErrNoRows {
		return Interaction{}, ErrNotFound
	}
	return i, err
}

// ListInteractions returns archived interactions newest first.
func (s *Store) ListInteractions(limit, offset int) ([]Interaction, error) {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	rows, err := s.db.Query(`
		SELECT `+interactionColumns+`
		FROM interactions ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`, limit, offset,
	)
	if err != nil {
		return nil, err
	}
	return collectInteractions(rows)
}

// SearchInteractions returns interactions whose prompt or response contains
// every whitespace-separated term of query, case-insensitively, newest first.
// limit and offset page through the matches like ListInteractions.
func (s *Store) SearchInteractions(query string, limit, offset int) ([]Interaction, error) {
	terms := strings.Fields(query)
	if len(terms) == 0 {
		return nil, nil
	}
	if limit <= 0 {
		limit = 5
	}
	if offset < 0 {
		offset = 0
	}

	var where []string
	var args []any
	for _, term := range terms {
		pattern := "%" + escapeLike(strings.ToLower(term)) + "%"
		where = append(where, `(lower(prompt) LIKE ? ESCAPE '\' OR lower(response) LIKE ? ESCAPE '\')`)
		args = append(args, pattern, pattern)
	}
	args = append(args, limit, offset)

	rows, err := s.db.Query(`
		SELECT `+interactionColumns+`
		FROM interactions WHERE `+strings.Join(where, " AND ")+`
		ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`, args...,
	)
	if err != nil {
		return nil, err
	}
	return collectInteractions(rows)
}

// CountInteractions returns the number of archived interactions.
func (s *Store) CountInteractions() (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM interactions`).Scan(&n)
	return n, err
}

// DeleteAllInteractions purges the archive and returns the number of rows removed.
func (s *Store) DeleteAllInteractions() (int64, error) {
	res, err := s.db.Exec(`DELETE FROM interactions`)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanInteraction(r scanner) (Interaction, error) {
	var i Interaction
	var createdAt string
	if err := r.Scan(&i.ID, &i.SessionID, &createdAt, &i.Prompt, &i.Response, &i.TokenCount,
		&i.Model, &i.Status, &i.ToolName, &i.Attempts, &i.DurationMS); err != nil {
		return Interaction{}, err
	}
	t, err := time.Parse(timeLayout, createdAt)
	if err != nil {
		return Interaction{}, fmt.Errorf("parsing created_at: %w", err)
	}
	i.CreatedAt = t
	return i, nil
}

func collectInteractions(rows *sql.Rows) ([]Interaction, error) {
	defer rows.Close()

	var results []Interaction
	for rows.Next() {
		i, err := scanInteraction(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, i)
	}
	return results, rows.Err()
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
