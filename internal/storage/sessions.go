package storage

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// StartSession records a new session for model and returns it.
func (s *Store) StartSession(model string) (Session, error) {
	sess := Session{
		ID:        uuid.New().String(),
		StartedAt: time.Now().UTC(),
		Model:     model,
	}
	_, err := s.db.Exec(`INSERT INTO sessions (id, started_at, model) VALUES (?, ?, ?)`,
		sess.ID, sess.StartedAt.Format(timeLayout), sess.Model)
	if err != nil {
		return Session{}, fmt.Errorf("starting session: %w", err)
	}
	return sess, nil
}

// EndSession stamps the session's end time.
func (s *Store) EndSession(id string) error {
	res, err := s.db.Exec(`UPDATE sessions SET ended_at = ? WHERE id = ?`,
		time.Now().UTC().Format(timeLayout), id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// GetSession returns the session with the given ID or ErrNotFound.
func (s *Store) GetSession(id string) (Session, error) {
	var sess Session
	var started string
	var ended sql.NullString
	err := s.db.QueryRow(`SELECT id, started_at, model, ended_at FROM sessions WHERE id = ?`, id).
		Scan(&sess.ID, &started, &sess.Model, &ended)
	if err == sql.ErrNoRows {
		return Session{}, ErrNotFound
	}
	if err != nil {
		return Session{}, err
	}
	if sess.StartedAt, err = time.Parse(timeLayout, started); err != nil {
		return Session{}, fmt.Errorf("parsing started_at: %w", err)
	}
	if ended.Valid {
		t, err := time.Parse(timeLayout, ended.String)
		if err != nil {
			return Session{}, fmt.Errorf("parsing ended_at: %w", err)
		}
		sess.EndedAt = &t
	}
	return sess, nil
}
