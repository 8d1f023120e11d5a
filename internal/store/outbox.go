package store

import (
	"encoding/json"
	"fmt"

	"github.com/shellsync/shellsync/internal/models"
)

// EnqueuePending records a captured history entry in the daemon's pending
// outbox, to be drained by the history-push loop (spec §4.F). Insert is
// idempotent on id, matching the history table itself.
func (s *Store) EnqueuePending(e models.HistoryEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	body, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal pending entry: %w", err)
	}

	_, err = s.db.Exec(`
		INSERT INTO history_pending (id, entry_json, created_at) VALUES (?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, e.ID, string(body), e.Timestamp)
	if err != nil {
		return fmt.Errorf("enqueue pending history: %w", err)
	}
	return nil
}

// DrainPending returns up to limit pending entries in insertion order,
// oldest first, without removing them (spec §4.F: "drains up to B entries").
func (s *Store) DrainPending(limit int) ([]models.HistoryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.Query(`SELECT id, entry_json FROM history_pending ORDER BY created_at ASC, id ASC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query pending history: %w", err)
	}
	defer rows.Close()

	var out []models.HistoryEntry
	for rows.Next() {
		var id, body string
		if err := rows.Scan(&id, &body); err != nil {
			return nil, fmt.Errorf("scan pending history row: %w", err)
		}
		var e models.HistoryEntry
		if err := json.Unmarshal([]byte(body), &e); err != nil {
			return nil, fmt.Errorf("unmarshal pending history entry %s: %w", id, err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// RemovePending deletes drained entries from the outbox by id, called only
// after their history_batch frame has been handed to the event channel
// (spec §5 Ordering: "History-batch drains remove outbox rows only after
// the send has been enqueued").
func (s *Store) RemovePending(ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(ids) == 0 {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin remove pending: %w", err)
	}
	defer tx.Rollback()

	for _, id := range ids {
		if _, err := tx.Exec(`DELETE FROM history_pending WHERE id = ?`, id); err != nil {
			return fmt.Errorf("remove pending entry %s: %w", id, err)
		}
	}
	return tx.Commit()
}

// PendingCount reports how many history entries await their next push.
func (s *Store) PendingCount() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var count int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM history_pending`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count pending history: %w", err)
	}
	return count, nil
}
