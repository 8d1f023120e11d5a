package store

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/shellsync/shellsync/internal/models"
)

// InsertHistory records one command, idempotent on id: a second insert of
// the same id is a silent no-op rather than a conflict (spec §4.A, entries
// arrive from the daemon's outbox and may be replayed after a retry).
func (s *Store) InsertHistory(e models.HistoryEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertHistory(s.db, e)
}

func (s *Store) insertHistory(ex execer, e models.HistoryEntry) error {
	_, err := ex.Exec(`
		INSERT INTO history (id, command, cwd, exit_code, duration_ms, session_id, machine_id, hostname, timestamp, shell, group_name)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, e.ID, e.Command, e.Cwd, e.ExitCode, e.DurationMs, e.SessionID, e.MachineID, e.Hostname, e.Timestamp, e.Shell, e.GroupName)
	if err != nil {
		return fmt.Errorf("insert history entry: %w", err)
	}
	return nil
}

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	Exec(query string, args ...interface{}) (sql.Result, error)
}

// InsertHistoryBatch inserts entries transactionally, skipping any id
// already present, and returns the count actually inserted.
func (s *Store) InsertHistoryBatch(entries []models.HistoryEntry) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(entries) == 0 {
		return 0, nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("begin history batch: %w", err)
	}
	defer tx.Rollback()

	inserted := 0
	for _, e := range entries {
		res, err := tx.Exec(`
			INSERT INTO history (id, command, cwd, exit_code, duration_ms, session_id, machine_id, hostname, timestamp, shell, group_name)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO NOTHING
		`, e.ID, e.Command, e.Cwd, e.ExitCode, e.DurationMs, e.SessionID, e.MachineID, e.Hostname, e.Timestamp, e.Shell, e.GroupName)
		if err != nil {
			return 0, fmt.Errorf("insert history entry %s: %w", e.ID, err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			inserted++
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit history batch: %w", err)
	}
	return inserted, nil
}

// HistorySearchFilter narrows SearchHistory by any combination of fields;
// zero values are treated as "don't filter on this field".
type HistorySearchFilter struct {
	CommandSubstring string
	MachineID        string
	SessionID        string
	Cwd              string
	Limit            int
	Offset           int
}

// SearchHistory returns matching entries ordered by descending timestamp,
// paginated by Limit/Offset (spec §4.A, §12 supplemented pagination).
func (s *Store) SearchHistory(f HistorySearchFilter) ([]models.HistoryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var where []string
	var args []interface{}

	if f.CommandSubstring != "" {
		where = append(where, `command LIKE ? ESCAPE '\'`)
		args = append(args, "%"+escapeLike(f.CommandSubstring)+"%")
	}
	if f.MachineID != "" {
		where = append(where, "machine_id = ?")
		args = append(args, f.MachineID)
	}
	if f.SessionID != "" {
		where = append(where, "session_id = ?")
		args = append(args, f.SessionID)
	}
	if f.Cwd != "" {
		where = append(where, "cwd = ?")
		args = append(args, f.Cwd)
	}

	query := "SELECT id, command, cwd, exit_code, duration_ms, session_id, machine_id, hostname, timestamp, shell, group_name FROM history"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY timestamp DESC"

	limit := f.Limit
	if limit <= 0 {
		limit = 100
	}
	query += " LIMIT ? OFFSET ?"
	args = append(args, limit, f.Offset)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("search history: %w", err)
	}
	defer rows.Close()

	return scanHistory(rows)
}

// GetHistoryAfter returns entries for group with timestamp strictly after
// afterMs, ascending, capped at limit. Used for the history_page reply to
// an event-channel history_query and for GET /api/shell-history.
func (s *Store) GetHistoryAfter(group string, afterMs int64, limit int) ([]models.HistoryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if limit <= 0 {
		limit = 500
	}

	rows, err := s.db.Query(`
		SELECT id, command, cwd, exit_code, duration_ms, session_id, machine_id, hostname, timestamp, shell, group_name
		FROM history WHERE group_name = ? AND timestamp > ? ORDER BY timestamp ASC LIMIT ?
	`, group, afterMs, limit)
	if err != nil {
		return nil, fmt.Errorf("get history after: %w", err)
	}
	defer rows.Close()

	return scanHistory(rows)
}

func scanHistory(rows *sql.Rows) ([]models.HistoryEntry, error) {
	var out []models.HistoryEntry
	for rows.Next() {
		var e models.HistoryEntry
		if err := rows.Scan(&e.ID, &e.Command, &e.Cwd, &e.ExitCode, &e.DurationMs, &e.SessionID,
			&e.MachineID, &e.Hostname, &e.Timestamp, &e.Shell, &e.GroupName); err != nil {
			return nil, fmt.Errorf("scan history row: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// escapeLike escapes SQLite LIKE metacharacters so user-supplied substrings
// are matched literally.
func escapeLike(s string) string {
	r := strings.NewReplacer("\\", "\\\\", "%", "\\%", "_", "\\_")
	return r.Replace(s)
}
