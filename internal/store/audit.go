package store

import (
	"database/sql"
	"fmt"

	"github.com/shellsync/shellsync/internal/models"
)

// GetSyncAudit returns the most recent audit entries, newest first,
// bounded by limit (spec §4.D `GET /api/history?limit=`).
func (s *Store) GetSyncAudit(limit int) ([]models.SyncAuditEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if limit <= 0 {
		limit = 100
	}

	rows, err := s.db.Query(`
		SELECT id, timestamp, machine_id, action, alias_name, alias_command, group_name
		FROM sync_audit ORDER BY timestamp DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query sync audit: %w", err)
	}
	defer rows.Close()

	var out []models.SyncAuditEntry
	for rows.Next() {
		var e models.SyncAuditEntry
		var action string
		var aliasCommand, groupName sql.NullString
		if err := rows.Scan(&e.ID, &e.Timestamp, &e.MachineID, &action, &e.AliasName, &aliasCommand, &groupName); err != nil {
			return nil, fmt.Errorf("scan sync audit row: %w", err)
		}
		e.Action = models.SyncAuditAction(action)
		e.AliasCommand = aliasCommand.String
		e.GroupName = groupName.String
		out = append(out, e)
	}
	return out, rows.Err()
}
