package store

import (
	"database/sql"
	"fmt"

	"github.com/shellsync/shellsync/internal/models"
)

// CreateConflict records a disagreement between a machine's local alias
// version and the service's current version. Conflicts are advisory: the
// write that surfaced them already succeeded (spec §4.A, §7).
func (s *Store) CreateConflict(aliasName, groupName, localCommand, remoteCommand, machineID string) (models.Conflict, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := nowMs()

	res, err := s.db.Exec(`
		INSERT INTO conflicts (alias_name, group_name, local_command, remote_command, machine_id, created_at, resolved)
		VALUES (?, ?, ?, ?, ?, ?, 0)
	`, aliasName, groupName, localCommand, remoteCommand, machineID, now)
	if err != nil {
		return models.Conflict{}, fmt.Errorf("insert conflict: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return models.Conflict{}, fmt.Errorf("last insert id: %w", err)
	}

	return models.Conflict{
		ID: id, AliasName: aliasName, GroupName: groupName,
		LocalCommand: localCommand, RemoteCommand: remoteCommand,
		MachineID: machineID, CreatedAt: now, Resolved: false,
	}, nil
}

// GetUnresolvedByMachine returns the open conflicts surfaced to machineID,
// newest first.
func (s *Store) GetUnresolvedByMachine(machineID string) ([]models.Conflict, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(`
		SELECT id, alias_name, group_name, local_command, remote_command, machine_id, created_at, resolved, resolution
		FROM conflicts WHERE machine_id = ? AND resolved = 0 ORDER BY created_at DESC
	`, machineID)
	if err != nil {
		return nil, fmt.Errorf("query conflicts: %w", err)
	}
	defer rows.Close()

	var out []models.Conflict
	for rows.Next() {
		var c models.Conflict
		var resolution sql.NullString
		var resolved int
		if err := rows.Scan(&c.ID, &c.AliasName, &c.GroupName, &c.LocalCommand, &c.RemoteCommand,
			&c.MachineID, &c.CreatedAt, &resolved, &resolution); err != nil {
			return nil, fmt.Errorf("scan conflict row: %w", err)
		}
		c.Resolved = resolved != 0
		c.Resolution = resolution.String
		out = append(out, c)
	}
	return out, rows.Err()
}

// ResolveConflict marks a conflict resolved, recording how it was resolved
// (e.g. "kept_remote", "kept_local", "manual").
func (s *Store) ResolveConflict(id int64, resolution string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec(`UPDATE conflicts SET resolved = 1, resolution = ? WHERE id = ?`, resolution, id)
	if err != nil {
		return fmt.Errorf("resolve conflict: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("resolve conflict rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
