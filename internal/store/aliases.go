package store

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/shellsync/shellsync/internal/models"
)

// AddAlias creates a new alias and appends a SyncAuditEntry in the same
// transactional scope (spec §4.A). Returns ErrConflict if (name,
// group_name) already exists.
func (s *Store) AddAlias(name, command, groupName, createdBy string) (models.Alias, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := nowMs()

	tx, err := s.db.Begin()
	if err != nil {
		return models.Alias{}, fmt.Errorf("begin add alias: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec(`
		INSERT INTO aliases (name, command, group_name, created_by_machine, created_at, updated_at, version)
		VALUES (?, ?, ?, ?, ?, ?, 1)
	`, name, command, groupName, createdBy, now, now)
	if err != nil {
		if isUniqueViolation(err) {
			return models.Alias{}, ErrConflict
		}
		return models.Alias{}, fmt.Errorf("insert alias: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return models.Alias{}, fmt.Errorf("last insert id: %w", err)
	}

	if err := appendAudit(tx, now, createdBy, models.AuditActionAdd, name, command, groupName); err != nil {
		return models.Alias{}, err
	}

	if err := tx.Commit(); err != nil {
		return models.Alias{}, fmt.Errorf("commit add alias: %w", err)
	}

	return models.Alias{
		ID: id, Name: name, Command: command, GroupName: groupName,
		CreatedByMachine: createdBy, CreatedAt: now, UpdatedAt: now, Version: 1,
	}, nil
}

// UpdateAlias replaces the command of the alias with id, incrementing its
// version (strictly monotonic, spec invariant 3).
func (s *Store) UpdateAlias(id int64, command, by string) (models.Alias, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := nowMs()

	tx, err := s.db.Begin()
	if err != nil {
		return models.Alias{}, fmt.Errorf("begin update alias: %w", err)
	}
	defer tx.Rollback()

	var name, groupName string
	if err := tx.QueryRow(`SELECT name, group_name FROM aliases WHERE id = ?`, id).Scan(&name, &groupName); err != nil {
		if err == sql.ErrNoRows {
			return models.Alias{}, ErrNotFound
		}
		return models.Alias{}, fmt.Errorf("lookup alias: %w", err)
	}

	res, err := tx.Exec(`UPDATE aliases SET command = ?, updated_at = ?, version = version + 1 WHERE id = ?`, command, now, id)
	if err != nil {
		return models.Alias{}, fmt.Errorf("update alias: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.Alias{}, ErrNotFound
	}

	if err := appendAudit(tx, now, by, models.AuditActionUpdate, name, command, groupName); err != nil {
		return models.Alias{}, err
	}

	if err := tx.Commit(); err != nil {
		return models.Alias{}, fmt.Errorf("commit update alias: %w", err)
	}

	return s.mustGetByID(id)
}

func (s *Store) mustGetByID(id int64) (models.Alias, error) {
	a, err := s.getByID(id)
	if err != nil {
		return models.Alias{}, err
	}
	if a == nil {
		return models.Alias{}, ErrNotFound
	}
	return *a, nil
}

// DeleteAlias removes the alias by id.
func (s *Store) DeleteAlias(id int64, by string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := nowMs()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin delete alias: %w", err)
	}
	defer tx.Rollback()

	var name, groupName string
	if err := tx.QueryRow(`SELECT name, group_name FROM aliases WHERE id = ?`, id).Scan(&name, &groupName); err != nil {
		if err == sql.ErrNoRows {
			return ErrNotFound
		}
		return fmt.Errorf("lookup alias: %w", err)
	}

	if _, err := tx.Exec(`DELETE FROM aliases WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete alias: %w", err)
	}

	if err := appendAudit(tx, now, by, models.AuditActionDelete, name, "", groupName); err != nil {
		return err
	}

	return tx.Commit()
}

// DeleteAliasByName removes the alias identified by its natural key.
func (s *Store) DeleteAliasByName(name, groupName, by string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := nowMs()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin delete alias: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec(`DELETE FROM aliases WHERE name = ? AND group_name = ?`, name, groupName)
	if err != nil {
		return fmt.Errorf("delete alias: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}

	if err := appendAudit(tx, now, by, models.AuditActionDelete, name, "", groupName); err != nil {
		return err
	}

	return tx.Commit()
}

// GetByID returns the alias with id, or nil if absent.
func (s *Store) GetByID(id int64) (*models.Alias, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getByID(id)
}

func (s *Store) getByID(id int64) (*models.Alias, error) {
	return scanOneAlias(s.db.QueryRow(`
		SELECT id, name, command, group_name, created_by_machine, created_at, updated_at, version
		FROM aliases WHERE id = ?`, id))
}

// GetByName returns the alias matching (name, group), or nil if absent.
func (s *Store) GetByName(name, group string) (*models.Alias, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return scanOneAlias(s.db.QueryRow(`
		SELECT id, name, command, group_name, created_by_machine, created_at, updated_at, version
		FROM aliases WHERE name = ? AND group_name = ?`, name, group))
}

// GetByGroups returns aliases in any of groups, ordered by name.
func (s *Store) GetByGroups(groups []string) ([]models.Alias, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(groups) == 0 {
		return nil, nil
	}

	placeholders := make([]byte, 0, len(groups)*2)
	args := make([]interface{}, 0, len(groups))
	for i, g := range groups {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
		args = append(args, g)
	}

	query := fmt.Sprintf(`
		SELECT id, name, command, group_name, created_by_machine, created_at, updated_at, version
		FROM aliases WHERE group_name IN (%s) ORDER BY name`, string(placeholders))

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query aliases by groups: %w", err)
	}
	defer rows.Close()

	return scanAliases(rows)
}

// GetAll returns every alias.
func (s *Store) GetAll() ([]models.Alias, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(`
		SELECT id, name, command, group_name, created_by_machine, created_at, updated_at, version
		FROM aliases ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("query all aliases: %w", err)
	}
	defer rows.Close()

	return scanAliases(rows)
}

func appendAudit(tx *sql.Tx, ts int64, machineID string, action models.SyncAuditAction, name, command, group string) error {
	_, err := tx.Exec(`
		INSERT INTO sync_audit (timestamp, machine_id, action, alias_name, alias_command, group_name)
		VALUES (?, ?, ?, ?, ?, ?)
	`, ts, machineID, string(action), name, command, group)
	if err != nil {
		return fmt.Errorf("append audit entry: %w", err)
	}
	return nil
}

func scanOneAlias(row *sql.Row) (*models.Alias, error) {
	var a models.Alias
	err := row.Scan(&a.ID, &a.Name, &a.Command, &a.GroupName, &a.CreatedByMachine, &a.CreatedAt, &a.UpdatedAt, &a.Version)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan alias: %w", err)
	}
	return &a, nil
}

func scanAliases(rows *sql.Rows) ([]models.Alias, error) {
	var out []models.Alias
	for rows.Next() {
		var a models.Alias
		if err := rows.Scan(&a.ID, &a.Name, &a.Command, &a.GroupName, &a.CreatedByMachine, &a.CreatedAt, &a.UpdatedAt, &a.Version); err != nil {
			return nil, fmt.Errorf("scan alias row: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// isUniqueViolation detects a UNIQUE constraint failure. modernc.org/sqlite
// surfaces these as plain errors wrapping SQLite's own constraint message
// rather than a typed error value.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
