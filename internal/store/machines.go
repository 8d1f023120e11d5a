package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/shellsync/shellsync/internal/models"
)

// RegisterMachine upserts a machine by machine_id. auth_token is written
// only on first insert and is never overwritten on conflict (spec §3,
// confirmed by SPEC_FULL.md §13 item 2).
func (s *Store) RegisterMachine(machineID, hostname string, groups []string, osType, authToken, publicKey string) (models.Machine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	groupsJSON, err := json.Marshal(groups)
	if err != nil {
		return models.Machine{}, fmt.Errorf("marshal groups: %w", err)
	}
	now := nowMs()

	tx, err := s.db.Begin()
	if err != nil {
		return models.Machine{}, fmt.Errorf("begin register: %w", err)
	}
	defer tx.Rollback()

	var existingToken string
	var createdAt int64
	err = tx.QueryRow(`SELECT auth_token, created_at FROM machines WHERE machine_id = ?`, machineID).
		Scan(&existingToken, &createdAt)

	switch {
	case err == sql.ErrNoRows:
		createdAt = now
		if _, err := tx.Exec(`
			INSERT INTO machines (machine_id, hostname, groups, os_type, auth_token, public_key, last_seen, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, machineID, hostname, string(groupsJSON), osType, authToken, publicKey, now, now); err != nil {
			return models.Machine{}, fmt.Errorf("insert machine: %w", err)
		}
		existingToken = authToken
	case err != nil:
		return models.Machine{}, fmt.Errorf("lookup machine: %w", err)
	default:
		if _, err := tx.Exec(`
			UPDATE machines SET hostname = ?, groups = ?, os_type = ?, public_key = ?, last_seen = ?
			WHERE machine_id = ?
		`, hostname, string(groupsJSON), osType, publicKey, now, machineID); err != nil {
			return models.Machine{}, fmt.Errorf("update machine: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return models.Machine{}, fmt.Errorf("commit register: %w", err)
	}

	return models.Machine{
		MachineID: machineID,
		Hostname:  hostname,
		Groups:    groups,
		OSType:    osType,
		AuthToken: existingToken,
		PublicKey: publicKey,
		LastSeen:  now,
		CreatedAt: createdAt,
	}, nil
}

// GetMachineByToken looks up a machine by bearer token.
func (s *Store) GetMachineByToken(token string) (*models.Machine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scanMachine(`SELECT machine_id, hostname, groups, os_type, auth_token, public_key, last_seen, created_at
		FROM machines WHERE auth_token = ?`, token)
}

// GetMachineByID looks up a machine by machine_id.
func (s *Store) GetMachineByID(machineID string) (*models.Machine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scanMachine(`SELECT machine_id, hostname, groups, os_type, auth_token, public_key, last_seen, created_at
		FROM machines WHERE machine_id = ?`, machineID)
}

func (s *Store) scanMachine(query string, arg string) (*models.Machine, error) {
	var m models.Machine
	var groupsJSON string
	var osType, publicKey sql.NullString

	err := s.db.QueryRow(query, arg).Scan(
		&m.MachineID, &m.Hostname, &groupsJSON, &osType, &m.AuthToken, &publicKey, &m.LastSeen, &m.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan machine: %w", err)
	}

	if err := json.Unmarshal([]byte(groupsJSON), &m.Groups); err != nil {
		return nil, fmt.Errorf("unmarshal groups: %w", err)
	}
	m.OSType = osType.String
	m.PublicKey = publicKey.String
	return &m, nil
}

// UpdateLastSeen is best-effort bookkeeping, called on every authenticated
// HTTP call and event-channel auth.
func (s *Store) UpdateLastSeen(machineID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(`UPDATE machines SET last_seen = ? WHERE machine_id = ?`, nowMs(), machineID)
	if err != nil {
		return fmt.Errorf("update last_seen: %w", err)
	}
	return nil
}

// GetAllMachines returns every registered machine.
func (s *Store) GetAllMachines() ([]models.Machine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(`SELECT machine_id, hostname, groups, os_type, auth_token, public_key, last_seen, created_at FROM machines`)
	if err != nil {
		return nil, fmt.Errorf("query machines: %w", err)
	}
	defer rows.Close()

	return scanMachines(rows)
}

// GetMachinesByGroup filters machines whose groups include group,
// filtering in-memory over the JSON-encoded group list (spec §4.A).
func (s *Store) GetMachinesByGroup(group string) ([]models.Machine, error) {
	all, err := s.GetAllMachines()
	if err != nil {
		return nil, err
	}
	var out []models.Machine
	for _, m := range all {
		if m.InGroup(group) {
			out = append(out, m)
		}
	}
	return out, nil
}

// GetMachinesByGroups returns the deduplicated set of machines whose
// groups intersect any of groups, excluding exclude if set. Used by the
// hub's fan-out policy (spec §4.H).
func (s *Store) GetMachinesByGroups(groups []string, exclude string) ([]models.Machine, error) {
	all, err := s.GetAllMachines()
	if err != nil {
		return nil, err
	}
	var out []models.Machine
	for _, m := range all {
		if m.MachineID == exclude {
			continue
		}
		if m.IntersectsGroups(groups) {
			out = append(out, m)
		}
	}
	return out, nil
}

func scanMachines(rows *sql.Rows) ([]models.Machine, error) {
	var out []models.Machine
	for rows.Next() {
		var m models.Machine
		var groupsJSON string
		var osType, publicKey sql.NullString
		if err := rows.Scan(&m.MachineID, &m.Hostname, &groupsJSON, &osType, &m.AuthToken, &publicKey, &m.LastSeen, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan machine row: %w", err)
		}
		if err := json.Unmarshal([]byte(groupsJSON), &m.Groups); err != nil {
			return nil, fmt.Errorf("unmarshal groups: %w", err)
		}
		m.OSType = osType.String
		m.PublicKey = publicKey.String
		out = append(out, m)
	}
	return out, rows.Err()
}
