package crypto

import (
	"fmt"

	"github.com/shellsync/shellsync/internal/models"
)

// EncryptedAlias is the wire envelope for an alias whose command has been
// encrypted under its group's content key. Only command is encrypted;
// name stays plaintext so the shell file can list it (spec §4.B).
type EncryptedAlias struct {
	ID               int64  `json:"id"`
	Name             string `json:"name"`
	CommandCT        string `json:"command_ct"`
	GroupName        string `json:"group_name"`
	CreatedByMachine string `json:"created_by_machine"`
	CreatedAt        int64  `json:"created_at"`
	UpdatedAt        int64  `json:"updated_at"`
	Version          int64  `json:"version"`
	Nonce            string `json:"nonce"`
}

// EncryptAlias produces an EncryptedAlias from a plaintext Alias using
// the given group key.
func EncryptAlias(a models.Alias, groupKey [32]byte) (EncryptedAlias, error) {
	ct, nonce, err := EncryptString(groupKey, a.Command)
	if err != nil {
		return EncryptedAlias{}, fmt.Errorf("encrypt alias command: %w", err)
	}
	return EncryptedAlias{
		ID:               a.ID,
		Name:             a.Name,
		CommandCT:        ct,
		GroupName:        a.GroupName,
		CreatedByMachine: a.CreatedByMachine,
		CreatedAt:        a.CreatedAt,
		UpdatedAt:        a.UpdatedAt,
		Version:          a.Version,
		Nonce:            nonce,
	}, nil
}

// Decrypt reverses EncryptAlias.
func (e EncryptedAlias) Decrypt(groupKey [32]byte) (models.Alias, error) {
	command, err := DecryptString(groupKey, e.CommandCT, e.Nonce)
	if err != nil {
		return models.Alias{}, fmt.Errorf("decrypt alias command: %w", err)
	}
	return models.Alias{
		ID:               e.ID,
		Name:             e.Name,
		Command:          command,
		GroupName:        e.GroupName,
		CreatedByMachine: e.CreatedByMachine,
		CreatedAt:        e.CreatedAt,
		UpdatedAt:        e.UpdatedAt,
		Version:          e.Version,
	}, nil
}

// historyNonceCommand, historyNonceCwd, historyNonceExitCode,
// historyNonceDuration, historyNonceHostname index the 5-element Nonces
// array in EncryptedHistoryEntry (spec §9 "Crypto nonces per field").
const (
	historyNonceCommand = iota
	historyNonceCwd
	historyNonceExitCode
	historyNonceDuration
	historyNonceHostname
	historyNonceCount
)

// EncryptedHistoryEntry is the wire envelope for a history entry with
// command, cwd, exit_code, duration_ms, and hostname encrypted.
// session_id, machine_id, timestamp, shell, group_name stay plaintext
// for routing and ordering (spec §4.B).
type EncryptedHistoryEntry struct {
	ID             string    `json:"id"`
	CommandCT      string    `json:"command_ct"`
	CwdCT          string    `json:"cwd_ct"`
	ExitCodeCT     string    `json:"exit_code_ct"`
	DurationMsCT   string    `json:"duration_ms_ct"`
	SessionID      string    `json:"session_id"`
	MachineID      string    `json:"machine_id"`
	HostnameCT     string    `json:"hostname_ct"`
	Timestamp      int64     `json:"timestamp"`
	Shell          string    `json:"shell"`
	GroupName      string    `json:"group_name"`
	Nonces         [5]string `json:"nonces"`
}

// EncryptHistoryEntry produces an EncryptedHistoryEntry from a plaintext
// HistoryEntry using the given group key.
func EncryptHistoryEntry(h models.HistoryEntry, groupKey [32]byte) (EncryptedHistoryEntry, error) {
	var nonces [5]string

	commandCT, n, err := EncryptString(groupKey, h.Command)
	if err != nil {
		return EncryptedHistoryEntry{}, fmt.Errorf("encrypt command: %w", err)
	}
	nonces[historyNonceCommand] = n

	cwdCT, n, err := EncryptString(groupKey, h.Cwd)
	if err != nil {
		return EncryptedHistoryEntry{}, fmt.Errorf("encrypt cwd: %w", err)
	}
	nonces[historyNonceCwd] = n

	exitCodeCT, n, err := EncryptString(groupKey, fmt.Sprintf("%d", h.ExitCode))
	if err != nil {
		return EncryptedHistoryEntry{}, fmt.Errorf("encrypt exit_code: %w", err)
	}
	nonces[historyNonceExitCode] = n

	durationCT, n, err := EncryptString(groupKey, fmt.Sprintf("%d", h.DurationMs))
	if err != nil {
		return EncryptedHistoryEntry{}, fmt.Errorf("encrypt duration_ms: %w", err)
	}
	nonces[historyNonceDuration] = n

	hostnameCT, n, err := EncryptString(groupKey, h.Hostname)
	if err != nil {
		return EncryptedHistoryEntry{}, fmt.Errorf("encrypt hostname: %w", err)
	}
	nonces[historyNonceHostname] = n

	return EncryptedHistoryEntry{
		ID:           h.ID,
		CommandCT:    commandCT,
		CwdCT:        cwdCT,
		ExitCodeCT:   exitCodeCT,
		DurationMsCT: durationCT,
		SessionID:    h.SessionID,
		MachineID:    h.MachineID,
		HostnameCT:   hostnameCT,
		Timestamp:    h.Timestamp,
		Shell:        h.Shell,
		GroupName:    h.GroupName,
		Nonces:       nonces,
	}, nil
}

// Decrypt reverses EncryptHistoryEntry.
func (e EncryptedHistoryEntry) Decrypt(groupKey [32]byte) (models.HistoryEntry, error) {
	command, err := DecryptString(groupKey, e.CommandCT, e.Nonces[historyNonceCommand])
	if err != nil {
		return models.HistoryEntry{}, fmt.Errorf("decrypt command: %w", err)
	}
	cwd, err := DecryptString(groupKey, e.CwdCT, e.Nonces[historyNonceCwd])
	if err != nil {
		return models.HistoryEntry{}, fmt.Errorf("decrypt cwd: %w", err)
	}
	var exitCode int
	exitCodeStr, err := DecryptString(groupKey, e.ExitCodeCT, e.Nonces[historyNonceExitCode])
	if err != nil {
		return models.HistoryEntry{}, fmt.Errorf("decrypt exit_code: %w", err)
	}
	if _, err := fmt.Sscanf(exitCodeStr, "%d", &exitCode); err != nil {
		return models.HistoryEntry{}, fmt.Errorf("parse exit_code: %w", err)
	}
	var durationMs int64
	durationStr, err := DecryptString(groupKey, e.DurationMsCT, e.Nonces[historyNonceDuration])
	if err != nil {
		return models.HistoryEntry{}, fmt.Errorf("decrypt duration_ms: %w", err)
	}
	if _, err := fmt.Sscanf(durationStr, "%d", &durationMs); err != nil {
		return models.HistoryEntry{}, fmt.Errorf("parse duration_ms: %w", err)
	}
	hostname, err := DecryptString(groupKey, e.HostnameCT, e.Nonces[historyNonceHostname])
	if err != nil {
		return models.HistoryEntry{}, fmt.Errorf("decrypt hostname: %w", err)
	}

	return models.HistoryEntry{
		ID:         e.ID,
		Command:    command,
		Cwd:        cwd,
		ExitCode:   exitCode,
		DurationMs: durationMs,
		SessionID:  e.SessionID,
		MachineID:  e.MachineID,
		Hostname:   hostname,
		Timestamp:  e.Timestamp,
		Shell:      e.Shell,
		GroupName:  e.GroupName,
	}, nil
}
