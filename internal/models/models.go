// Package models defines the shared entities synchronized between the
// sync service and its daemons: machines, aliases, conflicts, the sync
// audit log, and shell-history records.
package models

// Machine is a registered node with a durable identity, a bearer token,
// and a group membership set.
type Machine struct {
	MachineID string   `json:"machine_id"`
	Hostname  string   `json:"hostname"`
	Groups    []string `json:"groups"`
	OSType    string   `json:"os_type,omitempty"`
	AuthToken string   `json:"auth_token,omitempty"`
	PublicKey string   `json:"public_key,omitempty"`
	LastSeen  int64    `json:"last_seen"`
	CreatedAt int64    `json:"created_at"`
}

// InGroup reports whether the machine is a member of the named group.
func (m *Machine) InGroup(group string) bool {
	for _, g := range m.Groups {
		if g == group {
			return true
		}
	}
	return false
}

// IntersectsGroups reports whether the machine belongs to any of groups.
func (m *Machine) IntersectsGroups(groups []string) bool {
	for _, g := range groups {
		if m.InGroup(g) {
			return true
		}
	}
	return false
}

// Alias is a named shell command scoped to a group.
type Alias struct {
	ID                int64  `json:"id"`
	Name              string `json:"name"`
	Command           string `json:"command"`
	GroupName         string `json:"group_name"`
	CreatedByMachine  string `json:"created_by_machine"`
	CreatedAt         int64  `json:"created_at"`
	UpdatedAt         int64  `json:"updated_at"`
	Version           int64  `json:"version"`
}

// Conflict records a disagreement between a machine's local alias version
// and the service's version at a point in time. Conflicts are advisory and
// never block writes.
type Conflict struct {
	ID             int64  `json:"id"`
	AliasName      string `json:"alias_name"`
	GroupName      string `json:"group_name"`
	LocalCommand   string `json:"local_command"`
	RemoteCommand  string `json:"remote_command"`
	MachineID      string `json:"machine_id"`
	CreatedAt      int64  `json:"created_at"`
	Resolved       bool   `json:"resolved"`
	Resolution     string `json:"resolution,omitempty"`
}

// SyncAuditAction enumerates the mutation kinds recorded in the audit log.
type SyncAuditAction string

const (
	AuditActionAdd    SyncAuditAction = "add"
	AuditActionUpdate SyncAuditAction = "update"
	AuditActionDelete SyncAuditAction = "delete"
)

// SyncAuditEntry is an append-only record of an alias mutation.
type SyncAuditEntry struct {
	ID            int64           `json:"id"`
	Timestamp     int64           `json:"timestamp"`
	MachineID     string          `json:"machine_id"`
	Action        SyncAuditAction `json:"action"`
	AliasName     string          `json:"alias_name"`
	AliasCommand  string          `json:"alias_command,omitempty"`
	GroupName     string          `json:"group_name,omitempty"`
}

// HistoryEntry is one shell command captured by a hook on some machine.
type HistoryEntry struct {
	ID         string `json:"id"`
	Command    string `json:"command"`
	Cwd        string `json:"cwd"`
	ExitCode   int    `json:"exit_code"`
	DurationMs int64  `json:"duration_ms"`
	SessionID  string `json:"session_id"`
	MachineID  string `json:"machine_id"`
	Hostname   string `json:"hostname"`
	Timestamp  int64  `json:"timestamp"`
	Shell      string `json:"shell"`
	GroupName  string `json:"group_name"`
}

// HistoryPending is a row in the daemon's local outbox of unsent history
// entries, removed after a successful batch upload.
type HistoryPending struct {
	ID        string `json:"id"`
	EntryJSON string `json:"entry_json"`
	CreatedAt int64  `json:"created_at"`
}

// OfflineQueueAction enumerates the write kinds the offline queue replays.
type OfflineQueueAction string

const (
	QueueActionAdd    OfflineQueueAction = "add"
	QueueActionDelete OfflineQueueAction = "delete"
	QueueActionSync   OfflineQueueAction = "sync"
)

// OfflineQueueEntry is one pending write recorded while the service was
// unreachable, drained in Seq order on next successful contact.
type OfflineQueueEntry struct {
	Seq       int64              `json:"seq"`
	Action    OfflineQueueAction `json:"action"`
	Payload   string             `json:"payload"`
	CreatedAt int64              `json:"created_at"`
}

// HookPayload is the newline-delimited JSON object a shell hook writes to
// the daemon's local stream socket (spec §6, hook-socket line format).
type HookPayload struct {
	Command    string `json:"command"`
	Cwd        string `json:"cwd"`
	ExitCode   int    `json:"exit_code"`
	DurationMs int64  `json:"duration_ms"`
	SessionID  string `json:"session_id"`
	Shell      string `json:"shell"`
}
