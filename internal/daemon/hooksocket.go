package daemon

import (
	"bufio"
	"encoding/json"
	"net"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/shellsync/shellsync/internal/models"
	"github.com/shellsync/shellsync/internal/store"
)

// hookSocket is the local stream socket a shell hook writes captured
// commands to, one newline-delimited JSON object per invocation (spec §6
// "hook-socket line format"), grounded on
// original_source/crates/shell-sync-client/src/socket_listener.rs.
type hookSocket struct {
	path      string
	machineID string
	hostname  string
	group     string
	store     *store.Store
	log       *logrus.Entry

	listener net.Listener
}

func newHookSocket(cfg Config, st *store.Store) *hookSocket {
	group := ""
	if len(cfg.Groups) > 0 {
		group = cfg.Groups[0]
	}
	return &hookSocket{
		path:      cfg.hookSocketPath(),
		machineID: cfg.MachineID,
		hostname:  cfg.Hostname,
		group:     group,
		store:     st,
		log:       logrus.WithField("component", "hook-socket"),
	}
}

// Listen binds the Unix domain socket at its fixed path with owner-only
// permissions, removing any stale socket left by an unclean shutdown.
func (h *hookSocket) Listen() error {
	if err := os.Remove(h.path); err != nil && !os.IsNotExist(err) {
		return err
	}

	l, err := net.Listen("unix", h.path)
	if err != nil {
		return err
	}
	if err := os.Chmod(h.path, 0o600); err != nil {
		l.Close()
		return err
	}

	h.listener = l
	return nil
}

// Serve accepts connections until the listener is closed, handling each
// on its own goroutine since a single hook invocation opens, writes one
// line, and closes.
func (h *hookSocket) Serve() {
	for {
		conn, err := h.listener.Accept()
		if err != nil {
			return
		}
		go h.handle(conn)
	}
}

// Close stops accepting connections and removes the socket file.
func (h *hookSocket) Close() error {
	if h.listener == nil {
		return nil
	}
	err := h.listener.Close()
	os.Remove(h.path)
	return err
}

func (h *hookSocket) handle(conn net.Conn) {
	defer conn.Close()

	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var payload models.HookPayload
		if err := json.Unmarshal(line, &payload); err != nil {
			h.log.WithError(err).Warn("Discarding malformed hook payload")
			continue
		}

		if err := h.record(payload); err != nil {
			h.log.WithError(err).Error("Failed to record hook payload")
		}
	}
}

// record stamps a raw hook payload into a full history entry and files
// it both in the local history table and the pending-push outbox (spec
// §4.F: captured entries are durable before any network attempt).
func (h *hookSocket) record(p models.HookPayload) error {
	entry := models.HistoryEntry{
		ID:         uuid.NewString(),
		Command:    p.Command,
		Cwd:        p.Cwd,
		ExitCode:   p.ExitCode,
		DurationMs: p.DurationMs,
		SessionID:  p.SessionID,
		MachineID:  h.machineID,
		Hostname:   h.hostname,
		Timestamp:  time.Now().UnixMilli(),
		Shell:      p.Shell,
		GroupName:  h.group,
	}

	if err := h.store.InsertHistory(entry); err != nil {
		return err
	}
	return h.store.EnqueuePending(entry)
}
