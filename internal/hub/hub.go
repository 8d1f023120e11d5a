// Package hub implements the event channel: the persistent, bidirectional
// connection each daemon keeps open with the sync service (spec §4.E).
// It generalizes the teacher's SSE NotificationHub (internal/server in
// the teacher repo) from a one-way push of admin notifications to a
// full-duplex per-machine mailbox used for alias push, history sync, and
// key exchange relay.
package hub

import (
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/shellsync/shellsync/internal/protocol"
)

// mailboxCapacity bounds how many outbound frames queue for a machine that
// isn't currently draining its channel. A slow/stalled client drops frames
// rather than blocking the broadcaster, matching the teacher's notification
// hub (spec §4.H: fan-out is best-effort to connected machines).
const mailboxCapacity = 256

// mailbox is one connected machine's outbound frame queue.
type mailbox struct {
	machineID string
	frames    chan protocol.ServerFrame
}

// Hub tracks connected machines and routes frames to their mailboxes.
type Hub struct {
	mu        sync.RWMutex
	mailboxes map[string]*mailbox
	log       *logrus.Entry
}

// New creates an empty Hub.
func New() *Hub {
	return &Hub{
		mailboxes: make(map[string]*mailbox),
		log:       logrus.WithField("component", "hub"),
	}
}

// Register creates a mailbox for machineID and returns the channel a
// connection handler should drain to write frames to the wire. A second
// registration for the same machine (e.g. a reconnect racing a stale
// connection's teardown) replaces the previous mailbox.
func (h *Hub) Register(machineID string) <-chan protocol.ServerFrame {
	h.mu.Lock()
	defer h.mu.Unlock()

	mb := &mailbox{machineID: machineID, frames: make(chan protocol.ServerFrame, mailboxCapacity)}
	if old, ok := h.mailboxes[machineID]; ok {
		close(old.frames)
	}
	h.mailboxes[machineID] = mb

	h.log.WithField("machine_id", machineID).Debug("Machine connected to event channel")
	return mb.frames
}

// Unregister tears down machineID's mailbox, if it is still the one
// registered (a stale handler unregistering after a newer connection
// replaced it is a no-op).
func (h *Hub) Unregister(machineID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if mb, ok := h.mailboxes[machineID]; ok {
		close(mb.frames)
		delete(h.mailboxes, machineID)
		h.log.WithField("machine_id", machineID).Debug("Machine disconnected from event channel")
	}
}

// IsConnected reports whether machineID currently has a live mailbox.
func (h *Hub) IsConnected(machineID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.mailboxes[machineID]
	return ok
}

// ConnectionCount reports how many machines are currently connected.
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.mailboxes)
}

// Send delivers frame to machineID's mailbox, best-effort: a full or
// absent mailbox silently drops the frame rather than blocking the caller.
func (h *Hub) Send(machineID string, frame protocol.ServerFrame) bool {
	h.mu.RLock()
	mb, ok := h.mailboxes[machineID]
	h.mu.RUnlock()
	if !ok {
		return false
	}

	select {
	case mb.frames <- frame:
		return true
	default:
		h.log.WithFields(logrus.Fields{"machine_id": machineID, "event": frame.Event}).
			Warn("Mailbox full, dropping frame")
		return false
	}
}
