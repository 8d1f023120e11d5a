package hub

import (
	"github.com/shellsync/shellsync/internal/models"
	"github.com/shellsync/shellsync/internal/protocol"
)

// MachineLister resolves the recipient set for a fan-out broadcast. The
// store satisfies this directly via GetMachinesByGroups.
type MachineLister interface {
	GetMachinesByGroups(groups []string, exclude string) ([]models.Machine, error)
}

// BroadcastToGroups delivers frame to every currently-connected machine
// that belongs to any of groups, excluding excludeMachineID (typically the
// originator of the change). Delivery is best-effort: machines without a
// live mailbox are silently skipped (spec §4.H), grounded on
// original_source/crates/shell-sync-server/src/ws.rs's broadcast_to_groups.
func (h *Hub) BroadcastToGroups(store MachineLister, groups []string, excludeMachineID string, frame protocol.ServerFrame) (sent int, err error) {
	recipients, err := store.GetMachinesByGroups(groups, excludeMachineID)
	if err != nil {
		return 0, err
	}

	for _, m := range recipients {
		if h.Send(m.MachineID, frame) {
			sent++
		}
	}

	h.log.WithFields(map[string]interface{}{
		"event":     frame.Event,
		"targets":   len(recipients),
		"delivered": sent,
	}).Debug("Fan-out broadcast complete")

	return sent, nil
}
