package hub

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shellsync/shellsync/internal/models"
	"github.com/shellsync/shellsync/internal/protocol"
)

// MachineStore is the subset of the state store a connection handler needs
// to authenticate and serve history frames.
type MachineStore interface {
	MachineLister
	GetMachineByToken(token string) (*models.Machine, error)
	UpdateLastSeen(machineID string) error
	InsertHistoryBatch(entries []models.HistoryEntry) (int, error)
	GetHistoryAfter(group string, afterMs int64, limit int) ([]models.HistoryEntry, error)
}

// Connection dispatches inbound client frames for one authenticated
// machine and writes replies to its own mailbox (relayed to the wire by
// the transport layer draining Register's channel).
type Connection struct {
	hub       *Hub
	store     MachineStore
	machineID string
	groups    []string
	publicKey string
}

// HandleAuth validates token and, on success, registers a mailbox and
// returns the Connection plus the reply frame to send immediately. The
// caller (the websocket/transport handler) is responsible for closing the
// connection on a failed auth.
func (h *Hub) HandleAuth(store MachineStore, payload protocol.AuthPayload) (*Connection, <-chan protocol.ServerFrame, protocol.ServerFrame, error) {
	m, err := store.GetMachineByToken(payload.Token)
	if err != nil {
		return nil, nil, protocol.ServerFrame{}, fmt.Errorf("lookup auth token: %w", err)
	}
	if m == nil {
		return nil, nil, protocol.ServerFrame{
			Event: protocol.EventAuthFailed,
			Data:  protocol.AuthFailedData{Error: "invalid token"},
		}, nil
	}

	if err := store.UpdateLastSeen(m.MachineID); err != nil {
		return nil, nil, protocol.ServerFrame{}, err
	}

	mailbox := h.Register(m.MachineID)

	c := &Connection{hub: h, store: store, machineID: m.MachineID, groups: m.Groups, publicKey: m.PublicKey}
	return c, mailbox, protocol.ServerFrame{
		Event: protocol.EventAuthSuccess,
		Data:  protocol.AuthSuccessData{MachineID: m.MachineID, Groups: m.Groups},
	}, nil
}

// Close tears down the connection's mailbox.
func (c *Connection) Close() {
	c.hub.Unregister(c.machineID)
}

// MachineID returns the authenticated machine this connection belongs to.
func (c *Connection) MachineID() string {
	return c.machineID
}

// Dispatch handles one post-auth inbound frame and returns the direct
// reply, if any (some frame types, like history_batch, also trigger a
// fan-out broadcast that Dispatch performs itself before returning).
func (c *Connection) Dispatch(frame protocol.ClientFrame) (*protocol.ServerFrame, error) {
	switch frame.Type {
	case protocol.MsgPing:
		reply := protocol.ServerFrame{Event: protocol.EventPong, Data: protocol.PongData{Timestamp: time.Now().UnixMilli()}}
		return &reply, nil

	case protocol.MsgHistoryBatch:
		var payload protocol.HistoryBatchPayload
		if err := json.Unmarshal(frame.Raw, &payload); err != nil {
			return nil, fmt.Errorf("unmarshal history_batch: %w", err)
		}
		return c.handleHistoryBatch(payload)

	case protocol.MsgHistoryQuery:
		var payload protocol.HistoryQueryPayload
		if err := json.Unmarshal(frame.Raw, &payload); err != nil {
			return nil, fmt.Errorf("unmarshal history_query: %w", err)
		}
		return c.handleHistoryQuery(payload)

	case protocol.MsgKeyRequest:
		var payload protocol.KeyRequestPayload
		if err := json.Unmarshal(frame.Raw, &payload); err != nil {
			return nil, fmt.Errorf("unmarshal key_request: %w", err)
		}
		return nil, c.relayKeyRequest(payload)

	case protocol.MsgKeyResponse:
		var payload protocol.KeyResponsePayload
		if err := json.Unmarshal(frame.Raw, &payload); err != nil {
			return nil, fmt.Errorf("unmarshal key_response: %w", err)
		}
		return nil, c.relayKeyResponse(payload)

	default:
		// Unknown frame types are logged and ignored, not a protocol error
		// (spec §9 "Dynamic JSON at protocol edges").
		c.hub.log.WithField("type", frame.Type).Warn("Ignoring unknown frame type")
		return nil, nil
	}
}

func (c *Connection) handleHistoryBatch(payload protocol.HistoryBatchPayload) (*protocol.ServerFrame, error) {
	entries := make([]models.HistoryEntry, 0, len(payload.Entries))
	for _, raw := range payload.Entries {
		var e models.HistoryEntry
		if err := json.Unmarshal(raw, &e); err != nil {
			return nil, fmt.Errorf("unmarshal history entry: %w", err)
		}
		entries = append(entries, e)
	}

	if _, err := c.store.InsertHistoryBatch(entries); err != nil {
		return nil, err
	}

	if len(entries) > 0 {
		groups := map[string]struct{}{}
		for _, e := range entries {
			groups[e.GroupName] = struct{}{}
		}
		groupList := make([]string, 0, len(groups))
		for g := range groups {
			groupList = append(groupList, g)
		}

		rawEntries := make([]json.RawMessage, 0, len(payload.Entries))
		rawEntries = append(rawEntries, payload.Entries...)

		frame := protocol.ServerFrame{
			Event: protocol.EventHistorySync,
			Data:  protocol.HistorySyncData{Entries: rawEntries, SourceMachineID: c.machineID, Encrypted: true},
		}
		if _, err := c.hub.BroadcastToGroups(c.store, groupList, c.machineID, frame); err != nil {
			return nil, err
		}
	}

	return nil, nil
}

func (c *Connection) handleHistoryQuery(payload protocol.HistoryQueryPayload) (*protocol.ServerFrame, error) {
	limit := payload.Limit
	if limit <= 0 {
		limit = 500
	}
	entries, err := c.store.GetHistoryAfter(payload.Group, payload.After, limit+1)
	if err != nil {
		return nil, err
	}

	hasMore := len(entries) > limit
	if hasMore {
		entries = entries[:limit]
	}

	raw := make([]json.RawMessage, 0, len(entries))
	for _, e := range entries {
		b, err := json.Marshal(e)
		if err != nil {
			return nil, fmt.Errorf("marshal history entry: %w", err)
		}
		raw = append(raw, b)
	}

	reply := protocol.ServerFrame{Event: protocol.EventHistoryPage, Data: protocol.HistoryPageData{Entries: raw, HasMore: hasMore}}
	return &reply, nil
}

func (c *Connection) relayKeyRequest(payload protocol.KeyRequestPayload) error {
	frame := protocol.ServerFrame{
		Event: protocol.EventKeyRequest,
		Data: protocol.KeyRequestEventData{
			GroupName:          payload.Group,
			RequesterMachineID: c.machineID,
			PublicKey:          payload.PublicKey,
		},
	}
	_, err := c.hub.BroadcastToGroups(c.store, []string{payload.Group}, c.machineID, frame)
	return err
}

func (c *Connection) relayKeyResponse(payload protocol.KeyResponsePayload) error {
	frame := protocol.ServerFrame{
		Event: protocol.EventKeyResponse,
		Data: protocol.KeyResponseEventData{
			GroupName:       payload.Group,
			WrappedKey:      payload.WrappedKey,
			SenderPublicKey: c.publicKey,
		},
	}
	c.hub.Send(payload.TargetMachineID, frame)
	return nil
}
