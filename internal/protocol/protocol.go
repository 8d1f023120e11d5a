// Package protocol defines the event-channel wire frames exchanged
// between a daemon and the sync service (spec §4.E, §6). Frames are
// UTF-8 JSON objects; client→service frames are discriminated by "type",
// service→client frames by "event". Unknown tags are logged and ignored,
// not treated as a failure (spec §9 "Dynamic JSON at protocol edges").
package protocol

import "encoding/json"

// ClientMessageType enumerates the "type" discriminator values a daemon
// may send.
type ClientMessageType string

const (
	MsgAuth         ClientMessageType = "auth"
	MsgPing         ClientMessageType = "ping"
	MsgHistoryBatch ClientMessageType = "history_batch"
	MsgHistoryQuery ClientMessageType = "history_query"
	MsgKeyRequest   ClientMessageType = "key_request"
	MsgKeyResponse  ClientMessageType = "key_response"
)

// ServerEventType enumerates the "event" discriminator values the
// service may send.
type ServerEventType string

const (
	EventAuthSuccess    ServerEventType = "auth_success"
	EventAuthFailed     ServerEventType = "auth_failed"
	EventPong           ServerEventType = "pong"
	EventAliasAdded     ServerEventType = "alias_added"
	EventAliasUpdated   ServerEventType = "alias_updated"
	EventAliasDeleted   ServerEventType = "alias_deleted"
	EventSyncRequired   ServerEventType = "sync_required"
	EventHistorySync    ServerEventType = "history_sync"
	EventHistoryPage    ServerEventType = "history_page"
	EventKeyRequest     ServerEventType = "key_request"
	EventKeyResponse    ServerEventType = "key_response"
)

// ServerFrameEnvelope is a raw inbound server frame, read by a daemon,
// before its Data is dispatched by Event. Mirrors ClientFrame for the
// opposite direction of the same wire format.
type ServerFrameEnvelope struct {
	Event ServerEventType `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// UnmarshalServerFrame parses a length-delimited text frame sent by the
// service into its discriminator and raw data payload.
func UnmarshalServerFrame(data []byte) (ServerFrameEnvelope, error) {
	var envelope ServerFrameEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		return ServerFrameEnvelope{}, err
	}
	return envelope, nil
}

// ClientFrame is a raw inbound frame before its payload is dispatched by
// type. Handlers re-unmarshal Raw into the payload shape they expect.
type ClientFrame struct {
	Type ClientMessageType `json:"type"`
	Raw  json.RawMessage   `json:"-"`
}

// UnmarshalClientFrame parses a length-delimited text frame's body into
// its discriminator and keeps the full raw bytes for payload decoding.
func UnmarshalClientFrame(data []byte) (ClientFrame, error) {
	var peek struct {
		Type ClientMessageType `json:"type"`
	}
	if err := json.Unmarshal(data, &peek); err != nil {
		return ClientFrame{}, err
	}
	return ClientFrame{Type: peek.Type, Raw: data}, nil
}

// AuthPayload is the payload of a "type": "auth" frame.
type AuthPayload struct {
	Type  ClientMessageType `json:"type"`
	Token string            `json:"token"`
}

// HistoryBatchPayload is the payload of a "type": "history_batch" frame.
type HistoryBatchPayload struct {
	Type    ClientMessageType `json:"type"`
	Entries []json.RawMessage `json:"entries"`
}

// HistoryQueryPayload is the payload of a "type": "history_query" frame.
type HistoryQueryPayload struct {
	Type      ClientMessageType `json:"type"`
	Group     string            `json:"group"`
	After     int64             `json:"after_timestamp"`
	Limit     int               `json:"limit"`
}

// KeyRequestPayload is the payload of a "type": "key_request" frame.
type KeyRequestPayload struct {
	Type      ClientMessageType `json:"type"`
	Group     string            `json:"group"`
	PublicKey string            `json:"public_key"`
}

// KeyResponsePayload is the payload of a "type": "key_response" frame.
type KeyResponsePayload struct {
	Type              ClientMessageType `json:"type"`
	Group             string            `json:"group"`
	TargetMachineID   string            `json:"target_machine_id"`
	WrappedKey        string            `json:"wrapped_key"`
}

// ServerFrame is a generic outbound frame: {"event": ..., "data": ...}.
type ServerFrame struct {
	Event ServerEventType `json:"event"`
	Data  interface{}     `json:"data"`
}

// Encode serializes a ServerFrame to newline-free JSON bytes suitable for
// a single length-delimited text frame.
func (f ServerFrame) Encode() ([]byte, error) {
	return json.Marshal(f)
}

// AuthSuccessData is the payload of an "auth_success" event.
type AuthSuccessData struct {
	MachineID string   `json:"machine_id"`
	Groups    []string `json:"groups"`
}

// AuthFailedData is the payload of an "auth_failed" event.
type AuthFailedData struct {
	Error string `json:"error"`
}

// PongData is the payload of a "pong" event.
type PongData struct {
	Timestamp int64 `json:"timestamp"`
}

// HistorySyncData is the payload of a "history_sync" event.
type HistorySyncData struct {
	Entries        []json.RawMessage `json:"entries"`
	SourceMachineID string           `json:"source_machine_id"`
	Encrypted      bool              `json:"encrypted,omitempty"`
}

// HistoryPageData is the payload of a "history_page" event.
type HistoryPageData struct {
	Entries []json.RawMessage `json:"entries"`
	HasMore bool              `json:"has_more"`
}

// KeyRequestEventData is the payload of a relayed "key_request" event.
type KeyRequestEventData struct {
	GroupName         string `json:"group_name"`
	RequesterMachineID string `json:"requester_machine_id"`
	PublicKey         string `json:"public_key"`
}

// KeyResponseEventData is the payload of a relayed "key_response" event.
type KeyResponseEventData struct {
	GroupName       string `json:"group_name"`
	WrappedKey      string `json:"wrapped_key"`
	SenderPublicKey string `json:"sender_public_key"`
}
