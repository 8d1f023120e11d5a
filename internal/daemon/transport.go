package daemon

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/shellsync/shellsync/internal/protocol"
)

// channelHandler receives dispatched server events from a transport's
// read loop. daemon implements this to drive the reconcile path (spec
// §4.F, §4.I idempotent reconcile).
type channelHandler interface {
	onAliasEvent(event protocol.ServerEventType)
	onSyncRequired()
	onHistorySync(data protocol.HistorySyncData)
	onKeyRequest(data protocol.KeyRequestEventData)
	onKeyResponse(data protocol.KeyResponseEventData)
}

// transport owns one websocket connection to the sync service's event
// channel and serializes writes across the push loop, the ping ticker,
// and key-exchange replies (spec §4.E). Reads happen only on the loop
// goroutine started by runReadLoop.
type transport struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
	log     *logrus.Entry
}

// dialChannel opens the websocket, sends the auth frame, and blocks for
// the first reply. The caller drives the Connecting -> Authenticating ->
// Connected transition; a non-auth_success reply or dial failure is
// returned as an error so the caller can fall back to reconnect-with-backoff.
func dialChannel(ctx context.Context, serverURL, authToken string) (*transport, protocol.AuthSuccessData, error) {
	wsURL := toWebsocketURL(serverURL) + "/api/channel"

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return nil, protocol.AuthSuccessData{}, fmt.Errorf("dial event channel: %w", err)
	}

	t := &transport{conn: conn, log: logrus.WithField("component", "daemon-transport")}

	if err := t.writeClientFrame(protocol.AuthPayload{Type: protocol.MsgAuth, Token: authToken}); err != nil {
		conn.Close()
		return nil, protocol.AuthSuccessData{}, fmt.Errorf("send auth frame: %w", err)
	}

	_, raw, err := conn.ReadMessage()
	if err != nil {
		conn.Close()
		return nil, protocol.AuthSuccessData{}, fmt.Errorf("read auth reply: %w", err)
	}

	envelope, err := protocol.UnmarshalServerFrame(raw)
	if err != nil {
		conn.Close()
		return nil, protocol.AuthSuccessData{}, fmt.Errorf("decode auth reply: %w", err)
	}
	if envelope.Event != protocol.EventAuthSuccess {
		conn.Close()
		var failed protocol.AuthFailedData
		_ = json.Unmarshal(envelope.Data, &failed)
		return nil, protocol.AuthSuccessData{}, fmt.Errorf("authentication rejected: %s", failed.Error)
	}

	var success protocol.AuthSuccessData
	if err := json.Unmarshal(envelope.Data, &success); err != nil {
		conn.Close()
		return nil, protocol.AuthSuccessData{}, fmt.Errorf("decode auth_success data: %w", err)
	}

	return t, success, nil
}

// runReadLoop blocks reading frames and dispatching them to handler until
// the connection errs or closes. It returns the error that ended the loop
// so the caller can decide whether to reconnect.
func (t *transport) runReadLoop(handler channelHandler) error {
	for {
		_, raw, err := t.conn.ReadMessage()
		if err != nil {
			return err
		}

		envelope, err := protocol.UnmarshalServerFrame(raw)
		if err != nil {
			t.log.WithError(err).Warn("Dropping malformed server frame")
			continue
		}

		switch envelope.Event {
		case protocol.EventPong:
			// No action needed; receiving any frame already proves liveness.

		case protocol.EventAliasAdded, protocol.EventAliasUpdated, protocol.EventAliasDeleted:
			handler.onAliasEvent(envelope.Event)

		case protocol.EventSyncRequired:
			handler.onSyncRequired()

		case protocol.EventHistorySync:
			var data protocol.HistorySyncData
			if err := json.Unmarshal(envelope.Data, &data); err != nil {
				t.log.WithError(err).Warn("Dropping malformed history_sync data")
				continue
			}
			handler.onHistorySync(data)

		case protocol.EventKeyRequest:
			var data protocol.KeyRequestEventData
			if err := json.Unmarshal(envelope.Data, &data); err != nil {
				t.log.WithError(err).Warn("Dropping malformed key_request data")
				continue
			}
			handler.onKeyRequest(data)

		case protocol.EventKeyResponse:
			var data protocol.KeyResponseEventData
			if err := json.Unmarshal(envelope.Data, &data); err != nil {
				t.log.WithError(err).Warn("Dropping malformed key_response data")
				continue
			}
			handler.onKeyResponse(data)

		default:
			// Unknown events are logged and ignored (spec §9 "Dynamic JSON
			// at protocol edges").
			t.log.WithField("event", envelope.Event).Warn("Ignoring unknown server event")
		}
	}
}

// sendPing writes a keepalive frame (spec §4.F PingInterval).
func (t *transport) sendPing() error {
	return t.writeClientFrame(struct {
		Type protocol.ClientMessageType `json:"type"`
	}{protocol.MsgPing})
}

// sendHistoryBatch pushes a batch of already-encoded history entries
// (plaintext or per-group-encrypted, depending on key availability).
func (t *transport) sendHistoryBatch(entries []json.RawMessage) error {
	return t.writeClientFrame(protocol.HistoryBatchPayload{Type: protocol.MsgHistoryBatch, Entries: entries})
}

// sendKeyRequest asks the group's other members to wrap their content key
// for this machine's public key (spec §4.B "on demand, over the event
// channel").
func (t *transport) sendKeyRequest(group, publicKey string) error {
	return t.writeClientFrame(protocol.KeyRequestPayload{Type: protocol.MsgKeyRequest, Group: group, PublicKey: publicKey})
}

// sendKeyResponse answers a peer's key_request with this machine's
// wrapped copy of the group key.
func (t *transport) sendKeyResponse(group, targetMachineID, wrappedKey string) error {
	return t.writeClientFrame(protocol.KeyResponsePayload{
		Type: protocol.MsgKeyResponse, Group: group, TargetMachineID: targetMachineID, WrappedKey: wrappedKey,
	})
}

func (t *transport) writeClientFrame(v interface{}) error {
	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal client frame: %w", err)
	}
	return t.conn.WriteMessage(websocket.TextMessage, body)
}

// Close closes the underlying connection.
func (t *transport) Close() error {
	return t.conn.Close()
}

func toWebsocketURL(serverURL string) string {
	switch {
	case strings.HasPrefix(serverURL, "https://"):
		return "wss://" + strings.TrimPrefix(serverURL, "https://")
	case strings.HasPrefix(serverURL, "http://"):
		return "ws://" + strings.TrimPrefix(serverURL, "http://")
	default:
		return serverURL
	}
}
