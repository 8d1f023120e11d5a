package restapi

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/shellsync/shellsync/internal/protocol"
)

// upgrader accepts connections from any origin: the event channel is a
// machine-to-service protocol, not a browser API, so CSRF-style origin
// checks don't apply.
var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// handleChannel upgrades to the persistent event channel (spec §4.E). The
// first frame must be an "auth" frame; anything else, or an invalid
// token, closes the connection.
func (s *Server) handleChannel(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.WithError(err).Warn("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	_, raw, err := conn.ReadMessage()
	if err != nil {
		return
	}

	first, err := protocol.UnmarshalClientFrame(raw)
	if err != nil || first.Type != protocol.MsgAuth {
		writeChannelFrame(conn, protocol.ServerFrame{
			Event: protocol.EventAuthFailed,
			Data:  protocol.AuthFailedData{Error: "first frame must be auth"},
		})
		return
	}

	var authPayload protocol.AuthPayload
	if err := json.Unmarshal(first.Raw, &authPayload); err != nil {
		return
	}

	handlerConn, mailbox, reply, err := s.hub.HandleAuth(s.store, authPayload)
	if err != nil {
		s.log.WithError(err).Error("Auth handling failed")
		return
	}
	if err := writeChannelFrame(conn, reply); err != nil {
		return
	}
	if handlerConn == nil {
		return
	}
	defer handlerConn.Close()

	done := make(chan struct{})
	go s.drainMailbox(conn, mailbox, done)

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			break
		}

		frame, err := protocol.UnmarshalClientFrame(raw)
		if err != nil {
			s.log.WithError(err).Warn("Dropping malformed frame")
			continue
		}

		reply, err := handlerConn.Dispatch(frame)
		if err != nil {
			s.log.WithError(err).Warn("Frame handling failed")
			continue
		}
		if reply != nil {
			if err := writeChannelFrame(conn, *reply); err != nil {
				break
			}
		}
	}

	close(done)
}

func (s *Server) drainMailbox(conn *websocket.Conn, mailbox <-chan protocol.ServerFrame, done <-chan struct{}) {
	for {
		select {
		case frame, ok := <-mailbox:
			if !ok {
				return
			}
			if err := writeChannelFrame(conn, frame); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}

func writeChannelFrame(conn *websocket.Conn, frame protocol.ServerFrame) error {
	body, err := frame.Encode()
	if err != nil {
		return err
	}
	return conn.WriteMessage(websocket.TextMessage, body)
}
