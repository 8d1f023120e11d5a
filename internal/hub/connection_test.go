package hub

import (
	"encoding/json"
	"testing"

	"github.com/shellsync/shellsync/internal/models"
	"github.com/shellsync/shellsync/internal/protocol"
	"github.com/shellsync/shellsync/internal/store"
	"github.com/stretchr/testify/require"
)

func TestHandleAuthSuccess(t *testing.T) {
	s := openTestStore(t)
	_, err := s.RegisterMachine("m1", "laptop", []string{"default"}, "linux", "tok-abc", "pub-abc")
	require.NoError(t, err)

	h := New()
	conn, _, reply, err := h.HandleAuth(s, protocol.AuthPayload{Type: protocol.MsgAuth, Token: "tok-abc"})
	require.NoError(t, err)
	require.NotNil(t, conn)
	require.Equal(t, protocol.EventAuthSuccess, reply.Event)
	require.True(t, h.IsConnected("m1"))
}

func TestHandleAuthFailure(t *testing.T) {
	s := openTestStore(t)

	h := New()
	conn, _, reply, err := h.HandleAuth(s, protocol.AuthPayload{Type: protocol.MsgAuth, Token: "nonexistent"})
	require.NoError(t, err)
	require.Nil(t, conn)
	require.Equal(t, protocol.EventAuthFailed, reply.Event)
}

func TestDispatchPing(t *testing.T) {
	s := openTestStore(t)
	_, err := s.RegisterMachine("m1", "laptop", []string{"default"}, "linux", "tok-abc", "pub-abc")
	require.NoError(t, err)

	h := New()
	conn, _, _, err := h.HandleAuth(s, protocol.AuthPayload{Type: protocol.MsgAuth, Token: "tok-abc"})
	require.NoError(t, err)

	frame, err := protocol.UnmarshalClientFrame([]byte(`{"type":"ping"}`))
	require.NoError(t, err)

	reply, err := conn.Dispatch(frame)
	require.NoError(t, err)
	require.NotNil(t, reply)
	require.Equal(t, protocol.EventPong, reply.Event)
}

func TestDispatchHistoryBatchInsertsAndBroadcasts(t *testing.T) {
	s := openTestStore(t)
	_, err := s.RegisterMachine("origin", "laptop", []string{"default"}, "linux", "tok-origin", "pub-o")
	require.NoError(t, err)
	_, err = s.RegisterMachine("peer", "desktop", []string{"default"}, "linux", "tok-peer", "pub-p")
	require.NoError(t, err)

	h := New()
	originConn, _, _, err := h.HandleAuth(s, protocol.AuthPayload{Type: protocol.MsgAuth, Token: "tok-origin"})
	require.NoError(t, err)
	peerCh := h.Register("peer")

	entry := models.HistoryEntry{
		ID: "id-1", Command: "git status", Cwd: "/tmp", SessionID: "sess-1",
		MachineID: "origin", Hostname: "laptop", Timestamp: 1000, Shell: "bash", GroupName: "default",
	}
	entryJSON, err := json.Marshal(entry)
	require.NoError(t, err)

	frame, err := protocol.UnmarshalClientFrame([]byte(`{"type":"history_batch","entries":[` + string(entryJSON) + `]}`))
	require.NoError(t, err)

	reply, err := originConn.Dispatch(frame)
	require.NoError(t, err)
	require.Nil(t, reply)

	results, err := s.SearchHistory(store.HistorySearchFilter{})
	require.NoError(t, err)
	require.Len(t, results, 1)

	pushed := <-peerCh
	require.Equal(t, protocol.EventHistorySync, pushed.Event)
}
