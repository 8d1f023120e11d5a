package hub

import (
	"path/filepath"
	"testing"

	"github.com/shellsync/shellsync/internal/protocol"
	"github.com/shellsync/shellsync/internal/store"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestBroadcastToGroupsExcludesOriginatorAndSkipsDisconnected(t *testing.T) {
	s := openTestStore(t)

	_, err := s.RegisterMachine("origin", "origin-host", []string{"default"}, "linux", "tok-o", "pub-o")
	require.NoError(t, err)
	_, err = s.RegisterMachine("peer-connected", "peer-1", []string{"default"}, "linux", "tok-p1", "pub-p1")
	require.NoError(t, err)
	_, err = s.RegisterMachine("peer-offline", "peer-2", []string{"default"}, "linux", "tok-p2", "pub-p2")
	require.NoError(t, err)

	h := New()
	connectedCh := h.Register("peer-connected")

	frame := protocol.ServerFrame{Event: protocol.EventAliasAdded}
	sent, err := h.BroadcastToGroups(s, []string{"default"}, "origin", frame)
	require.NoError(t, err)
	require.Equal(t, 1, sent)

	got := <-connectedCh
	require.Equal(t, protocol.EventAliasAdded, got.Event)
}
