package hub

import (
	"testing"

	"github.com/shellsync/shellsync/internal/protocol"
	"github.com/stretchr/testify/require"
)

func TestRegisterUnregister(t *testing.T) {
	h := New()
	require.False(t, h.IsConnected("m1"))

	ch := h.Register("m1")
	require.True(t, h.IsConnected("m1"))
	require.Equal(t, 1, h.ConnectionCount())

	h.Unregister("m1")
	require.False(t, h.IsConnected("m1"))

	// Channel is closed on unregister.
	_, open := <-ch
	require.False(t, open)
}

func TestSendDeliversToRegisteredMailbox(t *testing.T) {
	h := New()
	ch := h.Register("m1")

	ok := h.Send("m1", protocol.ServerFrame{Event: protocol.EventPong})
	require.True(t, ok)

	frame := <-ch
	require.Equal(t, protocol.EventPong, frame.Event)
}

func TestSendToUnknownMachineReturnsFalse(t *testing.T) {
	h := New()
	ok := h.Send("ghost", protocol.ServerFrame{Event: protocol.EventPong})
	require.False(t, ok)
}

func TestReRegisterReplacesMailboxAndClosesOld(t *testing.T) {
	h := New()
	first := h.Register("m1")
	second := h.Register("m1")

	require.Equal(t, 1, h.ConnectionCount())

	_, open := <-first
	require.False(t, open)

	ok := h.Send("m1", protocol.ServerFrame{Event: protocol.EventPong})
	require.True(t, ok)
	frame := <-second
	require.Equal(t, protocol.EventPong, frame.Event)
}
