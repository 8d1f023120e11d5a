package protocol

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestUnmarshalClientFrameAuth(t *testing.T) {
	raw := []byte(`{"type":"auth","token":"abc123"}`)
	frame, err := UnmarshalClientFrame(raw)
	require.NoError(t, err)
	require.Equal(t, MsgAuth, frame.Type)

	var payload AuthPayload
	require.NoError(t, json.Unmarshal(frame.Raw, &payload))
	require.Equal(t, "abc123", payload.Token)
}

func TestUnmarshalClientFrameUnknownType(t *testing.T) {
	raw := []byte(`{"type":"something_new","foo":"bar"}`)
	frame, err := UnmarshalClientFrame(raw)
	require.NoError(t, err)
	require.Equal(t, ClientMessageType("something_new"), frame.Type)
}

func TestServerFrameRoundTrip(t *testing.T) {
	f := ServerFrame{Event: EventPong, Data: PongData{Timestamp: 42}}
	encoded, err := f.Encode()
	require.NoError(t, err)

	var decoded struct {
		Event string `json:"event"`
		Data  struct {
			Timestamp int64 `json:"timestamp"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(encoded, &decoded))
	require.Equal(t, "pong", decoded.Event)
	require.Equal(t, int64(42), decoded.Data.Timestamp)
}
