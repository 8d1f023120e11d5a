package daemon

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/shellsync/shellsync/internal/crypto"
	"github.com/shellsync/shellsync/internal/models"
	"github.com/shellsync/shellsync/internal/store"
)

func testEntry(id, group string) models.HistoryEntry {
	return models.HistoryEntry{
		ID:        id,
		Command:   "git status",
		Cwd:       "/home/user",
		MachineID: "m1",
		Hostname:  "host1",
		Timestamp: 1000,
		Shell:     "bash",
		GroupName: group,
	}
}

func TestPushOnceSendsPlaintextWithoutGroupKey(t *testing.T) {
	st, err := store.Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	keys, err := crypto.NewKeyManager(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, st.EnqueuePending(testEntry("h1", "team")))

	p := newHistoryPusher(st, keys, 0, 10)

	var sent []json.RawMessage
	require.NoError(t, p.pushOnce(func(_ []models.HistoryEntry, encoded []json.RawMessage) error {
		sent = encoded
		return nil
	}))

	require.Len(t, sent, 1)
	var decoded models.HistoryEntry
	require.NoError(t, json.Unmarshal(sent[0], &decoded))
	require.Equal(t, "git status", decoded.Command)

	count, err := st.PendingCount()
	require.NoError(t, err)
	require.Equal(t, 0, count)
}

func TestPushOnceEncryptsWhenGroupKeyHeld(t *testing.T) {
	st, err := store.Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	keys, err := crypto.NewKeyManager(t.TempDir())
	require.NoError(t, err)
	_, err = keys.CreateGroupKey("team")
	require.NoError(t, err)

	require.NoError(t, st.EnqueuePending(testEntry("h1", "team")))

	p := newHistoryPusher(st, keys, 0, 10)

	var sent []json.RawMessage
	require.NoError(t, p.pushOnce(func(_ []models.HistoryEntry, encoded []json.RawMessage) error {
		sent = encoded
		return nil
	}))

	require.Len(t, sent, 1)
	var decoded crypto.EncryptedHistoryEntry
	require.NoError(t, json.Unmarshal(sent[0], &decoded))
	require.NotEmpty(t, decoded.CommandCT)
	require.NotEqual(t, "git status", decoded.CommandCT)
}

func TestPushOnceLeavesOutboxOnSendFailure(t *testing.T) {
	st, err := store.Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	keys, err := crypto.NewKeyManager(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, st.EnqueuePending(testEntry("h1", "team")))

	p := newHistoryPusher(st, keys, 0, 10)
	sendErr := fmt.Errorf("connection reset")
	err = p.pushOnce(func(_ []models.HistoryEntry, _ []json.RawMessage) error {
		return sendErr
	})
	require.ErrorIs(t, err, sendErr)

	count, countErr := st.PendingCount()
	require.NoError(t, countErr)
	require.Equal(t, 1, count)
}
