package store

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/shellsync/shellsync/internal/models"
)

func sampleOutboxEntry(id string, ts int64) models.HistoryEntry {
	return models.HistoryEntry{
		ID: id, Command: "ls -la", Cwd: "/tmp", ExitCode: 0, DurationMs: 3,
		SessionID: "s1", MachineID: "m1", Hostname: "host", Timestamp: ts,
		Shell: "bash", GroupName: "default",
	}
}

func TestEnqueuePendingIsIdempotent(t *testing.T) {
	s := openTestStore(t)

	e := sampleOutboxEntry("h1", 100)
	require.NoError(t, s.EnqueuePending(e))
	require.NoError(t, s.EnqueuePending(e))

	count, err := s.PendingCount()
	require.NoError(t, err)
	require.Equal(t, 1, count)
}

func TestDrainPendingOrdersByCreatedAt(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.EnqueuePending(sampleOutboxEntry("h2", 200)))
	require.NoError(t, s.EnqueuePending(sampleOutboxEntry("h1", 100)))

	drained, err := s.DrainPending(10)
	require.NoError(t, err)
	require.Len(t, drained, 2)
	require.Equal(t, "h1", drained[0].ID)
	require.Equal(t, "h2", drained[1].ID)
}

func TestDrainPendingRespectsLimit(t *testing.T) {
	s := openTestStore(t)

	for i := 0; i < 5; i++ {
		require.NoError(t, s.EnqueuePending(sampleOutboxEntry(string(rune('a'+i)), int64(i))))
	}

	drained, err := s.DrainPending(2)
	require.NoError(t, err)
	require.Len(t, drained, 2)
}

func TestRemovePendingDeletesOnlyGivenIDs(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.EnqueuePending(sampleOutboxEntry("h1", 100)))
	require.NoError(t, s.EnqueuePending(sampleOutboxEntry("h2", 200)))

	require.NoError(t, s.RemovePending([]string{"h1"}))

	count, err := s.PendingCount()
	require.NoError(t, err)
	require.Equal(t, 1, count)

	drained, err := s.DrainPending(10)
	require.NoError(t, err)
	require.Len(t, drained, 1)
	require.Equal(t, "h2", drained[0].ID)
}
