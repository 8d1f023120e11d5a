package offlinequeue

import (
	"path/filepath"
	"testing"

	"github.com/shellsync/shellsync/internal/models"
	"github.com/stretchr/testify/require"
)

func openTestQueue(t *testing.T) *Queue {
	t.Helper()
	q, err := Open(filepath.Join(t.TempDir(), "offline-queue.db"))
	require.NoError(t, err)
	t.Cleanup(func() { q.Close() })
	return q
}

func TestAddAndAll(t *testing.T) {
	q := openTestQueue(t)

	require.NoError(t, q.Add(models.QueueActionAdd, map[string]string{"name": "gs", "command": "git status"}))
	require.NoError(t, q.AddSyncRequest())

	entries, err := q.All()
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, models.QueueActionAdd, entries[0].Action)
	require.Equal(t, models.QueueActionSync, entries[1].Action)
}

func TestRemove(t *testing.T) {
	q := openTestQueue(t)

	require.NoError(t, q.Add(models.QueueActionAdd, map[string]string{"name": "gs"}))
	entries, err := q.All()
	require.NoError(t, err)
	require.Len(t, entries, 1)

	require.NoError(t, q.Remove(entries[0].Seq))

	entries, err = q.All()
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestPendingCount(t *testing.T) {
	q := openTestQueue(t)

	count, err := q.PendingCount()
	require.NoError(t, err)
	require.Equal(t, 0, count)

	require.NoError(t, q.Add(models.QueueActionDelete, map[string]string{"name": "gs"}))

	count, err = q.PendingCount()
	require.NoError(t, err)
	require.Equal(t, 1, count)
}

func TestQueuePreservesFIFOOrder(t *testing.T) {
	q := openTestQueue(t)

	require.NoError(t, q.Add(models.QueueActionAdd, map[string]string{"name": "first"}))
	require.NoError(t, q.Add(models.QueueActionAdd, map[string]string{"name": "second"}))
	require.NoError(t, q.Add(models.QueueActionAdd, map[string]string{"name": "third"}))

	entries, err := q.All()
	require.NoError(t, err)
	require.Len(t, entries, 3)
	require.Less(t, entries[0].Seq, entries[1].Seq)
	require.Less(t, entries[1].Seq, entries[2].Seq)
}
