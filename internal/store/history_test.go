package store

import (
	"testing"

	"github.com/shellsync/shellsync/internal/models"
	"github.com/stretchr/testify/require"
)

func sampleEntry(id, command string, ts int64) models.HistoryEntry {
	return models.HistoryEntry{
		ID: id, Command: command, Cwd: "/home/user", ExitCode: 0, DurationMs: 120,
		SessionID: "sess-1", MachineID: "machine-1", Hostname: "laptop", Timestamp: ts,
		Shell: "bash", GroupName: "default",
	}
}

func TestInsertHistoryIsIdempotent(t *testing.T) {
	s := openTestStore(t)

	e := sampleEntry("id-1", "git status", 1000)
	require.NoError(t, s.InsertHistory(e))
	require.NoError(t, s.InsertHistory(e))

	results, err := s.SearchHistory(HistorySearchFilter{})
	require.NoError(t, err)
	require.Len(t, results, 1)
}

func TestInsertHistoryBatchCountsOnlyNewRows(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.InsertHistory(sampleEntry("id-1", "git status", 1000)))

	n, err := s.InsertHistoryBatch([]models.HistoryEntry{
		sampleEntry("id-1", "git status", 1000),
		sampleEntry("id-2", "ls -la", 1001),
		sampleEntry("id-3", "cd /tmp", 1002),
	})
	require.NoError(t, err)
	require.Equal(t, 2, n)
}

func TestSearchHistoryByCommandSubstring(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.InsertHistory(sampleEntry("id-1", "git status", 1000)))
	require.NoError(t, s.InsertHistory(sampleEntry("id-2", "ls -la", 1001)))

	results, err := s.SearchHistory(HistorySearchFilter{CommandSubstring: "git"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, "id-1", results[0].ID)
}

func TestSearchHistoryOrderedDescendingWithPagination(t *testing.T) {
	s := openTestStore(t)

	for i, id := range []string{"id-1", "id-2", "id-3"} {
		require.NoError(t, s.InsertHistory(sampleEntry(id, "cmd", int64(1000+i))))
	}

	page, err := s.SearchHistory(HistorySearchFilter{Limit: 2})
	require.NoError(t, err)
	require.Len(t, page, 2)
	require.Equal(t, "id-3", page[0].ID)
	require.Equal(t, "id-2", page[1].ID)

	nextPage, err := s.SearchHistory(HistorySearchFilter{Limit: 2, Offset: 2})
	require.NoError(t, err)
	require.Len(t, nextPage, 1)
	require.Equal(t, "id-1", nextPage[0].ID)
}

func TestGetHistoryAfterFiltersByGroupAndTimestamp(t *testing.T) {
	s := openTestStore(t)

	e1 := sampleEntry("id-1", "cmd-a", 1000)
	e2 := sampleEntry("id-2", "cmd-b", 2000)
	e2.GroupName = "work"
	e3 := sampleEntry("id-3", "cmd-c", 3000)

	require.NoError(t, s.InsertHistory(e1))
	require.NoError(t, s.InsertHistory(e2))
	require.NoError(t, s.InsertHistory(e3))

	results, err := s.GetHistoryAfter("default", 1000, 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, "id-3", results[0].ID)
}
