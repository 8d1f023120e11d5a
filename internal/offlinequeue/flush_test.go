package offlinequeue

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shellsync/shellsync/internal/models"
	"github.com/stretchr/testify/require"
)

func TestFlushRemovesSuccessfulAndConflictingEntries(t *testing.T) {
	q := openTestQueue(t)

	var calls []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls = append(calls, r.Method+" "+r.URL.Path)
		switch r.URL.Path {
		case "/api/aliases":
			w.WriteHeader(http.StatusCreated)
		case "/api/aliases/name/dup":
			w.WriteHeader(http.StatusConflict)
		}
	}))
	defer server.Close()

	require.NoError(t, q.Add(models.QueueActionAdd, map[string]string{"name": "gs", "command": "git status"}))
	require.NoError(t, q.Add(models.QueueActionDelete, map[string]string{"name": "dup", "group": "default"}))

	f := NewFlusher(server.URL, "tok-abc", nil)
	flushed, err := f.Flush(context.Background(), q)
	require.NoError(t, err)
	require.Equal(t, 2, flushed)

	remaining, err := q.All()
	require.NoError(t, err)
	require.Empty(t, remaining)
}

func TestFlushStopsAtFirstHardFailure(t *testing.T) {
	q := openTestQueue(t)

	callCount := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		callCount++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	require.NoError(t, q.Add(models.QueueActionAdd, map[string]string{"name": "first"}))
	require.NoError(t, q.Add(models.QueueActionAdd, map[string]string{"name": "second"}))

	f := NewFlusher(server.URL, "tok-abc", nil)
	flushed, err := f.Flush(context.Background(), q)
	require.NoError(t, err)
	require.Equal(t, 0, flushed)
	require.Equal(t, 1, callCount)

	remaining, err := q.All()
	require.NoError(t, err)
	require.Len(t, remaining, 2)
}

func TestFlushSyncMarkerAlwaysSucceeds(t *testing.T) {
	q := openTestQueue(t)
	require.NoError(t, q.AddSyncRequest())

	f := NewFlusher("http://unused.invalid", "tok", nil)
	flushed, err := f.Flush(context.Background(), q)
	require.NoError(t, err)
	require.Equal(t, 1, flushed)
}
