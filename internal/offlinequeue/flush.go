package offlinequeue

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/shellsync/shellsync/internal/models"
)

// Flusher replays queued writes against the sync service over its REST
// surface, stopping at the first failure so ordering is preserved (spec
// §4.C: "stops at first non-409 failure").
type Flusher struct {
	ServerURL  string
	AuthToken  string
	HTTPClient *http.Client
}

// NewFlusher builds a Flusher. A nil client falls back to
// http.DefaultClient, which sets no request timeout.
func NewFlusher(serverURL, authToken string, client *http.Client) *Flusher {
	if client == nil {
		client = http.DefaultClient
	}
	return &Flusher{ServerURL: serverURL, AuthToken: authToken, HTTPClient: client}
}

// Flush replays every queued entry in sequence order, removing each one
// that the service accepts (2xx) or rejects as already-applied (409).
// It returns the count of entries flushed and stops immediately on the
// first other failure, leaving the remainder queued for the next attempt.
func (f *Flusher) Flush(ctx context.Context, q *Queue) (int, error) {
	entries, err := q.All()
	if err != nil {
		return 0, err
	}

	flushed := 0
	for _, e := range entries {
		status, err := f.replay(ctx, e)
		if err != nil {
			return flushed, fmt.Errorf("replay queue entry %d: %w", e.Seq, err)
		}
		if status >= 200 && status < 300 || status == http.StatusConflict {
			if err := q.Remove(e.Seq); err != nil {
				return flushed, err
			}
			flushed++
			continue
		}
		// Stop on first non-409 failure to preserve write ordering.
		break
	}
	return flushed, nil
}

func (f *Flusher) replay(ctx context.Context, e models.OfflineQueueEntry) (int, error) {
	switch e.Action {
	case models.QueueActionAdd:
		return f.doJSON(ctx, http.MethodPost, f.ServerURL+"/api/aliases", []byte(e.Payload))
	case models.QueueActionDelete:
		var payload struct {
			Name  string `json:"name"`
			Group string `json:"group"`
		}
		if err := json.Unmarshal([]byte(e.Payload), &payload); err != nil {
			return 0, fmt.Errorf("unmarshal delete payload: %w", err)
		}
		if payload.Group == "" {
			payload.Group = "default"
		}
		endpoint := fmt.Sprintf("%s/api/aliases/name/%s?group=%s",
			f.ServerURL, url.PathEscape(payload.Name), url.QueryEscape(payload.Group))
		return f.doJSON(ctx, http.MethodDelete, endpoint, nil)
	case models.QueueActionSync:
		// Full reconciliation happens on the daemon's reconnect path; a
		// queued sync marker always counts as flushed.
		return http.StatusOK, nil
	default:
		return http.StatusOK, nil
	}
}

func (f *Flusher) doJSON(ctx context.Context, method, endpoint string, body []byte) (int, error) {
	var reqBody *bytes.Reader
	if body != nil {
		reqBody = bytes.NewReader(body)
	} else {
		reqBody = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+f.AuthToken)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := f.HTTPClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	return resp.StatusCode, nil
}
