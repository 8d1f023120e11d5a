package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/shellsync/shellsync/internal/config"
	"github.com/shellsync/shellsync/internal/models"
)

// apiClient is the CLI's authenticated REST surface against the sync
// service. It mirrors the daemon's own restClient but covers the full
// alias/conflict/history/machine surface a human operator drives by hand,
// where the daemon only ever needs the alias fetch used for reconcile.
type apiClient struct {
	baseURL    string
	authToken  string
	httpClient *http.Client
}

func newAPIClient(cfg config.ClientConfig) *apiClient {
	return &apiClient{baseURL: cfg.ServerURL, authToken: cfg.AuthToken, httpClient: http.DefaultClient}
}

func (c *apiClient) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.authToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr struct {
			Error string `json:"error"`
		}
		json.NewDecoder(resp.Body).Decode(&apiErr)
		if apiErr.Error != "" {
			return fmt.Errorf("%s %s: %s (%d)", method, path, apiErr.Error, resp.StatusCode)
		}
		return fmt.Errorf("%s %s: unexpected status %d", method, path, resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

type aliasRequest struct {
	Name    string `json:"name"`
	Command string `json:"command"`
	Group   string `json:"group"`
}

type aliasResponse struct {
	ID               int64  `json:"id"`
	Name             string `json:"name"`
	Command          string `json:"command"`
	GroupName        string `json:"group_name"`
	CreatedByMachine string `json:"created_by_machine"`
	CreatedAt        int64  `json:"created_at"`
	UpdatedAt        int64  `json:"updated_at"`
	Version          int64  `json:"version"`
}

type listAliasesResponse struct {
	Aliases []aliasResponse `json:"aliases"`
	Groups  []string        `json:"groups"`
	Count   int             `json:"count"`
}

func (c *apiClient) ListAliases(ctx context.Context) (listAliasesResponse, error) {
	var out listAliasesResponse
	err := c.do(ctx, http.MethodGet, "/api/aliases", nil, &out)
	return out, err
}

func (c *apiClient) AddAlias(ctx context.Context, name, command, group string) (aliasResponse, error) {
	var out aliasResponse
	err := c.do(ctx, http.MethodPost, "/api/aliases", aliasRequest{Name: name, Command: command, Group: group}, &out)
	return out, err
}

func (c *apiClient) UpdateAlias(ctx context.Context, id int64, command string) (aliasResponse, error) {
	var out aliasResponse
	body := struct {
		Command string `json:"command"`
	}{Command: command}
	err := c.do(ctx, http.MethodPut, fmt.Sprintf("/api/aliases/%d", id), body, &out)
	return out, err
}

func (c *apiClient) DeleteAliasByID(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/api/aliases/%d", id), nil, nil)
}

func (c *apiClient) DeleteAliasByName(ctx context.Context, name, group string) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/api/aliases/name/%s?group=%s", name, group), nil, nil)
}

type importResult struct {
	Added  []aliasResponse `json:"added"`
	Failed []importFailure `json:"failed"`
}

type importFailure struct {
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

func (c *apiClient) Import(ctx context.Context, entries []aliasRequest) (importResult, error) {
	var out importResult
	err := c.do(ctx, http.MethodPost, "/api/import", entries, &out)
	return out, err
}

func (c *apiClient) Conflicts(ctx context.Context) ([]models.Conflict, error) {
	var out struct {
		Conflicts []models.Conflict `json:"conflicts"`
	}
	err := c.do(ctx, http.MethodGet, "/api/conflicts", nil, &out)
	return out.Conflicts, err
}

func (c *apiClient) ResolveConflict(ctx context.Context, id int64, resolution string) error {
	body := struct {
		ID         int64  `json:"id"`
		Resolution string `json:"resolution"`
	}{ID: id, Resolution: resolution}
	return c.do(ctx, http.MethodPost, "/api/conflicts/resolve", body, nil)
}

func (c *apiClient) SyncAudit(ctx context.Context, limit int) ([]models.SyncAuditEntry, error) {
	var out struct {
		History []models.SyncAuditEntry `json:"history"`
	}
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/history?limit=%d", limit), nil, &out)
	return out.History, err
}

type maskedMachine struct {
	MachineID string   `json:"machine_id"`
	Hostname  string   `json:"hostname"`
	Groups    []string `json:"groups"`
	OSType    string   `json:"os_type,omitempty"`
	AuthToken string   `json:"auth_token"`
	PublicKey string   `json:"public_key,omitempty"`
	LastSeen  int64    `json:"last_seen"`
	CreatedAt int64    `json:"created_at"`
}

func (c *apiClient) Machines(ctx context.Context) ([]maskedMachine, error) {
	var out struct {
		Machines []maskedMachine `json:"machines"`
	}
	err := c.do(ctx, http.MethodGet, "/api/machines", nil, &out)
	return out.Machines, err
}

func (c *apiClient) GitSync(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/api/git/sync", nil, nil)
}

func (c *apiClient) ShellHistory(ctx context.Context, afterMs int64, limit int, group string) ([]models.HistoryEntry, error) {
	var out struct {
		Entries []models.HistoryEntry `json:"entries"`
	}
	path := fmt.Sprintf("/api/shell-history?after_timestamp=%d&limit=%d", afterMs, limit)
	if group != "" {
		path += "&group=" + group
	}
	err := c.do(ctx, http.MethodGet, path, nil, &out)
	return out.Entries, err
}

func (c *apiClient) Health(ctx context.Context) (map[string]interface{}, error) {
	var out map[string]interface{}
	err := c.do(ctx, http.MethodGet, "/api/health", nil, &out)
	return out, err
}
