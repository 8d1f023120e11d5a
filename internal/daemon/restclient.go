package daemon

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/shellsync/shellsync/internal/models"
)

// restClient is the daemon's authenticated REST surface against the sync
// service, used for the full reconcile fetch (spec §4.F "issues a full
// alias fetch (REST) and applies results via the external shell-writer").
type restClient struct {
	serverURL  string
	authToken  string
	httpClient *http.Client
}

func newRESTClient(serverURL, authToken string) *restClient {
	return &restClient{serverURL: serverURL, authToken: authToken, httpClient: http.DefaultClient}
}

type listAliasesResponse struct {
	Aliases []models.Alias `json:"aliases"`
	Groups  []string       `json:"groups"`
	Count   int            `json:"count"`
}

// FetchAliases issues GET /api/aliases and returns the authoritative set
// for the daemon's groups.
func (c *restClient) FetchAliases(ctx context.Context) ([]models.Alias, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.serverURL+"/api/aliases", nil)
	if err != nil {
		return nil, fmt.Errorf("build aliases request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.authToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch aliases: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch aliases: unexpected status %d", resp.StatusCode)
	}

	var body listAliasesResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode aliases response: %w", err)
	}
	return body.Aliases, nil
}

// registerRequest mirrors the service's unauthenticated registration
// payload (spec §4.G).
type registerRequest struct {
	Hostname  string   `json:"hostname"`
	Groups    []string `json:"groups"`
	OSType    string   `json:"os_type"`
	PublicKey string   `json:"public_key"`
}

// RegisterResult is what the service hands back on first registration: a
// durable machine id and the bearer token used for every later request.
type RegisterResult struct {
	MachineID string `json:"machine_id"`
	AuthToken string `json:"auth_token"`
	Message   string `json:"message"`
}

// Register posts a new machine's identity to the sync service. It is the
// only call the daemon makes before it has an auth token.
func (c *restClient) Register(ctx context.Context, hostname, osType, publicKey string, groups []string) (RegisterResult, error) {
	body, err := json.Marshal(registerRequest{Hostname: hostname, Groups: groups, OSType: osType, PublicKey: publicKey})
	if err != nil {
		return RegisterResult{}, fmt.Errorf("marshal register request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.serverURL+"/api/register", bytes.NewReader(body))
	if err != nil {
		return RegisterResult{}, fmt.Errorf("build register request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return RegisterResult{}, fmt.Errorf("register machine: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return RegisterResult{}, fmt.Errorf("register machine: unexpected status %d", resp.StatusCode)
	}

	var result RegisterResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return RegisterResult{}, fmt.Errorf("decode register response: %w", err)
	}
	return result, nil
}
