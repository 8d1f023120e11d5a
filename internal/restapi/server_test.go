package restapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/shellsync/shellsync/internal/hub"
	"github.com/shellsync/shellsync/internal/store"
)

func newTestServer(t *testing.T) (*Server, *store.Store) {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return New(st, hub.New(), nil), st
}

func doJSON(t *testing.T, handler http.Handler, method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestRegisterAndListAliases(t *testing.T) {
	s, _ := newTestServer(t)
	router := s.Router()

	rec := doJSON(t, router, http.MethodPost, "/api/register", map[string]interface{}{
		"hostname": "m1", "groups": []string{"default"},
	}, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var reg registerResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &reg))
	require.NotEmpty(t, reg.MachineID)
	require.NotEmpty(t, reg.AuthToken)

	rec = doJSON(t, router, http.MethodGet, "/api/aliases", nil, reg.AuthToken)
	require.Equal(t, http.StatusOK, rec.Code)

	var listResp struct {
		Aliases []aliasResponse `json:"aliases"`
		Groups  []string        `json:"groups"`
		Count   int             `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listResp))
	require.Equal(t, 0, listResp.Count)
	require.Equal(t, []string{"default"}, listResp.Groups)
}

func TestRegisterRejectsEmptyHostname(t *testing.T) {
	s, _ := newTestServer(t)
	router := s.Router()

	rec := doJSON(t, router, http.MethodPost, "/api/register", map[string]interface{}{
		"hostname": "", "groups": []string{"default"},
	}, "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func registerMachine(t *testing.T, router http.Handler, hostname string, groups []string) registerResponse {
	t.Helper()
	rec := doJSON(t, router, http.MethodPost, "/api/register", map[string]interface{}{
		"hostname": hostname, "groups": groups,
	}, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var reg registerResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &reg))
	return reg
}

func TestCreateAliasAndFanOutExcludesOriginator(t *testing.T) {
	s, _ := newTestServer(t)
	router := s.Router()

	m1 := registerMachine(t, router, "m1", []string{"default"})
	m2 := registerMachine(t, router, "m2", []string{"default"})

	ch1 := s.hub.Register(m1.MachineID)
	ch2 := s.hub.Register(m2.MachineID)

	rec := doJSON(t, router, http.MethodPost, "/api/aliases", map[string]string{
		"name": "gs", "command": "git status", "group": "default",
	}, m1.AuthToken)
	require.Equal(t, http.StatusOK, rec.Code)

	select {
	case frame := <-ch2:
		require.Equal(t, "alias_added", string(frame.Event))
	default:
		t.Fatal("expected m2 to receive alias_added")
	}

	select {
	case frame := <-ch1:
		t.Fatalf("originator should not receive its own event, got %v", frame.Event)
	default:
	}
}

func TestCreateAliasSecretRejection(t *testing.T) {
	s, _ := newTestServer(t)
	router := s.Router()

	m1 := registerMachine(t, router, "m1", []string{"default"})

	rec := doJSON(t, router, http.MethodPost, "/api/aliases", map[string]string{
		"name": "api_key_set", "command": "echo X", "group": "default",
	}, m1.AuthToken)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateAliasForbiddenGroup(t *testing.T) {
	s, _ := newTestServer(t)
	router := s.Router()

	m1 := registerMachine(t, router, "m1", []string{"default"})

	rec := doJSON(t, router, http.MethodPost, "/api/aliases", map[string]string{
		"name": "gs", "command": "git status", "group": "other",
	}, m1.AuthToken)
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestCreateAliasDuplicateConflict(t *testing.T) {
	s, _ := newTestServer(t)
	router := s.Router()

	m1 := registerMachine(t, router, "m1", []string{"default"})

	body := map[string]string{"name": "gs", "command": "git status", "group": "default"}
	rec := doJSON(t, router, http.MethodPost, "/api/aliases", body, m1.AuthToken)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/api/aliases", body, m1.AuthToken)
	require.Equal(t, http.StatusConflict, rec.Code)
}

func TestUnauthenticatedRequestRejected(t *testing.T) {
	s, _ := newTestServer(t)
	router := s.Router()

	rec := doJSON(t, router, http.MethodGet, "/api/aliases", nil, "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/api/aliases", nil, "bogus-token")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestListMachinesMasksAuthToken(t *testing.T) {
	s, _ := newTestServer(t)
	router := s.Router()

	m1 := registerMachine(t, router, "m1", []string{"default"})

	rec := doJSON(t, router, http.MethodGet, "/api/machines", nil, m1.AuthToken)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Machines []maskedMachine `json:"machines"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Machines, 1)
	require.Equal(t, maskedAuthToken, resp.Machines[0].AuthToken)
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t)
	router := s.Router()

	rec := doJSON(t, router, http.MethodGet, "/api/health", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestImportSeparatesAddedAndFailed(t *testing.T) {
	s, _ := newTestServer(t)
	router := s.Router()

	m1 := registerMachine(t, router, "m1", []string{"default"})

	rec := doJSON(t, router, http.MethodPost, "/api/aliases", map[string]string{
		"name": "gs", "command": "git status", "group": "default",
	}, m1.AuthToken)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/api/import", []map[string]string{
		{"name": "gs", "command": "git status", "group": "default"},
		{"name": "ll", "command": "ls -la", "group": "default"},
	}, m1.AuthToken)
	require.Equal(t, http.StatusOK, rec.Code)

	var result importResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	require.Len(t, result.Added, 1)
	require.Len(t, result.Failed, 1)
	require.Equal(t, "gs", result.Failed[0].Name)
}
