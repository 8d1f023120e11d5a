package registration

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/shellsync/shellsync/internal/discovery"
)

func TestRegisterPostsIdentityAndReturnsResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/register", r.URL.Path)

		var body struct {
			Hostname  string   `json:"hostname"`
			Groups    []string `json:"groups"`
			OSType    string   `json:"os_type"`
			PublicKey string   `json:"public_key"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.NotEmpty(t, body.Hostname)
		require.Equal(t, []string{"team"}, body.Groups)
		require.NotEmpty(t, body.PublicKey)

		json.NewEncoder(w).Encode(map[string]string{
			"machine_id": "m-42",
			"auth_token": "tok-42",
		})
	}))
	defer srv.Close()

	result, err := Register(context.Background(), Options{
		ExplicitServerURL: srv.URL,
		Groups:            []string{"team"},
		KeysDir:           t.TempDir(),
	})
	require.NoError(t, err)
	require.Equal(t, "m-42", result.MachineID)
	require.Equal(t, "tok-42", result.AuthToken)
	require.Equal(t, srv.URL, result.ServerURL)
}

func TestRegisterFailsWithNoGroups(t *testing.T) {
	_, err := Register(context.Background(), Options{ExplicitServerURL: "http://example.invalid", Groups: nil})
	require.Error(t, err)
}

func TestRegisterFailsWhenServerCannotBeResolved(t *testing.T) {
	os.Unsetenv(discovery.EnvServerURL)
	_, err := Register(context.Background(), Options{Groups: []string{"team"}})
	require.Error(t, err)
}
