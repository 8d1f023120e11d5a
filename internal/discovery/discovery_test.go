package discovery

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

type stubDiscoverer struct {
	url string
	err error
}

func (s stubDiscoverer) Discover(ctx context.Context) (string, error) {
	return s.url, s.err
}

func TestResolvePrefersExplicitFlag(t *testing.T) {
	url, err := Resolve(context.Background(), "http://explicit:8888", stubDiscoverer{url: "http://mdns:8888"})
	require.NoError(t, err)
	require.Equal(t, "http://explicit:8888", url)
}

func TestResolveFallsBackToEnv(t *testing.T) {
	t.Setenv(EnvServerURL, "http://env:8888")
	url, err := Resolve(context.Background(), "", nil)
	require.NoError(t, err)
	require.Equal(t, "http://env:8888", url)
}

func TestResolveFallsBackToDiscoverer(t *testing.T) {
	os.Unsetenv(EnvServerURL)
	url, err := Resolve(context.Background(), "", stubDiscoverer{url: "http://mdns:8888"})
	require.NoError(t, err)
	require.Equal(t, "http://mdns:8888", url)
}

func TestResolveFailsWhenNothingMatches(t *testing.T) {
	os.Unsetenv(EnvServerURL)
	_, err := Resolve(context.Background(), "", nil)
	require.ErrorIs(t, err, ErrNotFound)
}
