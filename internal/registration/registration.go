// Package registration implements a new machine's first contact with a
// sync service: resolving its base URL, generating a crypto identity,
// posting the registration request, and returning the resulting
// machine id and bearer token for the caller to persist as client
// configuration (spec §4.G).
// Grounded on original_source/crates/shell-sync-client/src/registration.rs,
// translated from its one-shot async function into a small Go type whose
// steps are independently testable.
package registration

import (
	"context"
	"fmt"
	"net/http"

	"github.com/shirou/gopsutil/v3/host"
	"github.com/sirupsen/logrus"

	"github.com/shellsync/shellsync/internal/crypto"
	"github.com/shellsync/shellsync/internal/discovery"
)

// Result is what a successful registration hands back: the durable
// machine id and bearer token a daemon uses for every later request.
type Result struct {
	ServerURL string
	MachineID string
	AuthToken string
	Hostname  string
	Groups    []string
	PublicKey string
}

// httpRegistrar posts the registration request directly; it is the
// default registrar used outside of tests.
type httpRegistrar struct {
	serverURL string
	client    *http.Client
}

func (r *httpRegistrar) Register(ctx context.Context, hostname, osType, publicKey string, groups []string) (Result, error) {
	body := struct {
		Hostname  string   `json:"hostname"`
		Groups    []string `json:"groups"`
		OSType    string   `json:"os_type"`
		PublicKey string   `json:"public_key"`
	}{Hostname: hostname, Groups: groups, OSType: osType, PublicKey: publicKey}

	resp, err := postJSON(ctx, r.client, r.serverURL+"/api/register", body)
	if err != nil {
		return Result{}, err
	}
	resp.ServerURL = r.serverURL
	resp.Hostname = hostname
	resp.Groups = groups
	resp.PublicKey = publicKey
	return resp, nil
}

// Options configures a single registration attempt.
type Options struct {
	ExplicitServerURL string
	Groups            []string
	KeysDir           string
	Discoverer        discovery.Discoverer
}

// Register resolves the server URL, loads or creates this machine's
// crypto identity, and registers it with the sync service. The caller
// is responsible for persisting the returned Result into client config.
func Register(ctx context.Context, opts Options) (Result, error) {
	serverURL, err := discovery.Resolve(ctx, opts.ExplicitServerURL, opts.Discoverer)
	if err != nil {
		return Result{}, fmt.Errorf("resolve server: %w", err)
	}

	if len(opts.Groups) == 0 {
		return Result{}, fmt.Errorf("at least one group is required to register")
	}

	keys, err := crypto.NewKeyManager(opts.KeysDir)
	if err != nil {
		return Result{}, fmt.Errorf("initialize encryption keys: %w", err)
	}

	hostname, err := osHostname()
	if err != nil {
		return Result{}, fmt.Errorf("determine hostname: %w", err)
	}
	osType := osTypeName()

	logrus.WithFields(logrus.Fields{"server": serverURL, "groups": opts.Groups}).Info("Registering with sync service")

	r := &httpRegistrar{serverURL: serverURL, client: http.DefaultClient}
	return r.Register(ctx, hostname, osType, keys.PublicKeyB64(), opts.Groups)
}

func osTypeName() string {
	info, err := host.Info()
	if err != nil {
		return "unknown"
	}
	return info.Platform
}
