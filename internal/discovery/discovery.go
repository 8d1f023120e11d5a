// Package discovery resolves the sync service's base URL for a daemon
// that hasn't been given one explicitly (spec §4.G, §6 "Discovery
// fallback order"). Actually resolving a service over the network via
// mDNS is out of scope (spec §1 Non-goals); this package implements the
// Discoverer contract plus the explicit-flag and environment fallbacks,
// grounded on original_source's discovery.rs service-type framing.
package discovery

import (
	"context"
	"fmt"
	"os"
)

// ServiceType is the fixed mDNS service type string a server would
// advertise under (spec §6), kept here only as a named constant since no
// mDNS resolution is implemented.
const ServiceType = "_shell-sync._tcp.local."

// EnvServerURL is the environment variable consulted after an explicit
// flag and before mDNS in the discovery fallback order.
const EnvServerURL = "SHELLSYNC_SERVER_URL"

// Discoverer resolves a single matching service instance to a base URL
// within a timeout. A real implementation would browse mDNS; none is
// wired here, per spec §1.
type Discoverer interface {
	Discover(ctx context.Context) (string, error)
}

// ErrNotFound is returned when no discovery mechanism could resolve a
// server URL.
var ErrNotFound = fmt.Errorf("no shell-sync server found")

// Resolve implements spec §6's fallback order: explicit flag, then
// environment, then mDNS (via d, if non-nil).
func Resolve(ctx context.Context, explicit string, d Discoverer) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	if v := os.Getenv(EnvServerURL); v != "" {
		return v, nil
	}
	if d != nil {
		url, err := d.Discover(ctx)
		if err == nil && url != "" {
			return url, nil
		}
	}
	return "", ErrNotFound
}
