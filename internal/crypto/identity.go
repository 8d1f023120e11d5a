// Package crypto implements the end-to-end encryption layer: per-machine
// X25519 identity keys, per-group AES-256-GCM content keys, pairwise
// key wrapping, and the wire envelope codecs for encrypted aliases and
// history entries (spec §4.B).
package crypto

import (
	"crypto/rand"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/crypto/curve25519"
)

const keyFileMode = 0o600

// Identity is a machine's persistent X25519 keypair.
type Identity struct {
	PrivateKey [32]byte
	PublicKey  [32]byte
}

// LoadOrCreateIdentity loads a keypair from keysDir/private.key and
// keysDir/public.key, generating and persisting one on first use.
func LoadOrCreateIdentity(keysDir string) (*Identity, error) {
	if err := os.MkdirAll(keysDir, 0o700); err != nil {
		return nil, fmt.Errorf("create keys dir: %w", err)
	}

	privPath := filepath.Join(keysDir, "private.key")
	pubPath := filepath.Join(keysDir, "public.key")

	if fileExists(privPath) && fileExists(pubPath) {
		privBytes, err := os.ReadFile(privPath)
		if err != nil {
			return nil, fmt.Errorf("read private key: %w", err)
		}
		pubBytes, err := os.ReadFile(pubPath)
		if err != nil {
			return nil, fmt.Errorf("read public key: %w", err)
		}
		if len(privBytes) != 32 || len(pubBytes) != 32 {
			return nil, fmt.Errorf("invalid key file length")
		}
		id := &Identity{}
		copy(id.PrivateKey[:], privBytes)
		copy(id.PublicKey[:], pubBytes)
		return id, nil
	}

	var priv [32]byte
	if _, err := rand.Read(priv[:]); err != nil {
		return nil, fmt.Errorf("generate private key: %w", err)
	}
	pub, err := curve25519.X25519(priv[:], curve25519.Basepoint)
	if err != nil {
		return nil, fmt.Errorf("derive public key: %w", err)
	}

	id := &Identity{PrivateKey: priv}
	copy(id.PublicKey[:], pub)

	if err := os.WriteFile(privPath, id.PrivateKey[:], keyFileMode); err != nil {
		return nil, fmt.Errorf("write private key: %w", err)
	}
	if err := os.WriteFile(pubPath, id.PublicKey[:], keyFileMode); err != nil {
		return nil, fmt.Errorf("write public key: %w", err)
	}

	return id, nil
}

// SharedSecret derives the 32-byte X25519 shared secret with a peer's
// public key.
func (id *Identity) SharedSecret(peerPublicKey [32]byte) ([32]byte, error) {
	var out [32]byte
	secret, err := curve25519.X25519(id.PrivateKey[:], peerPublicKey[:])
	if err != nil {
		return out, fmt.Errorf("x25519: %w", err)
	}
	copy(out[:], secret)
	return out, nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
