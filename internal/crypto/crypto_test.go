package crypto

import (
	"crypto/rand"
	"testing"

	"github.com/shellsync/shellsync/internal/models"
	"github.com/stretchr/testify/require"
)

func TestFieldRoundTrip(t *testing.T) {
	var key [32]byte
	_, err := rand.Read(key[:])
	require.NoError(t, err)

	ct, nonce, err := EncryptString(key, "git status")
	require.NoError(t, err)

	plain, err := DecryptString(key, ct, nonce)
	require.NoError(t, err)
	require.Equal(t, "git status", plain)
}

func TestWrapUnwrapGroupKey(t *testing.T) {
	dirA := t.TempDir()
	dirB := t.TempDir()

	kmA, err := NewKeyManager(dirA)
	require.NoError(t, err)
	kmB, err := NewKeyManager(dirB)
	require.NoError(t, err)

	groupKey, err := kmA.CreateGroupKey("team")
	require.NoError(t, err)

	wrapped, err := kmA.WrapGroupKey("team", kmB.PublicKeyB64())
	require.NoError(t, err)

	require.False(t, kmB.HasGroupKey("team"))
	err = kmB.UnwrapGroupKey("team", wrapped, kmA.PublicKeyB64())
	require.NoError(t, err)
	require.True(t, kmB.HasGroupKey("team"))

	unwrapped, ok := kmB.GroupKey("team")
	require.True(t, ok)
	require.Equal(t, groupKey, unwrapped)
}

func TestIdentityPersistsAcrossLoads(t *testing.T) {
	dir := t.TempDir()
	id1, err := LoadOrCreateIdentity(dir)
	require.NoError(t, err)

	id2, err := LoadOrCreateIdentity(dir)
	require.NoError(t, err)

	require.Equal(t, id1.PrivateKey, id2.PrivateKey)
	require.Equal(t, id1.PublicKey, id2.PublicKey)
}

func TestEncryptedAliasRoundTrip(t *testing.T) {
	var key [32]byte
	_, err := rand.Read(key[:])
	require.NoError(t, err)

	a := models.Alias{ID: 1, Name: "gs", Command: "git status", GroupName: "default", Version: 1}
	enc, err := EncryptAlias(a, key)
	require.NoError(t, err)
	require.Equal(t, "gs", enc.Name)
	require.NotEqual(t, "git status", enc.CommandCT)

	dec, err := enc.Decrypt(key)
	require.NoError(t, err)
	require.Equal(t, a.Command, dec.Command)
}

func TestEncryptedHistoryEntryRoundTrip(t *testing.T) {
	var key [32]byte
	_, err := rand.Read(key[:])
	require.NoError(t, err)

	h := models.HistoryEntry{
		ID: "h1", Command: "ls", Cwd: "/tmp", ExitCode: 0, DurationMs: 5,
		SessionID: "s1", MachineID: "m1", Hostname: "box", Timestamp: 100,
		Shell: "bash", GroupName: "default",
	}
	enc, err := EncryptHistoryEntry(h, key)
	require.NoError(t, err)
	require.Equal(t, "s1", enc.SessionID)

	dec, err := enc.Decrypt(key)
	require.NoError(t, err)
	require.Equal(t, h, dec)
}

func TestUnwrapRejectsWrongLength(t *testing.T) {
	dir := t.TempDir()
	km, err := NewKeyManager(dir)
	require.NoError(t, err)

	err = km.UnwrapGroupKey("team", "bm9uY2Vjb250ZW50", km.PublicKeyB64())
	require.Error(t, err)
}
