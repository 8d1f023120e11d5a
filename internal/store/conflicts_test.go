package store

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCreateAndResolveConflict(t *testing.T) {
	s := openTestStore(t)

	c, err := s.CreateConflict("gs", "default", "git status", "git status -sb", "machine-1")
	require.NoError(t, err)
	require.False(t, c.Resolved)

	unresolved, err := s.GetUnresolvedByMachine("machine-1")
	require.NoError(t, err)
	require.Len(t, unresolved, 1)

	require.NoError(t, s.ResolveConflict(c.ID, "kept_remote"))

	unresolved, err = s.GetUnresolvedByMachine("machine-1")
	require.NoError(t, err)
	require.Empty(t, unresolved)
}

func TestResolveConflictNotFound(t *testing.T) {
	s := openTestStore(t)
	err := s.ResolveConflict(999, "kept_local")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestGetUnresolvedByMachineOnlyReturnsOwn(t *testing.T) {
	s := openTestStore(t)

	_, err := s.CreateConflict("gs", "default", "a", "b", "machine-1")
	require.NoError(t, err)
	_, err = s.CreateConflict("ll", "default", "c", "d", "machine-2")
	require.NoError(t, err)

	unresolved, err := s.GetUnresolvedByMachine("machine-1")
	require.NoError(t, err)
	require.Len(t, unresolved, 1)
	require.Equal(t, "gs", unresolved[0].AliasName)
}
