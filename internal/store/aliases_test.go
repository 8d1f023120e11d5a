package store

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAddAliasAndGet(t *testing.T) {
	s := openTestStore(t)

	a, err := s.AddAlias("gs", "git status", "default", "machine-1")
	require.NoError(t, err)
	require.Equal(t, int64(1), a.Version)

	got, err := s.GetByName("gs", "default")
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, "git status", got.Command)
}

func TestAddAliasDuplicateIsConflict(t *testing.T) {
	s := openTestStore(t)

	_, err := s.AddAlias("gs", "git status", "default", "machine-1")
	require.NoError(t, err)

	_, err = s.AddAlias("gs", "git stat", "default", "machine-2")
	require.ErrorIs(t, err, ErrConflict)
}

func TestAddAliasSameNameDifferentGroupAllowed(t *testing.T) {
	s := openTestStore(t)

	_, err := s.AddAlias("gs", "git status", "default", "machine-1")
	require.NoError(t, err)
	_, err = s.AddAlias("gs", "git status -s", "work", "machine-1")
	require.NoError(t, err)
}

func TestUpdateAliasIncrementsVersion(t *testing.T) {
	s := openTestStore(t)

	a, err := s.AddAlias("gs", "git status", "default", "machine-1")
	require.NoError(t, err)

	updated, err := s.UpdateAlias(a.ID, "git status -sb", "machine-2")
	require.NoError(t, err)
	require.Equal(t, int64(2), updated.Version)
	require.Equal(t, "git status -sb", updated.Command)
}

func TestUpdateAliasNotFound(t *testing.T) {
	s := openTestStore(t)

	_, err := s.UpdateAlias(999, "whatever", "machine-1")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteAliasByName(t *testing.T) {
	s := openTestStore(t)

	_, err := s.AddAlias("gs", "git status", "default", "machine-1")
	require.NoError(t, err)

	require.NoError(t, s.DeleteAliasByName("gs", "default", "machine-1"))

	got, err := s.GetByName("gs", "default")
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestDeleteAliasByNameNotFound(t *testing.T) {
	s := openTestStore(t)
	err := s.DeleteAliasByName("missing", "default", "machine-1")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestGetByGroupsOrderedByName(t *testing.T) {
	s := openTestStore(t)

	_, err := s.AddAlias("zeta", "echo z", "default", "m1")
	require.NoError(t, err)
	_, err = s.AddAlias("alpha", "echo a", "default", "m1")
	require.NoError(t, err)
	_, err = s.AddAlias("beta", "echo b", "other", "m1")
	require.NoError(t, err)

	aliases, err := s.GetByGroups([]string{"default"})
	require.NoError(t, err)
	require.Len(t, aliases, 2)
	require.Equal(t, "alpha", aliases[0].Name)
	require.Equal(t, "zeta", aliases[1].Name)
}

func TestMutationsAppendAuditEntries(t *testing.T) {
	s := openTestStore(t)

	a, err := s.AddAlias("gs", "git status", "default", "machine-1")
	require.NoError(t, err)
	_, err = s.UpdateAlias(a.ID, "git status -sb", "machine-1")
	require.NoError(t, err)
	require.NoError(t, s.DeleteAlias(a.ID, "machine-1"))

	rows, err := s.db.Query(`SELECT action FROM sync_audit ORDER BY id`)
	require.NoError(t, err)
	defer rows.Close()

	var actions []string
	for rows.Next() {
		var action string
		require.NoError(t, rows.Scan(&action))
		actions = append(actions, action)
	}
	require.Equal(t, []string{"add", "update", "delete"}, actions)
}
