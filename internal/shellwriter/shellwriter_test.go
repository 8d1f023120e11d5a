package shellwriter

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/shellsync/shellsync/internal/models"
)

func TestApplyWritesAliasFileAndSourcesIt(t *testing.T) {
	dir := t.TempDir()
	aliasPath := filepath.Join(dir, "aliases.sh")
	rcPath := filepath.Join(dir, "bashrc")

	w := New(aliasPath, rcPath)
	err := w.Apply([]models.Alias{{Name: "gs", Command: "git status"}})
	require.NoError(t, err)

	content, err := os.ReadFile(aliasPath)
	require.NoError(t, err)
	require.Contains(t, string(content), "alias gs='git status'")

	rc, err := os.ReadFile(rcPath)
	require.NoError(t, err)
	require.Contains(t, string(rc), aliasPath)
}

func TestApplyDoesNotDuplicateSourceLine(t *testing.T) {
	dir := t.TempDir()
	aliasPath := filepath.Join(dir, "aliases.sh")
	rcPath := filepath.Join(dir, "bashrc")

	w := New(aliasPath, rcPath)
	require.NoError(t, w.Apply(nil))
	require.NoError(t, w.Apply(nil))

	rc, err := os.ReadFile(rcPath)
	require.NoError(t, err)
	require.Equal(t, 1, countOccurrences(string(rc), aliasPath))
}

func countOccurrences(haystack, needle string) int {
	count := 0
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if haystack[i:i+len(needle)] == needle {
			count++
		}
	}
	return count
}
