// Package shellwriter is the external-collaborator boundary for
// materializing authoritative aliases into shell-visible artifacts (spec
// §1 "The shell-writer that formats an alias file and splices a source
// line into the user's shell startup file"). Shell-file formatting
// itself is out of scope; this package implements just enough to give
// the daemon's reconcile path something concrete to call.
package shellwriter

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/shellsync/shellsync/internal/models"
)

// Writer materializes a machine's authoritative aliases into a generated
// shell file and makes sure the user's rc file sources it.
type Writer struct {
	AliasPath string
	RCPath    string
}

// New builds a Writer targeting aliasPath (the generated alias file) and
// rcPath (the shell startup file to splice a source line into).
func New(aliasPath, rcPath string) *Writer {
	return &Writer{AliasPath: aliasPath, RCPath: rcPath}
}

// Apply regenerates the alias file from scratch and ensures the rc file
// sources it, called from the daemon's reconcile path on auth_success and
// every alias-mutation event (spec §4.F, §4.I idempotent reconcile).
func (w *Writer) Apply(aliases []models.Alias) error {
	if err := os.MkdirAll(filepath.Dir(w.AliasPath), 0o755); err != nil {
		return fmt.Errorf("create alias directory: %w", err)
	}

	var b strings.Builder
	b.WriteString("# shell-sync generated aliases, do not edit by hand\n")
	for _, a := range aliases {
		fmt.Fprintf(&b, "alias %s=%s\n", a.Name, shellQuote(a.Command))
	}

	if err := os.WriteFile(w.AliasPath, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("write alias file: %w", err)
	}

	return w.ensureSourced()
}

func (w *Writer) ensureSourced() error {
	sourceLine := fmt.Sprintf("[ -f %s ] && source %s", w.AliasPath, w.AliasPath)

	existing, err := os.ReadFile(w.RCPath)
	if err != nil {
		if os.IsNotExist(err) {
			return os.WriteFile(w.RCPath, []byte(sourceLine+"\n"), 0o644)
		}
		return fmt.Errorf("read rc file: %w", err)
	}

	if strings.Contains(string(existing), w.AliasPath) {
		return nil
	}

	content := string(existing)
	if !strings.HasSuffix(content, "\n") {
		content += "\n"
	}
	content += "\n# shell-sync aliases\n" + sourceLine + "\n"

	return os.WriteFile(w.RCPath, []byte(content), 0o644)
}

func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
