// Package secrets implements the process-wide heuristic used to reject
// aliases whose name or command plausibly embeds credentials.
package secrets

import "regexp"

// patterns is process-wide immutable state, initialized once and never
// reconfigured at runtime (spec §9 "Global state").
var patterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)password`),
	regexp.MustCompile(`(?i)secret`),
	regexp.MustCompile(`(?i)token`),
	regexp.MustCompile(`(?i)api[_-]?key`),
	regexp.MustCompile(`(?i)private[_-]?key`),
	regexp.MustCompile(`(?i)credential`),
	regexp.MustCompile(`(?i)auth`),
}

// Looks checks whether an alias name or command contains a plausible
// credential reference.
func Looks(name, command string) bool {
	combined := name + " " + command
	for _, p := range patterns {
		if p.MatchString(combined) {
			return true
		}
	}
	return false
}
