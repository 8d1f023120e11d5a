package restapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/shellsync/shellsync/internal/protocol"
	"github.com/shellsync/shellsync/internal/secrets"
	"github.com/shellsync/shellsync/internal/store"
)

type importResult struct {
	Added  []aliasResponse `json:"added"`
	Failed []importFailure `json:"failed"`
}

type importFailure struct {
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

// handleImport bulk-adds aliases, separating added from failed per entry
// with a failure reason (spec §4.D, §8 "import with some duplicates
// reports exact {added, failed} counts and names the failures").
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	m := machineFromContext(r)

	var entries []aliasRequest
	if err := json.NewDecoder(r.Body).Decode(&entries); err != nil {
		writeError(w, http.StatusBadRequest, "malformed JSON body")
		return
	}

	result := importResult{Added: []aliasResponse{}, Failed: []importFailure{}}

	for _, e := range entries {
		if !aliasNamePattern.MatchString(e.Name) {
			result.Failed = append(result.Failed, importFailure{Name: e.Name, Reason: "invalid name"})
			continue
		}
		if secrets.Looks(e.Name, e.Command) {
			result.Failed = append(result.Failed, importFailure{Name: e.Name, Reason: "looks like a secret"})
			continue
		}
		if !m.InGroup(e.Group) {
			result.Failed = append(result.Failed, importFailure{Name: e.Name, Reason: "not a member of target group"})
			continue
		}

		alias, err := s.store.AddAlias(e.Name, e.Command, e.Group, m.MachineID)
		if err != nil {
			if errors.Is(err, store.ErrConflict) {
				result.Failed = append(result.Failed, importFailure{Name: e.Name, Reason: "already exists"})
				continue
			}
			s.log.WithError(err).Error("Failed to import alias")
			result.Failed = append(result.Failed, importFailure{Name: e.Name, Reason: "internal error"})
			continue
		}

		s.broadcastAliasEvent(protocol.EventAliasAdded, alias, m.MachineID)
		result.Added = append(result.Added, toAliasResponse(alias))
	}

	writeJSON(w, http.StatusOK, result)
}
