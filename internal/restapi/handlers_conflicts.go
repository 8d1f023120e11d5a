package restapi

import (
	"encoding/json"
	"net/http"
)

func (s *Server) handleListConflicts(w http.ResponseWriter, r *http.Request) {
	m := machineFromContext(r)

	conflicts, err := s.store.GetUnresolvedByMachine(m.MachineID)
	if err != nil {
		s.log.WithError(err).Error("Failed to list conflicts")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"conflicts": conflicts})
}

type resolveConflictRequest struct {
	ID         int64  `json:"id"`
	Resolution string `json:"resolution"`
}

func (s *Server) handleResolveConflict(w http.ResponseWriter, r *http.Request) {
	var req resolveConflictRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed JSON body")
		return
	}

	if err := s.store.ResolveConflict(req.ID, req.Resolution); err != nil {
		writeError(w, http.StatusNotFound, "conflict not found")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "resolved"})
}
