package restapi

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
)

type registerRequest struct {
	Hostname  string   `json:"hostname"`
	Groups    []string `json:"groups"`
	OSType    string   `json:"os_type"`
	PublicKey string   `json:"public_key"`
}

type registerResponse struct {
	MachineID string `json:"machine_id"`
	AuthToken string `json:"auth_token"`
	Message   string `json:"message"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed JSON body")
		return
	}

	if req.Hostname == "" {
		writeError(w, http.StatusBadRequest, "hostname must not be empty")
		return
	}
	if len(req.Groups) == 0 {
		writeError(w, http.StatusBadRequest, "groups must not be empty")
		return
	}

	token, err := generateAuthToken()
	if err != nil {
		s.log.WithError(err).Error("Failed to generate auth token")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	machineID := uuid.NewString()

	m, err := s.store.RegisterMachine(machineID, req.Hostname, req.Groups, req.OSType, token, req.PublicKey)
	if err != nil {
		s.log.WithError(err).Error("Failed to register machine")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, registerResponse{
		MachineID: m.MachineID,
		AuthToken: m.AuthToken,
		Message:   "registered",
	})
}
