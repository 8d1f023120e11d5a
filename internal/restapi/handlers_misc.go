package restapi

import (
	"net/http"
	"strconv"
)

// maskedAuthToken is the fixed replacement value for auth_token in
// GET /api/machines responses (spec §4.D: "auth_token replaced by a fixed
// masked value").
const maskedAuthToken = "********"

func (s *Server) handleSyncAudit(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	entries, err := s.store.GetSyncAudit(limit)
	if err != nil {
		s.log.WithError(err).Error("Failed to read sync audit log")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"history": entries})
}

type maskedMachine struct {
	MachineID string   `json:"machine_id"`
	Hostname  string   `json:"hostname"`
	Groups    []string `json:"groups"`
	OSType    string   `json:"os_type,omitempty"`
	AuthToken string   `json:"auth_token"`
	PublicKey string   `json:"public_key,omitempty"`
	LastSeen  int64    `json:"last_seen"`
	CreatedAt int64    `json:"created_at"`
}

func (s *Server) handleListMachines(w http.ResponseWriter, r *http.Request) {
	machines, err := s.store.GetAllMachines()
	if err != nil {
		s.log.WithError(err).Error("Failed to list machines")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	resp := make([]maskedMachine, 0, len(machines))
	for _, m := range machines {
		resp = append(resp, maskedMachine{
			MachineID: m.MachineID, Hostname: m.Hostname, Groups: m.Groups, OSType: m.OSType,
			AuthToken: maskedAuthToken, PublicKey: m.PublicKey, LastSeen: m.LastSeen, CreatedAt: m.CreatedAt,
		})
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"machines": resp})
}

func (s *Server) handleGitSync(w http.ResponseWriter, r *http.Request) {
	if s.gitSync == nil {
		writeError(w, http.StatusInternalServerError, "no git exporter configured")
		return
	}
	if err := s.gitSync(); err != nil {
		s.log.WithError(err).Error("Git sync trigger failed")
		writeError(w, http.StatusInternalServerError, "git sync failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "git sync triggered"})
}

func (s *Server) handleShellHistory(w http.ResponseWriter, r *http.Request) {
	m := machineFromContext(r)

	after, _ := strconv.ParseInt(r.URL.Query().Get("after_timestamp"), 10, 64)
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	group := r.URL.Query().Get("group")
	if group == "" {
		if len(m.Groups) == 0 {
			writeError(w, http.StatusBadRequest, "machine has no groups")
			return
		}
		group = m.Groups[0]
	}
	if !m.InGroup(group) {
		writeError(w, http.StatusForbidden, "not a member of target group")
		return
	}

	entries, err := s.store.GetHistoryAfter(group, after, limit)
	if err != nil {
		s.log.WithError(err).Error("Failed to read shell history")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"entries": entries})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":         "ok",
		"active_machines": s.hub.ConnectionCount(),
	})
}
