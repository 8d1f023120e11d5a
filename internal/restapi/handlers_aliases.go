package restapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"regexp"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/shellsync/shellsync/internal/models"
	"github.com/shellsync/shellsync/internal/protocol"
	"github.com/shellsync/shellsync/internal/secrets"
	"github.com/shellsync/shellsync/internal/store"
)

var aliasNamePattern = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)

type aliasRequest struct {
	Name    string `json:"name"`
	Command string `json:"command"`
	Group   string `json:"group"`
}

type aliasResponse struct {
	ID               int64  `json:"id"`
	Name             string `json:"name"`
	Command          string `json:"command"`
	GroupName        string `json:"group_name"`
	CreatedByMachine string `json:"created_by_machine"`
	CreatedAt        int64  `json:"created_at"`
	UpdatedAt        int64  `json:"updated_at"`
	Version          int64  `json:"version"`
}

func toAliasResponse(a models.Alias) aliasResponse {
	return aliasResponse{
		ID: a.ID, Name: a.Name, Command: a.Command, GroupName: a.GroupName,
		CreatedByMachine: a.CreatedByMachine, CreatedAt: a.CreatedAt, UpdatedAt: a.UpdatedAt, Version: a.Version,
	}
}

func (s *Server) handleListAliases(w http.ResponseWriter, r *http.Request) {
	m := machineFromContext(r)

	aliases, err := s.store.GetByGroups(m.Groups)
	if err != nil {
		s.log.WithError(err).Error("Failed to list aliases")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	resp := make([]aliasResponse, 0, len(aliases))
	for _, a := range aliases {
		resp = append(resp, toAliasResponse(a))
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"aliases": resp,
		"groups":  m.Groups,
		"count":   len(resp),
	})
}

func (s *Server) handleCreateAlias(w http.ResponseWriter, r *http.Request) {
	m := machineFromContext(r)

	var req aliasRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed JSON body")
		return
	}

	if !aliasNamePattern.MatchString(req.Name) {
		writeError(w, http.StatusBadRequest, "name must match [A-Za-z0-9_.-]+")
		return
	}
	if secrets.Looks(req.Name, req.Command) {
		writeError(w, http.StatusBadRequest, "rejected: name/command looks like a secret")
		return
	}
	if !m.InGroup(req.Group) {
		writeError(w, http.StatusForbidden, "not a member of target group")
		return
	}

	alias, err := s.store.AddAlias(req.Name, req.Command, req.Group, m.MachineID)
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			writeError(w, http.StatusConflict, "alias already exists in this group")
			return
		}
		s.log.WithError(err).Error("Failed to create alias")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	s.broadcastAliasEvent(protocol.EventAliasAdded, alias, m.MachineID)
	writeJSON(w, http.StatusOK, toAliasResponse(alias))
}

func (s *Server) handleUpdateAlias(w http.ResponseWriter, r *http.Request) {
	m := machineFromContext(r)

	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid alias id")
		return
	}

	var req struct {
		Command string `json:"command"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed JSON body")
		return
	}

	existing, err := s.store.GetByID(id)
	if err != nil {
		s.log.WithError(err).Error("Failed to look up alias")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if existing == nil {
		writeError(w, http.StatusNotFound, "alias not found")
		return
	}
	if !m.InGroup(existing.GroupName) {
		writeError(w, http.StatusForbidden, "not a member of target group")
		return
	}
	if secrets.Looks(existing.Name, req.Command) {
		writeError(w, http.StatusBadRequest, "rejected: name/command looks like a secret")
		return
	}

	updated, err := s.store.UpdateAlias(id, req.Command, m.MachineID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "alias not found")
			return
		}
		s.log.WithError(err).Error("Failed to update alias")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	s.broadcastAliasEvent(protocol.EventAliasUpdated, updated, m.MachineID)
	writeJSON(w, http.StatusOK, toAliasResponse(updated))
}

func (s *Server) handleDeleteAliasByID(w http.ResponseWriter, r *http.Request) {
	m := machineFromContext(r)

	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid alias id")
		return
	}

	existing, err := s.store.GetByID(id)
	if err != nil {
		s.log.WithError(err).Error("Failed to look up alias")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if existing == nil {
		writeError(w, http.StatusNotFound, "alias not found")
		return
	}
	if !m.InGroup(existing.GroupName) {
		writeError(w, http.StatusForbidden, "not a member of target group")
		return
	}

	if err := s.store.DeleteAlias(id, m.MachineID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "alias not found")
			return
		}
		s.log.WithError(err).Error("Failed to delete alias")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	s.broadcastAliasDeleted(*existing, m.MachineID)
	writeJSON(w, http.StatusOK, map[string]string{"message": "deleted"})
}

func (s *Server) handleDeleteAliasByName(w http.ResponseWriter, r *http.Request) {
	m := machineFromContext(r)

	name := mux.Vars(r)["name"]
	group := r.URL.Query().Get("group")
	if group == "" {
		group = "default"
	}

	if !m.InGroup(group) {
		writeError(w, http.StatusForbidden, "not a member of target group")
		return
	}

	existing, err := s.store.GetByName(name, group)
	if err != nil {
		s.log.WithError(err).Error("Failed to look up alias")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	if err := s.store.DeleteAliasByName(name, group, m.MachineID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "alias not found")
			return
		}
		s.log.WithError(err).Error("Failed to delete alias")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	if existing != nil {
		s.broadcastAliasDeleted(*existing, m.MachineID)
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "deleted"})
}
