package restapi

import (
	"github.com/shellsync/shellsync/internal/models"
	"github.com/shellsync/shellsync/internal/protocol"
)

func (s *Server) broadcastAliasEvent(event protocol.ServerEventType, a models.Alias, originator string) {
	frame := protocol.ServerFrame{Event: event, Data: toAliasResponse(a)}
	if _, err := s.hub.BroadcastToGroups(s.store, []string{a.GroupName}, originator, frame); err != nil {
		s.log.WithError(err).Warn("Fan-out broadcast failed")
	}
}

func (s *Server) broadcastAliasDeleted(a models.Alias, originator string) {
	frame := protocol.ServerFrame{
		Event: protocol.EventAliasDeleted,
		Data:  map[string]interface{}{"id": a.ID, "name": a.Name},
	}
	if _, err := s.hub.BroadcastToGroups(s.store, []string{a.GroupName}, originator, frame); err != nil {
		s.log.WithError(err).Warn("Fan-out broadcast failed")
	}
}
