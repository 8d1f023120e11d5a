// Package restapi implements the sync service's authenticated HTTP surface
// (spec §4.D): registration, alias CRUD, bulk import, conflicts, audit and
// shell-history queries, masked machine listing, the git-backup trigger,
// and health. Grounded on the teacher's internal/server (gorilla/mux
// routing, gorilla/handlers request logging) and internal/middleware
// (bearer-style auth middleware shape).
package restapi

import (
	"net/http"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/shellsync/shellsync/internal/hub"
	"github.com/shellsync/shellsync/internal/store"
)

// GitSyncTrigger is the external exporter contract (spec §1, §4.D
// POST /api/git/sync): a bulk read plus file write on a timer, specified
// here only by its trigger signature.
type GitSyncTrigger func() error

// Server holds the dependencies shared by every handler.
type Server struct {
	store   *store.Store
	hub     *hub.Hub
	gitSync GitSyncTrigger
	log     *logrus.Entry
}

// New builds a Server. gitSync may be nil, in which case POST /api/git/sync
// reports that no exporter is configured.
func New(st *store.Store, h *hub.Hub, gitSync GitSyncTrigger) *Server {
	return &Server{store: st, hub: h, gitSync: gitSync, log: logrus.WithField("component", "restapi")}
}

// Router builds the full gorilla/mux handler tree with request logging.
func (s *Server) Router() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/api/register", s.handleRegister).Methods(http.MethodPost)
	r.HandleFunc("/api/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/api/channel", s.handleChannel)

	authed := r.PathPrefix("/api").Subrouter()
	authed.Use(s.bearerAuth)

	authed.HandleFunc("/aliases", s.handleListAliases).Methods(http.MethodGet)
	authed.HandleFunc("/aliases", s.handleCreateAlias).Methods(http.MethodPost)
	authed.HandleFunc("/aliases/{id:[0-9]+}", s.handleUpdateAlias).Methods(http.MethodPut)
	authed.HandleFunc("/aliases/{id:[0-9]+}", s.handleDeleteAliasByID).Methods(http.MethodDelete)
	authed.HandleFunc("/aliases/name/{name}", s.handleDeleteAliasByName).Methods(http.MethodDelete)
	authed.HandleFunc("/import", s.handleImport).Methods(http.MethodPost)
	authed.HandleFunc("/conflicts", s.handleListConflicts).Methods(http.MethodGet)
	authed.HandleFunc("/conflicts/resolve", s.handleResolveConflict).Methods(http.MethodPost)
	authed.HandleFunc("/history", s.handleSyncAudit).Methods(http.MethodGet)
	authed.HandleFunc("/machines", s.handleListMachines).Methods(http.MethodGet)
	authed.HandleFunc("/git/sync", s.handleGitSync).Methods(http.MethodPost)
	authed.HandleFunc("/shell-history", s.handleShellHistory).Methods(http.MethodGet)

	return handlers.CombinedLoggingHandler(s.log.Logger.Out, requestLogging(s.log)(r))
}
