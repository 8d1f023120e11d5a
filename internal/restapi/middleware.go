package restapi

import (
	"context"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/shellsync/shellsync/internal/models"
)

type contextKey string

const machineContextKey contextKey = "machine"

// bearerAuth resolves the request's "Authorization: Bearer <token>" header
// to a registered Machine via the store and attaches it to the request
// context, mirroring the teacher's cluster-auth middleware shape
// (internal/middleware/cluster_auth.go) adapted to the spec's opaque
// bearer-token model (spec §4.D/§6: one token maps 1:1 to a Machine).
func (s *Server) bearerAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		token := strings.TrimPrefix(header, "Bearer ")

		m, err := s.store.GetMachineByToken(token)
		if err != nil {
			s.log.WithError(err).Error("Auth lookup failed")
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		if m == nil {
			writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}

		if err := s.store.UpdateLastSeen(m.MachineID); err != nil {
			s.log.WithError(err).Warn("Failed to update last_seen")
		}

		ctx := context.WithValue(r.Context(), machineContextKey, m)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func machineFromContext(r *http.Request) *models.Machine {
	m, _ := r.Context().Value(machineContextKey).(*models.Machine)
	return m
}

// requestLogging logs each request at debug level, matching the teacher's
// terse per-request logging style.
func requestLogging(log *logrus.Entry) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			log.WithFields(logrus.Fields{"method": r.Method, "path": r.URL.Path}).Debug("Handling request")
			next.ServeHTTP(w, r)
		})
	}
}
