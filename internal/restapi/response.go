package restapi

import (
	"encoding/json"
	"net/http"

	"github.com/sirupsen/logrus"
)

var logFallback = logrus.WithField("component", "restapi")

type errorBody struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorBody{Error: message})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logFallback.WithError(err).Error("Failed to encode response body")
	}
}
