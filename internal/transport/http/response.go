package transporthttp

import (
	"net/http"

	"github.com/goccy/go-json"
)

// Envelope is the uniform response shape: Message holds per-destination
// result arrays on success and a human-readable string on error.
type Envelope struct {
	Status  string `json:"status"`
	Message any    `json:"message"`
}

const (
	StatusSuccess = "Success"
	StatusError   = "Error"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeSuccess(w http.ResponseWriter, message any) {
	writeJSON(w, http.StatusOK, Envelope{Status: StatusSuccess, Message: message})
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, Envelope{Status: StatusError, Message: message})
}
