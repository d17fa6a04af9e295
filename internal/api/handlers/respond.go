package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/eric-nichols-nyc/recall-api/internal/core"
)

// writeJSON serializes v with the given HTTP status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps a classified error to its status code and renders the
// user-facing message as {"error": "..."}.
func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, core.HTTPStatus(err), map[string]string{"error": core.Message(err)})
}

// writeBadRequest is for malformed request bodies, before any classified
// error exists.
func writeBadRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
}
