package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/raven-ai/assistant/pkg/model"
	"github.com/raven-ai/assistant/pkg/skillstore"
)

// writeJSON writes v as the response body with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps an internal error to spec.md §7's error-kind -> HTTP
// status table and writes the matching body.
func writeError(w http.ResponseWriter, err error) {
	var upstream *model.UpstreamError
	if errors.As(err, &upstream) {
		writeJSON(w, upstream.Status, map[string]string{"error": upstream.Code, "message": upstream.Message})
		return
	}
	if errors.Is(err, skillstore.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not_found", "message": err.Error()})
		return
	}
	var dbErr *DatabaseUnavailableError
	if errors.As(err, &dbErr) {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "database_unavailable", "message": err.Error()})
		return
	}
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal", "message": err.Error()})
}

// DatabaseUnavailableError marks a Skill Store failure that should surface
// as 503 rather than 500 (spec.md §7).
type DatabaseUnavailableError struct {
	Cause error
}

func (e *DatabaseUnavailableError) Error() string { return "database unavailable: " + e.Cause.Error() }
func (e *DatabaseUnavailableError) Unwrap() error { return e.Cause }
