package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/stridehq/community-engine/pkg/apperrors"
)

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

// respondError maps a service error onto its HTTP status and wire code. The
// wrapped message carries the rule that failed, so clients can render it.
func respondError(w http.ResponseWriter, err error) {
	code := apperrors.Code(err)
	message := err.Error()
	if code == "INTERNAL" {
		message = "internal server error"
	}
	respondJSON(w, apperrors.Status(err), map[string]string{
		"error":   code,
		"message": message,
	})
}
