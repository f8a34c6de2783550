package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/go-docverify/internal/domain"
)

// writeJSONError writes the same error envelope the handlers use.
func writeJSONError(w http.ResponseWriter, status int, kind domain.ErrorKind, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"success": false, "error": kind, "message": msg})
}
