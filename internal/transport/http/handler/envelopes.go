package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-docverify/internal/domain"
)

// MessageEnvelope is the generic response wrapper.
type MessageEnvelope struct {
	Message string `json:"message,omitempty"`
}

// ErrorEnvelope carries a failure kind and a caller-safe message.
type ErrorEnvelope struct {
	Success bool             `json:"success"`
	Error   domain.ErrorKind `json:"error"`
	Message string           `json:"message,omitempty"`
}

// BeginEnvelope answers a document upload.
type BeginEnvelope struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	SessionID string `json:"session_id"`
	TTL       int    `json:"ttl"` // seconds
	ExpiresAt int64  `json:"expires_at"`
}

// ConfirmEnvelope releases the verified identity.
type ConfirmEnvelope struct {
	Success     bool                    `json:"success"`
	Message     string                  `json:"message"`
	Data        domain.VerifiedIdentity `json:"data"`
	Attestation string                  `json:"attestation,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, kind domain.ErrorKind, msg string) {
	writeJSON(w, status, ErrorEnvelope{Error: kind, Message: msg})
}
