// Package http provides HTTP handlers for the commitment registry.
package http

import (
	"encoding/json"
	"net/http"

	"github.com/atinyakov/CommitKeeper/internal/service"
)

// VerifyHandler lets anyone check a revealed opening against a commitment
// without the registry storing anything.
type VerifyHandler struct{}

// VerifyRequest is the JSON payload for POST /api/verify.
type VerifyRequest struct {
	// Scheme is optional; empty means the default scheme.
	Scheme     string `json:"scheme"`
	Input      string `json:"input"`
	Pepper     string `json:"pepper"`
	Commitment string `json:"commitment"`
}

// Verify handles POST /api/verify. Malformed encodings are 400; a
// well-formed opening answers {"valid": true|false}.
func (h *VerifyHandler) Verify(w http.ResponseWriter, r *http.Request) {
	var req VerifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	ok, err := service.VerifyOpening(req.Scheme, req.Input, req.Pepper, req.Commitment)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"valid": ok})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
