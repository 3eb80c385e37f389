package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/atinyakov/CommitKeeper/internal/models"
	"github.com/atinyakov/CommitKeeper/internal/service"
)

// RegistryService defines the registry operations required by RegistryHandler.
type RegistryService interface {
	// Publish stores a new commitment.
	Publish(ctx context.Context, id, scheme, digest string) (models.PublishedCommitment, error)
	// Get returns a single commitment.
	Get(ctx context.Context, id string) (*models.PublishedCommitment, error)
	// List returns the commitments for the given IDs.
	List(ctx context.Context, ids []string) ([]models.PublishedCommitment, error)
	// Reveal checks an opening and records it if it matches.
	Reveal(ctx context.Context, id, input, pepper string) (bool, error)
}

// RegistryHandler handles HTTP requests for the commitment board.
type RegistryHandler struct {
	RegistryService RegistryService
	Log             *zap.Logger
}

// PublishRequest is the JSON payload for POST /api/commitments.
type PublishRequest struct {
	ID         string `json:"id"`
	Scheme     string `json:"scheme"`
	Commitment string `json:"commitment"`
}

// RevealRequest is the JSON payload for POST /api/commitments/{id}/reveal.
type RevealRequest struct {
	Input  string `json:"input"`
	Pepper string `json:"pepper"`
}

// Publish handles POST /api/commitments.
func (h *RegistryHandler) Publish(w http.ResponseWriter, r *http.Request) {
	var req PublishRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	c, err := h.RegistryService.Publish(r.Context(), req.ID, req.Scheme, req.Commitment)
	switch {
	case errors.Is(err, service.ErrInvalidCommitment):
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	case errors.Is(err, service.ErrAlreadyPublished):
		http.Error(w, "commitment already published", http.StatusConflict)
		return
	case err != nil:
		h.logger().Error("publish failed", zap.String("id", req.ID), zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, c)
}

// Get handles GET /api/commitments/{id}.
func (h *RegistryHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	c, err := h.RegistryService.Get(r.Context(), id)
	switch {
	case errors.Is(err, service.ErrCommitmentNotFound):
		http.Error(w, "commitment not found", http.StatusNotFound)
		return
	case err != nil:
		h.logger().Error("get failed", zap.String("id", id), zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, c)
}

// List handles GET /api/commitments?id=a&id=b.
func (h *RegistryHandler) List(w http.ResponseWriter, r *http.Request) {
	ids := r.URL.Query()["id"]

	list, err := h.RegistryService.List(r.Context(), ids)
	if err != nil {
		h.logger().Error("list failed", zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, list)
}

// Reveal handles POST /api/commitments/{id}/reveal.
func (h *RegistryHandler) Reveal(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req RevealRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	ok, err := h.RegistryService.Reveal(r.Context(), id, req.Input, req.Pepper)
	switch {
	case errors.Is(err, service.ErrCommitmentNotFound):
		http.Error(w, "commitment not found", http.StatusNotFound)
		return
	case errors.Is(err, service.ErrAlreadyRevealed):
		http.Error(w, "commitment already revealed", http.StatusConflict)
		return
	case errors.Is(err, service.ErrInvalidOpening):
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	case err != nil:
		h.logger().Error("reveal failed", zap.String("id", id), zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	if ok {
		h.logger().Info("commitment revealed", zap.String("id", id))
	}
	writeJSON(w, http.StatusOK, map[string]bool{"valid": ok})
}

func (h *RegistryHandler) logger() *zap.Logger {
	if h.Log == nil {
		return zap.NewNop()
	}
	return h.Log
}
