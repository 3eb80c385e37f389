package http

import (
	"net/http"

	"github.com/atinyakov/CommitKeeper/internal/middleware"
	"go.uber.org/zap"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
)

// NewRouter constructs and returns an HTTP handler that serves the
// commitment registry API.
//
// Routes:
//
//	POST /api/verify                     → verifyHandler.Verify
//	POST /api/commitments                → registryHandler.Publish
//	GET  /api/commitments?id=…           → registryHandler.List
//	GET  /api/commitments/{id}           → registryHandler.Get
//	POST /api/commitments/{id}/reveal    → registryHandler.Reveal
//
// Middleware chain (applied in order):
//  1. AllowContentType("application/json"): rejects non-JSON bodies
//  2. WithRequestLogging(logger): logs each request without its body
func NewRouter(
	verifyHandler *VerifyHandler,
	registryHandler *RegistryHandler,
	logger *zap.Logger,
) http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.AllowContentType("application/json"))
	r.Use(middleware.WithRequestLogging(logger))

	r.Route("/api", func(r chi.Router) {
		r.Post("/verify", verifyHandler.Verify)

		r.Route("/commitments", func(r chi.Router) {
			r.Post("/", registryHandler.Publish)
			r.Get("/", registryHandler.List)
			r.Get("/{id}", registryHandler.Get)
			r.Post("/{id}/reveal", registryHandler.Reveal)
		})
	})

	return r
}
