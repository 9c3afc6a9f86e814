package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all trial store routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/trials", func(r chi.Router) {
		r.Get("/", h.HandleListTrials)
		r.Get("/best", h.HandleBestTrial)
		r.Get("/count", h.HandleCount)
		r.Post("/import", h.HandleImport)
		r.Get("/export", h.HandleExport)
	})
}
