package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all surrogate routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/surrogate", func(r chi.Router) {
		r.Post("/fit", h.HandleFit)
		r.Post("/suggest", h.HandleSuggest)
		r.Get("/status", h.HandleStatus)
	})
}
