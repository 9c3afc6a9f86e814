package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all optimizer routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/optimizer", func(r chi.Router) {
		r.Post("/sessions", h.HandleStart)
		r.Get("/sessions", h.HandleListSessions)
		r.Get("/sessions/{id}", func(w http.ResponseWriter, r *http.Request) {
			h.HandleGetSession(w, r, chi.URLParam(r, "id"))
		})
		r.Post("/sessions/{id}/cancel", func(w http.ResponseWriter, r *http.Request) {
			h.HandleCancelSession(w, r, chi.URLParam(r, "id"))
		})
		r.Get("/best", h.HandleGetBest)
		r.Get("/strategies", h.HandleGetStrategies)
		r.Get("/progress", h.HandleProgressWS)
	})
}
