// Package handlers provides HTTP handlers for session reports.
package handlers

import (
	"encoding/json"
	"net/http"
	"path/filepath"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/tradelab/breakaway/internal/modules/report"
)

// Handler handles report HTTP requests
type Handler struct {
	generator *report.Generator
	log       zerolog.Logger
}

// NewHandler creates a new report handler
func NewHandler(generator *report.Generator, log zerolog.Logger) *Handler {
	return &Handler{
		generator: generator,
		log:       log.With().Str("handler", "report").Logger(),
	}
}

// RegisterRoutes registers all report routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/reports", func(r chi.Router) {
		r.Get("/", h.HandleList)
		r.Post("/sessions/{id}", func(w http.ResponseWriter, r *http.Request) {
			h.HandleGenerate(w, r, chi.URLParam(r, "id"))
		})
	})
}

// HandleGenerate handles POST /api/reports/sessions/{id}
func (h *Handler) HandleGenerate(w http.ResponseWriter, r *http.Request, id string) {
	path, err := h.generator.Generate(id)
	if err != nil {
		h.log.Warn().Err(err).Str("session_id", id).Msg("Failed to generate report")
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{"file": filepath.Base(path)})
}

// HandleList handles GET /api/reports
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	reports, err := h.generator.List()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list reports")
		http.Error(w, "Failed to list reports", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"data": reports})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
