// Package handlers provides HTTP handlers for the parameter space.
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/tradelab/breakaway/internal/modules/params"
)

// Handler handles parameter space HTTP requests
type Handler struct {
	space *params.Space
	log   zerolog.Logger
}

// NewHandler creates a new params handler
func NewHandler(space *params.Space, log zerolog.Logger) *Handler {
	return &Handler{
		space: space,
		log:   log.With().Str("handler", "params").Logger(),
	}
}

// RegisterRoutes registers all parameter routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/params", func(r chi.Router) {
		r.Get("/", h.HandleList)
		r.Get("/initial", h.HandleInitialConfig)
	})
}

// parameterView is the API form of one parameter. Values are file form
// so clock parameters come out as "HH:MM".
type parameterView struct {
	Name     string `json:"name"`
	Kind     string `json:"kind"`
	Initial  string `json:"initial_value"`
	Min      string `json:"min_value"`
	Max      string `json:"max_value"`
	Step     string `json:"step"`
	Priority int    `json:"priority"`
	Enabled  bool   `json:"enabled"`
}

// HandleList handles GET /api/params
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	views := make([]parameterView, 0, h.space.Len())
	for _, name := range h.space.Names() {
		p, _ := h.space.Get(name)

		kind := "numeric"
		if p.Kind == params.KindClock {
			kind = "clock"
		}

		views = append(views, parameterView{
			Name:     p.Name,
			Kind:     kind,
			Initial:  p.Format(p.Initial),
			Min:      p.Format(p.Min),
			Max:      p.Format(p.Max),
			Step:     p.Format(p.Step),
			Priority: p.Priority,
			Enabled:  p.Enabled,
		})
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"data": views})
}

// HandleInitialConfig handles GET /api/params/initial
func (h *Handler) HandleInitialConfig(w http.ResponseWriter, r *http.Request) {
	cfg := h.space.InitialConfig()
	writeJSON(w, http.StatusOK, map[string]interface{}{"config": cfg.FileForm(h.space)})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
