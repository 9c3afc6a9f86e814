// Package handlers provides HTTP handlers for optimization sessions.
package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/tradelab/breakaway/internal/modules/optimizer"
	"github.com/tradelab/breakaway/internal/modules/params"
)

// Handler handles optimizer HTTP requests
type Handler struct {
	service *optimizer.Service
	hub     *optimizer.Hub
	space   *params.Space
	log     zerolog.Logger
}

// NewHandler creates a new optimizer handler
func NewHandler(service *optimizer.Service, hub *optimizer.Hub, space *params.Space, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		hub:     hub,
		space:   space,
		log:     log.With().Str("handler", "optimizer").Logger(),
	}
}

type startRequest struct {
	Strategy         string `json:"strategy"`
	MaxIterations    int    `json:"max_iterations"`
	MaxTestsPerParam int    `json:"max_tests_per_param"`
	MaxCombos        int    `json:"max_combos"`
	MaxRadius        int    `json:"max_radius"`
	FromInitial      bool   `json:"from_initial"`
}

// HandleStart handles POST /api/optimizer/sessions
func (h *Handler) HandleStart(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Strategy == "" {
		http.Error(w, "strategy is required", http.StatusBadRequest)
		return
	}

	session, err := h.service.Start(req.Strategy, optimizer.Options{
		MaxIterations:    req.MaxIterations,
		MaxTestsPerParam: req.MaxTestsPerParam,
		MaxCombos:        req.MaxCombos,
		MaxRadius:        req.MaxRadius,
		FromInitial:      req.FromInitial,
	})
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to start session")
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}

	writeJSON(w, http.StatusCreated, session)
}

// HandleListSessions handles GET /api/optimizer/sessions
func (h *Handler) HandleListSessions(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	sessions, err := h.service.List(limit)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list sessions")
		http.Error(w, "Failed to list sessions", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"data": sessions})
}

// HandleGetSession handles GET /api/optimizer/sessions/{id}
func (h *Handler) HandleGetSession(w http.ResponseWriter, r *http.Request, id string) {
	session, found, err := h.service.Get(id)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to get session")
		http.Error(w, "Failed to get session", http.StatusInternalServerError)
		return
	}
	if !found {
		http.Error(w, "Session not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

// HandleCancelSession handles POST /api/optimizer/sessions/{id}/cancel
func (h *Handler) HandleCancelSession(w http.ResponseWriter, r *http.Request, id string) {
	if err := h.service.Cancel(id); err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"status": "cancelling"})
}

// HandleGetBest handles GET /api/optimizer/best
func (h *Handler) HandleGetBest(w http.ResponseWriter, r *http.Request) {
	cfg, pnl, found, err := h.service.BestConfig()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to load best config")
		http.Error(w, "Failed to load best config", http.StatusInternalServerError)
		return
	}

	response := map[string]interface{}{
		"found":  found,
		"config": cfg.FileForm(h.space),
	}
	if found {
		response["pnl"] = pnl
	}
	writeJSON(w, http.StatusOK, response)
}

// HandleGetStrategies handles GET /api/optimizer/strategies
func (h *Handler) HandleGetStrategies(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"data": optimizer.StrategyNames()})
}

// HandleProgressWS handles GET /api/optimizer/progress (websocket)
func (h *Handler) HandleProgressWS(w http.ResponseWriter, r *http.Request) {
	h.hub.ServeHTTP(w, r)
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
