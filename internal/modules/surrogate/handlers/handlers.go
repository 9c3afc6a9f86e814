// Package handlers provides HTTP handlers for the surrogate model.
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/tradelab/breakaway/internal/modules/params"
	"github.com/tradelab/breakaway/internal/modules/surrogate"
)

// Handler handles surrogate model HTTP requests
type Handler struct {
	service *surrogate.Service
	space   *params.Space
	log     zerolog.Logger
}

// NewHandler creates a new surrogate handler
func NewHandler(service *surrogate.Service, space *params.Space, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		space:   space,
		log:     log.With().Str("handler", "surrogate").Logger(),
	}
}

type fitRequest struct {
	HiddenLayers []int   `json:"hidden_layers"`
	LearningRate float64 `json:"learning_rate"`
	Epochs       int     `json:"epochs"`
	BatchSize    int     `json:"batch_size"`
	Seed         int64   `json:"seed"`
}

// HandleFit handles POST /api/surrogate/fit
func (h *Handler) HandleFit(w http.ResponseWriter, r *http.Request) {
	cfg := surrogate.DefaultMLPConfig()

	var req fitRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		if len(req.HiddenLayers) > 0 {
			cfg.HiddenLayers = req.HiddenLayers
		}
		if req.LearningRate > 0 {
			cfg.LearningRate = req.LearningRate
		}
		if req.Epochs > 0 {
			cfg.Epochs = req.Epochs
		}
		if req.BatchSize > 0 {
			cfg.BatchSize = req.BatchSize
		}
		if req.Seed != 0 {
			cfg.Seed = req.Seed
		}
	}

	status, err := h.service.Fit(cfg)
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to fit surrogate model")
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}

	writeJSON(w, http.StatusOK, status)
}

type suggestRequest struct {
	Config        map[string]string `json:"config"`
	TopK          int               `json:"top_k"`
	PerParam      int               `json:"per_param"`
	MaxCandidates int               `json:"max_candidates"`
	RandomSamples int               `json:"random_samples"`
}

// HandleSuggest handles POST /api/surrogate/suggest
func (h *Handler) HandleSuggest(w http.ResponseWriter, r *http.Request) {
	var req suggestRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
	}

	anchor := h.space.InitialConfig()
	if len(req.Config) > 0 {
		parsed, err := params.ConfigFromFileForm(h.space, req.Config)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		anchor = parsed
	}

	opts := surrogate.DefaultCandidateOptions()
	if req.PerParam > 0 {
		opts.PerParam = req.PerParam
	}
	if req.MaxCandidates > 0 {
		opts.MaxCandidates = req.MaxCandidates
	}
	if req.RandomSamples > 0 {
		opts.RandomSamples = req.RandomSamples
	}

	suggestions, err := h.service.Suggest(anchor, opts, req.TopK)
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to score candidates")
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"data": suggestions})
}

// HandleStatus handles GET /api/surrogate/status
func (h *Handler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.service.Status())
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
