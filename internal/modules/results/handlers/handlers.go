// Package handlers provides HTTP handlers for the trial store.
package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/tradelab/breakaway/internal/modules/params"
	"github.com/tradelab/breakaway/internal/modules/results"
)

// Handler handles trial store HTTP requests
type Handler struct {
	repo  *results.Repository
	space *params.Space
	log   zerolog.Logger
}

// NewHandler creates a new results handler
func NewHandler(repo *results.Repository, space *params.Space, log zerolog.Logger) *Handler {
	return &Handler{
		repo:  repo,
		space: space,
		log:   log.With().Str("handler", "results").Logger(),
	}
}

// HandleListTrials handles GET /api/trials
// Query: limit (default 50), session_id, min_pnl
func (h *Handler) HandleListTrials(w http.ResponseWriter, r *http.Request) {
	filter := results.Filter{Limit: 50}

	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 {
			filter.Limit = parsed
		}
	}
	filter.SessionID = r.URL.Query().Get("session_id")
	if minStr := r.URL.Query().Get("min_pnl"); minStr != "" {
		min, err := strconv.ParseFloat(minStr, 64)
		if err != nil {
			http.Error(w, "invalid min_pnl", http.StatusBadRequest)
			return
		}
		filter.MinPnL = &min
	}

	trials, err := h.repo.List(filter)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list trials")
		http.Error(w, "Failed to list trials", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"data": trialViews(trials, h.space)})
}

// HandleBestTrial handles GET /api/trials/best
func (h *Handler) HandleBestTrial(w http.ResponseWriter, r *http.Request) {
	trial, found, err := h.repo.Best()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to get best trial")
		http.Error(w, "Failed to get best trial", http.StatusInternalServerError)
		return
	}
	if !found {
		http.Error(w, "No trials stored", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, trialView(*trial, h.space))
}

// HandleCount handles GET /api/trials/count
func (h *Handler) HandleCount(w http.ResponseWriter, r *http.Request) {
	count, err := h.repo.Count()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to count trials")
		http.Error(w, "Failed to count trials", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"count": count})
}

type importRequest struct {
	Path string `json:"path"`
}

// HandleImport handles POST /api/trials/import
// Imports a server-local results CSV into the store.
func (h *Handler) HandleImport(w http.ResponseWriter, r *http.Request) {
	var req importRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Path == "" {
		http.Error(w, "path is required", http.StatusBadRequest)
		return
	}

	report, err := results.ImportCSV(req.Path, h.space, h.repo, h.log)
	if err != nil {
		h.log.Warn().Err(err).Str("path", req.Path).Msg("Failed to import results")
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	writeJSON(w, http.StatusOK, map[string]int{
		"imported": report.Imported,
		"skipped":  report.Skipped,
	})
}

// HandleExport handles GET /api/trials/export
// Streams the whole store as a results CSV.
func (h *Handler) HandleExport(w http.ResponseWriter, r *http.Request) {
	trials, err := h.repo.List(results.Filter{})
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to export trials")
		http.Error(w, "Failed to export trials", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="results.csv"`)
	if err := results.WriteCSV(w, trials, h.space); err != nil {
		h.log.Error().Err(err).Msg("Failed to write CSV export")
	}
}

// trialView renders a trial with its configuration in file form so
// clock parameters come out as "HH:MM".
type view struct {
	ID           int64             `json:"id"`
	Config       map[string]string `json:"config"`
	PnL          float64           `json:"pnl"`
	Invested     float64           `json:"invested_capital"`
	ROI          float64           `json:"roi"`
	Trades       int               `json:"trades"`
	WinRate      float64           `json:"win_rate"`
	DailyPnLStd  float64           `json:"daily_pnl_std"`
	MaxDrawdown  float64           `json:"max_drawdown"`
	PositiveDays int               `json:"positive_days"`
	NegativeDays int               `json:"negative_days"`
	SessionID    string            `json:"session_id,omitempty"`
	CreatedAt    string            `json:"created_at"`
}

func trialView(t results.Trial, space *params.Space) view {
	return view{
		ID:           t.ID,
		Config:       t.Config.FileForm(space),
		PnL:          t.PnL,
		Invested:     t.Invested,
		ROI:          t.ROI,
		Trades:       t.Trades,
		WinRate:      t.WinRate,
		DailyPnLStd:  t.DailyPnLStd,
		MaxDrawdown:  t.MaxDrawdown,
		PositiveDays: t.PositiveDays,
		NegativeDays: t.NegativeDays,
		SessionID:    t.SessionID,
		CreatedAt:    t.CreatedAt.Format(time.RFC3339),
	}
}

func trialViews(trials []results.Trial, space *params.Space) []view {
	views := make([]view, len(trials))
	for i, t := range trials {
		views[i] = trialView(t, space)
	}
	return views
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
