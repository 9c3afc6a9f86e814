package results

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/tradelab/breakaway/internal/database"
	"github.com/tradelab/breakaway/internal/modules/params"
)

// Repository stores trials in SQLite. The config_key column is unique,
// so re-evaluating a known configuration updates its row in place.
type Repository struct {
	db    *database.DB
	space *params.Space
	log   zerolog.Logger
}

// NewRepository creates a trial repository.
func NewRepository(db *database.DB, space *params.Space, logger zerolog.Logger) *Repository {
	return &Repository{
		db:    db,
		space: space,
		log:   logger.With().Str("component", "results").Logger(),
	}
}

// Save inserts a trial, replacing any previous trial with the same
// config key.
func (r *Repository) Save(trial *Trial) error {
	configJSON, err := json.Marshal(trial.Config.FileForm(r.space))
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	query := `
		INSERT INTO trials (
			config_key, config_json, pnl, invested_capital, roi, trades,
			win_rate, daily_pnl_std, max_drawdown, positive_days,
			negative_days, session_id, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(config_key) DO UPDATE SET
			config_json = excluded.config_json,
			pnl = excluded.pnl,
			invested_capital = excluded.invested_capital,
			roi = excluded.roi,
			trades = excluded.trades,
			win_rate = excluded.win_rate,
			daily_pnl_std = excluded.daily_pnl_std,
			max_drawdown = excluded.max_drawdown,
			positive_days = excluded.positive_days,
			negative_days = excluded.negative_days,
			session_id = excluded.session_id,
			created_at = excluded.created_at
	`

	_, err = r.db.Exec(query,
		trial.ConfigKey, string(configJSON), trial.PnL, trial.Invested,
		trial.ROI, trial.Trades, trial.WinRate, trial.DailyPnLStd,
		trial.MaxDrawdown, trial.PositiveDays, trial.NegativeDays,
		nullString(trial.SessionID), trial.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("failed to save trial: %w", err)
	}
	return nil
}

// GetByKey looks a trial up by its canonical config key. The bool
// reports whether it was found.
func (r *Repository) GetByKey(key string) (*Trial, bool, error) {
	row := r.db.QueryRow(selectColumns+` FROM trials WHERE config_key = ?`, key)
	trial, err := r.scanTrial(row.Scan)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get trial: %w", err)
	}
	return trial, true, nil
}

// Filter narrows trial listings. Zero values leave a dimension open.
type Filter struct {
	SessionID string
	MinPnL    *float64
	Limit     int
}

// List returns trials sorted by PnL, best first.
func (r *Repository) List(filter Filter) ([]Trial, error) {
	query := selectColumns + ` FROM trials`
	var args []interface{}
	var where []string

	if filter.SessionID != "" {
		where = append(where, "session_id = ?")
		args = append(args, filter.SessionID)
	}
	if filter.MinPnL != nil {
		where = append(where, "pnl >= ?")
		args = append(args, *filter.MinPnL)
	}
	for i, clause := range where {
		if i == 0 {
			query += " WHERE " + clause
		} else {
			query += " AND " + clause
		}
	}

	query += " ORDER BY pnl DESC, id ASC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list trials: %w", err)
	}
	defer rows.Close()

	var trials []Trial
	for rows.Next() {
		trial, err := r.scanTrial(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan trial: %w", err)
		}
		trials = append(trials, *trial)
	}
	return trials, rows.Err()
}

// Top returns the n best trials by PnL.
func (r *Repository) Top(n int) ([]Trial, error) {
	return r.List(Filter{Limit: n})
}

// Best returns the single best trial, or found=false on an empty store.
func (r *Repository) Best() (*Trial, bool, error) {
	top, err := r.Top(1)
	if err != nil {
		return nil, false, err
	}
	if len(top) == 0 {
		return nil, false, nil
	}
	return &top[0], true, nil
}

// Count returns the number of stored trials.
func (r *Repository) Count() (int, error) {
	var count int
	if err := r.db.QueryRow(`SELECT COUNT(*) FROM trials`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count trials: %w", err)
	}
	return count, nil
}

const selectColumns = `
	SELECT id, config_key, config_json, pnl, invested_capital, roi,
	       trades, win_rate, daily_pnl_std, max_drawdown, positive_days,
	       negative_days, session_id, created_at`

func (r *Repository) scanTrial(scan func(...interface{}) error) (*Trial, error) {
	var trial Trial
	var configJSON, createdAt string
	var sessionID sql.NullString

	err := scan(
		&trial.ID, &trial.ConfigKey, &configJSON, &trial.PnL,
		&trial.Invested, &trial.ROI, &trial.Trades, &trial.WinRate,
		&trial.DailyPnLStd, &trial.MaxDrawdown, &trial.PositiveDays,
		&trial.NegativeDays, &sessionID, &createdAt,
	)
	if err != nil {
		return nil, err
	}

	var form map[string]string
	if err := json.Unmarshal([]byte(configJSON), &form); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg, err := params.ConfigFromFileForm(r.space, form)
	if err != nil {
		return nil, err
	}
	trial.Config = cfg

	trial.SessionID = sessionID.String
	if ts, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
		trial.CreatedAt = ts
	}

	return &trial, nil
}

func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
