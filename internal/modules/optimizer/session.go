package optimizer

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tradelab/breakaway/internal/database"
)

// Session lifecycle states.
const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
	StatusCancelled = "cancelled"
)

// Session is one optimization run: a strategy walking the space from
// start to convergence, cancellation or failure.
type Session struct {
	ID          string            `json:"id"`
	Strategy    string            `json:"strategy"`
	Status      string            `json:"status"`
	StartedAt   time.Time         `json:"started_at"`
	FinishedAt  *time.Time        `json:"finished_at,omitempty"`
	Iterations  int               `json:"iterations"`
	Evaluations int               `json:"evaluations"`
	BestPnL     *float64          `json:"best_pnl,omitempty"`
	BestConfig  map[string]string `json:"best_config,omitempty"`
	Error       string            `json:"error,omitempty"`
}

// NewSession creates a running session for a strategy.
func NewSession(strategyName string) *Session {
	return &Session{
		ID:        uuid.New().String(),
		Strategy:  strategyName,
		Status:    StatusRunning,
		StartedAt: time.Now().UTC(),
	}
}

// SessionRepository persists sessions in SQLite.
type SessionRepository struct {
	db  *database.DB
	log zerolog.Logger
}

// NewSessionRepository creates a session repository.
func NewSessionRepository(db *database.DB, logger zerolog.Logger) *SessionRepository {
	return &SessionRepository{
		db:  db,
		log: logger.With().Str("component", "sessions").Logger(),
	}
}

// Save inserts or replaces a session row.
func (r *SessionRepository) Save(s *Session) error {
	var bestConfig interface{}
	if s.BestConfig != nil {
		data, err := json.Marshal(s.BestConfig)
		if err != nil {
			return fmt.Errorf("failed to marshal best config: %w", err)
		}
		bestConfig = string(data)
	}

	var finishedAt interface{}
	if s.FinishedAt != nil {
		finishedAt = s.FinishedAt.Format(time.RFC3339Nano)
	}
	var bestPnL interface{}
	if s.BestPnL != nil {
		bestPnL = *s.BestPnL
	}

	query := `
		INSERT INTO sessions (id, strategy, status, started_at, finished_at, iterations, evaluations, best_pnl, best_config)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			finished_at = excluded.finished_at,
			iterations = excluded.iterations,
			evaluations = excluded.evaluations,
			best_pnl = excluded.best_pnl,
			best_config = excluded.best_config
	`
	_, err := r.db.Exec(query,
		s.ID, s.Strategy, s.Status, s.StartedAt.Format(time.RFC3339Nano),
		finishedAt, s.Iterations, s.Evaluations, bestPnL, bestConfig,
	)
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// Get returns a session by ID, found=false when unknown.
func (r *SessionRepository) Get(id string) (*Session, bool, error) {
	row := r.db.QueryRow(`
		SELECT id, strategy, status, started_at, finished_at, iterations, evaluations, best_pnl, best_config
		FROM sessions WHERE id = ?`, id)

	s, err := scanSession(row.Scan)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get session: %w", err)
	}
	return s, true, nil
}

// List returns sessions newest first.
func (r *SessionRepository) List(limit int) ([]Session, error) {
	query := `
		SELECT id, strategy, status, started_at, finished_at, iterations, evaluations, best_pnl, best_config
		FROM sessions ORDER BY started_at DESC`
	var args []interface{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		s, err := scanSession(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, *s)
	}
	return sessions, rows.Err()
}

func scanSession(scan func(...interface{}) error) (*Session, error) {
	var s Session
	var startedAt string
	var finishedAt, bestConfig sql.NullString
	var bestPnL sql.NullFloat64

	err := scan(&s.ID, &s.Strategy, &s.Status, &startedAt, &finishedAt,
		&s.Iterations, &s.Evaluations, &bestPnL, &bestConfig)
	if err != nil {
		return nil, err
	}

	if ts, err := time.Parse(time.RFC3339Nano, startedAt); err == nil {
		s.StartedAt = ts
	}
	if finishedAt.Valid {
		if ts, err := time.Parse(time.RFC3339Nano, finishedAt.String); err == nil {
			s.FinishedAt = &ts
		}
	}
	if bestPnL.Valid {
		v := bestPnL.Float64
		s.BestPnL = &v
	}
	if bestConfig.Valid {
		if err := json.Unmarshal([]byte(bestConfig.String), &s.BestConfig); err != nil {
			return nil, fmt.Errorf("failed to unmarshal best config: %w", err)
		}
	}

	return &s, nil
}
