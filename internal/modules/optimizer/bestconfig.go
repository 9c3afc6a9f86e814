package optimizer

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/tradelab/breakaway/internal/modules/params"
)

// bestConfigFile is the on-disk form of the best configuration found.
type bestConfigFile struct {
	PnL       float64           `json:"pnl"`
	Config    map[string]string `json:"config"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// BestConfigStore persists the best configuration found across all
// sessions. Updates only ever improve the stored PnL, and writes are
// atomic so a crash can never leave a torn file.
type BestConfigStore struct {
	mu    sync.Mutex
	path  string
	space *params.Space
	log   zerolog.Logger

	loaded bool
	cfg    params.Config
	pnl    float64
	has    bool
}

// NewBestConfigStore creates a store backed by the given JSON file.
func NewBestConfigStore(path string, space *params.Space, logger zerolog.Logger) *BestConfigStore {
	return &BestConfigStore{
		path:  path,
		space: space,
		log:   logger.With().Str("component", "best_config").Logger(),
	}
}

// Load returns the stored best configuration and PnL. When no valid
// file exists the space's initial configuration is returned with
// has=false.
func (s *BestConfigStore) Load() (params.Config, float64, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.loadLocked(); err != nil {
		return nil, 0, false, err
	}
	if !s.has {
		return s.space.InitialConfig(), 0, false, nil
	}
	return s.cfg.Clone(), s.pnl, true, nil
}

func (s *BestConfigStore) loadLocked() error {
	if s.loaded {
		return nil
	}
	s.loaded = true

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read best config: %w", err)
	}

	var file bestConfigFile
	if err := json.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("failed to parse best config: %w", err)
	}

	cfg, err := params.ConfigFromFileForm(s.space, file.Config)
	if err != nil {
		return fmt.Errorf("invalid best config: %w", err)
	}
	if err := s.space.Validate(cfg); err != nil {
		s.log.Warn().Err(err).Msg("stored best config no longer fits the space, ignoring")
		return nil
	}

	s.cfg = cfg
	s.pnl = file.PnL
	s.has = true
	return nil
}

// Update stores cfg as the new best when pnl beats the current record.
// Returns true when the record improved.
func (s *BestConfigStore) Update(cfg params.Config, pnl float64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.loadLocked(); err != nil {
		return false, err
	}
	if s.has && pnl <= s.pnl {
		return false, nil
	}

	file := bestConfigFile{
		PnL:       pnl,
		Config:    cfg.FileForm(s.space),
		UpdatedAt: time.Now().UTC(),
	}
	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return false, fmt.Errorf("failed to marshal best config: %w", err)
	}

	// Write-then-rename keeps the previous record intact on failure.
	tmp := s.path + ".tmp"
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return false, fmt.Errorf("failed to create best config directory: %w", err)
	}
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return false, fmt.Errorf("failed to write best config: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return false, fmt.Errorf("failed to replace best config: %w", err)
	}

	s.cfg = cfg.Clone()
	s.pnl = pnl
	s.has = true
	s.log.Info().Float64("pnl", pnl).Msg("new best configuration")
	return true, nil
}
