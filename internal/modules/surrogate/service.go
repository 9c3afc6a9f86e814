package surrogate

import (
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/tradelab/breakaway/internal/modules/params"
	"github.com/tradelab/breakaway/internal/modules/results"
)

// MinTrainingTrials is the smallest trial count the model trains on.
// Below it the fit would memorize noise rather than learn the surface.
const MinTrainingTrials = 20

// Status describes the current model.
type Status struct {
	Fitted    bool       `json:"fitted"`
	Trials    int        `json:"trials"`
	TrainLoss float64    `json:"train_loss,omitempty"`
	FittedAt  *time.Time `json:"fitted_at,omitempty"`
}

// Suggestion is one scored candidate configuration.
type Suggestion struct {
	Config       map[string]string `json:"config"`
	PredictedPnL float64           `json:"predicted_pnl"`
	Tested       bool              `json:"tested"`
	ActualPnL    *float64          `json:"actual_pnl,omitempty"`
}

// Service owns the surrogate model lifecycle: fit from stored trials,
// score generated candidates, rank them by predicted PnL.
type Service struct {
	space *params.Space
	repo  *results.Repository
	log   zerolog.Logger

	mu       sync.RWMutex
	model    *MLP
	encoder  *FeatureEncoder
	xScaler  *StandardScaler
	yMean    float64
	yStd     float64
	status   Status
}

// NewService creates a surrogate service.
func NewService(space *params.Space, repo *results.Repository, logger zerolog.Logger) *Service {
	return &Service{
		space: space,
		repo:  repo,
		log:   logger.With().Str("component", "surrogate").Logger(),
	}
}

// Fit trains the model on all stored trials. It fails when fewer than
// MinTrainingTrials are available.
func (s *Service) Fit(cfg MLPConfig) (Status, error) {
	trials, err := s.repo.List(results.Filter{})
	if err != nil {
		return Status{}, fmt.Errorf("failed to load trials: %w", err)
	}
	if len(trials) < MinTrainingTrials {
		return Status{}, fmt.Errorf("need at least %d trials to fit, have %d", MinTrainingTrials, len(trials))
	}

	encoder := NewFeatureEncoder(s.space)
	features := make([][]float64, len(trials))
	targets := make([]float64, len(trials))
	for i, trial := range trials {
		features[i] = encoder.Encode(trial.Config)
		targets[i] = trial.PnL
	}

	xScaler, err := FitScaler(features)
	if err != nil {
		return Status{}, fmt.Errorf("failed to fit feature scaler: %w", err)
	}
	scaledX := xScaler.TransformAll(features)

	yMean, yStd := targetStats(targets)
	scaledY := make([]float64, len(targets))
	for i, y := range targets {
		scaledY[i] = (y - yMean) / yStd
	}

	model, err := NewMLP(encoder.Width(), cfg)
	if err != nil {
		return Status{}, err
	}

	start := time.Now()
	if err := model.Fit(scaledX, scaledY); err != nil {
		return Status{}, fmt.Errorf("failed to train model: %w", err)
	}

	var loss float64
	for i, row := range scaledX {
		d := model.Predict(row) - scaledY[i]
		loss += d * d
	}
	loss /= float64(len(scaledX))

	now := time.Now().UTC()
	status := Status{Fitted: true, Trials: len(trials), TrainLoss: loss, FittedAt: &now}

	s.mu.Lock()
	s.model = model
	s.encoder = encoder
	s.xScaler = xScaler
	s.yMean = yMean
	s.yStd = yStd
	s.status = status
	s.mu.Unlock()

	s.log.Info().
		Int("trials", len(trials)).
		Float64("train_loss", loss).
		Dur("duration", time.Since(start)).
		Msg("Surrogate model fitted")

	return status, nil
}

// Predict scores one configuration in real PnL units.
func (s *Service) Predict(cfg params.Config) (float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.model == nil {
		return 0, fmt.Errorf("model is not fitted")
	}

	scaled := s.xScaler.Transform(s.encoder.Encode(cfg))
	return s.model.Predict(scaled)*s.yStd + s.yMean, nil
}

// Suggest generates candidates around the anchor, scores them with the
// model and returns the topK by predicted PnL, best first. Candidates
// that already have a stored trial carry their actual PnL alongside.
func (s *Service) Suggest(anchor params.Config, opts CandidateOptions, topK int) ([]Suggestion, error) {
	s.mu.RLock()
	fitted := s.model != nil
	s.mu.RUnlock()
	if !fitted {
		return nil, fmt.Errorf("model is not fitted")
	}
	if topK <= 0 {
		topK = 10
	}

	candidates := GenerateCandidates(s.space, anchor, opts)

	suggestions := make([]Suggestion, 0, len(candidates))
	for _, cfg := range candidates {
		predicted, err := s.Predict(cfg)
		if err != nil {
			return nil, err
		}

		suggestion := Suggestion{
			Config:       cfg.FileForm(s.space),
			PredictedPnL: predicted,
		}

		trial, found, err := s.repo.GetByKey(cfg.Key(s.space))
		if err != nil {
			return nil, err
		}
		if found {
			suggestion.Tested = true
			actual := trial.PnL
			suggestion.ActualPnL = &actual
		}

		suggestions = append(suggestions, suggestion)
	}

	sort.SliceStable(suggestions, func(i, j int) bool {
		return suggestions[i].PredictedPnL > suggestions[j].PredictedPnL
	})

	if len(suggestions) > topK {
		suggestions = suggestions[:topK]
	}

	s.log.Debug().
		Int("candidates", len(candidates)).
		Int("returned", len(suggestions)).
		Msg("Candidates scored")

	return suggestions, nil
}

// Status reports whether a model is fitted and on how many trials.
func (s *Service) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// targetStats returns the mean and population standard deviation of the
// targets, with a unit floor so constant targets stay finite.
func targetStats(targets []float64) (mean, std float64) {
	for _, y := range targets {
		mean += y
	}
	mean /= float64(len(targets))

	for _, y := range targets {
		d := y - mean
		std += d * d
	}
	std = math.Sqrt(std / float64(len(targets)))
	if std == 0 {
		std = 1
	}
	return mean, std
}
