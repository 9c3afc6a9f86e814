package optimizer

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/tradelab/breakaway/internal/modules/params"
)

// Search strategy names accepted by the service.
const (
	StrategyGrid      = "grid"
	StrategyDescent   = "descent"
	StrategyLocal     = "local"
	StrategyHillClimb = "hillclimb"
	StrategySpherical = "spherical"
)

// Progress is one progress beat emitted by a running search.
type Progress struct {
	Iteration   int
	Evaluations int
	BestPnL     float64
	BestConfig  params.Config
	Message     string
}

// Env is everything a search strategy needs: the space it walks, the
// evaluator that scores points, the best-config record and a progress
// sink. report may be called from the strategy's own goroutine only.
type Env struct {
	Space     *params.Space
	Eval      *Evaluator
	Best      *BestConfigStore
	SessionID string
	Log       zerolog.Logger

	report func(Progress)

	iteration   int
	evaluations int
	bestPnL     float64
	bestCfg     params.Config
}

// SearchStrategy walks the parameter space until it converges, its
// budget runs out or the context is cancelled.
type SearchStrategy interface {
	Name() string
	Run(ctx context.Context, env *Env) error
}

// Options bound a search session.
type Options struct {
	MaxIterations    int // 0 = strategy default
	MaxTestsPerParam int // for local search
	MaxCombos        int // cap for grid search
	MaxRadius        int // cap for spherical search
	FromInitial      bool
}

// NewStrategy returns the named search strategy.
func NewStrategy(name string, opts Options) (SearchStrategy, error) {
	switch name {
	case StrategyGrid:
		return &GridSearch{MaxCombos: opts.MaxCombos}, nil
	case StrategyDescent:
		return &CoordinateDescent{MaxIterations: opts.MaxIterations, FromInitial: opts.FromInitial}, nil
	case StrategyLocal:
		return &LocalSearch{
			MaxIterations:    opts.MaxIterations,
			MaxTestsPerParam: opts.MaxTestsPerParam,
			FromInitial:      opts.FromInitial,
		}, nil
	case StrategyHillClimb:
		return &HillClimb{MaxIterations: opts.MaxIterations}, nil
	case StrategySpherical:
		return &SphericalSearch{MaxRadius: opts.MaxRadius}, nil
	default:
		return nil, fmt.Errorf("unknown strategy %q", name)
	}
}

// StrategyNames lists the registered search strategies.
func StrategyNames() []string {
	return []string{StrategyGrid, StrategyDescent, StrategyLocal, StrategyHillClimb, StrategySpherical}
}

// evaluate scores cfg and folds the result into the session's running
// best, updating the persistent record as a side effect.
func (env *Env) evaluate(ctx context.Context, cfg params.Config) (float64, error) {
	trial, _, err := env.Eval.Evaluate(ctx, cfg, env.SessionID)
	if err != nil {
		return 0, err
	}
	env.evaluations++

	if env.bestCfg == nil || trial.PnL > env.bestPnL {
		env.bestPnL = trial.PnL
		env.bestCfg = cfg.Clone()
		if _, err := env.Best.Update(cfg, trial.PnL); err != nil {
			return 0, err
		}
	}
	return trial.PnL, nil
}

// beginIteration bumps the iteration counter and reports progress.
func (env *Env) beginIteration(message string) {
	env.iteration++
	env.reportProgress(message)
}

func (env *Env) reportProgress(message string) {
	if env.report == nil {
		return
	}
	var cfg params.Config
	if env.bestCfg != nil {
		cfg = env.bestCfg.Clone()
	}
	env.report(Progress{
		Iteration:   env.iteration,
		Evaluations: env.evaluations,
		BestPnL:     env.bestPnL,
		BestConfig:  cfg,
		Message:     message,
	})
}

// startingPoint resolves the search's starting configuration: the
// persisted best unless the caller asked to reset from initial values.
func startingPoint(env *Env, fromInitial bool) (params.Config, error) {
	if fromInitial {
		return env.Space.InitialConfig(), nil
	}
	cfg, _, _, err := env.Best.Load()
	return cfg, err
}
