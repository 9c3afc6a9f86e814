// Package optimizer searches the parameter space for configurations
// that maximize backtested PnL. Every evaluated configuration is cached
// in the trial store, so repeated sessions never re-simulate a known
// point, and the best configuration found is persisted separately and
// only ever improves.
package optimizer

import (
	"context"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/tradelab/breakaway/internal/modules/params"
	"github.com/tradelab/breakaway/internal/modules/results"
	"github.com/tradelab/breakaway/internal/modules/simulation"
)

// Evaluator scores configurations, consulting the trial store before
// running a simulation. Safe for concurrent use.
type Evaluator struct {
	space  *params.Space
	runner *simulation.Runner
	repo   *results.Repository
	log    zerolog.Logger

	evaluations atomic.Int64
	cacheHits   atomic.Int64
}

// NewEvaluator creates an evaluator over the given dataset runner and
// trial store.
func NewEvaluator(space *params.Space, runner *simulation.Runner, repo *results.Repository, logger zerolog.Logger) *Evaluator {
	return &Evaluator{
		space:  space,
		runner: runner,
		repo:   repo,
		log:    logger.With().Str("component", "evaluator").Logger(),
	}
}

// Evaluate returns the trial for cfg, simulating it only when the
// configuration has never been scored before.
func (e *Evaluator) Evaluate(ctx context.Context, cfg params.Config, sessionID string) (*results.Trial, bool, error) {
	key := cfg.Key(e.space)

	if trial, found, err := e.repo.GetByKey(key); err != nil {
		return nil, false, err
	} else if found {
		e.cacheHits.Add(1)
		e.log.Debug().Float64("pnl", trial.PnL).Msg("cache hit")
		return trial, true, nil
	}

	summary, err := e.runner.Run(ctx, cfg)
	if err != nil {
		return nil, false, err
	}

	trial := results.NewTrial(e.space, cfg, summary, sessionID)
	if err := e.repo.Save(&trial); err != nil {
		return nil, false, err
	}

	e.evaluations.Add(1)
	e.log.Debug().Float64("pnl", trial.PnL).Int("trades", trial.Trades).Msg("configuration simulated")
	return &trial, false, nil
}

// Evaluations returns how many simulations this evaluator has run.
func (e *Evaluator) Evaluations() int64 {
	return e.evaluations.Load()
}

// CacheHits returns how many evaluations were served from the store.
func (e *Evaluator) CacheHits() int64 {
	return e.cacheHits.Load()
}

// Tested reports whether a configuration already has a stored trial.
func (e *Evaluator) Tested(cfg params.Config) (bool, error) {
	_, found, err := e.repo.GetByKey(cfg.Key(e.space))
	return found, err
}
