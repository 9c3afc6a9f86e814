package optimizer

import (
	"context"

	"github.com/tradelab/breakaway/internal/modules/params"
)

// HillClimb alternates two phases per iteration: an expanded 1D climb
// over each active parameter's whole range, then a 2D sweep over every
// parameter pair. The pair phase is what breaks out of the local maxima
// the 1D phase gets stuck on.
type HillClimb struct {
	MaxIterations int
}

func (h *HillClimb) Name() string { return StrategyHillClimb }

func (h *HillClimb) Run(ctx context.Context, env *Env) error {
	maxIterations := h.MaxIterations
	if maxIterations <= 0 {
		maxIterations = 10
	}

	current, err := startingPoint(env, false)
	if err != nil {
		return err
	}
	bestPnL, err := env.evaluate(ctx, current)
	if err != nil {
		return err
	}

	active := env.Space.Active()

	for iter := 0; iter < maxIterations; iter++ {
		env.beginIteration("hill climb pass started")
		improved := false

		for _, p := range active {
			if err := ctx.Err(); err != nil {
				return err
			}
			newCfg, newPnL, err := h.climb1D(ctx, env, current, p, bestPnL)
			if err != nil {
				return err
			}
			if newPnL > bestPnL {
				current, bestPnL = newCfg, newPnL
				improved = true
			}
		}

		env.reportProgress("hill climb pair phase started")
		for i := 0; i < len(active); i++ {
			for j := i + 1; j < len(active); j++ {
				if err := ctx.Err(); err != nil {
					return err
				}
				newCfg, newPnL, err := h.climbPair(ctx, env, current, active[i], active[j], bestPnL)
				if err != nil {
					return err
				}
				if newPnL > bestPnL {
					current, bestPnL = newCfg, newPnL
					improved = true
				}
			}
		}

		if !improved {
			env.reportProgress("hill climb converged")
			return nil
		}
	}

	env.reportProgress("hill climb iteration budget reached")
	return nil
}

func (h *HillClimb) climb1D(ctx context.Context, env *Env, cfg params.Config, p params.Parameter, bestPnL float64) (params.Config, float64, error) {
	bestCfg := cfg
	for _, value := range p.ValuesExpanded(cfg[p.Name]) {
		if value == cfg[p.Name] {
			continue
		}
		candidate := cfg.With(p.Name, value)
		pnl, err := env.evaluate(ctx, candidate)
		if err != nil {
			return nil, 0, err
		}
		if pnl > bestPnL {
			bestPnL = pnl
			bestCfg = candidate
		}
	}
	return bestCfg, bestPnL, nil
}

func (h *HillClimb) climbPair(ctx context.Context, env *Env, cfg params.Config, p1, p2 params.Parameter, bestPnL float64) (params.Config, float64, error) {
	bestCfg := cfg
	for _, v1 := range p1.ValuesExpanded(cfg[p1.Name]) {
		for _, v2 := range p2.ValuesExpanded(cfg[p2.Name]) {
			if v1 == cfg[p1.Name] && v2 == cfg[p2.Name] {
				continue
			}
			candidate := cfg.With(p1.Name, v1)
			candidate[p2.Name] = v2
			pnl, err := env.evaluate(ctx, candidate)
			if err != nil {
				return nil, 0, err
			}
			if pnl > bestPnL {
				bestPnL = pnl
				bestCfg = candidate
			}
		}
	}
	return bestCfg, bestPnL, nil
}
