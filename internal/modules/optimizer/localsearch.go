package optimizer

import (
	"context"

	"github.com/tradelab/breakaway/internal/modules/params"
)

// LocalSearch probes a handful of values around the current point for
// each parameter per iteration. When an iteration fails to beat the
// previous one it switches to exploration mode and hunts for values the
// cache has never seen, which breaks repeated loops over known ground.
type LocalSearch struct {
	MaxIterations    int
	MaxTestsPerParam int
	FromInitial      bool
}

func (l *LocalSearch) Name() string { return StrategyLocal }

func (l *LocalSearch) Run(ctx context.Context, env *Env) error {
	maxIterations := l.MaxIterations
	if maxIterations <= 0 {
		maxIterations = 50
	}
	maxTests := l.MaxTestsPerParam
	if maxTests <= 0 {
		maxTests = 5
	}

	current, err := startingPoint(env, l.FromInitial)
	if err != nil {
		return err
	}
	bestPnL, err := env.evaluate(ctx, current)
	if err != nil {
		return err
	}

	active := env.Space.Active()
	prevIterationPnL := bestPnL - 1 // first iteration never explores

	for iter := 0; iter < maxIterations; iter++ {
		explore := iter > 0 && bestPnL <= prevIterationPnL
		prevIterationPnL = bestPnL

		if explore {
			env.beginIteration("local search exploring untested values")
		} else {
			env.beginIteration("local search pass started")
		}

		improved := false
		for _, p := range active {
			if err := ctx.Err(); err != nil {
				return err
			}

			values, err := l.candidateValues(p, current, maxTests, explore, env)
			if err != nil {
				return err
			}

			for _, value := range values {
				candidate := current.With(p.Name, value)
				pnl, err := env.evaluate(ctx, candidate)
				if err != nil {
					return err
				}
				if pnl > bestPnL {
					bestPnL = pnl
					current = candidate
					improved = true
				}
			}
		}

		if !improved && !explore {
			continue // next iteration flips to exploration
		}
		if !improved && explore {
			env.reportProgress("local search exhausted, converged")
			return nil
		}
	}

	env.reportProgress("local search iteration budget reached")
	return nil
}

// candidateValues picks the values to probe for one parameter. In
// exploration mode it prefers values with no stored trial yet.
func (l *LocalSearch) candidateValues(p params.Parameter, current params.Config, maxTests int, explore bool, env *Env) ([]float64, error) {
	if !explore {
		return p.ValuesAround(current[p.Name], maxTests), nil
	}

	expanded := p.ValuesExpanded(current[p.Name])
	var untested []float64
	for _, value := range expanded {
		tested, err := env.Eval.Tested(current.With(p.Name, value))
		if err != nil {
			return nil, err
		}
		if !tested {
			untested = append(untested, value)
			if len(untested) >= maxTests {
				break
			}
		}
	}
	if len(untested) == 0 {
		return p.ValuesAround(current[p.Name], maxTests), nil
	}
	return untested, nil
}
