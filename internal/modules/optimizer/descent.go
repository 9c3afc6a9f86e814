package optimizer

import "context"

// CoordinateDescent optimizes one parameter at a time: for each active
// parameter in priority order it sweeps the full value range while the
// others stay fixed, keeping the best point found. Iterations repeat
// until a full pass improves nothing.
type CoordinateDescent struct {
	MaxIterations int
	FromInitial   bool
}

func (c *CoordinateDescent) Name() string { return StrategyDescent }

func (c *CoordinateDescent) Run(ctx context.Context, env *Env) error {
	maxIterations := c.MaxIterations
	if maxIterations <= 0 {
		maxIterations = 20
	}

	current, err := startingPoint(env, c.FromInitial)
	if err != nil {
		return err
	}
	bestPnL, err := env.evaluate(ctx, current)
	if err != nil {
		return err
	}

	active := env.Space.Active()

	for iter := 0; iter < maxIterations; iter++ {
		env.beginIteration("descent pass started")
		improved := false

		for _, p := range active {
			if err := ctx.Err(); err != nil {
				return err
			}

			for _, value := range p.AllValues() {
				if value == current[p.Name] {
					continue
				}
				candidate := current.With(p.Name, value)
				pnl, err := env.evaluate(ctx, candidate)
				if err != nil {
					return err
				}
				// Ties move too, to walk along plateaus.
				if pnl >= bestPnL {
					if pnl > bestPnL {
						improved = true
					}
					bestPnL = pnl
					current = candidate
				}
			}
		}

		if !improved {
			env.reportProgress("descent converged")
			return nil
		}
	}

	env.reportProgress("descent iteration budget reached")
	return nil
}
