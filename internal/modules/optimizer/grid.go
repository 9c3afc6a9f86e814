package optimizer

import "context"

// DefaultMaxCombos caps a grid sweep; the full product over all active
// parameters is rarely tractable.
const DefaultMaxCombos = 2000

// GridSearch sweeps the cartesian product of every active parameter's
// full value range, stopping once MaxCombos configurations have been
// evaluated.
type GridSearch struct {
	MaxCombos int
}

func (g *GridSearch) Name() string { return StrategyGrid }

func (g *GridSearch) Run(ctx context.Context, env *Env) error {
	maxCombos := g.MaxCombos
	if maxCombos <= 0 {
		maxCombos = DefaultMaxCombos
	}

	active := env.Space.Active()
	base := env.Space.InitialConfig()

	values := make([][]float64, len(active))
	for i, p := range active {
		values[i] = p.AllValues()
	}

	env.beginIteration("grid sweep started")

	combos := 0
	indices := make([]int, len(active))
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		cfg := base.Clone()
		for i, p := range active {
			cfg[p.Name] = values[i][indices[i]]
		}
		if _, err := env.evaluate(ctx, cfg); err != nil {
			return err
		}

		combos++
		if combos >= maxCombos {
			env.reportProgress("grid combo budget reached")
			return nil
		}
		if combos%100 == 0 {
			env.reportProgress("grid sweep in progress")
		}

		if !advance(indices, values) {
			env.reportProgress("grid sweep complete")
			return nil
		}
	}
}

// advance steps a mixed-radix counter over the value lists; false means
// the product is exhausted.
func advance(indices []int, values [][]float64) bool {
	for i := len(indices) - 1; i >= 0; i-- {
		indices[i]++
		if indices[i] < len(values[i]) {
			return true
		}
		indices[i] = 0
	}
	return false
}
