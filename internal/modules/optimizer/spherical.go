package optimizer

import (
	"context"
	"math"
)

// SphericalSearch explores offset vectors at a fixed step-distance R
// from the best known point, growing the radius when a shell yields no
// improvement. Shrinking back to R=1 after an improvement keeps the
// search tight around each new optimum.
type SphericalSearch struct {
	MaxRadius int
}

func (s *SphericalSearch) Name() string { return StrategySpherical }

func (s *SphericalSearch) Run(ctx context.Context, env *Env) error {
	maxRadius := s.MaxRadius
	if maxRadius <= 0 {
		maxRadius = 3
	}

	best, err := startingPoint(env, false)
	if err != nil {
		return err
	}
	bestPnL, err := env.evaluate(ctx, best)
	if err != nil {
		return err
	}

	active := env.Space.Active()

	radius := 1
	for radius <= maxRadius {
		env.beginIteration("spherical shell started")
		improved := false

		err := walkShell(len(active), radius, func(offsets []int) error {
			if err := ctx.Err(); err != nil {
				return err
			}

			candidate := best.Clone()
			for i, p := range active {
				if offsets[i] == 0 {
					continue
				}
				value, ok := p.Offset(candidate[p.Name], offsets[i])
				if !ok {
					return nil // offset leaves the bounds, skip
				}
				candidate[p.Name] = value
			}

			pnl, err := env.evaluate(ctx, candidate)
			if err != nil {
				return err
			}
			if pnl > bestPnL {
				best = candidate
				bestPnL = pnl
				improved = true
			}
			return nil
		})
		if err != nil {
			return err
		}

		if improved {
			radius = 1
			env.reportProgress("improvement found, radius reset")
		} else {
			radius++
			env.reportProgress("shell exhausted, radius expanded")
		}
	}

	env.reportProgress("spherical radius budget reached")
	return nil
}

// walkShell streams every non-zero integer offset vector of dimension n
// whose euclidean length rounds onto radius. Vectors are never
// materialized as a set; the visitor sees a reused slice.
func walkShell(n, radius int, visit func([]int) error) error {
	vector := make([]int, n)

	var walk func(i, sumSquares int) error
	walk = func(i, sumSquares int) error {
		if sumSquares >= (radius+1)*(radius+1) {
			return nil // already past the shell, no deeper vector returns
		}
		if i == n {
			if sumSquares == 0 {
				return nil
			}
			dist := math.Sqrt(float64(sumSquares))
			if math.Abs(dist-float64(radius)) < 1e-9 || int(dist) == radius {
				return visit(vector)
			}
			return nil
		}
		for v := -radius; v <= radius; v++ {
			vector[i] = v
			if err := walk(i+1, sumSquares+v*v); err != nil {
				return err
			}
		}
		vector[i] = 0
		return nil
	}
	return walk(0, 0)
}
