package surrogate

import (
	"math/rand"

	"github.com/tradelab/breakaway/internal/modules/params"
)

// CandidateOptions bound candidate generation.
type CandidateOptions struct {
	// PerParam caps the neighbor values taken around the anchor for
	// each parameter.
	PerParam int
	// MaxCandidates caps the total candidate count.
	MaxCandidates int
	// RandomSamples adds multi-parameter random combinations drawn
	// from each active parameter's full range.
	RandomSamples int
	Seed          int64
}

// DefaultCandidateOptions returns the standard generation bounds.
func DefaultCandidateOptions() CandidateOptions {
	return CandidateOptions{
		PerParam:      7,
		MaxCandidates: 5000,
		RandomSamples: 1000,
		Seed:          1,
	}
}

// GenerateCandidates enumerates configurations worth scoring: the
// anchor itself, one-parameter variations around it, and random draws
// across the active space. Out-of-bounds values never appear and
// configurations violating cross-parameter constraints are dropped.
// Duplicates collapse on the canonical config key.
func GenerateCandidates(space *params.Space, anchor params.Config, opts CandidateOptions) []params.Config {
	if opts.PerParam <= 0 {
		opts.PerParam = DefaultCandidateOptions().PerParam
	}
	if opts.MaxCandidates <= 0 {
		opts.MaxCandidates = DefaultCandidateOptions().MaxCandidates
	}

	active := space.Active()
	rng := rand.New(rand.NewSource(opts.Seed))

	seen := make(map[string]bool)
	var out []params.Config

	add := func(cfg params.Config) bool {
		if len(out) >= opts.MaxCandidates {
			return false
		}
		if !SatisfiesConstraints(space, cfg) {
			return true
		}
		key := cfg.Key(space)
		if seen[key] {
			return true
		}
		seen[key] = true
		out = append(out, cfg)
		return true
	}

	add(anchor.Clone())

	// One-parameter neighborhoods around the anchor.
	for _, p := range active {
		for _, value := range p.ValuesAround(anchor[p.Name], opts.PerParam) {
			if !add(anchor.With(p.Name, value)) {
				return out
			}
		}
	}

	// Random joint draws over the active ranges.
	for i := 0; i < opts.RandomSamples; i++ {
		cfg := anchor.Clone()
		for _, p := range active {
			values := p.AllValues()
			cfg[p.Name] = values[rng.Intn(len(values))]
		}
		if !add(cfg) {
			return out
		}
	}

	return out
}

// SatisfiesConstraints checks a candidate against the space bounds and
// the cross-parameter rules: the trading window must be non-empty.
func SatisfiesConstraints(space *params.Space, cfg params.Config) bool {
	if err := space.Validate(cfg); err != nil {
		return false
	}

	start, hasStart := cfg["trade_start_hour"]
	cutoff, hasCutoff := cfg["trade_cutoff_hour"]
	if hasStart && hasCutoff && start >= cutoff {
		return false
	}

	return true
}
