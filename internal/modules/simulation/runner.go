package simulation

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"github.com/rs/zerolog"

	"github.com/tradelab/breakaway/internal/modules/params"
	"github.com/tradelab/breakaway/internal/modules/strategy"
	"github.com/tradelab/breakaway/pkg/formulas"
)

// Runner evaluates a configuration across many daily datasets with a
// worker pool. Day results keep the order of the input file list no
// matter which worker finished first.
type Runner struct {
	files   []string
	workers int
	log     zerolog.Logger
}

// NewRunner creates a runner over the given dataset files. workers <= 0
// uses one worker per CPU.
func NewRunner(files []string, workers int, logger zerolog.Logger) *Runner {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Runner{
		files:   files,
		workers: workers,
		log:     logger.With().Str("component", "simulation").Logger(),
	}
}

// Files returns the dataset files the runner evaluates.
func (r *Runner) Files() []string {
	return r.files
}

// Run simulates cfg over every dataset and aggregates the summary.
func (r *Runner) Run(ctx context.Context, cfg params.Config) (Summary, error) {
	settings := strategy.SettingsFromConfig(cfg)

	results := make([]DayResult, len(r.files))
	jobs := make(chan int)

	var wg sync.WaitGroup
	var mu sync.Mutex
	var firstErr error

	for w := 0; w < r.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				result, err := RunDay(r.files[idx], settings, r.log)
				if err != nil {
					mu.Lock()
					if firstErr == nil {
						firstErr = fmt.Errorf("failed to simulate %s: %w", r.files[idx], err)
					}
					mu.Unlock()
					continue
				}
				results[idx] = result
			}
		}()
	}

	for idx := range r.files {
		select {
		case <-ctx.Done():
			close(jobs)
			wg.Wait()
			return Summary{}, ctx.Err()
		case jobs <- idx:
		}
	}
	close(jobs)
	wg.Wait()

	if firstErr != nil {
		return Summary{}, firstErr
	}

	return Aggregate(results), nil
}

// tradingDaysPerYear annualizes the Sharpe ratio of daily returns.
const tradingDaysPerYear = 252

// Aggregate folds per-day results into the run summary.
func Aggregate(days []DayResult) Summary {
	s := Summary{Days: len(days), DayResults: days}

	dailyPnLs := make([]float64, len(days))
	dailyReturns := make([]float64, len(days))
	for i, d := range days {
		dailyPnLs[i] = d.PnL
		if d.Invested != 0 {
			dailyReturns[i] = d.PnL / d.Invested
		}
		s.TotalPnL += d.PnL
		s.Invested += d.Invested
		s.Trades += d.Trades
		if d.PnL > 0 {
			s.PositiveDays++
		} else if d.PnL < 0 {
			s.NegativeDays++
		}
	}

	if s.Invested != 0 {
		s.ROI = s.TotalPnL / s.Invested * 100
	}
	s.WinRate = formulas.WinRate(dailyPnLs)
	if len(dailyPnLs) > 1 {
		s.DailyPnLStd = formulas.StdDev(dailyPnLs)
	}
	s.MaxDrawdown = formulas.DrawdownFromDailyPnL(dailyPnLs)
	s.Sharpe = formulas.SharpeRatio(dailyReturns, 0, tradingDaysPerYear)

	return s
}
