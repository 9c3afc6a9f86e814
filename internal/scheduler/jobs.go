package scheduler

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/tradelab/breakaway/internal/archive"
	"github.com/tradelab/breakaway/internal/modules/optimizer"
	"github.com/tradelab/breakaway/internal/modules/params"
	"github.com/tradelab/breakaway/internal/modules/report"
	"github.com/tradelab/breakaway/internal/modules/results"
)

// OptimizationJob starts a nightly search session continuing from the
// persisted best configuration. A session already running is not an
// error; the night is simply skipped.
type OptimizationJob struct {
	Service  *optimizer.Service
	Strategy string
	Log      zerolog.Logger
}

func (j *OptimizationJob) Name() string { return "nightly-optimization" }

func (j *OptimizationJob) Run() error {
	strategy := j.Strategy
	if strategy == "" {
		strategy = optimizer.StrategyLocal
	}

	session, err := j.Service.Start(strategy, optimizer.Options{})
	if err != nil {
		j.Log.Info().Err(err).Msg("Nightly optimization skipped")
		return nil
	}

	j.Log.Info().
		Str("session_id", session.ID).
		Str("strategy", strategy).
		Msg("Nightly optimization started")
	return nil
}

// ReportJob renders a report for the most recent finished session.
type ReportJob struct {
	Generator *report.Generator
	Sessions  *optimizer.SessionRepository
	Log       zerolog.Logger
}

func (j *ReportJob) Name() string { return "session-report" }

func (j *ReportJob) Run() error {
	sessions, err := j.Sessions.List(10)
	if err != nil {
		return err
	}

	for _, session := range sessions {
		if session.FinishedAt == nil {
			continue
		}
		if _, err := j.Generator.Generate(session.ID); err != nil {
			return err
		}
		return nil
	}

	j.Log.Debug().Msg("No finished session to report on")
	return nil
}

// ArchiveJob exports the trial store to CSV and uploads it, along with
// the latest session reports, to the archive bucket.
type ArchiveJob struct {
	Repo      *results.Repository
	Space     *params.Space
	Uploader  *archive.Uploader
	ExportDir string
	ReportDir string
	Timeout   time.Duration
	Log       zerolog.Logger
}

func (j *ArchiveJob) Name() string { return "results-archive" }

func (j *ArchiveJob) Run() error {
	timeout := j.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	trials, err := j.Repo.List(results.Filter{})
	if err != nil {
		return err
	}
	if len(trials) == 0 {
		j.Log.Debug().Msg("No trials to archive")
		return nil
	}

	if err := os.MkdirAll(j.ExportDir, 0o755); err != nil {
		return fmt.Errorf("failed to create export directory: %w", err)
	}

	exportPath := filepath.Join(j.ExportDir, fmt.Sprintf("results_%s.csv", time.Now().UTC().Format("2006-01-02")))
	if err := results.ExportCSV(exportPath, trials, j.Space); err != nil {
		return err
	}

	if _, err := j.Uploader.UploadFile(ctx, exportPath); err != nil {
		return err
	}

	if j.ReportDir != "" {
		reports, err := filepath.Glob(filepath.Join(j.ReportDir, "session_*.md"))
		if err != nil {
			return fmt.Errorf("failed to list reports: %w", err)
		}
		for _, path := range reports {
			if _, err := j.Uploader.UploadFile(ctx, path); err != nil {
				return err
			}
		}
	}

	j.Log.Info().Int("trials", len(trials)).Msg("Results archived")
	return nil
}
