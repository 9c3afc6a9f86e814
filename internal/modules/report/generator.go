// Package report renders optimization sessions to markdown files: the
// session outcome, the best configuration, the top trials and, when a
// surrogate model is fitted, its ranked candidate suggestions.
package report

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/tradelab/breakaway/internal/modules/optimizer"
	"github.com/tradelab/breakaway/internal/modules/params"
	"github.com/tradelab/breakaway/internal/modules/results"
	"github.com/tradelab/breakaway/internal/modules/surrogate"
)

const (
	topTrialCount     = 10
	topCandidateCount = 10
)

// Generator writes session reports into a directory.
type Generator struct {
	dir       string
	space     *params.Space
	sessions  *optimizer.SessionRepository
	trials    *results.Repository
	surrogate *surrogate.Service // optional
	log       zerolog.Logger
}

// NewGenerator creates a report generator. The surrogate service may be
// nil; the candidates section is skipped then.
func NewGenerator(dir string, space *params.Space, sessions *optimizer.SessionRepository, trials *results.Repository, sur *surrogate.Service, logger zerolog.Logger) *Generator {
	return &Generator{
		dir:       dir,
		space:     space,
		sessions:  sessions,
		trials:    trials,
		surrogate: sur,
		log:       logger.With().Str("component", "report").Logger(),
	}
}

// Generate renders the report for one session and writes it to
// <dir>/session_<id>.md. It returns the written path.
func (g *Generator) Generate(sessionID string) (string, error) {
	session, found, err := g.sessions.Get(sessionID)
	if err != nil {
		return "", err
	}
	if !found {
		return "", fmt.Errorf("session %s not found", sessionID)
	}

	content, err := g.render(session)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(g.dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create report directory: %w", err)
	}

	path := filepath.Join(g.dir, fmt.Sprintf("session_%s.md", session.ID))
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("failed to write report: %w", err)
	}

	g.log.Info().Str("session_id", session.ID).Str("path", path).Msg("Report written")
	return path, nil
}

// List returns the report files in the directory, newest name last.
func (g *Generator) List() ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(g.dir, "session_*.md"))
	if err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}
	sort.Strings(matches)
	names := make([]string, len(matches))
	for i, m := range matches {
		names[i] = filepath.Base(m)
	}
	return names, nil
}

func (g *Generator) render(session *optimizer.Session) (string, error) {
	var b strings.Builder

	fmt.Fprintf(&b, "# Optimization session %s\n\n", session.ID)
	fmt.Fprintf(&b, "Generated: %s\n\n", time.Now().UTC().Format(time.RFC3339))

	b.WriteString("## Session\n\n")
	b.WriteString("| Field | Value |\n|---|---|\n")
	fmt.Fprintf(&b, "| Strategy | %s |\n", session.Strategy)
	fmt.Fprintf(&b, "| Status | %s |\n", session.Status)
	fmt.Fprintf(&b, "| Started | %s |\n", session.StartedAt.Format(time.RFC3339))
	if session.FinishedAt != nil {
		fmt.Fprintf(&b, "| Finished | %s |\n", session.FinishedAt.Format(time.RFC3339))
		fmt.Fprintf(&b, "| Duration | %s |\n", session.FinishedAt.Sub(session.StartedAt).Round(time.Second))
	}
	fmt.Fprintf(&b, "| Iterations | %d |\n", session.Iterations)
	fmt.Fprintf(&b, "| Evaluations | %d |\n", session.Evaluations)
	if session.BestPnL != nil {
		fmt.Fprintf(&b, "| Best PnL | %.2f |\n", *session.BestPnL)
	}
	if session.Error != "" {
		fmt.Fprintf(&b, "| Error | %s |\n", session.Error)
	}
	b.WriteString("\n")

	if len(session.BestConfig) > 0 {
		b.WriteString("## Best configuration\n\n")
		b.WriteString("| Parameter | Value |\n|---|---|\n")
		names := make([]string, 0, len(session.BestConfig))
		for name := range session.BestConfig {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintf(&b, "| %s | %s |\n", name, session.BestConfig[name])
		}
		b.WriteString("\n")
	}

	if err := g.renderTopTrials(&b); err != nil {
		return "", err
	}
	if err := g.renderCandidates(&b, session); err != nil {
		return "", err
	}

	return b.String(), nil
}

func (g *Generator) renderTopTrials(b *strings.Builder) error {
	trials, err := g.trials.Top(topTrialCount)
	if err != nil {
		return err
	}
	if len(trials) == 0 {
		return nil
	}

	b.WriteString("## Top trials\n\n")
	names := g.space.Names()

	b.WriteString("| # | PnL | ROI | Trades | Win rate | Max drawdown |")
	for _, name := range names {
		fmt.Fprintf(b, " %s |", name)
	}
	b.WriteString("\n|---|---|---|---|---|---|")
	for range names {
		b.WriteString("---|")
	}
	b.WriteString("\n")

	for i, trial := range trials {
		form := trial.Config.FileForm(g.space)
		fmt.Fprintf(b, "| %d | %.2f | %.2f%% | %d | %.1f%% | %.2f |",
			i+1, trial.PnL, trial.ROI, trial.Trades, trial.WinRate, trial.MaxDrawdown)
		for _, name := range names {
			fmt.Fprintf(b, " %s |", form[name])
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")
	return nil
}

func (g *Generator) renderCandidates(b *strings.Builder, session *optimizer.Session) error {
	if g.surrogate == nil || !g.surrogate.Status().Fitted {
		return nil
	}

	anchor := g.space.InitialConfig()
	if len(session.BestConfig) > 0 {
		parsed, err := params.ConfigFromFileForm(g.space, session.BestConfig)
		if err == nil {
			anchor = parsed
		}
	}

	suggestions, err := g.surrogate.Suggest(anchor, surrogate.DefaultCandidateOptions(), topCandidateCount)
	if err != nil {
		return err
	}
	if len(suggestions) == 0 {
		return nil
	}

	b.WriteString("## Candidate suggestions\n\n")
	names := g.space.Names()

	b.WriteString("| # | Predicted PnL | Tested | Actual PnL |")
	for _, name := range names {
		fmt.Fprintf(b, " %s |", name)
	}
	b.WriteString("\n|---|---|---|---|")
	for range names {
		b.WriteString("---|")
	}
	b.WriteString("\n")

	for i, s := range suggestions {
		tested := "no"
		actual := "-"
		if s.Tested {
			tested = "yes"
			if s.ActualPnL != nil {
				actual = fmt.Sprintf("%.2f", *s.ActualPnL)
			}
		}
		fmt.Fprintf(b, "| %d | %.2f | %s | %s |", i+1, s.PredictedPnL, tested, actual)
		for _, name := range names {
			fmt.Fprintf(b, " %s |", s.Config[name])
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")
	return nil
}
