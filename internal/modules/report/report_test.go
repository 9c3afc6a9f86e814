package report

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tradelab/breakaway/internal/database"
	"github.com/tradelab/breakaway/internal/modules/optimizer"
	"github.com/tradelab/breakaway/internal/modules/params"
	"github.com/tradelab/breakaway/internal/modules/results"
	"github.com/tradelab/breakaway/internal/modules/simulation"
)

func testSpace() *params.Space {
	return params.NewSpace([]params.Parameter{
		{Name: "alpha", Min: 0, Max: 100, Step: 1, Initial: 50, Priority: 1, Enabled: true},
	})
}

func testGenerator(t *testing.T) (*Generator, *optimizer.SessionRepository, *results.Repository, string) {
	t.Helper()

	space := testSpace()
	db, err := database.New(filepath.Join(t.TempDir(), "trials.db"))
	require.NoError(t, err)
	require.NoError(t, db.Migrate())
	t.Cleanup(func() { db.Close() })

	sessions := optimizer.NewSessionRepository(db, zerolog.Nop())
	trials := results.NewRepository(db, space, zerolog.Nop())
	dir := t.TempDir()

	return NewGenerator(dir, space, sessions, trials, nil, zerolog.Nop()), sessions, trials, dir
}

func TestGenerateWritesMarkdown(t *testing.T) {
	gen, sessions, trials, dir := testGenerator(t)
	space := testSpace()

	session := optimizer.NewSession(optimizer.StrategyDescent)
	session.Status = optimizer.StatusCompleted
	finished := session.StartedAt.Add(90 * time.Second)
	session.FinishedAt = &finished
	session.Iterations = 3
	session.Evaluations = 42
	pnl := 123.45
	session.BestPnL = &pnl
	session.BestConfig = map[string]string{"alpha": "60"}
	require.NoError(t, sessions.Save(session))

	for _, alpha := range []float64{40, 60, 80} {
		cfg := space.InitialConfig().With("alpha", alpha)
		trial := results.NewTrial(space, cfg, simulation.Summary{TotalPnL: alpha}, session.ID)
		require.NoError(t, trials.Save(&trial))
	}

	path, err := gen.Generate(session.ID)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "session_"+session.ID+".md"), path)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(content)

	assert.Contains(t, text, "# Optimization session "+session.ID)
	assert.Contains(t, text, "| Strategy | descent |")
	assert.Contains(t, text, "| Status | completed |")
	assert.Contains(t, text, "| Best PnL | 123.45 |")
	assert.Contains(t, text, "## Best configuration")
	assert.Contains(t, text, "| alpha | 60 |")
	assert.Contains(t, text, "## Top trials")
	assert.Contains(t, text, "| 1 | 80.00 |", "best trial leads the table")
	assert.NotContains(t, text, "## Candidate suggestions", "no surrogate wired")
}

func TestGenerateUnknownSession(t *testing.T) {
	gen, _, _, _ := testGenerator(t)

	_, err := gen.Generate("nope")
	assert.Error(t, err)
}

func TestListReports(t *testing.T) {
	gen, sessions, _, _ := testGenerator(t)

	reports, err := gen.List()
	require.NoError(t, err)
	assert.Empty(t, reports)

	session := optimizer.NewSession(optimizer.StrategyGrid)
	require.NoError(t, sessions.Save(session))

	_, err = gen.Generate(session.ID)
	require.NoError(t, err)

	reports, err = gen.List()
	require.NoError(t, err)
	require.Len(t, reports, 1)
	assert.Equal(t, "session_"+session.ID+".md", reports[0])
}
