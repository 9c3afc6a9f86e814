package optimizer

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tradelab/breakaway/internal/database"
	"github.com/tradelab/breakaway/internal/modules/params"
	"github.com/tradelab/breakaway/internal/modules/results"
	"github.com/tradelab/breakaway/internal/modules/simulation"
)

func tinySpace() *params.Space {
	return params.NewSpace([]params.Parameter{
		{Name: "alpha", Min: 0, Max: 2, Step: 1, Initial: 1, Priority: 1, Enabled: true},
		{Name: "beta", Min: 0, Max: 1, Step: 1, Initial: 0, Priority: 2, Enabled: true},
	})
}

func testEnv(t *testing.T, space *params.Space) *Env {
	t.Helper()

	db, err := database.New(filepath.Join(t.TempDir(), "trials.db"))
	require.NoError(t, err)
	require.NoError(t, db.Migrate())
	t.Cleanup(func() { db.Close() })

	repo := results.NewRepository(db, space, zerolog.Nop())
	runner := simulation.NewRunner(nil, 1, zerolog.Nop())
	eval := NewEvaluator(space, runner, repo, zerolog.Nop())
	best := NewBestConfigStore(filepath.Join(t.TempDir(), "best.json"), space, zerolog.Nop())

	return &Env{Space: space, Eval: eval, Best: best, Log: zerolog.Nop()}
}

func TestBestConfigStoreOnlyImproves(t *testing.T) {
	space := tinySpace()
	path := filepath.Join(t.TempDir(), "best.json")
	store := NewBestConfigStore(path, space, zerolog.Nop())

	cfg := space.InitialConfig()

	improved, err := store.Update(cfg, 10)
	require.NoError(t, err)
	assert.True(t, improved)

	improved, err = store.Update(cfg.With("alpha", 2), 5)
	require.NoError(t, err)
	assert.False(t, improved, "worse pnl must not replace the record")

	improved, err = store.Update(cfg.With("alpha", 0), 20)
	require.NoError(t, err)
	assert.True(t, improved)

	// A fresh store sees the persisted record.
	reloaded := NewBestConfigStore(path, space, zerolog.Nop())
	got, pnl, found, err := reloaded.Load()
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, 20.0, pnl)
	assert.Equal(t, 0.0, got["alpha"])
}

func TestBestConfigStoreEmptyFallsBackToInitial(t *testing.T) {
	space := tinySpace()
	store := NewBestConfigStore(filepath.Join(t.TempDir(), "none.json"), space, zerolog.Nop())

	cfg, _, found, err := store.Load()
	require.NoError(t, err)
	assert.False(t, found)
	assert.Equal(t, space.InitialConfig(), cfg)
}

func TestEvaluatorCaches(t *testing.T) {
	space := tinySpace()
	env := testEnv(t, space)
	cfg := space.InitialConfig()

	_, cached, err := env.Eval.Evaluate(context.Background(), cfg, "")
	require.NoError(t, err)
	assert.False(t, cached)

	_, cached, err = env.Eval.Evaluate(context.Background(), cfg, "")
	require.NoError(t, err)
	assert.True(t, cached)

	assert.Equal(t, int64(1), env.Eval.Evaluations())
	assert.Equal(t, int64(1), env.Eval.CacheHits())
}

func TestGridSearchCoversProduct(t *testing.T) {
	space := tinySpace()
	env := testEnv(t, space)

	grid := &GridSearch{}
	require.NoError(t, grid.Run(context.Background(), env))

	// alpha has 3 values, beta has 2: the full product is 6 points.
	assert.Equal(t, int64(6), env.Eval.Evaluations())
}

func TestGridSearchHonorsComboCap(t *testing.T) {
	space := tinySpace()
	env := testEnv(t, space)

	grid := &GridSearch{MaxCombos: 3}
	require.NoError(t, grid.Run(context.Background(), env))
	assert.Equal(t, int64(3), env.Eval.Evaluations())
}

func TestCoordinateDescentConverges(t *testing.T) {
	space := tinySpace()
	env := testEnv(t, space)

	descent := &CoordinateDescent{MaxIterations: 5, FromInitial: true}
	require.NoError(t, descent.Run(context.Background(), env))

	// Flat PnL landscape: one pass, no improvement, stop.
	assert.Equal(t, 1, env.iteration)
	assert.Positive(t, env.evaluations)
}

func TestStrategyRespectsCancellation(t *testing.T) {
	space := tinySpace()
	env := testEnv(t, space)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	descent := &CoordinateDescent{FromInitial: true}
	err := descent.Run(ctx, env)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewStrategy(t *testing.T) {
	for _, name := range StrategyNames() {
		s, err := NewStrategy(name, Options{})
		require.NoError(t, err)
		assert.Equal(t, name, s.Name())
	}

	_, err := NewStrategy("simulated-annealing", Options{})
	assert.Error(t, err)
}

func TestAdvanceMixedRadix(t *testing.T) {
	values := [][]float64{{1, 2}, {10, 20, 30}}
	indices := []int{0, 0}

	count := 1
	for advance(indices, values) {
		count++
	}
	assert.Equal(t, 6, count)
}

func TestWalkShellRadiusOne(t *testing.T) {
	var count int
	err := walkShell(2, 1, func(v []int) error {
		count++
		return nil
	})
	require.NoError(t, err)

	// Axis neighbors (4) plus diagonals whose sqrt(2) distance truncates
	// onto radius 1 (4).
	assert.Equal(t, 8, count)
}

func TestWalkShellRadiusTwo(t *testing.T) {
	seen := make(map[[2]int]bool)
	err := walkShell(2, 2, func(v []int) error {
		seen[[2]int{v[0], v[1]}] = true
		return nil
	})
	require.NoError(t, err)

	// Distances truncating onto radius 2: sqrt(4) on the axes (4),
	// sqrt(5) knight moves (8) and sqrt(8) diagonals (4).
	assert.Len(t, seen, 16)
	assert.True(t, seen[[2]int{1, 2}])
	assert.True(t, seen[[2]int{-2, -2}])
	assert.False(t, seen[[2]int{1, 1}])
	assert.False(t, seen[[2]int{0, 3}])
}

func TestSessionRepository(t *testing.T) {
	db, err := database.New(filepath.Join(t.TempDir(), "trials.db"))
	require.NoError(t, err)
	require.NoError(t, db.Migrate())
	t.Cleanup(func() { db.Close() })

	repo := NewSessionRepository(db, zerolog.Nop())

	session := NewSession(StrategyDescent)
	require.NoError(t, repo.Save(session))

	session.Status = StatusCompleted
	session.Iterations = 3
	pnl := 42.0
	session.BestPnL = &pnl
	session.BestConfig = map[string]string{"alpha": "1"}
	require.NoError(t, repo.Save(session))

	got, found, err := repo.Get(session.ID)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, StatusCompleted, got.Status)
	assert.Equal(t, 3, got.Iterations)
	require.NotNil(t, got.BestPnL)
	assert.Equal(t, 42.0, *got.BestPnL)
	assert.Equal(t, "1", got.BestConfig["alpha"])

	list, err := repo.List(10)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	_, found, err = repo.Get("unknown")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestServiceSessionLifecycle(t *testing.T) {
	space := tinySpace()

	db, err := database.New(filepath.Join(t.TempDir(), "trials.db"))
	require.NoError(t, err)
	require.NoError(t, db.Migrate())
	t.Cleanup(func() { db.Close() })

	repo := results.NewRepository(db, space, zerolog.Nop())
	runner := simulation.NewRunner(nil, 1, zerolog.Nop())
	eval := NewEvaluator(space, runner, repo, zerolog.Nop())
	best := NewBestConfigStore(filepath.Join(t.TempDir(), "best.json"), space, zerolog.Nop())
	sessions := NewSessionRepository(db, zerolog.Nop())
	hub := NewHub(zerolog.Nop())

	service := NewService(space, eval, best, sessions, hub, zerolog.Nop())

	session, err := service.Start(StrategyDescent, Options{MaxIterations: 2, FromInitial: true})
	require.NoError(t, err)
	assert.Equal(t, StatusRunning, session.Status)

	service.Wait()

	got, found, err := service.Get(session.ID)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, StatusCompleted, got.Status)
	assert.NotNil(t, got.FinishedAt)
	assert.Positive(t, got.Evaluations)
}

func TestServiceRejectsConcurrentSessions(t *testing.T) {
	// A wide space keeps the grid busy while the second start is tried.
	space := params.NewSpace([]params.Parameter{
		{Name: "alpha", Min: 0, Max: 500, Step: 1, Initial: 0, Priority: 1, Enabled: true},
		{Name: "beta", Min: 0, Max: 500, Step: 1, Initial: 0, Priority: 2, Enabled: true},
	})

	db, err := database.New(filepath.Join(t.TempDir(), "trials.db"))
	require.NoError(t, err)
	require.NoError(t, db.Migrate())
	t.Cleanup(func() { db.Close() })

	repo := results.NewRepository(db, space, zerolog.Nop())
	runner := simulation.NewRunner(nil, 1, zerolog.Nop())
	eval := NewEvaluator(space, runner, repo, zerolog.Nop())
	best := NewBestConfigStore(filepath.Join(t.TempDir(), "best.json"), space, zerolog.Nop())
	sessions := NewSessionRepository(db, zerolog.Nop())
	hub := NewHub(zerolog.Nop())

	service := NewService(space, eval, best, sessions, hub, zerolog.Nop())

	// Grid over the tiny space runs long enough to observe the overlap.
	first, err := service.Start(StrategyGrid, Options{})
	require.NoError(t, err)

	_, err = service.Start(StrategyDescent, Options{})
	assert.Error(t, err)

	require.NoError(t, service.Cancel(first.ID))
	service.Wait()
}
