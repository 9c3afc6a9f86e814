package surrogate

import (
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

func TestFitScaler(t *testing.T) {
	rows := [][]float64{
		{1, 5, 7},
		{3, 5, 9},
	}

	scaler, err := FitScaler(rows)
	require.NoError(t, err)

	assert.Equal(t, []float64{2, 5, 8}, scaler.Mean)
	assert.InDelta(t, 1.0, scaler.Std[0], 1e-9)
	assert.Equal(t, 1.0, scaler.Std[1], "constant column must not divide by zero")

	scaled := scaler.Transform(rows[0])
	assert.InDelta(t, -1.0, scaled[0], 1e-9)
	assert.InDelta(t, 0.0, scaled[1], 1e-9)
}

func TestFitScalerRejectsRaggedRows(t *testing.T) {
	_, err := FitScaler([][]float64{{1, 2}, {1}})
	assert.Error(t, err)

	_, err = FitScaler(nil)
	assert.Error(t, err)
}

func TestFeatureEncoderOrder(t *testing.T) {
	space := params.NewSpace([]params.Parameter{
		{Name: "zeta", Min: 0, Max: 10, Step: 1, Initial: 3, Enabled: true},
		{Name: "alpha", Min: 0, Max: 10, Step: 1, Initial: 7, Enabled: true},
	})

	enc := NewFeatureEncoder(space)
	assert.Equal(t, 2, enc.Width())
	assert.Equal(t, []string{"alpha", "zeta"}, enc.Names())
	assert.Equal(t, []float64{7, 3}, enc.Encode(space.InitialConfig()))
}

func TestMLPLearnsLinearFunction(t *testing.T) {
	var features [][]float64
	var targets []float64
	for x := -2.0; x <= 2.0; x += 0.1 {
		features = append(features, []float64{x})
		targets = append(targets, 2*x+1)
	}

	model, err := NewMLP(1, MLPConfig{
		HiddenLayers: []int{16},
		LearningRate: 0.01,
		Epochs:       500,
		BatchSize:    8,
		Seed:         1,
	})
	require.NoError(t, err)
	require.NoError(t, model.Fit(features, targets))

	var mse float64
	for i, row := range features {
		d := model.Predict(row) - targets[i]
		mse += d * d
	}
	mse /= float64(len(features))
	assert.Less(t, mse, 0.05)

	// The learned surface must preserve the ordering of the line.
	assert.Greater(t, model.Predict([]float64{1.5}), model.Predict([]float64{-1.5}))
}

func TestMLPIsDeterministicForSeed(t *testing.T) {
	features := [][]float64{{-1}, {0}, {1}}
	targets := []float64{-1, 0, 1}

	cfg := MLPConfig{HiddenLayers: []int{8}, LearningRate: 0.01, Epochs: 50, BatchSize: 2, Seed: 7}

	a, err := NewMLP(1, cfg)
	require.NoError(t, err)
	require.NoError(t, a.Fit(features, targets))

	b, err := NewMLP(1, cfg)
	require.NoError(t, err)
	require.NoError(t, b.Fit(features, targets))

	assert.Equal(t, a.Predict([]float64{0.5}), b.Predict([]float64{0.5}))
}

func TestGenerateCandidates(t *testing.T) {
	space := params.NewSpace([]params.Parameter{
		{Name: "alpha", Min: 0, Max: 10, Step: 1, Initial: 5, Priority: 1, Enabled: true},
		{Name: "beta", Min: 0, Max: 4, Step: 1, Initial: 2, Priority: 2, Enabled: true},
	})
	anchor := space.InitialConfig()

	candidates := GenerateCandidates(space, anchor, CandidateOptions{
		PerParam:      4,
		MaxCandidates: 100,
		RandomSamples: 50,
		Seed:          1,
	})
	require.NotEmpty(t, candidates)

	seen := make(map[string]bool)
	for _, cfg := range candidates {
		key := cfg.Key(space)
		assert.False(t, seen[key], "duplicate candidate %s", key)
		seen[key] = true
		assert.NoError(t, space.Validate(cfg))
	}

	assert.True(t, seen[anchor.Key(space)], "anchor itself must be a candidate")
}

func TestGenerateCandidatesHonorsCap(t *testing.T) {
	space := params.NewSpace([]params.Parameter{
		{Name: "alpha", Min: 0, Max: 100, Step: 1, Initial: 50, Priority: 1, Enabled: true},
	})

	candidates := GenerateCandidates(space, space.InitialConfig(), CandidateOptions{
		PerParam:      20,
		MaxCandidates: 5,
		RandomSamples: 100,
		Seed:          1,
	})
	assert.Len(t, candidates, 5)
}

func TestCandidatesKeepTradingWindowOpen(t *testing.T) {
	space := params.NewSpace([]params.Parameter{
		{Name: "trade_start_hour", Kind: params.KindClock, Min: 540, Max: 630, Step: 15, Initial: 570, Priority: 1, Enabled: true},
		{Name: "trade_cutoff_hour", Kind: params.KindClock, Min: 555, Max: 645, Step: 15, Initial: 600, Priority: 2, Enabled: true},
	})
	anchor := space.InitialConfig()

	inverted := anchor.With("trade_start_hour", 615).With("trade_cutoff_hour", 555)
	assert.False(t, SatisfiesConstraints(space, inverted))
	assert.False(t, SatisfiesConstraints(space, anchor.With("trade_cutoff_hour", 570).With("trade_start_hour", 570)))
	assert.True(t, SatisfiesConstraints(space, anchor))

	candidates := GenerateCandidates(space, anchor, CandidateOptions{
		PerParam:      10,
		MaxCandidates: 500,
		RandomSamples: 200,
		Seed:          1,
	})
	for _, cfg := range candidates {
		assert.Less(t, cfg["trade_start_hour"], cfg["trade_cutoff_hour"])
	}
}

func testService(t *testing.T, space *params.Space) (*Service, *results.Repository) {
	t.Helper()

	db, err := database.New(filepath.Join(t.TempDir(), "trials.db"))
	require.NoError(t, err)
	require.NoError(t, db.Migrate())
	t.Cleanup(func() { db.Close() })

	repo := results.NewRepository(db, space, zerolog.Nop())
	return NewService(space, repo, zerolog.Nop()), repo
}

func TestServiceFitRequiresEnoughTrials(t *testing.T) {
	space := params.NewSpace([]params.Parameter{
		{Name: "alpha", Min: 0, Max: 100, Step: 1, Initial: 50, Priority: 1, Enabled: true},
	})
	service, repo := testService(t, space)

	cfg := space.InitialConfig()
	trial := results.NewTrial(space, cfg, simulation.Summary{TotalPnL: 10}, "")
	require.NoError(t, repo.Save(&trial))

	_, err := service.Fit(DefaultMLPConfig())
	assert.Error(t, err)
	assert.False(t, service.Status().Fitted)
}

func TestServiceFitAndSuggest(t *testing.T) {
	space := params.NewSpace([]params.Parameter{
		{Name: "alpha", Min: 0, Max: 100, Step: 2, Initial: 50, Priority: 1, Enabled: true},
	})
	service, repo := testService(t, space)

	// PnL grows linearly with alpha over thirty stored trials.
	for alpha := 0.0; alpha <= 58; alpha += 2 {
		cfg := space.InitialConfig().With("alpha", alpha)
		trial := results.NewTrial(space, cfg, simulation.Summary{TotalPnL: alpha * 10}, "")
		require.NoError(t, repo.Save(&trial))
	}

	status, err := service.Fit(MLPConfig{HiddenLayers: []int{16}, LearningRate: 0.01, Epochs: 300, BatchSize: 8, Seed: 1})
	require.NoError(t, err)
	assert.True(t, status.Fitted)
	assert.Equal(t, 30, status.Trials)

	suggestions, err := service.Suggest(space.InitialConfig(), CandidateOptions{
		PerParam:      10,
		MaxCandidates: 100,
		RandomSamples: 30,
		Seed:          1,
	}, 5)
	require.NoError(t, err)
	require.Len(t, suggestions, 5)

	for i := 1; i < len(suggestions); i++ {
		assert.GreaterOrEqual(t, suggestions[i-1].PredictedPnL, suggestions[i].PredictedPnL)
	}

	for _, s := range suggestions {
		if s.Tested {
			require.NotNil(t, s.ActualPnL)
		} else {
			assert.Nil(t, s.ActualPnL)
		}
	}
}

func TestServicePredictRequiresFit(t *testing.T) {
	space := params.NewSpace([]params.Parameter{
		{Name: "alpha", Min: 0, Max: 10, Step: 1, Initial: 5, Priority: 1, Enabled: true},
	})
	service, _ := testService(t, space)

	_, err := service.Predict(space.InitialConfig())
	assert.Error(t, err)

	_, err = service.Suggest(space.InitialConfig(), DefaultCandidateOptions(), 5)
	assert.Error(t, err)
}
