package params

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseClock(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    float64
		wantErr bool
	}{
		{"market open", "09:30", 570, false},
		{"midnight", "00:00", 0, false},
		{"end of day", "23:59", 1439, false},
		{"hour out of range", "24:00", 0, true},
		{"minute out of range", "10:60", 0, true},
		{"not a clock", "hello", 0, true},
		{"missing minutes", "10", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseClock(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParameterFormat(t *testing.T) {
	clock := Parameter{Name: "trade_start_hour", Kind: KindClock}
	assert.Equal(t, "09:30", clock.Format(570))
	assert.Equal(t, "00:00", clock.Format(0))

	numeric := Parameter{Name: "min_market_pnl", Kind: KindNumeric}
	assert.Equal(t, "43", numeric.Format(43))
	assert.Equal(t, "1.5", numeric.Format(1.5))
}

func TestValuesAround(t *testing.T) {
	p := Parameter{Name: "x", Min: 0, Max: 100, Step: 10}

	values := p.ValuesAround(50, 5)
	require.Len(t, values, 5)
	assert.Equal(t, 50.0, values[0])
	assert.Contains(t, values, 60.0)
	assert.Contains(t, values, 40.0)

	// Center at the lower bound only expands upward.
	atMin := p.ValuesAround(0, 3)
	assert.Equal(t, []float64{0, 10, 20}, atMin)
}

func TestValuesExpandedCoversRange(t *testing.T) {
	p := Parameter{Name: "x", Min: 0, Max: 30, Step: 10}
	values := p.ValuesExpanded(10)
	assert.ElementsMatch(t, []float64{0, 10, 20, 30}, values)
}

func TestAllValues(t *testing.T) {
	p := Parameter{Name: "x", Min: 1, Max: 3, Step: 0.5}
	assert.Equal(t, []float64{1, 1.5, 2, 2.5, 3}, p.AllValues())
}

func TestOffset(t *testing.T) {
	p := Parameter{Name: "x", Min: 0, Max: 100, Step: 10}

	v, ok := p.Offset(50, 2)
	require.True(t, ok)
	assert.Equal(t, 70.0, v)

	_, ok = p.Offset(50, 6)
	assert.False(t, ok)

	_, ok = p.Offset(50, -6)
	assert.False(t, ok)
}

func TestConfigKeyIsCanonical(t *testing.T) {
	space := DefaultSpace()
	a := space.InitialConfig()
	b := a.Clone()

	assert.Equal(t, a.Key(space), b.Key(space))

	c := a.With("min_market_pnl", 48)
	assert.NotEqual(t, a.Key(space), c.Key(space))

	// Clock values render as HH:MM inside the key.
	assert.Contains(t, a.Key(space), `"trade_start_hour": "09:30"`)
}

func TestSpaceActiveOrdering(t *testing.T) {
	space := DefaultSpace()
	active := space.Active()
	require.NotEmpty(t, active)

	for i := 1; i < len(active); i++ {
		assert.LessOrEqual(t, active[i-1].Priority, active[i].Priority)
	}
	for _, p := range active {
		assert.True(t, p.Enabled)
	}
}

func TestSpaceValidate(t *testing.T) {
	space := DefaultSpace()
	cfg := space.InitialConfig()
	require.NoError(t, space.Validate(cfg))

	bad := cfg.With("min_market_pnl", 9999)
	assert.Error(t, space.Validate(bad))

	delete(cfg, "min_market_pnl")
	assert.Error(t, space.Validate(cfg))
}

func TestSpaceSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "params.json")

	original := DefaultSpace()
	require.NoError(t, original.Save(path))

	loaded, err := LoadSpace(path)
	require.NoError(t, err)
	require.Equal(t, original.Len(), loaded.Len())

	for _, name := range original.Names() {
		want, _ := original.Get(name)
		got, ok := loaded.Get(name)
		require.True(t, ok, "missing parameter %s", name)
		assert.Equal(t, want, got)
	}
}

func TestLoadOrDefault(t *testing.T) {
	dir := t.TempDir()

	// Missing file falls back to the defaults.
	space, err := LoadOrDefault(filepath.Join(dir, "nope.json"))
	require.NoError(t, err)
	assert.Equal(t, DefaultSpace().Len(), space.Len())

	// A corrupt file is an error, not a silent fallback.
	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("{not json"), 0644))
	_, err = LoadOrDefault(bad)
	assert.Error(t, err)
}

func TestConfigFileFormRoundTrip(t *testing.T) {
	space := DefaultSpace()
	cfg := space.InitialConfig()

	form := cfg.FileForm(space)
	assert.Equal(t, "09:30", form["trade_start_hour"])

	back, err := ConfigFromFileForm(space, form)
	require.NoError(t, err)
	assert.Equal(t, cfg, back)
}
