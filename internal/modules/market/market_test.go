package market

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTickWriterRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "2026-01-05.tks")

	w := NewTickWriter(path)
	want := []Tick{
		{Timestamp: 1000, Ticker: "AAPL", Price: 150.5},
		{Timestamp: 1001, Ticker: "MSFT", Price: 410.0},
		{Timestamp: 1002, Ticker: "AAPL", Price: 151.2},
	}
	for _, tick := range want {
		require.NoError(t, w.Append(tick))
	}
	require.NoError(t, w.Flush())

	got, err := LoadTicks(path)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestTickWriterMultipleBatches(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "day.tks")

	w := NewTickWriter(path)
	w.capacity = 2 // force small batches

	for i := 0; i < 5; i++ {
		require.NoError(t, w.Append(Tick{Timestamp: float64(i), Ticker: "X", Price: float64(i)}))
	}
	require.NoError(t, w.Flush())

	got, err := LoadTicks(path)
	require.NoError(t, err)
	require.Len(t, got, 5)
	for i, tick := range got {
		assert.Equal(t, float64(i), tick.Timestamp)
	}
}

func TestLoadTicksMissingFile(t *testing.T) {
	_, err := LoadTicks(filepath.Join(t.TempDir(), "nope.tks"))
	assert.Error(t, err)
}

func TestListDatasets(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"2026-01-07.tks", "2026-01-05.tks", "notes.txt"} {
		w := NewTickWriter(filepath.Join(dir, name))
		require.NoError(t, w.Append(Tick{Timestamp: 1, Ticker: "A", Price: 1}))
		require.NoError(t, w.Flush())
	}

	files, err := ListDatasets(dir)
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, filepath.Join(dir, "2026-01-05.tks"), files[0])
	assert.Equal(t, filepath.Join(dir, "2026-01-07.tks"), files[1])
}

func TestRankingTablePnL(t *testing.T) {
	table := NewRankingTable()

	table.Update("AAPL", 100, 1)
	table.Update("AAPL", 110, 2) // +10%
	table.Update("MSFT", 200, 1)
	table.Update("MSFT", 190, 2) // -5%
	table.Resort()

	top := table.TopN(2)
	require.Len(t, top, 2)
	assert.Equal(t, "AAPL", top[0].Ticker)
	assert.InDelta(t, 10.0, top[0].CurrentPnL, 1e-9)
	assert.Equal(t, "MSFT", top[1].Ticker)
	assert.InDelta(t, -5.0, top[1].CurrentPnL, 1e-9)
}

func TestTickerEntryDrawdown(t *testing.T) {
	table := NewRankingTable()
	table.Update("X", 100, 1)
	table.Update("X", 120, 2) // +20%
	table.Update("X", 105, 3) // fell 15 points from the high

	entry, ok := table.Entry("X")
	require.True(t, ok)
	assert.InDelta(t, 20.0, entry.HighestPnL, 1e-9)
	assert.InDelta(t, -15.0, entry.MaxDrawdown, 1e-9)
	assert.InDelta(t, 20.0, entry.PeakPnL, 1e-9)
	assert.InDelta(t, 5.0, entry.TroughPnL, 1e-9)
}

func TestMaybeResortThreshold(t *testing.T) {
	table := NewRankingTable()
	for i := 0; i < ResortThreshold-1; i++ {
		table.Update("X", 100, float64(i))
	}
	assert.False(t, table.MaybeResort())

	table.Update("X", 100, 0)
	assert.True(t, table.MaybeResort())
}

func TestRankingTableReset(t *testing.T) {
	table := NewRankingTable()
	table.Update("X", 100, 1)
	table.Resort()
	require.Equal(t, 1, table.Len())

	table.Reset()
	assert.Equal(t, 0, table.Len())
	assert.Empty(t, table.TopN(10))

	_, ok := table.LastPrice("X")
	assert.False(t, ok)
}
