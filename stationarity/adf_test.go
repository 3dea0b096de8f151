package stationarity

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/procurewise/econengine/config"
	"github.com/procurewise/econengine/econerr"
	"github.com/procurewise/econengine/timeseries"
)

var testStart = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

func ar1(rng *rand.Rand, n int, phi, sigma float64) []float64 {
	out := make([]float64, n)
	for t := 1; t < n; t++ {
		out[t] = phi*out[t-1] + sigma*rng.NormFloat64()
	}
	return out
}

func randomWalk(rng *rand.Rand, n int, sigma float64) []float64 {
	out := make([]float64, n)
	for t := 1; t < n; t++ {
		out[t] = out[t-1] + sigma*rng.NormFloat64()
	}
	return out
}

func panelOf(t *testing.T, cols map[string][]float64) *timeseries.Multivariate {
	t.Helper()
	var series []*timeseries.Series
	for name, vals := range cols {
		s, err := timeseries.FromValues(name, testStart, vals)
		require.NoError(t, err)
		series = append(series, s)
	}
	mv, err := timeseries.Align(timeseries.GapInnerJoin, series...)
	require.NoError(t, err)
	return mv
}

func TestAnalyzeSeparatesStationaryFromUnitRoot(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	n := 400
	mv := panelOf(t, map[string][]float64{
		"stationary": ar1(rng, n, 0.5, 1),
		"walk":       randomWalk(rng, n, 1),
	})

	report, err := Analyze(mv, config.Default())
	require.NoError(t, err)
	require.Len(t, report.Results, 2)

	st, ok := report.For("stationary")
	require.True(t, ok)
	assert.True(t, st.Stationary, "AR(0.5) should reject the unit root, p=%f", st.PValue)
	assert.Equal(t, 0, st.SuggestedDiff)

	w, ok := report.For("walk")
	require.True(t, ok)
	assert.False(t, w.Stationary, "random walk should not reject the unit root, p=%f", w.PValue)
	assert.GreaterOrEqual(t, w.SuggestedDiff, 1)

	assert.False(t, report.AllStationary())
	assert.False(t, report.AllNonStationary())
}

func TestAnalyzeAllStationaryPanel(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	n := 400
	mv := panelOf(t, map[string][]float64{
		"a": ar1(rng, n, 0.3, 1),
		"b": ar1(rng, n, 0.6, 1),
	})
	report, err := Analyze(mv, config.Default())
	require.NoError(t, err)
	assert.True(t, report.AllStationary())
}

func TestAnalyzeRequiresMinimumObservations(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	mv := panelOf(t, map[string][]float64{"short": ar1(rng, 20, 0.5, 1)})
	_, err := Analyze(mv, config.Default())
	var insufficient *econerr.InsufficientDataError
	require.ErrorAs(t, err, &insufficient)
}
