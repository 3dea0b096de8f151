package garch

import (
	"math"
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

func testSpec() Spec {
	return Spec{
		P:               1,
		Q:               1,
		MinObservations: 50,
		MLE:             config.MLEConfig{MaxIterations: 2000, Tolerance: 1e-9},
	}
}

// simulateGARCH draws returns from a GARCH(1,1) with the given parameters.
func simulateGARCH(rng *rand.Rand, n int, omega, alpha, beta float64) []float64 {
	r := make([]float64, n)
	h := omega / (1 - alpha - beta)
	for t := 0; t < n; t++ {
		if t > 0 {
			h = omega + alpha*r[t-1]*r[t-1] + beta*h
		}
		r[t] = math.Sqrt(h) * rng.NormFloat64()
	}
	return r
}

func returnsSeries(t *testing.T, values []float64) *timeseries.Series {
	t.Helper()
	// Shift to levels and derive returns so the series carries the
	// Returns kind the fitter demands.
	levels := make([]float64, len(values)+1)
	levels[0] = 100
	for i, r := range values {
		levels[i+1] = levels[i] * (1 + r)
	}
	s, err := timeseries.FromValues("copper", testStart, levels)
	require.NoError(t, err)
	ret, err := s.PctReturns()
	require.NoError(t, err)
	return ret
}

func TestFitRecoversStationaryProcess(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	trueOmega, trueAlpha, trueBeta := 1e-5, 0.1, 0.85
	r := simulateGARCH(rng, 2000, trueOmega, trueAlpha, trueBeta)

	m, err := Fit(returnsSeries(t, r), testSpec())
	require.NoError(t, err)

	assert.Less(t, m.Persistence(), 1.0)
	assert.Greater(t, m.Persistence(), 0.5, "persistence should reflect the strongly persistent process")

	trueLongRun := trueOmega / (1 - trueAlpha - trueBeta)
	assert.Greater(t, m.LongRunVariance(), trueLongRun/3)
	assert.Less(t, m.LongRunVariance(), trueLongRun*3)

	d := m.Diagnostics()
	assert.NotZero(t, d.LogLikelihood)
	assert.Greater(t, d.BIC, d.AIC)
}

func TestFitRejectsLevelsSeries(t *testing.T) {
	s, err := timeseries.FromValues("copper", testStart, make([]float64, 200))
	require.NoError(t, err)
	_, err = Fit(s, testSpec())
	var invalid *econerr.InvalidInputError
	require.ErrorAs(t, err, &invalid)
}

func TestFitRejectsShortSeries(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	r := simulateGARCH(rng, 30, 1e-5, 0.1, 0.8)
	_, err := Fit(returnsSeries(t, r), testSpec())
	var insufficient *econerr.InsufficientDataError
	require.ErrorAs(t, err, &insufficient)
}

func TestForecastVolatilityConvergesToLongRun(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	r := simulateGARCH(rng, 2000, 1e-5, 0.1, 0.85)
	m, err := Fit(returnsSeries(t, r), testSpec())
	require.NoError(t, err)

	path, err := m.ForecastVolatility(250)
	require.NoError(t, err)
	require.Len(t, path.Variances, 250)
	assert.InDelta(t, m.LongRunVariance(), path.LongRunVariance, 1e-15)

	// The gap to the long-run variance shrinks geometrically.
	prevGap := math.Abs(path.Variances[0] - path.LongRunVariance)
	for k := 1; k < len(path.Variances); k++ {
		gap := math.Abs(path.Variances[k] - path.LongRunVariance)
		assert.LessOrEqual(t, gap, prevGap+1e-15, "step %d", k)
		prevGap = gap
	}
	finalGap := math.Abs(path.Variances[249] - path.LongRunVariance)
	assert.Less(t, finalGap, path.LongRunVariance*0.05)

	_, err = m.ForecastVolatility(0)
	require.Error(t, err)
}

func TestVarianceRecursionSeedsWithSampleVariance(t *testing.T) {
	r := []float64{0.01, -0.02, 0.015}
	h := varianceRecursion(r, 1e-5, []float64{0.1}, []float64{0.8}, 4e-4)
	require.Len(t, h, 3)
	assert.InDelta(t, 1e-5+0.1*4e-4+0.8*4e-4, h[0], 1e-12)
	assert.InDelta(t, 1e-5+0.1*0.01*0.01+0.8*h[0], h[1], 1e-12)
}
