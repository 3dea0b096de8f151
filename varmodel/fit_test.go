package varmodel

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/procurewise/econengine/config"
	"github.com/procurewise/econengine/econerr"
	"github.com/procurewise/econengine/models"
	"github.com/procurewise/econengine/timeseries"
)

var testStart = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

func defaultSpec() Spec {
	return Spec{
		MaxLag:          4,
		Criterion:       config.AIC,
		MinObservations: 50,
		Residual:        config.ResidualConfig{Family: config.FamilyNormal},
	}
}

func buildPanel(t *testing.T, names []string, cols ...[]float64) *timeseries.Multivariate {
	t.Helper()
	series := make([]*timeseries.Series, len(names))
	for i, name := range names {
		s, err := timeseries.FromValues(name, testStart, cols[i])
		require.NoError(t, err)
		series[i] = s
	}
	mv, err := timeseries.Align(timeseries.GapInnerJoin, series...)
	require.NoError(t, err)
	return mv
}

// simulateVAR1 draws from a diagonal two-variable VAR(1) with coefficients
// 0.8 and 0.5.
func simulateVAR1(rng *rand.Rand, n int) ([]float64, []float64) {
	a := make([]float64, n)
	b := make([]float64, n)
	for t := 1; t < n; t++ {
		a[t] = 0.8*a[t-1] + rng.NormFloat64()
		b[t] = 0.5*b[t-1] + rng.NormFloat64()
	}
	return a, b
}

func TestFitRecoversLagOneCoefficients(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	a, b := simulateVAR1(rng, 600)
	mv := buildPanel(t, []string{"a", "b"}, a, b)

	spec := defaultSpec()
	spec.Criterion = config.BIC
	m, err := Fit(mv, spec)
	require.NoError(t, err)
	assert.Equal(t, models.VariantVAR, m.Variant())
	// The generating process is first order; the criterion search must
	// land on lag 1, not merely include it.
	require.Equal(t, 1, m.LagOrder())

	a1 := m.Coefficients(1)
	require.NotNil(t, a1)
	assert.InDelta(t, 0.8, a1.At(0, 0), 0.1)
	assert.InDelta(t, 0.5, a1.At(1, 1), 0.1)
	assert.InDelta(t, 0.0, a1.At(0, 1), 0.15)
	assert.InDelta(t, 0.0, a1.At(1, 0), 0.15)

	assert.Less(t, m.MaxRootModulus(), 1.0)
	assert.NotEqual(t, m.ID().String(), "00000000-0000-0000-0000-000000000000")
}

func TestFitRejectsExplosiveData(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	n := 200
	a := make([]float64, n)
	b := make([]float64, n)
	a[0], b[0] = 1, 1
	for t := 1; t < n; t++ {
		a[t] = 1.08*a[t-1] + 0.01*rng.NormFloat64()
		b[t] = 1.05*b[t-1] + 0.01*rng.NormFloat64()
	}
	mv := buildPanel(t, []string{"a", "b"}, a, b)

	_, err := Fit(mv, defaultSpec())
	var unstable *econerr.UnstableModelError
	require.ErrorAs(t, err, &unstable)
	assert.Greater(t, unstable.MaxModulus, 1.0)
}

func TestFitRequiresMinimumObservations(t *testing.T) {
	rng := rand.New(rand.NewSource(6))
	a, b := simulateVAR1(rng, 30)
	mv := buildPanel(t, []string{"a", "b"}, a, b)
	_, err := Fit(mv, defaultSpec())
	var insufficient *econerr.InsufficientDataError
	require.ErrorAs(t, err, &insufficient)
}

func TestBICNeverPicksLargerLagThanAIC(t *testing.T) {
	rng := rand.New(rand.NewSource(12))
	a, b := simulateVAR1(rng, 400)
	mv := buildPanel(t, []string{"a", "b"}, a, b)

	aicSpec := defaultSpec()
	bicSpec := defaultSpec()
	bicSpec.Criterion = config.BIC

	mAIC, err := Fit(mv, aicSpec)
	require.NoError(t, err)
	mBIC, err := Fit(mv, bicSpec)
	require.NoError(t, err)
	assert.LessOrEqual(t, mBIC.LagOrder(), mAIC.LagOrder())
}

func TestDiagnosticsPopulated(t *testing.T) {
	rng := rand.New(rand.NewSource(21))
	a, b := simulateVAR1(rng, 500)
	mv := buildPanel(t, []string{"a", "b"}, a, b)

	m, err := Fit(mv, defaultSpec())
	require.NoError(t, err)
	d := m.Diagnostics()
	assert.NotZero(t, d.AIC)
	assert.NotZero(t, d.BIC)
	assert.Greater(t, d.BIC, d.AIC, "BIC penalty exceeds AIC for n > 8")
	assert.GreaterOrEqual(t, d.LjungBoxPValue, 0.0)
	assert.LessOrEqual(t, d.LjungBoxPValue, 1.0)

	resid := m.Residuals()
	require.NotNil(t, resid)
	rows, cols := resid.Dims()
	assert.Equal(t, 2, cols)
	assert.Equal(t, 500-m.LagOrder(), rows)
}
