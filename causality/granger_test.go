package causality

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

// drivenPair simulates leader -> follower causality with one lag.
func drivenPair(rng *rand.Rand, n int) (leader, follower []float64) {
	leader = make([]float64, n)
	follower = make([]float64, n)
	for t := 1; t < n; t++ {
		leader[t] = 0.6*leader[t-1] + rng.NormFloat64()
		follower[t] = 0.3*follower[t-1] + 0.7*leader[t-1] + 0.5*rng.NormFloat64()
	}
	return leader, follower
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

func TestTestDetectsDirectionalCausality(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	leader, follower := drivenPair(rng, 400)
	mv := buildPanel(t, []string{"oil", "diesel"}, leader, follower)

	m, err := Test(mv, 4, config.Default().Causality)
	require.NoError(t, err)
	require.Len(t, m.Pairs, 2)

	forward, ok := m.Pair("oil", "diesel")
	require.True(t, ok)
	assert.True(t, forward.Significant, "oil should cause diesel, corrected p=%f", forward.CorrectedPValue)
	assert.LessOrEqual(t, forward.MinPValue, forward.CorrectedPValue)

	reverse, ok := m.Pair("diesel", "oil")
	require.True(t, ok)
	assert.False(t, reverse.Significant, "diesel should not cause oil, corrected p=%f", reverse.CorrectedPValue)

	assert.Equal(t, []string{"oil"}, m.Causes("diesel"))
	assert.Empty(t, m.Causes("oil"))
}

func TestCorrectedPValueNeverBelowRaw(t *testing.T) {
	rng := rand.New(rand.NewSource(8))
	leader, follower := drivenPair(rng, 300)
	mv := buildPanel(t, []string{"a", "b"}, leader, follower)

	for _, correction := range []config.Correction{
		config.CorrectionBonferroni, config.CorrectionHolm, config.CorrectionNone,
	} {
		cfg := config.Default().Causality
		cfg.Correction = correction
		m, err := Test(mv, 5, cfg)
		require.NoError(t, err)
		for _, p := range m.Pairs {
			assert.GreaterOrEqual(t, p.CorrectedPValue, p.MinPValue)
			assert.LessOrEqual(t, p.CorrectedPValue, 1.0)
			assert.Len(t, p.TestedLags, 5)
		}
	}
}

func TestNoCorrectionKeepsRawPValue(t *testing.T) {
	rng := rand.New(rand.NewSource(15))
	leader, follower := drivenPair(rng, 300)
	mv := buildPanel(t, []string{"a", "b"}, leader, follower)

	cfg := config.Default().Causality
	cfg.Correction = config.CorrectionNone
	m, err := Test(mv, 3, cfg)
	require.NoError(t, err)
	for _, p := range m.Pairs {
		assert.Equal(t, p.MinPValue, p.CorrectedPValue)
	}
}

func TestTestRequiresTwoVariables(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	leader, _ := drivenPair(rng, 200)
	mv := buildPanel(t, []string{"solo"}, leader)
	_, err := Test(mv, 3, config.Default().Causality)
	var notApplicable *econerr.ModelNotApplicableError
	require.ErrorAs(t, err, &notApplicable)
}
