package stationarity

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/procurewise/econengine/econerr"
)

// cointegratedPair simulates a driver random walk and a follower tied to it
// by a stationary spread: follower = level * driver + noise.
func cointegratedPair(rng *rand.Rand, n int, level float64) (driver, follower []float64) {
	driver = make([]float64, n)
	follower = make([]float64, n)
	driver[0] = 100
	for t := 1; t < n; t++ {
		driver[t] = driver[t-1] + rng.NormFloat64()
	}
	for t := 0; t < n; t++ {
		follower[t] = level*driver[t] + 0.5*rng.NormFloat64()
	}
	return driver, follower
}

func TestJohansenFindsRankOne(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	driver, follower := cointegratedPair(rng, 500, 1.05)
	mv := panelOf(t, map[string][]float64{
		"follower": follower,
		"driver":   driver,
	})
	// Column order is map-dependent; select a fixed order.
	mv, err := mv.Select("follower", "driver")
	require.NoError(t, err)

	res, err := Johansen(mv, 2)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Rank)
	require.Len(t, res.Vectors, res.Rank)

	// follower - 1.05*driver is stationary; normalized on the first
	// component the vector is close to [1, -1.05].
	vec := res.Vectors[0]
	require.Len(t, vec, 2)
	assert.InDelta(t, 1.0, vec[0], 1e-9)
	assert.InDelta(t, -1.05, vec[1], 0.1)
}

func TestJohansenIndependentWalksHaveRankZero(t *testing.T) {
	rng := rand.New(rand.NewSource(9))
	n := 500
	a := make([]float64, n)
	b := make([]float64, n)
	for t := 1; t < n; t++ {
		a[t] = a[t-1] + rng.NormFloat64()
		b[t] = b[t-1] + rng.NormFloat64()
	}
	mv := panelOf(t, map[string][]float64{"a": a, "b": b})

	res, err := Johansen(mv, 2)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Rank)
}

func TestJohansenRejectsUnivariatePanel(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	mv := panelOf(t, map[string][]float64{"only": randomWalk(rng, 300, 1)})
	_, err := Johansen(mv, 2)
	var notApplicable *econerr.ModelNotApplicableError
	require.ErrorAs(t, err, &notApplicable)
}

func TestJohansenRejectsShortSample(t *testing.T) {
	rng := rand.New(rand.NewSource(4))
	mv := panelOf(t, map[string][]float64{
		"a": randomWalk(rng, 15, 1),
		"b": randomWalk(rng, 15, 1),
	})
	_, err := Johansen(mv, 2)
	var insufficient *econerr.InsufficientDataError
	require.ErrorAs(t, err, &insufficient)
}
