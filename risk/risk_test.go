package risk

import (
	"math"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/procurewise/econengine/config"
	"github.com/procurewise/econengine/models"
)

func riskCfg() config.RiskConfig {
	return config.Default().Risk
}

func TestComputeVaRNormal(t *testing.T) {
	// 95% one-sided normal critical value is 1.6449.
	v, err := ComputeVaR(100, 0.02, 0.95, config.FamilyNormal, 0)
	require.NoError(t, err)
	assert.InDelta(t, 1.6449*0.02*100, v, 1e-3)
}

func TestComputeVaRStudentTExceedsNormalInTail(t *testing.T) {
	n, err := ComputeVaR(100, 0.02, 0.99, config.FamilyNormal, 0)
	require.NoError(t, err)
	st, err := ComputeVaR(100, 0.02, 0.99, config.FamilyStudentT, 5)
	require.NoError(t, err)
	assert.Greater(t, st, n, "heavier tails raise far-tail VaR even after unit-variance rescaling")
}

func TestComputeVaRValidation(t *testing.T) {
	_, err := ComputeVaR(0, 0.02, 0.95, config.FamilyNormal, 0)
	require.Error(t, err)
	_, err = ComputeVaR(100, -0.01, 0.95, config.FamilyNormal, 0)
	require.Error(t, err)
	_, err = ComputeVaR(100, 0.02, 1, config.FamilyNormal, 0)
	require.Error(t, err)
}

func TestStressTestIsLinearInShock(t *testing.T) {
	exp := Exposure{Price: 50, Quantity: 200}
	deltas := StressTest(exp, map[string]float64{
		"supply_shock": 0.15,
		"demand_drop":  -0.10,
		"double":       0.30,
	})
	require.Len(t, deltas, 3)
	assert.InDelta(t, 0.15*50*200, deltas["supply_shock"], 1e-9)
	assert.InDelta(t, -0.10*50*200, deltas["demand_drop"], 1e-9)
	assert.InDelta(t, 2*deltas["supply_shock"], deltas["double"], 1e-9)
}

func TestClassifyBands(t *testing.T) {
	cfg := riskCfg() // low < 0.015, high >= 0.03
	assert.Equal(t, models.RiskLow, Classify(0.005, cfg))
	assert.Equal(t, models.RiskMedium, Classify(0.015, cfg))
	assert.Equal(t, models.RiskMedium, Classify(0.029, cfg))
	assert.Equal(t, models.RiskHigh, Classify(0.03, cfg))
	assert.Equal(t, models.RiskHigh, Classify(0.2, cfg))
}

func TestRecommendHedgeClamps(t *testing.T) {
	assert.Equal(t, 0.0, RecommendHedge(0, 0.05))
	assert.InDelta(t, 0.5, RecommendHedge(0.025, 0.05), 1e-12)
	assert.Equal(t, 1.0, RecommendHedge(0.05, 0.05))
	assert.Equal(t, 1.0, RecommendHedge(0.5, 0.05))
	assert.Equal(t, 1.0, RecommendHedge(0.01, 0))
}

func TestAssessWithVolatilityPath(t *testing.T) {
	vol := &models.VolatilityPath{
		ModelID:         uuid.New(),
		Variances:       []float64{0.0004, 0.00041},
		LongRunVariance: 0.0005,
	}
	exp := Exposure{Price: 100, Quantity: 10}
	residual := config.ResidualConfig{Family: config.FamilyNormal}

	a, err := Assess(exp, nil, vol, riskCfg(), residual, 0.95)
	require.NoError(t, err)
	assert.InDelta(t, 0.02, a.DailyVol, 1e-12)
	assert.InDelta(t, 0.02*math.Sqrt(252), a.AnnualizedVol, 1e-9)
	assert.Equal(t, models.RiskMedium, a.Level)
	assert.InDelta(t, 1.6449*0.02*100*10, a.ValueAtRisk, 0.05)
	assert.Same(t, vol, a.Volatility)
	assert.InDelta(t, 0.02/riskCfg().Tolerance, a.HedgeRatio, 1e-9)
}

func TestAssessFallsBackToForecastBands(t *testing.T) {
	residual := config.ResidualConfig{Family: config.FamilyNormal}
	// 95% two-sided z is 1.96; a half-width of 3.92 at price 100 implies
	// daily vol 0.02.
	fc := &models.Forecast{
		Confidence: 0.95,
		Horizon:    1,
		Variables: []models.VariableForecast{{
			Name: "copper",
			Points: []models.ForecastPoint{
				{Step: 0, Point: 100, Lower: 100, Upper: 100},
				{Step: 1, Point: 100, Lower: 100 - 3.92, Upper: 100 + 3.92},
			},
		}},
	}
	a, err := Assess(Exposure{Price: 100, Quantity: 1}, fc, nil, riskCfg(), residual, 0.95)
	require.NoError(t, err)
	assert.InDelta(t, 0.02, a.DailyVol, 1e-3)
	assert.Same(t, fc, a.Forecast)
}

func TestAssessValidation(t *testing.T) {
	residual := config.ResidualConfig{Family: config.FamilyNormal}
	_, err := Assess(Exposure{Price: 100, Quantity: 0}, nil, nil, riskCfg(), residual, 0.95)
	require.Error(t, err)
	_, err = Assess(Exposure{Price: 100, Quantity: 1}, nil, nil, riskCfg(), residual, 0.95)
	require.Error(t, err)
}
